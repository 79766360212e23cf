package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/trezcool/sanaa/core"
	appfs "github.com/trezcool/sanaa/fs"
)

// Engines
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

const migrationsDir = "migrations"

var gooseMu sync.Mutex // goose keeps its settings in package state

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know of
	sqlx.BindDriver(SQLite, sqlx.QUESTION)
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   Postgres,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(Postgres, u.String())
}

// Open opens the application database of the configured engine.
func Open(conf *core.Config) (*sqlx.DB, error) {
	switch conf.Database.Engine {
	case SQLite:
		path := conf.Database.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(conf.WorkDir, path)
		}
		return OpenSQLite(path)
	case Postgres, "":
		return open(conf.Database.Name, false, conf)
	default:
		return nil, errors.Errorf("unsupported database engine %q", conf.Database.Engine)
	}
}

// OpenSQLite opens the sqlite database file at path, with foreign keys enforced.
func OpenSQLite(path string) (*sqlx.DB, error) {
	q := make(url.Values)
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Set("_time_format", "sqlite")

	db, err := sqlx.Open(SQLite, "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, errors.Wrap(err, "opening sqlite database")
	}
	// sqlite has a single writer
	db.SetMaxOpenConns(1)
	return db, nil
}

// IsPostgres reports whether db talks to postgres.
func IsPostgres(db *sqlx.DB) bool {
	return db.DriverName() == Postgres
}

// IsUniqueViolation reports whether err is a unique constraint violation, whatever the engine.
func IsUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == "23505"
	case *msqlite.Error:
		code := e.Code()
		return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(ctx context.Context, db *sqlx.DB, q, name string) (bool, error) {
	var found bool
	err := db.GetContext(ctx, &found, db.Rebind(q), name)
	if err != nil && errors.Cause(err) != sql.ErrNoRows {
		return false, err
	}
	return found, nil
}

func createAppUser(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = ?", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		q := fmt.Sprintf(
			"CREATE USER %s CREATEDB ENCRYPTED PASSWORD %s",
			pq.QuoteIdentifier(conf.Database.User),
			pq.QuoteLiteral(conf.Database.Password),
		)
		if _, err = db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = ?", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application database (and the postgres role owning it) when missing.
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	if conf.Database.Engine == SQLite {
		path := conf.Database.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(conf.WorkDir, path)
		}
		return errors.Wrap(os.MkdirAll(filepath.Dir(path), 0o755), "creating database directory")
	}

	// connect as admin
	adminDB, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = adminDB.Close() }()

	if err = ping(ctx, adminDB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, adminDB, conf); err != nil {
		return err
	}

	// create DB as app user
	db, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()
	return createDB(ctx, db, conf)
}

func gooseDialect(db *sqlx.DB) string {
	if IsPostgres(db) {
		return "postgres"
	}
	return "sqlite3"
}

// RunMigrations runs a goose command (up, down, status, redo, version...) over the embedded migrations.
func RunMigrations(db *sqlx.DB, command string, args ...string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect(gooseDialect(db)); err != nil {
		return errors.Wrap(err, "setting migrations dialect")
	}
	if err := goose.Run(command, db.DB, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "running migrations %s", command)
	}
	return nil
}

// Migrate applies all pending migrations.
func Migrate(db *sqlx.DB) error {
	return RunMigrations(db, "up")
}
