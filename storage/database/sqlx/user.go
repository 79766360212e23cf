package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/user"
	"github.com/trezcool/sanaa/storage/database"
)

const userColumns = "id, name, email, role, is_active, password_hash, created_at, updated_at, last_login"

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	IsActive     bool      `db:"is_active"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		PasswordHash: string(usr.PasswordHash),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    usr.LastLogin,
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         r.Role,
		IsActive:     r.IsActive,
		PasswordHash: []byte(r.PasswordHash),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin,
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	ex := getExec(repo.db, exec...)

	b := sq.Select("COUNT(*)").From("users").Where(sq.Eq{"email": email})
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, usr := range excludedUsers {
			ids = append(ids, usr.ID)
		}
		b = b.Where(sq.NotEq{"id": ids})
	}
	q, args, err := toSQL(ex, b)
	if err != nil {
		return err
	}

	var count int
	if err = ex.GetContext(ctx, &count, q, args...); err != nil {
		return core.NewStoreError(err, "checking email uniqueness")
	}
	if count > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec...), `
		INSERT INTO users (id, name, email, role, is_active, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`,
		newUserRow(usr),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, core.NewStoreError(err, "inserting user")
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	ex := getExec(repo.db, exec...)

	b := sq.Select(userColumns).From("users")
	switch {
	case filter.ID != "":
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	default:
		return user.User{}, user.ErrNotFound
	}
	q, args, err := toSQL(ex, b)
	if err != nil {
		return user.User{}, err
	}

	var row userRow
	if err = ex.GetContext(ctx, &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, core.NewStoreError(err, "getting user")
	}
	return row.user(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec...), `
		UPDATE users
		SET name = :name, email = :email, role = :role, is_active = :is_active, password_hash = :password_hash,
			updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`,
		newUserRow(usr),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, core.NewStoreError(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	existing, err := repo.GetUser(ctx, user.GetFilter{Email: usr.Email}, exec...)
	switch {
	case err == user.ErrNotFound:
		return repo.CreateUser(ctx, usr, exec...)
	case err != nil:
		return user.User{}, err
	}

	usr.ID = existing.ID
	usr.CreatedAt = existing.CreatedAt
	usr.LastLogin = existing.LastLogin
	if usr.PasswordHash == nil {
		usr.PasswordHash = existing.PasswordHash
	}
	return repo.UpdateUser(ctx, usr, exec...)
}
