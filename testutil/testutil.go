package testutil

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/user"
	logsvc "github.com/trezcool/sanaa/services/logger"
	"github.com/trezcool/sanaa/storage/database"
)

// Password satisfies the password policy.
const Password = "Str0ng!Passw0rd"

// Config returns the TEST configuration, with uploads going to a temporary directory.
func Config(t *testing.T) *core.Config {
	t.Helper()
	conf := core.LoadConfig("TEST")
	conf.Storage.Backend = "local"
	conf.Storage.LocalDir = t.TempDir()
	conf.Telemetry.Enabled = false
	return conf
}

// Logger returns a logger that discards everything.
func Logger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)
	return logger
}

// Validator returns a validator with every custom validator and translation registered.
func Validator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// OpenSQLite opens a migrated sqlite database, closed at the end of the test.
func OpenSQLite(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, repo user.Repository, name, email, role string, createdAt ...time.Time) user.User {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if err := usr.SetPassword(Password); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, teacherID, title string, published bool, createdAt ...time.Time) course.Course {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	crs := course.Course{
		TeacherID:   teacherID,
		Title:       title,
		Description: title + " description",
		IsPublished: published,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if published {
		crs.PublishedAt = null.TimeFrom(tstamp)
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateArtwork(t *testing.T, repo course.Repository, courseID, title string, order int, createdAt ...time.Time) course.Artwork {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	art := course.Artwork{
		CourseID:    courseID,
		Title:       title,
		Author:      "Anonymous",
		ExtraImages: []string{},
		PeriodTags:  []string{},
		TypeTags:    []string{},
		Order:       order,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	art, err := repo.CreateArtwork(context.Background(), art)
	if err != nil {
		t.Fatalf("CreateArtwork() failed: %v", err)
	}
	return art
}
