package di

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/sanaa/apps/api/echo"
	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/enrollment"
	"github.com/trezcool/sanaa/core/media"
	"github.com/trezcool/sanaa/core/user"
	"github.com/trezcool/sanaa/services/blob"
	emailsvc "github.com/trezcool/sanaa/services/email"
	logsvc "github.com/trezcool/sanaa/services/logger"
	"github.com/trezcool/sanaa/services/ratelimit"
	"github.com/trezcool/sanaa/storage/database"
	sqlxrepos "github.com/trezcool/sanaa/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", log.LstdFlags), conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newBlobStorage(conf *core.Config) (core.BlobStorage, error) {
	return blob.New(context.Background(), conf)
}

func newRateLimiter(conf *core.Config) core.RateLimiter {
	return ratelimit.NewMemoryStore(conf)
}

func newValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(newBlobStorage))
	must(c.Provide(newRateLimiter))
	must(c.Provide(newValidator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewCourseRepository))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(func(svc user.Service) enrollment.Users { return svc }))
	must(c.Provide(func(repo course.Repository) enrollment.Catalog { return repo }))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(func(svc enrollment.Service) course.CatalogSyncer { return svc }))
	must(c.Provide(course.NewService))
	must(c.Provide(media.NewService))

	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
