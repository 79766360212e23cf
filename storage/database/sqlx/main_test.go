package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/enrollment"
	"github.com/trezcool/sanaa/core/user"
	sqlxrepos "github.com/trezcool/sanaa/storage/database/sqlx"
	"github.com/trezcool/sanaa/testutil"
)

var ctxBg = context.Background()

type repos struct {
	db  *sqlx.DB
	usr user.Repository
	crs course.Repository
	enr enrollment.Repository
}

func setup(t *testing.T) repos {
	t.Helper()
	db := testutil.OpenSQLite(t)
	return repos{
		db:  db,
		usr: sqlxrepos.NewUserRepository(db),
		crs: sqlxrepos.NewCourseRepository(db),
		enr: sqlxrepos.NewEnrollmentRepository(db),
	}
}
