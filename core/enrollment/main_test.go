package enrollment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/enrollment"
	"github.com/trezcool/sanaa/core/user"
	emailsvc "github.com/trezcool/sanaa/services/email"
	dummydb "github.com/trezcool/sanaa/storage/database/dummy"
	"github.com/trezcool/sanaa/testutil"
)

var ctxBg = context.Background()

type testEnv struct {
	svc     enrollment.Service
	repo    enrollment.Repository
	usrRepo user.Repository
	crsRepo course.Repository
	mailSvc *emailsvc.ConsoleServiceMock
	teacher user.User
}

func setup(t *testing.T) testEnv {
	t.Helper()
	conf := testutil.Config(t)
	logger := testutil.Logger(conf)
	core.ParseEmailTemplates(logger, true /* strict */)

	db, err := dummydb.Open()
	require.NoError(t, err)
	env := testEnv{
		repo:    dummydb.NewEnrollmentRepository(db),
		usrRepo: dummydb.NewUserRepository(db),
		crsRepo: dummydb.NewCourseRepository(db),
		mailSvc: emailsvc.NewConsoleServiceMock(conf),
	}
	env.svc = enrollment.NewService(env.repo, env.crsRepo, user.NewService(env.usrRepo), env.mailSvc, logger)
	env.teacher = testutil.CreateUser(t, env.usrRepo, "Frida", "frida@test.cd", user.RoleTeacher)
	return env
}

func (env testEnv) student(t *testing.T, name string) user.User {
	t.Helper()
	return testutil.CreateUser(t, env.usrRepo, name, name+"@test.cd", user.RoleStudent)
}

// course creates a published course with one artwork per title, in that order.
func (env testEnv) course(t *testing.T, titles ...string) (course.Course, []course.Artwork) {
	t.Helper()
	crs := testutil.CreateCourse(t, env.crsRepo, env.teacher.ID, "Impressionism", true)
	arts := make([]course.Artwork, 0, len(titles))
	for i, title := range titles {
		arts = append(arts, testutil.CreateArtwork(t, env.crsRepo, crs.ID, title, i))
	}
	return crs, arts
}

func (env testEnv) enrollment(t *testing.T, enrollmentID string) enrollment.Enrollment {
	t.Helper()
	enr, err := env.repo.GetEnrollment(ctxBg, enrollmentID)
	require.NoError(t, err)
	return enr
}

func (env testEnv) progress(t *testing.T, userID, artworkID string) enrollment.ArtworkProgress {
	t.Helper()
	p, err := env.repo.GetProgress(ctxBg, userID, artworkID)
	require.NoError(t, err)
	return p
}
