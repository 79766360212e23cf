package dummydb_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/enrollment"
	"github.com/trezcool/sanaa/core/user"
	dummydb "github.com/trezcool/sanaa/storage/database/dummy"
	"github.com/trezcool/sanaa/testutil"
)

var ctxBg = context.Background()

func Test_courseRepository_QueryCourses(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)
	crsRepo := dummydb.NewCourseRepository(db)
	enrRepo := dummydb.NewEnrollmentRepository(db)

	frida := testutil.CreateUser(t, usrRepo, "Frida", "frida@test.cd", user.RoleTeacher)
	hero := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", user.RoleStudent)
	base := time.Now().UTC().Add(-time.Hour)
	b := testutil.CreateCourse(t, crsRepo, frida.ID, "Baroque", true, base)
	a := testutil.CreateCourse(t, crsRepo, frida.ID, "Art Deco", true, base.Add(time.Minute))
	testutil.CreateCourse(t, crsRepo, frida.ID, "Cubism", false, base.Add(2*time.Minute))
	testutil.CreateArtwork(t, crsRepo, b.ID, "Las Meninas", 0)
	_, err = enrRepo.CreateEnrollment(ctxBg, enrollment.Enrollment{UserID: hero.ID, CourseID: b.ID, CreatedAt: base, UpdatedAt: base})
	require.NoError(t, err)

	sums, err := crsRepo.QueryCourses(ctxBg, course.QueryFilter{PublishedOnly: true}, []core.DBOrdering{{Field: "title", Ascending: true}})
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, a.ID, sums[0].ID)
	assert.Equal(t, b.ID, sums[1].ID)
	assert.Equal(t, "Frida", sums[1].TeacherName)
	assert.Equal(t, 1, sums[1].ArtworksCount)
	assert.Equal(t, 1, sums[1].StudentsEnrolled)

	sums, err = crsRepo.QueryCourses(ctxBg, course.QueryFilter{Search: "DECO"}, nil)
	require.NoError(t, err)
	require.Len(t, sums, 1)
	assert.Equal(t, a.ID, sums[0].ID)

	t.Run("cascading delete", func(t *testing.T) {
		require.NoError(t, crsRepo.DeleteCourse(ctxBg, b.ID))
		_, err := enrRepo.GetUserEnrollment(ctxBg, hero.ID, b.ID)
		assert.Equal(t, enrollment.ErrNotEnrolled, err)
		arts, err := crsRepo.QueryArtworks(ctxBg, b.ID)
		require.NoError(t, err)
		assert.Empty(t, arts)
	})
}

func Test_enrollmentRepository_WithinTx(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)
	crsRepo := dummydb.NewCourseRepository(db)
	enrRepo := dummydb.NewEnrollmentRepository(db)

	frida := testutil.CreateUser(t, usrRepo, "Frida", "frida@test.cd", user.RoleTeacher)
	hero := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", user.RoleStudent)
	crs := testutil.CreateCourse(t, crsRepo, frida.ID, "Baroque", true)
	art := testutil.CreateArtwork(t, crsRepo, crs.ID, "Las Meninas", 0)
	now := time.Now().UTC()

	errBoom := errors.New("boom")
	err = enrRepo.WithinTx(ctxBg, func(repo enrollment.Repository) error {
		enr, err := repo.CreateEnrollment(ctxBg, enrollment.Enrollment{UserID: hero.ID, CourseID: crs.ID, CreatedAt: now, UpdatedAt: now})
		if err != nil {
			return err
		}
		n, err := repo.CreateProgress(ctxBg, enrollment.ArtworkProgress{UserID: hero.ID, ArtworkID: art.ID, EnrollmentID: enr.ID, CreatedAt: now})
		if err != nil {
			return err
		}
		assert.Equal(t, 1, n)
		// nested calls join the transaction
		return repo.WithinTx(ctxBg, func(enrollment.Repository) error { return errBoom })
	})
	assert.Equal(t, errBoom, err)

	_, err = enrRepo.GetUserEnrollment(ctxBg, hero.ID, crs.ID)
	assert.Equal(t, enrollment.ErrNotEnrolled, err, "rolled back")
	_, err = enrRepo.GetProgress(ctxBg, hero.ID, art.ID)
	assert.Equal(t, enrollment.ErrProgressNotFound, err)

	t.Run("progress needs an enrollment", func(t *testing.T) {
		_, err := enrRepo.CreateProgress(ctxBg, enrollment.ArtworkProgress{UserID: hero.ID, ArtworkID: art.ID, EnrollmentID: "lol", CreatedAt: now})
		assert.Equal(t, enrollment.ErrNotEnrolled, err)
	})
}

func Test_enrollmentRepository_UpdateProgress(t *testing.T) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)
	crsRepo := dummydb.NewCourseRepository(db)
	enrRepo := dummydb.NewEnrollmentRepository(db)

	frida := testutil.CreateUser(t, usrRepo, "Frida", "frida@test.cd", user.RoleTeacher)
	hero := testutil.CreateUser(t, usrRepo, "Hero", "hero@test.cd", user.RoleStudent)
	crs := testutil.CreateCourse(t, crsRepo, frida.ID, "Baroque", true)
	art := testutil.CreateArtwork(t, crsRepo, crs.ID, "Las Meninas", 0)
	now := time.Now().UTC()

	enr, err := enrRepo.CreateEnrollment(ctxBg, enrollment.Enrollment{UserID: hero.ID, CourseID: crs.ID, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	_, err = enrRepo.CreateProgress(ctxBg, enrollment.ArtworkProgress{UserID: hero.ID, ArtworkID: art.ID, EnrollmentID: enr.ID, CreatedAt: now})
	require.NoError(t, err)

	stale, err := enrRepo.GetProgress(ctxBg, hero.ID, art.ID)
	require.NoError(t, err)
	first := now.Add(time.Minute)
	_, err = enrRepo.SetProgressViewed(ctxBg, stale.ID, first)
	require.NoError(t, err)

	stale.MarkCompleted(first.Add(time.Minute))
	got, err := enrRepo.UpdateProgress(ctxBg, stale)
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.True(t, first.Equal(got.ViewedAt.Time), "first view is kept")

	_, err = enrRepo.UpdateProgress(ctxBg, enrollment.ArtworkProgress{ID: "lol"})
	assert.Equal(t, enrollment.ErrProgressNotFound, err)
}
