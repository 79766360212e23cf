package sqlxrepos_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/enrollment"
	"github.com/trezcool/sanaa/core/user"
	"github.com/trezcool/sanaa/testutil"
)

func Test_courseRepository_courses(t *testing.T) {
	r := setup(t)
	frida := testutil.CreateUser(t, r.usr, "Frida", "frida@test.cd", user.RoleTeacher)
	claude := testutil.CreateUser(t, r.usr, "Claude", "claude@test.cd", user.RoleTeacher)
	hero := testutil.CreateUser(t, r.usr, "Hero", "hero@test.cd", user.RoleStudent)

	base := time.Now().UTC().Add(-time.Hour)
	impressionism := testutil.CreateCourse(t, r.crs, claude.ID, "Impressionism", true, base)
	muralism := testutil.CreateCourse(t, r.crs, frida.ID, "Muralism", true, base.Add(time.Minute))
	draft := testutil.CreateCourse(t, r.crs, frida.ID, "Surrealism", false, base.Add(2*time.Minute))
	testutil.CreateArtwork(t, r.crs, muralism.ID, "Detroit Industry", 0)
	testutil.CreateArtwork(t, r.crs, muralism.ID, "Man at the Crossroads", 1)
	_, err := r.enr.CreateEnrollment(ctxBg, enrollment.Enrollment{UserID: hero.ID, CourseID: impressionism.ID, CreatedAt: base, UpdatedAt: base})
	require.NoError(t, err)

	ids := func(sums []course.Summary) []string {
		out := make([]string, 0, len(sums))
		for _, s := range sums {
			out = append(out, s.ID)
		}
		return out
	}

	t.Run("get", func(t *testing.T) {
		got, err := r.crs.GetCourse(ctxBg, muralism.ID)
		require.NoError(t, err)
		assert.Equal(t, "Muralism", got.Title)
		assert.True(t, got.PublishedAt.Valid)

		_, err = r.crs.GetCourse(ctxBg, "lol")
		assert.Equal(t, course.ErrNotFound, err)
	})

	tests := []struct {
		name     string
		filter   course.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{name: "all", ordering: []core.DBOrdering{{Field: "created_at", Ascending: true}}, want: []string{impressionism.ID, muralism.ID, draft.ID}},
		{
			name:     "published only",
			filter:   course.QueryFilter{PublishedOnly: true},
			ordering: []core.DBOrdering{{Field: "title", Ascending: false}},
			want:     []string{muralism.ID, impressionism.ID},
		},
		{name: "by teacher", filter: course.QueryFilter{TeacherID: frida.ID}, ordering: []core.DBOrdering{{Field: "created_at"}}, want: []string{draft.ID, muralism.ID}},
		{name: "search title", filter: course.QueryFilter{Search: "MURAL"}, want: []string{muralism.ID}},
		{name: "search description", filter: course.QueryFilter{Search: "impressionism desc"}, want: []string{impressionism.ID}},
		{
			name:     "most enrolled first",
			filter:   course.QueryFilter{PublishedOnly: true},
			ordering: []core.DBOrdering{{Field: "students_enrolled"}, {Field: "lol"}},
			want:     []string{impressionism.ID, muralism.ID},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sums, err := r.crs.QueryCourses(ctxBg, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(sums))
		})
	}

	t.Run("summary counts", func(t *testing.T) {
		sums, err := r.crs.QueryCourses(ctxBg, course.QueryFilter{TeacherID: frida.ID, Search: "muralism"}, nil)
		require.NoError(t, err)
		require.Len(t, sums, 1)
		assert.Equal(t, "Frida", sums[0].TeacherName)
		assert.Equal(t, 2, sums[0].ArtworksCount)
		assert.Equal(t, 0, sums[0].StudentsEnrolled)
	})

	t.Run("update & delete", func(t *testing.T) {
		draft.Title = "Surrealism 101"
		got, err := r.crs.UpdateCourse(ctxBg, draft)
		require.NoError(t, err)
		assert.Equal(t, "Surrealism 101", got.Title)

		require.NoError(t, r.crs.DeleteCourse(ctxBg, muralism.ID))
		assert.Equal(t, course.ErrNotFound, r.crs.DeleteCourse(ctxBg, muralism.ID))
		arts, err := r.crs.QueryArtworks(ctxBg, muralism.ID)
		require.NoError(t, err)
		assert.Empty(t, arts, "artworks go with the course")

		ghost := draft
		ghost.ID = "lol"
		_, err = r.crs.UpdateCourse(ctxBg, ghost)
		assert.Equal(t, course.ErrNotFound, err)
	})
}

func Test_courseRepository_artworks(t *testing.T) {
	r := setup(t)
	frida := testutil.CreateUser(t, r.usr, "Frida", "frida@test.cd", user.RoleTeacher)
	crs := testutil.CreateCourse(t, r.crs, frida.ID, "Muralism", true)

	base := time.Now().UTC().Add(-time.Hour)
	c := testutil.CreateArtwork(t, r.crs, crs.ID, "C", 1, base.Add(time.Minute))
	b := testutil.CreateArtwork(t, r.crs, crs.ID, "B", 1, base)
	a := testutil.CreateArtwork(t, r.crs, crs.ID, "A", 0, base.Add(2*time.Minute))

	titles := func(t *testing.T) []string {
		t.Helper()
		arts, err := r.crs.QueryArtworks(ctxBg, crs.ID)
		require.NoError(t, err)
		out := make([]string, 0, len(arts))
		for _, art := range arts {
			out = append(out, art.Title)
		}
		return out
	}

	assert.Equal(t, []string{"A", "B", "C"}, titles(t), "by order, then creation time")

	t.Run("lists round trip", func(t *testing.T) {
		a.ExtraImages = []string{"https://img.test/1.png", "https://img.test/2.png"}
		a.PeriodTags = []string{"1930s"}
		a.TypeTags = nil
		got, err := r.crs.UpdateArtwork(ctxBg, a)
		require.NoError(t, err)
		assert.Equal(t, a.ExtraImages, got.ExtraImages)
		assert.Equal(t, []string{"1930s"}, got.PeriodTags)
		assert.Empty(t, got.TypeTags)

		_, err = r.crs.GetArtwork(ctxBg, "lol")
		assert.Equal(t, course.ErrArtworkNotFound, err)
	})

	t.Run("replace", func(t *testing.T) {
		hero := testutil.CreateUser(t, r.usr, "Hero", "hero@test.cd", user.RoleStudent)
		enr, err := r.enr.CreateEnrollment(ctxBg, enrollment.Enrollment{UserID: hero.ID, CourseID: crs.ID, CreatedAt: base, UpdatedAt: base})
		require.NoError(t, err)
		_, err = r.enr.CreateProgress(ctxBg,
			enrollment.ArtworkProgress{UserID: hero.ID, ArtworkID: a.ID, EnrollmentID: enr.ID, CreatedAt: base},
			enrollment.ArtworkProgress{UserID: hero.ID, ArtworkID: b.ID, EnrollmentID: enr.ID, CreatedAt: base},
		)
		require.NoError(t, err)

		require.NoError(t, r.crs.ReplaceArtworks(ctxBg, crs.ID, []string{c.ID, a.ID}))
		assert.Equal(t, []string{"C", "A"}, titles(t))

		_, err = r.enr.GetProgress(ctxBg, hero.ID, b.ID)
		assert.Equal(t, enrollment.ErrProgressNotFound, err, "progress goes with the artwork")
		total, _, err := r.enr.CountProgress(ctxBg, enr.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		require.NoError(t, r.crs.ReplaceArtworks(ctxBg, crs.ID, nil))
		assert.Empty(t, titles(t))
		assert.Equal(t, course.ErrArtworkNotFound, r.crs.DeleteArtwork(ctxBg, a.ID))
	})
}
