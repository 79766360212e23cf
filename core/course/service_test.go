package course_test

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/user"
	dummydb "github.com/trezcool/sanaa/storage/database/dummy"
	"github.com/trezcool/sanaa/testutil"
)

var ctxBg = context.Background()

type syncCall struct {
	courseID   string
	artworkIDs []string // nil for a recompute
}

// recordingSyncer records the catalog changes it is told about.
type recordingSyncer struct {
	mu    sync.Mutex
	calls []syncCall
	err   error
}

func (s *recordingSyncer) SyncCatalog(_ context.Context, courseID string, addedArtworkIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, syncCall{courseID: courseID, artworkIDs: addedArtworkIDs})
	return s.err
}

func (s *recordingSyncer) RecomputeCourse(_ context.Context, courseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, syncCall{courseID: courseID})
	return s.err
}

func (s *recordingSyncer) last() syncCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[len(s.calls)-1]
}

type testEnv struct {
	svc     course.Service
	repo    course.Repository
	syncer  *recordingSyncer
	teacher user.User
	other   user.User
}

func setup(t *testing.T) testEnv {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)
	env := testEnv{
		repo:   dummydb.NewCourseRepository(db),
		syncer: &recordingSyncer{},
	}
	env.svc = course.NewService(env.repo, env.syncer)
	env.teacher = testutil.CreateUser(t, usrRepo, "Frida", "frida@test.cd", user.RoleTeacher)
	env.other = testutil.CreateUser(t, usrRepo, "Claude", "claude@test.cd", user.RoleTeacher)
	return env
}

func Test_service_courses(t *testing.T) {
	env := setup(t)

	crs, err := env.svc.Create(ctxBg, env.teacher.ID, course.NewCourse{Title: "Muralism", Description: "Walls"})
	require.NoError(t, err)
	assert.Equal(t, env.teacher.ID, crs.TeacherID)
	assert.False(t, crs.IsPublished, "courses start as drafts")
	assert.False(t, crs.PublishedAt.Valid)

	t.Run("drafts are hidden", func(t *testing.T) {
		_, err := env.svc.GetVisible(ctxBg, "", crs.ID)
		assert.Equal(t, course.ErrNotFound, err)
		_, err = env.svc.GetVisible(ctxBg, env.other.ID, crs.ID)
		assert.Equal(t, course.ErrNotFound, err)
		got, err := env.svc.GetVisible(ctxBg, env.teacher.ID, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, crs.ID, got.ID)

		sums, err := env.svc.ListPublished(ctxBg, course.QueryFilter{}, nil)
		require.NoError(t, err)
		assert.Empty(t, sums)
	})

	t.Run("only the owner modifies", func(t *testing.T) {
		title := "Stolen"
		_, err := env.svc.Update(ctxBg, env.other.ID, crs.ID, course.UpdateCourse{Title: &title})
		assert.Equal(t, course.ErrNotFound, err)
		_, err = env.svc.TogglePublished(ctxBg, env.other.ID, crs.ID)
		assert.Equal(t, course.ErrNotFound, err)
		assert.Equal(t, course.ErrNotFound, env.svc.Delete(ctxBg, env.other.ID, crs.ID))
	})

	t.Run("update", func(t *testing.T) {
		title := "Mexican Muralism"
		got, err := env.svc.Update(ctxBg, env.teacher.ID, crs.ID, course.UpdateCourse{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, title, got.Title)
		assert.Equal(t, "Walls", got.Description, "nil fields are left as is")
	})

	t.Run("publish toggle", func(t *testing.T) {
		got, err := env.svc.TogglePublished(ctxBg, env.teacher.ID, crs.ID)
		require.NoError(t, err)
		assert.True(t, got.IsPublished)
		assert.True(t, got.PublishedAt.Valid)

		sums, err := env.svc.ListPublished(ctxBg, course.QueryFilter{TeacherID: env.other.ID}, []core.DBOrdering{{Field: "lol"}})
		require.NoError(t, err)
		require.Len(t, sums, 1, "teacher filter is ignored for the public listing")
		assert.Equal(t, crs.ID, sums[0].ID)

		got, err = env.svc.TogglePublished(ctxBg, env.teacher.ID, crs.ID)
		require.NoError(t, err)
		assert.False(t, got.IsPublished)
		assert.False(t, got.PublishedAt.Valid)
	})

	t.Run("list by teacher", func(t *testing.T) {
		sums, err := env.svc.ListByTeacher(ctxBg, env.teacher.ID)
		require.NoError(t, err)
		require.Len(t, sums, 1)
		sums, err = env.svc.ListByTeacher(ctxBg, env.other.ID)
		require.NoError(t, err)
		assert.Empty(t, sums)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, env.svc.Delete(ctxBg, env.teacher.ID, crs.ID))
		_, err := env.svc.Get(ctxBg, crs.ID)
		assert.Equal(t, course.ErrNotFound, err)
	})
}

func Test_service_artworks(t *testing.T) {
	env := setup(t)
	crs := testutil.CreateCourse(t, env.repo, env.teacher.ID, "Muralism", true)
	draft := testutil.CreateCourse(t, env.repo, env.teacher.ID, "Draft", false)

	create := func(t *testing.T, title string, order ...int) course.Artwork {
		t.Helper()
		na := course.NewArtwork{Title: title}
		if len(order) > 0 {
			na.Order = &order[0]
		}
		art, err := env.svc.CreateArtwork(ctxBg, env.teacher.ID, crs.ID, na)
		require.NoError(t, err)
		return art
	}

	a := create(t, "A")
	b := create(t, "B")
	assert.Equal(t, 0, a.Order)
	assert.Equal(t, 1, b.Order, "appended by default")
	assert.Equal(t, syncCall{courseID: crs.ID, artworkIDs: []string{b.ID}}, env.syncer.last())
	c := create(t, "C", 7)
	assert.Equal(t, 7, c.Order)
	assert.Equal(t, 8, create(t, "D").Order)

	t.Run("owner only", func(t *testing.T) {
		_, err := env.svc.CreateArtwork(ctxBg, env.other.ID, crs.ID, course.NewArtwork{Title: "X"})
		assert.Equal(t, course.ErrNotFound, err)
		_, err = env.svc.UpdateArtwork(ctxBg, env.other.ID, a.ID, course.UpdateArtwork{})
		assert.Equal(t, course.ErrArtworkNotFound, err)
		assert.Equal(t, course.ErrArtworkNotFound, env.svc.DeleteArtwork(ctxBg, env.other.ID, a.ID))
	})

	t.Run("visibility", func(t *testing.T) {
		got, err := env.svc.GetArtwork(ctxBg, "", a.ID)
		require.NoError(t, err)
		assert.Equal(t, "A", got.Title)

		hidden := testutil.CreateArtwork(t, env.repo, draft.ID, "Hidden", 0)
		_, err = env.svc.GetArtwork(ctxBg, env.other.ID, hidden.ID)
		assert.Equal(t, course.ErrArtworkNotFound, err)
		_, err = env.svc.ListArtworks(ctxBg, "", draft.ID)
		assert.Equal(t, course.ErrNotFound, err)

		arts, err := env.svc.ListArtworks(ctxBg, "", crs.ID)
		require.NoError(t, err)
		assert.Len(t, arts, 4)
	})

	t.Run("update", func(t *testing.T) {
		author := "Diego Rivera"
		got, err := env.svc.UpdateArtwork(ctxBg, env.teacher.ID, a.ID, course.UpdateArtwork{Author: &author, TypeTags: []string{"fresco"}})
		require.NoError(t, err)
		assert.Equal(t, "A", got.Title)
		assert.Equal(t, author, got.Author)
		assert.Equal(t, []string{"fresco"}, got.TypeTags)
	})

	t.Run("set artworks", func(t *testing.T) {
		arts, err := env.svc.ListArtworks(ctxBg, env.teacher.ID, crs.ID)
		require.NoError(t, err)
		d := arts[3]

		_, err = env.svc.SetArtworks(ctxBg, env.teacher.ID, crs.ID, course.SetArtworks{ArtworkIDs: []string{a.ID, "lol"}})
		assert.IsType(t, &core.ValidationError{}, errors.Cause(err))

		got, err := env.svc.SetArtworks(ctxBg, env.teacher.ID, crs.ID, course.SetArtworks{ArtworkIDs: []string{c.ID, a.ID, b.ID}})
		require.NoError(t, err)
		var ids []string
		for i, art := range got {
			ids = append(ids, art.ID)
			assert.Equal(t, i, art.Order)
		}
		assert.Equal(t, []string{c.ID, a.ID, b.ID}, ids)
		assert.Equal(t, syncCall{courseID: crs.ID, artworkIDs: []string{c.ID, a.ID, b.ID}}, env.syncer.last())

		_, err = env.repo.GetArtwork(ctxBg, d.ID)
		assert.Equal(t, course.ErrArtworkNotFound, err, "unlisted artworks are removed")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, env.svc.DeleteArtwork(ctxBg, env.teacher.ID, b.ID))
		assert.Equal(t, syncCall{courseID: crs.ID}, env.syncer.last())
		_, err := env.svc.GetArtwork(ctxBg, env.teacher.ID, b.ID)
		assert.Equal(t, course.ErrArtworkNotFound, err)
	})

	t.Run("sync failure", func(t *testing.T) {
		env.syncer.err = errors.New("boom")
		_, err := env.svc.CreateArtwork(ctxBg, env.teacher.ID, crs.ID, course.NewArtwork{Title: "E"})
		assert.EqualError(t, err, "syncing catalog: boom")
	})
}

func TestSortArtworks(t *testing.T) {
	arts := []course.Artwork{
		{ID: "3", Order: 1},
		{ID: "2", Order: 1},
		{ID: "1", Order: 2},
		{ID: "0", Order: 0},
	}
	course.SortArtworks(arts)
	var ids []string
	for _, art := range arts {
		ids = append(ids, art.ID)
	}
	assert.Equal(t, []string{"0", "2", "3", "1"}, ids)
}
