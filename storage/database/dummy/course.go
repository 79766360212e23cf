package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	if crs.ID == "" {
		crs.ID = newID()
	}
	repo.db.course.table[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()

	if crs, ok := repo.db.course.table[id]; ok {
		return crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]course.Summary, error) {
	repo.db.user.RLock()
	defer repo.db.user.RUnlock()
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()
	repo.db.artwork.RLock()
	defer repo.db.artwork.RUnlock()
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	artworks := make(map[string]int)
	for _, art := range repo.db.artwork.table {
		artworks[art.CourseID]++
	}
	students := make(map[string]int)
	for _, enr := range repo.db.enrollment.table {
		students[enr.CourseID]++
	}

	search := strings.ToLower(filter.Search)
	summaries := make([]course.Summary, 0)
	for _, crs := range repo.db.course.table {
		if filter.PublishedOnly && !crs.IsPublished {
			continue
		}
		if filter.TeacherID != "" && crs.TeacherID != filter.TeacherID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(crs.Title), search) &&
			!strings.Contains(strings.ToLower(crs.Description), search) {
			continue
		}
		summaries = append(summaries, course.Summary{
			Course:           crs,
			TeacherName:      repo.db.user.table[crs.TeacherID].Name,
			ArtworksCount:    artworks[crs.ID],
			StudentsEnrolled: students[crs.ID],
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		for _, ord := range ordering {
			c := compareSummaries(a, b, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return a.ID < b.ID
	})
	return summaries, nil
}

func compareSummaries(a, b course.Summary, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "published_at":
		return a.PublishedAt.Time.Compare(b.PublishedAt.Time)
	case "students_enrolled":
		return a.StudentsEnrolled - b.StudentsEnrolled
	}
	return 0
}

func (repo *courseRepository) UpdateCourse(_ context.Context, crs course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.course.Lock()
	defer repo.db.course.Unlock()

	orig, ok := repo.db.course.table[crs.ID]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	crs.TeacherID = orig.TeacherID
	crs.CreatedAt = orig.CreatedAt
	repo.db.course.table[crs.ID] = crs
	return crs, nil
}

func (repo *courseRepository) DeleteCourse(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.txMu.Lock()
	defer repo.db.txMu.Unlock()
	repo.db.course.Lock()
	defer repo.db.course.Unlock()
	repo.db.artwork.Lock()
	defer repo.db.artwork.Unlock()
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	if _, ok := repo.db.course.table[id]; !ok {
		return course.ErrNotFound
	}
	delete(repo.db.course.table, id)

	artworks := make(map[string]bool)
	for _, art := range repo.db.artwork.table {
		if art.CourseID == id {
			artworks[art.ID] = true
		}
	}
	repo.db.deleteArtworks(artworks)

	enrs := make(map[string]bool)
	for _, enr := range repo.db.enrollment.table {
		if enr.CourseID == id {
			enrs[enr.ID] = true
		}
	}
	repo.db.deleteEnrollments(enrs)
	return nil
}

func (repo *courseRepository) CreateArtwork(_ context.Context, art course.Artwork, _ ...core.DBExecutor) (course.Artwork, error) {
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()
	repo.db.artwork.Lock()
	defer repo.db.artwork.Unlock()

	if _, ok := repo.db.course.table[art.CourseID]; !ok {
		return course.Artwork{}, course.ErrNotFound
	}
	if art.ID == "" {
		art.ID = newID()
	}
	art = copyArtwork(art)
	repo.db.artwork.table[art.ID] = art
	return copyArtwork(art), nil
}

func (repo *courseRepository) GetArtwork(_ context.Context, id string, _ ...core.DBExecutor) (course.Artwork, error) {
	repo.db.artwork.RLock()
	defer repo.db.artwork.RUnlock()

	if art, ok := repo.db.artwork.table[id]; ok {
		return copyArtwork(art), nil
	}
	return course.Artwork{}, course.ErrArtworkNotFound
}

func (repo *courseRepository) QueryArtworks(_ context.Context, courseID string, _ ...core.DBExecutor) ([]course.Artwork, error) {
	repo.db.artwork.RLock()
	defer repo.db.artwork.RUnlock()

	artworks := make([]course.Artwork, 0)
	for _, art := range repo.db.artwork.table {
		if art.CourseID == courseID {
			artworks = append(artworks, copyArtwork(art))
		}
	}
	course.SortArtworks(artworks)
	return artworks, nil
}

func (repo *courseRepository) UpdateArtwork(_ context.Context, art course.Artwork, _ ...core.DBExecutor) (course.Artwork, error) {
	repo.db.artwork.Lock()
	defer repo.db.artwork.Unlock()

	orig, ok := repo.db.artwork.table[art.ID]
	if !ok {
		return course.Artwork{}, course.ErrArtworkNotFound
	}
	art.CourseID = orig.CourseID
	art.CreatedAt = orig.CreatedAt
	art = copyArtwork(art)
	repo.db.artwork.table[art.ID] = art
	return copyArtwork(art), nil
}

func (repo *courseRepository) DeleteArtwork(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.txMu.Lock()
	defer repo.db.txMu.Unlock()
	repo.db.artwork.Lock()
	defer repo.db.artwork.Unlock()

	if _, ok := repo.db.artwork.table[id]; !ok {
		return course.ErrArtworkNotFound
	}
	repo.db.deleteArtworks(map[string]bool{id: true})
	return nil
}

func (repo *courseRepository) ReplaceArtworks(_ context.Context, courseID string, orderedIDs []string) error {
	repo.db.txMu.Lock()
	defer repo.db.txMu.Unlock()
	repo.db.artwork.Lock()
	defer repo.db.artwork.Unlock()

	listed := make(map[string]int, len(orderedIDs))
	for i, id := range orderedIDs {
		listed[id] = i
	}

	now := core.NowFunc()
	removed := make(map[string]bool)
	for id, art := range repo.db.artwork.table {
		if art.CourseID != courseID {
			continue
		}
		if order, ok := listed[id]; ok {
			art.Order = order
			art.UpdatedAt = now
			repo.db.artwork.table[id] = art
		} else {
			removed[id] = true
		}
	}
	repo.db.deleteArtworks(removed)
	return nil
}

func copyArtwork(art course.Artwork) course.Artwork {
	art.ExtraImages = copyStrings(art.ExtraImages)
	art.PeriodTags = copyStrings(art.PeriodTags)
	art.TypeTags = copyStrings(art.TypeTags)
	return art
}
