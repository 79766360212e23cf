package course

import (
	"context"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"go.opentelemetry.io/otel"

	"github.com/trezcool/sanaa/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("course not found")
	ErrArtworkNotFound = core.NewNotFoundError("artwork not found")

	// OrderingFields are the fields courses may be ordered by.
	OrderingFields = map[string]bool{
		"title":             true,
		"created_at":        true,
		"published_at":      true,
		"students_enrolled": true,
	}
	defaultOrdering = []core.DBOrdering{{Field: "published_at", Ascending: false}}

	tracer = otel.Tracer("github.com/trezcool/sanaa/core/course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Summary, error)
		UpdateCourse(ctx context.Context, crs Course, exec ...core.DBExecutor) (Course, error)
		DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateArtwork(ctx context.Context, art Artwork, exec ...core.DBExecutor) (Artwork, error)
		GetArtwork(ctx context.Context, id string, exec ...core.DBExecutor) (Artwork, error)
		// QueryArtworks returns the artworks of a course sorted with SortArtworks.
		QueryArtworks(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]Artwork, error)
		UpdateArtwork(ctx context.Context, art Artwork, exec ...core.DBExecutor) (Artwork, error)
		DeleteArtwork(ctx context.Context, id string, exec ...core.DBExecutor) error
		// ReplaceArtworks atomically sets order = index for every listed artwork and deletes the course's other artworks.
		ReplaceArtworks(ctx context.Context, courseID string, orderedIDs []string) error
	}

	// CatalogSyncer keeps enrollments in step with a course's artworks.
	CatalogSyncer interface {
		SyncCatalog(ctx context.Context, courseID string, addedArtworkIDs []string) error
		RecomputeCourse(ctx context.Context, courseID string) error
	}

	Service interface {
		Create(ctx context.Context, teacherID string, nc NewCourse) (Course, error)
		Get(ctx context.Context, id string) (Course, error)
		// GetVisible returns a published course, or any course owned by userID.
		GetVisible(ctx context.Context, userID, id string) (Course, error)
		GetOwned(ctx context.Context, teacherID, id string) (Course, error)
		Update(ctx context.Context, teacherID, id string, uc UpdateCourse) (Course, error)
		TogglePublished(ctx context.Context, teacherID, id string) (Course, error)
		Delete(ctx context.Context, teacherID, id string) error
		ListPublished(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Summary, error)
		ListByTeacher(ctx context.Context, teacherID string) ([]Summary, error)

		CreateArtwork(ctx context.Context, teacherID, courseID string, na NewArtwork) (Artwork, error)
		GetArtwork(ctx context.Context, userID, id string) (Artwork, error)
		ListArtworks(ctx context.Context, userID, courseID string) ([]Artwork, error)
		UpdateArtwork(ctx context.Context, teacherID, id string, ua UpdateArtwork) (Artwork, error)
		DeleteArtwork(ctx context.Context, teacherID, id string) error
		SetArtworks(ctx context.Context, teacherID, courseID string, sa SetArtworks) ([]Artwork, error)
	}

	service struct {
		repo   Repository
		syncer CatalogSyncer
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, syncer CatalogSyncer) Service {
	return &service{repo: repo, syncer: syncer}
}

func (svc *service) Create(ctx context.Context, teacherID string, nc NewCourse) (Course, error) {
	ctx, span := tracer.Start(ctx, "course.Create")
	defer span.End()

	now := core.NowFunc()
	crs := Course{
		TeacherID:   teacherID,
		Title:       nc.Title,
		Description: nc.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) Get(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) GetVisible(ctx context.Context, userID, id string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if !crs.IsPublished && crs.TeacherID != userID {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

func (svc *service) GetOwned(ctx context.Context, teacherID, id string) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if crs.TeacherID != teacherID {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

func (svc *service) Update(ctx context.Context, teacherID, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.GetOwned(ctx, teacherID, id)
	if err != nil {
		return Course{}, err
	}
	if uc.Title != nil {
		crs.Title = *uc.Title
	}
	if uc.Description != nil {
		crs.Description = *uc.Description
	}
	crs.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) TogglePublished(ctx context.Context, teacherID, id string) (Course, error) {
	ctx, span := tracer.Start(ctx, "course.TogglePublished")
	defer span.End()

	crs, err := svc.GetOwned(ctx, teacherID, id)
	if err != nil {
		return Course{}, err
	}
	now := core.NowFunc()
	crs.IsPublished = !crs.IsPublished
	if crs.IsPublished {
		crs.PublishedAt = null.TimeFrom(now)
	} else {
		crs.PublishedAt = null.Time{}
	}
	crs.UpdatedAt = now
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, teacherID, id string) error {
	if _, err := svc.GetOwned(ctx, teacherID, id); err != nil {
		return err
	}
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *service) ListPublished(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Summary, error) {
	filter.PublishedOnly = true
	filter.TeacherID = ""

	var allowed []core.DBOrdering
	for _, ord := range ordering {
		if OrderingFields[ord.Field] {
			allowed = append(allowed, ord)
		}
	}
	if len(allowed) == 0 {
		allowed = defaultOrdering
	}
	return svc.repo.QueryCourses(ctx, filter, allowed)
}

func (svc *service) ListByTeacher(ctx context.Context, teacherID string) ([]Summary, error) {
	return svc.repo.QueryCourses(
		ctx,
		QueryFilter{TeacherID: teacherID},
		[]core.DBOrdering{{Field: "created_at", Ascending: false}},
	)
}

func (svc *service) CreateArtwork(ctx context.Context, teacherID, courseID string, na NewArtwork) (Artwork, error) {
	ctx, span := tracer.Start(ctx, "course.CreateArtwork")
	defer span.End()

	if _, err := svc.GetOwned(ctx, teacherID, courseID); err != nil {
		return Artwork{}, err
	}

	order := 0
	if na.Order != nil {
		order = *na.Order
	} else {
		arts, err := svc.repo.QueryArtworks(ctx, courseID)
		if err != nil {
			return Artwork{}, errors.Wrap(err, "querying artworks")
		}
		for _, a := range arts {
			if a.Order >= order {
				order = a.Order + 1
			}
		}
	}

	now := core.NowFunc()
	art, err := svc.repo.CreateArtwork(ctx, Artwork{
		CourseID:    courseID,
		Title:       na.Title,
		Description: na.Description,
		Author:      na.Author,
		Collocation: na.Collocation,
		Link:        na.Link,
		CoverImage:  na.CoverImage,
		ExtraImages: na.ExtraImages,
		PeriodTags:  na.PeriodTags,
		TypeTags:    na.TypeTags,
		Order:       order,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Artwork{}, errors.Wrap(err, "creating artwork")
	}

	if err := svc.syncer.SyncCatalog(ctx, courseID, []string{art.ID}); err != nil {
		return Artwork{}, errors.Wrap(err, "syncing catalog")
	}
	return art, nil
}

// getArtwork returns the artwork if its course is visible to userID, or owned by it when owned is set.
func (svc *service) getArtwork(ctx context.Context, userID, id string, owned bool) (Artwork, error) {
	art, err := svc.repo.GetArtwork(ctx, id)
	if err != nil {
		return Artwork{}, err
	}
	if owned {
		_, err = svc.GetOwned(ctx, userID, art.CourseID)
	} else {
		_, err = svc.GetVisible(ctx, userID, art.CourseID)
	}
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Artwork{}, ErrArtworkNotFound
		}
		return Artwork{}, err
	}
	return art, nil
}

func (svc *service) GetArtwork(ctx context.Context, userID, id string) (Artwork, error) {
	return svc.getArtwork(ctx, userID, id, false)
}

func (svc *service) ListArtworks(ctx context.Context, userID, courseID string) ([]Artwork, error) {
	if _, err := svc.GetVisible(ctx, userID, courseID); err != nil {
		return nil, err
	}
	return svc.repo.QueryArtworks(ctx, courseID)
}

func (svc *service) UpdateArtwork(ctx context.Context, teacherID, id string, ua UpdateArtwork) (Artwork, error) {
	art, err := svc.getArtwork(ctx, teacherID, id, true)
	if err != nil {
		return Artwork{}, err
	}
	ua.apply(&art)
	art.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateArtwork(ctx, art)
}

func (svc *service) DeleteArtwork(ctx context.Context, teacherID, id string) error {
	ctx, span := tracer.Start(ctx, "course.DeleteArtwork")
	defer span.End()

	art, err := svc.getArtwork(ctx, teacherID, id, true)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteArtwork(ctx, art.ID); err != nil {
		return errors.Wrap(err, "deleting artwork")
	}
	return errors.Wrap(svc.syncer.RecomputeCourse(ctx, art.CourseID), "recomputing enrollments")
}

func (svc *service) SetArtworks(ctx context.Context, teacherID, courseID string, sa SetArtworks) ([]Artwork, error) {
	ctx, span := tracer.Start(ctx, "course.SetArtworks")
	defer span.End()

	if _, err := svc.GetOwned(ctx, teacherID, courseID); err != nil {
		return nil, err
	}

	current, err := svc.repo.QueryArtworks(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying artworks")
	}
	members := make(map[string]bool, len(current))
	for _, art := range current {
		members[art.ID] = true
	}
	for _, id := range sa.ArtworkIDs {
		if !members[id] {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "artwork_ids", Error: "artwork not in course: " + id})
		}
	}

	if err := svc.repo.ReplaceArtworks(ctx, courseID, sa.ArtworkIDs); err != nil {
		return nil, errors.Wrap(err, "replacing artworks")
	}

	// SyncCatalog is idempotent and recomputes every enrollment of the course afterwards,
	// so removed artworks are reflected too.
	if err := svc.syncer.SyncCatalog(ctx, courseID, sa.ArtworkIDs); err != nil {
		return nil, errors.Wrap(err, "syncing catalog")
	}
	return svc.repo.QueryArtworks(ctx, courseID)
}
