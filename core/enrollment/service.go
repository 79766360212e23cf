package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/user"
)

var (
	// errors
	ErrCourseNotFound   = core.NewNotFoundError("course not found")
	ErrNotEnrolled      = core.NewNotFoundError("not enrolled in this course")
	ErrProgressNotFound = core.NewNotFoundError("artwork progress not found")
	ErrAlreadyEnrolled  = core.NewConflictError("already enrolled in this course")

	tracer = otel.Tracer("github.com/trezcool/sanaa/core/enrollment")
)

type (
	// Repository persists enrollments and their artwork progress.
	// Inserting a progress row that already exists for its (enrollment, artwork) pair is a no-op.
	Repository interface {
		// WithinTx runs fn in a transaction, with a repository bound to it. fn's error rolls it back.
		WithinTx(ctx context.Context, fn func(repo Repository) error) error

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		GetUserEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter Filter) ([]Enrollment, error)
		// LockEnrollment locks the enrollment until the end of the transaction.
		LockEnrollment(ctx context.Context, id string) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		DeleteEnrollment(ctx context.Context, id string) error

		// CreateProgress inserts rows and returns how many were actually inserted.
		CreateProgress(ctx context.Context, rows ...ArtworkProgress) (int, error)
		GetProgress(ctx context.Context, userID, artworkID string) (ArtworkProgress, error)
		QueryProgress(ctx context.Context, enrollmentID string) ([]ArtworkProgress, error)
		UpdateProgress(ctx context.Context, p ArtworkProgress) (ArtworkProgress, error)
		// SetProgressViewed sets viewed_at unless it is already set and returns the stored row.
		SetProgressViewed(ctx context.Context, id string, at time.Time) (ArtworkProgress, error)
		// CountProgress counts the progress rows of an enrollment, and the completed ones, in a single query.
		CountProgress(ctx context.Context, enrollmentID string) (total, completed int, err error)
	}

	// Catalog is the read side of the course catalogue. It is satisfied by course.Repository.
	Catalog interface {
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error)
		QueryArtworks(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Artwork, error)
	}

	// Users is satisfied by user.Service.
	Users interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service interface {
		Enroll(ctx context.Context, userID, courseID string) (Enrollment, error)
		Unenroll(ctx context.Context, userID, courseID string) error
		ListForUser(ctx context.Context, userID string) ([]Summary, error)
		CourseProgress(ctx context.Context, userID, courseID string) (CourseProgress, error)

		MarkViewed(ctx context.Context, userID, artworkID string) (ArtworkProgress, error)
		MarkCompleted(ctx context.Context, userID, artworkID string) (ArtworkProgress, error)
		Recompute(ctx context.Context, enrollmentID string) (Enrollment, error)

		SyncCatalog(ctx context.Context, courseID string, addedArtworkIDs []string) error
		RecomputeCourse(ctx context.Context, courseID string) error
	}

	service struct {
		repo    Repository
		catalog Catalog
		users   Users
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var (
	_ Service              = (*service)(nil) // interface compliance check
	_ course.CatalogSyncer = (*service)(nil)
)

func NewService(repo Repository, catalog Catalog, users Users, mailSvc core.EmailService, logger core.Logger) Service {
	return &service{
		repo:    repo,
		catalog: catalog,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

func (svc *service) Enroll(ctx context.Context, userID, courseID string) (Enrollment, error) {
	ctx, span := tracer.Start(ctx, "enrollment.Enroll")
	defer span.End()

	crs, err := svc.catalog.GetCourse(ctx, courseID)
	if err != nil {
		if core.IsNotFound(err) {
			return Enrollment{}, ErrCourseNotFound
		}
		return Enrollment{}, errors.Wrap(err, "getting course")
	}
	if !crs.IsPublished {
		return Enrollment{}, ErrCourseNotFound
	}

	artworks, err := svc.catalog.QueryArtworks(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "querying artworks")
	}

	now := core.NowFunc()
	var enr Enrollment
	err = svc.repo.WithinTx(ctx, func(repo Repository) error {
		var err error
		enr, err = repo.CreateEnrollment(ctx, Enrollment{
			UserID:    userID,
			CourseID:  courseID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return errors.Wrap(err, "creating enrollment")
		}

		if _, err = repo.CreateProgress(ctx, progressRows(enr, artworks, now)...); err != nil {
			return errors.Wrap(err, "seeding artwork progress")
		}
		return nil
	})
	if err != nil {
		return Enrollment{}, err
	}

	// A sync running before the commit could not see the enrollment: seed what it missed.
	return svc.seedMissing(ctx, enr)
}

// seedMissing adds the progress rows of artworks created after the enrollment read the catalog,
// recomputing the enrollment when any row was inserted.
func (svc *service) seedMissing(ctx context.Context, enr Enrollment) (Enrollment, error) {
	artworks, err := svc.catalog.QueryArtworks(ctx, enr.CourseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "querying artworks")
	}

	var done bool
	err = svc.repo.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.LockEnrollment(ctx, enr.ID); err != nil {
			return errors.Wrap(err, "locking enrollment")
		}

		now := core.NowFunc()
		n, err := repo.CreateProgress(ctx, progressRows(enr, artworks, now)...)
		if err != nil {
			return errors.Wrap(err, "seeding artwork progress")
		}
		if n == 0 {
			return nil
		}
		enr, done, err = recompute(ctx, repo, enr.ID, now)
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	if done {
		svc.notifyCompleted(ctx, enr)
	}
	return enr, nil
}

func progressRows(enr Enrollment, artworks []course.Artwork, now time.Time) []ArtworkProgress {
	rows := make([]ArtworkProgress, 0, len(artworks))
	for _, art := range artworks {
		rows = append(rows, ArtworkProgress{
			UserID:       enr.UserID,
			ArtworkID:    art.ID,
			EnrollmentID: enr.ID,
			CreatedAt:    now,
		})
	}
	return rows
}

func (svc *service) Unenroll(ctx context.Context, userID, courseID string) error {
	enr, err := svc.repo.GetUserEnrollment(ctx, userID, courseID)
	if err != nil {
		return err
	}
	return svc.repo.DeleteEnrollment(ctx, enr.ID)
}

func (svc *service) ListForUser(ctx context.Context, userID string) ([]Summary, error) {
	ctx, span := tracer.Start(ctx, "enrollment.ListForUser")
	defer span.End()

	enrs, err := svc.repo.QueryEnrollments(ctx, Filter{UserID: userID})
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}

	teacherNames := make(map[string]string)
	summaries := make([]Summary, 0, len(enrs))
	for _, enr := range enrs {
		crs, err := svc.catalog.GetCourse(ctx, enr.CourseID)
		if err != nil {
			return nil, errors.Wrap(err, "getting course")
		}

		name, ok := teacherNames[crs.TeacherID]
		if !ok {
			teacher, err := svc.users.GetByID(ctx, crs.TeacherID)
			if err != nil && !core.IsNotFound(err) {
				return nil, errors.Wrap(err, "getting teacher")
			}
			name = teacher.Name
			teacherNames[crs.TeacherID] = name
		}

		acc, err := svc.resolve(ctx, enr)
		if err != nil {
			return nil, err
		}

		sum := Summary{
			Enrollment:    enr,
			Course:        crs,
			TeacherName:   name,
			ArtworksCount: len(acc.Items),
		}
		if len(acc.Items) > 0 {
			first := acc.Items[0]
			sum.FirstArtwork = &first
		}
		summaries = append(summaries, sum)
	}
	return summaries, nil
}

func (svc *service) CourseProgress(ctx context.Context, userID, courseID string) (CourseProgress, error) {
	ctx, span := tracer.Start(ctx, "enrollment.CourseProgress")
	defer span.End()

	enr, err := svc.repo.GetUserEnrollment(ctx, userID, courseID)
	if err != nil {
		return CourseProgress{}, err
	}
	acc, err := svc.resolve(ctx, enr)
	if err != nil {
		return CourseProgress{}, err
	}
	return CourseProgress{Enrollment: enr, Artworks: acc.Items}, nil
}

// resolve fetches the course artworks & the enrollment progress and resolves them.
func (svc *service) resolve(ctx context.Context, enr Enrollment) (Access, error) {
	artworks, err := svc.catalog.QueryArtworks(ctx, enr.CourseID)
	if err != nil {
		return Access{}, errors.Wrap(err, "querying artworks")
	}
	rows, err := svc.repo.QueryProgress(ctx, enr.ID)
	if err != nil {
		return Access{}, errors.Wrap(err, "querying progress")
	}
	return Resolve(artworks, ProgressByArtwork(rows)), nil
}
