package enrollment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sanaa/core"
)

// Percentage returns 100 * completed / total rounded half up, and 0 when there is nothing to complete.
func Percentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*completed + total) / (2 * total)
}

func (svc *service) MarkViewed(ctx context.Context, userID, artworkID string) (ArtworkProgress, error) {
	ctx, span := tracer.Start(ctx, "enrollment.MarkViewed")
	defer span.End()

	p, err := svc.repo.GetProgress(ctx, userID, artworkID)
	if err != nil {
		return ArtworkProgress{}, err
	}
	if p.ViewedAt.Valid {
		return p, nil
	}
	return svc.repo.SetProgressViewed(ctx, p.ID, core.NowFunc())
}

func (svc *service) MarkCompleted(ctx context.Context, userID, artworkID string) (ArtworkProgress, error) {
	ctx, span := tracer.Start(ctx, "enrollment.MarkCompleted")
	defer span.End()

	var (
		p         ArtworkProgress
		enr       Enrollment
		completed bool
	)
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		var err error
		if p, err = repo.GetProgress(ctx, userID, artworkID); err != nil {
			return err
		}
		if p.IsCompleted {
			return nil
		}

		if _, err = repo.LockEnrollment(ctx, p.EnrollmentID); err != nil {
			return errors.Wrap(err, "locking enrollment")
		}
		// the row may have changed while waiting for the lock
		if p, err = repo.GetProgress(ctx, userID, artworkID); err != nil {
			return err
		}

		now := core.NowFunc()
		if !p.MarkCompleted(now) {
			return nil
		}
		if p, err = repo.UpdateProgress(ctx, p); err != nil {
			return errors.Wrap(err, "updating artwork progress")
		}

		enr, completed, err = recompute(ctx, repo, p.EnrollmentID, now)
		return err
	})
	if err != nil {
		return ArtworkProgress{}, err
	}

	if completed {
		svc.notifyCompleted(ctx, enr)
	}
	return p, nil
}

func (svc *service) Recompute(ctx context.Context, enrollmentID string) (Enrollment, error) {
	var (
		enr       Enrollment
		completed bool
	)
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		if _, err := repo.LockEnrollment(ctx, enrollmentID); err != nil {
			return errors.Wrap(err, "locking enrollment")
		}
		var err error
		enr, completed, err = recompute(ctx, repo, enrollmentID, core.NowFunc())
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}

	if completed {
		svc.notifyCompleted(ctx, enr)
	}
	return enr, nil
}

// recompute derives the progress & completion time of an enrollment from its progress rows.
// The enrollment must be locked by the transaction repo is bound to.
// It reports whether the enrollment just became complete.
func recompute(ctx context.Context, repo Repository, enrollmentID string, now time.Time) (Enrollment, bool, error) {
	enr, err := repo.GetEnrollment(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, false, errors.Wrap(err, "getting enrollment")
	}

	total, completed, err := repo.CountProgress(ctx, enrollmentID)
	if err != nil {
		return Enrollment{}, false, errors.Wrap(err, "counting artwork progress")
	}
	if completed < 0 || completed > total {
		return Enrollment{}, false, errors.Errorf("enrollment %s: %d completed artworks out of %d", enrollmentID, completed, total)
	}

	wasComplete := enr.CompletedAt.Valid
	progress := Percentage(completed, total)
	completedAt := enr.CompletedAt
	if progress == 100 {
		if !completedAt.Valid {
			completedAt = null.TimeFrom(now)
		}
	} else {
		completedAt = null.Time{}
	}

	if progress == enr.Progress && completedAt.Valid == wasComplete {
		return enr, false, nil
	}

	enr.Progress = progress
	enr.CompletedAt = completedAt
	enr.UpdatedAt = now
	if enr, err = repo.UpdateEnrollment(ctx, enr); err != nil {
		return Enrollment{}, false, errors.Wrap(err, "updating enrollment")
	}
	return enr, !wasComplete && enr.CompletedAt.Valid, nil
}
