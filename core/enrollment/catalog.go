package enrollment

import (
	"context"
	"fmt"
	"net/mail"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/sanaa/core"
)

// SyncCatalog adds the missing progress rows for addedArtworkIDs to every enrollment of the course,
// then recomputes them. Existing rows are left untouched.
func (svc *service) SyncCatalog(ctx context.Context, courseID string, addedArtworkIDs []string) error {
	ctx, span := tracer.Start(ctx, "enrollment.SyncCatalog")
	defer span.End()

	return svc.syncCourse(ctx, courseID, dedupe(addedArtworkIDs))
}

// RecomputeCourse recomputes every enrollment of the course, after artworks were removed for instance.
func (svc *service) RecomputeCourse(ctx context.Context, courseID string) error {
	ctx, span := tracer.Start(ctx, "enrollment.RecomputeCourse")
	defer span.End()

	return svc.syncCourse(ctx, courseID, nil)
}

func (svc *service) syncCourse(ctx context.Context, courseID string, artworkIDs []string) error {
	var completed []Enrollment
	err := svc.repo.WithinTx(ctx, func(repo Repository) error {
		completed = completed[:0]

		enrs, err := repo.QueryEnrollments(ctx, Filter{CourseID: courseID})
		if err != nil {
			return errors.Wrap(err, "querying enrollments")
		}
		// lock in a consistent order
		sort.Slice(enrs, func(i, j int) bool { return enrs[i].ID < enrs[j].ID })

		now := core.NowFunc()
		for _, enr := range enrs {
			if _, err = repo.LockEnrollment(ctx, enr.ID); err != nil {
				return errors.Wrap(err, "locking enrollment")
			}

			if len(artworkIDs) > 0 {
				rows := make([]ArtworkProgress, 0, len(artworkIDs))
				for _, id := range artworkIDs {
					rows = append(rows, ArtworkProgress{
						UserID:       enr.UserID,
						ArtworkID:    id,
						EnrollmentID: enr.ID,
						CreatedAt:    now,
					})
				}
				if _, err = repo.CreateProgress(ctx, rows...); err != nil {
					return errors.Wrap(err, "creating artwork progress")
				}
			}

			updated, done, err := recompute(ctx, repo, enr.ID, now)
			if err != nil {
				return err
			}
			if done {
				completed = append(completed, updated)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	svc.notifyCompleted(ctx, completed...)
	return nil
}

// notifyCompleted emails the students who just completed a course. Failures are only logged.
func (svc *service) notifyCompleted(ctx context.Context, enrs ...Enrollment) {
	if len(enrs) == 0 {
		return
	}

	msgs := make([]*core.EmailMessage, 0, len(enrs))
	for _, enr := range enrs {
		usr, err := svc.users.GetByID(ctx, enr.UserID)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("course completed email: getting user %s: %v", enr.UserID, err), err)
			continue
		}
		crs, err := svc.catalog.GetCourse(ctx, enr.CourseID)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("course completed email: getting course %s: %v", enr.CourseID, err), err)
			continue
		}

		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      fmt.Sprintf("You completed %q", crs.Title),
			TemplateName: "course_completed",
			TemplateData: map[string]interface{}{
				"Name":        usr.Name,
				"CourseTitle": crs.Title,
				"CourseID":    crs.ID,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
