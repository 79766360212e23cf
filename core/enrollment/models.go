package enrollment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sanaa/core/course"
)

type (
	Enrollment struct {
		ID          string    `json:"id"`
		UserID      string    `json:"user_id"`
		CourseID    string    `json:"course_id"`
		Progress    int       `json:"progress"`
		CompletedAt null.Time `json:"completed_at"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	// ArtworkProgress is the progress of an enrollment on one artwork of the course.
	ArtworkProgress struct {
		ID           string    `json:"id"`
		UserID       string    `json:"user_id"`
		ArtworkID    string    `json:"artwork_id"`
		EnrollmentID string    `json:"enrollment_id"`
		IsCompleted  bool      `json:"is_completed"`
		ViewedAt     null.Time `json:"viewed_at"`
		CompletedAt  null.Time `json:"completed_at"`
		CreatedAt    time.Time `json:"created_at"`
	}

	// Summary is an enrollment as listed on the student's dashboard.
	Summary struct {
		Enrollment
		Course        course.Course `json:"course"`
		TeacherName   string        `json:"teacher_name"`
		ArtworksCount int           `json:"artworks_count"`
		FirstArtwork  *ArtworkView  `json:"first_artwork"`
	}

	// CourseProgress is an enrollment along with the resolved state of every artwork of its course.
	CourseProgress struct {
		Enrollment Enrollment    `json:"enrollment"`
		Artworks   []ArtworkView `json:"artworks"`
	}

	NewEnrollment struct {
		CourseID string `json:"course_id" validate:"required,notblank"`
	}

	Filter struct {
		UserID   string
		CourseID string
	}
)

// IsComplete reports whether every artwork of the course was completed.
func (enr Enrollment) IsComplete() bool {
	return enr.Progress == 100
}

// MarkViewed records the first view. It reports whether the row changed.
func (p *ArtworkProgress) MarkViewed(at time.Time) bool {
	if p.ViewedAt.Valid {
		return false
	}
	p.ViewedAt = null.TimeFrom(at)
	return true
}

// MarkCompleted completes the artwork, viewing it too if need be. It reports whether the row changed.
func (p *ArtworkProgress) MarkCompleted(at time.Time) bool {
	if p.IsCompleted {
		return false
	}
	p.IsCompleted = true
	p.CompletedAt = null.TimeFrom(at)
	p.MarkViewed(at)
	return true
}
