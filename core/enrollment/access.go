package enrollment

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sanaa/core/course"
)

// Status is the label shown for an artwork of an enrolled course.
type Status string

const (
	StatusCompleted  Status = "Completed"
	StatusInProgress Status = "In Progress"
	StatusNotStarted Status = "Not Started"
)

type (
	// ArtworkView is an artwork as seen by an enrolled student.
	ArtworkView struct {
		course.Artwork
		IsCompleted bool      `json:"is_completed"`
		ViewedAt    null.Time `json:"viewed_at"`
		CompletedAt null.Time `json:"completed_at"`
		Status      Status    `json:"status"`
		Accessible  bool      `json:"accessible"`
	}

	// Access is the outcome of Resolve.
	Access struct {
		Items      []ArtworkView
		accessible map[string]bool
	}
)

// Resolve computes which artworks a student may open, following the sequential unlock policy:
// the first artwork, every completed artwork, the one right after the furthest completion and
// every artwork already viewed are open. Everything else is locked.
//
// progress is keyed by artwork ID. Artworks without progress count as not started.
// Resolve does not modify its arguments.
func Resolve(artworks []course.Artwork, progress map[string]ArtworkProgress) Access {
	sorted := make([]course.Artwork, len(artworks))
	copy(sorted, artworks)
	course.SortArtworks(sorted)

	lastCompleted := -1
	for i, art := range sorted {
		if progress[art.ID].IsCompleted {
			lastCompleted = i
		}
	}

	acc := Access{
		Items:      make([]ArtworkView, 0, len(sorted)),
		accessible: make(map[string]bool, len(sorted)),
	}
	for i, art := range sorted {
		p := progress[art.ID] // zero value when missing
		open := i == 0 || p.IsCompleted || i == lastCompleted+1 || p.ViewedAt.Valid

		status := StatusNotStarted
		switch {
		case p.IsCompleted:
			status = StatusCompleted
		case open:
			status = StatusInProgress
		}

		if open {
			acc.accessible[art.ID] = true
		}
		acc.Items = append(acc.Items, ArtworkView{
			Artwork:     art,
			IsCompleted: p.IsCompleted,
			ViewedAt:    p.ViewedAt,
			CompletedAt: p.CompletedAt,
			Status:      status,
			Accessible:  open,
		})
	}
	return acc
}

// CanOpen reports whether the artwork is accessible.
func (acc Access) CanOpen(artworkID string) bool {
	return acc.accessible[artworkID]
}

// AccessibleIDs returns the accessible artwork IDs in course order.
func (acc Access) AccessibleIDs() []string {
	ids := make([]string, 0, len(acc.accessible))
	for _, item := range acc.Items {
		if item.Accessible {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// ProgressByArtwork indexes progress rows by artwork ID.
func ProgressByArtwork(rows []ArtworkProgress) map[string]ArtworkProgress {
	m := make(map[string]ArtworkProgress, len(rows))
	for _, p := range rows {
		m[p.ArtworkID] = p
	}
	return m
}
