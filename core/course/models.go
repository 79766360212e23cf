package course

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sanaa/core"
)

type Course struct {
	ID          string    `json:"id"`
	TeacherID   string    `json:"teacher_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsPublished bool      `json:"is_published"`
	PublishedAt null.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary is a Course as listed in the catalogue.
type Summary struct {
	Course
	TeacherName      string `json:"teacher_name"`
	ArtworksCount    int    `json:"artworks_count"`
	StudentsEnrolled int    `json:"students_enrolled"`
}

type Artwork struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author"`
	Collocation string    `json:"collocation"`
	Link        string    `json:"link"`
	CoverImage  string    `json:"cover_image"`
	ExtraImages []string  `json:"extra_images"`
	PeriodTags  []string  `json:"period_tags"`
	TypeTags    []string  `json:"type_tags"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SortArtworks sorts artworks in place by order, then creation time, then ID, which makes the order total.
func SortArtworks(artworks []Artwork) {
	sort.SliceStable(artworks, func(i, j int) bool {
		a, b := artworks[i], artworks[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

type NewCourse struct {
	Title       string `json:"title" validate:"required,notblank,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Description = core.CleanString(nc.Description)
	return validate.Struct(nc)
}

// UpdateCourse defines what information may be provided to modify an existing Course.
type UpdateCourse struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	cleanPtr(uc.Title)
	cleanPtr(uc.Description)
	if uc.Title != nil && *uc.Title == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "this field cannot be blank"})
	}
	return validate.Struct(uc)
}

type NewArtwork struct {
	Title       string   `json:"title" validate:"required,notblank,max=200"`
	Description string   `json:"description" validate:"max=10000"`
	Author      string   `json:"author" validate:"max=200"`
	Collocation string   `json:"collocation" validate:"max=200"`
	Link        string   `json:"link" validate:"omitempty,url,httpurl"`
	CoverImage  string   `json:"cover_image" validate:"omitempty,url,httpurl"`
	ExtraImages []string `json:"extra_images" validate:"max=20,dive,url,httpurl"`
	PeriodTags  []string `json:"period_tags" validate:"max=20,dive,max=50"`
	TypeTags    []string `json:"type_tags" validate:"max=20,dive,max=50"`
	Order       *int     `json:"order" validate:"omitempty,min=0"`
}

func (na *NewArtwork) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Description = core.CleanString(na.Description)
	na.Author = core.CleanString(na.Author)
	na.Collocation = core.CleanString(na.Collocation)
	na.Link = core.CleanString(na.Link)
	na.CoverImage = core.CleanString(na.CoverImage)
	na.ExtraImages = core.CleanStrings(na.ExtraImages)
	na.PeriodTags = core.CleanStrings(na.PeriodTags)
	na.TypeTags = core.CleanStrings(na.TypeTags)
	return validate.Struct(na)
}

// UpdateArtwork defines what information may be provided to modify an existing Artwork. Nil fields are left as is.
type UpdateArtwork struct {
	Title       *string  `json:"title" validate:"omitempty,notblank,max=200"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	Author      *string  `json:"author" validate:"omitempty,max=200"`
	Collocation *string  `json:"collocation" validate:"omitempty,max=200"`
	Link        *string  `json:"link" validate:"omitempty,url,httpurl"`
	CoverImage  *string  `json:"cover_image" validate:"omitempty,url,httpurl"`
	ExtraImages []string `json:"extra_images" validate:"omitempty,max=20,dive,url,httpurl"`
	PeriodTags  []string `json:"period_tags" validate:"omitempty,max=20,dive,max=50"`
	TypeTags    []string `json:"type_tags" validate:"omitempty,max=20,dive,max=50"`
	Order       *int     `json:"order" validate:"omitempty,min=0"`
}

func (ua *UpdateArtwork) Validate(validate *validator.Validate) error {
	cleanPtr(ua.Title)
	cleanPtr(ua.Description)
	cleanPtr(ua.Author)
	cleanPtr(ua.Collocation)
	cleanPtr(ua.Link)
	cleanPtr(ua.CoverImage)
	if ua.ExtraImages != nil {
		ua.ExtraImages = core.CleanStrings(ua.ExtraImages)
	}
	if ua.PeriodTags != nil {
		ua.PeriodTags = core.CleanStrings(ua.PeriodTags)
	}
	if ua.TypeTags != nil {
		ua.TypeTags = core.CleanStrings(ua.TypeTags)
	}
	if ua.Title != nil && *ua.Title == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "title", Error: "this field cannot be blank"})
	}
	return validate.Struct(ua)
}

func (ua UpdateArtwork) apply(art *Artwork) {
	if ua.Title != nil {
		art.Title = *ua.Title
	}
	if ua.Description != nil {
		art.Description = *ua.Description
	}
	if ua.Author != nil {
		art.Author = *ua.Author
	}
	if ua.Collocation != nil {
		art.Collocation = *ua.Collocation
	}
	if ua.Link != nil {
		art.Link = *ua.Link
	}
	if ua.CoverImage != nil {
		art.CoverImage = *ua.CoverImage
	}
	if ua.ExtraImages != nil {
		art.ExtraImages = ua.ExtraImages
	}
	if ua.PeriodTags != nil {
		art.PeriodTags = ua.PeriodTags
	}
	if ua.TypeTags != nil {
		art.TypeTags = ua.TypeTags
	}
	if ua.Order != nil {
		art.Order = *ua.Order
	}
}

// SetArtworks is the new membership & order of a course's artworks.
type SetArtworks struct {
	ArtworkIDs []string `json:"artwork_ids" validate:"dive,required"`
}

func (sa *SetArtworks) Validate(ctx context.Context, validate *validator.Validate) error {
	if sa.ArtworkIDs == nil {
		sa.ArtworkIDs = []string{}
	}
	seen := make(map[string]bool, len(sa.ArtworkIDs))
	for _, id := range sa.ArtworkIDs {
		if seen[id] {
			return core.NewValidationError(nil, core.FieldError{Field: "artwork_ids", Error: "duplicate artwork: " + id})
		}
		seen[id] = true
	}
	return validate.StructCtx(ctx, sa)
}

type QueryFilter struct {
	Search        string `query:"search"`
	TeacherID     string `query:"-"`
	PublishedOnly bool   `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

func cleanPtr(s *string) {
	if s != nil {
		*s = core.CleanString(*s)
	}
}
