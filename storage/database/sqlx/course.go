package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/course"
)

const (
	courseColumns  = "c.id, c.teacher_id, c.title, c.description, c.is_published, c.published_at, c.created_at, c.updated_at"
	artworkColumns = "id, course_id, title, description, author, collocation, link, cover_image, extra_images, period_tags, type_tags, sort_order, created_at, updated_at"
)

// columns courses may be ordered by
var courseOrderColumns = map[string]string{
	"title":             "c.title",
	"created_at":        "c.created_at",
	"published_at":      "c.published_at",
	"students_enrolled": "students_enrolled",
}

type (
	courseRow struct {
		ID          string    `db:"id"`
		TeacherID   string    `db:"teacher_id"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		IsPublished bool      `db:"is_published"`
		PublishedAt null.Time `db:"published_at"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	courseSummaryRow struct {
		courseRow
		TeacherName      string `db:"teacher_name"`
		ArtworksCount    int    `db:"artworks_count"`
		StudentsEnrolled int    `db:"students_enrolled"`
	}

	artworkRow struct {
		ID          string    `db:"id"`
		CourseID    string    `db:"course_id"`
		Title       string    `db:"title"`
		Description string    `db:"description"`
		Author      string    `db:"author"`
		Collocation string    `db:"collocation"`
		Link        string    `db:"link"`
		CoverImage  string    `db:"cover_image"`
		ExtraImages jsonList  `db:"extra_images"`
		PeriodTags  jsonList  `db:"period_tags"`
		TypeTags    jsonList  `db:"type_tags"`
		SortOrder   int       `db:"sort_order"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}
)

func newCourseRow(crs course.Course) courseRow {
	return courseRow{
		ID:          crs.ID,
		TeacherID:   crs.TeacherID,
		Title:       crs.Title,
		Description: crs.Description,
		IsPublished: crs.IsPublished,
		PublishedAt: crs.PublishedAt,
		CreatedAt:   crs.CreatedAt.UTC(),
		UpdatedAt:   crs.UpdatedAt.UTC(),
	}
}

func (r courseRow) course() course.Course {
	return course.Course{
		ID:          r.ID,
		TeacherID:   r.TeacherID,
		Title:       r.Title,
		Description: r.Description,
		IsPublished: r.IsPublished,
		PublishedAt: r.PublishedAt,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func newArtworkRow(art course.Artwork) artworkRow {
	return artworkRow{
		ID:          art.ID,
		CourseID:    art.CourseID,
		Title:       art.Title,
		Description: art.Description,
		Author:      art.Author,
		Collocation: art.Collocation,
		Link:        art.Link,
		CoverImage:  art.CoverImage,
		ExtraImages: art.ExtraImages,
		PeriodTags:  art.PeriodTags,
		TypeTags:    art.TypeTags,
		SortOrder:   art.Order,
		CreatedAt:   art.CreatedAt.UTC(),
		UpdatedAt:   art.UpdatedAt.UTC(),
	}
}

func (r artworkRow) artwork() course.Artwork {
	return course.Artwork{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Title:       r.Title,
		Description: r.Description,
		Author:      r.Author,
		Collocation: r.Collocation,
		Link:        r.Link,
		CoverImage:  r.CoverImage,
		ExtraImages: r.ExtraImages,
		PeriodTags:  r.PeriodTags,
		TypeTags:    r.TypeTags,
		Order:       r.SortOrder,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	if crs.ID == "" {
		crs.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec...), `
		INSERT INTO courses (id, teacher_id, title, description, is_published, published_at, created_at, updated_at)
		VALUES (:id, :teacher_id, :title, :description, :is_published, :published_at, :created_at, :updated_at)`,
		newCourseRow(crs),
	)
	if err != nil {
		return course.Course{}, core.NewStoreError(err, "inserting course")
	}
	return repo.GetCourse(ctx, crs.ID, exec...)
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	ex := getExec(repo.db, exec...)

	var row courseRow
	q := ex.Rebind("SELECT " + courseColumns + " FROM courses c WHERE c.id = ?")
	if err := ex.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, core.NewStoreError(err, "getting course")
	}
	return row.course(), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Summary, error) {
	ex := getExec(repo.db, exec...)

	b := sq.Select(
		courseColumns,
		"COALESCE(u.name, '') AS teacher_name",
		"(SELECT COUNT(*) FROM artworks a WHERE a.course_id = c.id) AS artworks_count",
		"(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = c.id) AS students_enrolled",
	).
		From("courses c").
		LeftJoin("users u ON u.id = c.teacher_id")

	if filter.PublishedOnly {
		b = b.Where(sq.Eq{"c.is_published": true})
	}
	if filter.TeacherID != "" {
		b = b.Where(sq.Eq{"c.teacher_id": filter.TeacherID})
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		b = b.Where(sq.Or{
			sq.Like{"LOWER(c.title)": like},
			sq.Like{"LOWER(c.description)": like},
		})
	}
	for _, ord := range ordering {
		if col, ok := courseOrderColumns[ord.Field]; ok {
			b = b.OrderBy(core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	b = b.OrderBy("c.id ASC")

	q, args, err := toSQL(ex, b)
	if err != nil {
		return nil, err
	}
	var rows []courseSummaryRow
	if err = ex.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, core.NewStoreError(err, "querying courses")
	}

	summaries := make([]course.Summary, 0, len(rows))
	for _, r := range rows {
		summaries = append(summaries, course.Summary{
			Course:           r.course(),
			TeacherName:      r.TeacherName,
			ArtworksCount:    r.ArtworksCount,
			StudentsEnrolled: r.StudentsEnrolled,
		})
	}
	return summaries, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course, exec ...core.DBExecutor) (course.Course, error) {
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec...), `
		UPDATE courses
		SET title = :title, description = :description, is_published = :is_published,
			published_at = :published_at, updated_at = :updated_at
		WHERE id = :id`,
		newCourseRow(crs),
	)
	if err != nil {
		return course.Course{}, core.NewStoreError(err, "updating course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return repo.GetCourse(ctx, crs.ID, exec...)
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ex := getExec(repo.db, exec...)
	res, err := ex.ExecContext(ctx, ex.Rebind("DELETE FROM courses WHERE id = ?"), id)
	if err != nil {
		return core.NewStoreError(err, "deleting course")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrNotFound
	}
	return nil
}

func (repo *courseRepository) CreateArtwork(ctx context.Context, art course.Artwork, exec ...core.DBExecutor) (course.Artwork, error) {
	if art.ID == "" {
		art.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec...), `
		INSERT INTO artworks (id, course_id, title, description, author, collocation, link, cover_image,
			extra_images, period_tags, type_tags, sort_order, created_at, updated_at)
		VALUES (:id, :course_id, :title, :description, :author, :collocation, :link, :cover_image,
			:extra_images, :period_tags, :type_tags, :sort_order, :created_at, :updated_at)`,
		newArtworkRow(art),
	)
	if err != nil {
		return course.Artwork{}, core.NewStoreError(err, "inserting artwork")
	}
	return repo.GetArtwork(ctx, art.ID, exec...)
}

func (repo *courseRepository) GetArtwork(ctx context.Context, id string, exec ...core.DBExecutor) (course.Artwork, error) {
	ex := getExec(repo.db, exec...)

	var row artworkRow
	if err := ex.GetContext(ctx, &row, ex.Rebind("SELECT "+artworkColumns+" FROM artworks WHERE id = ?"), id); err != nil {
		if err == sql.ErrNoRows {
			return course.Artwork{}, course.ErrArtworkNotFound
		}
		return course.Artwork{}, core.NewStoreError(err, "getting artwork")
	}
	return row.artwork(), nil
}

func (repo *courseRepository) QueryArtworks(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Artwork, error) {
	ex := getExec(repo.db, exec...)

	var rows []artworkRow
	q := ex.Rebind("SELECT " + artworkColumns + " FROM artworks WHERE course_id = ? ORDER BY sort_order, created_at, id")
	if err := ex.SelectContext(ctx, &rows, q, courseID); err != nil {
		return nil, core.NewStoreError(err, "querying artworks")
	}

	artworks := make([]course.Artwork, 0, len(rows))
	for _, r := range rows {
		artworks = append(artworks, r.artwork())
	}
	course.SortArtworks(artworks)
	return artworks, nil
}

func (repo *courseRepository) UpdateArtwork(ctx context.Context, art course.Artwork, exec ...core.DBExecutor) (course.Artwork, error) {
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec...), `
		UPDATE artworks
		SET title = :title, description = :description, author = :author, collocation = :collocation,
			link = :link, cover_image = :cover_image, extra_images = :extra_images, period_tags = :period_tags,
			type_tags = :type_tags, sort_order = :sort_order, updated_at = :updated_at
		WHERE id = :id`,
		newArtworkRow(art),
	)
	if err != nil {
		return course.Artwork{}, core.NewStoreError(err, "updating artwork")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.Artwork{}, course.ErrArtworkNotFound
	}
	return repo.GetArtwork(ctx, art.ID, exec...)
}

func (repo *courseRepository) DeleteArtwork(ctx context.Context, id string, exec ...core.DBExecutor) error {
	ex := getExec(repo.db, exec...)
	res, err := ex.ExecContext(ctx, ex.Rebind("DELETE FROM artworks WHERE id = ?"), id)
	if err != nil {
		return core.NewStoreError(err, "deleting artwork")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return course.ErrArtworkNotFound
	}
	return nil
}

func (repo *courseRepository) ReplaceArtworks(ctx context.Context, courseID string, orderedIDs []string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewStoreError(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	now := core.NowFunc()
	update := tx.Rebind("UPDATE artworks SET sort_order = ?, updated_at = ? WHERE id = ? AND course_id = ?")
	for i, id := range orderedIDs {
		if _, err = tx.ExecContext(ctx, update, i, now, id, courseID); err != nil {
			return core.NewStoreError(err, "reordering artworks")
		}
	}

	b := sq.Delete("artworks").Where(sq.Eq{"course_id": courseID})
	if len(orderedIDs) > 0 {
		b = b.Where(sq.NotEq{"id": orderedIDs})
	}
	q, args, err := toSQL(tx, b)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, q, args...); err != nil {
		return core.NewStoreError(err, "deleting artworks")
	}

	return core.NewStoreError(tx.Commit(), "committing transaction")
}
