package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/enrollment"
	"github.com/trezcool/sanaa/storage/database"
)

const (
	enrollmentColumns = "id, user_id, course_id, progress, completed_at, created_at, updated_at"
	progressColumns   = "id, user_id, artwork_id, enrollment_id, is_completed, viewed_at, completed_at, created_at"
)

type (
	enrollmentRow struct {
		ID          string    `db:"id"`
		UserID      string    `db:"user_id"`
		CourseID    string    `db:"course_id"`
		Progress    int       `db:"progress"`
		CompletedAt null.Time `db:"completed_at"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	progressRow struct {
		ID           string    `db:"id"`
		UserID       string    `db:"user_id"`
		ArtworkID    string    `db:"artwork_id"`
		EnrollmentID string    `db:"enrollment_id"`
		IsCompleted  bool      `db:"is_completed"`
		ViewedAt     null.Time `db:"viewed_at"`
		CompletedAt  null.Time `db:"completed_at"`
		CreatedAt    time.Time `db:"created_at"`
	}
)

func newEnrollmentRow(enr enrollment.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:          enr.ID,
		UserID:      enr.UserID,
		CourseID:    enr.CourseID,
		Progress:    enr.Progress,
		CompletedAt: enr.CompletedAt,
		CreatedAt:   enr.CreatedAt.UTC(),
		UpdatedAt:   enr.UpdatedAt.UTC(),
	}
}

func (r enrollmentRow) enrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:          r.ID,
		UserID:      r.UserID,
		CourseID:    r.CourseID,
		Progress:    r.Progress,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func newProgressRow(p enrollment.ArtworkProgress) progressRow {
	return progressRow{
		ID:           p.ID,
		UserID:       p.UserID,
		ArtworkID:    p.ArtworkID,
		EnrollmentID: p.EnrollmentID,
		IsCompleted:  p.IsCompleted,
		ViewedAt:     p.ViewedAt,
		CompletedAt:  p.CompletedAt,
		CreatedAt:    p.CreatedAt.UTC(),
	}
}

func (r progressRow) progress() enrollment.ArtworkProgress {
	return enrollment.ArtworkProgress{
		ID:           r.ID,
		UserID:       r.UserID,
		ArtworkID:    r.ArtworkID,
		EnrollmentID: r.EnrollmentID,
		IsCompleted:  r.IsCompleted,
		ViewedAt:     r.ViewedAt,
		CompletedAt:  r.CompletedAt,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}

type enrollmentRepository struct {
	db   *sqlx.DB
	exec core.DBExecutor // db, or the transaction the repository is bound to
	tx   *sqlx.Tx
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db, exec: db}
}

func (repo *enrollmentRepository) WithinTx(ctx context.Context, fn func(repo enrollment.Repository) error) error {
	if repo.tx != nil {
		return fn(repo)
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.NewStoreError(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }() // no-op once committed

	if err = fn(&enrollmentRepository{db: repo.db, exec: tx, tx: tx}); err != nil {
		return err
	}
	return core.NewStoreError(tx.Commit(), "committing transaction")
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	if enr.ID == "" {
		enr.ID = newID()
	}
	_, err := sqlx.NamedExecContext(ctx, repo.exec, `
		INSERT INTO enrollments (id, user_id, course_id, progress, completed_at, created_at, updated_at)
		VALUES (:id, :user_id, :course_id, :progress, :completed_at, :created_at, :updated_at)`,
		newEnrollmentRow(enr),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
		return enrollment.Enrollment{}, core.NewStoreError(err, "inserting enrollment")
	}
	return repo.GetEnrollment(ctx, enr.ID)
}

func (repo *enrollmentRepository) getEnrollment(ctx context.Context, q string, args ...interface{}) (enrollment.Enrollment, error) {
	var row enrollmentRow
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), args...); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.Enrollment{}, enrollment.ErrNotEnrolled
		}
		return enrollment.Enrollment{}, core.NewStoreError(err, "getting enrollment")
	}
	return row.enrollment(), nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	return repo.getEnrollment(ctx, "SELECT "+enrollmentColumns+" FROM enrollments WHERE id = ?", id)
}

func (repo *enrollmentRepository) GetUserEnrollment(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	return repo.getEnrollment(
		ctx,
		"SELECT "+enrollmentColumns+" FROM enrollments WHERE user_id = ? AND course_id = ?",
		userID, courseID,
	)
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, filter enrollment.Filter) ([]enrollment.Enrollment, error) {
	b := sq.Select(enrollmentColumns).From("enrollments").OrderBy("created_at DESC", "id ASC")
	if filter.UserID != "" {
		b = b.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.CourseID != "" {
		b = b.Where(sq.Eq{"course_id": filter.CourseID})
	}
	q, args, err := toSQL(repo.exec, b)
	if err != nil {
		return nil, err
	}

	var rows []enrollmentRow
	if err = repo.exec.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, core.NewStoreError(err, "querying enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, r := range rows {
		enrs = append(enrs, r.enrollment())
	}
	return enrs, nil
}

func (repo *enrollmentRepository) LockEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	q := "SELECT " + enrollmentColumns + " FROM enrollments WHERE id = ?"
	// sqlite serialises writers already
	if database.IsPostgres(repo.db) {
		q += " FOR UPDATE"
	}
	return repo.getEnrollment(ctx, q, id)
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.exec, `
		UPDATE enrollments
		SET progress = :progress, completed_at = :completed_at, updated_at = :updated_at
		WHERE id = :id`,
		newEnrollmentRow(enr),
	)
	if err != nil {
		return enrollment.Enrollment{}, core.NewStoreError(err, "updating enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrNotEnrolled
	}
	return repo.GetEnrollment(ctx, enr.ID)
}

func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, id string) error {
	res, err := repo.exec.ExecContext(ctx, repo.exec.Rebind("DELETE FROM enrollments WHERE id = ?"), id)
	if err != nil {
		return core.NewStoreError(err, "deleting enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.ErrNotEnrolled
	}
	return nil
}

func (repo *enrollmentRepository) CreateProgress(ctx context.Context, rows ...enrollment.ArtworkProgress) (int, error) {
	inserted := 0
	for _, p := range rows {
		if p.ID == "" {
			p.ID = newID()
		}
		res, err := sqlx.NamedExecContext(ctx, repo.exec, `
			INSERT INTO artwork_progress (id, user_id, artwork_id, enrollment_id, is_completed, viewed_at, completed_at, created_at)
			VALUES (:id, :user_id, :artwork_id, :enrollment_id, :is_completed, :viewed_at, :completed_at, :created_at)
			ON CONFLICT (enrollment_id, artwork_id) DO NOTHING`,
			newProgressRow(p),
		)
		if err != nil {
			return inserted, core.NewStoreError(err, "inserting artwork progress")
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	return inserted, nil
}

func (repo *enrollmentRepository) getProgress(ctx context.Context, q string, args ...interface{}) (enrollment.ArtworkProgress, error) {
	var row progressRow
	if err := repo.exec.GetContext(ctx, &row, repo.exec.Rebind(q), args...); err != nil {
		if err == sql.ErrNoRows {
			return enrollment.ArtworkProgress{}, enrollment.ErrProgressNotFound
		}
		return enrollment.ArtworkProgress{}, core.NewStoreError(err, "getting artwork progress")
	}
	return row.progress(), nil
}

func (repo *enrollmentRepository) GetProgress(ctx context.Context, userID, artworkID string) (enrollment.ArtworkProgress, error) {
	return repo.getProgress(
		ctx,
		"SELECT "+progressColumns+" FROM artwork_progress WHERE user_id = ? AND artwork_id = ?",
		userID, artworkID,
	)
}

func (repo *enrollmentRepository) QueryProgress(ctx context.Context, enrollmentID string) ([]enrollment.ArtworkProgress, error) {
	var rows []progressRow
	q := repo.exec.Rebind("SELECT " + progressColumns + " FROM artwork_progress WHERE enrollment_id = ? ORDER BY created_at, id")
	if err := repo.exec.SelectContext(ctx, &rows, q, enrollmentID); err != nil {
		return nil, core.NewStoreError(err, "querying artwork progress")
	}
	progress := make([]enrollment.ArtworkProgress, 0, len(rows))
	for _, r := range rows {
		progress = append(progress, r.progress())
	}
	return progress, nil
}

func (repo *enrollmentRepository) UpdateProgress(ctx context.Context, p enrollment.ArtworkProgress) (enrollment.ArtworkProgress, error) {
	res, err := sqlx.NamedExecContext(ctx, repo.exec, `
		UPDATE artwork_progress
		SET is_completed = :is_completed, viewed_at = COALESCE(viewed_at, :viewed_at), completed_at = :completed_at
		WHERE id = :id`,
		newProgressRow(p),
	)
	if err != nil {
		return enrollment.ArtworkProgress{}, core.NewStoreError(err, "updating artwork progress")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.ArtworkProgress{}, enrollment.ErrProgressNotFound
	}
	return repo.getProgress(ctx, "SELECT "+progressColumns+" FROM artwork_progress WHERE id = ?", p.ID)
}

func (repo *enrollmentRepository) SetProgressViewed(ctx context.Context, id string, at time.Time) (enrollment.ArtworkProgress, error) {
	q := repo.exec.Rebind("UPDATE artwork_progress SET viewed_at = ? WHERE id = ? AND viewed_at IS NULL")
	if _, err := repo.exec.ExecContext(ctx, q, at.UTC(), id); err != nil {
		return enrollment.ArtworkProgress{}, core.NewStoreError(err, "setting artwork progress viewed")
	}
	return repo.getProgress(ctx, "SELECT "+progressColumns+" FROM artwork_progress WHERE id = ?", id)
}

func (repo *enrollmentRepository) CountProgress(ctx context.Context, enrollmentID string) (int, int, error) {
	var counts struct {
		Total     int `db:"total"`
		Completed int `db:"completed"`
	}
	q := repo.exec.Rebind(`
		SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_completed THEN 1 ELSE 0 END), 0) AS completed
		FROM artwork_progress
		WHERE enrollment_id = ?`)
	if err := repo.exec.GetContext(ctx, &counts, q, enrollmentID); err != nil {
		return 0, 0, core.NewStoreError(err, "counting artwork progress")
	}
	return counts.Total, counts.Completed, nil
}
