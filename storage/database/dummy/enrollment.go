package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/enrollment"
)

type enrollmentRepository struct {
	db   *DB
	inTx bool
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

// lock serialises a write with the transactions, unless it runs within one already.
func (repo *enrollmentRepository) lock() func() {
	if repo.inTx {
		return func() {}
	}
	repo.db.txMu.Lock()
	return repo.db.txMu.Unlock
}

type enrollmentSnapshot struct {
	enrollments map[string]enrollment.Enrollment
	progress    map[string]enrollment.ArtworkProgress
}

func (repo *enrollmentRepository) snapshot() enrollmentSnapshot {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()
	repo.db.progress.RLock()
	defer repo.db.progress.RUnlock()

	snap := enrollmentSnapshot{
		enrollments: make(map[string]enrollment.Enrollment, len(repo.db.enrollment.table)),
		progress:    make(map[string]enrollment.ArtworkProgress, len(repo.db.progress.table)),
	}
	for id, enr := range repo.db.enrollment.table {
		snap.enrollments[id] = enr
	}
	for id, p := range repo.db.progress.table {
		snap.progress[id] = p
	}
	return snap
}

func (repo *enrollmentRepository) restore(snap enrollmentSnapshot) {
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()
	repo.db.progress.Lock()
	defer repo.db.progress.Unlock()

	repo.db.enrollment.table = snap.enrollments
	repo.db.progress.table = snap.progress
}

func (repo *enrollmentRepository) WithinTx(_ context.Context, fn func(repo enrollment.Repository) error) error {
	if repo.inTx {
		return fn(repo)
	}

	repo.db.txMu.Lock()
	defer repo.db.txMu.Unlock()

	snap := repo.snapshot()
	if err := fn(&enrollmentRepository{db: repo.db, inTx: true}); err != nil {
		repo.restore(snap)
		return err
	}
	return nil
}

func (repo *enrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	defer repo.lock()()
	repo.db.course.RLock()
	defer repo.db.course.RUnlock()
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	if _, ok := repo.db.course.table[enr.CourseID]; !ok {
		return enrollment.Enrollment{}, course.ErrNotFound
	}
	for _, e := range repo.db.enrollment.table {
		if e.UserID == enr.UserID && e.CourseID == enr.CourseID {
			return enrollment.Enrollment{}, enrollment.ErrAlreadyEnrolled
		}
	}
	if enr.ID == "" {
		enr.ID = newID()
	}
	repo.db.enrollment.table[enr.ID] = enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(_ context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	if enr, ok := repo.db.enrollment.table[id]; ok {
		return enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotEnrolled
}

func (repo *enrollmentRepository) GetUserEnrollment(_ context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	for _, enr := range repo.db.enrollment.table {
		if enr.UserID == userID && enr.CourseID == courseID {
			return enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotEnrolled
}

func (repo *enrollmentRepository) QueryEnrollments(_ context.Context, filter enrollment.Filter) ([]enrollment.Enrollment, error) {
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()

	enrs := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.enrollment.table {
		if filter.UserID != "" && enr.UserID != filter.UserID {
			continue
		}
		if filter.CourseID != "" && enr.CourseID != filter.CourseID {
			continue
		}
		enrs = append(enrs, enr)
	}
	sort.Slice(enrs, func(i, j int) bool {
		if !enrs[i].CreatedAt.Equal(enrs[j].CreatedAt) {
			return enrs[i].CreatedAt.After(enrs[j].CreatedAt)
		}
		return enrs[i].ID < enrs[j].ID
	})
	return enrs, nil
}

// LockEnrollment only checks the enrollment exists: transactions are serialised already.
func (repo *enrollmentRepository) LockEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	return repo.GetEnrollment(ctx, id)
}

func (repo *enrollmentRepository) UpdateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	defer repo.lock()()
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	orig, ok := repo.db.enrollment.table[enr.ID]
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotEnrolled
	}
	orig.Progress = enr.Progress
	orig.CompletedAt = enr.CompletedAt
	orig.UpdatedAt = enr.UpdatedAt
	repo.db.enrollment.table[enr.ID] = orig
	return orig, nil
}

func (repo *enrollmentRepository) DeleteEnrollment(_ context.Context, id string) error {
	defer repo.lock()()
	repo.db.enrollment.Lock()
	defer repo.db.enrollment.Unlock()

	if _, ok := repo.db.enrollment.table[id]; !ok {
		return enrollment.ErrNotEnrolled
	}
	repo.db.deleteEnrollments(map[string]bool{id: true})
	return nil
}

func (repo *enrollmentRepository) CreateProgress(_ context.Context, rows ...enrollment.ArtworkProgress) (int, error) {
	defer repo.lock()()
	repo.db.artwork.RLock()
	defer repo.db.artwork.RUnlock()
	repo.db.enrollment.RLock()
	defer repo.db.enrollment.RUnlock()
	repo.db.progress.Lock()
	defer repo.db.progress.Unlock()

	existing := make(map[[2]string]bool, len(repo.db.progress.table))
	for _, p := range repo.db.progress.table {
		existing[[2]string{p.EnrollmentID, p.ArtworkID}] = true
	}

	inserted := 0
	for _, p := range rows {
		if _, ok := repo.db.artwork.table[p.ArtworkID]; !ok {
			return inserted, course.ErrArtworkNotFound
		}
		if _, ok := repo.db.enrollment.table[p.EnrollmentID]; !ok {
			return inserted, enrollment.ErrNotEnrolled
		}
		key := [2]string{p.EnrollmentID, p.ArtworkID}
		if existing[key] {
			continue
		}
		if p.ID == "" {
			p.ID = newID()
		}
		repo.db.progress.table[p.ID] = p
		existing[key] = true
		inserted++
	}
	return inserted, nil
}

func (repo *enrollmentRepository) GetProgress(_ context.Context, userID, artworkID string) (enrollment.ArtworkProgress, error) {
	repo.db.progress.RLock()
	defer repo.db.progress.RUnlock()

	for _, p := range repo.db.progress.table {
		if p.UserID == userID && p.ArtworkID == artworkID {
			return p, nil
		}
	}
	return enrollment.ArtworkProgress{}, enrollment.ErrProgressNotFound
}

func (repo *enrollmentRepository) QueryProgress(_ context.Context, enrollmentID string) ([]enrollment.ArtworkProgress, error) {
	repo.db.progress.RLock()
	defer repo.db.progress.RUnlock()

	rows := make([]enrollment.ArtworkProgress, 0)
	for _, p := range repo.db.progress.table {
		if p.EnrollmentID == enrollmentID {
			rows = append(rows, p)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (repo *enrollmentRepository) UpdateProgress(_ context.Context, p enrollment.ArtworkProgress) (enrollment.ArtworkProgress, error) {
	defer repo.lock()()
	repo.db.progress.Lock()
	defer repo.db.progress.Unlock()

	orig, ok := repo.db.progress.table[p.ID]
	if !ok {
		return enrollment.ArtworkProgress{}, enrollment.ErrProgressNotFound
	}
	orig.IsCompleted = p.IsCompleted
	if !orig.ViewedAt.Valid { // first view wins
		orig.ViewedAt = p.ViewedAt
	}
	orig.CompletedAt = p.CompletedAt
	repo.db.progress.table[p.ID] = orig
	return orig, nil
}

func (repo *enrollmentRepository) SetProgressViewed(_ context.Context, id string, at time.Time) (enrollment.ArtworkProgress, error) {
	defer repo.lock()()
	repo.db.progress.Lock()
	defer repo.db.progress.Unlock()

	p, ok := repo.db.progress.table[id]
	if !ok {
		return enrollment.ArtworkProgress{}, enrollment.ErrProgressNotFound
	}
	if !p.ViewedAt.Valid {
		p.ViewedAt = null.TimeFrom(at)
		repo.db.progress.table[id] = p
	}
	return p, nil
}

func (repo *enrollmentRepository) CountProgress(_ context.Context, enrollmentID string) (int, int, error) {
	repo.db.progress.RLock()
	defer repo.db.progress.RUnlock()

	total, completed := 0, 0
	for _, p := range repo.db.progress.table {
		if p.EnrollmentID != enrollmentID {
			continue
		}
		total++
		if p.IsCompleted {
			completed++
		}
	}
	return total, completed, nil
}
