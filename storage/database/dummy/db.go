package dummydb

import (
	"sync"

	"github.com/google/uuid"

	"github.com/trezcool/sanaa/core/course"
	"github.com/trezcool/sanaa/core/enrollment"
	"github.com/trezcool/sanaa/core/user"
)

// Tables are always locked in declaration order: user, course, artwork, enrollment, progress.
type (
	DB struct {
		txMu sync.Mutex // serialises transactions and cascading deletes

		user       *userTable
		course     *courseTable
		artwork    *artworkTable
		enrollment *enrollmentTable
		progress   *progressTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]user.User
	}

	courseTable struct {
		sync.RWMutex
		table map[string]course.Course
	}

	artworkTable struct {
		sync.RWMutex
		table map[string]course.Artwork
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]enrollment.Enrollment
	}

	progressTable struct {
		sync.RWMutex
		table map[string]enrollment.ArtworkProgress
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]user.User)},
		course:     &courseTable{table: make(map[string]course.Course)},
		artwork:    &artworkTable{table: make(map[string]course.Artwork)},
		enrollment: &enrollmentTable{table: make(map[string]enrollment.Enrollment)},
		progress:   &progressTable{table: make(map[string]enrollment.ArtworkProgress)},
	}
	return db, nil
}

func newID() string {
	return uuid.NewString()
}

func copyStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	cp := make([]string, len(ss))
	copy(cp, ss)
	return cp
}

// deleteArtworks removes artworks and their progress rows. Callers hold the artwork lock.
func (db *DB) deleteArtworks(ids map[string]bool) {
	db.progress.Lock()
	defer db.progress.Unlock()

	for id := range ids {
		delete(db.artwork.table, id)
	}
	for id, p := range db.progress.table {
		if ids[p.ArtworkID] {
			delete(db.progress.table, id)
		}
	}
}

// deleteEnrollments removes enrollments and their progress rows. Callers hold the enrollment lock.
func (db *DB) deleteEnrollments(ids map[string]bool) {
	db.progress.Lock()
	defer db.progress.Unlock()

	for id := range ids {
		delete(db.enrollment.table, id)
	}
	for id, p := range db.progress.table {
		if ids[p.EnrollmentID] {
			delete(db.progress.table, id)
		}
	}
}
