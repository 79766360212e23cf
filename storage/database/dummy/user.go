package dummydb

import (
	"context"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = true
	}
	for _, usr := range repo.db.table {
		if usr.Email == email && !excluded[usr.ID] {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.table {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	if usr.ID == "" {
		usr.ID = newID()
	}
	repo.db.table[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.get(filter)
}

func (repo *userRepository) get(filter user.GetFilter) (user.User, error) {
	if filter.ID != "" {
		if usr, ok := repo.db.table[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.db.table {
			if usr.Email == filter.Email {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.update(usr)
}

func (repo *userRepository) update(usr user.User) (user.User, error) {
	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	for _, u := range repo.db.table {
		if u.Email == usr.Email && u.ID != usr.ID {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.table[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	existing, err := repo.get(user.GetFilter{Email: usr.Email})
	if err != nil {
		if usr.ID == "" {
			usr.ID = newID()
		}
		repo.db.table[usr.ID] = usr
		return usr, nil
	}

	usr.ID = existing.ID
	usr.CreatedAt = existing.CreatedAt
	usr.LastLogin = existing.LastLogin
	if usr.PasswordHash == nil {
		usr.PasswordHash = existing.PasswordHash
	}
	return repo.update(usr)
}
