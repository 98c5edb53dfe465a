package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/lalamika/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckEmailUniqueness(ctx context.Context, email string) error {
	t := repo.db.user
	t.RLock()
	defer t.RUnlock()

	for _, usr := range t.rows {
		if usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	t := repo.db.user
	t.Lock()
	defer t.Unlock()

	for _, u := range t.rows {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}

	usr.ID = uuid.New().String()
	t.rows = append(t.rows, &usr)
	t.byID[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	t := repo.db.user
	t.RLock()
	defer t.RUnlock()

	if usr, ok := t.byID[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	t := repo.db.user
	t.RLock()
	defer t.RUnlock()

	for _, usr := range t.rows {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmailAndRole(ctx context.Context, email, role string) (user.User, error) {
	t := repo.db.user
	t.RLock()
	defer t.RUnlock()

	for _, usr := range t.rows {
		if usr.Email == email && usr.Role == role {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsersByRole(ctx context.Context, role string) ([]user.User, error) {
	t := repo.db.user
	t.RLock()
	defer t.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range t.rows {
		if usr.Role == role {
			users = append(users, *usr)
		}
	}
	return users, nil
}

func (repo *userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	t := repo.db.user
	t.RLock()
	defer t.RUnlock()

	users := make([]user.User, 0, len(t.rows))
	for _, usr := range t.rows {
		users = append(users, *usr)
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	t := repo.db.user
	t.Lock()
	defer t.Unlock()

	stored, ok := t.byID[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	*stored = usr
	return usr, nil
}
