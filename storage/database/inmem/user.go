package inmemdb

import (
	"context"
	"sort"

	"github.com/codetrail/codetrail/core/user"
)

type userRepository struct {
	tbl *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{tbl: db.user}
}

func (r *userRepository) CheckEmailUniqueness(_ context.Context, email string, excludedUsers ...user.User) error {
	r.tbl.mu.RLock()
	id, taken := r.tbl.byEmail[email]
	r.tbl.mu.RUnlock()

	if !taken {
		return nil
	}
	for _, u := range excludedUsers {
		if u.ID == id {
			return nil
		}
	}
	return user.ErrEmailExists
}

func (r *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	r.tbl.mu.Lock()
	defer r.tbl.mu.Unlock()

	if _, taken := r.tbl.byEmail[usr.Email]; taken {
		return user.User{}, user.ErrEmailExists
	}
	r.tbl.byID[usr.ID] = &usr
	r.tbl.byEmail[usr.Email] = usr.ID
	return usr, nil
}

// QueryAllUsers lists copies of all users, oldest first.
func (r *userRepository) QueryAllUsers(context.Context) ([]user.User, error) {
	r.tbl.mu.RLock()
	res := make([]user.User, 0, len(r.tbl.byID))
	for _, u := range r.tbl.byID {
		res = append(res, *u)
	}
	r.tbl.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].Email < res[j].Email
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return res, nil
}

func (r *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	r.tbl.mu.RLock()
	defer r.tbl.mu.RUnlock()

	if usr, ok := r.tbl.byID[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (r *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	r.tbl.mu.RLock()
	defer r.tbl.mu.RUnlock()

	if id, ok := r.tbl.byEmail[email]; ok {
		return *r.tbl.byID[id], nil
	}
	return user.User{}, user.ErrNotFound
}

func (r *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	r.tbl.mu.Lock()
	defer r.tbl.mu.Unlock()

	old, ok := r.tbl.byID[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if usr.Email != old.Email {
		if id, taken := r.tbl.byEmail[usr.Email]; taken && id != usr.ID {
			return user.User{}, user.ErrEmailExists
		}
		delete(r.tbl.byEmail, old.Email)
		r.tbl.byEmail[usr.Email] = usr.ID
	}
	r.tbl.byID[usr.ID] = &usr
	return usr, nil
}
