// Package testutil holds fixtures shared by the CodeTrail tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/codetrail/codetrail/core/role"
	"github.com/codetrail/codetrail/core/user"
	"github.com/codetrail/codetrail/storage/database/inmem"
)

// NewUserService returns a directory backed by a fresh in-memory database.
func NewUserService() (*user.Service, user.Repository) {
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	return user.NewService(repo), repo
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd string,
	r role.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        email,
		Name:      name,
		Email:     email,
		Role:      r,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}
