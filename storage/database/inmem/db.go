// Package inmemdb is a process-local user directory for development and tests.
package inmemdb

import (
	"sync"

	"github.com/codetrail/codetrail/core/user"
)

type (
	DB struct {
		user *userTable
	}

	// userTable indexes users by ID and by email; roles are resolved by email.
	userTable struct {
		mu      sync.RWMutex
		byID    map[string]*user.User
		byEmail map[string]string // email -> ID
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{
			byID:    make(map[string]*user.User),
			byEmail: make(map[string]string),
		},
	}
}
