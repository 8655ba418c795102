package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/core/role"
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatar_url"`
	Role         role.Role `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Identity is the public profile handed to the identity provider.
func (u User) Identity() identity.Identity {
	return identity.Identity{
		Email:       u.Email,
		DisplayName: u.Name,
		AvatarURL:   u.AvatarURL,
	}
}

// NewUser contains information needed to register.
type NewUser struct {
	Name            string `json:"name" validate:"required,max=100"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
}

// UpdateProfile defines what a user may change about themselves.
type UpdateProfile struct {
	Name      *string `json:"display_name" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

func (up *UpdateProfile) Clean() {
	if up.Name != nil {
		name := core.CleanString(*up.Name)
		up.Name = &name
	}
	if up.AvatarURL != nil {
		url := core.CleanString(*up.AvatarURL)
		up.AvatarURL = &url
	}
}

// ChangeRole is what an admin sends to move a user to another role.
type ChangeRole struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,role"`
}

func (cr *ChangeRole) Clean() {
	cr.Email = core.CleanString(cr.Email, true /* lower */)
	cr.Role = core.CleanString(cr.Role, true /* lower */)
}
