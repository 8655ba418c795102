// Package role defines the authorization levels of CodeTrail users.
package role

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core"
)

// Role is the authorization level bound to an identity.
// The zero value None means "no role resolved".
type Role int

const (
	None Role = iota
	Student
	Teacher
	Admin
)

var (
	ErrUnknown = errors.New("unknown role")

	roleTag  = "role"
	roleText = "invalid role"

	names = map[Role]string{
		Student: "student",
		Teacher: "teacher",
		Admin:   "admin",
	}
)

func init() {
	_ = core.Validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(core.Validate, core.Translator, roleTag, roleText)
}

// All lists the known roles, lowest privilege first.
func All() []Role {
	return []Role{Student, Teacher, Admin}
}

// Parse maps a wire string onto a Role. Anything outside the known set is ErrUnknown.
func Parse(s string) (Role, error) {
	s = core.CleanString(s, true /* lower */)
	for r, name := range names {
		if s == name {
			return r, nil
		}
	}
	return None, errors.Wrapf(ErrUnknown, "%q", s)
}

func (r Role) String() string {
	if name, ok := names[r]; ok {
		return name
	}
	return ""
}

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	_, ok := names[r]
	return ok
}

func (r Role) MarshalJSON() ([]byte, error) {
	if r == None {
		return []byte("null"), nil
	}
	if !r.IsValid() {
		return nil, ErrUnknown
	}
	return json.Marshal(r.String())
}

func (r *Role) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = None
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// roleValidation accepts Role values and role strings that parse.
func roleValidation(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case Role:
		return v.IsValid()
	case string:
		_, err := Parse(v)
		return err == nil
	}
	return false
}
