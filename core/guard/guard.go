// Package guard decides whether a protected location may be rendered.
package guard

import (
	"net/url"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/core/role"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	FromParam        = "from"
)

// Decision is the state reached by one guard evaluation.
type Decision int

const (
	Checking Decision = iota
	Granted
	DeniedUnauthenticated
	DeniedWrongRole
)

func (d Decision) String() string {
	switch d {
	case Checking:
		return "checking"
	case Granted:
		return "granted"
	case DeniedUnauthenticated:
		return "denied_unauthenticated"
	case DeniedWrongRole:
		return "denied_wrong_role"
	}
	return "unknown"
}

func (d Decision) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Input is everything an evaluation depends on.
// RequiredRole None means any authenticated identity suffices.
type Input struct {
	IdentityLoading bool
	Identity        *identity.Identity
	RoleLoading     bool
	Role            role.Role
	RequiredRole    role.Role
	Location        string
}

// Outcome is a Decision plus where to send the user, if anywhere.
type Outcome struct {
	Decision Decision `json:"decision"`
	Redirect string   `json:"redirect,omitempty"`
}

// Evaluate applies the rules in order; the first match wins.
//  1. identity or role still loading: Checking
//  2. no identity: DeniedUnauthenticated, back to login with the location
//  3. required role set and not held: DeniedWrongRole
//  4. Granted
// An unresolved role (None) never satisfies a required role.
func Evaluate(in Input) Outcome {
	switch {
	case in.IdentityLoading || in.RoleLoading:
		return Outcome{Decision: Checking}
	case in.Identity == nil:
		return Outcome{Decision: DeniedUnauthenticated, Redirect: LoginLocation(in.Location)}
	case in.RequiredRole != role.None && in.Role != in.RequiredRole:
		return Outcome{Decision: DeniedWrongRole, Redirect: UnauthorizedPath}
	default:
		return Outcome{Decision: Granted}
	}
}

// LoginLocation is the login entry point recording from where the user came.
func LoginLocation(from string) string {
	if from == "" {
		return LoginPath
	}
	q := make(url.Values)
	q.Set(FromParam, from)
	return LoginPath + "?" + q.Encode()
}

// ReturnLocation is where to go after signing in from the login page.
// Only same-origin paths are honoured; anything else returns home.
func ReturnLocation(from string) string {
	if !core.IsLocalPath(from) {
		return "/"
	}
	u, err := url.Parse(from)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	if u.Path == LoginPath {
		return "/"
	}
	return from
}
