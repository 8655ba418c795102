// Package localidp is an identity provider backed by the CodeTrail user directory.
package localidp

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/core/user"
	"github.com/codetrail/codetrail/services/identity/token"
)

// Provider holds one signed-in principal at a time.
// It stays loading until Start delivers the first identity event.
type Provider struct {
	users  *user.Service
	tokens *token.Manager
	hub    identity.Hub

	mu      sync.RWMutex
	loading bool
	userID  string
	current *identity.Identity
	token   string
}

var _ identity.Provider = (*Provider)(nil)

func New(users *user.Service, tokens *token.Manager) *Provider {
	return &Provider{users: users, tokens: tokens, loading: true}
}

// Start restores a persisted session token (may be empty) and fires the first event.
// An invalid or stale token starts an anonymous session.
func (p *Provider) Start(ctx context.Context, persisted string) error {
	var idn *identity.Identity
	var userID string

	if persisted != "" {
		if claims, err := p.tokens.Parse(persisted); err == nil {
			if usr, err := p.users.GetByID(ctx, claims.Subject); err == nil && usr.IsActive {
				i := usr.Identity()
				idn, userID = &i, usr.ID
			} else if err != nil && errors.Cause(err) != user.ErrNotFound {
				return errors.Wrap(err, "restoring session")
			}
		}
	}

	if idn == nil {
		persisted = ""
	}
	p.set(userID, idn, persisted)
	return nil
}

func (p *Provider) Subscribe(fn func(*identity.Identity)) func() {
	return p.hub.Subscribe(fn)
}

func (p *Provider) Loading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading
}

func (p *Provider) Current() *identity.Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil
	}
	idn := *p.current
	return &idn
}

// Token is the signed session of the current principal, empty when signed out.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

func (p *Provider) Login(ctx context.Context, creds identity.Credentials) (identity.Identity, error) {
	creds.Email = core.CleanString(creds.Email, true /* lower */)
	if err := core.Validate.Struct(creds); err != nil {
		return identity.Identity{}, err
	}

	usr, err := p.users.Authenticate(ctx, creds.Email, creds.Password)
	if err != nil {
		return identity.Identity{}, MapError(err)
	}
	return p.signIn(usr)
}

// Register creates an account and signs it in.
func (p *Provider) Register(ctx context.Context, nu user.NewUser) (identity.Identity, error) {
	usr, err := p.users.Register(ctx, nu)
	if err != nil {
		return identity.Identity{}, MapError(err)
	}
	return p.signIn(usr)
}

// UpdateProfile changes the current principal's profile and re-announces it.
func (p *Provider) UpdateProfile(ctx context.Context, prof identity.Profile) (identity.Identity, error) {
	p.mu.RLock()
	userID := p.userID
	p.mu.RUnlock()
	if userID == "" {
		return identity.Identity{}, identity.ErrNotSignedIn
	}

	usr, err := p.users.UpdateProfile(ctx, userID, user.UpdateProfile{Name: &prof.DisplayName, AvatarURL: &prof.AvatarURL})
	if err != nil {
		return identity.Identity{}, MapError(err)
	}
	return p.signIn(usr)
}

func (p *Provider) Logout(context.Context) error {
	p.set("", nil, "")
	return nil
}

func (p *Provider) signIn(usr user.User) (identity.Identity, error) {
	idn := usr.Identity()
	ss, err := p.tokens.Issue(usr.ID, idn)
	if err != nil {
		return identity.Identity{}, err
	}
	p.set(usr.ID, &idn, ss)
	return idn, nil
}

func (p *Provider) set(userID string, idn *identity.Identity, ss string) {
	p.mu.Lock()
	p.loading = false
	p.userID = userID
	p.current = idn
	p.token = ss
	p.mu.Unlock()

	p.hub.Publish(idn)
}

// MapError turns directory errors into provider codes; validation errors pass through.
func MapError(err error) error {
	switch errors.Cause(err) {
	case user.ErrNotFound:
		return identity.ErrUserNotFound
	case user.ErrInvalidPassword:
		return identity.ErrInvalidCredential
	case user.ErrInactive:
		return identity.ErrUserDisabled
	case user.ErrEmailExists:
		return identity.ErrEmailInUse
	}
	return err
}
