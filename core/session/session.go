// Package session keeps the signed-in identity and its role in step.
//
// A Session re-keys the role resolver whenever the identity provider
// announces a new principal, and answers guard checks from a consistent
// snapshot of both.
package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core/dashboard"
	"github.com/codetrail/codetrail/core/guard"
	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/role"
)

// Snapshot is what one guard evaluation sees.
type Snapshot struct {
	IdentityLoading bool               `json:"identity_loading"`
	Identity        *identity.Identity `json:"identity"`
	Role            resolver.State     `json:"role"`
}

type Session struct {
	provider identity.Provider
	resolver *resolver.Resolver
	routes   *guard.Routes

	mu       sync.Mutex
	identity *identity.Identity
	email    string
	nextSub  int
	subs     map[int]func()
	unsubs   []func()
}

func New(provider identity.Provider, res *resolver.Resolver, routes *guard.Routes) *Session {
	if routes == nil {
		routes = guard.DefaultRoutes()
	}
	s := &Session{
		provider: provider,
		resolver: res,
		routes:   routes,
		subs:     make(map[int]func()),
	}
	s.unsubs = append(s.unsubs,
		provider.Subscribe(s.onIdentity),
		res.Subscribe(s.onRole),
	)
	if idn := provider.Current(); idn != nil {
		s.onIdentity(idn)
	}
	return s
}

func (s *Session) onIdentity(idn *identity.Identity) {
	var email string
	if idn != nil {
		email = resolver.Key(idn.Email)
	}

	s.mu.Lock()
	previous := s.email
	s.identity = idn
	s.email = email
	s.mu.Unlock()

	ctx := context.Background()
	// the role of the previous email is never reused, a late answer for it is dropped
	if previous != "" && previous != email {
		_ = s.resolver.Invalidate(ctx, previous)
	}
	if email != "" {
		s.resolver.Resolve(ctx, email)
	}
	s.notify()
}

// onRole forwards resolver changes that concern the current email only.
func (s *Session) onRole(email string) {
	s.mu.Lock()
	current := s.email
	s.mu.Unlock()

	if email == "" || (current != "" && email == current) {
		s.notify()
	}
}

// Subscribe registers fn to be called whenever a guard check may have a new answer.
func (s *Session) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Session) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Snapshot reads the identity and the role of its email, starting a fetch if none is known.
func (s *Session) Snapshot(ctx context.Context) Snapshot {
	s.mu.Lock()
	var idn *identity.Identity
	if s.identity != nil {
		cp := *s.identity
		idn = &cp
	}
	email := s.email
	s.mu.Unlock()

	snap := Snapshot{IdentityLoading: s.provider.Loading(), Identity: idn}
	if email != "" {
		snap.Role = s.resolver.Resolve(ctx, email)
	}
	return snap
}

// Evaluate runs the guard for location with an explicit required role.
func (s *Session) Evaluate(ctx context.Context, location string, required role.Role) guard.Outcome {
	snap := s.Snapshot(ctx)
	return guard.Evaluate(guard.Input{
		IdentityLoading: snap.IdentityLoading,
		Identity:        snap.Identity,
		RoleLoading:     snap.Role.Loading,
		Role:            snap.Role.Role,
		RequiredRole:    required,
		Location:        location,
	})
}

// Guard runs the guard for location as declared in the route table.
// Undeclared locations are public.
func (s *Session) Guard(ctx context.Context, location string) guard.Outcome {
	route, ok := s.routes.Lookup(location)
	if !ok {
		return guard.Outcome{Decision: guard.Granted}
	}
	return s.Evaluate(ctx, location, route.RequiredRole)
}

// Dashboard composes the navigation of the current role, falling back to the student one.
func (s *Session) Dashboard(ctx context.Context) dashboard.Dashboard {
	return dashboard.ComposeOrDefault(s.Snapshot(ctx).Role.Role)
}

// Login signs in through the provider; the new identity arrives through the subscription.
func (s *Session) Login(ctx context.Context, creds identity.Credentials) (identity.Identity, error) {
	return s.provider.Login(ctx, creds)
}

// Logout forgets the identity and its role before anybody is told, then signs out of the provider.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	email := s.email
	s.identity = nil
	s.email = ""
	s.mu.Unlock()

	invErr := s.resolver.Invalidate(ctx, email)
	s.notify()

	if err := s.provider.Logout(ctx); err != nil {
		return errors.Wrap(err, "signing out")
	}
	return errors.Wrap(invErr, "invalidating role")
}

// Refetch re-resolves the role of the current identity.
func (s *Session) Refetch(ctx context.Context) (resolver.State, error) {
	s.mu.Lock()
	email := s.email
	s.mu.Unlock()

	if email == "" {
		return resolver.State{}, identity.ErrNotSignedIn
	}
	return s.resolver.Refetch(ctx, email)
}

// Close detaches the session from the provider and the resolver.
func (s *Session) Close() {
	s.mu.Lock()
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
