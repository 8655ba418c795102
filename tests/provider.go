package testutil

import (
	"context"
	"sync"

	"github.com/codetrail/codetrail/core/identity"
)

// Provider is an identity provider driven by the test.
// It stays loading until the first Emit.
type Provider struct {
	hub identity.Hub

	mu      sync.Mutex
	loading bool
	current *identity.Identity
	logouts int
}

var _ identity.Provider = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{loading: true}
}

// Emit simulates an identity event; nil means signed out.
func (p *Provider) Emit(idn *identity.Identity) {
	p.mu.Lock()
	p.loading = false
	p.current = idn
	p.mu.Unlock()

	p.hub.Publish(idn)
}

func (p *Provider) Subscribe(fn func(*identity.Identity)) func() {
	return p.hub.Subscribe(fn)
}

func (p *Provider) Subscribers() int { return p.hub.Len() }

func (p *Provider) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

func (p *Provider) Current() *identity.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	idn := *p.current
	return &idn
}

// Login accepts any credentials.
func (p *Provider) Login(_ context.Context, creds identity.Credentials) (identity.Identity, error) {
	idn := identity.Identity{Email: creds.Email}
	p.Emit(&idn)
	return idn, nil
}

func (p *Provider) Logout(context.Context) error {
	p.mu.Lock()
	p.logouts++
	p.mu.Unlock()

	p.Emit(nil)
	return nil
}

func (p *Provider) Logouts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logouts
}
