// Package resolver maps an identity's email to its authoritative role.
//
// A Resolver issues at most one fetch per email at a time, retries a failed
// fetch once and then settles into an error state until the email is
// invalidated or refetched. Results are kept in a Cache keyed by email.
package resolver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/role"
)

// maxAttempts is the initial fetch plus one retry.
const maxAttempts = 2

var ErrClosed = errors.New("resolver: closed")

type (
	// Fetcher asks the role service for the role of email.
	Fetcher interface {
		FetchRole(ctx context.Context, email string) (role.Role, error)
	}

	// FetcherFunc adapts a function to Fetcher.
	FetcherFunc func(ctx context.Context, email string) (role.Role, error)

	// Cache stores resolved roles by email. Only the Resolver writes to it.
	Cache interface {
		Get(ctx context.Context, email string) (role.Role, bool, error)
		Set(ctx context.Context, email string, r role.Role) error
		Delete(ctx context.Context, email string) error
		Purge(ctx context.Context) error
	}

	// State is what dependants observe. Role is None unless resolved.
	State struct {
		Role    role.Role
		Loading bool
		Err     error
	}

	Options struct {
		Timeout time.Duration // per attempt; 0 means no limit
		Backoff time.Duration // pause before the retry
		Logger  core.Logger
	}
)

func (f FetcherFunc) FetchRole(ctx context.Context, email string) (role.Role, error) {
	return f(ctx, email)
}

// Resolved reports whether s carries a role.
func (s State) Resolved() bool { return s.Role != role.None }

func (s State) MarshalJSON() ([]byte, error) {
	v := struct {
		Role    role.Role `json:"role"`
		Loading bool      `json:"loading"`
		Error   string    `json:"error,omitempty"`
	}{Role: s.Role, Loading: s.Loading}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return json.Marshal(v)
}

type flight struct {
	cancel context.CancelFunc
	done   chan struct{}

	// set before done is closed
	state    State
	detached bool
}

type version struct {
	epoch uint64
	n     uint64
}

// keyLock serialises the cache writes of one email.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

type Resolver struct {
	fetcher Fetcher
	cache   Cache
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// cache I/O never runs under mu. Writes of one email hold its key lock,
	// Purge holds io exclusively.
	io       sync.RWMutex
	mu       sync.Mutex
	closed   bool
	epoch    uint64
	versions map[string]uint64
	flights  map[string]*flight
	failures map[string]error
	settled  map[string]role.Role // resolved roles the cache refused
	keyLocks map[string]*keyLock
	nextSub  int
	subs     map[int]func(email string)
}

func New(fetcher Fetcher, cache Cache, opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{
		fetcher:  fetcher,
		cache:    cache,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		versions: make(map[string]uint64),
		flights:  make(map[string]*flight),
		failures: make(map[string]error),
		settled:  make(map[string]role.Role),
		keyLocks: make(map[string]*keyLock),
		subs:     make(map[int]func(string)),
	}
}

// Key normalises an email into a cache key.
func Key(email string) string {
	return core.CleanString(email, true /* lower */)
}

// Resolve reports the state of email without blocking on the role service.
// An unknown email starts a fetch. An empty email performs no call.
func (r *Resolver) Resolve(ctx context.Context, email string) State {
	email = Key(email)
	if email == "" {
		return State{}
	}

	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return State{Err: ErrClosed}
		}
		if st, ok := r.pendingLocked(email); ok {
			r.mu.Unlock()
			return st
		}
		ver := r.versionLocked(email)
		r.mu.Unlock()

		rl, found, err := r.cache.Get(ctx, email)
		if err != nil {
			r.opts.Logger.Warn("resolver: reading role cache", errors.Wrap(err, email))
			found = false
		}

		r.mu.Lock()
		if r.versionLocked(email) != ver {
			// settled or invalidated while reading the cache
			r.mu.Unlock()
			continue
		}
		if found {
			r.mu.Unlock()
			return State{Role: rl}
		}
		r.startLocked(email)
		r.mu.Unlock()
		return State{Loading: true}
	}
}

// Wait resolves email, blocking until the state settles or ctx ends.
// When ctx ends first the returned state is still loading.
func (r *Resolver) Wait(ctx context.Context, email string) State {
	email = Key(email)
	for {
		st := r.Resolve(ctx, email)
		if !st.Loading {
			return st
		}

		r.mu.Lock()
		f, ok := r.flights[email]
		r.mu.Unlock()
		if !ok {
			continue
		}

		select {
		case <-f.done:
			if !f.detached {
				return f.state
			}
		case <-ctx.Done():
			return State{Loading: true}
		}
	}
}

// Peek reports the state of email without starting anything.
func (r *Resolver) Peek(ctx context.Context, email string) State {
	email = Key(email)
	if email == "" {
		return State{}
	}
	r.mu.Lock()
	st, ok := r.pendingLocked(email)
	r.mu.Unlock()
	if ok {
		return st
	}
	if rl, found, err := r.cache.Get(ctx, email); err == nil && found {
		return State{Role: rl}
	}
	return State{}
}

// Refetch forgets what is known about email and fetches it again.
func (r *Resolver) Refetch(ctx context.Context, email string) (State, error) {
	email = Key(email)
	if email == "" {
		return State{}, nil
	}

	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return State{Err: ErrClosed}, ErrClosed
	}

	err := r.forget(ctx, email)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return State{Err: ErrClosed}, ErrClosed
	}
	if _, ok := r.flights[email]; !ok {
		r.startLocked(email)
	}
	r.mu.Unlock()

	r.notify(email)
	return State{Loading: true}, err
}

// Invalidate drops the cached role, the settled error and any in-flight fetch of email.
// A response of the dropped fetch is discarded when it arrives.
func (r *Resolver) Invalidate(ctx context.Context, email string) error {
	email = Key(email)
	if email == "" {
		return nil
	}

	err := r.forget(ctx, email)
	r.notify(email)
	return err
}

// Purge invalidates every email.
func (r *Resolver) Purge(ctx context.Context) error {
	r.mu.Lock()
	for email, f := range r.flights {
		r.detachLocked(email, f)
	}
	r.failures = make(map[string]error)
	r.settled = make(map[string]role.Role)
	r.versions = make(map[string]uint64)
	r.epoch++
	r.mu.Unlock()

	r.io.Lock()
	err := r.cache.Purge(ctx)
	r.io.Unlock()

	// readers that looked at the cache before it was purged start over
	r.mu.Lock()
	r.epoch++
	r.mu.Unlock()

	r.notify("")
	return errors.Wrap(err, "purging role cache")
}

// Subscribe registers fn to be called with the email whose state changed.
// An empty email means every email changed.
func (r *Resolver) Subscribe(fn func(email string)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Close abandons in-flight fetches and waits for their goroutines.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}

func (r *Resolver) pendingLocked(email string) (State, bool) {
	if _, ok := r.flights[email]; ok {
		return State{Loading: true}, true
	}
	if err, ok := r.failures[email]; ok {
		return State{Err: err}, true
	}
	if rl, ok := r.settled[email]; ok {
		return State{Role: rl}, true
	}
	return State{}, false
}

func (r *Resolver) versionLocked(email string) version {
	return version{epoch: r.epoch, n: r.versions[email]}
}

// forget detaches the flight of email, drops its settled state and deletes its cached role.
// The version moves before and after the delete so no reader keeps what it saw in between.
func (r *Resolver) forget(ctx context.Context, email string) error {
	r.mu.Lock()
	if f, ok := r.flights[email]; ok {
		r.detachLocked(email, f)
	}
	delete(r.failures, email)
	delete(r.settled, email)
	r.versions[email]++
	r.mu.Unlock()

	r.io.RLock()
	unlock := r.lockKey(email)
	err := r.cache.Delete(ctx, email)
	unlock()
	r.io.RUnlock()

	r.mu.Lock()
	r.versions[email]++
	r.mu.Unlock()
	return errors.Wrap(err, "deleting cached role")
}

func (r *Resolver) lockKey(email string) (unlock func()) {
	r.mu.Lock()
	kl, ok := r.keyLocks[email]
	if !ok {
		kl = new(keyLock)
		r.keyLocks[email] = kl
	}
	kl.refs++
	r.mu.Unlock()

	kl.mu.Lock()
	return func() {
		kl.mu.Unlock()
		r.mu.Lock()
		if kl.refs--; kl.refs == 0 {
			delete(r.keyLocks, email)
		}
		r.mu.Unlock()
	}
}

func (r *Resolver) detachLocked(email string, f *flight) {
	delete(r.flights, email)
	f.cancel()
}

func (r *Resolver) startLocked(email string) {
	ctx, cancel := context.WithCancel(r.ctx)
	f := &flight{cancel: cancel, done: make(chan struct{})}
	r.flights[email] = f

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		rl, err := r.fetch(ctx, email)
		r.settle(email, f, rl, err)
	}()
}

func (r *Resolver) fetch(ctx context.Context, email string) (role.Role, error) {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 && r.opts.Backoff > 0 {
			select {
			case <-time.After(r.opts.Backoff):
			case <-ctx.Done():
				return role.None, errors.Wrap(ctx.Err(), "fetching role")
			}
		}

		var rl role.Role
		rl, err = r.attempt(ctx, email)
		if err == nil {
			return rl, nil
		}
		if ctx.Err() != nil {
			// detached or closed, nobody is listening
			return role.None, err
		}
		r.opts.Logger.Warn("resolver: fetching role failed",
			errors.Wrapf(err, "attempt %d/%d", attempt, maxAttempts),
			map[string]interface{}{"email": email},
		)
	}
	return role.None, err
}

func (r *Resolver) attempt(ctx context.Context, email string) (role.Role, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	rl, err := r.fetcher.FetchRole(ctx, email)
	if err != nil {
		return role.None, errors.Wrap(err, "fetching role")
	}
	if !rl.IsValid() {
		return role.None, errors.Wrapf(role.ErrUnknown, "fetching role of %s", email)
	}
	return rl, nil
}

func (r *Resolver) isCurrent(email string, f *flight) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flights[email] == f
}

// settle records the outcome of f. The role is written to the cache under the key lock,
// so a concurrent forget deletes it only after it lands.
func (r *Resolver) settle(email string, f *flight, rl role.Role, err error) {
	r.io.RLock()
	unlock := r.lockKey(email)

	cached := false
	if err == nil && r.isCurrent(email, f) {
		if cErr := r.cache.Set(r.ctx, email, rl); cErr != nil {
			r.opts.Logger.Error("resolver: writing role cache", errors.Wrap(cErr, email))
		} else {
			cached = true
		}
	}

	r.mu.Lock()
	if cur, ok := r.flights[email]; !ok || cur != f {
		f.detached = true
		close(f.done)
		r.mu.Unlock()
		unlock()
		r.io.RUnlock()
		r.opts.Logger.Debug("resolver: discarding stale response", map[string]interface{}{"email": email})
		return
	}

	delete(r.flights, email)
	delete(r.failures, email)
	delete(r.settled, email)
	r.versions[email]++
	if err != nil {
		r.failures[email] = err
		f.state = State{Err: err}
	} else {
		f.state = State{Role: rl}
		if !cached {
			// keep one fetch per email even when the cache is down
			r.settled[email] = rl
		}
	}
	close(f.done)
	r.mu.Unlock()
	unlock()
	r.io.RUnlock()

	r.notify(email)
}

func (r *Resolver) notify(email string) {
	r.mu.Lock()
	fns := make([]func(string), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(email)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}
