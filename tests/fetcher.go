package testutil

import (
	"context"
	"sync"

	"github.com/codetrail/codetrail/core/role"
)

// FetchResult is one scripted answer of a Fetcher.
type FetchResult struct {
	Role role.Role
	Err  error
}

// Fetcher is a scripted role service. Answers are consumed in order, the last one repeats.
// A blocked email holds every call until released, whatever the caller's context says.
type Fetcher struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string][]FetchResult
	gates   map[string]chan struct{}
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		calls:   make(map[string]int),
		results: make(map[string][]FetchResult),
		gates:   make(map[string]chan struct{}),
	}
}

func (f *Fetcher) Script(email string, results ...FetchResult) *Fetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[email] = results
	return f
}

// Block holds calls for email until release is called.
func (f *Fetcher) Block(email string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[email] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, email)
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *Fetcher) Calls(email string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[email]
}

func (f *Fetcher) FetchRole(_ context.Context, email string) (role.Role, error) {
	f.mu.Lock()
	n := f.calls[email]
	f.calls[email]++
	gate := f.gates[email]
	var res FetchResult
	if scripted := f.results[email]; len(scripted) > 0 {
		if n >= len(scripted) {
			n = len(scripted) - 1
		}
		res = scripted[n]
	} else {
		res = FetchResult{Err: errNoScript}
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return res.Role, res.Err
}

type scriptErr string

func (e scriptErr) Error() string { return string(e) }

const errNoScript = scriptErr("testutil: no scripted role")
