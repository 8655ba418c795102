package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core/guard"
	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/session"
	"github.com/codetrail/codetrail/services/identity/local"
	"github.com/codetrail/codetrail/storage/cache/inmem"
)

// signIn starts p from a saved session token, or logs email in when there is none.
// A token that no longer restores leaves p signed out.
func (cli *commandLine) signIn(ctx context.Context, p *localidp.Provider, email, pwd, saved string) error {
	if err := p.Start(ctx, saved); err != nil {
		return errors.Wrap(err, "starting identity provider")
	}
	if saved != "" {
		return nil
	}
	if _, err := p.Login(ctx, identity.Credentials{Email: email, Password: pwd}); err != nil {
		return providerError(err, "logging in")
	}
	return nil
}

// providerError shows provider codes the way the login form does.
func providerError(err error, doing string) error {
	switch errors.Cause(err) {
	case identity.ErrInvalidCredential, identity.ErrUserNotFound, identity.ErrUserDisabled, identity.ErrNotSignedIn:
		return errors.New(identity.Message(err))
	}
	return errors.Wrap(err, doing)
}

// check signs in and prints what the route guard decides for path.
func (cli *commandLine) check(email, pwd, saved, path string) error {
	out, err := cli.guard(email, pwd, saved, path)
	if err != nil {
		return err
	}
	if out.Redirect != "" {
		fmt.Fprintf(cli.out, "%s -> %s\n", out.Decision, out.Redirect)
	} else {
		fmt.Fprintln(cli.out, out.Decision)
	}
	return nil
}

func (cli *commandLine) guard(email, pwd, saved, path string) (guard.Outcome, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cli.timeout)
	defer cancel()

	res := resolver.New(cli.fetcher, inmemcache.New(), resolver.Options{
		Timeout: cli.conf.RoleService.Timeout,
		Backoff: cli.conf.RoleService.RetryBackoff,
	})
	defer res.Close()

	provider := localidp.New(cli.usrSvc, cli.tokens)
	sess := session.New(provider, res, guard.DefaultRoutes())
	defer sess.Close()

	changed := make(chan struct{}, 1)
	unsubscribe := sess.Subscribe(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if err := cli.signIn(ctx, provider, email, pwd, saved); err != nil {
		return guard.Outcome{}, err
	}

	for {
		out := sess.Guard(ctx, path)
		if out.Decision != guard.Checking {
			return out, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return out, nil
		}
	}
}
