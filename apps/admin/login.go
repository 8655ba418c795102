package main

import (
	"context"
	"fmt"

	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/services/identity/local"
)

// login prints a session token that check and profile accept with -token.
func (cli *commandLine) login(email, pwd string) error {
	p := localidp.New(cli.usrSvc, cli.tokens)
	if err := cli.signIn(context.Background(), p, email, pwd, ""); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, p.Token())
	return nil
}

// profile changes the display name and avatar of the signed-in user.
func (cli *commandLine) profile(email, pwd, saved string, prof identity.Profile) error {
	ctx := context.Background()
	p := localidp.New(cli.usrSvc, cli.tokens)
	if err := cli.signIn(ctx, p, email, pwd, saved); err != nil {
		return err
	}

	idn, err := p.UpdateProfile(ctx, prof)
	if err != nil {
		return providerError(err, "updating profile")
	}
	fmt.Fprintf(cli.out, "%s is now %q", idn.Email, idn.DisplayName)
	if idn.AvatarURL != "" {
		fmt.Fprintf(cli.out, " (%s)", idn.AvatarURL)
	}
	fmt.Fprintln(cli.out)
	return nil
}
