package main

import (
	"context"
	"fmt"

	"github.com/codetrail/codetrail/core/user"
)

func (cli *commandLine) setRole(email, r string) error {
	usr, err := cli.usrSvc.ChangeRole(context.Background(), user.ChangeRole{Email: email, Role: r})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is now a %s\n", usr.Email, usr.Role)
	return nil
}

func (cli *commandLine) role(email string) error {
	r, err := cli.fetcher.FetchRole(context.Background(), email)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, r)
	return nil
}
