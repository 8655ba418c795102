package main

import (
	"context"
	"fmt"

	"github.com/codetrail/codetrail/core/role"
)

// addUser updates or creates a user with role r.
func (cli *commandLine) addUser(name, email, pwd string, r role.Role) error {
	usr, err := cli.usrSvc.AddUser(context.Background(), name, email, pwd, r)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s is now an active %s\n", usr.Email, usr.Role)
	return nil
}
