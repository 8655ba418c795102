package main

import (
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/identity"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/role"
	"github.com/codetrail/codetrail/core/user"
	"github.com/codetrail/codetrail/services/identity/token"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf    *core.Config
	out     io.Writer
	usrSvc  *user.Service
	fetcher resolver.Fetcher
	tokens  *token.Manager
	timeout time.Duration // of a guard check
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL [-role ROLE] - create or update a user; the password is prompted")
	fmt.Fprintln(cli.out, "  setrole -email EMAIL -role ROLE              - change a user's role")
	fmt.Fprintln(cli.out, "  role -email EMAIL                            - print the role the role service resolves")
	fmt.Fprintln(cli.out, "  login -email EMAIL                           - print a session token; the password is prompted")
	fmt.Fprintln(cli.out, "  profile (-email EMAIL | -token TOKEN) [-name NAME] [-avatar URL]")
	fmt.Fprintln(cli.out, "                                               - change the signed-in user's profile")
	fmt.Fprintln(cli.out, "  check (-email EMAIL | -token TOKEN) -path PATH")
	fmt.Fprintln(cli.out, "                                               - sign in and run the route guard for PATH")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                       - run a goose command (up, down, status, ...)")
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

// passwordUnless prompts for a password when no saved token is given.
func (cli *commandLine) passwordUnless(saved string) (string, error) {
	if saved != "" {
		return "", nil
	}
	return cli.readPassword()
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The user's display name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email. The password will be prompted next.")
	addUserRole := addUserCmd.String("role", role.Admin.String(), "One of student, teacher, admin.")

	setRoleCmd := flag.NewFlagSet("setrole", flag.ContinueOnError)
	setRoleEmail := setRoleCmd.String("email", "", "The user's email.")
	setRoleRole := setRoleCmd.String("role", "", "One of student, teacher, admin.")

	roleCmd := flag.NewFlagSet("role", flag.ContinueOnError)
	roleEmail := roleCmd.String("email", "", "The email to resolve.")

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginEmail := loginCmd.String("email", "", "The email to log in with. The password will be prompted next.")

	profileCmd := flag.NewFlagSet("profile", flag.ContinueOnError)
	profileEmail := profileCmd.String("email", "", "The email to log in with. The password will be prompted next.")
	profileToken := profileCmd.String("token", "", "A session token printed by login, instead of -email.")
	profileName := profileCmd.String("name", "", "The new display name; empty keeps the current one.")
	profileAvatar := profileCmd.String("avatar", "", "The new avatar URL; empty removes it.")

	checkCmd := flag.NewFlagSet("check", flag.ContinueOnError)
	checkEmail := checkCmd.String("email", "", "The email to log in with. The password will be prompted next.")
	checkToken := checkCmd.String("token", "", "A session token printed by login, instead of -email.")
	checkPath := checkCmd.String("path", "", "The location to guard, e.g. /dashboard/admin.")

	for _, fs := range []*flag.FlagSet{addUserCmd, setRoleCmd, roleCmd, loginCmd, profileCmd, checkCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		r, err := role.Parse(*addUserRole)
		if err != nil {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserEmail, pwd, r)

	case "setrole":
		if err := setRoleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setRoleEmail == "" || *setRoleRole == "" {
			setRoleCmd.Usage()
			return errHelp
		}
		return cli.setRole(*setRoleEmail, *setRoleRole)

	case "role":
		if err := roleCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *roleEmail == "" {
			roleCmd.Usage()
			return errHelp
		}
		return cli.role(*roleEmail)

	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginEmail == "" {
			loginCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		return cli.login(*loginEmail, pwd)

	case "profile":
		if err := profileCmd.Parse(args[2:]); err != nil {
			return err
		}
		if (*profileEmail == "") == (*profileToken == "") {
			profileCmd.Usage()
			return errHelp
		}
		pwd, err := cli.passwordUnless(*profileToken)
		if err != nil {
			return err
		}
		return cli.profile(*profileEmail, pwd, *profileToken, identity.Profile{
			DisplayName: *profileName,
			AvatarURL:   *profileAvatar,
		})

	case "check":
		if err := checkCmd.Parse(args[2:]); err != nil {
			return err
		}
		if (*checkEmail == "") == (*checkToken == "") || *checkPath == "" {
			checkCmd.Usage()
			return errHelp
		}
		pwd, err := cli.passwordUnless(*checkToken)
		if err != nil {
			return err
		}
		return cli.check(*checkEmail, pwd, *checkToken, *checkPath)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}
