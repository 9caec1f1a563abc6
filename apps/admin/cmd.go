package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sqlx.DB
	validate *validator.Validate
	accSvc   account.Service
	acadSvc  academic.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  addadmin -email EMAIL [-first NAME] [-last NAME] [-gender M|F] - create an admin account or reset its password")
	fmt.Println("  resetpassword -email EMAIL - reset an account's password")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, up-to, down, down-to, redo, status, version...)")
	fmt.Println("  seed -file FILE - load courses, sessions, accounts & subjects from a YAML file")
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addAdminCmd := flag.NewFlagSet("addadmin", flag.ExitOnError)
	addAdminEmail := addAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	addAdminFirst := addAdminCmd.String("first", "Admin", "The admin's first name.")
	addAdminLast := addAdminCmd.String("last", "Admin", "The admin's last name.")
	addAdminGender := addAdminCmd.String("gender", account.GenderMale, "The admin's gender: M or F.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")

	seedCmd := flag.NewFlagSet("seed", flag.ExitOnError)
	seedFile := seedCmd.String("file", "", "The YAML fixtures file.")

	switch args[1] {
	case "addadmin":
		if err := addAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addAdminEmail == "" {
			addAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(addAdminCmd)
		if err != nil {
			return err
		}
		return cli.addAdmin(account.NewAccount{
			Email:           *addAdminEmail,
			Password:        pwd,
			PasswordConfirm: pwd,
			Role:            account.RoleAdmin,
			FirstName:       *addAdminFirst,
			LastName:        *addAdminLast,
			Gender:          *addAdminGender,
		})

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordEmail, pwd)

	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *seedFile == "" {
			seedCmd.Usage()
			return errHelp
		}
		return cli.seedFile(*seedFile)

	default:
		cli.printUsage()
		return errHelp
	}
}
