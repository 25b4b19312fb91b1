package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/nae-imUam/coaching-app-api/core/owner"
	"github.com/nae-imUam/coaching-app-api/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	migrateFunc      = database.Migrate  // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sql.DB
	ownerRepo owner.Repository
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Println("  addowner -phone PHONE -name NAME -institute INSTITUTE [-email EMAIL] - create or reactivate an owner account")
	fmt.Println("  resetpassword -phone PHONE - reset an owner's password")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addOwnerCmd := flag.NewFlagSet("addowner", flag.ExitOnError)
	addOwnerPhone := addOwnerCmd.String("phone", "", "The owner's phone number. The password will be prompted next.")
	addOwnerName := addOwnerCmd.String("name", "", "The owner's name.")
	addOwnerInstitute := addOwnerCmd.String("institute", "", "The institute's name.")
	addOwnerEmail := addOwnerCmd.String("email", "", "The owner's email (optional).")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordPhone := resetPasswordCmd.String("phone", "", "The owner's phone number. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "addowner":
		if err := addOwnerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addOwnerPhone == "" || *addOwnerName == "" || *addOwnerInstitute == "" {
			addOwnerCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addOwnerCmd.Usage()
			return errHelp
		}
		return cli.addOwner(*addOwnerPhone, *addOwnerName, *addOwnerInstitute, *addOwnerEmail, pwd)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordPhone == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordPhone, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
