package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nae-imUam/coaching-app-api/core/owner"
	"github.com/nae-imUam/coaching-app-api/tests"
)

func setup(t *testing.T) *commandLine {
	repos := testutil.OpenRepos(t)
	return &commandLine{ownerRepo: repos.Owners}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	pwd        string
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		tt := tt
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			readPasswordFunc = func(fd int) ([]byte, error) {
				return []byte(tt.pwd), nil
			}

			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				require.NoError(t, err)
				if check != nil {
					check(t, tt)
				}
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var ran []string
	migrateFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		ran = append(ran, command)
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "1"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "0"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_remarks", "sql"}},
	}
	runCLITests(t, cli, tests, nil)
	assert.Equal(t, []string{"up", "up-to", "down", "down-to", "redo", "status", "create"}, ran)
}

func Test_commandLine_addOwner(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no args", args: []string{"addowner"}, wantErr: errHelp},
		{name: "missing institute", args: []string{"addowner", "-phone", "9811111111", "-name", "Ravi"}, pwd: "secret", wantErr: errHelp},
		{name: "no password", args: []string{"addowner", "-phone", "9811111111", "-name", "Ravi", "-institute", "Ravi Classes"}, wantErr: errHelp},
		{name: "create", args: []string{"addowner", "-phone", "98111 11111", "-name", " Ravi ", "-institute", "Ravi Classes", "-email", "Ravi@Test.in"}, pwd: "secret"},
	}
	runCLITests(t, cli, tests, nil)

	o, err := cli.ownerRepo.GetOwner(ctx, owner.GetFilter{Phone: "+919811111111"})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", o.Name)
	assert.Equal(t, "ravi@test.in", o.Email)
	assert.True(t, o.IsActive)
	assert.NoError(t, o.CheckPassword("secret"))

	t.Run("reactivates an existing owner", func(t *testing.T) {
		o.IsActive = false
		_, err := cli.ownerRepo.UpdateOwner(ctx, o)
		require.NoError(t, err)

		readPasswordFunc = func(fd int) ([]byte, error) { return []byte("other"), nil }
		err = cli.run([]string{"admin", "addowner", "-phone", "+919811111111", "-name", "Ravi K", "-institute", "Ravi Classes"})
		require.NoError(t, err)

		updated, err := cli.ownerRepo.GetOwner(ctx, owner.GetFilter{ID: o.ID})
		require.NoError(t, err)
		assert.True(t, updated.IsActive)
		assert.Equal(t, "Ravi K", updated.Name)
		assert.Equal(t, "ravi@test.in", updated.Email)
		assert.NoError(t, updated.CheckPassword("other"))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	o := testutil.CreateOwner(t, cli.ownerRepo, "+919811111111", "Ravi", true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "phone but no password", args: []string{"resetpassword", "-phone", "9811111111"}, wantErr: errHelp},
		{name: "owner not found", args: []string{"resetpassword", "-phone", "9899999999"}, pwd: "lol", wantErr: owner.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-phone", "9811111111"}, pwd: "lmao"},
	}
	runCLITests(t, cli, tests, func(t *testing.T, tt cliTest) {
		refreshed, err := cli.ownerRepo.GetOwner(context.Background(), owner.GetFilter{ID: o.ID})
		require.NoError(t, err)
		assert.NoError(t, refreshed.CheckPassword(tt.pwd))
	})
}
