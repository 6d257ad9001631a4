package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ead/core/discipline"
	"github.com/trezcool/ead/core/media"
	"github.com/trezcool/ead/core/user"
	dummydb "github.com/trezcool/ead/storage/database/dummy"
	testutil "github.com/trezcool/ead/tests"
)

var usrRepo user.Repository

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	usrRepo = dummydb.NewUserRepository(dummydb.Open())

	out := new(bytes.Buffer)
	return &commandLine{
		out:      out,
		resolver: media.NewResolver(media.Options{}),
		usrSvc:   user.NewService(usrRepo),
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case err == nil:
		if tt.wantErr != nil || tt.wantErrStr != "" {
			t.Errorf("cli.run() error = nil, wantErr %v %s", tt.wantErr, tt.wantErrStr)
		}
	case tt.wantErr != nil:
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantErrStr != "":
		if !strings.Contains(err.Error(), tt.wantErrStr) {
			t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
		}
	default:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func mockPassword(pwd string) func() {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	return func() { readPasswordFunc = orig }
}

func Test_commandLine_root(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	origMigrate := migrateFunc
	defer func() { migrateFunc = origMigrate }()
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
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_ebook_pages", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, usrRepo, "Old", "old", "old@test.cd", "0ld-p4ss", []string{user.RoleStudent}, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no identifier", args: []string{"adduser", "--name", "Nobody"}, extra: extra{pwd: "s3cr3t!"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-u", "newbie"}, wantErr: errHelp},
		{name: "unknown role", args: []string{"adduser", "-u", "newbie", "-r", "teacher:"}, extra: extra{pwd: "s3cr3t!"}, wantErr: errUnknownRoles},
		{name: "create", args: []string{"adduser", "-u", "Newbie", "-e", "newbie@test.cd", "--name", "New Bie", "--admin"}, extra: extra{pwd: "s3cr3t!"}},
		{name: "reactivate", args: []string{"adduser", "-e", "OLD@test.cd", "-r", user.RolePolo}, extra: extra{pwd: "n3w-p4ss"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd := ""
			if e, ok := tt.extra.(extra); ok {
				pwd = e.pwd
			}
			defer mockPassword(pwd)()
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	newbie, err := usrRepo.GetUserByUsernameOrEmail(ctx, "newbie")
	require.NoError(t, err)
	assert.Equal(t, "New Bie", newbie.Name)
	assert.Equal(t, "newbie@test.cd", newbie.Email)
	assert.True(t, newbie.IsAdmin())
	assert.NoError(t, newbie.CheckPassword("s3cr3t!"))

	old, err := usrRepo.GetUserByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.True(t, old.IsActive)
	assert.ElementsMatch(t, []string{user.RoleStudent, user.RolePolo}, old.Roles)
	assert.NoError(t, old.CheckPassword("n3w-p4ss"))
}

func Test_commandLine_setPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"setpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"setpassword", "-u", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"setpassword", "-u", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "set with username", args: []string{"setpassword", "-u", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "set with email", args: []string{"setpassword", "--username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pwd := ""
			if e, ok := tt.extra.(extra); ok {
				pwd = e.pwd
			}
			defer mockPassword(pwd)()

			err := cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUserByID(context.Background(), usr.ID)
				require.NoError(t, err)
				assert.NoError(t, refreshedUsr.CheckPassword(pwd))
			}
		})
	}
}

func Test_commandLine_evaluate(t *testing.T) {
	tests := []struct {
		cliTest
		wantProgress int
		wantComplete bool
	}{
		{cliTest: cliTest{name: "empty", args: []string{"evaluate"}}},
		{
			cliTest:      cliTest{name: "flags", args: []string{"evaluate", "--videos", "2", "--ebook", "--simulado", "5"}},
			wantProgress: 75,
		},
		{
			cliTest: cliTest{name: "json", args: []string{"evaluate", "--json",
				`{"videoCount":1,"hasEbook":true,"hasInteractiveEbook":false,"simuladoQuestionCount":6,"avaliacaoFinalQuestionCount":10}`}},
			wantProgress: 100, wantComplete: true,
		},
		{
			cliTest: cliTest{name: "json: missing field", args: []string{"evaluate", "--json", `{"videoCount":1}`},
				wantErr: discipline.ErrInvalidSnapshot},
		},
		{
			cliTest: cliTest{name: "json: malformed", args: []string{"evaluate", "--json", `{"videoCount":`},
				wantErr: discipline.ErrInvalidSnapshot},
		},
		{
			cliTest: cliTest{name: "negative count", args: []string{"evaluate", "--videos", "-1"},
				wantErr: discipline.ErrInvalidSnapshot},
		},
		{
			cliTest: cliTest{name: "json & flags", args: []string{"evaluate", "--videos", "1", "--json", `{}`},
				wantErrStr: "none of the others can be"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, out := setup(t)
			err := cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err != nil {
				return
			}

			var report discipline.Report
			require.NoError(t, json.Unmarshal(out.Bytes(), &report))
			assert.Equal(t, tt.wantProgress, report.Progress)
			assert.Equal(t, tt.wantComplete, report.IsComplete)
			assert.Len(t, report.Requirements, 4)
		})
	}
}

func Test_commandLine_resolve(t *testing.T) {
	tests := []struct {
		cliTest
		want      media.Descriptor
		wantWarns bool
	}{
		{cliTest: cliTest{name: "no url", args: []string{"resolve"}, wantErrStr: "accepts 1 arg(s)"}},
		{
			cliTest: cliTest{name: "youtube", args: []string{"resolve", "https://youtu.be/dQw4w9WgXcQ"}},
			want:    media.Resolve("https://youtu.be/dQw4w9WgXcQ", ""),
		},
		{
			cliTest:   cliTest{name: "hint mismatch", args: []string{"resolve", "https://vimeo.com/76979871", "--source", "youtube"}},
			want:      media.Resolve("https://vimeo.com/76979871", media.SourceYouTube),
			wantWarns: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, out := setup(t)
			err := cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err != nil {
				return
			}

			output := out.String()
			assert.Equal(t, tt.wantWarns, strings.HasPrefix(output, "warning:"))
			if tt.wantWarns { // drop the warning line
				output = output[strings.Index(output, "\n")+1:]
			}
			var d media.Descriptor
			require.NoError(t, json.Unmarshal([]byte(output), &d))
			assert.Equal(t, tt.want, d)
		})
	}
}
