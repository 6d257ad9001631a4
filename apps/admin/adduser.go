package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/user"
)

var errUnknownRoles = errors.New("unknown roles")

func (cli *commandLine) addUserCmd() *cobra.Command {
	var name, uname, email string
	var roles []string
	var isAdmin bool

	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create a user, or reactivate & reset an existing one. The password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if core.CleanString(uname) == "" && core.CleanString(email) == "" {
				_ = cmd.Help()
				return errHelp
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Help()
				return errHelp
			}
			if isAdmin {
				roles = append(roles, user.RoleAdminOwner)
			}
			if err = cli.requireDB(); err != nil {
				return err
			}

			usr, err := cli.addUser(context.Background(), name, uname, email, pwd, roles)
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "user %q saved (id: %s)\n", lo.Ternary(usr.Username != "", usr.Username, usr.Email), usr.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "The user's full name")
	cmd.Flags().StringVarP(&uname, "username", "u", "", "The user's username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "The user's email")
	cmd.Flags().StringSliceVarP(&roles, "role", "r", nil, "A role to grant (repeatable)")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "Grant the admin owner role")
	return cmd
}

// addUser updates or creates a user.User; existing users are reactivated.
func (cli *commandLine) addUser(ctx context.Context, name, uname, email, pwd string, roles []string) (user.User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	roles = lo.Uniq(roles)
	if unknown, _ := lo.Difference(roles, user.AllRoles); len(unknown) > 0 {
		return user.User{}, errors.Wrapf(errUnknownRoles, "%v", unknown)
	}

	usr, err := cli.findUser(ctx, uname, email)
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		return cli.usrSvc.Create(ctx, user.NewUser{
			Name:     lo.Ternary(name != "", name, lo.Ternary(uname != "", uname, email)),
			Username: uname,
			Email:    email,
			Password: pwd,
			Roles:    roles,
		})
	case err != nil:
		return user.User{}, err
	}

	active := true
	update := user.UpdateUser{
		Name:     lo.Ternary(name != "", name, usr.Name),
		Username: usr.Username,
		Email:    usr.Email,
		IsActive: &active,
		Password: pwd,
	}
	if len(roles) > 0 {
		update.Roles = lo.Uniq(append(usr.Roles, roles...))
	}
	return cli.usrSvc.Update(ctx, usr.ID, update)
}

func (cli *commandLine) findUser(ctx context.Context, identifiers ...string) (user.User, error) {
	for _, ident := range lo.Compact(identifiers) {
		usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, ident)
		if err == nil {
			return usr, nil
		}
		if errors.Cause(err) != user.ErrNotFound {
			return user.User{}, errors.Wrap(err, "finding user")
		}
	}
	return user.User{}, user.ErrNotFound
}
