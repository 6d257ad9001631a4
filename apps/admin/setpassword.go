package main

import (
	"context"

	"github.com/spf13/cobra"
)

func (cli *commandLine) setPasswordCmd() *cobra.Command {
	var uname string

	cmd := &cobra.Command{
		Use:   "setpassword",
		Short: "Set a user's password, bypassing the password policy. The password is prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uname == "" {
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
			if err = cli.requireDB(); err != nil {
				return err
			}
			return cli.setPassword(context.Background(), uname, pwd)
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "The user's username or email")
	return cmd
}

func (cli *commandLine) setPassword(ctx context.Context, uname, pwd string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.usrSvc.SetPassword(ctx, usr.ID, pwd)
	return err
}
