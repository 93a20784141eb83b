package main

import (
	"context"
	"fmt"
	"os"

	"pm-go/internal/passwords"
	"pm-go/internal/pm"

	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register USERNAME",
	Short: "Create a user and its empty vault",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, "Register")
		if err != nil {
			return err
		}
		defer a.Close()

		c := &cli{app: a, p: newPrompter(os.Stdin, cmd.OutOrStdout()), out: cmd.OutOrStdout()}
		password, err := c.p.secret("Password: ")
		if err != nil {
			return err
		}
		fmt.Fprintln(c.out, passwords.StrengthLabel(password))
		confirm, err := c.p.secret("Confirm password: ")
		if err != nil {
			return err
		}

		user, err := a.Register(ctx, args[0], password, confirm)
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(c.out, "Registered %s\n", user.Username)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the logged-in user",
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the master password",
	RunE: authenticated("ChangeCredentials", func(ctx context.Context, c *cli, _ []string) error {
		return changePassword(ctx, c)
	}),
}

var userRenameCmd = &cobra.Command{
	Use:   "rename NEWNAME",
	Short: "Change the username",
	Args:  cobra.ExactArgs(1),
	RunE: authenticated("ChangeCredentials", func(ctx context.Context, c *cli, args []string) error {
		current, err := c.p.secret("Current password: ")
		if err != nil {
			return err
		}
		user, err := c.app.ChangeCredentials(ctx, pm.CredentialChange{
			CurrentPassword: current,
			NewUsername:     args[0],
		})
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(c.out, "Username changed to %s\n", user.Username)
		return nil
	}),
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the user and all of its accounts",
	RunE: authenticated("DeleteAccount", func(ctx context.Context, c *cli, _ []string) error {
		return deleteUser(ctx, c)
	}),
}

func changePassword(ctx context.Context, c *cli) error {
	change := pm.CredentialChange{}
	var err error
	if change.CurrentPassword, err = c.p.secret("Current password: "); err != nil {
		return err
	}
	if change.NewPassword, err = c.p.secret("New password: "); err != nil {
		return err
	}
	fmt.Fprintln(c.out, passwords.StrengthLabel(change.NewPassword))
	if change.ConfirmPassword, err = c.p.secret("Confirm new password: "); err != nil {
		return err
	}

	if _, err := c.app.ChangeCredentials(ctx, change); err != nil {
		return describe(err)
	}
	fmt.Fprintln(c.out, "Password changed.")
	return nil
}

func deleteUser(ctx context.Context, c *cli) error {
	user := c.app.Session().CurrentUser()
	if user == nil {
		return pm.ErrNotLoggedIn
	}
	ok, err := c.p.confirm(fmt.Sprintf("Delete user %s and every stored account?", user.Username))
	if err != nil || !ok {
		return err
	}
	password, err := c.p.secret("Password: ")
	if err != nil {
		return err
	}
	if err := c.app.DeleteAccount(ctx, password); err != nil {
		return describe(err)
	}
	fmt.Fprintf(c.out, "Deleted user %s\n", user.Username)
	return nil
}
