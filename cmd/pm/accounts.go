package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"pm-go/internal/passwords"
	"pm-go/internal/pm"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage stored accounts",
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts, most recently used first",
	RunE: authenticated("ListRecords", func(ctx context.Context, c *cli, _ []string) error {
		return listAccounts(ctx, c)
	}),
}

var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an account",
	RunE: authenticated("AddRecord", func(ctx context.Context, c *cli, _ []string) error {
		return addAccount(ctx, c)
	}),
}

var accountShowCmd = &cobra.Command{
	Use:   "show NAME|ID",
	Short: "Show an account including its password",
	Args:  cobra.ExactArgs(1),
	RunE: authenticated("OpenRecord", func(ctx context.Context, c *cli, args []string) error {
		return showAccount(ctx, c, args[0])
	}),
}

var accountCopyCmd = &cobra.Command{
	Use:   "copy NAME|ID",
	Short: "Copy an account's password to the clipboard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		clearAfter, _ := cmd.Flags().GetDuration("clear")
		return authenticated("OpenRecord", func(ctx context.Context, c *cli, args []string) error {
			return copyAccount(ctx, c, args[0], clearAfter)
		})(cmd, args)
	},
}

var accountEditCmd = &cobra.Command{
	Use:   "edit NAME|ID",
	Short: "Edit an account",
	Args:  cobra.ExactArgs(1),
	RunE: authenticated("UpdateRecord", func(ctx context.Context, c *cli, args []string) error {
		return editAccount(ctx, c, args[0])
	}),
}

var accountDeleteCmd = &cobra.Command{
	Use:   "delete NAME|ID",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: authenticated("RemoveRecord", func(ctx context.Context, c *cli, args []string) error {
		return deleteAccount(ctx, c, args[0])
	}),
}

func listAccounts(ctx context.Context, c *cli) error {
	records, err := c.app.Records(ctx)
	if err != nil {
		return describe(err)
	}
	printRecords(c.out, records)
	return nil
}

func printRecords(w io.Writer, records []pm.AccountRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No accounts stored.")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "%s  %-20s  %-25s  %s\n",
			r.ID[:min(8, len(r.ID))],
			r.Name,
			r.Username,
			r.UsedTime().Local().Format("2006-01-02 15:04"),
		)
	}
}

func printRecord(w io.Writer, r *pm.AccountRecord) {
	fmt.Fprintf(w, "ID:       %s\n", r.ID)
	fmt.Fprintf(w, "Name:     %s\n", r.Name)
	fmt.Fprintf(w, "URL:      %s\n", r.URL)
	fmt.Fprintf(w, "Username: %s\n", r.Username)
	fmt.Fprintf(w, "Password: %s\n", r.Password)
	if r.Notes != "" {
		fmt.Fprintf(w, "Notes:    %s\n", r.Notes)
	}
}

// readPassword asks for an account password. An empty answer generates one
// with the default options.
func readPassword(c *cli, label string) (string, error) {
	pw, err := c.p.secret(label + " (empty to generate): ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		if pw, err = passwords.Generate(passwords.DefaultOptions()); err != nil {
			return "", err
		}
		fmt.Fprintln(c.out, "Generated a new password.")
	}
	fmt.Fprintln(c.out, passwords.StrengthLabel(pw))
	return pw, nil
}

func addAccount(ctx context.Context, c *cli) error {
	var in pm.RecordInput
	var err error
	if in.Name, err = c.p.line("Name: "); err != nil {
		return err
	}
	if in.URL, err = c.p.line("URL: "); err != nil {
		return err
	}
	if in.Username, err = c.p.line("Username: "); err != nil {
		return err
	}
	if in.Password, err = readPassword(c, "Password"); err != nil {
		return err
	}
	if in.Notes, err = c.p.line("Notes: "); err != nil {
		return err
	}

	rec, err := c.app.AddRecord(ctx, in)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(c.out, "Added %s (%s)\n", rec.Name, rec.ID)
	return nil
}

func showAccount(ctx context.Context, c *cli, ref string) error {
	rec, err := c.app.OpenRecord(ctx, ref)
	if err != nil {
		return describe(err)
	}
	printRecord(c.out, rec)
	return nil
}

func copyAccount(ctx context.Context, c *cli, ref string, clearAfter time.Duration) error {
	rec, err := c.app.OpenRecord(ctx, ref)
	if err != nil {
		return describe(err)
	}
	if err := clipboard.WriteAll(rec.Password); err != nil {
		return fmt.Errorf("copying to clipboard: %w", err)
	}
	fmt.Fprintf(c.out, "Password for %s copied to clipboard.\n", rec.Name)

	if clearAfter > 0 {
		fmt.Fprintf(c.out, "Clearing in %s...\n", clearAfter)
		time.Sleep(clearAfter)
		clearClipboard(rec.Password)
	}
	return nil
}

// clearClipboard empties the clipboard if it still holds value.
func clearClipboard(value string) {
	if current, err := clipboard.ReadAll(); err == nil && current == value {
		_ = clipboard.WriteAll("")
	}
}

func editAccount(ctx context.Context, c *cli, ref string) error {
	rec, err := c.app.FindRecord(ctx, ref)
	if err != nil {
		return describe(err)
	}

	in := pm.RecordInput{Password: rec.Password}
	if in.Name, err = c.p.lineDefault("Name", rec.Name); err != nil {
		return err
	}
	if in.URL, err = c.p.lineDefault("URL", rec.URL); err != nil {
		return err
	}
	if in.Username, err = c.p.lineDefault("Username", rec.Username); err != nil {
		return err
	}
	change, err := c.p.confirm("Change password?")
	if err != nil {
		return err
	}
	if change {
		if in.Password, err = readPassword(c, "New password"); err != nil {
			return err
		}
	}
	if in.Notes, err = c.p.lineDefault("Notes", rec.Notes); err != nil {
		return err
	}

	if _, err := c.app.UpdateRecord(ctx, rec.ID, in); err != nil {
		return describe(err)
	}
	fmt.Fprintf(c.out, "Updated %s\n", in.Name)
	return nil
}

func deleteAccount(ctx context.Context, c *cli, ref string) error {
	rec, err := c.app.FindRecord(ctx, ref)
	if err != nil {
		return describe(err)
	}
	ok, err := c.p.confirm(fmt.Sprintf("Delete %s (%s)?", rec.Name, rec.Username))
	if err != nil || !ok {
		return err
	}
	if err := c.app.RemoveRecord(ctx, rec.ID); err != nil {
		return describe(err)
	}
	fmt.Fprintf(c.out, "Deleted %s\n", rec.Name)
	return nil
}
