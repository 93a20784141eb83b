package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export accounts as CSV",
	Long: `Export writes the accounts of the logged-in user as CSV
(name,url,username,password,notes). Unless export protection is disabled
in the config, the file is encrypted with a passphrase.`,
	Args: cobra.ExactArgs(1),
	RunE: authenticated("Export", func(ctx context.Context, c *cli, args []string) error {
		return exportRecords(ctx, c, args[0])
	}),
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import accounts from CSV",
	Long: `Import appends the accounts in FILE to the vault of the logged-in user.
FILE is plain CSV with the header name,url,username,password,notes using
any of , ; tab space or | as separator. Use --encrypted for files written
by pm export with a passphrase.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypted, _ := cmd.Flags().GetBool("encrypted")
		return authenticated("Import", func(ctx context.Context, c *cli, args []string) error {
			return importRecords(ctx, c, args[0], encrypted)
		})(cmd, args)
	},
}

func exportRecords(ctx context.Context, c *cli, path string) error {
	enc := c.app.Encryptor()

	var passphrase string
	if enc.NeedsPassphrase() {
		var err error
		if passphrase, err = c.p.secret("Export passphrase: "); err != nil {
			return err
		}
		confirm, err := c.p.secret("Confirm export passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return errors.New("passphrases do not match")
		}
	}

	if ext := enc.Extension(); ext != "" && !strings.HasSuffix(path, ext) {
		path += ext
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}

	n, err := c.app.Export(ctx, f, passphrase)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return describe(err)
	}

	fmt.Fprintf(c.out, "Exported %d account(s) to %s\n", n, path)
	return nil
}

func importRecords(ctx context.Context, c *cli, path string, encrypted bool) error {
	var passphrase string
	if encrypted {
		var err error
		if passphrase, err = c.p.secret("Export passphrase: "); err != nil {
			return err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	n, err := c.app.Import(ctx, f, passphrase)
	if err != nil {
		return describe(err)
	}
	fmt.Fprintf(c.out, "Imported %d account(s)\n", n)
	return nil
}
