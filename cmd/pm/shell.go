package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"pm-go/internal/passwords"
	"pm-go/internal/pm"

	"github.com/spf13/cobra"
)

const shellHelp = `Commands:
  list                 list accounts
  show NAME|ID         show an account
  copy NAME|ID         copy an account's password
  add                  add an account
  edit NAME|ID         edit an account
  delete NAME|ID       delete an account
  generate [LENGTH]    generate a password
  export FILE          export accounts
  import FILE          import plain CSV
  passwd               change the master password
  history              show recent operations
  logout, exit         end the session`

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Log in once and run several commands",
	Long: `Shell logs in and reads commands until logout, exit, end of input or
the idle timeout ends the session.`,
	RunE: authenticated("Shell", func(ctx context.Context, c *cli, _ []string) error {
		return runShell(ctx, c)
	}),
}

func runShell(ctx context.Context, c *cli) error {
	var ended atomic.Bool
	c.app.OnLogout(func(reason pm.LogoutReason) {
		ended.Store(true)
		if reason == pm.LogoutIdle {
			fmt.Fprintln(c.out, "\nSession ended after inactivity.")
		}
	})

	fmt.Fprintln(c.out, `Logged in. Type "help" for commands.`)
	for !ended.Load() {
		input, err := c.p.line("pm> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.out)
			break
		}
		if err != nil {
			return err
		}
		if ended.Load() {
			break
		}

		quit, err := shellCommand(ctx, c, strings.Fields(input))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if quit {
			break
		}
	}

	c.app.Logout()
	return nil
}

// shellCommand runs one shell line. It reports whether the shell should stop.
func shellCommand(ctx context.Context, c *cli, fields []string) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	cmd, arg := fields[0], strings.Join(fields[1:], " ")

	needArg := func(f func(string) error) error {
		if arg == "" {
			return fmt.Errorf("%s needs an argument", cmd)
		}
		return f(arg)
	}

	switch cmd {
	case "list", "ls":
		return false, listAccounts(ctx, c)
	case "show":
		return false, needArg(func(ref string) error { return showAccount(ctx, c, ref) })
	case "copy", "cp":
		return false, needArg(func(ref string) error { return copyAccount(ctx, c, ref, 0) })
	case "add":
		return false, addAccount(ctx, c)
	case "edit":
		return false, needArg(func(ref string) error { return editAccount(ctx, c, ref) })
	case "delete", "rm":
		return false, needArg(func(ref string) error { return deleteAccount(ctx, c, ref) })
	case "generate", "gen":
		return false, shellGenerate(c, arg)
	case "export":
		return false, needArg(func(path string) error { return exportRecords(ctx, c, path) })
	case "import":
		return false, needArg(func(path string) error { return importRecords(ctx, c, path, false) })
	case "passwd":
		return false, changePassword(ctx, c)
	case "history":
		return false, showHistory(ctx, c, 20)
	case "help", "?":
		fmt.Fprintln(c.out, shellHelp)
		return false, nil
	case "logout", "exit", "quit":
		return true, nil
	}
	return false, fmt.Errorf("unknown command %q", cmd)
}

func shellGenerate(c *cli, arg string) error {
	opts := passwords.DefaultOptions()
	if arg != "" {
		if _, err := fmt.Sscanf(arg, "%d", &opts.Length); err != nil {
			return fmt.Errorf("invalid length %q", arg)
		}
	}
	pw, err := passwords.Generate(opts)
	if err != nil {
		return err
	}
	c.app.Session().Touch()
	fmt.Fprintln(c.out, pw)
	return nil
}
