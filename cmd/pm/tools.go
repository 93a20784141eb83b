package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"pm-go/internal/database"
	"pm-go/internal/passwords"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a random password",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := generateOptions(cmd)
		if err != nil {
			return err
		}
		pw, err := passwords.Generate(opts)
		if err != nil {
			return err
		}

		toClipboard, _ := cmd.Flags().GetBool("copy")
		if toClipboard {
			if err := clipboard.WriteAll(pw); err != nil {
				return fmt.Errorf("copying to clipboard: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password copied to clipboard. %s\n", passwords.StrengthLabel(pw))
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), pw)
		return nil
	},
}

func generateOptions(cmd *cobra.Command) (passwords.Options, error) {
	flags := cmd.Flags()
	length, err := flags.GetInt("length")
	if err != nil {
		return passwords.Options{}, err
	}
	noUpper, _ := flags.GetBool("no-upper")
	noLower, _ := flags.GetBool("no-lower")
	noNumbers, _ := flags.GetBool("no-numbers")
	noSymbols, _ := flags.GetBool("no-symbols")

	return passwords.Options{
		Length:  length,
		Upper:   !noUpper,
		Lower:   !noLower,
		Numbers: !noNumbers,
		Symbols: !noSymbols,
	}, nil
}

var strengthCmd = &cobra.Command{
	Use:   "strength",
	Short: "Rate a password",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPrompter(os.Stdin, cmd.OutOrStdout())
		pw, err := p.secret("Password: ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d/4  %s\n", passwords.Strength(pw), passwords.StrengthLabel(pw))
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View the operation history of the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return authenticated("GetHistory", func(ctx context.Context, c *cli, _ []string) error {
			return showHistory(ctx, c, limit)
		})(cmd, args)
	},
}

func showHistory(ctx context.Context, c *cli, limit int) error {
	ops, err := c.app.History(ctx, limit)
	if err != nil {
		return describe(err)
	}
	printHistory(c.out, ops)
	return nil
}

func printHistory(w io.Writer, ops []*database.Operation) {
	if len(ops) == 0 {
		fmt.Fprintln(w, "No operations recorded.")
		return
	}
	for _, op := range ops {
		duration := ""
		if op.FinishedAt.Valid {
			d := op.FinishedAt.Time.Sub(op.StartedAt)
			duration = d.Truncate(time.Millisecond).String()
		}
		fmt.Fprintf(w, "#%d  %-18s  %s  %-8s  %s\n",
			op.ID,
			op.Operation,
			op.StartedAt.Local().Format("2006-01-02 15:04:05"),
			op.Status,
			duration,
		)
	}
}
