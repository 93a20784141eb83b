package main

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm-go/internal/database"
	"pm-go/internal/passwords"
	"pm-go/internal/pm"
)

func TestPrintRecords(t *testing.T) {
	var buf bytes.Buffer
	printRecords(&buf, nil)
	assert.Equal(t, "No accounts stored.\n", buf.String())

	buf.Reset()
	printRecords(&buf, []pm.AccountRecord{
		{ID: "0123456789abcdef", Name: "Mail", Username: "alice", Password: "hunter2"},
		{ID: "42", Name: "Bank", Username: "al"},
	})
	out := buf.String()
	assert.Contains(t, out, "01234567  Mail")
	assert.Contains(t, out, "42  Bank")
	assert.NotContains(t, out, "hunter2", "list never shows passwords")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, nil)
	assert.Equal(t, "No operations recorded.\n", buf.String())

	started := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	buf.Reset()
	printHistory(&buf, []*database.Operation{
		{ID: 7, Operation: "AddRecord", Status: "success", StartedAt: started,
			FinishedAt: sql.NullTime{Time: started.Add(1500 * time.Millisecond), Valid: true}},
		{ID: 8, Operation: "Login", Status: "error", StartedAt: started},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "#7  AddRecord"))
	assert.True(t, strings.HasSuffix(lines[0], "1.5s"))
	assert.Contains(t, lines[1], "error")
}

func TestShellCommand_WithoutVault(t *testing.T) {
	var out bytes.Buffer
	c := &cli{out: &out}
	ctx := context.Background()

	quit, err := shellCommand(ctx, c, nil)
	assert.False(t, quit)
	assert.NoError(t, err)

	quit, err = shellCommand(ctx, c, []string{"help"})
	assert.False(t, quit)
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "Commands:")

	_, err = shellCommand(ctx, c, []string{"frobnicate"})
	assert.EqualError(t, err, `unknown command "frobnicate"`)

	_, err = shellCommand(ctx, c, []string{"show"})
	assert.EqualError(t, err, "show needs an argument")

	for _, cmd := range []string{"logout", "exit", "quit"} {
		quit, err = shellCommand(ctx, c, []string{cmd})
		assert.True(t, quit, cmd)
		assert.NoError(t, err)
	}
}

func TestGenerateOptions(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().IntP("length", "l", passwords.DefaultLength, "")
	cmd.Flags().Bool("no-upper", false, "")
	cmd.Flags().Bool("no-lower", false, "")
	cmd.Flags().Bool("no-numbers", false, "")
	cmd.Flags().Bool("no-symbols", false, "")

	opts, err := generateOptions(cmd)
	require.NoError(t, err)
	assert.Equal(t, passwords.DefaultOptions(), opts)

	require.NoError(t, cmd.Flags().Parse([]string{"-l", "24", "--no-symbols", "--no-upper"}))
	opts, err = generateOptions(cmd)
	require.NoError(t, err)
	assert.Equal(t, passwords.Options{Length: 24, Lower: true, Numbers: true}, opts)
}

func TestDescribe(t *testing.T) {
	assert.EqualError(t, describe(pm.ErrAuthentication), "wrong username or password")
	assert.ErrorIs(t, describe(pm.ErrLockedOut), pm.ErrLockedOut)
	assert.ErrorIs(t, describe(pm.ErrVaultUnreadable), pm.ErrVaultUnreadable)
	assert.Equal(t, pm.ErrValidation, describe(pm.ErrValidation))
}
