package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "export"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, root.RunE, "root runs serve when no subcommand is given")
}

func TestExportCmd_RequiresUser(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"export"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user")
}

func TestExportCmd_NoRecords(t *testing.T) {
	t.Setenv("DATABASE_URL", ":memory:")
	t.Setenv("REPORT_FONT_PATHS", "/nonexistent/font.ttf")
	t.Setenv("REPORT_TIMEZONE", "UTC")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"export", "--user", "42"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "user 42 has no records")
}
