package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/indexhub/pkg/version"
)

func runCommand(t *testing.T, args ...string) string {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.Execute())
	return out.String()
}

func TestVersionCommand_Default(t *testing.T) {
	out := runCommand(t, "version")
	assert.Contains(t, out, "indexhub")
	assert.Contains(t, out, version.Version)
}

func TestVersionCommand_Short(t *testing.T) {
	out := runCommand(t, "version", "--short")
	assert.Equal(t, version.Version+"\n", out)
}

func TestVersionCommand_JSON(t *testing.T) {
	out := runCommand(t, "version", "--json")

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info["version"])
}
