package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwalczak/bmb/cmd/bmb/internal/clierr"
	"github.com/pwalczak/bmb/internal/credentials"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bmb version")
}

func TestHelpListsCommands(t *testing.T) {
	out, err := execute(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{
		"init", "projects", "plans", "branches", "builds", "status",
		"logs", "deploys", "versions", "version-create", "deploy", "timeline",
	} {
		assert.Contains(t, out, name)
	}
}

func TestUnknownCommandFails(t *testing.T) {
	_, err := execute(t, "frobnicate")
	assert.Error(t, err)
}

func TestBuildsRejectsMalformedKey(t *testing.T) {
	_, err := execute(t, "builds", "NODASH")
	require.Error(t, err)
	assert.Equal(t, clierr.CodeLocalState, clierr.ExitCodeOf(err))
	assert.Contains(t, err.Error(), "PROJECT-PLAN")
}

func TestDeployModeFlagsMutuallyExclusive(t *testing.T) {
	_, err := execute(t, "deploy", "--chain", "--parallel", "master-1", "API_DEV")
	require.Error(t, err)
	assert.Equal(t, clierr.CodeLocalState, clierr.ExitCodeOf(err))
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestDeployRefusesProdBeforeNetwork(t *testing.T) {
	// Credentials resolve from the environment; the guardrail must still
	// reject before anything is sent to the (nonexistent) server.
	t.Setenv(credentials.EnvURL, "https://bamboo.invalid")
	t.Setenv(credentials.EnvToken, "token")

	_, err := execute(t, "deploy", "--plan", "CORE-BUILD", "master-1", "CORE_PROD")
	require.Error(t, err)
	assert.Equal(t, clierr.CodeGuardrail, clierr.ExitCodeOf(err))
}

func TestCommandsRequireCredentials(t *testing.T) {
	t.Setenv(credentials.EnvURL, "")
	t.Setenv(credentials.EnvToken, "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", "")

	_, err := execute(t, "projects")
	require.Error(t, err)
	assert.Equal(t, clierr.CodeLocalState, clierr.ExitCodeOf(err))
	assert.Contains(t, err.Error(), "bmb init")
}
