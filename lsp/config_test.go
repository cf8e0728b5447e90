package lsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "servers.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return dir, path
}

func TestDefaultServerConfig(t *testing.T) {
	config := DefaultServerConfig()

	command, args, err := config.CommandFor("cpp", true)
	require.NoError(t, err)
	assert.Equal(t, "clangd", command)
	assert.Empty(t, args)

	command, _, err = config.CommandFor("python", true)
	require.NoError(t, err)
	assert.Equal(t, "pylsp", command)

	assert.True(t, config.HasServer("cpp"))
	assert.False(t, config.HasServer("ocaml"))

	_, _, err = config.CommandFor("ocaml", true)
	assert.ErrorContains(t, err, `no server configured for language "ocaml"`)
}

func TestFakeServerCommand(t *testing.T) {
	config := DefaultServerConfig()

	command, args, err := config.CommandFor("cpp", false)
	require.NoError(t, err)
	self, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, self, command)
	assert.Equal(t, []string{"test-server"}, args)
}

func TestLoadServerConfigFile(t *testing.T) {
	dir, path := writeConfig(t, `
verbose_log = true

[servers.cpp]
command = "/opt/clangd/bin/clangd"
args = ["--background-index=false"]
verbose_args = ["--log=verbose"]
`)

	config, err := LoadServerConfig(path, []string{dir})
	require.NoError(t, err)

	command, args, err := config.CommandFor("cpp", true)
	require.NoError(t, err)
	assert.Equal(t, "/opt/clangd/bin/clangd", command)
	assert.Equal(t, []string{"--background-index=false", "--log=verbose"}, args)

	// Defaults not named in the file survive.
	assert.True(t, config.HasServer("python"))
}

func TestLoadServerConfigRejectsPathOutsideAllowedDirectories(t *testing.T) {
	_, path := writeConfig(t, "verbose_log = true\n")

	_, err := LoadServerConfig(path, []string{t.TempDir()})
	assert.ErrorContains(t, err, "config path validation failed")
}

func TestLoadServerConfigInvalidTOML(t *testing.T) {
	dir, path := writeConfig(t, "[servers.cpp\n")

	_, err := LoadServerConfig(path, []string{dir})
	assert.ErrorContains(t, err, "failed to load config file")
}

func TestLoadServerConfigEnvironment(t *testing.T) {
	t.Setenv(EnvPrefix+"VERBOSE_LOG", "true")

	config, err := LoadServerConfig("", nil)
	require.NoError(t, err)
	assert.True(t, config.VerboseLog)

	_, args, err := config.CommandFor("cpp", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"--log=verbose"}, args)
}
