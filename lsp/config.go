package lsp

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/security"
)

// EnvPrefix prefixes environment variables that override configuration
// keys, e.g. LSP_CLIENT_VERBOSE_LOG=true.
const EnvPrefix = "LSP_CLIENT_"

const defaultServerConfig = `
verbose_log = false

[servers.cpp]
command = "clangd"
verbose_args = ["--log=verbose"]

[servers.python]
command = "pylsp"

# An empty command runs this executable.
[fake_server]
command = ""
args = ["test-server"]
`

// ServerCommand is how to run one language server.
type ServerCommand struct {
	Command     string   `koanf:"command"`
	Args        []string `koanf:"args"`
	VerboseArgs []string `koanf:"verbose_args"`
}

// ServerConfig maps LSP language ids to server commands.
type ServerConfig struct {
	Servers    map[string]ServerCommand `koanf:"servers"`
	VerboseLog bool                     `koanf:"verbose_log"`
	FakeServer ServerCommand            `koanf:"fake_server"`
}

// DefaultServerConfig returns the built-in configuration.
func DefaultServerConfig() *ServerConfig {
	config, err := LoadServerConfig("", nil)
	if err != nil {
		panic(errors.Wrap(err, "built-in server configuration"))
	}
	return config
}

// LoadServerConfig layers the built-in defaults, the TOML file at path
// (if path is not empty) and the environment.
func LoadServerConfig(path string, allowedDirectories []string) (*ServerConfig, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultServerConfig)), toml.Parser()); err != nil {
		return nil, errors.Wrap(err, "failed to parse default server config")
	}

	if path != "" {
		cleanPath, err := security.ValidateConfigPath(path, allowedDirectories)
		if err != nil {
			return nil, errors.Wrap(err, "config path validation failed")
		}
		if err := k.Load(file.Provider(cleanPath), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %q", cleanPath)
		}
		logger.Info("Loaded server config from", cleanPath)
	}

	envKey := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, errors.Wrap(err, "failed to read environment")
	}

	var config ServerConfig
	if err := k.Unmarshal("", &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode server config")
	}
	return &config, nil
}

// CommandFor returns the executable and arguments that run a server for
// languageID. When useRealServer is false the fake server runs instead.
func (c *ServerConfig) CommandFor(languageID string, useRealServer bool) (string, []string, error) {
	if !useRealServer {
		command := c.FakeServer.Command
		if command == "" {
			self, err := os.Executable()
			if err != nil {
				return "", nil, errors.Wrap(err, "cannot locate fake server executable")
			}
			command = self
		}
		return command, c.FakeServer.Args, nil
	}

	server, ok := c.Servers[languageID]
	if !ok || server.Command == "" {
		return "", nil, errors.Newf("no server configured for language %q", languageID)
	}

	args := append([]string(nil), server.Args...)
	if c.VerboseLog {
		args = append(args, server.VerboseArgs...)
	}
	return server.Command, args, nil
}

// HasServer reports whether a real server is configured for languageID.
func (c *ServerConfig) HasServer(languageID string) bool {
	server, ok := c.Servers[languageID]
	return ok && server.Command != ""
}
