// Package directories resolves where the manager keeps its configuration
// and log files, following platform conventions.
package directories

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	"github.com/cockroachdb/errors"
)

// AppName names the application's directories.
const AppName = "lsp-client-manager"

type EnvProvider interface {
	Getenv(key string) string
}

type DefaultEnvProvider struct{}

func (DefaultEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

type UserProvider interface {
	Current() (*user.User, error)
}

type DefaultUserProvider struct{}

func (DefaultUserProvider) Current() (*user.User, error) {
	return user.Current()
}

// Resolver computes application directories for the current user.
type Resolver struct {
	appName      string
	userProvider UserProvider
	envProvider  EnvProvider
	ensureDirs   bool
}

// NewResolver returns a resolver for appName. With ensureDirs set the
// directories are created as they are resolved.
func NewResolver(appName string, userProvider UserProvider, envProvider EnvProvider, ensureDirs bool) *Resolver {
	return &Resolver{
		appName:      appName,
		userProvider: userProvider,
		envProvider:  envProvider,
		ensureDirs:   ensureDirs,
	}
}

// NewDefaultResolver resolves and creates directories for AppName.
func NewDefaultResolver() *Resolver {
	return NewResolver(AppName, DefaultUserProvider{}, DefaultEnvProvider{}, true)
}

func (r *Resolver) currentUser() (*user.User, error) {
	u, err := r.userProvider.Current()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get current user")
	}
	return u, nil
}

func (r *Resolver) ensure(dir string) (string, error) {
	if !r.ensureDirs {
		return dir, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory %s", dir)
	}
	return dir, nil
}

// fromEnv returns $key, or home joined with fallback.
func (r *Resolver) fromEnv(key, home string, fallback ...string) string {
	if dir := r.envProvider.Getenv(key); dir != "" {
		return dir
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// LogDirectory holds the manager's log and the server stderr logs.
// For root: /var/log/{app}
// Unix users: $XDG_STATE_HOME/{app}/logs, default ~/.local/state
// Windows: %LOCALAPPDATA%\{app}\logs
func (r *Resolver) LogDirectory() (string, error) {
	u, err := r.currentUser()
	if err != nil {
		return "", err
	}
	if u.Uid == "0" && runtime.GOOS != "windows" {
		return r.ensure(filepath.Join("/", "var", "log", r.appName))
	}

	var base string
	if runtime.GOOS == "windows" {
		base = r.fromEnv("LOCALAPPDATA", u.HomeDir, "AppData", "Local")
	} else {
		base = r.fromEnv("XDG_STATE_HOME", u.HomeDir, ".local", "state")
	}
	return r.ensure(filepath.Join(base, r.appName, "logs"))
}

// ConfigDirectory holds the server configuration file.
// For root: /etc/{app}
// Unix users: $XDG_CONFIG_HOME/{app}, default ~/.config
// Windows: %APPDATA%\{app}
func (r *Resolver) ConfigDirectory() (string, error) {
	u, err := r.currentUser()
	if err != nil {
		return "", err
	}
	if u.Uid == "0" && runtime.GOOS != "windows" {
		return r.ensure(filepath.Join("/", "etc", r.appName))
	}

	var base string
	if runtime.GOOS == "windows" {
		base = r.fromEnv("APPDATA", u.HomeDir, "AppData", "Roaming")
	} else {
		base = r.fromEnv("XDG_CONFIG_HOME", u.HomeDir, ".config")
	}
	return r.ensure(filepath.Join(base, r.appName))
}
