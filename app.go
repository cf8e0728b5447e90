package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"rockerboo/lsp-client-manager/bridge"
	"rockerboo/lsp-client-manager/directories"
	"rockerboo/lsp-client-manager/document"
	"rockerboo/lsp-client-manager/eventloop"
	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/lsp"
	"rockerboo/lsp-client-manager/manager"
	"rockerboo/lsp-client-manager/security"
	"rockerboo/lsp-client-manager/vfs"
	"rockerboo/lsp-client-manager/watcher"
)

const configFileName = "servers.toml"

type options struct {
	configPath  string
	logDir      string
	logLevel    string
	realServer  bool
	protocolLog bool
	allowedDirs []string
}

// newLauncher starts server processes; tests run servers in-process.
var newLauncher = func(config *lsp.ServerConfig) lsp.Launcher {
	return lsp.NewCommandLauncher(config)
}

// setup initializes logging and loads the server configuration.
func (o *options) setup(console bool) (*lsp.ServerConfig, error) {
	resolver := directories.NewDefaultResolver()

	if o.logDir == "" {
		dir, err := resolver.LogDirectory()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve log directory")
		}
		o.logDir = dir
	}

	if err := logger.InitLogger(logger.LoggerConfig{
		LogPath:     filepath.Join(o.logDir, directories.AppName+".log"),
		LogLevel:    o.logLevel,
		MaxLogFiles: 10,
		Console:     console,
	}); err != nil {
		return nil, errors.Wrap(err, "failed to initialize logger")
	}

	configDir, err := resolver.ConfigDirectory()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve config directory")
	}
	path := o.configPath
	if path == "" {
		if _, err := os.Stat(filepath.Join(configDir, configFileName)); err == nil {
			path = filepath.Join(configDir, configFileName)
		}
	}

	wd, _ := os.Getwd()
	return lsp.LoadServerConfig(path, security.GetConfigAllowedDirectories(configDir, wd))
}

// newBridge wires the loop, manager, and watcher together.
func (o *options) newBridge(config *lsp.ServerConfig) (*bridge.Bridge, error) {
	loop := eventloop.New()
	docs := document.NewList()

	m := manager.New(docs, vfs.NewLocal(), loop,
		manager.WithLauncher(newLauncher(config)),
		manager.WithUseRealServer(o.realServer),
		manager.WithLogDirectory(o.logDir),
		manager.WithProtocolLog(o.protocolLog),
	)

	w, err := watcher.New(loop, m)
	if err != nil {
		m.Close()
		return nil, errors.Wrap(err, "failed to start file watcher")
	}

	return bridge.New(loop, docs, m,
		bridge.WithWatcher(w),
		bridge.WithAllowedDirectories(o.allowedDirs),
	), nil
}

// withBridge runs fn while the bridge's loop runs in the background.
func (o *options) withBridge(ctx context.Context, fn func(ctx context.Context, b *bridge.Bridge) error) error {
	config, err := o.setup(false)
	if err != nil {
		return err
	}
	defer logger.Close()

	b, err := o.newBridge(config)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- b.Run(runCtx) }()

	fnErr := fn(ctx, b)

	cancel()
	runErr := <-done
	b.Close()

	if fnErr != nil {
		return fnErr
	}
	return runErr
}
