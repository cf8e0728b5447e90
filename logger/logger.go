package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

type LoggerConfig struct {
	LogPath     string
	LogLevel    string // "trace", "debug", "info", "warn", "error"
	MaxLogFiles int    // Maximum number of rotated log files to keep
	Console     bool   // Also write human-readable output to stderr
}

var (
	config   LoggerConfig
	log      = zerolog.Nop()
	logFile  *os.File
	logMutex sync.Mutex
)

// DefaultConfig provides a default logging configuration
func DefaultConfig() LoggerConfig {
	return LoggerConfig{
		LogPath:     filepath.Join(os.TempDir(), "lsp-client-manager.log"),
		LogLevel:    "info",
		MaxLogFiles: 5,
	}
}

// InitLogger sets up file-based logging with configuration
func InitLogger(cfg LoggerConfig) error {
	logMutex.Lock()
	defer logMutex.Unlock()

	if cfg.LogPath == "" {
		cfg.LogPath = DefaultConfig().LogPath
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0700); err != nil {
		return errors.Wrap(err, "failed to create log directory")
	}

	rotateLogFiles(cfg)

	file, err := os.OpenFile(cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return errors.Wrap(err, "failed to open log file")
	}

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = file
	config = cfg

	var out io.Writer = file
	if cfg.Console {
		out = zerolog.MultiLevelWriter(file, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.TimeOnly,
		})
	}

	log = zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return nil
}

// rotateLogFiles moves an existing log aside and prunes the oldest
// rotated copies so that at most MaxLogFiles remain.
func rotateLogFiles(cfg LoggerConfig) {
	if cfg.MaxLogFiles <= 0 {
		return
	}

	if fi, err := os.Stat(cfg.LogPath); err == nil && fi.Size() > 0 {
		rotated := cfg.LogPath + "." + strconv.FormatInt(time.Now().UnixNano(), 10)
		_ = os.Rename(cfg.LogPath, rotated)
	}

	files, _ := filepath.Glob(cfg.LogPath + ".*")
	if len(files) <= cfg.MaxLogFiles {
		return
	}

	sort.Slice(files, func(i, j int) bool {
		fiA, errA := os.Stat(files[i])
		fiB, errB := os.Stat(files[j])
		if errA != nil || errB != nil {
			return files[i] < files[j]
		}
		return fiA.ModTime().Before(fiB.ModTime())
	})

	for _, oldFile := range files[:len(files)-cfg.MaxLogFiles] {
		if err := os.Remove(oldFile); err != nil {
			fmt.Fprintf(os.Stderr, "failed to remove old log file: %v\n", err)
		}
	}
}

func message(v []any) string {
	return strings.TrimSuffix(fmt.Sprintln(v...), "\n")
}

// Trace logs the fine-grained protocol decisions (dropped diagnostics,
// discarded replies) that are normally uninteresting.
func Trace(v ...any) {
	log.Trace().Msg(message(v))
}

// Debug logs a debug message with caller context
func Debug(v ...any) {
	log.Debug().Msg(message(v))
}

// Info logs an informational message with caller context
func Info(v ...any) {
	log.Info().Msg(message(v))
}

// Warn logs a warning message with caller context
func Warn(v ...any) {
	log.Warn().Msg(message(v))
}

// Error logs an error message with caller context
func Error(v ...any) {
	log.Error().Msg(message(v))
}

// Level returns the configured level name.
func Level() string {
	return config.LogLevel
}

// PrintfLogger adapts the logger to libraries that log through a
// Printf method, such as jsonrpc2.
type PrintfLogger struct {
	level zerolog.Level
}

func (p PrintfLogger) Printf(format string, v ...any) {
	log.WithLevel(p.level).Msgf(strings.TrimSuffix(format, "\n"), v...)
}

// JSONRPC returns the adapter used for jsonrpc2 connection logging.
func JSONRPC() PrintfLogger {
	return PrintfLogger{level: zerolog.DebugLevel}
}

// Close closes the log file
func Close() {
	logMutex.Lock()
	defer logMutex.Unlock()

	log = zerolog.Nop()
	if logFile != nil {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		logFile = nil
	}
}
