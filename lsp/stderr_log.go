package lsp

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"rockerboo/lsp-client-manager/logger"
)

const maxStderrLogAttempts = 100

// openStderrLog creates a new file for a server's stderr. If name is
// taken it tries "<base>-2<ext>" up to "<base>-100<ext>". It returns
// nil and an empty name when no file could be created, in which case
// stderr is discarded.
func openStderrLog(name string) (*os.File, string) {
	if name == "" {
		return nil, ""
	}

	if err := os.MkdirAll(filepath.Dir(name), 0o700); err != nil {
		logger.Warn("Cannot create directory for server stderr log:", err)
		return nil, ""
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	candidate := name
	for attempt := 1; attempt <= maxStderrLogAttempts; attempt++ {
		if attempt > 1 {
			candidate = fmt.Sprintf("%s-%d%s", base, attempt, ext)
		}

		f, err := os.OpenFile(candidate, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			if _, err := fmt.Fprintf(f, "Started LSP connection at %s\n", time.Now().Format(time.RFC1123)); err != nil {
				logger.Warn("Cannot write server stderr log header:", err)
			}
			return f, candidate
		}
		if !errors.Is(err, fs.ErrExist) {
			logger.Warn("Cannot create server stderr log", candidate, err)
			return nil, ""
		}
	}

	logger.Warn("Cannot create server stderr log: all names based on", name, "are taken")
	return nil, ""
}
