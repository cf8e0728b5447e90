package security

import (
	"path/filepath"

	"rockerboo/lsp-client-manager/contract"
)

// IsValidLSPPath reports whether fname can name a file to a language
// server: it must be absolute and use the platform's separators only.
func IsValidLSPPath(fname string) bool {
	return filepath.IsAbs(fname) && hasNormalizedSeparators(fname)
}

// NormalizeLSPPath makes fname absolute with normalized separators.
func NormalizeLSPPath(fname string) string {
	ret, err := filepath.Abs(filepath.FromSlash(fname))
	if err != nil {
		ret = filepath.Clean(filepath.FromSlash(fname))
	}
	contract.Ensure(IsValidLSPPath(ret), "%q is a valid LSP path", ret)
	return ret
}

func hasNormalizedSeparators(fname string) bool {
	return filepath.FromSlash(filepath.ToSlash(fname)) == fname
}
