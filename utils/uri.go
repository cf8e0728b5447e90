package utils

import (
	"net/url"

	"github.com/cockroachdb/errors"
	"go.lsp.dev/uri"
)

// ErrNotFileURI is returned when a URI does not use the "file" scheme.
var ErrNotFileURI = errors.New("not a file URI")

// FilePathToURI converts an absolute local file path to a file URI.
func FilePathToURI(path string) uri.URI {
	return uri.File(path)
}

// URIToFilePath converts a file URI to a local file path. Unlike
// uri.URI.Filename, it reports malformed and non-file URIs as errors.
func URIToFilePath(s string) (string, error) {
	u, err := url.ParseRequestURI(s)
	if err != nil {
		return "", errors.Wrapf(err, "malformed URI %q", s)
	}
	if u.Scheme != uri.FileScheme {
		return "", errors.Wrapf(ErrNotFileURI, "URI %q has scheme %q", s, u.Scheme)
	}
	if u.Path == "" {
		return "", errors.Newf("file URI %q has no path", s)
	}
	return uri.URI(s).Filename(), nil
}
