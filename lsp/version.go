package lsp

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

// ErrVersionNotIncreasing marks an update whose document version is not
// greater than the version last sent to the server.
var ErrVersionNotIncreasing = errors.New("document version is not increasing")

// VersionNotIncreasingError reports sending version Current after
// version Previous.
type VersionNotIncreasingError struct {
	Current  VersionNumber
	Previous VersionNumber
}

func (e *VersionNotIncreasingError) Error() string {
	return fmt.Sprintf(
		"The current document version (%d) is not greater than the previously sent document version (%d).",
		e.Current, e.Previous)
}

// Is matches ErrVersionNotIncreasing.
func (e *VersionNotIncreasingError) Is(target error) bool {
	return target == ErrVersionNotIncreasing
}

// NewVersionNotIncreasingError describes sending version current after
// version previous.
func NewVersionNotIncreasingError(current, previous VersionNumber) error {
	return &VersionNotIncreasingError{Current: current, Previous: previous}
}

// VersionNumber is a document version as sent to a language server,
// which the protocol limits to a non-negative int32.
type VersionNumber int32

// NumericConversionError reports a document version that cannot be
// sent to a language server.
type NumericConversionError struct {
	Value int64
}

func (e *NumericConversionError) Error() string {
	return fmt.Sprintf("document version %d cannot be represented as an LSP version number", e.Value)
}

// ToVersionNumber converts an editor document version.
func ToVersionNumber(v int64) (VersionNumber, error) {
	if v < 0 || v > math.MaxInt32 {
		return 0, &NumericConversionError{Value: v}
	}
	return VersionNumber(v), nil
}

// CompareDocumentVersion compares v with an editor version without
// converting either one.
func (v VersionNumber) CompareDocumentVersion(doc int64) int {
	switch {
	case int64(v) < doc:
		return -1
	case int64(v) > doc:
		return 1
	default:
		return 0
	}
}
