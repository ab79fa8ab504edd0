package keywordindex

import (
	"errors"
	"fmt"
)

const (
	CodeValidation    = "validation"
	CodeEmptyCorpus   = "empty_corpus"
	CodeMissingInputs = "missing_inputs"
	CodeOracleFailure = "oracle_failure"
	CodeStorage       = "storage"
	CodeInternal      = "internal"
)

// Error is the typed failure surfaced to callers. Computation-local issues
// (capping, missing benchmark, missing trend) never produce one; structural
// issues (no corpus, unreadable rows) always do.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NewValidationError(message string) error {
	return newError(CodeValidation, message, nil)
}

func NewEmptyCorpusError(categoryID, corpusSnapshotID string) error {
	return newError(CodeEmptyCorpus, fmt.Sprintf("no rows for category %s snapshot %s", categoryID, corpusSnapshotID), nil)
}

func NewStorageError(op string, err error) error {
	return newError(CodeStorage, op, err)
}

// CodeOf extracts the taxonomy code from an error chain, or CodeInternal
// when the error was not produced by this package.
func CodeOf(err error) string {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Code
	}
	return CodeInternal
}
