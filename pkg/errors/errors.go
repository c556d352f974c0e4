// Package errors defines the sentinel errors shared across the indexer and
// an AppError wrapper that carries an HTTP status for the admin API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrPageOutOfRange      = errors.New("page out of range")
	ErrReadOnly            = errors.New("index opened read-only")
	ErrNotIndexFile        = errors.New("not an index file")
	ErrItemFactoryMismatch = errors.New("index item factory mismatch")
	ErrChecksumMismatch    = errors.New("page checksum mismatch")
	ErrIndexExists         = errors.New("index file already exists")
	ErrPageTooLarge        = errors.New("page data larger than page size")
	ErrInvalidURL          = errors.New("invalid url")
	ErrTermNotOnPage       = errors.New("no term of the document maps to the page")
	ErrLockNotAcquired     = errors.New("page lock not acquired")
	ErrInvalidTransition   = errors.New("invalid batch status transition")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

// statusBySentinel is consulted in order; the first sentinel err wraps wins.
var statusBySentinel = []struct {
	sentinel error
	status   int
}{
	{ErrPageOutOfRange, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrInvalidURL, http.StatusBadRequest},
	{ErrLockNotAcquired, http.StatusConflict},
	{ErrInvalidTransition, http.StatusConflict},
	{ErrReadOnly, http.StatusMethodNotAllowed},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// AppError pairs a sentinel with a client-facing message and status.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// HTTPStatusCode maps err to a response status. An AppError's own status
// takes precedence; unknown errors are 500.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, m := range statusBySentinel {
		if errors.Is(err, m.sentinel) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}
