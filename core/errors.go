package core

import (
	"errors"
	"fmt"
	"time"
)

// Code is a stable machine-readable error classification surfaced to callers.
type Code string

// Error codes. The request layer maps these to transport-level statuses; the
// core never exposes transport concepts.
const (
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeAlreadyRated  Code = "ALREADY_RATED"
	CodeInvalidInput  Code = "INVALID_INPUT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeUnavailable   Code = "UNAVAILABLE"
	CodeInternal      Code = "INTERNAL"
)

// Sentinel errors for the marketplace core. Components wrap these with
// contextual detail via fmt.Errorf("...: %w", ...); callers test with
// errors.Is and convert to a Failure envelope at the boundary.
var (
	ErrAgentNotFound        = errors.New("agent not found")
	ErrAgentExists          = errors.New("agent already registered")
	ErrSellerNotRegistered  = errors.New("seller not registered")
	ErrIntelligenceNotFound = errors.New("intelligence not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrCommitNotFound       = errors.New("reasoning commit not found")
	ErrInvalidListing       = errors.New("invalid listing")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidReference     = errors.New("invalid entity reference")
	ErrAlreadyRated         = errors.New("transaction already rated or not found")
	ErrRatingOutOfRange     = errors.New("rating out of range")
	ErrInvalidState         = errors.New("commit not in committed state")
	ErrHashMismatch         = errors.New("reveal does not match commit hash")
	ErrUnavailable          = errors.New("collaborator unavailable")
)

// CodeOf classifies err into a stable Code.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAgentNotFound),
		errors.Is(err, ErrSellerNotRegistered),
		errors.Is(err, ErrIntelligenceNotFound),
		errors.Is(err, ErrTransactionNotFound),
		errors.Is(err, ErrCommitNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAgentExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrAlreadyRated):
		return CodeAlreadyRated
	case errors.Is(err, ErrInvalidListing),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidReference),
		errors.Is(err, ErrRatingOutOfRange):
		return CodeInvalidInput
	case errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrHashMismatch):
		return CodeStateConflict
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// Failure is the uniform caller-facing error envelope: a stable code, a
// human-readable message, a timestamp and a retryable flag. Detail carries the
// underlying error chain and is only populated in development mode.
type Failure struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`

	cause error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (f *Failure) Unwrap() error { return f.cause }

// AsFailure converts err into a Failure envelope. Already-wrapped failures are
// returned as-is. When development is false the underlying detail is
// suppressed and only the sentinel's message survives.
func AsFailure(err error, development bool) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	code := CodeOf(err)
	msg := err.Error()
	detail := ""
	if development {
		detail = fmt.Sprintf("%+v", err)
	} else if code == CodeInternal {
		// Internal detail never leaves the process outside development mode.
		msg = "internal error"
	}
	return &Failure{
		Code:      code,
		Message:   msg,
		Retryable: code == CodeUnavailable,
		Timestamp: time.Now().UTC(),
		Detail:    detail,
		cause:     err,
	}
}
