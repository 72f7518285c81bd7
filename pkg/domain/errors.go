package domain

import (
	"errors"
	"fmt"
)

// Error messages used across the job, engine and orchestration layers.
const (
	ERR_INVALID_PARAMETERS    = "error invalid job parameters"
	ERR_RECORD_REJECTED       = "error record rejected"
	ERR_SKIP_LIMIT_EXCEEDED   = "error skip limit exceeded"
	ERR_COMMIT_FAILED         = "error chunk commit failed"
	ERR_SOURCE_READ_FAILED    = "error source read failed"
	ERR_JOB_INTERRUPTED       = "error job interrupted"
	ERR_EXECUTION_NOT_FOUND   = "error job execution not found"
	ERR_RECORD_UNREADABLE     = "error record unreadable"
	ERR_UNKNOWN_SOURCE_TYPE   = "error unknown source driver"
	ERR_MISSING_SOURCE_CONFIG = "error missing source config"
)

var (
	ErrInvalidParameters   = errors.New(ERR_INVALID_PARAMETERS)
	ErrRecordRejected      = errors.New(ERR_RECORD_REJECTED)
	ErrSkipLimitExceeded   = errors.New(ERR_SKIP_LIMIT_EXCEEDED)
	ErrCommitFailed        = errors.New(ERR_COMMIT_FAILED)
	ErrSourceReadFailed    = errors.New(ERR_SOURCE_READ_FAILED)
	ErrJobInterrupted      = errors.New(ERR_JOB_INTERRUPTED)
	ErrExecutionNotFound   = errors.New(ERR_EXECUTION_NOT_FOUND)
	ErrRecordUnreadable    = errors.New(ERR_RECORD_UNREADABLE)
	ErrUnknownSourceType   = errors.New(ERR_UNKNOWN_SOURCE_TYPE)
	ErrMissingSourceConfig = errors.New(ERR_MISSING_SOURCE_CONFIG)
)

// RejectedError is a per-record data quality failure. Rejected records are
// skipped without retry.
type RejectedError struct {
	Reason string
}

// NewRejectedError returns a RejectedError for the given reason.
func NewRejectedError(reason string) *RejectedError {
	return &RejectedError{Reason: reason}
}

func (e *RejectedError) Error() string {
	return e.Reason
}

// Is matches ErrRecordRejected so callers can test with errors.Is.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRecordRejected
}

// IsRejected reports whether err is, or wraps, a record rejection.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRecordRejected)
}

// InvalidParametersError names the parameter that failed validation.
func InvalidParametersError(key, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidParameters, key, reason)
}

// AbortError is the fatal cause of a failed engine run. Kind is one of
// ErrSkipLimitExceeded, ErrCommitFailed, ErrSourceReadFailed or ErrJobInterrupted.
type AbortError struct {
	Kind         error
	ChunkIndex   uint64
	SkipCount    uint64
	LastRecordID string
	Err          error
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("%s: chunk %d, skips %d", e.Kind, e.ChunkIndex, e.SkipCount)
	if e.LastRecordID != "" {
		msg = fmt.Sprintf("%s, last record %s", msg, e.LastRecordID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

func (e *AbortError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
