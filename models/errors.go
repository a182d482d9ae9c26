package models

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a pipeline failure. The retry wrapper treats
// network, timeout and rate_limited as retryable; the rest propagate
// immediately.
type ErrorKind string

const (
	ErrKindNetwork        ErrorKind = "network"
	ErrKindTimeout        ErrorKind = "timeout"
	ErrKindRateLimited    ErrorKind = "rate_limited"
	ErrKindParse          ErrorKind = "parse"
	ErrKindNoResults      ErrorKind = "no_results"
	ErrKindScrapingFailed ErrorKind = "scraping_failed"
)

// Pipeline phases, reported on search_error events.
const (
	PhaseSearch     = "search"
	PhaseScraping   = "scraping"
	PhaseProcessing = "processing"
)

var retryableKinds = map[ErrorKind]bool{
	ErrKindNetwork:     true,
	ErrKindTimeout:     true,
	ErrKindRateLimited: true,
}

// SearchError is the pipeline error type: a kind, the phase it occurred
// in, an explicit retryable flag, and the wrapped cause.
type SearchError struct {
	Kind      ErrorKind
	Phase     string
	Retryable bool
	Err       error
}

func (e *SearchError) Error() string {
	msg := string(e.Kind)
	if e.Phase != "" {
		msg = e.Phase + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *SearchError) Unwrap() error { return e.Err }

// Is lets errors.Is match two SearchErrors by kind.
func (e *SearchError) Is(target error) bool {
	var se *SearchError
	if errors.As(target, &se) {
		return se.Kind == e.Kind
	}
	return false
}

func newError(kind ErrorKind, phase string, err error) *SearchError {
	return &SearchError{Kind: kind, Phase: phase, Retryable: retryableKinds[kind], Err: err}
}

func NewNetworkError(phase string, err error) *SearchError {
	return newError(ErrKindNetwork, phase, err)
}

func NewTimeoutError(phase string, after time.Duration) *SearchError {
	return newError(ErrKindTimeout, phase, fmt.Errorf("operation exceeded %s", after))
}

func NewRateLimitedError(phase string, err error) *SearchError {
	return newError(ErrKindRateLimited, phase, err)
}

func NewParseError(phase string, err error) *SearchError {
	return newError(ErrKindParse, phase, err)
}

func NewNoResultsError(query string) *SearchError {
	return newError(ErrKindNoResults, PhaseSearch, fmt.Errorf("no results for %q", query))
}

func NewScrapingFailedError(err error) *SearchError {
	return newError(ErrKindScrapingFailed, PhaseScraping, err)
}

// KindOf extracts the error kind, defaulting deadline errors to timeout
// and everything else to network.
func KindOf(err error) ErrorKind {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTimeout
	}
	return ErrKindNetwork
}

// PhaseOf extracts the failing phase, empty when untagged.
func PhaseOf(err error) string {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Phase
	}
	return ""
}

// IsRetryable reports whether a failed attempt may be repeated: either
// the explicit flag is set or the kind belongs to the retryable set.
func IsRetryable(err error) bool {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Retryable || retryableKinds[se.Kind]
	}
	return errors.Is(err, context.DeadlineExceeded)
}
