package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"
)

// RateLimitError indicates a provider rejected the call with HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// TransientError marks a provider failure that is worth retrying, such as a
// 5xx response or a dropped connection.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s transient failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as retryable.
func NewTransientError(provider string, err error) *TransientError {
	return &TransientError{Provider: provider, Err: err}
}

// EmptyResponseError means the provider answered with no usable text. It is
// never retried.
type EmptyResponseError struct {
	Provider string
	Document string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("%s returned an empty response for %s", e.Provider, e.Document)
}

// RetryExhaustedError is returned once the attempt ceiling has been reached.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// IsRetryable classifies err for the retry policy. Cancellation of the
// caller's context and empty responses are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var emptyErr *EmptyResponseError
	if errors.As(err, &emptyErr) {
		return false
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}
	var tErr *TransientError
	if errors.As(err, &tErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, context.DeadlineExceeded)
}

// StatusError classifies a non-200 HTTP response from a provider: 429 becomes a
// RateLimitError honouring Retry-After, 5xx a TransientError, anything else a
// plain non-retryable error.
func StatusError(provider string, status int, retryAfter string, body []byte) error {
	baseErr := fmt.Errorf("%s API error (status %d): %s", provider, status, truncate(string(body), 500))
	switch {
	case status == 429:
		return NewRateLimitError(provider, baseErr, ParseRetryAfterHeader(retryAfter))
	case status >= 500:
		return NewTransientError(provider, baseErr)
	default:
		return baseErr
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
