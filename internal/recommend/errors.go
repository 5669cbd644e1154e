package recommend

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so the orchestrator can record them
// per district and decide what is retryable.
type ErrorKind string

const (
	// KindNetwork covers timeouts, refused connections and 5xx responses.
	KindNetwork ErrorKind = "network"
	// KindRateLimited means the provider rejected the call with HTTP 429.
	KindRateLimited ErrorKind = "rate_limited"
	// KindMalformed means the provider answered but the payload was unusable.
	KindMalformed ErrorKind = "malformed_response"
	// KindPersistence covers storage-layer failures in the reading repository.
	KindPersistence ErrorKind = "persistence"
	// KindTimedOut marks districts skipped or cut off by the batch deadline.
	KindTimedOut ErrorKind = "timed_out"
)

// Retryable reports whether a failure of this kind is worth another attempt.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetwork, KindRateLimited, KindPersistence:
		return true
	default:
		return false
	}
}

// Error carries the failure classification alongside the underlying cause.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E wraps err with a kind and the operation that produced it.
func E(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification from err. Context deadline errors map to
// KindTimedOut; anything unclassified is treated as a network failure, the
// conservative retryable default for provider data.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimedOut
	}
	return KindNetwork
}
