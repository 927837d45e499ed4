// Package txn turns one request over an event transport into a
// synchronous transaction.
//
// A transaction subscribes to the reply event, emits its request, and
// blocks the caller until the replies settle into a terminal status or
// the timeout elapses. Replies are pages 1..N that must arrive in order;
// a malformed reply or a remote error fragment fails the transaction at
// once.
package txn

import (
	"context"
	"errors"
	"time"

	"github.com/pithecene-io/holonet/codec"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/metrics"
	"github.com/pithecene-io/holonet/transport"
	"github.com/pithecene-io/holonet/types"
)

// DefaultTimeout is the transaction budget when none is configured.
const DefaultTimeout = 30 * time.Second

// Failure messages recorded as synthetic fragments.
const (
	MsgTimedOut    = "Transaction timed out."
	MsgCanceled    = "Transaction canceled."
	MsgUnavailable = "Transport not connected."
	MsgOverflow    = "Transaction reply queue overflowed."
)

// ErrEmptyKey is returned when a transaction is built without a key.
var ErrEmptyKey = errors.New("txn: key must not be empty")

// Transaction is a request whose outcome is decided by its replies.
type Transaction interface {
	// ID returns the correlation id, stable for the lifetime.
	ID() string
	// Key returns the request key.
	Key() string
	// Execute runs the transaction to a terminal status over t.
	// It returns once the status is terminal; outcomes are read
	// through the accessors.
	Execute(ctx context.Context, t transport.Transport)
	// Fail ends a transaction that has not started executing.
	// It reports whether the status changed.
	Fail(kind types.FailureKind, msg string) bool
	// Status returns the current status.
	Status() types.Status
	// IsComplete reports whether the status is terminal.
	IsComplete() bool
	// Result returns the rendered result when COMPLETE.
	Result() (string, bool)
	// ErrorMessage returns the first error text when FAILED.
	ErrorMessage() (string, bool)
	// FailureKind returns why the transaction failed, or FailureNone.
	FailureKind() types.FailureKind
	// Fragments returns every recorded fragment in arrival order.
	Fragments() []types.Fragment
}

// Option configures a transaction.
type Option func(*Search)

// WithTimeout overrides DefaultTimeout. Values <= 0 keep the default.
func WithTimeout(d time.Duration) Option {
	return func(s *Search) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithCodec selects the payload codec (default: codec.JSON).
func WithCodec(c codec.Codec) Option {
	return func(s *Search) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithLogger sets the logger (default: discard).
func WithLogger(l *log.Logger) Option {
	return func(s *Search) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records counters into m. A nil collector disables metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Search) {
		s.metrics = m
	}
}
