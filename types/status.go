package types

// Status is the lifecycle state of a transaction.
// Transitions are monotonic: StatusNew moves to exactly one terminal status.
type Status string

const (
	// StatusNew means the transaction has not reached a terminal state.
	StatusNew Status = "new"
	// StatusComplete means every expected page arrived in order.
	StatusComplete Status = "complete"
	// StatusFailed means the transaction ended without a usable result.
	StatusFailed Status = "failed"
)

// IsTerminal returns true for StatusComplete and StatusFailed.
func (s Status) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// FailureKind classifies why a transaction failed.
type FailureKind string

const (
	// FailureNone is reported for transactions that did not fail.
	FailureNone FailureKind = ""
	// FailureDecode means a reply payload could not be decoded.
	FailureDecode FailureKind = "decode"
	// FailureRemote means the responder sent an error fragment.
	FailureRemote FailureKind = "remote"
	// FailureTimeout means the transaction budget elapsed first.
	FailureTimeout FailureKind = "timeout"
	// FailureCanceled means the caller's context ended first.
	FailureCanceled FailureKind = "canceled"
	// FailureTransport means the request could not be emitted.
	FailureTransport FailureKind = "transport"
	// FailureUnavailable means the transport was not connected.
	FailureUnavailable FailureKind = "unavailable"
)
