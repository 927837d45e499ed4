// Package metrics collects transaction and responder counters.
//
// The Collector accumulates counters for the lifetime of a process. It is a
// leaf package with no internal dependencies; failure kinds are recorded as
// plain strings. A Collector can be exported to Prometheus via
// NewPrometheusCollector.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Transaction lifecycle
	TransactionsStarted   int64
	TransactionsCompleted int64
	TransactionsFailed    int64
	FailedByKind          map[string]int64

	// Reply fragments seen by transactions
	FragmentsReceived int64
	FragmentsAccepted int64
	FragmentsDropped  int64 // out-of-order or duplicate page
	FragmentsForeign  int64 // correlation id of another transaction
	DecodeErrors      int64
	RemoteErrors      int64

	// Responder
	RequestsServed      int64
	RequestsRateLimited int64
	RequestsInvalid     int64
	FragmentsSent       int64

	// Dimensions (informational, set at construction)
	Transport string
	Codec     string
}

// Collector accumulates counters.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	transactionsStarted   int64
	transactionsCompleted int64
	transactionsFailed    int64
	failedByKind          map[string]int64

	fragmentsReceived int64
	fragmentsAccepted int64
	fragmentsDropped  int64
	fragmentsForeign  int64
	decodeErrors      int64
	remoteErrors      int64

	requestsServed      int64
	requestsRateLimited int64
	requestsInvalid     int64
	fragmentsSent       int64

	transport string
	codec     string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(transport, codec string) *Collector {
	return &Collector{
		failedByKind: make(map[string]int64),
		transport:    transport,
		codec:        codec,
	}
}

// add increments field under the lock. Callers check for a nil receiver.
func (c *Collector) add(field *int64) {
	c.mu.Lock()
	*field++
	c.mu.Unlock()
}

// --- Transaction lifecycle ---

// IncTransactionStarted records a transaction entering Execute.
func (c *Collector) IncTransactionStarted() {
	if c == nil {
		return
	}
	c.add(&c.transactionsStarted)
}

// IncTransactionCompleted records a transaction reaching COMPLETE.
func (c *Collector) IncTransactionCompleted() {
	if c == nil {
		return
	}
	c.add(&c.transactionsCompleted)
}

// IncTransactionFailed records a transaction reaching FAILED with the given kind.
func (c *Collector) IncTransactionFailed(kind string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.transactionsFailed++
	c.failedByKind[kind]++
	c.mu.Unlock()
}

// --- Fragments ---

// IncFragmentReceived records a reply payload handed to a transaction.
func (c *Collector) IncFragmentReceived() {
	if c == nil {
		return
	}
	c.add(&c.fragmentsReceived)
}

// IncFragmentAccepted records a page accepted in sequence.
func (c *Collector) IncFragmentAccepted() {
	if c == nil {
		return
	}
	c.add(&c.fragmentsAccepted)
}

// IncFragmentDropped records an out-of-order or duplicate page.
func (c *Collector) IncFragmentDropped() {
	if c == nil {
		return
	}
	c.add(&c.fragmentsDropped)
}

// IncFragmentForeign records a reply addressed to another transaction.
func (c *Collector) IncFragmentForeign() {
	if c == nil {
		return
	}
	c.add(&c.fragmentsForeign)
}

// IncDecodeError records a reply that could not be decoded.
func (c *Collector) IncDecodeError() {
	if c == nil {
		return
	}
	c.add(&c.decodeErrors)
}

// IncRemoteError records an error fragment from the responder.
func (c *Collector) IncRemoteError() {
	if c == nil {
		return
	}
	c.add(&c.remoteErrors)
}

// --- Responder ---

// IncRequestServed records a request the responder answered.
func (c *Collector) IncRequestServed() {
	if c == nil {
		return
	}
	c.add(&c.requestsServed)
}

// IncRequestRateLimited records a request rejected by the rate limiter.
func (c *Collector) IncRequestRateLimited() {
	if c == nil {
		return
	}
	c.add(&c.requestsRateLimited)
}

// IncRequestInvalid records a request that could not be decoded.
func (c *Collector) IncRequestInvalid() {
	if c == nil {
		return
	}
	c.add(&c.requestsInvalid)
}

// IncFragmentSent records one reply fragment emitted by the responder.
func (c *Collector) IncFragmentSent() {
	if c == nil {
		return
	}
	c.add(&c.fragmentsSent)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byKind := make(map[string]int64, len(c.failedByKind))
	for k, v := range c.failedByKind {
		byKind[k] = v
	}

	return Snapshot{
		TransactionsStarted:   c.transactionsStarted,
		TransactionsCompleted: c.transactionsCompleted,
		TransactionsFailed:    c.transactionsFailed,
		FailedByKind:          byKind,

		FragmentsReceived: c.fragmentsReceived,
		FragmentsAccepted: c.fragmentsAccepted,
		FragmentsDropped:  c.fragmentsDropped,
		FragmentsForeign:  c.fragmentsForeign,
		DecodeErrors:      c.decodeErrors,
		RemoteErrors:      c.remoteErrors,

		RequestsServed:      c.requestsServed,
		RequestsRateLimited: c.requestsRateLimited,
		RequestsInvalid:     c.requestsInvalid,
		FragmentsSent:       c.fragmentsSent,

		Transport: c.transport,
		Codec:     c.codec,
	}
}
