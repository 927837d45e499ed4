package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pithecene-io/holonet/codec"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/metrics"
	"github.com/pithecene-io/holonet/transport"
	"github.com/pithecene-io/holonet/types"
)

// Search looks up characters by name. Replies are paged fragments on
// types.EventSearch.
//
// Only one Search may be executing per transport at a time: the reply
// handler slot for the event is shared, so a second Search replaces the
// first one's handler. Correlation ids keep the surviving Search from
// accepting the other's replies.
type Search struct {
	id      string
	key     string
	timeout time.Duration
	codec   codec.Codec
	logger  *log.Logger
	metrics *metrics.Collector

	// Written only by the goroutine running Execute.
	seq sequencer

	mu        sync.Mutex
	started   bool
	status    types.Status
	kind      types.FailureKind
	fragments []types.Fragment
}

// NewSearch creates a search for key. Returns ErrEmptyKey if key is
// empty after trimming.
func NewSearch(key string, opts ...Option) (*Search, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}

	s := &Search{
		id:      uuid.NewString(),
		key:     key,
		timeout: DefaultTimeout,
		codec:   codec.JSON,
		logger:  log.Nop(),
		status:  types.StatusNew,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithTxn(s.id, s.key)
	return s, nil
}

// ID returns the transaction's correlation id.
func (s *Search) ID() string { return s.id }

// Key returns the search query.
func (s *Search) Key() string { return s.key }

// Timeout returns the transaction budget.
func (s *Search) Timeout() time.Duration { return s.timeout }

// Execute subscribes to replies, emits the request, and waits until the
// transaction is terminal, the timeout elapses, or ctx is done. The
// timeout is measured from entry, so time spent subscribing and emitting
// is part of the budget. Subscribe takes no context; a transport that
// blocks in Subscribe past the deadline delays the timeout failure until
// it returns. The reply handler is removed before Execute returns.
// Calling Execute on a transaction that already started is a no-op.
func (s *Search) Execute(ctx context.Context, t transport.Transport) {
	if !s.start() {
		return
	}
	deadline := time.Now().Add(s.timeout)

	if ctx.Err() != nil {
		s.fail(types.FailureCanceled, MsgCanceled)
		return
	}

	box := newMailbox()
	if err := t.Subscribe(types.EventSearch, box.put); err != nil {
		s.fail(types.FailureTransport, fmt.Sprintf("Transaction reply handler could not be installed: %v", err))
		return
	}
	defer func() {
		box.close()
		if err := t.Unsubscribe(types.EventSearch); err != nil {
			s.logger.Warn("unsubscribe failed", map[string]any{"error": err.Error()})
		}
	}()
	if !time.Now().Before(deadline) {
		s.fail(types.FailureTimeout, MsgTimedOut)
		return
	}

	payload, err := codec.EncodeQuery(s.codec, &types.Query{Query: s.key, Txn: s.id})
	if err != nil {
		s.fail(types.FailureTransport, fmt.Sprintf("Transaction request could not be sent: %v", err))
		return
	}
	emitCtx, cancel := context.WithDeadline(ctx, deadline)
	err = t.Emit(emitCtx, types.EventSearch, payload)
	cancel()
	if err != nil {
		switch {
		case ctx.Err() != nil:
			s.fail(types.FailureCanceled, MsgCanceled)
		case errors.Is(err, context.DeadlineExceeded) || !time.Now().Before(deadline):
			s.fail(types.FailureTimeout, MsgTimedOut)
		default:
			s.fail(types.FailureTransport, fmt.Sprintf("Transaction request could not be sent: %v", err))
		}
		return
	}
	s.logger.Debug("search request sent", map[string]any{"timeout_ms": s.timeout.Milliseconds()})

	// settle applies queued replies and reports whether the transaction
	// is terminal afterwards.
	settle := func() bool {
		if s.applyAll(box.drain()) {
			return true
		}
		if box.overflowed() {
			s.fail(types.FailureTransport, MsgOverflow)
			return true
		}
		return false
	}

	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case <-box.notify:
			if settle() {
				return
			}
		case <-timer.C:
			// Replies that landed before the deadline still count.
			if settle() {
				return
			}
			s.fail(types.FailureTimeout, MsgTimedOut)
			return
		case <-ctx.Done():
			if settle() {
				return
			}
			s.fail(types.FailureCanceled, MsgCanceled)
			return
		}
	}
}

// Fail ends the transaction before it starts executing. It counts as
// started and failed in metrics.
func (s *Search) Fail(kind types.FailureKind, msg string) bool {
	if !s.start() {
		return false
	}
	return s.fail(kind, msg)
}

// start marks the transaction started once and records it.
func (s *Search) start() bool {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return false
	}
	s.started = true
	s.mu.Unlock()
	s.metrics.IncTransactionStarted()
	return true
}

// applyAll applies payloads in order and reports whether the
// transaction became terminal. Payloads after the terminal one are
// discarded.
func (s *Search) applyAll(payloads [][]byte) bool {
	for _, p := range payloads {
		if s.apply(p) {
			return true
		}
	}
	return false
}

func (s *Search) apply(payload []byte) bool {
	s.metrics.IncFragmentReceived()

	f, err := codec.DecodeFragment(s.codec, payload)
	if err != nil {
		s.metrics.IncDecodeError()
		s.logger.Warn("undecodable search reply", map[string]any{"error": err.Error(), "size": len(payload)})
		return s.fail(types.FailureDecode, err.Error())
	}

	if f.Txn != "" && f.Txn != s.id {
		s.metrics.IncFragmentForeign()
		s.logger.Debug("dropping reply for another transaction", map[string]any{"reply_txn": f.Txn})
		return false
	}

	if f.IsError() {
		s.metrics.IncRemoteError()
		return s.finish(types.StatusFailed, types.FailureRemote, f)
	}

	accepted, last := s.seq.offer(f)
	if !accepted {
		s.metrics.IncFragmentDropped()
		s.logger.Debug("dropping out-of-sequence page", map[string]any{
			"page":     f.Page,
			"expected": s.seq.accepted + 1,
		})
		return false
	}
	s.metrics.IncFragmentAccepted()

	if last {
		return s.finish(types.StatusComplete, types.FailureNone, f)
	}
	s.mu.Lock()
	s.fragments = append(s.fragments, *f)
	s.mu.Unlock()
	return false
}

// fail records a synthetic error fragment and moves to FAILED.
func (s *Search) fail(kind types.FailureKind, msg string) bool {
	f := types.ErrorFragment(msg)
	return s.finish(types.StatusFailed, kind, &f)
}

// finish appends f and moves to a terminal status. Returns true if the
// transaction is terminal afterwards; a second terminal transition is
// ignored.
func (s *Search) finish(status types.Status, kind types.FailureKind, f *types.Fragment) bool {
	s.mu.Lock()
	if s.status.IsTerminal() {
		s.mu.Unlock()
		return true
	}
	if f != nil {
		s.fragments = append(s.fragments, *f)
	}
	s.status = status
	s.kind = kind
	s.mu.Unlock()

	if status == types.StatusComplete {
		s.metrics.IncTransactionCompleted()
		s.logger.Info("search complete", map[string]any{"pages": s.seq.accepted})
		return true
	}
	s.metrics.IncTransactionFailed(string(kind))
	fields := map[string]any{"kind": string(kind)}
	if f != nil {
		fields["error"] = f.Error
	}
	s.logger.Warn("search failed", fields)
	return true
}

// Status returns the current status.
func (s *Search) Status() types.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsComplete reports whether the status is no longer NEW.
func (s *Search) IsComplete() bool {
	return s.Status().IsTerminal()
}

// FailureKind returns why the search failed, or types.FailureNone.
func (s *Search) FailureKind() types.FailureKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind
}

// Fragments returns a copy of every recorded fragment in arrival order.
func (s *Search) Fragments() []types.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Fragment(nil), s.fragments...)
}

// Matches returns the accepted pages when COMPLETE, nil otherwise.
func (s *Search) Matches() []types.Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.StatusComplete {
		return nil
	}
	return append([]types.Fragment(nil), s.fragments...)
}

// Result renders the matches when COMPLETE:
//
//	[Txn:<id>] Results found:
//	<name> featured in
//	    <films>
func (s *Search) Result() (string, bool) {
	matches := s.Matches()
	if matches == nil {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[Txn:%s] Results found:\n", s.id)
	for _, m := range matches {
		fmt.Fprintf(&b, "%s featured in\n    %s\n", m.Name, m.Films)
	}
	return b.String(), true
}

// ErrorMessage returns the first non-empty fragment error when FAILED.
func (s *Search) ErrorMessage() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != types.StatusFailed {
		return "", false
	}
	for _, f := range s.fragments {
		if f.Error != "" {
			return f.Error, true
		}
	}
	return "", true
}

// Verify Search implements Transaction.
var _ Transaction = (*Search)(nil)
