package txn

import "sync"

// maxPendingReplies bounds the payloads queued between two drains.
const maxPendingReplies = 4096

// mailbox hands reply payloads from the transport goroutine to the
// waiting goroutine. put never blocks.
type mailbox struct {
	mu       sync.Mutex
	pending  [][]byte
	limit    int
	overflow bool
	closed   bool
	notify   chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{limit: maxPendingReplies, notify: make(chan struct{}, 1)}
}

// put queues a copy of payload and wakes the waiter. Payloads put after
// close are discarded. A payload that would exceed the limit is dropped
// and the mailbox is marked overflowed.
func (m *mailbox) put(payload []byte) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if len(m.pending) >= m.limit {
		m.overflow = true
	} else {
		m.pending = append(m.pending, append([]byte(nil), payload...))
	}
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// drain returns every queued payload in arrival order.
func (m *mailbox) drain() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}

// overflowed reports whether any payload was dropped by the limit.
func (m *mailbox) overflowed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overflow
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.pending = nil
	m.mu.Unlock()
}
