// Package memory implements an in-process transport pair.
//
// Each Peer owns an event bus for inbound topics and a delivery goroutine.
// Events emitted on one peer are queued to the other and published on its
// bus in emission order. Used for loopback mode and tests.
package memory

import (
	"context"
	"sync"

	evbus "github.com/asaskevich/EventBus"

	"github.com/pithecene-io/holonet/transport"
)

// DefaultQueueSize is the inbound queue depth of each peer.
const DefaultQueueSize = 256

type delivery struct {
	event   string
	payload []byte
}

// Peer is one end of an in-process transport pair.
//
// Handlers run on the peer's delivery goroutine while the bus holds its
// lock, so a handler must not call Subscribe on the same peer.
type Peer struct {
	name     string
	bus      evbus.Bus
	handlers transport.HandlerSet
	queue    chan delivery
	remote   *Peer

	// subMu makes the bus callback check-and-register atomic.
	subMu sync.Mutex

	mu     sync.Mutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// NewPair returns two connected peers. What a emits, b receives, and
// the other way round.
func NewPair() (*Peer, *Peer) {
	a := newPeer("a")
	b := newPeer("b")
	a.remote = b
	b.remote = a
	return a, b
}

func newPeer(name string) *Peer {
	p := &Peer{
		name:  name,
		bus:   evbus.New(),
		queue: make(chan delivery, DefaultQueueSize),
		done:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.deliverLoop()
	return p
}

func (p *Peer) deliverLoop() {
	defer p.wg.Done()
	for {
		select {
		case d := <-p.queue:
			p.bus.Publish(d.event, d.payload)
		case <-p.done:
			return
		}
	}
}

// Emit queues the event for delivery on the remote peer.
func (p *Peer) Emit(ctx context.Context, event string, payload []byte) error {
	if p.isClosed() {
		return transport.ErrClosed
	}
	r := p.remote
	if r.isClosed() {
		return transport.ErrClosed
	}

	buf := make([]byte, len(payload))
	copy(buf, payload)

	select {
	case r.queue <- delivery{event: event, payload: buf}:
		return nil
	case <-r.done:
		return transport.ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe installs h for event on this peer.
func (p *Peer) Subscribe(event string, h transport.Handler) error {
	if p.isClosed() {
		return transport.ErrClosed
	}
	p.handlers.Set(event, h)

	// One bus callback per topic; it resolves the current handler at
	// dispatch time so replacing or removing never touches the bus.
	p.subMu.Lock()
	defer p.subMu.Unlock()
	if !p.bus.HasCallback(event) {
		return p.bus.Subscribe(event, func(payload []byte) {
			p.handlers.Dispatch(event, payload)
		})
	}
	return nil
}

// Unsubscribe removes the handler for event.
func (p *Peer) Unsubscribe(event string) error {
	p.handlers.Remove(event)
	return nil
}

// IsConnected reports whether both peers are open.
func (p *Peer) IsConnected() bool {
	return !p.isClosed() && !p.remote.isClosed()
}

// Close stops the delivery goroutine. Queued events are discarded.
func (p *Peer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return transport.ErrClosed
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	p.handlers.Clear()
	return nil
}

// String returns the peer name, useful in logs.
func (p *Peer) String() string {
	return "memory:" + p.name
}

func (p *Peer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Verify Peer implements the transport interface.
var _ transport.Transport = (*Peer)(nil)
