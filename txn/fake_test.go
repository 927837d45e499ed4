package txn

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pithecene-io/holonet/transport"
	"github.com/pithecene-io/holonet/types"
)

// fakeTransport delivers replies synchronously from inside Emit, the
// way a transport that reads on the caller's goroutine would.
type fakeTransport struct {
	mu           sync.Mutex
	handlers     map[string]transport.Handler
	emitted      [][]byte
	unsubscribed []string
	emitErr      error
	subscribeErr error
	disconnected bool
	// blockEmit makes Emit wait for its context to end.
	blockEmit bool
	// subscribeDelay stalls Subscribe, like a slow SUBSCRIBE confirmation.
	subscribeDelay time.Duration

	// onEmit, if set, runs after the request is recorded. reply delivers
	// a payload to the installed handler.
	onEmit func(q types.Query, reply func(payload []byte))
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]transport.Handler)}
}

func (f *fakeTransport) Emit(ctx context.Context, event string, payload []byte) error {
	f.mu.Lock()
	if f.blockEmit {
		f.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	if f.emitErr != nil {
		f.mu.Unlock()
		return f.emitErr
	}
	f.emitted = append(f.emitted, payload)
	onEmit := f.onEmit
	f.mu.Unlock()

	if onEmit != nil {
		var q types.Query
		_ = json.Unmarshal(payload, &q)
		onEmit(q, func(p []byte) { f.deliver(event, p) })
	}
	return nil
}

func (f *fakeTransport) deliver(event string, payload []byte) {
	f.mu.Lock()
	h := f.handlers[event]
	f.mu.Unlock()
	if h != nil {
		h(payload)
	}
}

func (f *fakeTransport) Subscribe(event string, h transport.Handler) error {
	time.Sleep(f.subscribeDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.handlers[event] = h
	return nil
}

func (f *fakeTransport) Unsubscribe(event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, event)
	f.unsubscribed = append(f.unsubscribed, event)
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disconnected
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) emitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emitted)
}

func (f *fakeTransport) hasHandler(event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[event]
	return ok
}

func page(p, total int, name, films string) []byte {
	data, _ := json.Marshal(types.Fragment{Page: p, ResultCount: total, Name: name, Films: films})
	return data
}

func remoteError(msg string) []byte {
	data, _ := json.Marshal(types.ErrorFragment(msg))
	return data
}
