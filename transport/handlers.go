package transport

import "sync"

// HandlerSet is the one-handler-per-event registry shared by transport
// implementations. Safe for concurrent use; the zero value is ready.
type HandlerSet struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// Set installs h for event and reports whether a previous handler was replaced.
func (s *HandlerSet) Set(event string, h Handler) (replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[string]Handler)
	}
	_, replaced = s.handlers[event]
	s.handlers[event] = h
	return replaced
}

// Remove deletes the handler for event and reports whether one existed.
func (s *HandlerSet) Remove(event string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.handlers[event]
	delete(s.handlers, event)
	return ok
}

// Get returns the handler for event.
func (s *HandlerSet) Get(event string) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[event]
	return h, ok
}

// Dispatch copies payload and invokes the handler for event, if any.
// Returns false when no handler is installed.
func (s *HandlerSet) Dispatch(event string, payload []byte) bool {
	h, ok := s.Get(event)
	if !ok {
		return false
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	h(buf)
	return true
}

// Clear removes every handler.
func (s *HandlerSet) Clear() {
	s.mu.Lock()
	s.handlers = nil
	s.mu.Unlock()
}
