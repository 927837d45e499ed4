package websocket

import (
	"context"
	"net/http"

	"github.com/coder/websocket"

	"github.com/pithecene-io/holonet/transport"
)

// Server accepts WebSocket connections and hands each one to OnConnect
// as its own transport. The connection stays open until the peer
// disconnects or the request context ends.
type Server struct {
	// OnConnect is called once per accepted connection. It should
	// install handlers and return; handlers keep running afterwards.
	OnConnect func(ctx context.Context, t transport.Transport)
	// OnDisconnect, if set, is called after the connection is closed.
	OnDisconnect func(t transport.Transport)
	// Config applies to every accepted connection.
	Config Config
	// OriginPatterns allows cross-origin handshakes from matching hosts.
	OriginPatterns []string
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := s.Config.logger()

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.OriginPatterns,
	})
	if err != nil {
		logger.Warn("websocket accept failed", map[string]any{"remote": r.RemoteAddr, "error": err.Error()})
		return
	}

	c := newConn(r.Context(), ws, s.Config)
	logger.Info("websocket peer connected", map[string]any{"remote": r.RemoteAddr})

	if s.OnConnect != nil {
		s.OnConnect(c.ctx, c)
	}

	select {
	case <-c.Done():
	case <-r.Context().Done():
	}
	_ = c.Close()

	if s.OnDisconnect != nil {
		s.OnDisconnect(c)
	}
	logger.Info("websocket peer disconnected", map[string]any{"remote": r.RemoteAddr})
}
