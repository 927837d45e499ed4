package txn

import (
	"context"
	"testing"
	"time"

	"github.com/pithecene-io/holonet/codec"
	"github.com/pithecene-io/holonet/transport/memory"
	"github.com/pithecene-io/holonet/types"
)

// serveEcho answers every search on peer with one page per name.
func serveEcho(t *testing.T, peer *memory.Peer, c codec.Codec, names ...string) {
	t.Helper()
	err := peer.Subscribe(types.EventSearch, func(payload []byte) {
		q, err := codec.DecodeQuery(c, payload)
		if err != nil {
			t.Errorf("responder decode: %v", err)
			return
		}
		for i, name := range names {
			f := &types.Fragment{
				Page:        i + 1,
				ResultCount: len(names),
				Name:        name,
				Films:       "films of " + q.Query,
				Txn:         q.Txn,
			}
			data, err := codec.EncodeFragment(c, f)
			if err != nil {
				t.Errorf("responder encode: %v", err)
				return
			}
			if err := peer.Emit(context.Background(), types.EventSearch, data); err != nil {
				t.Errorf("responder emit: %v", err)
				return
			}
		}
	})
	if err != nil {
		t.Fatalf("responder subscribe: %v", err)
	}
}

func TestExecute_MemoryPair(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON, codec.Msgpack} {
		t.Run(c.Name(), func(t *testing.T) {
			client, server := memory.NewPair()
			defer func() { _ = client.Close() }()

			serveEcho(t, server, c, "Obi-Wan Kenobi", "Anakin Skywalker")

			s := newTestSearch(t, "kenobi", WithCodec(c), WithTimeout(5*time.Second))
			s.Execute(t.Context(), client)

			if s.Status() != types.StatusComplete {
				msg, _ := s.ErrorMessage()
				t.Fatalf("Status() = %q (%s), want complete", s.Status(), msg)
			}
			matches := s.Matches()
			if len(matches) != 2 || matches[0].Txn != s.ID() {
				t.Errorf("Matches() = %+v", matches)
			}
			if matches[0].Films != "films of kenobi" {
				t.Errorf("Films = %q", matches[0].Films)
			}
		})
	}
}

func TestExecute_MemoryPairSequential(t *testing.T) {
	client, server := memory.NewPair()
	defer func() { _ = client.Close() }()

	serveEcho(t, server, codec.JSON, "Yoda")

	for range 5 {
		s := newTestSearch(t, "yoda", WithTimeout(5*time.Second))
		s.Execute(t.Context(), client)
		if s.Status() != types.StatusComplete {
			t.Fatalf("Status() = %q, want complete", s.Status())
		}
	}
}

func TestExecute_NoResponder(t *testing.T) {
	client, server := memory.NewPair()
	defer func() { _ = server.Close() }()

	s := newTestSearch(t, "nobody", WithTimeout(50*time.Millisecond))
	s.Execute(t.Context(), client)

	if s.FailureKind() != types.FailureTimeout {
		t.Errorf("FailureKind() = %q, want timeout", s.FailureKind())
	}
}
