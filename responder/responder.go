// Package responder answers search requests from a catalog.
//
// For a request it emits one reply fragment per matching character, pages
// 1..N with ResultCount N, echoing the request's correlation id. Misses,
// empty queries and rate-limited requests are answered with a single
// error fragment. Undecodable requests are logged and dropped.
package responder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pithecene-io/holonet/codec"
	"github.com/pithecene-io/holonet/log"
	"github.com/pithecene-io/holonet/metrics"
	"github.com/pithecene-io/holonet/transport"
	"github.com/pithecene-io/holonet/types"
)

// Error texts sent to clients.
const (
	MsgEmptyQuery  = "Search query must not be empty."
	MsgRateLimited = "Too many requests, try again later."
)

// NoMatchMessage returns the error text for a query without matches.
func NoMatchMessage(query string) string {
	return fmt.Sprintf("No valid matches retrieved for query '%s'", query)
}

// Config configures a Responder.
type Config struct {
	// Catalog answers queries (default: DefaultCatalog).
	Catalog Catalog
	// Codec decodes requests and encodes replies (default: codec.JSON).
	Codec codec.Codec
	// Rate limits requests per second across all transports. Zero disables limiting.
	Rate float64
	// Burst is the limiter bucket size (default: 1 when Rate is set).
	Burst int
	// Logger receives request logs (default: discard).
	Logger *log.Logger
	// Metrics records responder counters (optional).
	Metrics *metrics.Collector
}

// Responder serves searches on any number of transports.
type Responder struct {
	catalog Catalog
	codec   codec.Codec
	limiter *rate.Limiter
	logger  *log.Logger
	metrics *metrics.Collector

	wg sync.WaitGroup
}

// New creates a Responder.
func New(cfg Config) *Responder {
	r := &Responder{
		catalog: cfg.Catalog,
		codec:   cfg.Codec,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
	if r.catalog == nil {
		r.catalog = DefaultCatalog()
	}
	if r.codec == nil {
		r.codec = codec.JSON
	}
	if r.logger == nil {
		r.logger = log.Nop()
	}
	if cfg.Rate > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), burst)
	}
	return r
}

// Attach installs the search handler on t. Replies are emitted on their
// own goroutine, so delays never stall t's delivery. Emission stops when
// ctx is done.
func (r *Responder) Attach(ctx context.Context, t transport.Transport) error {
	return t.Subscribe(types.EventSearch, func(payload []byte) {
		r.handle(ctx, t, payload)
	})
}

// Serve attaches to t and blocks until ctx is done, then detaches and
// waits for in-flight replies.
func (r *Responder) Serve(ctx context.Context, t transport.Transport) error {
	if err := r.Attach(ctx, t); err != nil {
		return fmt.Errorf("attach responder: %w", err)
	}
	<-ctx.Done()
	err := t.Unsubscribe(types.EventSearch)
	r.Wait()
	return err
}

// Wait blocks until every in-flight reply has been emitted or abandoned.
func (r *Responder) Wait() {
	r.wg.Wait()
}

func (r *Responder) handle(ctx context.Context, t transport.Transport, payload []byte) {
	q, err := codec.DecodeQuery(r.codec, payload)
	if err != nil {
		r.metrics.IncRequestInvalid()
		r.logger.Warn("ignoring undecodable search request", map[string]any{"error": err.Error()})
		return
	}

	logger := r.logger.WithTxn(q.Txn, q.Query)

	if r.limiter != nil && !r.limiter.Allow() {
		r.metrics.IncRequestRateLimited()
		logger.Warn("search request rate limited", nil)
		r.spawn(func() { r.emitError(ctx, t, q, MsgRateLimited, logger) })
		return
	}
	r.metrics.IncRequestServed()

	query := strings.TrimSpace(q.Query)
	if query == "" {
		r.spawn(func() { r.emitError(ctx, t, q, MsgEmptyQuery, logger) })
		return
	}

	matches := r.catalog.Search(query)
	logger.Info("search request", map[string]any{"matches": len(matches)})
	if len(matches) == 0 {
		r.spawn(func() { r.emitError(ctx, t, q, NoMatchMessage(q.Query), logger) })
		return
	}
	r.spawn(func() { r.emitPages(ctx, t, q, matches, logger) })
}

func (r *Responder) spawn(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *Responder) emitPages(ctx context.Context, t transport.Transport, q *types.Query, matches []Character, logger *log.Logger) {
	for i, m := range matches {
		f := &types.Fragment{
			Page:        i + 1,
			ResultCount: len(matches),
			Name:        m.Name,
			Films:       strings.Join(m.Films, ", "),
			Txn:         q.Txn,
		}
		if !r.emit(ctx, t, f, logger) {
			return
		}
		if d := m.DelayDuration(); d > 0 && i < len(matches)-1 {
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}
}

func (r *Responder) emitError(ctx context.Context, t transport.Transport, q *types.Query, msg string, logger *log.Logger) {
	f := types.ErrorFragment(msg)
	f.Txn = q.Txn
	r.emit(ctx, t, &f, logger)
}

func (r *Responder) emit(ctx context.Context, t transport.Transport, f *types.Fragment, logger *log.Logger) bool {
	if ctx.Err() != nil {
		return false
	}
	data, err := codec.EncodeFragment(r.codec, f)
	if err != nil {
		logger.Error("failed to encode search reply", map[string]any{"error": err.Error()})
		return false
	}
	if err := t.Emit(ctx, types.EventSearch, data); err != nil {
		logger.Warn("failed to emit search reply", map[string]any{"page": f.Page, "error": err.Error()})
		return false
	}
	r.metrics.IncFragmentSent()
	return true
}
