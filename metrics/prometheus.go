package metrics

import "github.com/prometheus/client_golang/prometheus"

type promCollector struct {
	source *Collector

	transactions *prometheus.Desc
	failures     *prometheus.Desc
	fragments    *prometheus.Desc
	requests     *prometheus.Desc
	sent         *prometheus.Desc
}

// NewPrometheusCollector exposes c as a prometheus.Collector. Values are
// read from a fresh Snapshot on every scrape.
func NewPrometheusCollector(c *Collector) prometheus.Collector {
	labels := prometheus.Labels{"transport": c.transport, "codec": c.codec}
	return &promCollector{
		source: c,
		transactions: prometheus.NewDesc(
			"holonet_transactions_total",
			"Transactions by terminal outcome (started counts every Execute).",
			[]string{"outcome"}, labels,
		),
		failures: prometheus.NewDesc(
			"holonet_transaction_failures_total",
			"Failed transactions by failure kind.",
			[]string{"kind"}, labels,
		),
		fragments: prometheus.NewDesc(
			"holonet_fragments_total",
			"Reply fragments seen by transactions, by disposition.",
			[]string{"disposition"}, labels,
		),
		requests: prometheus.NewDesc(
			"holonet_responder_requests_total",
			"Search requests handled by the responder, by result.",
			[]string{"result"}, labels,
		),
		sent: prometheus.NewDesc(
			"holonet_responder_fragments_sent_total",
			"Reply fragments emitted by the responder.",
			nil, labels,
		),
	}
}

func (p *promCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.transactions
	ch <- p.failures
	ch <- p.fragments
	ch <- p.requests
	ch <- p.sent
}

func (p *promCollector) Collect(ch chan<- prometheus.Metric) {
	s := p.source.Snapshot()

	counter := func(desc *prometheus.Desc, v int64, label ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), label...)
	}

	counter(p.transactions, s.TransactionsStarted, "started")
	counter(p.transactions, s.TransactionsCompleted, "completed")
	counter(p.transactions, s.TransactionsFailed, "failed")

	for kind, n := range s.FailedByKind {
		counter(p.failures, n, kind)
	}

	counter(p.fragments, s.FragmentsReceived, "received")
	counter(p.fragments, s.FragmentsAccepted, "accepted")
	counter(p.fragments, s.FragmentsDropped, "dropped")
	counter(p.fragments, s.FragmentsForeign, "foreign")
	counter(p.fragments, s.DecodeErrors, "decode_error")
	counter(p.fragments, s.RemoteErrors, "remote_error")

	counter(p.requests, s.RequestsServed, "served")
	counter(p.requests, s.RequestsRateLimited, "rate_limited")
	counter(p.requests, s.RequestsInvalid, "invalid")

	counter(p.sent, s.FragmentsSent)
}
