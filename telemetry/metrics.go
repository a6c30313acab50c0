// Package telemetry exposes Prometheus metrics for retrieval and sessions.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional metrics dependency without nil checks at every call site.
package telemetry

import (
	"errors"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	RetrievalsTotal     *prometheus.CounterVec
	RetrievalDuration   prometheus.Histogram
	CandidatesTotal     *prometheus.CounterVec
	ResultsTotal        *prometheus.CounterVec
	DuplicatesDropped   prometheus.Counter
	PayloadCharacters   prometheus.Histogram
	PassagesTruncated   prometheus.Counter
	WindowTurnsDropped  prometheus.Counter
	SessionsActive      prometheus.Gauge
	SessionBusyTotal    prometheus.Counter
	TurnsCommittedTotal *prometheus.CounterVec
	IndexSize           *prometheus.GaugeVec
	IndexFaulted        *prometheus.GaugeVec
	UnitsIngestedTotal  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
//
// Metrics:
//   - docent_retrievals_total{outcome} - retrieval cycles by outcome
//   - docent_retrieval_duration_seconds - end-to-end retrieval latency
//   - docent_candidates_total{pool} - raw candidates returned per pool
//   - docent_results_total{pool} - results that cleared the threshold per pool
//   - docent_duplicates_dropped_total - results removed as near-duplicates
//   - docent_payload_characters - passage characters per assembled payload
//   - docent_passages_excluded_total - passages cut by the context budget
//   - docent_window_turns_dropped_total - turns trimmed by the hard cap
//   - docent_sessions_active - sessions resident in memory
//   - docent_session_busy_total - rejected concurrent queries
//   - docent_turns_committed_total{role} - persisted conversation turns
//   - docent_index_size{pool} - units per pool index
//   - docent_index_faulted{pool} - 1 while a pool refuses queries
//   - docent_units_ingested_total{pool} - units stored by ingestion
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RetrievalsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docent_retrievals_total",
				Help: "Total number of retrieval cycles by outcome",
			},
			[]string{"outcome"}, // "ok", "empty", "timeout", "error"
		),
		RetrievalDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docent_retrieval_duration_seconds",
				Help:    "Duration of retrieval including query embedding",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
		),
		CandidatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docent_candidates_total",
				Help: "Total number of raw index candidates per pool",
			},
			[]string{"pool"},
		),
		ResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docent_results_total",
				Help: "Total number of ranked results above the relevance threshold per pool",
			},
			[]string{"pool"},
		),
		DuplicatesDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docent_duplicates_dropped_total",
				Help: "Total number of results removed as near-duplicates",
			},
		),
		PayloadCharacters: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docent_payload_characters",
				Help:    "Passage characters per assembled context payload",
				Buckets: prometheus.LinearBuckets(0, 500, 10),
			},
		),
		PassagesTruncated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docent_passages_excluded_total",
				Help: "Total number of ranked passages left out by the context budget",
			},
		),
		WindowTurnsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docent_window_turns_dropped_total",
				Help: "Total number of window turns trimmed from payloads by the hard cap",
			},
		),
		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "docent_sessions_active",
				Help: "Current number of sessions held in memory",
			},
		),
		SessionBusyTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "docent_session_busy_total",
				Help: "Total number of queries rejected because the session was busy",
			},
		),
		TurnsCommittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docent_turns_committed_total",
				Help: "Total number of conversation turns committed",
			},
			[]string{"role"},
		),
		IndexSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docent_index_size",
				Help: "Number of units in each pool index",
			},
			[]string{"pool"},
		),
		IndexFaulted: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "docent_index_faulted",
				Help: "Whether a pool index refuses queries until rebuilt",
			},
			[]string{"pool"},
		),
		UnitsIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docent_units_ingested_total",
				Help: "Total number of content units stored by ingestion",
			},
			[]string{"pool"},
		),
	}
}

// RecordRetrieval records the outcome and latency of one retrieval.
func (m *Metrics) RecordRetrieval(results []*core.RankedResult, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RetrievalDuration.Observe(elapsed.Seconds())

	switch {
	case errors.Is(err, core.ErrRetrievalTimeout):
		m.RetrievalsTotal.WithLabelValues("timeout").Inc()
	case err != nil:
		m.RetrievalsTotal.WithLabelValues("error").Inc()
	case len(results) == 0:
		m.RetrievalsTotal.WithLabelValues("empty").Inc()
	default:
		m.RetrievalsTotal.WithLabelValues("ok").Inc()
	}

	for _, r := range results {
		m.ResultsTotal.WithLabelValues(r.Pool.String()).Inc()
	}
}

// RecordCandidates records the raw candidate count of one pool query.
func (m *Metrics) RecordCandidates(pool core.Pool, n int) {
	if m == nil {
		return
	}
	m.CandidatesTotal.WithLabelValues(pool.String()).Add(float64(n))
}

// RecordDedupe records how many results deduplication removed.
func (m *Metrics) RecordDedupe(before, after int) {
	if m == nil || before <= after {
		return
	}
	m.DuplicatesDropped.Add(float64(before - after))
}

// RecordPayload records the shape of an assembled payload.
func (m *Metrics) RecordPayload(payload *core.ContextPayload, excluded, turnsDropped int) {
	if m == nil {
		return
	}
	m.PayloadCharacters.Observe(float64(payload.PassageLength()))
	m.PassagesTruncated.Add(float64(excluded))
	m.WindowTurnsDropped.Add(float64(turnsDropped))
}

// SetSessionsActive sets the resident session count.
func (m *Metrics) SetSessionsActive(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// RecordSessionBusy counts a rejected concurrent query.
func (m *Metrics) RecordSessionBusy() {
	if m == nil {
		return
	}
	m.SessionBusyTotal.Inc()
}

// RecordTurns counts committed turns by role.
func (m *Metrics) RecordTurns(turns ...*core.ConversationTurn) {
	if m == nil {
		return
	}
	for _, turn := range turns {
		m.TurnsCommittedTotal.WithLabelValues(turn.Role.String()).Inc()
	}
}

// SetIndexState publishes the size and fault state of a pool index.
func (m *Metrics) SetIndexState(pool core.Pool, size int, faulted bool) {
	if m == nil {
		return
	}
	m.IndexSize.WithLabelValues(pool.String()).Set(float64(size))
	fault := 0.0
	if faulted {
		fault = 1
	}
	m.IndexFaulted.WithLabelValues(pool.String()).Set(fault)
}

// RecordIngested counts stored units by pool.
func (m *Metrics) RecordIngested(units ...*core.ContentUnit) {
	if m == nil {
		return
	}
	for _, unit := range units {
		m.UnitsIngestedTotal.WithLabelValues(unit.Pool().String()).Inc()
	}
}
