package telemetry

import (
	"errors"
	"testing"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRetrieval(nil, nil, time.Millisecond)
		m.RecordCandidates(core.PoolWeb, 3)
		m.RecordDedupe(3, 1)
		m.RecordPayload(&core.ContextPayload{}, 1, 1)
		m.SetSessionsActive(2)
		m.RecordSessionBusy()
		m.RecordTurns(&core.ConversationTurn{Role: core.RoleUser})
		m.SetIndexState(core.PoolDocuments, 10, true)
		m.RecordIngested(&core.ContentUnit{Origin: core.OriginWebForum})
	})
}

func TestRecordRetrieval(t *testing.T) {
	m := New(prometheus.NewRegistry())

	results := []*core.RankedResult{
		{Pool: core.PoolDocuments},
		{Pool: core.PoolWeb},
		{Pool: core.PoolDocuments},
	}
	m.RecordRetrieval(results, nil, 10*time.Millisecond)
	m.RecordRetrieval(nil, nil, time.Millisecond)
	m.RecordRetrieval(nil, core.ErrRetrievalTimeout, time.Second)
	m.RecordRetrieval(nil, errors.New("boom"), time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalsTotal.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalsTotal.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetrievalsTotal.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResultsTotal.WithLabelValues("documents")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResultsTotal.WithLabelValues("web")))
}

func TestRecordSessionsAndIndex(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetSessionsActive(3)
	m.RecordSessionBusy()
	m.RecordTurns(
		&core.ConversationTurn{Role: core.RoleUser},
		&core.ConversationTurn{Role: core.RoleAssistant},
	)
	m.SetIndexState(core.PoolWeb, 42, true)
	m.RecordDedupe(5, 3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionBusyTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsCommittedTotal.WithLabelValues("assistant")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.IndexSize.WithLabelValues("web")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexFaulted.WithLabelValues("web")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DuplicatesDropped))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) }, "duplicate registration on one registry panics")
	assert.NotPanics(t, func() { New(prometheus.NewRegistry()) })
}
