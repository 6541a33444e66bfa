package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.CommandIssued("get_process_id")
	m.CommandIssued("get_process_id")
	m.Ack(OutcomeTracked)
	m.Ack(OutcomeUnknown)
	m.Result("process_id", OutcomeTracked)
	m.WorkerLog("warning")
	m.TransportError("receive")
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	require.InDelta(t, 2, testutil.ToFloat64(m.commandsIssued.WithLabelValues("get_process_id")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.acks.WithLabelValues(OutcomeUnknown)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.results.WithLabelValues("process_id", OutcomeTracked)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.workerLogs.WithLabelValues("warning")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.transportErrors.WithLabelValues("receive")), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.sessionsActive), 0)

	count, err := testutil.GatherAndCount(reg, "workerctl_controller_acks_total")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	require.NotPanics(t, func() {
		m.CommandIssued("quit")
		m.Ack(OutcomeTracked)
		m.Result("json", OutcomeAbandoned)
		m.WorkerLog("info")
		m.TransportError("send")
		m.SessionOpened()
		m.SessionClosed()
	})
}
