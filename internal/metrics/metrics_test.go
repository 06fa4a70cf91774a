package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("list_users", "ok", 20*time.Millisecond)
	m.ObserveRequest("list_users", "ok", 30*time.Millisecond)
	m.ObserveRequest("list_users", "status_401", time.Millisecond)

	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("list_users", "ok")); got != 2 {
		t.Errorf("Expected 2 ok requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("list_users", "status_401")); got != 1 {
		t.Errorf("Expected 1 unauthorized request, got %v", got)
	}
	if got := testutil.CollectAndCount(m.apiDuration); got != 1 {
		t.Errorf("Expected 1 duration series, got %d", got)
	}
}

func TestRecordActionAndBackendUp(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAction("approve", "ok")
	m.RecordAction("approve", "failed")
	m.RecordAction("approve", "ok")
	if got := testutil.ToFloat64(m.actions.WithLabelValues("approve", "ok")); got != 2 {
		t.Errorf("Expected 2 approvals, got %v", got)
	}

	m.SetBackendUp(true)
	if got := testutil.ToFloat64(m.backendUp); got != 1 {
		t.Errorf("Expected backend up, got %v", got)
	}
	m.SetBackendUp(false)
	if got := testutil.ToFloat64(m.backendUp); got != 0 {
		t.Errorf("Expected backend down, got %v", got)
	}
}
