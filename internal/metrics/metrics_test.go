package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return nil
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range m.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok {
			if pair.GetValue() != want {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

func TestRecordLoginCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("web", OutcomeSuccess)
	c.RecordLogin("web", OutcomeSuccess)
	c.RecordLogin("android", OutcomeRejected)

	success := findMetric(t, reg, "sessiongate_logins_total", map[string]string{"platform": "web", "outcome": OutcomeSuccess})
	if got := success.GetCounter().GetValue(); got != 2 {
		t.Errorf("web success logins = %v, want 2", got)
	}
	rejected := findMetric(t, reg, "sessiongate_logins_total", map[string]string{"platform": "android", "outcome": OutcomeRejected})
	if got := rejected.GetCounter().GetValue(); got != 1 {
		t.Errorf("android rejected logins = %v, want 1", got)
	}
}

func TestRecordLoginDefaultsPlatformLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLogin("", OutcomeInvalid)

	m := findMetric(t, reg, "sessiongate_logins_total", map[string]string{"platform": "unknown"})
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("unknown platform logins = %v, want 1", got)
	}
}

func TestRecordGuardRejectionAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordGuardRejection("expired")
	c.RecordHTTPStatus(http.StatusUnauthorized)
	c.RecordLoginLatency(150 * time.Millisecond)

	if got := findMetric(t, reg, "sessiongate_guard_rejections_total", map[string]string{"reason": "expired"}).GetCounter().GetValue(); got != 1 {
		t.Errorf("guard rejections = %v, want 1", got)
	}
	if got := findMetric(t, reg, "sessiongate_http_status_total", map[string]string{"status_code": "401"}).GetCounter().GetValue(); got != 1 {
		t.Errorf("401 responses = %v, want 1", got)
	}
	if got := findMetric(t, reg, "sessiongate_login_duration_seconds", nil).GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("login latency samples = %v, want 1", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordLogin("web", OutcomeSuccess)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `sessiongate_logins_total{outcome="success",platform="web"} 1`) {
		t.Errorf("response should contain the login counter, got:\n%s", body)
	}
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordLogin("web", OutcomeSuccess)
	r.RecordLoginLatency(time.Second)
	r.RecordGuardRejection("missing")
	r.RecordHTTPStatus(http.StatusOK)
}
