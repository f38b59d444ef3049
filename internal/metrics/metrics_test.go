package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.DeviceAuth("success")
	m.DeviceAuth("success")
	m.DeviceAuth("not_found")
	m.DeviceOperation("register", "device_uid_exists")
	m.AuthEvent("login")
	m.ObserveRequest(http.MethodPost, "/functions/device-auth", http.StatusOK, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.deviceAuth.WithLabelValues("success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.deviceOps.WithLabelValues("register", "device_uid_exists")); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `hub_http_requests_total{method="POST",route="/functions/device-auth",status="200"} 1`) {
		t.Fatalf("expected request counter in exposition output")
	}
}
