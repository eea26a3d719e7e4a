package observability_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"academy_site/internal/adapters/observability"
)

func TestMetricsRegistryAndHandler(t *testing.T) {
	reg := observability.InitRegistry()

	// record samples so the vectors are exported
	observability.ObserveHTTP("/api/contact", "POST", 202, 12*time.Millisecond)
	observability.ObserveLead("", "stored")
	observability.ObserveRelay("delivered")

	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	out := string(body)
	for _, want := range []string{
		"academy_http_requests_total",
		`academy_leads_submitted_total{outcome="stored",type="unset"}`,
		`academy_leads_relayed_total{outcome="delivered"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}

func TestLogger_JSONOutsideDev(t *testing.T) {
	var buf bytes.Buffer
	l := observability.NewTestLogger(&buf, "prod")
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"message":"hello"`) || !strings.Contains(buf.String(), `"service":"academy_site"`) {
		t.Fatalf("unexpected log line: %s", buf.String())
	}
}

func TestLogger_TestEnvDropsInfo(t *testing.T) {
	var buf bytes.Buffer
	l := observability.NewTestLogger(&buf, "test")
	l.Info().Msg("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered in test env: %s", buf.String())
	}
}
