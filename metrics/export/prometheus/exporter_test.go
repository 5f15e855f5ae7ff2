package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authgate "github.com/registryops/authgate"
)

type fakeSource struct {
	snapshot authgate.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() authgate.MetricsSnapshot { return f.snapshot }
func (f *fakeSource) AuditDropped() uint64                      { return f.dropped }

func TestRender_CountersAndHistogram(t *testing.T) {
	src := &fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters: map[authgate.MetricID]uint64{
				authgate.MetricLoginSuccess:  7,
				authgate.MetricPatchConflict: 2,
			},
			Histograms: map[authgate.MetricID][]uint64{
				authgate.MetricVerifyLatency: {1, 0, 0, 0, 2, 0, 0, 1},
			},
		},
		dropped: 3,
	}

	out := NewPrometheusExporterFromSource(src).Render()

	for _, want := range []string{
		"authgate_login_success_total 7",
		"authgate_patch_conflict_total 2",
		"authgate_otp_issued_total 0",
		`authgate_verify_latency_seconds_bucket{le="0.005"} 1`,
		`authgate_verify_latency_seconds_bucket{le="+Inf"} 4`,
		"authgate_verify_latency_seconds_count 4",
		"authgate_audit_dropped_total 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q\n%s", want, out)
		}
	}
}

func TestRender_EmptySourceRendersNothing(t *testing.T) {
	src := &fakeSource{snapshot: authgate.MetricsSnapshot{
		Counters:   map[authgate.MetricID]uint64{},
		Histograms: map[authgate.MetricID][]uint64{},
	}}
	if out := NewPrometheusExporterFromSource(src).Render(); out != "" {
		t.Fatalf("expected empty render, got %q", out)
	}

	var nilExporter *PrometheusExporter
	if out := nilExporter.Render(); out != "" {
		t.Fatal("nil exporter rendered output")
	}
}

func TestHandler_ServesTextFormat(t *testing.T) {
	src := &fakeSource{
		snapshot: authgate.MetricsSnapshot{
			Counters:   map[authgate.MetricID]uint64{authgate.MetricOTPVerified: 1},
			Histograms: map[authgate.MetricID][]uint64{},
		},
	}

	rec := httptest.NewRecorder()
	NewPrometheusExporterFromSource(src).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "authgate_otp_verified_total 1") {
		t.Fatalf("body: %s", rec.Body.String())
	}
}
