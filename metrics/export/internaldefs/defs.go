package internaldefs

import (
	authgate "github.com/registryops/authgate"
)

// CounterDef binds an engine counter to a stable exported name.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to a stable exported name.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Fully verified password logins."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Rejected password attempts."},
	{ID: authgate.MetricLoginLocked, Name: "authgate_login_locked_total", Help: "Attempts refused due to an active lockout."},
	{ID: authgate.MetricLoginAutoUnlock, Name: "authgate_login_auto_unlock_total", Help: "Expired lockouts cleared during login."},
	{ID: authgate.MetricLoginNotActive, Name: "authgate_login_not_active_total", Help: "Attempts against non-active accounts."},
	{ID: authgate.MetricOTPIssued, Name: "authgate_otp_issued_total", Help: "One-time codes generated and recorded."},
	{ID: authgate.MetricOTPDeliveryFailed, Name: "authgate_otp_delivery_failed_total", Help: "Email channel failures during issuance."},
	{ID: authgate.MetricOTPVerified, Name: "authgate_otp_verified_total", Help: "Successful code verifications."},
	{ID: authgate.MetricOTPRejected, Name: "authgate_otp_rejected_total", Help: "Failed code verifications."},
	{ID: authgate.MetricPatchApplied, Name: "authgate_patch_applied_total", Help: "Successful optimistic-concurrency updates."},
	{ID: authgate.MetricPatchConflict, Name: "authgate_patch_conflict_total", Help: "Updates refused due to a version conflict."},
	{ID: authgate.MetricPatchRejected, Name: "authgate_patch_rejected_total", Help: "Updates refused before any write."},
}

var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricVerifyLatency, Name: "authgate_verify_latency_seconds", Help: "Password verification latency histogram."},
}

// HistogramBounds are the bucket upper bounds in seconds, Prometheus form.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// OTel instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw snapshot slice to the fixed
// bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into the cumulative form
// exporters render.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
