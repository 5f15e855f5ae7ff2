// Package authgate implements a two-step account authentication flow with
// brute-force lockout, email one-time-passcode challenges, and an
// etag-guarded record-update protocol shared by every mutable entity of the
// hosting system.
//
// The package is designed for stateless server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build], and no request state is held in-process. All durable state
// lives in the document store behind [docstore.Store]; concurrency
// correctness rests on that store's etag-conditional replace.
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// [Classifier], audit sinks, and value types (LoginGate, PatchResult,
// MetricsSnapshot). Metric export lives in metrics/export/; storage, mail,
// hashing, and token signing live in their own sub-packages. Transport,
// routing, and response shaping belong to the caller.
//
// # Failure policy
//
// Every domain outcome is an error value the caller can match with
// [errors.Is]: invalid input, not found, locked, not active, conflict,
// channel failure. Unexpected faults are wrapped onto [ErrStoreUnavailable]
// rather than panicking. The one deliberate best-effort path is the post-OTP
// account stamping, whose failure is logged and audited but never surfaced.
package authgate
