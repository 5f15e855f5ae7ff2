package authgate

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAuditDispatcher_DeliversAndDrains(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8}, sink)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		d.Emit(ctx, AuditEvent{EventType: auditEventLoginFailure})
	}
	d.Close()

	received := 0
	for {
		select {
		case <-sink.Events():
			received++
			continue
		default:
		}
		break
	}
	if received != 5 {
		t.Fatalf("received %d events, want 5", received)
	}
}

func TestAuditDispatcher_DropIfFullCountsDrops(t *testing.T) {
	// A sink that never drains forces the buffer to fill.
	blocked := make(chan struct{})
	sink := sinkFunc(func(ctx context.Context, _ AuditEvent) {
		select {
		case <-blocked:
		case <-ctx.Done():
		}
	})

	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no drops recorded under backpressure")
		}
		d.Emit(ctx, AuditEvent{EventType: auditEventLoginFailure})
	}

	close(blocked)
	d.Close()
}

func TestAuditDispatcher_DisabledAndNilSafe(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{}, nil)
	if d != nil {
		t.Fatal("disabled config should produce a nil dispatcher")
	}
	d.Emit(context.Background(), AuditEvent{}) // nil receiver must not panic
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		EventType: auditEventPasscodeVerified,
		Email:     "alice@example.org",
		Success:   true,
	})

	line := strings.TrimSpace(buf.String())
	var decoded AuditEvent
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("sink wrote invalid json: %v", err)
	}
	if decoded.EventType != auditEventPasscodeVerified || decoded.Email != "alice@example.org" {
		t.Fatalf("decoded event: %+v", decoded)
	}
}

type sinkFunc func(context.Context, AuditEvent)

func (f sinkFunc) Emit(ctx context.Context, event AuditEvent) { f(ctx, event) }
