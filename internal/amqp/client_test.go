package amqp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"closed", errors.New("connection closed"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed network", errors.New("use of closed network connection"), true},
		{"other", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func newTestClient() *Client {
	return &Client{
		url:          "amqp://localhost",
		exchangeName: "fundtracker",
		queueName:    "ledger_mirror",
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	c := newTestClient()

	if c.isCircuitOpen() {
		t.Fatal("new client should have a closed circuit")
	}

	for i := 0; i < maxFailures-1; i++ {
		c.recordFailure()
	}
	if c.isCircuitOpen() {
		t.Fatalf("circuit opened after %d failures", maxFailures-1)
	}

	c.recordFailure()
	if !c.isCircuitOpen() {
		t.Fatal("circuit should open after maxFailures")
	}

	c.recordSuccess()
	if atomic.LoadInt32(&c.state) != StateClosed {
		t.Error("success should close the circuit")
	}
	if atomic.LoadInt64(&c.failureCount) != 0 {
		t.Error("success should reset the failure count")
	}
}

func TestClient_CircuitHalfOpensAfterTimeout(t *testing.T) {
	c := newTestClient()
	atomic.StoreInt32(&c.state, StateOpen)
	c.lastFailure = time.Now().Add(-openTimeout - time.Second)

	if c.isCircuitOpen() {
		t.Fatal("circuit should allow a trial request after openTimeout")
	}
	if atomic.LoadInt32(&c.state) != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", atomic.LoadInt32(&c.state))
	}

	// A failed trial reopens immediately.
	c.recordFailure()
	if atomic.LoadInt32(&c.state) != StateOpen {
		t.Error("failure in half-open state should reopen the circuit")
	}
}

func TestPublishLedgerChanged_CircuitOpen(t *testing.T) {
	c := newTestClient()
	atomic.StoreInt32(&c.state, StateOpen)
	c.lastFailure = time.Now()

	err := c.PublishLedgerChanged(context.Background(), NewLedgerChangedMessage("srv-1", OpAppend, 1, 1, 1))
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestPublishLedgerChanged_CancelledContext(t *testing.T) {
	c := newTestClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.PublishLedgerChanged(ctx, NewLedgerChangedMessage("srv-1", OpDelete, 2, 4, 9))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeAck struct {
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAck) Ack(bool) error { f.acked++; return nil }
func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	body, err := NewLedgerChangedMessage("srv-1", OpUpdate, 3, 5, 7).ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	t.Run("ack on success", func(t *testing.T) {
		ack := &fakeAck{}
		var got *LedgerChangedMessage
		handleDelivery(context.Background(), logger, body, ack, func(_ context.Context, m *LedgerChangedMessage) error {
			got = m
			return nil
		})
		if ack.acked != 1 || ack.nacked != 0 {
			t.Fatalf("acked=%d nacked=%d", ack.acked, ack.nacked)
		}
		if got == nil || got.Version != 7 || got.Seq != 3 {
			t.Fatalf("handler got %+v", got)
		}
	})

	t.Run("requeue on handler error", func(t *testing.T) {
		ack := &fakeAck{}
		handleDelivery(context.Background(), logger, body, ack, func(context.Context, *LedgerChangedMessage) error {
			return errors.New("sheets unavailable")
		})
		if ack.nacked != 1 || !ack.requeue {
			t.Fatalf("expected nack with requeue, got %+v", ack)
		}
	})

	t.Run("drop malformed body", func(t *testing.T) {
		ack := &fakeAck{}
		called := false
		handleDelivery(context.Background(), logger, []byte("{not json"), ack, func(context.Context, *LedgerChangedMessage) error {
			called = true
			return nil
		})
		if called {
			t.Error("handler should not run for a malformed body")
		}
		if ack.nacked != 1 || ack.requeue {
			t.Fatalf("expected nack without requeue, got %+v", ack)
		}
	})
}

func TestLedgerChangedMessage_JSON(t *testing.T) {
	msg := NewLedgerChangedMessage("srv-2", OpAppend, 12, 12, 40)
	if msg.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := LedgerChangedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if decoded.Source != "srv-2" || decoded.Op != OpAppend || decoded.Seq != 12 || decoded.Count != 12 || decoded.Version != 40 {
		t.Errorf("decoded = %+v", decoded)
	}

	if _, err := LedgerChangedMessageFromJSON([]byte(`{"op":"truncate"}`)); err == nil {
		t.Error("expected error for unknown op")
	}
}
