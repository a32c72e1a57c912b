package retry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/futonlabs/couchstream/pkg/couch"
	"github.com/futonlabs/couchstream/pkg/multipart"
)

func TestPolicyDelay(t *testing.T) {
	policy := Policy{MaxRetries: 3, Interval: time.Second, Multiplier: 2.0}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}

	for _, tt := range tests {
		if got := policy.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"parse error", &multipart.ParseError{Reason: "bad delimiter"}, false},
		{"truncated", &multipart.TruncatedError{Reason: "stream ended"}, false},
		{"server error", &couch.StatusError{Status: 500}, true},
		{"unavailable", &couch.StatusError{Status: 503}, true},
		{"not found", &couch.StatusError{Status: 404}, false},
		{"conflict", &couch.StatusError{Status: 409}, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"transport", io.ErrClosedPipe, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestDo_SucceedsAfterRetries(t *testing.T) {
	policy := Policy{MaxRetries: 3, Interval: time.Millisecond, Multiplier: 1.0}

	calls := 0
	err := Do(context.Background(), policy, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &couch.StatusError{Status: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	policy := Policy{MaxRetries: 5, Interval: time.Millisecond, Multiplier: 1.0}

	calls := 0
	wantErr := &couch.StatusError{Status: 404}
	err := Do(context.Background(), policy, func(ctx context.Context) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, couch.ErrNotFound) {
		t.Errorf("error = %v, want not found", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ExhaustsPolicy(t *testing.T) {
	policy := Policy{MaxRetries: 2, Interval: time.Millisecond, Multiplier: 1.0}

	calls := 0
	err := Do(context.Background(), policy, func(ctx context.Context) error {
		calls++
		return &couch.StatusError{Status: 500}
	})
	if !errors.Is(err, couch.ErrServerError) {
		t.Errorf("error = %v, want server error", err)
	}
	if calls != 3 { // initial attempt plus two retries
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_ContextCanceledDuringBackoff(t *testing.T) {
	policy := Policy{MaxRetries: 3, Interval: time.Hour, Multiplier: 1.0}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, policy, func(ctx context.Context) error {
		return &couch.StatusError{Status: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
