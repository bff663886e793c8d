package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

// scripted fake client: pops one result per call.
type scriptedClient struct {
	calls   int
	results []func() (json.RawMessage, error)
}

func (s *scriptedClient) Name() string                { return "scripted" }
func (s *scriptedClient) Close() error                { return nil }
func (s *scriptedClient) CountTokens(text string) int { return len(strings.Fields(text)) }

func (s *scriptedClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i]()
}

func ok(raw string) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) { return json.RawMessage(raw), nil }
}

func fail(err error) func() (json.RawMessage, error) {
	return func() (json.RawMessage, error) { return nil, err }
}

func TestRetryRecoversFromTransientError(t *testing.T) {
	base := &scriptedClient{results: []func() (json.RawMessage, error){
		fail(errors.New("http 500")),
		fail(errors.New("http 429")),
		ok(`{}`),
	}}
	cli := Wrap(base, Retry(3, time.Millisecond))

	resp, err := cli.GenerateJSON(context.Background(), "p", nil)
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if string(resp) != `{}` {
		t.Fatalf("resp = %s", resp)
	}
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	boom := errors.New("http 503")
	base := &scriptedClient{results: []func() (json.RawMessage, error){fail(boom)}}
	cli := Wrap(base, Retry(3, time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want last attempt error", err)
	}
	if base.calls != 3 {
		t.Fatalf("calls = %d, want 3", base.calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	perm := NewPermanentError(errors.New("http 401"))
	base := &scriptedClient{results: []func() (json.RawMessage, error){fail(perm)}}
	cli := Wrap(base, Retry(5, time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), "p", nil)
	if !IsPermanent(err) {
		t.Fatalf("err = %v, want permanent", err)
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retries)", base.calls)
	}
}

func TestRetryHonorsContextBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	base := &scriptedClient{results: []func() (json.RawMessage, error){
		func() (json.RawMessage, error) {
			cancel()
			return nil, errors.New("http 500")
		},
	}}
	cli := Wrap(base, Retry(5, time.Millisecond))

	_, err := cli.GenerateJSON(ctx, "p", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if base.calls != 1 {
		t.Fatalf("calls = %d, want 1", base.calls)
	}
}

func TestRateLimitSpacing(t *testing.T) {
	base := &scriptedClient{results: []func() (json.RawMessage, error){ok(`{}`)}}
	cli := Wrap(base, RateLimit(10, 1)) // one token per 100ms
	t.Cleanup(func() { _ = cli.Close() })

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := cli.GenerateJSON(ctx, "p", nil); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	// Burst 1: calls 2 and 3 each wait for a refill.
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("3 calls finished in %v, limiter not pacing", elapsed)
	}
}

func TestRateLimitAcquireCancellation(t *testing.T) {
	base := &scriptedClient{results: []func() (json.RawMessage, error){ok(`{}`)}}
	cli := Wrap(base, RateLimit(0.1, 1)) // one token per 10s after the burst
	t.Cleanup(func() { _ = cli.Close() })

	if _, err := cli.GenerateJSON(context.Background(), "p", nil); err != nil {
		t.Fatalf("burst call: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := cli.GenerateJSON(ctx, "p", nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestMeterUsage(t *testing.T) {
	base := &scriptedClient{results: []func() (json.RawMessage, error){
		ok(`{"a": 1}`),
		fail(errors.New("http 500")),
	}}
	ledger := &Ledger{}
	cli := Wrap(base, MeterUsage(ledger))

	_, _ = cli.GenerateJSON(context.Background(), "one two three", nil)
	_, _ = cli.GenerateJSON(context.Background(), "one two three", nil)

	if ledger.Calls() != 2 {
		t.Fatalf("calls = %d, want 2", ledger.Calls())
	}
	if ledger.CostUnits() == 0 {
		t.Fatal("cost units not accumulated")
	}
}
