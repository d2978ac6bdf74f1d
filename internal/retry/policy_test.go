package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func classifyTest(err error) Classification {
	if errors.Is(err, errTransient) {
		return Retryable
	}
	return Terminal
}

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestDoSucceedsAfterRetryableFailures(t *testing.T) {
	cases := []struct {
		name     string
		failures int
		delays   []time.Duration
	}{
		{name: "first_try", failures: 0, delays: nil},
		{name: "one_failure", failures: 1, delays: []time.Duration{100 * time.Millisecond}},
		{name: "two_failures", failures: 2, delays: []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := &recordedSleep{}
			policy := Default()
			policy.Sleep = rec.sleep
			calls := 0
			got, err := Do(context.Background(), policy, func(ctx context.Context) (string, error) {
				calls++
				if calls <= tc.failures {
					return "", errTransient
				}
				return "ok", nil
			}, classifyTest)
			if err != nil {
				t.Fatalf("Do returned error: %v", err)
			}
			if got != "ok" {
				t.Fatalf("value = %q, want ok", got)
			}
			if calls != tc.failures+1 {
				t.Fatalf("calls = %d, want %d", calls, tc.failures+1)
			}
			if len(rec.delays) != len(tc.delays) {
				t.Fatalf("delays = %v, want %v", rec.delays, tc.delays)
			}
			for i := range tc.delays {
				if rec.delays[i] != tc.delays[i] {
					t.Fatalf("delay[%d] = %s, want %s", i, rec.delays[i], tc.delays[i])
				}
			}
		})
	}
}

func TestDoReturnsTerminalErrorImmediately(t *testing.T) {
	rec := &recordedSleep{}
	policy := Default()
	policy.Sleep = rec.sleep
	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, errFatal
	}, classifyTest)
	if !errors.Is(err, errFatal) {
		t.Fatalf("err = %v, want errFatal", err)
	}
	if IsExhausted(err) {
		t.Fatalf("terminal error must not be tagged exhausted")
	}
	if calls != 1 || len(rec.delays) != 0 {
		t.Fatalf("calls = %d delays = %v, want a single attempt", calls, rec.delays)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	rec := &recordedSleep{}
	policy := Default()
	policy.Sleep = rec.sleep
	calls := 0
	_, err := Do(context.Background(), policy, func(ctx context.Context) (int, error) {
		calls++
		return 0, errTransient
	}, classifyTest)
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("err = %v, want *ExhaustedError", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(exhausted.Attempts) != 3 {
		t.Fatalf("attempt records = %d, want 3", len(exhausted.Attempts))
	}
	if !errors.Is(err, errTransient) {
		t.Fatalf("exhausted error should wrap the last cause")
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(rec.delays) != len(want) || rec.delays[0] != want[0] || rec.delays[1] != want[1] {
		t.Fatalf("delays = %v, want %v", rec.delays, want)
	}
}

func TestDelaySchedule(t *testing.T) {
	p := Default()
	want := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, d := range want {
		if got := p.Delay(i); got != d {
			t.Fatalf("Delay(%d) = %s, want %s", i, got, d)
		}
	}
}

func TestDoStopsWhenContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{BaseDelay: time.Hour}
	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, policy, func(ctx context.Context) (int, error) {
			calls++
			return 0, errTransient
		}, classifyTest)
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}
	if calls > 1 {
		t.Fatalf("calls = %d, want at most 1", calls)
	}
}
