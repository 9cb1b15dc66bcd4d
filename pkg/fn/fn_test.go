package fn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestResult(t *testing.T) {
	ok := Ok(3)
	if !ok.IsOk() || ok.IsErr() || ok.Must() != 3 || ok.UnwrapOr(9) != 3 {
		t.Fatal("ok result misbehaves")
	}
	bad := Err[int](errBoom)
	if _, err := bad.Unwrap(); !errors.Is(err, errBoom) {
		t.Fatalf("unwrap err = %v", err)
	}
	if bad.UnwrapOr(9) != 9 {
		t.Fatal("fallback not used")
	}
}

func TestErrNilStillFails(t *testing.T) {
	r := Err[string](nil)
	if r.IsOk() {
		t.Fatal("Err(nil) must not be ok")
	}
	if _, err := r.Unwrap(); err == nil {
		t.Fatal("expected a non-nil error")
	}
}

func TestZeroResultUnwrap(t *testing.T) {
	var r Result[int]
	if _, err := r.Unwrap(); err == nil {
		t.Fatal("zero Result should report an error")
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	Err[int](errBoom).Must()
}

func TestFromPair(t *testing.T) {
	if FromPair(1, nil).Must() != 1 {
		t.Fatal("expected ok")
	}
	if FromPair(1, errBoom).IsOk() {
		t.Fatal("expected err")
	}
}

func TestCollect(t *testing.T) {
	r := Collect([]Result[int]{Ok(1), Ok(2)})
	if got := r.Must(); len(got) != 2 || got[1] != 2 {
		t.Fatalf("got %v", got)
	}
	r = Collect([]Result[int]{Ok(1), Err[int](errBoom), Ok(3)})
	if _, err := r.Unwrap(); !errors.Is(err, errBoom) {
		t.Fatalf("err = %v", err)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	var calls int
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 3}, func(context.Context) Result[string] {
		calls++
		if calls < 3 {
			return Err[string](errBoom)
		}
		return Ok("done")
	})
	if r.Must() != "done" || calls != 3 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestRetryExhausted(t *testing.T) {
	var calls int
	r := Retry(context.Background(), RetryOpts{MaxAttempts: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Jitter: true},
		func(context.Context) Result[int] {
			calls++
			return Err[int](errBoom)
		})
	if _, err := r.Unwrap(); !errors.Is(err, errBoom) || calls != 2 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	var calls int
	Retry(context.Background(), RetryOpts{}, func(context.Context) Result[int] {
		calls++
		return Err[int](errBoom)
	})
	if calls != 1 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestRetryNotRetryable(t *testing.T) {
	var calls int
	opts := RetryOpts{MaxAttempts: 5, Retryable: func(err error) bool { return !errors.Is(err, errBoom) }}
	Retry(context.Background(), opts, func(context.Context) Result[int] {
		calls++
		return Err[int](errBoom)
	})
	if calls != 1 {
		t.Fatalf("non-retryable error retried: calls=%d", calls)
	}
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := Retry(ctx, RetryOpts{MaxAttempts: 5, InitialWait: time.Hour, MaxWait: time.Hour}, func(context.Context) Result[int] {
		cancel()
		return Err[int](errBoom)
	})
	if _, err := r.Unwrap(); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestThen(t *testing.T) {
	double := Stage[int, int](func(_ context.Context, n int) Result[int] { return Ok(n * 2) })
	str := MapStage(func(n int) string { return strings.Repeat("x", n) })
	if got := Then(double, str)(context.Background(), 2).Must(); got != "xxxx" {
		t.Fatalf("got %q", got)
	}

	var reached bool
	fail := Stage[int, int](func(context.Context, int) Result[int] { return Err[int](errBoom) })
	next := Stage[int, int](func(_ context.Context, n int) Result[int] { reached = true; return Ok(n) })
	if Then(fail, next)(context.Background(), 1).IsOk() || reached {
		t.Fatal("second stage should not run after a failure")
	}
}

func TestPipelineShortCircuits(t *testing.T) {
	var ran []string
	step := func(name string, err error) Stage[int, int] {
		return func(_ context.Context, n int) Result[int] {
			ran = append(ran, name)
			if err != nil {
				return Err[int](err)
			}
			return Ok(n + 1)
		}
	}
	r := Pipeline(step("a", nil), step("b", errBoom), step("c", nil))(context.Background(), 0)
	if r.IsOk() || strings.Join(ran, "") != "ab" {
		t.Fatalf("ran %v", ran)
	}
	if got := Pipeline(step("x", nil), step("y", nil))(context.Background(), 0).Must(); got != 2 {
		t.Fatalf("got %d", got)
	}
}

func TestTracedStagePassesThrough(t *testing.T) {
	s := TracedStage("test", Stage[int, int](func(_ context.Context, n int) Result[int] {
		if n < 0 {
			return Err[int](errBoom)
		}
		return Ok(n)
	}))
	if s(context.Background(), 4).Must() != 4 {
		t.Fatal("value lost")
	}
	if s(context.Background(), -1).IsOk() {
		t.Fatal("error lost")
	}
}

func TestBatchStageBoundedAndOrdered(t *testing.T) {
	var inFlight, peak int64
	stage := BatchStage(2, Stage[int, int](func(_ context.Context, n int) Result[int] {
		cur := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return Ok(n * n)
	}))
	got := stage(context.Background(), []int{1, 2, 3, 4, 5}).Must()
	for i, want := range []int{1, 4, 9, 16, 25} {
		if got[i] != want {
			t.Fatalf("got %v", got)
		}
	}
	if peak > 2 {
		t.Fatalf("peak concurrency %d > 2", peak)
	}
}

func TestParMapResultEmpty(t *testing.T) {
	if out := ParMapResult([]int{}, 4, func(int) Result[int] { return Ok(1) }); len(out) != 0 {
		t.Fatal("expected empty output")
	}
}
