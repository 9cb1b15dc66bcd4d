package metrics

import (
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestCounterSameInstance(t *testing.T) {
	r := New()
	c := r.Counter("plans_saved_total", "Plans saved")
	c.Inc()
	c.Add(4)
	if c.Value() != 5 {
		t.Fatalf("expected 5, got %d", c.Value())
	}
	if r.Counter("plans_saved_total", "") != c {
		t.Fatal("expected same counter instance")
	}
}

func TestGaugeFloat(t *testing.T) {
	g := New().Gauge("breaker_state", "")
	g.Set(1.5)
	g.Inc()
	g.Dec()
	g.Add(0.25)
	if g.Value() != 1.75 {
		t.Fatalf("expected 1.75, got %g", g.Value())
	}
}

func TestGaugeConcurrentAdd(t *testing.T) {
	g := New().Gauge("in_flight", "")
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() { defer wg.Done(); g.Inc() }()
	}
	wg.Wait()
	if g.Value() != 100 {
		t.Fatalf("expected 100, got %g", g.Value())
	}
}

func TestHistogramBuckets(t *testing.T) {
	h := New().Histogram("latency_seconds", "", []float64{1, 0.1, 0.5})
	for _, v := range []float64{0.05, 0.1, 0.3, 0.8, 2} {
		h.Observe(v)
	}
	buckets, counts, sum, count := h.snapshot()
	if buckets[0] != 0.1 || buckets[2] != 1 {
		t.Fatalf("buckets not sorted: %v", buckets)
	}
	want := []uint64{2, 1, 1}
	for i := range want {
		if counts[i] != want[i] {
			t.Fatalf("counts = %v, want %v", counts, want)
		}
	}
	if count != 5 || math.Abs(sum-3.25) > 1e-9 {
		t.Fatalf("count=%d sum=%g", count, sum)
	}
}

func TestWithLabels(t *testing.T) {
	if got := WithLabels("x", "route", "/api", "code", "200"); got != `x{route="/api",code="200"}` {
		t.Fatalf("got %s", got)
	}
	if got := WithLabels("x", "odd"); got != "x" {
		t.Fatalf("got %s", got)
	}
	if got := WithLabels("x", "q", `a"b`); got != `x{q="a\"b"}` {
		t.Fatalf("got %s", got)
	}
}

func TestKindConflictPanics(t *testing.T) {
	r := New()
	r.Counter("dup", "")
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	r.Gauge("dup", "")
}

func TestRender(t *testing.T) {
	r := New()
	r.Counter(WithLabels("http_requests_total", "route", "/b"), "Requests").Inc()
	r.Counter(WithLabels("http_requests_total", "route", "/a"), "").Add(2)
	r.Gauge("breaker_open", "Breaker").Set(1)
	r.Histogram(WithLabels("http_duration_seconds", "route", "/a"), "Latency", []float64{0.1}).Observe(0.05)

	out := r.Render()
	for _, want := range []string{
		"# HELP http_requests_total Requests\n# TYPE http_requests_total counter\n" +
			`http_requests_total{route="/a"} 2` + "\n" + `http_requests_total{route="/b"} 1`,
		"# TYPE breaker_open gauge\nbreaker_open 1\n",
		`http_duration_seconds_bucket{le="0.1",route="/a"} 1`,
		`http_duration_seconds_bucket{le="+Inf",route="/a"} 1`,
		`http_duration_seconds_sum{route="/a"} 0.05`,
		`http_duration_seconds_count{route="/a"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "http_requests_total") > strings.Index(out, "breaker_open") {
		t.Error("families should render in registration order")
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("hits_total", "").Inc()
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "hits_total 1") {
		t.Fatalf("body %q", rec.Body.String())
	}
}
