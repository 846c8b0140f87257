package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounterAndGauge(t *testing.T) {
	r := New()
	c := r.Counter("recs_requests_total", "Total requests")
	c.Inc()
	c.Add(2)
	if c.Value() != 3 {
		t.Fatalf("expected 3, got %d", c.Value())
	}

	g := r.Gauge("recs_inflight", "In-flight requests")
	g.Inc()
	g.Inc()
	g.Dec()
	if g.Value() != 1 {
		t.Fatalf("expected 1, got %d", g.Value())
	}
}

func TestCounterIsIdempotentPerName(t *testing.T) {
	r := New()
	a := r.Counter("x_total", "")
	b := r.Counter("x_total", "")
	if a != b {
		t.Fatal("same name should return the same counter")
	}
}

func TestWithLabels(t *testing.T) {
	got := WithLabels("recs_errors_total", "stage", "enrich")
	if got != `recs_errors_total{stage="enrich"}` {
		t.Fatalf("unexpected labeled name: %s", got)
	}
	if WithLabels("plain") != "plain" {
		t.Fatal("no labels should leave name unchanged")
	}
	if WithLabels("odd", "k") != "odd" {
		t.Fatal("odd kv count should leave name unchanged")
	}
}

func TestRenderCounterWithLabels(t *testing.T) {
	r := New()
	r.Counter(WithLabels("recs_errors_total", "stage", "enrich"), "Errors by stage").Inc()
	r.Counter(WithLabels("recs_errors_total", "stage", "search"), "Errors by stage").Add(2)

	out := r.Render()
	if !strings.Contains(out, "# TYPE recs_errors_total counter") {
		t.Fatalf("missing TYPE line:\n%s", out)
	}
	if !strings.Contains(out, `recs_errors_total{stage="enrich"} 1`) {
		t.Fatalf("missing enrich line:\n%s", out)
	}
	if !strings.Contains(out, `recs_errors_total{stage="search"} 2`) {
		t.Fatalf("missing search line:\n%s", out)
	}
}

func TestHistogramRenderCumulative(t *testing.T) {
	r := New()
	h := r.Histogram("recs_latency_seconds", "Latency", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(5)

	out := r.Render()
	for _, want := range []string{
		`recs_latency_seconds_bucket{le="0.1"} 1`,
		`recs_latency_seconds_bucket{le="1"} 2`,
		`recs_latency_seconds_bucket{le="10"} 3`,
		`recs_latency_seconds_bucket{le="+Inf"} 3`,
		`recs_latency_seconds_count 3`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestHistogramSince(t *testing.T) {
	r := New()
	h := r.Histogram("dur_seconds", "", nil)
	h.Since(time.Now().Add(-10 * time.Millisecond))
	_, _, sum, count := h.snapshot()
	if count != 1 || sum <= 0 {
		t.Fatalf("expected one positive observation, got count=%d sum=%f", count, sum)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("up_total", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "up_total 1") {
		t.Fatalf("missing metric in body:\n%s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type %q", ct)
	}
}
