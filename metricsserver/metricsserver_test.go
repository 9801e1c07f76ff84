package metricsserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandlerServesRegistry(t *testing.T) {
	s := New()

	decisions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "doorman_test_decisions_total",
		Help: "test counter",
	})
	s.Registry().MustRegister(decisions)
	decisions.Add(3)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(s.Handler(log))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, expected 200", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	text := string(body)

	if !strings.Contains(text, "doorman_test_decisions_total 3") {
		t.Error("application metric missing from /metrics output")
	}
	// The runtime collectors are pre-registered by New.
	if !strings.Contains(text, "go_goroutines") {
		t.Error("go collector metrics missing from /metrics output")
	}

	other, err := http.Get(srv.URL + "/other")
	if err != nil {
		t.Fatal(err)
	}
	other.Body.Close()
	if other.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status = %d, expected 404", other.StatusCode)
	}
}
