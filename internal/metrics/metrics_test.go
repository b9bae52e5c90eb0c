package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/flashcards/decks", 200, time.Now())
	m.ObserveRequest("GET", "/flashcards/decks", 200, time.Now())
	m.ObserveRequest("POST", "/flashcards/cards/{id}/review", 500, time.Now())

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/flashcards/decks", "200")); got != 2 {
		t.Errorf("Expected 2 GET requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("POST", "/flashcards/cards/{id}/review", "500")); got != 1 {
		t.Errorf("Expected 1 POST request, got %v", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", 200, time.Now())
	m.ObserveError("GET", "/", "network")
	m.ObserveReview("good")
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.ObserveReview("good")

	path := filepath.Join(t.TempDir(), "knolboard.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() returned an unexpected error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `knolboard_reviews_total{difficulty="good"} 1`) {
		t.Errorf("Expected review counter in textfile, got:\n%s", data)
	}
}
