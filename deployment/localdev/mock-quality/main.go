package main

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"os"
	"sync"
	"time"
)

type dimensionMetrics struct {
	Dimension       string    `json:"dimension"`
	Score           float64   `json:"score"`
	IssueCount      int       `json:"issue_count"`
	Coverage        float64   `json:"coverage"`
	Complexity      float64   `json:"complexity"`
	Maintainability float64   `json:"maintainability"`
	Timestamp       time.Time `json:"timestamp"`
}

type feedback struct {
	Timestamp time.Time `json:"timestamp"`
	Dimension string    `json:"dimension"`
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome"`
	Impact    float64   `json:"impact"`
	Lessons   []string  `json:"lessons,omitempty"`
}

// baseline scores and daily drift per dimension. Security and performance
// trend down so local runs raise alerts.
var baseline = map[string]struct {
	score, drift, coverage float64
	issues                 int
}{
	"code":          {score: 84, drift: 0.2, coverage: 72, issues: 12},
	"architecture":  {score: 78, drift: 0.0, coverage: 0, issues: 4},
	"security":      {score: 52, drift: -0.6, coverage: 55, issues: 9},
	"performance":   {score: 61, drift: -0.4, coverage: 40, issues: 6},
	"accessibility": {score: 88, drift: 0.1, coverage: 90, issues: 2},
	"scalability":   {score: 69, drift: -0.1, coverage: 0, issues: 3},
	"testing":       {score: 74, drift: 0.3, coverage: 68, issues: 5},
}

func main() {
	var (
		patternsMu sync.Mutex
		patterns   []json.RawMessage
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/quality/metrics", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Dimension string `json:"dimension"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		m, ok := metricsAt(req.Dimension, time.Now())
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"metrics": m})
	})

	mux.HandleFunc("/api/v1/quality/history", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Dimension     string `json:"dimension"`
			WindowSeconds int64  `json:"window_seconds"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		if _, ok := baseline[req.Dimension]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		days := int(req.WindowSeconds / 86400)
		if days <= 0 || days > 90 {
			days = 30
		}
		now := time.Now()
		history := make([]dimensionMetrics, 0, days)
		for i := days; i > 0; i-- {
			m, _ := metricsAt(req.Dimension, now.Add(-time.Duration(i)*24*time.Hour))
			history = append(history, m)
		}
		writeJSON(w, map[string]any{"history": history})
	})

	mux.HandleFunc("/api/v1/quality/feedback", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			WindowSeconds int64 `json:"window_seconds"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		now := time.Now()
		items := []feedback{
			{Timestamp: now.Add(-2 * time.Hour), Dimension: "performance", Action: "automated_fix", Outcome: "success", Impact: 0.6},
			{Timestamp: now.Add(-5 * time.Hour), Dimension: "performance", Action: "automated_fix", Outcome: "success", Impact: 0.5},
			{Timestamp: now.Add(-26 * time.Hour), Dimension: "performance", Action: "automated_fix", Outcome: "success", Impact: 0.7},
			{Timestamp: now.Add(-3 * time.Hour), Dimension: "security", Action: "dependency_upgrade", Outcome: "failure", Impact: -0.2, Lessons: []string{"pin transitive versions"}},
			{Timestamp: now.Add(-9 * time.Hour), Dimension: "security", Action: "dependency_upgrade", Outcome: "failure", Impact: -0.1},
			{Timestamp: now.Add(-30 * time.Hour), Dimension: "security", Action: "dependency_upgrade", Outcome: "failure", Impact: -0.3},
			{Timestamp: now.Add(-50 * time.Hour), Dimension: "security", Action: "dependency_upgrade", Outcome: "failure", Impact: -0.2},
			{Timestamp: now.Add(-4 * time.Hour), Dimension: "testing", Action: "flaky_test_quarantine", Outcome: "partial", Impact: 0.1},
		}
		writeJSON(w, map[string]any{"feedback": items})
	})

	mux.HandleFunc("/api/v1/quality/patterns", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Patterns []json.RawMessage `json:"patterns"`
		}
		if !decodePost(w, r, &req) {
			return
		}
		patternsMu.Lock()
		patterns = req.Patterns
		stored := len(patterns)
		patternsMu.Unlock()
		log.Printf("stored %d learned patterns", stored)
		w.WriteHeader(http.StatusNoContent)
	})

	addr := ":8090"
	if v := os.Getenv("MOCK_QUALITY_ADDR"); v != "" {
		addr = v
	}
	logger := log.New(log.Writer(), "quality-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    addr,
		Handler: logRequests(logger, mux),
	}

	logger.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// metricsAt returns a deterministic sample with a small daily wobble.
func metricsAt(dimension string, ts time.Time) (dimensionMetrics, bool) {
	b, ok := baseline[dimension]
	if !ok {
		return dimensionMetrics{}, false
	}
	daysAgo := time.Since(ts).Hours() / 24
	wobble := 1.5 * math.Sin(float64(ts.Unix()/86400))
	score := b.score - b.drift*daysAgo + wobble
	return dimensionMetrics{
		Dimension:       dimension,
		Score:           math.Max(0, math.Min(100, score)),
		IssueCount:      b.issues,
		Coverage:        b.coverage,
		Complexity:      10 + float64(b.issues)/2,
		Maintainability: math.Max(0, math.Min(100, score+5)),
		Timestamp:       ts.UTC(),
	}, true
}

func decodePost(w http.ResponseWriter, r *http.Request, out any) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
