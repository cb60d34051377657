package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/mirador-quality/internal/models"
	"github.com/miradorstack/mirador-quality/internal/utils"
)

type recordingSink struct {
	name string
	err  error
	got  []models.Alert
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(_ context.Context, alert models.Alert) error {
	if s.err != nil {
		return s.err
	}
	s.got = append(s.got, alert)
	return nil
}

func alert(id string, level models.Severity) models.Alert {
	return models.Alert{ID: id, Level: level, Message: "score dropped", Component: "overall", Timestamp: time.Now()}
}

func TestDispatcherRateLimitsNonCritical(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	d := NewDispatcher(nil, 1, 2, sink)

	results := []bool{
		d.Dispatch(context.Background(), alert("a1", models.SeverityHigh)),
		d.Dispatch(context.Background(), alert("a2", models.SeverityMedium)),
		d.Dispatch(context.Background(), alert("a3", models.SeverityHigh)),
	}
	if !results[0] || !results[1] || results[2] {
		t.Fatalf("expected burst of two then suppression, got %v", results)
	}
	if d.Suppressed() != 1 {
		t.Fatalf("expected one suppressed alert, got %d", d.Suppressed())
	}
	if !d.Dispatch(context.Background(), alert("a4", models.SeverityCritical)) {
		t.Fatalf("expected critical alert to bypass the limit")
	}
	if len(sink.got) != 3 {
		t.Fatalf("expected three delivered alerts, got %d", len(sink.got))
	}
}

func TestDispatcherUnlimited(t *testing.T) {
	sink := &recordingSink{name: "rec"}
	d := NewDispatcher(nil, 0, 0, sink)
	for i := 0; i < 50; i++ {
		if !d.Dispatch(context.Background(), alert("a", models.SeverityLow)) {
			t.Fatalf("expected unlimited dispatcher to deliver alert %d", i)
		}
	}
}

func TestDispatcherSinkFailure(t *testing.T) {
	failing := &recordingSink{name: "broken", err: errors.New("down")}
	ok := &recordingSink{name: "rec"}

	d := NewDispatcher(nil, 0, 0, failing)
	if d.Dispatch(context.Background(), alert("a", models.SeverityHigh)) {
		t.Fatalf("expected false when every sink fails")
	}

	d = NewDispatcher(nil, 0, 0, failing, ok)
	if !d.Dispatch(context.Background(), alert("b", models.SeverityHigh)) {
		t.Fatalf("expected true when one sink delivers")
	}
}

func TestLogSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(utils.NewLoggerTo(&buf, "debug", true))
	if err := sink.Send(context.Background(), alert("a1", models.SeverityCritical)); err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"level":"ERROR"`) || !strings.Contains(out, `"alert_id":"a1"`) {
		t.Fatalf("unexpected log output %s", out)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestWebhookSink(t *testing.T) {
	var received models.Alert
	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", req.Method)
		}
		if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return &http.Response{StatusCode: http.StatusAccepted, Body: io.NopCloser(strings.NewReader("")), Header: make(http.Header)}, nil
	})}

	sink := NewWebhookSink("http://hooks.local/alerts", client)
	if err := sink.Send(context.Background(), alert("w1", models.SeverityHigh)); err != nil {
		t.Fatalf("send: %v", err)
	}
	if received.ID != "w1" {
		t.Fatalf("unexpected payload %+v", received)
	}
}

func TestWebhookSinkStatusError(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader("")), Header: make(http.Header)}, nil
	})}
	if err := NewWebhookSink("http://hooks.local/alerts", client).Send(context.Background(), alert("w2", models.SeverityHigh)); err == nil {
		t.Fatalf("expected error for 502")
	}
}
