package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestOllamaInsightsRoundTrip(t *testing.T) {
	var got ollamaChatRequest
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message":           map[string]any{"role": "assistant", "content": `{"summary":"local model","recommendations":["Fill city"]}`},
			"prompt_eval_count": 12,
			"eval_count":        4,
		})
	}))
	defer srv.Close()

	rt := NewOllamaClient(srv.URL, 2*time.Second, 1, 0)
	res := NewInsighter(rt, "llama3.1:8b-instruct").Generate(context.Background(), sampleReport(t), nil)
	if res.Unavailable() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.Insights.Summary != "local model" || len(res.Insights.Recommendations) != 1 {
		t.Fatalf("unexpected insights: %+v", res.Insights)
	}
	if res.Usage.TotalTokens != 16 {
		t.Fatalf("expected usage from eval counts, got %+v", res.Usage)
	}
	if got.Format != "json" || got.Stream {
		t.Fatalf("expected non-streaming json request, got format=%q stream=%v", got.Format, got.Stream)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Options["num_predict"] != float64(DefaultInsightMaxTokens) {
		t.Fatalf("expected num_predict %d, got %v", DefaultInsightMaxTokens, got.Options["num_predict"])
	}
}

func TestOllamaErrorClasses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"missing model", http.StatusNotFound, func(err error) bool { var e *ModelNotFoundError; return errors.As(err, &e) }},
		{"bad request", http.StatusBadRequest, func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
		{"server error", http.StatusInternalServerError, func(err error) bool { var e *ServerError; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_ = json.NewEncoder(w).Encode(map[string]any{"error": "model 'x' not found"})
			}))
			defer srv.Close()
			c := NewOllamaClient(srv.URL, 2*time.Second, 1, 0)
			_, err := c.Generate(context.Background(), GenerateRequest{Model: "x", Messages: []Message{{Role: "user", Content: "hi"}}})
			if !tc.check(err) {
				t.Fatalf("unexpected error %T: %v", err, err)
			}
		})
	}
}

func TestOllamaUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot open local listener: %v", err)
	}
	host := "http://" + ln.Addr().String()
	ln.Close()

	c := NewOllamaClient(host, time.Second, 1, 0)
	_, err = c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
	var unreach *UnreachableError
	if !errors.As(err, &unreach) || unreach.Host != host {
		t.Fatalf("expected UnreachableError for %s, got %T: %v", host, err, err)
	}
}

func TestOllamaValidatesRequest(t *testing.T) {
	c := NewOllamaClient("", time.Second, 1, 0)
	if _, err := c.Generate(context.Background(), GenerateRequest{Messages: []Message{{Role: "user"}}}); err == nil {
		t.Fatalf("expected error for empty model")
	}
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m"}); err == nil || err.Error() != "messages cannot be empty" {
		t.Fatalf("expected 'messages cannot be empty', got %v", err)
	}
}
