package ai

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func errorResponse(status int, body string, header http.Header) *http.Response {
	rec := httptest.NewRecorder()
	for k, vs := range header {
		for _, v := range vs {
			rec.Header().Add(k, v)
		}
	}
	rec.WriteHeader(status)
	_, _ = rec.WriteString(body)
	return rec.Result()
}

func TestDecodeAPIErrorShapes(t *testing.T) {
	cases := []struct {
		body, msg, code string
	}{
		{`{"error":{"message":"no such model","code":"model_not_found"}}`, "no such model", "model_not_found"},
		{`{"error":"model 'x' not found"}`, "model 'x' not found", ""},
		{`{"message":"slow down","code":"rate"}`, "slow down", "rate"},
		{"upstream exploded", "upstream exploded", ""},
	}
	for _, tc := range cases {
		got := decodeAPIError(errorResponse(http.StatusBadRequest, tc.body, nil))
		if got.Message != tc.msg || got.Code != tc.code {
			t.Errorf("%s: got message %q code %q", tc.body, got.Message, got.Code)
		}
	}
}

func TestClassifyAPIError(t *testing.T) {
	resp := errorResponse(http.StatusTooManyRequests, `{"error":{"message":"slow"}}`, http.Header{"Retry-After": {"12"}})
	err := classifyAPIError(decodeAPIError(resp), resp)
	wrapped := fmt.Errorf("%w: %w", ErrUnavailable, err)
	d, ok := RetryAfter(wrapped)
	if !ok || d != 12*time.Second {
		t.Fatalf("expected 12s retry-after through wrapping, got %v %v", d, ok)
	}

	resp = errorResponse(http.StatusNotFound, `{"error":{"message":"The model was not found"}}`, nil)
	var nf *ModelNotFoundError
	if !errors.As(classifyAPIError(decodeAPIError(resp), resp), &nf) {
		t.Fatalf("expected ModelNotFoundError")
	}

	resp = errorResponse(http.StatusPaymentRequired, `{"error":{"message":"billing required"}}`, nil)
	var q *QuotaExceededError
	if !errors.As(classifyAPIError(decodeAPIError(resp), resp), &q) {
		t.Fatalf("expected QuotaExceededError")
	}

	if _, ok := RetryAfter(errors.New("plain")); ok {
		t.Fatalf("plain errors carry no retry-after")
	}
}
