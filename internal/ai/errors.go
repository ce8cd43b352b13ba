package ai

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// ErrNotConfigured is returned when a hosted runtime has no API key.
var ErrNotConfigured = errors.New("API key not configured")

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	RequestID  string `json:"-"`
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "api error: status=%d", e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", e.RequestID)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " message=%s", e.Message)
	}
	return b.String()
}

// AuthError is a 401/403.
type AuthError struct{ *APIError }

func (e *AuthError) Error() string { return "authentication failed: " + e.APIError.Error() }

// RateLimitError is a 429, with the provider's Retry-After when it sent one.
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited: wait about %ds before retrying: %s", int(e.RetryAfter.Seconds()), e.APIError.Error())
	}
	return "rate limited: " + e.APIError.Error()
}

type ModelNotFoundError struct{ *APIError }

func (e *ModelNotFoundError) Error() string { return "model not found: " + e.APIError.Error() }

type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return "bad request: " + e.APIError.Error() }

type QuotaExceededError struct{ *APIError }

func (e *QuotaExceededError) Error() string { return "quota exceeded: " + e.APIError.Error() }

// ServerError is a 5xx that survived retries.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return "provider error: " + e.APIError.Error() }

// UnreachableError means the runtime could not be contacted at all,
// typically a local Ollama that is not running.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// RetryAfter reports how long the provider asked callers to wait, if the
// error chain carries a rate limit with a Retry-After.
func RetryAfter(err error) (time.Duration, bool) {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter, true
	}
	return 0, false
}

// decodeAPIError reads a bounded error body. Nested {"error":{"message":..}},
// flat {"error":"..."} and {"message":..} bodies are understood; anything
// else is kept as plain text.
func decodeAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: extractRequestID(resp)}
	if !gjson.ValidBytes(body) {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	src := gjson.ParseBytes(body)
	switch e := src.Get("error"); {
	case e.IsObject():
		src = e
	case e.Type == gjson.String:
		apiErr.Message = e.String()
	}
	if apiErr.Message == "" {
		apiErr.Message = src.Get("message").String()
	}
	apiErr.Code = src.Get("code").String()
	return apiErr
}

// classifyAPIError maps a generic APIError onto the typed errors above.
func classifyAPIError(apiErr *APIError, resp *http.Response) error {
	sc := apiErr.StatusCode
	switch {
	case sc == http.StatusUnauthorized || sc == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		var ra time.Duration
		if secs, err := parseRetryAfterSeconds(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			ra = time.Duration(secs) * time.Second
		}
		return &RateLimitError{APIError: apiErr, RetryAfter: ra}
	case sc == http.StatusNotFound:
		if apiErr.Code == "model_not_found" || containsAllFold(apiErr.Message, "model", "not", "found") {
			return &ModelNotFoundError{APIError: apiErr}
		}
		return apiErr
	case sc == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case apiErr.Code == "quota_exceeded" || apiErr.Code == "insufficient_quota" ||
		containsAnyFold(apiErr.Message, "quota", "billing", "limit exceeded"):
		return &QuotaExceededError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

func containsAllFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if sub == "" || !strings.Contains(s, strings.ToLower(sub)) {
			return false
		}
	}
	return s != ""
}

func containsAnyFold(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if s != "" && sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
