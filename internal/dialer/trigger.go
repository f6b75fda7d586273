package dialer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TriggerResult is the campaign selector's reply.
// Done means there was nothing to dial (no leads left, limits hit, outside hours).
type TriggerResult struct {
	Done   bool   `json:"done"`
	Reason string `json:"reason,omitempty"`
	CallID string `json:"callId,omitempty"`
}

// Trigger asks the campaign selector to place the next call for a user.
type Trigger interface {
	NextCall(ctx context.Context, userID string) (TriggerResult, error)
}

const headerTriggerSecret = "X-Internal-Secret"

// HTTPTrigger posts {userId} to the selector endpoint.
type HTTPTrigger struct {
	url    string
	secret string
	http   *http.Client
}

func NewHTTPTrigger(url, secret string, timeout time.Duration) *HTTPTrigger {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTrigger{url: url, secret: secret, http: &http.Client{Timeout: timeout}}
}

func (t *HTTPTrigger) NextCall(ctx context.Context, userID string) (TriggerResult, error) {
	body, err := json.Marshal(map[string]string{"userId": userID})
	if err != nil {
		return TriggerResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return TriggerResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.secret != "" {
		req.Header.Set(headerTriggerSecret, t.secret)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return TriggerResult{}, fmt.Errorf("dialer: next-call request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return TriggerResult{}, fmt.Errorf("dialer: next-call returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out TriggerResult
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		// A 2xx with a non-JSON body still placed the call.
		return TriggerResult{}, nil
	}
	return out, nil
}
