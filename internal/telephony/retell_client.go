package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// OutboundMetadata travels with a placed call and comes back on every webhook for it.
type OutboundMetadata struct {
	UserID        string `json:"user_id"`
	LeadID        string `json:"lead_id"`
	WasDoubleDial bool   `json:"was_double_dial,omitempty"`
}

type PlaceCallRequest struct {
	AgentID    string           `json:"agent_id"`
	ToNumber   string           `json:"to_number"`
	FromNumber string           `json:"from_number"`
	Metadata   OutboundMetadata `json:"metadata"`
}

type PlaceCallResult struct {
	CallID     string `json:"call_id"`
	CallStatus string `json:"call_status,omitempty"`
}

// CallPlacer places a single outbound call.
type CallPlacer interface {
	PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error)
}

var ErrInvalidCallRequest = errors.New("telephony: agent_id, to_number and from_number are required")

// Client talks to the voice agent vendor's REST API.
// Outbound call creation is paced by a process-wide token bucket.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(baseURL, apiKey string, timeout time.Duration, perSecond float64) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (c *Client) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	if req.AgentID == "" || req.ToNumber == "" || req.FromNumber == "" {
		return PlaceCallResult{}, ErrInvalidCallRequest
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return PlaceCallResult{}, fmt.Errorf("telephony: rate limiter: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return PlaceCallResult{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/create-phone-call", bytes.NewReader(body))
	if err != nil {
		return PlaceCallResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return PlaceCallResult{}, fmt.Errorf("telephony: create call: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PlaceCallResult{}, fmt.Errorf("telephony: create call returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out PlaceCallResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return PlaceCallResult{}, fmt.Errorf("telephony: decode create call response: %w", err)
	}
	if out.CallID == "" {
		return PlaceCallResult{}, errors.New("telephony: create call response missing call_id")
	}
	return out, nil
}
