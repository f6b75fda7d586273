package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Booking is an accepted meeting on the user's scheduling account.
type Booking struct {
	UID       string     `json:"uid"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	CreatedAt time.Time  `json:"createdAt"`
	Attendees []Attendee `json:"attendees"`
	// Responses holds the booking form answers; phone numbers often land here.
	Responses map[string]any `json:"bookingFieldsResponses"`
}

type Attendee struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	TimeZone    string `json:"timeZone"`
}

// Phones returns every phone-like value on the booking.
func (b Booking) Phones() []string {
	var out []string
	for _, a := range b.Attendees {
		if a.PhoneNumber != "" {
			out = append(out, a.PhoneNumber)
		}
	}
	for _, k := range []string{"attendeePhoneNumber", "phone", "phoneNumber", "location"} {
		if s, ok := b.Responses[k].(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Names returns attendee names plus the form's name answer.
func (b Booking) Names() []string {
	var out []string
	for _, a := range b.Attendees {
		if a.Name != "" {
			out = append(out, a.Name)
		}
	}
	if s, ok := b.Responses["name"].(string); ok && s != "" {
		out = append(out, s)
	}
	return out
}

var ErrMissingAPIKey = errors.New("scheduling: api key is required")

const (
	statusAccepted = "accepted"
	apiVersion     = "2024-08-13"
)

// Client reads bookings from the scheduling provider's v2 REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: &http.Client{Timeout: timeout}}
}

type bookingsEnvelope struct {
	Status string    `json:"status"`
	Data   []Booking `json:"data"`
}

// RecentBookings lists upcoming bookings for the account and keeps the accepted ones.
func (c *Client) RecentBookings(ctx context.Context, apiKey string) ([]Booking, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	q := url.Values{}
	q.Set("status", "upcoming")
	q.Set("sortCreated", "desc")
	q.Set("take", "50")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/bookings?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("cal-api-version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list bookings: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("scheduling: list bookings returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var env bookingsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("scheduling: decode bookings: %w", err)
	}
	out := make([]Booking, 0, len(env.Data))
	for _, b := range env.Data {
		if strings.EqualFold(b.Status, statusAccepted) {
			out = append(out, b)
		}
	}
	return out, nil
}
