// Package mailer provides outbound email channel implementations for the
// engine's Mailer interface: a JSON HTTP API client for hosted providers
// and a capture double for tests.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTP delivers mail through a provider's JSON REST endpoint (the
// SendGrid/Mailgun style of API). A non-2xx response becomes an error
// carrying the status and a trimmed slice of the body, enough for an
// operator to diagnose without logging whole provider payloads.
type HTTP struct {
	Endpoint string
	APIKey   string
	From     string

	// Client defaults to a 10s-timeout client when nil.
	Client *http.Client
}

type httpPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

const maxErrorBody = 200

func (m *HTTP) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(httpPayload{From: m.From, To: to, Subject: subject, Body: body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.APIKey)
	}

	client := m.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("provider status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
}

// Message is one captured delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Capture records deliveries instead of sending them. Set Err to make every
// Send fail.
type Capture struct {
	mu       sync.Mutex
	messages []Message

	Err error
}

func (c *Capture) Send(_ context.Context, to, subject, body string) error {
	if c.Err != nil {
		return c.Err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

// Messages returns a copy of everything captured so far.
func (c *Capture) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}
