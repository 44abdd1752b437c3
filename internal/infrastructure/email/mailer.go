package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"blogdigest/internal/config"
	"blogdigest/internal/ports"
)

// Mailer delivers digest messages through a JSON mail API.
type Mailer struct {
	endpoint  string
	apiKey    string
	fromEmail string
	fromName  string
	http      *http.Client
}

var _ ports.Mailer = (*Mailer)(nil)

// NewMailer builds a client from configuration.
func NewMailer(cfg config.EmailConfig) *Mailer {
	return &Mailer{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Mail API payload types.
type mailPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send posts one message; the result is success or an error, nothing to
// retry here.
func (m *Mailer) Send(ctx context.Context, msg ports.Message) error {
	if m.apiKey == "" || m.endpoint == "" || m.fromEmail == "" {
		return fmt.Errorf("mailer misconfigured")
	}

	payload := mailPayload{
		Personalizations: []personalization{{
			To: []address{{Email: msg.To, Name: msg.Name}},
		}},
		From:    address{Email: m.fromEmail, Name: m.fromName},
		Subject: msg.Subject,
		Content: []content{{Type: "text/plain", Value: msg.Body}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail api returned %s: %s", resp.Status, string(detail))
	}

	return nil
}
