package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
)

// Placeholder ids shipped in the sample configuration. A relay still using
// any of them is treated as unconfigured.
const (
	PlaceholderServiceID  = "YOUR_SERVICE_ID"
	PlaceholderTemplateID = "YOUR_TEMPLATE_ID"
	PlaceholderPublicKey  = "YOUR_PUBLIC_KEY"

	DefaultEmailJSEndpoint = "https://api.emailjs.com/api/v1.0/email/send"
)

// EmailJSRelay sends submissions through the EmailJS REST API.
type EmailJSRelay struct {
	ServiceID  string
	TemplateID string
	PublicKey  string
	Endpoint   string
	OwnerName  string

	Client   *http.Client
	Attempts uint
	Delay    time.Duration
}

// Configured reports whether real ids have been supplied.
func (r *EmailJSRelay) Configured() bool {
	return r.ServiceID != "" && r.ServiceID != PlaceholderServiceID &&
		r.TemplateID != "" && r.TemplateID != PlaceholderTemplateID &&
		r.PublicKey != "" && r.PublicKey != PlaceholderPublicKey
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// TemplateParams are the variables the EmailJS template expects.
func (r *EmailJSRelay) TemplateParams(f Form) map[string]string {
	return map[string]string{
		"from_name":  f.Name,
		"from_email": f.Email,
		"message":    f.Message,
		"to_name":    r.OwnerName,
		"reply_to":   f.Email,
		"subject":    "Portfolio Contact from " + f.Name,
	}
}

// Send posts the submission, retrying transport errors and 5xx responses.
func (r *EmailJSRelay) Send(ctx context.Context, f Form) error {
	if !r.Configured() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(emailJSRequest{
		ServiceID:      r.ServiceID,
		TemplateID:     r.TemplateID,
		UserID:         r.PublicKey,
		TemplateParams: r.TemplateParams(f),
	})
	if err != nil {
		return fmt.Errorf("emailjs: encode request: %w", err)
	}

	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = DefaultEmailJSEndpoint
	}
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	attempts := r.Attempts
	if attempts == 0 {
		attempts = 3
	}
	delay := r.Delay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("emailjs: build request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("emailjs: send: %w", err)
			}
			defer resp.Body.Close()
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

			switch {
			case resp.StatusCode == http.StatusOK:
				return nil
			case resp.StatusCode >= 500:
				return fmt.Errorf("emailjs: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
			default:
				return retry.Unrecoverable(fmt.Errorf("emailjs: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg)))
			}
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.LastErrorOnly(true),
	)
}
