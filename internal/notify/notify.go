package notify

import (
	"bytes"
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

const (
	// DefaultTelegramAPI is the Telegram Bot API endpoint.
	DefaultTelegramAPI = "https://api.telegram.org"

	// defaultTimeout bounds a single delivery.
	defaultTimeout = 10 * time.Second

	// maxErrorBody bounds how much of an error response is quoted.
	maxErrorBody = 512
)

var (
	// ErrDeliveryFailed is returned when a service answers with a non-2xx status.
	ErrDeliveryFailed = errors.New("notification delivery failed")

	// ErrNotConfigured is returned by a notifier missing required settings.
	ErrNotConfigured = errors.New("notifier is not configured")
)

// Message is a notification.
type Message struct {
	// Title is a short headline. Services without titles prepend it to Body.
	Title string

	// Body is the message text.
	Body string
}

// Text returns the title and body joined by a blank line.
func (m Message) Text() string {
	if m.Title == "" {
		return m.Body
	}
	return m.Title + "\n\n" + m.Body
}

// Notifier delivers messages.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Telegram posts messages through the Bot API sendMessage method.
type Telegram struct {
	// Token is the bot token.
	Token string

	// ChatID is the destination chat.
	ChatID string

	// APIBase overrides DefaultTelegramAPI.
	APIBase string

	// HTTPClient nil means a client with a 10 second timeout.
	HTTPClient *http.Client
}

// Notify sends msg to the configured chat.
func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	if t.Token == "" || t.ChatID == "" {
		return fmt.Errorf("telegram: %w", ErrNotConfigured)
	}
	base := strings.TrimRight(t.APIBase, "/")
	if base == "" {
		base = DefaultTelegramAPI
	}
	endpoint := base + "/bot" + t.Token + "/sendMessage"

	form := url.Values{}
	form.Set("chat_id", t.ChatID)
	form.Set("text", msg.Text())
	form.Set("disable_web_page_preview", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return send(clientOrDefault(t.HTTPClient), req, "telegram")
}

// Apprise posts messages to an Apprise API server, one request per
// recipient URL.
type Apprise struct {
	// Server is the Apprise API notify endpoint, e.g. http://host:8000/notify.
	Server string

	// Recipients are Apprise service URLs (tgram://, discord://, mailto://, ...).
	Recipients []string

	// HTTPClient nil means a client with a 10 second timeout.
	HTTPClient *http.Client
}

// appriseRequest is the Apprise API notify payload.
type appriseRequest struct {
	URLs  string `json:"urls"`
	Body  string `json:"body"`
	Title string `json:"title,omitempty"`
}

// Notify sends msg to every recipient. Failures are joined.
func (a *Apprise) Notify(ctx context.Context, msg Message) error {
	if a.Server == "" || len(a.Recipients) == 0 {
		return fmt.Errorf("apprise: %w", ErrNotConfigured)
	}
	client := clientOrDefault(a.HTTPClient)

	var errs []error
	for _, recipient := range a.Recipients {
		payload, err := json.Marshal(appriseRequest{URLs: recipient, Body: msg.Body, Title: msg.Title})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Server, bytes.NewReader(payload))
		if err != nil {
			errs = append(errs, fmt.Errorf("apprise: %w", err))
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		if err := send(client, req, "apprise "+scheme(recipient)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

// Notify sends msg through each notifier in turn.
func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func clientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: defaultTimeout}
}

func send(client *http.Client, req *http.Request, service string) error {
	resp, err := client.Do(req) //nolint:gosec // endpoint comes from configuration
	if err != nil {
		// The Telegram URL embeds the bot token; report only the service.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("%s: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // best effort for the message
		return fmt.Errorf("%w: %s returned %d: %s", ErrDeliveryFailed, service, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	return nil
}

// scheme returns the service part of an Apprise URL for messages, never
// the credentials that follow it.
func scheme(recipient string) string {
	s, _, ok := strings.Cut(recipient, "://")
	if !ok {
		return "recipient"
	}
	return s
}
