package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/tube-relay/app/feed"
)

var _ Notifier = (*WebhookSender)(nil)

const defaultWebhookTimeout = 10 * time.Second

type WebhookSenderConfig struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
	// RatePerSec paces requests to the webhook. Zero disables pacing.
	RatePerSec float64
}

// WebhookSender posts notifications to a Discord webhook.
type WebhookSender struct {
	httpClient *http.Client
	formatter  *Formatter
	limiter    *rate.Limiter
	url        string
	userAgent  string
}

// NewWebhookSender creates a WebhookSender. Returns an error if the URL is invalid.
func NewWebhookSender(cfg WebhookSenderConfig, formatter *Formatter) (*WebhookSender, error) {
	if err := ValidateWebhookURL(cfg.URL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultWebhookTimeout
	}

	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	return &WebhookSender{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		formatter: formatter,
		limiter:   limiter,
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
	}, nil
}

func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL must include a host")
	}
	return nil
}

func (ws *WebhookSender) Notify(ctx context.Context, item feed.Item) error {
	message := ws.formatter.Format(ctx, item)

	body, err := json.Marshal(message)
	if err != nil {
		return &DeliveryError{VideoID: item.VideoID, Err: fmt.Errorf("marshal webhook payload: %w", err)}
	}

	if ws.limiter != nil {
		if err := ws.limiter.Wait(ctx); err != nil {
			return &DeliveryError{VideoID: item.VideoID, Err: err}
		}
	}

	if err := ws.doPost(ctx, item.VideoID, body); err != nil {
		return err
	}

	slog.Debug("Notification delivered", "video", item.VideoID, "webhook", RedactURL(ws.url))
	return nil
}

// doPost executes a single HTTP POST request.
func (ws *WebhookSender) doPost(ctx context.Context, videoID feed.VideoID, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ws.url, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{VideoID: videoID, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if ws.userAgent != "" {
		req.Header.Set("User-Agent", ws.userAgent)
	}

	resp, err := ws.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{VideoID: videoID, Err: err}
	}
	defer func() {
		// Drain and close body to reuse connections.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	return &DeliveryError{
		VideoID:    videoID,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("webhook returned HTTP %d", resp.StatusCode),
	}
}
