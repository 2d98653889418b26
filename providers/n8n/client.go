package n8n

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

	"content-hub/providers"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout entspricht dem Client-Timeout der Dashboard-Oberfläche.
	DefaultTimeout = 180 * time.Second

	maxResponseBytes = 16 << 20
	maxMessageLen    = 300
)

// userAgentTransport setzt auf jeder Anfrage einen eigenen User-Agent.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}

// Client ruft einen n8n-Webhook auf und liefert die Rohantwort zurück.
type Client struct {
	name       string
	url        string
	source     string
	timeout    time.Duration
	httpClient *http.Client
	Logger     *zap.Logger
	now        func() time.Time
}

// Option passt einen Client an.
type Option func(*Client)

// WithTimeout überschreibt das Standard-Timeout von 180 Sekunden.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithSource setzt das "source"-Feld, das jedem Payload mitgegeben wird.
func WithSource(source string) Option {
	return func(c *Client) {
		if source != "" {
			c.source = source
		}
	}
}

// WithHTTPClient ersetzt den HTTP-Client (z.B. für Tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient erstellt einen Webhook-Client. name wird in Logs, Metriken und Fehlern verwendet.
func NewClient(name, url string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		name:    name,
		url:     url,
		source:  "content-hub",
		timeout: DefaultTimeout,
		httpClient: &http.Client{
			Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: "content-hub/1.0"},
		},
		Logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name gibt den Namen des Generators zurück.
func (c *Client) Name() string {
	return c.name
}

// Generate schickt die Generierungsanfrage an den Webhook.
func (c *Client) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode generation request: %w", err)
	}
	payload := map[string]any{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("encode generation request: %w", err)
	}
	return c.Send(ctx, payload)
}

// Send postet {...payload, source, timestamp} als JSON und gibt den Antworttext zurück.
// Netzwerkfehler, Timeouts und Nicht-2xx-Status werden als *providers.TransportError gemeldet.
func (c *Client) Send(ctx context.Context, payload map[string]any) (string, error) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["source"] = c.source
	body["timestamp"] = c.now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode webhook payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	log := c.Logger.With(zap.String("generator", c.name), zap.String("url", c.url))
	log.Debug("Calling webhook", zap.Int("payload_bytes", len(data)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return "", &providers.TransportError{Provider: c.name, Message: "invalid webhook request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", c.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := upstreamMessage(respBody)
		log.Error("Webhook returned non-2xx status",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return "", &providers.TransportError{Provider: c.name, StatusCode: resp.StatusCode, Message: msg}
	}

	log.Info("Webhook call completed",
		zap.Int("status", resp.StatusCode),
		zap.Int("response_bytes", len(respBody)),
		zap.Duration("duration", time.Since(start)))
	return string(respBody), nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	timedOut := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
	c.Logger.Error("Webhook call failed",
		zap.String("generator", c.name),
		zap.Bool("timeout", timedOut),
		zap.Error(err))
	return &providers.TransportError{Provider: c.name, Timeout: timedOut, Err: err}
}

// upstreamMessage holt eine lesbare Fehlermeldung aus einem beliebig geformten Fehler-Body.
func upstreamMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"message", "error.message", "error", "0.message", "0.error"} {
			if r := gjson.GetBytes(body, path); r.Exists() && r.Type == gjson.String && r.String() != "" {
				return r.String()
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(http.StatusBadGateway)
	}
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen] + "..."
	}
	return msg
}
