// Package upload sends encoded screenshots to the image host.
//
// Wire contract:
//
//	PUT <endpoint>
//	Authorization: Bearer <token>
//	Content-Type: multipart/form-data; one part "file", filename "image.png", image/png
//
// A 2xx answer carries {"url": "<path>", "originalFileName": "<name>"}; the
// path is appended verbatim to the configured base URL. 5xx and 429 are
// retried, as are transport failures, for at most MaxAttempts in total.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.klb.dev/pulse/internal/codec"
)

const (
	// MaxAttempts caps the chain: one initial attempt plus two retries,
	// shared between transport and server failures.
	MaxAttempts = 3

	DefaultTimeout    = 60 * time.Second
	DefaultRetryDelay = time.Second

	FieldName    = "file"
	FileName     = "image.png"
	ContentType  = "image/png"
	maxBodyBytes = 1 << 20
)

// Config is fixed at construction time and never changes afterwards.
type Config struct {
	// Endpoint receives the PUT.
	Endpoint string
	// BaseURL is prefixed to the "url" path returned by the server.
	BaseURL string
	// Token is sent as a bearer credential.
	Token string
	// Timeout bounds each attempt. Zero means DefaultTimeout.
	Timeout time.Duration
	// RetryDelay is the fixed pause between attempts. Zero means DefaultRetryDelay.
	RetryDelay time.Duration
}

// Client uploads images. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a Client for cfg.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// UploadWithRetry uploads payload and returns the parsed result. Transport
// errors, 5xx and 429 are retried after a fixed delay until MaxAttempts is
// reached; every other failure is returned on first occurrence.
func (c *Client) UploadWithRetry(ctx context.Context, payload []byte) (Outcome, error) {
	start := time.Now()
	if !codec.HasPNGSignature(payload) {
		slog.Warn("payload does not start with a PNG signature", "size_bytes", len(payload))
	}

	for attempt := 1; ; attempt++ {
		slog.Info("uploading image",
			"size_bytes", len(payload),
			"attempt", attempt,
			"endpoint", c.cfg.Endpoint,
		)

		out, err := c.put(ctx, payload)
		if err == nil {
			out.Duration = time.Since(start).Round(time.Millisecond).String()
			slog.Info("upload succeeded", "url", out.URL, "attempt", attempt)
			return out, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt >= MaxAttempts {
			slog.Error("upload failed", "err", err, "attempt", attempt)
			return Outcome{}, err
		}

		slog.Warn("upload attempt failed, retrying",
			"err", err,
			"attempt", attempt,
			"retry_in", c.cfg.RetryDelay,
		)
		t := time.NewTimer(c.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return Outcome{}, &Error{Kind: KindNetwork, Err: ctx.Err()}
		case <-t.C:
		}
	}
}

// UploadBase64 decodes a base64 string or data URL and uploads the bytes.
func (c *Client) UploadBase64(ctx context.Context, s string) (Outcome, error) {
	data, err := DecodeDataURL(s)
	if err != nil {
		return Outcome{}, err
	}
	return c.UploadWithRetry(ctx, data)
}

// put performs a single attempt.
func (c *Client) put(ctx context.Context, payload []byte) (Outcome, error) {
	body, contentType, err := multipartBody(payload)
	if err != nil {
		return Outcome{}, &Error{Kind: KindNetwork, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.cfg.Endpoint, body)
	if err != nil {
		return Outcome{}, &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return Outcome{}, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Outcome{}, &Error{Kind: KindNetwork, Err: fmt.Errorf("read response: %w", err)}
	}
	slog.Debug("upload response", "status", resp.StatusCode, "body", string(raw))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{}, &Error{Kind: KindServerRejected, Status: resp.StatusCode, Body: string(raw)}
	}
	return c.parse(raw, len(payload))
}

// parse turns a 2xx body into an Outcome.
func (c *Client) parse(raw []byte, size int) (Outcome, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Outcome{}, &Error{Kind: KindProtocol, Body: string(raw), Err: fmt.Errorf("parse JSON: %w", err)}
	}

	path, ok := stringField(fields, "url")
	if !ok || path == "" {
		return Outcome{}, &Error{Kind: KindProtocol, Body: string(raw), Err: errors.New(`no string "url" field in response`)}
	}

	filename := FileName
	if name, ok := stringField(fields, "originalFileName"); ok && name != "" {
		filename = name
	}

	return Outcome{
		Success:  true,
		URL:      c.cfg.BaseURL + path,
		Filename: filename,
		Size:     FormatSize(size),
	}, nil
}

// stringField reports the value of key when it is present and a JSON
// string. null counts as absent.
func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", false
	}
	return *s, true
}

func multipartBody(payload []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldName, FileName))
	h.Set("Content-Type", ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
