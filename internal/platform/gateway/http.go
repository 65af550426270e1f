// Package gateway holds the HTTP adapters to the client, account and
// transaction services the loan engine depends on.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microlending/loan-engine/internal/domain/shared"
)

// maxErrorBody bounds how much of a failed response is kept for logging
const maxErrorBody = 512

// errRemoteNotFound is returned by doJSON on a 404 so each gateway can turn it
// into its own typed not-found error
var errRemoteNotFound = errors.New("remote resource not found")

// HTTPDoer is satisfied by *http.Client
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type jsonClient struct {
	http    HTTPDoer
	logger  *slog.Logger
	service string
}

func newJSONClient(doer HTTPDoer, logger *slog.Logger, service string) jsonClient {
	return jsonClient{http: doer, logger: logger.With("downstream", service), service: service}
}

// NewHTTPClient builds the shared client used by every gateway
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// do sends body as JSON (when not nil) and decodes a 2xx response into out
// (when not nil). A 404 yields errRemoteNotFound; anything else unexpected is
// wrapped in shared.ErrIntegrationFailure.
func (c jsonClient) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", c.service, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", c.service, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("Downstream call failed", "method", method, "url", url, "error", err)
		return fmt.Errorf("%s %s: %v: %w", method, url, err, shared.ErrIntegrationFailure)
	}
	defer resp.Body.Close()

	c.logger.Debug("Downstream call completed",
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"latency", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return errRemoteNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("Downstream returned an error status",
			"method", method,
			"url", url,
			"status", resp.StatusCode,
			"body", strings.TrimSpace(string(snippet)),
		)
		return fmt.Errorf("%s %s returned %d: %w", method, url, resp.StatusCode, shared.ErrIntegrationFailure)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("Failed to decode downstream response", "url", url, "error", err)
		return fmt.Errorf("failed to decode %s response: %v: %w", c.service, err, shared.ErrIntegrationFailure)
	}
	return nil
}

// named is the {"nombre": ...} wrapper the downstream services use for
// catalogue values such as types and states
type named struct {
	Nombre string `json:"nombre"`
	Estado string `json:"estado"`
}

func (n *named) value() string {
	if n == nil {
		return ""
	}
	if n.Nombre != "" {
		return n.Nombre
	}
	return n.Estado
}

// flexibleTime accepts the date layouts produced by the downstream services
type flexibleTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *flexibleTime) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported date format %q", raw)
}
