package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	resty "github.com/go-resty/resty/v2"
)

// ErrEmptyReport is returned when the remote generator answers with no text.
var ErrEmptyReport = errors.New("report generator returned no text")

// HTTPConfig points the remote generator client at its endpoint.
type HTTPConfig struct {
	Endpoint string
	Path     string
	APIKey   string
	Timeout  time.Duration
}

// HTTPGenerator posts the request contract to an external report service and
// returns its body verbatim.
type HTTPGenerator struct {
	client *resty.Client
	path   string
}

// NewHTTPGenerator builds a resty-backed generator.
func NewHTTPGenerator(cfg HTTPConfig) *HTTPGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	path := cfg.Path
	if path == "" {
		path = "/v1/procurement-report"
	}
	client := resty.New().
		SetTimeout(timeout).
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetAuthToken(cfg.APIKey)
	}
	return &HTTPGenerator{client: client, path: path}
}

// Generate implements Generator. Empty requests never reach the network.
func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (Document, error) {
	if req.Empty() {
		return noItems(), nil
	}
	res, err := g.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(g.path)
	if err != nil {
		return Document{}, fmt.Errorf("report generator request: %w", err)
	}
	if res.IsError() {
		return Document{}, fmt.Errorf("report generator: status %d", res.StatusCode())
	}
	body := res.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		return Document{}, ErrEmptyReport
	}
	contentType := res.Header().Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeMarkdown
	}
	return Document{Format: FormatRemote, ContentType: contentType, Body: body}, nil
}
