// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pdiddy/paper-harvester/internal/httputil"
)

// HTTPSink POSTs events as JSON.
type HTTPSink struct {
	url    string
	token  string
	client *resty.Client
}

// NewHTTPSink returns a webhook sink. A non-empty token is sent as a
// bearer credential.
func NewHTTPSink(url, token string, timeout time.Duration) *HTTPSink {
	return &HTTPSink{
		url:    url,
		token:  strings.TrimSpace(token),
		client: httputil.NewClient(timeout, ""),
	}
}

func (h *HTTPSink) Type() string   { return TypeHTTP }
func (h *HTTPSink) Target() string { return h.url }

func (h *HTTPSink) Send(ctx context.Context, evt Event) error {
	req := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(evt)
	if h.token != "" {
		req.SetAuthToken(h.token)
	}

	resp, err := req.Post(h.url)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("http response status %d: %s", resp.StatusCode(), snippet(resp.Body()))
	}
	return nil
}

func snippet(body []byte) string {
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
