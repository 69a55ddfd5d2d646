// Package webhook delivers notification text to chat webhooks.
package webhook

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// maxErrorBody bounds how much of a failed response is echoed into errors.
const maxErrorBody = 512

// StatusError is a non-2xx reply from a sink.
type StatusError struct {
	Sink       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Sink, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Sink, e.StatusCode, e.Body)
}

func send(c *retryablehttp.Client, sink string, req *retryablehttp.Request) ([]byte, error) {
	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", sink, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("%s read response: %w", sink, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Sink: sink, StatusCode: resp.StatusCode, Body: msg}
	}
	return body, nil
}

func newRequest(ctx context.Context, url, contentType string, body []byte) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return req, nil
}
