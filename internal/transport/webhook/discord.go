package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"
)

// Discord posts messages to a Discord channel webhook.
type Discord struct {
	url    string
	client *retryablehttp.Client
}

// NewDiscord creates a Discord sink for the given webhook URL.
func NewDiscord(url string, client *retryablehttp.Client) *Discord {
	return &Discord{url: url, client: client}
}

// Name implements notify.Sink.
func (d *Discord) Name() string { return "discord" }

// Send posts {"content": text}.
func (d *Discord) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		return fmt.Errorf("discord encode: %w", err)
	}
	req, err := newRequest(ctx, d.url, "application/json", body)
	if err != nil {
		return err
	}
	_, err = send(d.client, d.Name(), req)
	return err
}
