package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultTelegramBaseURL is the Bot API endpoint.
const DefaultTelegramBaseURL = "https://api.telegram.org"

// Telegram sends messages through the Bot API sendMessage method.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *retryablehttp.Client
}

// NewTelegram creates a Telegram sink. An empty baseURL uses the public Bot API.
func NewTelegram(baseURL, token, chatID string, client *retryablehttp.Client) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramBaseURL
	}
	return &Telegram{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		chatID:  chatID,
		client:  client,
	}
}

// Name implements notify.Sink.
func (t *Telegram) Name() string { return "telegram" }

// Send posts chat_id and text as a form.
func (t *Telegram) Send(ctx context.Context, text string) error {
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := newRequest(ctx, endpoint, "application/x-www-form-urlencoded", []byte(form.Encode()))
	if err != nil {
		return err
	}

	body, err := send(t.client, t.Name(), req)
	if err != nil {
		return t.redact(err)
	}

	var reply struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return fmt.Errorf("telegram decode response: %w", err)
	}
	if !reply.OK {
		return fmt.Errorf("telegram rejected message: %s", reply.Description)
	}
	return nil
}

// redact strips the bot token, which is part of the request URL, from errors.
func (t *Telegram) redact(err error) error {
	if t.token == "" || !strings.Contains(err.Error(), t.token) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), t.token, "<redacted>"))
}
