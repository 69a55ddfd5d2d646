package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/magnus-flipper/magnus/internal/transport/httpclient"
)

func testClient() *retryablehttp.Client {
	return httpclient.New(httpclient.Options{
		RetryMax:     2,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 2 * time.Millisecond,
	})
}

func TestDiscord_Send(t *testing.T) {
	var got map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscord(server.URL+"/api/webhooks/1/abc", testClient())
	if err := d.Send(context.Background(), "🏆 Win: test"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got["content"] != "🏆 Win: test" {
		t.Errorf("content = %q", got["content"])
	}
	if d.Name() != "discord" {
		t.Errorf("Name = %q", d.Name())
	}
}

func TestDiscord_RetriesThenSucceeds(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "content") {
			t.Errorf("retried request lost its body: %q", body)
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := NewDiscord(server.URL, testClient()).Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("hits = %d, want 2", hits.Load())
	}
}

func TestDiscord_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Unknown Webhook"}`))
	}))
	defer server.Close()

	err := NewDiscord(server.URL, testClient()).Send(context.Background(), "hi")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || !strings.Contains(statusErr.Body, "Unknown Webhook") {
		t.Errorf("unexpected error: %+v", statusErr)
	}
}

func TestTelegram_Send(t *testing.T) {
	var form url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer server.Close()

	tg := NewTelegram(server.URL+"/", "TOKEN", "42", testClient())
	if err := tg.Send(context.Background(), "🏆 Win: test"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if form.Get("chat_id") != "42" || form.Get("text") != "🏆 Win: test" {
		t.Errorf("form = %v", form)
	}
}

func TestTelegram_NotOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer server.Close()

	err := NewTelegram(server.URL, "TOKEN", "42", testClient()).Send(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("expected chat not found error, got %v", err)
	}
}

func TestTelegram_RedactsToken(t *testing.T) {
	// Nothing listens on this port, so the transport error carries the URL.
	tg := NewTelegram("http://127.0.0.1:1", "SECRET-TOKEN", "42", httpclient.New(httpclient.Options{}))
	err := tg.Send(context.Background(), "hi")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if strings.Contains(err.Error(), "SECRET-TOKEN") {
		t.Errorf("token leaked: %v", err)
	}
}

func TestNewTelegram_DefaultBaseURL(t *testing.T) {
	tg := NewTelegram("", "t", "c", testClient())
	if tg.baseURL != DefaultTelegramBaseURL {
		t.Errorf("baseURL = %q", tg.baseURL)
	}
}
