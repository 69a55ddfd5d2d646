package diagnostics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/domain"
	"github.com/magnus-flipper/magnus/internal/transport/httpclient"
)

const (
	// DefaultBaseURL is the public Render API root.
	DefaultBaseURL = "https://api.render.com/v1"
	// DefaultLogLimit is how many log lines are requested per service.
	DefaultLogLimit = 200

	defaultTimeout = 30 * time.Second
	maxBody        = 8 << 20
)

// Config holds platform API connection settings.
type Config struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
	Logger   *zap.Logger
}

// Client reads service state from the platform API.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	logger  *zap.Logger
}

// NewClient creates a platform API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: platform api key is required", domain.ErrInvalidConfig)
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("%w: base url: %w", domain.ErrInvalidConfig, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		http: httpclient.New(httpclient.Options{
			RetryMax: cfg.RetryMax,
			Timeout:  timeout,
			Logger:   logger,
		}),
		logger: logger,
	}, nil
}

// ListServices returns up to 100 services of the workspace.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	body, err := c.get(ctx, "services?limit=100")
	if err != nil {
		return nil, err
	}
	return decodeServices(body)
}

// Logs returns up to limit recent log entries of a service.
func (c *Client) Logs(ctx context.Context, serviceID string, limit int) ([]LogEntry, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	body, err := c.get(ctx, "services/"+url.PathEscape(serviceID)+"/logs?limit="+strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	return decodeList[LogEntry](body, "log", "logs")
}

// EnvVarKeys returns the names of the env vars configured on a service.
func (c *Client) EnvVarKeys(ctx context.Context, serviceID string) ([]string, error) {
	body, err := c.get(ctx, "services/"+url.PathEscape(serviceID)+"/env-vars")
	if err != nil {
		return nil, err
	}
	vars, err := decodeList[apiEnvVar](body, "envVar", "envVars")
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(vars))
	for _, v := range vars {
		if v.Key != "" {
			keys = append(keys, v.Key)
		}
	}
	return keys, nil
}

// ListPostgres returns the managed Postgres instances.
func (c *Client) ListPostgres(ctx context.Context) ([]Datastore, error) {
	body, err := c.get(ctx, "postgres")
	if err != nil {
		return nil, err
	}
	return decodeDatastores(body, "postgres", "databases")
}

// ListRedis returns the managed Redis instances.
func (c *Client) ListRedis(ctx context.Context) ([]Datastore, error) {
	body, err := c.get(ctx, "redis")
	if err != nil {
		return nil, err
	}
	return decodeDatastores(body, "redis", "redis")
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("platform api call", zap.String("endpoint", endpoint), zap.Int("status", resp.StatusCode))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("GET %s: %w: invalid api key", endpoint, domain.ErrUnauthorized)
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("GET %s: %w: %s", endpoint, domain.ErrForbidden, truncate(string(body), 256))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("GET %s: unexpected status %d: %s", endpoint, resp.StatusCode, truncate(string(body), 256))
	}
	return body, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n]
	}
	return s
}
