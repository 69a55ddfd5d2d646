package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the magnus API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Budget    BudgetConfig    `yaml:"budget"`
	Notify    NotifyConfig    `yaml:"notify"`
	LLM       LLMConfig       `yaml:"llm"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Render    RenderConfig    `yaml:"render"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds counter store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey (default: redis)
	URL              string   `yaml:"url"`    // redis:// or rediss://, takes precedence over addrs
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	TimeoutMs        int      `yaml:"timeout_ms"`
}

// BudgetConfig holds fixed-window budget settings.
type BudgetConfig struct {
	AlertsPerMinute    int64  `yaml:"alerts_per_minute"`
	LLMTokensPerMinute int64  `yaml:"llm_tokens_per_minute"`
	BurstMultiplier    int64  `yaml:"burst_multiplier"`
	TTLSec             int    `yaml:"ttl_sec"`
	KeyPrefix          string `yaml:"key_prefix"`
	Source             string `yaml:"source"` // "static" (default) | "env"
	Action             string `yaml:"action"` // "reject" (default) | "warn"
	FailOpen           bool   `yaml:"fail_open"`
}

// NotifyConfig holds win notification sinks. Empty sinks are skipped.
type NotifyConfig struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url"`
	TelegramBotToken  string `yaml:"telegram_bot_token"`
	TelegramChatID    string `yaml:"telegram_chat_id"`
	TelegramBaseURL   string `yaml:"telegram_base_url"`
	TimeoutSec        int    `yaml:"timeout_sec"`
	RetryMax          int    `yaml:"retry_max"`
}

// LLMConfig holds the valuation model settings. Valuation is disabled without an API key.
type LLMConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Exporter    string   `yaml:"exporter"` // none (default), stdout, otlp
	Endpoint    string   `yaml:"endpoint"`
	SampleRate  *float64 `yaml:"sample_rate"` // nil means 0.2; 0 disables sampling
	ServiceName string   `yaml:"service_name"`
}

const defaultSampleRate = 0.2

// Ratio returns the trace sampling ratio.
func (t TelemetryConfig) Ratio() float64 {
	if t.SampleRate == nil {
		return defaultSampleRate
	}
	return *t.SampleRate
}

// RenderConfig holds the deployment platform API settings used by diagnostics.
// An empty BaseURL leaves the choice to the caller.
type RenderConfig struct {
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	LogLimit int    `yaml:"log_limit"`
}

// ApplyDefaults fills empty render fields.
func (r *RenderConfig) ApplyDefaults() {
	if r.LogLimit <= 0 {
		r.LogLimit = 200
	}
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadRender reads only the render section of an environment's config file.
// The server sections are neither defaulted nor validated.
func LoadRender(env string) (RenderConfig, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return RenderConfig{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return ParseRender(data)
}

// ParseRender decodes the render section of a YAML config, expanding ${VAR} references first.
func ParseRender(data []byte) (RenderConfig, error) {
	data = expandEnvVars(data)

	var doc struct {
		Render RenderConfig `yaml:"render"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RenderConfig{}, fmt.Errorf("failed to parse config: %w", err)
	}

	doc.Render.ApplyDefaults()
	return doc.Render, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Budget.AlertsPerMinute <= 0 {
		c.Budget.AlertsPerMinute = 60
	}
	if c.Budget.LLMTokensPerMinute <= 0 {
		c.Budget.LLMTokensPerMinute = 30000
	}
	if c.Budget.BurstMultiplier <= 0 {
		c.Budget.BurstMultiplier = 1
	}
	if c.Budget.TTLSec == 0 {
		c.Budget.TTLSec = 90
	}
	if c.Budget.KeyPrefix == "" {
		c.Budget.KeyPrefix = "magnus:"
	}
	if c.Budget.Source == "" {
		c.Budget.Source = "static"
	}
	if c.Budget.Action == "" {
		c.Budget.Action = "reject"
	}
	if c.Notify.TimeoutSec <= 0 {
		c.Notify.TimeoutSec = 10
	}
	if c.Notify.RetryMax < 0 {
		c.Notify.RetryMax = 0
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 400
	}
	if c.Telemetry.Exporter == "" {
		c.Telemetry.Exporter = "none"
	}
	if c.Telemetry.SampleRate == nil {
		rate := defaultSampleRate
		c.Telemetry.SampleRate = &rate
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "magnus-api"
	}
	c.Render.ApplyDefaults()
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis", "valkey":
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"valkey\", got %q", c.Database.Driver)
	}
	if c.Database.URL == "" && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.url or database.addrs is required")
	}
	if c.Budget.TTLSec < 60 {
		return fmt.Errorf("budget.ttl_sec must be at least 60, got %d", c.Budget.TTLSec)
	}
	switch c.Budget.Source {
	case "static", "env":
	default:
		return fmt.Errorf("budget.source must be \"static\" or \"env\", got %q", c.Budget.Source)
	}
	switch c.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("budget.action must be \"warn\" or \"reject\", got %q", c.Budget.Action)
	}
	if (c.Notify.TelegramBotToken == "") != (c.Notify.TelegramChatID == "") {
		return fmt.Errorf("notify.telegram_bot_token and notify.telegram_chat_id must be set together")
	}
	switch c.Telemetry.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("telemetry.exporter must be one of none, stdout, otlp, got %q", c.Telemetry.Exporter)
	}
	if rate := c.Telemetry.Ratio(); rate < 0 || rate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be within [0, 1], got %g", rate)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
