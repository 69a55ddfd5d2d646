package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/magnus-flipper/magnus/internal/diagnostics"
)

type stubAPI struct {
	services []diagnostics.Service
	env      []string
	logs     []diagnostics.LogEntry
}

func (s *stubAPI) ListServices(context.Context) ([]diagnostics.Service, error) {
	return s.services, nil
}

func (s *stubAPI) Logs(context.Context, string, int) ([]diagnostics.LogEntry, error) {
	return s.logs, nil
}

func (s *stubAPI) EnvVarKeys(context.Context, string) ([]string, error) { return s.env, nil }

func (s *stubAPI) ListPostgres(context.Context) ([]diagnostics.Datastore, error) { return nil, nil }

func (s *stubAPI) ListRedis(context.Context) ([]diagnostics.Datastore, error) { return nil, nil }

func execute(t *testing.T, api diagnostics.API, args ...string) (string, error) {
	t.Helper()
	o := &options{newAPI: func(*options) (diagnostics.API, error) { return api, nil }}
	cmd := newRootCmd(o)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--api-key", "rnd_test"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestServicesCommand(t *testing.T) {
	api := &stubAPI{services: []diagnostics.Service{
		{ID: "srv-1", Name: "magnus-flipper-api", Type: "web_service", Status: "available"},
	}}
	out, err := execute(t, api, "services")
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	if !strings.Contains(out, "magnus-flipper-api") || !strings.Contains(out, "active: 1") {
		t.Errorf("output = %s", out)
	}
}

func TestLogsCommand(t *testing.T) {
	api := &stubAPI{logs: []diagnostics.LogEntry{{Timestamp: "t", Message: "sh: permission denied"}}}
	out, err := execute(t, api, "logs", "srv-1")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if !strings.Contains(out, string(diagnostics.FindingPermission)) {
		t.Errorf("output = %s", out)
	}
}

func TestEnvCommand_MissingFails(t *testing.T) {
	api := &stubAPI{env: []string{"REDIS_URL"}}
	out, err := execute(t, api, "env", "srv-1", "--require", "REDIS_URL,OPENAI_API_KEY")
	if err == nil || !strings.Contains(err.Error(), "1 required variables missing") {
		t.Fatalf("expected missing error, got %v", err)
	}
	if !strings.Contains(out, "[missing] OPENAI_API_KEY") || !strings.Contains(out, "[ok] REDIS_URL") {
		t.Errorf("output = %s", out)
	}
}

func TestEnvCommand_RequiresList(t *testing.T) {
	if _, err := execute(t, &stubAPI{}, "env", "srv-1"); err == nil {
		t.Fatal("expected error without --require")
	}
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := execute(t, nil, "analyze", "../diagnostics/testdata/snapshot.json")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Policy: allkeys_lru") {
		t.Errorf("output = %s", out)
	}
}

func TestRunCommand(t *testing.T) {
	api := &stubAPI{services: []diagnostics.Service{{ID: "srv-1", Name: "api", Status: "available"}}}
	out, err := execute(t, api, "run")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "diagnostic sequence complete") {
		t.Errorf("output = %s", out)
	}
}

func TestMissingAPIKey(t *testing.T) {
	t.Setenv(envAPIKey, "")
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"services"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), envAPIKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func executeCapture(t *testing.T, args ...string) (*options, error) {
	t.Helper()
	var seen *options
	o := &options{newAPI: func(o *options) (diagnostics.API, error) {
		seen = o
		return &stubAPI{}, nil
	}}
	cmd := newRootCmd(o)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return seen, err
}

func TestEnvConfig_IgnoresServerSettings(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("API_KEY", "")
	t.Setenv("RENDER_BASE_URL", "")

	if _, err := execute(t, &stubAPI{}, "--env", "prod", "services"); err != nil {
		t.Fatalf("--env prod without a store address: %v", err)
	}
}

func TestEnvConfig_EnvVarBeatsConfig(t *testing.T) {
	t.Setenv("RENDER_BASE_URL", "http://mock.local/v1")
	t.Setenv("RENDER_API_KEY", "rnd_env")

	o, err := executeCapture(t, "--env", "local", "services")
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	if o.baseURL != "http://mock.local/v1" {
		t.Errorf("baseURL = %q, want the RENDER_BASE_URL value", o.baseURL)
	}
	if o.apiKey != "rnd_env" {
		t.Errorf("apiKey = %q", o.apiKey)
	}
}

func TestEnvConfig_FlagsWin(t *testing.T) {
	t.Setenv("RENDER_BASE_URL", "")

	o, err := executeCapture(t, "--env", "local", "--api-key", "rnd_flag",
		"--base-url", "http://flag.local/v1", "--log-limit", "7", "services")
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	if o.baseURL != "http://flag.local/v1" || o.apiKey != "rnd_flag" || o.logLimit != 7 {
		t.Errorf("flags overridden: %+v", *o)
	}
}

func TestEnvConfig_FillsUnsetDefaults(t *testing.T) {
	t.Setenv("RENDER_BASE_URL", "")

	o, err := executeCapture(t, "--env", "local", "--api-key", "rnd_flag", "services")
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	if o.baseURL != diagnostics.DefaultBaseURL {
		t.Errorf("baseURL = %q, want default", o.baseURL)
	}
	if o.logLimit != diagnostics.DefaultLogLimit {
		t.Errorf("logLimit = %d", o.logLimit)
	}
}
