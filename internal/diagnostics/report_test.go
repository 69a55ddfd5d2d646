package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/magnus-flipper/magnus/internal/domain"
)

type fakeAPI struct {
	services    []Service
	servicesErr error
	logs        map[string][]LogEntry
	env         map[string][]string
	postgres    []Datastore
	redis       []Datastore
	redisErr    error
	logCalls    []string
}

func (f *fakeAPI) ListServices(context.Context) ([]Service, error) {
	return f.services, f.servicesErr
}

func (f *fakeAPI) Logs(_ context.Context, id string, _ int) ([]LogEntry, error) {
	f.logCalls = append(f.logCalls, id)
	return f.logs[id], nil
}

func (f *fakeAPI) EnvVarKeys(_ context.Context, id string) ([]string, error) {
	return f.env[id], nil
}

func (f *fakeAPI) ListPostgres(context.Context) ([]Datastore, error) { return f.postgres, nil }

func (f *fakeAPI) ListRedis(context.Context) ([]Datastore, error) { return f.redis, f.redisErr }

func TestRun_AnalyzesOnlyFailedServices(t *testing.T) {
	api := &fakeAPI{
		services: []Service{
			{ID: "srv-ok", Name: "api", Status: "available"},
			{ID: "srv-bad", Name: "crawler", Status: "deploy_failed"},
		},
		logs: map[string][]LogEntry{
			"srv-bad": {{Timestamp: "t1", Message: "browserType.launch: Executable doesn't exist"}},
		},
		env: map[string][]string{
			"srv-ok":  {"REDIS_URL", "OPENAI_API_KEY"},
			"srv-bad": {"REDIS_URL"},
		},
		postgres: []Datastore{{Name: "db", Plan: "basic_256mb", Status: "available"}},
		redisErr: errors.New("boom"),
	}

	var out bytes.Buffer
	res, err := Run(context.Background(), api, &out, RunOptions{RequiredEnv: []string{"REDIS_URL", "OPENAI_API_KEY"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(api.logCalls) != 1 || api.logCalls[0] != "srv-bad" {
		t.Errorf("log calls = %v", api.logCalls)
	}
	if f := res.Findings["srv-bad"]; len(f) != 1 || f[0] != FindingBrowser {
		t.Errorf("findings = %v", f)
	}
	if m := res.Missing["srv-bad"]; len(m) != 1 || m[0] != "OPENAI_API_KEY" {
		t.Errorf("missing = %v", res.Missing)
	}
	if _, ok := res.Missing["srv-ok"]; ok {
		t.Errorf("srv-ok should have no missing vars")
	}
	if len(res.Errors) != 1 {
		t.Errorf("errors = %v", res.Errors)
	}

	text := out.String()
	for _, want := range []string{
		"active: 1  other: 0  suspended: 0  failed: 1",
		"STEP 2: ANALYZING 1 FAILED SERVICE(S)",
		string(FindingBrowser),
		"failed to list redis instances: boom",
		"[missing] OPENAI_API_KEY",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q\n%s", want, text)
		}
	}
}

func TestRun_ServiceListingFailureAborts(t *testing.T) {
	api := &fakeAPI{servicesErr: domain.ErrUnauthorized}
	var out bytes.Buffer
	_, err := Run(context.Background(), api, &out, RunOptions{})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if strings.Contains(out.String(), "STEP 3") {
		t.Errorf("run continued after listing failure")
	}
}

func TestRun_AnyListingErrorAborts(t *testing.T) {
	listErr := errors.New("render api: status 500")
	api := &fakeAPI{servicesErr: listErr}
	var out bytes.Buffer
	_, err := Run(context.Background(), api, &out, RunOptions{})
	if !errors.Is(err, listErr) {
		t.Fatalf("expected listing error, got %v", err)
	}
	if strings.Contains(out.String(), "STEP 2") {
		t.Errorf("run continued after listing failure")
	}
}

func TestPrintLogs_NoFindings(t *testing.T) {
	var out bytes.Buffer
	findings := PrintLogs(&out, "api", []LogEntry{{Timestamp: "t", Message: "listening"}}, 50)
	if len(findings) != 0 {
		t.Errorf("findings = %v", findings)
	}
	if !strings.Contains(out.String(), "no specific patterns detected") {
		t.Errorf("output = %s", out.String())
	}
}

func TestSnapshot(t *testing.T) {
	f, err := os.Open("testdata/snapshot.json")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	snap, err := LoadSnapshot(f)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap.Services) != 2 || len(snap.Postgres) != 1 || len(snap.Redis) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
	crawler := snap.Services[0]
	if crawler.Region != "frankfurt" || !strings.Contains(crawler.BuildCommand, "playwright install") {
		t.Errorf("crawler = %+v", crawler)
	}

	var out bytes.Buffer
	PrintSnapshot(&out, snap)
	text := out.String()
	for _, want := range []string{
		"total services:       2",
		"Type: background_worker",
		"Start Command: node packages/api/dist/server.js",
		"Database: magnus_flipper",
		"Policy: allkeys_lru",
		"magnus-flipper-api",
		"= srv-flipper-api",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestLoadSnapshot_Invalid(t *testing.T) {
	if _, err := LoadSnapshot(strings.NewReader("{")); err == nil {
		t.Fatal("expected decode error")
	}
}
