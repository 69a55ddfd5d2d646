package health

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

// --- Mocks ---

type mockStorePinger struct {
	err error
}

func (m *mockStorePinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

type slowChecker struct{}

func (slowChecker) HealthCheck(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockStorePinger{}).WithCheck("llm", &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["store"] != CheckOK {
		t.Errorf("expected store %q, got %q", CheckOK, r.Checks["store"])
	}
	if r.Checks["llm"] != CheckOK {
		t.Errorf("expected llm %q, got %q", CheckOK, r.Checks["llm"])
	}
}

func TestCheck_StoreError(t *testing.T) {
	svc := New(&mockStorePinger{err: errors.New("conn refused")}).WithCheck("llm", &mockChecker{})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["store"] != CheckError {
		t.Errorf("expected store %q, got %q", CheckError, r.Checks["store"])
	}
	if r.Checks["llm"] != CheckOK {
		t.Errorf("expected llm %q, got %q", CheckOK, r.Checks["llm"])
	}
}

func TestCheck_OptionalError(t *testing.T) {
	svc := New(&mockStorePinger{}).WithCheck("llm", &mockChecker{err: errors.New("timeout")})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["llm"] != CheckError {
		t.Errorf("expected llm %q, got %q", CheckError, r.Checks["llm"])
	}
}

func TestCheck_NilCheckerIgnored(t *testing.T) {
	svc := New(&mockStorePinger{}).WithCheck("llm", nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if _, ok := r.Checks["llm"]; ok {
		t.Error("llm check should be absent when checker is nil")
	}
	if got := svc.Names(); !reflect.DeepEqual(got, []string{"store"}) {
		t.Errorf("Names = %v", got)
	}
}

func TestCheck_ProbeTimeout(t *testing.T) {
	svc := New(&mockStorePinger{}).
		WithCheck("slow", slowChecker{}).
		WithTimeout(10 * time.Millisecond)

	r := svc.Check(context.Background())
	if r.Checks["slow"] != CheckError {
		t.Errorf("expected slow probe to fail on timeout, got %q", r.Checks["slow"])
	}
	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
}

func TestNames_Sorted(t *testing.T) {
	svc := New(&mockStorePinger{}).
		WithCheck("telegram", &mockChecker{}).
		WithCheck("discord", &mockChecker{})

	want := []string{"store", "discord", "telegram"}
	if got := svc.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names = %v, want %v", got, want)
	}
}
