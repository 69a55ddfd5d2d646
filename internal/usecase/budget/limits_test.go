package budget

import (
	"errors"
	"testing"

	"github.com/magnus-flipper/magnus/internal/domain"
	"github.com/magnus-flipper/magnus/internal/domain/budget"
)

func envFrom(m map[string]string) *EnvLimits {
	return &EnvLimits{lookup: func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}}
}

func TestEnvLimits_Defaults(t *testing.T) {
	e := envFrom(nil)

	l, err := e.Limits(budget.KindAlerts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.PerMinute != 60 || l.Cap() != 60 {
		t.Errorf("alerts = %+v", l)
	}

	l, err = e.Limits(budget.KindLLM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.PerMinute != 30000 || l.Cap() != 30000 {
		t.Errorf("llm = %+v", l)
	}
}

func TestEnvLimits_Overrides(t *testing.T) {
	e := envFrom(map[string]string{
		EnvAlertsPerMinute: "10",
		EnvLLMPerMinute:    " 500 ",
		EnvBurstMultiplier: "3",
	})

	l, err := e.Limits(budget.KindAlerts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Cap() != 30 {
		t.Errorf("alerts cap = %d, want 30", l.Cap())
	}
	l, err = e.Limits(budget.KindLLM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Cap() != 1500 {
		t.Errorf("llm cap = %d, want 1500", l.Cap())
	}
}

func TestEnvLimits_ReadOnEveryCall(t *testing.T) {
	env := map[string]string{EnvAlertsPerMinute: "10"}
	e := envFrom(env)

	l, _ := e.Limits(budget.KindAlerts)
	if l.PerMinute != 10 {
		t.Fatalf("PerMinute = %d, want 10", l.PerMinute)
	}
	env[EnvAlertsPerMinute] = "20"
	l, _ = e.Limits(budget.KindAlerts)
	if l.PerMinute != 20 {
		t.Errorf("PerMinute = %d, want 20 after change", l.PerMinute)
	}
}

func TestEnvLimits_ZeroBurstTreatedAsOne(t *testing.T) {
	e := envFrom(map[string]string{EnvBurstMultiplier: "0"})
	l, err := e.Limits(budget.KindAlerts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Cap() != 60 {
		t.Errorf("cap = %d, want 60", l.Cap())
	}
}

func TestEnvLimits_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		kind budget.Kind
	}{
		{"non-numeric limit", map[string]string{EnvLLMPerMinute: "lots"}, budget.KindLLM},
		{"non-numeric burst", map[string]string{EnvBurstMultiplier: "1.5"}, budget.KindAlerts},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := envFrom(tc.env).Limits(tc.kind)
			if !errors.Is(err, domain.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}

	if _, err := envFrom(nil).Limits(budget.Kind("sms")); !errors.Is(err, domain.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestStaticLimits(t *testing.T) {
	s := NewStaticLimits(map[budget.Kind]int64{budget.KindLLM: 1000}, 2)

	l, err := s.Limits(budget.KindLLM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Cap() != 2000 {
		t.Errorf("llm cap = %d, want 2000", l.Cap())
	}

	// Missing kinds fall back to defaults.
	l, err = s.Limits(budget.KindAlerts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.PerMinute != budget.DefaultAlertsPerMinute || l.Cap() != 120 {
		t.Errorf("alerts = %+v", l)
	}

	s.Replace(map[budget.Kind]int64{budget.KindAlerts: 5}, 0)
	l, _ = s.Limits(budget.KindAlerts)
	if l.Cap() != 5 {
		t.Errorf("alerts cap after replace = %d, want 5", l.Cap())
	}

	if _, err := s.Limits(budget.Kind("")); !errors.Is(err, domain.ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}
