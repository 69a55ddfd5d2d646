package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/domain/budget"
	"github.com/magnus-flipper/magnus/internal/domain/valuation"
	"github.com/magnus-flipper/magnus/internal/domain/win"
	budgetuc "github.com/magnus-flipper/magnus/internal/usecase/budget"
	healthuc "github.com/magnus-flipper/magnus/internal/usecase/health"
	notifyuc "github.com/magnus-flipper/magnus/internal/usecase/notify"
	valuationuc "github.com/magnus-flipper/magnus/internal/usecase/valuation"
)

// --- Mocks ---

type memStore struct {
	mu   sync.Mutex
	data map[string]int64
	err  error
}

func newMemStore() *memStore { return &memStore{data: map[string]int64{}} }

func (m *memStore) Add(_ context.Context, key string, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.data[key] += amount
	return m.data[key], nil
}

func (m *memStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.data[key], nil
}

type mockNotifier struct {
	delivery notifyuc.Delivery
	err      error
	got      []win.Win
}

func (m *mockNotifier) NotifyWin(_ context.Context, w win.Win) (notifyuc.Delivery, error) {
	m.got = append(m.got, w)
	if err := w.Validate(); err != nil {
		return notifyuc.Delivery{}, err
	}
	return m.delivery, m.err
}

type mockAppraiser struct {
	res    valuationuc.Result
	err    error
	gotOrg string
}

func (m *mockAppraiser) Appraise(_ context.Context, orgID string, _ valuation.Item) (valuationuc.Result, error) {
	m.gotOrg = orgID
	return m.res, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

// --- Fixture ---

type fixture struct {
	store    *memStore
	limits   *budgetuc.StaticLimits
	notifier *mockNotifier
	app      *mockAppraiser
	health   *mockHealth
	handler  http.Handler
}

type fixtureOpts struct {
	alertsPerMinute int64
	guard           budgetuc.GuardConfig
	apiKeys         []string
	noValuation     bool
}

func newFixture(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()
	if o.alertsPerMinute == 0 {
		o.alertsPerMinute = 60
	}
	f := &fixture{
		store:    newMemStore(),
		limits:   budgetuc.NewStaticLimits(map[budget.Kind]int64{budget.KindAlerts: o.alertsPerMinute}, 1),
		notifier: &mockNotifier{delivery: notifyuc.Delivery{EventID: "evt-1", Sent: true, Delivered: []string{"discord"}}},
		app:      &mockAppraiser{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"store": healthuc.CheckOK},
		}},
	}

	limiter := budgetuc.NewLimiter(f.store, f.limits, zap.NewNop())
	guard := budgetuc.NewGuard(limiter, f.limits, o.guard, zap.NewNop())

	var app Appraiser = f.app
	if o.noValuation {
		app = nil
	}
	srv := NewServer(limiter, guard, f.notifier, app, f.health, zap.NewNop())
	f.handler = srv.Router(RouterConfig{APIKeys: o.apiKeys})
	return f
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}
