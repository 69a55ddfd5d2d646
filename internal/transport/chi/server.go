package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/domain/budget"
	"github.com/magnus-flipper/magnus/internal/domain/market"
	"github.com/magnus-flipper/magnus/internal/domain/valuation"
	"github.com/magnus-flipper/magnus/internal/domain/win"
	logpkg "github.com/magnus-flipper/magnus/internal/logger"
	"github.com/magnus-flipper/magnus/internal/metrics"
	healthuc "github.com/magnus-flipper/magnus/internal/usecase/health"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Server holds the HTTP handlers of the ops API.
type Server struct {
	budget    Budgeter
	guard     Admitter
	notify    WinNotifier
	valuation Appraiser
	health    HealthChecker
	logger    *zap.Logger
}

// NewServer creates an HTTP API server. valuation may be nil when no model is configured.
func NewServer(
	budgeter Budgeter,
	guard Admitter,
	notify WinNotifier,
	valuation Appraiser,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		budget:    budgeter,
		guard:     guard,
		notify:    notify,
		valuation: valuation,
		health:    health,
		logger:    logger,
	}
}

// RouterConfig holds cross-cutting HTTP settings.
type RouterConfig struct {
	APIKeys []string
}

// Router mounts every route with the standard middleware chain.
func (s *Server) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(WideEventMiddleware(s.logger))
	r.Use(BearerAuthMiddleware(cfg.APIKeys))
	r.Use(metrics.Middleware())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrorCodeBadRequest, "method not allowed")
	})

	r.Get("/healthz", s.Liveness)
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/market/feed", s.MarketFeed)

	r.With(BudgetMiddleware(s.guard, budget.KindAlerts, Fixed(1))).
		Post("/notify/win", s.NotifyWin)

	r.Route("/budget/{kind}", func(r chi.Router) {
		r.Post("/take", s.TakeTokens)
		r.Get("/usage", s.BudgetUsage)
	})

	r.Post("/valuations", s.CreateValuation)

	return r
}

// Liveness handles GET /healthz.
func (s *Server) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// healthResponse is the readiness body.
type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

type feedAI struct {
	YieldPct float64 `json:"yield_pct"`
	Conf     float64 `json:"conf"`
}

type feedItem struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	AI    feedAI  `json:"ai"`
}

// MarketFeed handles GET /market/feed.
func (s *Server) MarketFeed(w http.ResponseWriter, _ *http.Request) {
	listings := market.Feed()
	items := make([]feedItem, len(listings))
	for i, l := range listings {
		items[i] = feedItem{
			ID:    l.ID,
			Title: l.Title,
			Price: l.Price,
			AI:    feedAI{YieldPct: l.YieldPct, Conf: l.Confidence},
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type winRequest struct {
	Title    string  `json:"title"`
	Buy      float64 `json:"buy"`
	Sell     float64 `json:"sell"`
	YieldPct float64 `json:"yield_pct"`
	URL      string  `json:"url,omitempty"`
}

type winResponse struct {
	EventID   string            `json:"event_id"`
	Sent      bool              `json:"sent"`
	Delivered []string          `json:"delivered"`
	Failed    map[string]string `json:"failed,omitempty"`
}

// NotifyWin handles POST /notify/win.
func (s *Server) NotifyWin(w http.ResponseWriter, r *http.Request) {
	logger := logpkg.FromContext(r.Context())

	var req winRequest
	if !decodeBody(w, r, &req) {
		return
	}

	d, err := s.notify.NotifyWin(r.Context(), win.Win{
		Title:    req.Title,
		Buy:      req.Buy,
		Sell:     req.Sell,
		YieldPct: req.YieldPct,
		URL:      req.URL,
	})
	if err != nil {
		handleDomainError(logger, w, err)
		return
	}

	delivered := d.Delivered
	if delivered == nil {
		delivered = []string{}
	}
	writeJSON(w, http.StatusOK, winResponse{
		EventID:   d.EventID,
		Sent:      d.Sent,
		Delivered: delivered,
		Failed:    d.Failed,
	})
}

type valuationRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Condition   string  `json:"condition"`
	Marketplace string  `json:"marketplace"`
	AskPrice    float64 `json:"ask_price"`
}

type valuationResponse struct {
	valuation.Estimate
	ChargedTokens int64            `json:"charged_tokens"`
	Budget        decisionResponse `json:"budget"`
}

// CreateValuation handles POST /valuations.
func (s *Server) CreateValuation(w http.ResponseWriter, r *http.Request) {
	logger := logpkg.FromContext(r.Context())

	if s.valuation == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorCodeNotConfigured, "valuation model is not configured")
		return
	}

	org := orgIDFromRequest(r)
	if org == "" {
		writeError(w, http.StatusBadRequest, ErrorCodeOrgRequired, "org_id required")
		return
	}

	var req valuationRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.valuation.Appraise(r.Context(), org, valuation.Item{
		Title:       req.Title,
		Description: req.Description,
		Condition:   req.Condition,
		Marketplace: req.Marketplace,
		AskPrice:    req.AskPrice,
	})
	if err != nil {
		handleDomainError(logger, w, err)
		return
	}

	w.Header().Set(remainingHeader(budget.KindLLM), strconv.FormatInt(res.Decision.Remaining(), 10))
	writeJSON(w, http.StatusOK, valuationResponse{
		Estimate:      res.Estimate,
		ChargedTokens: res.Charged,
		Budget:        decisionToResponse(org, res.Decision),
	})
}

// decodeBody decodes a JSON body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "Invalid request body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, msg)
		return false
	}
	return true
}
