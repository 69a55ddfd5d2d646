package chi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/magnus-flipper/magnus/internal/domain"
	"github.com/magnus-flipper/magnus/internal/domain/budget"
	logpkg "github.com/magnus-flipper/magnus/internal/logger"
)

// OrgIDHeader carries the calling organization.
const OrgIDHeader = "X-Org-ID"

// orgIDFromRequest resolves the organization from the header, falling back to ?org_id=.
func orgIDFromRequest(r *http.Request) string {
	if org := strings.TrimSpace(r.Header.Get(OrgIDHeader)); org != "" {
		return org
	}
	return strings.TrimSpace(r.URL.Query().Get("org_id"))
}

// remainingHeader returns X-Budget-<Kind>-Remaining.
func remainingHeader(kind budget.Kind) string {
	return "X-Budget-" + kind.String() + "-Remaining"
}

// BudgetMiddleware charges amount(r) tokens of kind to the calling org before
// the wrapped handler runs. Missing org is a 400, a rejected take a 429.
func BudgetMiddleware(guard Admitter, kind budget.Kind, amount func(*http.Request) int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logpkg.FromContext(r.Context())

			org := orgIDFromRequest(r)
			if org == "" {
				writeError(w, http.StatusBadRequest, ErrorCodeOrgRequired, domain.ErrMissingOrg.Error())
				return
			}

			d, err := guard.Admit(r.Context(), kind, org, amount(r))
			if err != nil {
				handleDomainError(logger, w, err)
				return
			}

			w.Header().Set(remainingHeader(kind), strconv.FormatInt(d.Remaining(), 10))
			next.ServeHTTP(w, r)
		})
	}
}

// Fixed returns an amount function that always charges n.
func Fixed(n int64) func(*http.Request) int64 {
	return func(*http.Request) int64 { return n }
}

// takeRequest is the body of POST /budget/{kind}/take.
type takeRequest struct {
	OrgID  string `json:"org_id"`
	Amount int64  `json:"amount"`
}

// decisionResponse mirrors budget.Decision on the wire.
type decisionResponse struct {
	Kind      string `json:"kind"`
	OrgID     string `json:"org_id"`
	Allowed   bool   `json:"allowed"`
	Used      int64  `json:"used"`
	Cap       int64  `json:"cap"`
	Limit     int64  `json:"limit"`
	Remaining int64  `json:"remaining"`
	Bucket    int64  `json:"bucket"`
	ResetsAt  string `json:"resets_at"`
	Degraded  bool   `json:"degraded,omitempty"`
}

func decisionToResponse(orgID string, d budget.Decision) decisionResponse {
	return decisionResponse{
		Kind:      d.Kind().String(),
		OrgID:     orgID,
		Allowed:   d.Allowed(),
		Used:      d.Used(),
		Cap:       d.Cap(),
		Limit:     d.Limit(),
		Remaining: d.Remaining(),
		Bucket:    d.Bucket(),
		ResetsAt:  d.ResetsAt().Format(time.RFC3339),
		Degraded:  d.Degraded(),
	}
}

// TakeTokens handles POST /budget/{kind}/take. Over-budget is reported in the
// body with 200; the caller decides what to do with allowed=false.
func (s *Server) TakeTokens(w http.ResponseWriter, r *http.Request) {
	logger := logpkg.FromContext(r.Context())

	kind, err := budget.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		handleDomainError(logger, w, err)
		return
	}

	var req takeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OrgID == "" {
		req.OrgID = orgIDFromRequest(r)
	}

	d, err := s.budget.TakeTokens(r.Context(), kind, req.OrgID, req.Amount)
	if err != nil {
		handleDomainError(logger, w, err)
		return
	}

	w.Header().Set(remainingHeader(kind), strconv.FormatInt(d.Remaining(), 10))
	writeJSON(w, http.StatusOK, decisionToResponse(req.OrgID, d))
}

// BudgetUsage handles GET /budget/{kind}/usage.
func (s *Server) BudgetUsage(w http.ResponseWriter, r *http.Request) {
	logger := logpkg.FromContext(r.Context())

	kind, err := budget.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		handleDomainError(logger, w, err)
		return
	}

	org := orgIDFromRequest(r)
	d, err := s.budget.Usage(r.Context(), kind, org)
	if err != nil {
		handleDomainError(logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, decisionToResponse(org, d))
}
