package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/scaledex/internal/domain"
	"github.com/kailas-cloud/scaledex/internal/domain/access"
	"github.com/kailas-cloud/scaledex/internal/domain/search/request"
	"github.com/kailas-cloud/scaledex/internal/domain/search/result"
	domusage "github.com/kailas-cloud/scaledex/internal/domain/usage"
	logpkg "github.com/kailas-cloud/scaledex/internal/logger"
	healthuc "github.com/kailas-cloud/scaledex/internal/usecase/health"
)

const maxBodyBytes = 1 << 20

// Searcher runs searches and query expansion.
type Searcher interface {
	Search(ctx context.Context, id access.Identity, req request.Request) (result.Page, error)
	Expand(raw, locale string) (request.Expanded, error)
}

// UsageReporter reads usage counters.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) (domusage.Report, error)
}

// HealthChecker aggregates component checks.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search API.
type Server struct {
	search        Searcher
	usage         UsageReporter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(search Searcher, usage UsageReporter, health HealthChecker, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		search: search,
		usage:  usage,
		health: health,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		rateLimitHandler,
		invalidQueryHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrCandidateProvider, http.StatusServiceUnavailable, codeCatalogUnavailable),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Get("/search", s.SearchQuery)
		r.Get("/expand", s.Expand)
		r.Get("/usage", s.Usage)
	})
	r.Get("/health", s.Health)
	r.Handle("/metrics", promhttp.Handler())
}

// Search handles POST /v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	s.serveSearch(w, r, &req)
}

// SearchQuery handles GET /v1/search?q=&mode=&page=&limit=&sort_by=&locale=.
func (s *Server) SearchQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := searchRequest{
		Query:  q.Get("q"),
		Locale: q.Get("locale"),
		Mode:   q.Get("mode"),
		SortBy: q.Get("sort_by"),
	}
	var err error
	if req.Page, err = intParam(q.Get("page")); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, "page must be an integer")
		return
	}
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, "limit must be an integer")
		return
	}
	if cats, statuses, langs := q["category"], q["status"], q["language"]; len(cats)+len(statuses)+len(langs) > 0 {
		req.Filters = &filtersDTO{Categories: cats, Statuses: statuses, Languages: langs}
	}
	s.serveSearch(w, r, &req)
}

func (s *Server) serveSearch(w http.ResponseWriter, r *http.Request, req *searchRequest) {
	searchReq, err := req.toDomain()
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.search.Search(r.Context(), IdentityFromContext(r.Context()), searchReq)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if page.Degraded {
		w.Header().Set("X-Search-Degraded", "true")
	}
	writeJSON(w, http.StatusOK, pageToDTO(&page))
}

// Expand handles GET /v1/expand?q=&locale=.
func (s *Server) Expand(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")
	exp, err := s.search.Expand(raw, r.URL.Query().Get("locale"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expandedToDTO(raw, exp))
}

// Usage handles GET /v1/usage?period=day|total.
func (s *Server) Usage(w http.ResponseWriter, r *http.Request) {
	period := domusage.PeriodDay
	if p := r.URL.Query().Get("period"); p != "" {
		period = domusage.Period(p)
	}
	if !period.IsValid() {
		writeError(w, http.StatusBadRequest, codeBadRequest, `period must be "day" or "total"`)
		return
	}

	report, err := s.usage.GetReport(r.Context(), period)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToDTO(&report))
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthToDTO(report))
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:   code,
		Message: message,
	})
}

// rateLimitHandler answers an exhausted anonymous quota with 429 and Retry-After.
func rateLimitHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrRateLimitExceeded) {
		return false
	}
	retry := 1
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		retry = rle.RetryAfterSeconds()
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:             codeRateLimitExceeded,
		Message:           "anonymous search quota exhausted, sign in to continue",
		RetryAfterSeconds: retry,
		RequiresAuth:      true,
	})
	return true
}

// invalidQueryHandler exposes the validation reason, which never carries internals.
func invalidQueryHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidQuery) {
		return false
	}
	msg := err.Error()
	if i := strings.Index(msg, domain.ErrInvalidQuery.Error()); i > 0 {
		msg = msg[i:]
	}
	writeError(w, http.StatusBadRequest, codeInvalidQuery, msg)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Debug("Request rejected", zap.Error(err))
			return
		}
	}
	s.logger.Error("Internal error", zap.String("path", r.URL.Path), zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
