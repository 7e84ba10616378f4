package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
	logpkg "github.com/kailas-cloud/collegebuddy/internal/logger"
	"github.com/kailas-cloud/collegebuddy/internal/metrics"
	healthuc "github.com/kailas-cloud/collegebuddy/internal/usecase/health"
)

// Replies rendered in place of an answer. Clients match on these strings.
const (
	msgIndexNotFound   = "Error: Vector database not found. Please run ingest.py first to build the database."
	msgQueryTimeout    = "Sorry, the query timed out. Please try again with a simpler question."
	msgProcessingError = "Error processing your question: "
)

// Error codes for non-200 responses.
const (
	codeBadRequest    = "bad_request"
	codeUnauthorized  = "unauthorized"
	codeInternalError = "internal_error"
)

// AnswerService answers a single question.
type AnswerService interface {
	Answer(ctx context.Context, q domain.Query) (domain.Answer, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API: question answering, health, metrics and the frontend bundle.
type Server struct {
	answers     AnswerService
	health      HealthService
	logger      *zap.Logger
	frontendDir string
	apiKeys     []string
	corsOrigins []string
}

// NewServer creates an HTTP API server.
func NewServer(answers AnswerService, health HealthService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		answers:     answers,
		health:      health,
		logger:      logger,
		corsOrigins: []string{"*"},
	}
}

// WithFrontend serves the prebuilt frontend from dir at / and /static/.
func (s *Server) WithFrontend(dir string) *Server {
	s.frontendDir = dir
	return s
}

// WithAPIKeys enables bearer authentication on /api routes.
func (s *Server) WithAPIKeys(keys []string) *Server {
	s.apiKeys = keys
	return s
}

// WithCORSOrigins restricts the allowed CORS origins.
func (s *Server) WithCORSOrigins(origins []string) *Server {
	if len(origins) > 0 {
		s.corsOrigins = origins
	}
	return s
}

// Router builds the chi router with the full middleware chain.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(s.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(BearerAuthMiddleware(s.apiKeys))
	r.Use(metrics.Middleware())

	r.Post("/api/query", s.Query)
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	if s.frontendDir != "" {
		r.Get("/", s.Index)
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.frontendDir))))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	return r
}

type queryRequest struct {
	Question       *string `json:"question"`
	Mood           string  `json:"mood"`
	IncludeSources bool    `json:"include_sources"`
}

type sourceRef struct {
	Source string  `json:"source"`
	Page   int     `json:"page,omitempty"`
	Score  float64 `json:"score"`
}

type queryResponse struct {
	Answer  string      `json:"answer"`
	Sources []sourceRef `json:"sources,omitempty"`
}

// Query handles POST /api/query. Every well-formed request gets a 200 whose
// answer is either the generated text or a human-readable failure message.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Question == nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "question is required")
		return
	}

	log := logpkg.FromContext(r.Context(), s.logger)
	log.Info("Processing query", zap.String("question", *req.Question), zap.String("mood", req.Mood))

	ans, err := s.answers.Answer(r.Context(), domain.NewQuery(*req.Question, req.Mood))
	if err != nil {
		writeJSON(w, http.StatusOK, queryResponse{Answer: renderError(err)})
		return
	}

	resp := queryResponse{Answer: ans.Text}
	if req.IncludeSources {
		resp.Sources = make([]sourceRef, len(ans.Sources))
		for i, h := range ans.Sources {
			resp.Sources[i] = sourceRef{Source: filepath.Base(h.Chunk.Source), Page: h.Chunk.Page, Score: h.Score}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// renderError maps an answering failure to the reply shown to the user.
func renderError(err error) string {
	switch {
	case errors.Is(err, domain.ErrIndexNotFound):
		return msgIndexNotFound
	case errors.Is(err, domain.ErrQueryTimeout):
		return msgQueryTimeout
	default:
		return msgProcessingError + err.Error()
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	report := s.health.Check(ctx)

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

// Index handles GET / with the frontend entry page.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.frontendDir, "index.html")
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "frontend not built")
		return
	}
	http.ServeFile(w, r, path)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}
