package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/collegebuddy/internal/domain"
	"github.com/kailas-cloud/collegebuddy/internal/index"
	"github.com/kailas-cloud/collegebuddy/internal/metrics"
	answeruc "github.com/kailas-cloud/collegebuddy/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/collegebuddy/internal/usecase/health"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockAnswers struct {
	answer domain.Answer
	err    error
	query  domain.Query
	calls  int
}

func (m *mockAnswers) Answer(_ context.Context, q domain.Query) (domain.Answer, error) {
	m.calls++
	m.query = q
	return m.answer, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func healthy() *mockHealth {
	return &mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK},
	}}
}

func newTestRouter(a AnswerService) http.Handler {
	return NewServer(a, healthy(), zap.NewNop()).Router()
}

func postQuery(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, queryResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp queryResponse
	if rr.Code == http.StatusOK {
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return rr, resp
}

// --- Tests ---

func TestQuery_Success(t *testing.T) {
	answers := &mockAnswers{answer: domain.Answer{Text: "Exams start May 2."}}

	rr, resp := postQuery(t, newTestRouter(answers), `{"question":"When do exams start?","mood":"playful"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resp.Answer != "Exams start May 2." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.Sources != nil {
		t.Error("sources should be omitted unless requested")
	}
	if answers.query.Question != "When do exams start?" || answers.query.Mood != "playful" {
		t.Errorf("unexpected query: %+v", answers.query)
	}
}

func TestQuery_DefaultMood(t *testing.T) {
	answers := &mockAnswers{answer: domain.Answer{Text: "ok"}}

	postQuery(t, newTestRouter(answers), `{"question":"hi"}`)

	if answers.query.Mood != "supportive" {
		t.Errorf("expected default mood, got %q", answers.query.Mood)
	}
}

func TestQuery_IncludeSources(t *testing.T) {
	answers := &mockAnswers{answer: domain.Answer{
		Text: "ok",
		Sources: []domain.ScoredChunk{
			{Chunk: domain.Chunk{Source: "data/rules.pdf", Page: 2}, Score: 0.9},
		},
	}}

	_, resp := postQuery(t, newTestRouter(answers), `{"question":"hi","include_sources":true}`)

	if len(resp.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(resp.Sources))
	}
	if resp.Sources[0].Source != "rules.pdf" || resp.Sources[0].Page != 2 {
		t.Errorf("unexpected source: %+v", resp.Sources[0])
	}
}

func TestQuery_ErrorsRenderAsAnswers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "index missing",
			err:  domain.ErrIndexNotFound,
			want: "Error: Vector database not found. Please run ingest.py first to build the database.",
		},
		{
			name: "timeout",
			err:  fmt.Errorf("after 30s: %w", domain.ErrQueryTimeout),
			want: "Sorry, the query timed out. Please try again with a simpler question.",
		},
		{
			name: "provider failure",
			err:  fmt.Errorf("generate: %w", domain.ErrGenerationProviderError),
			want: "Error processing your question: generate: generation provider error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr, resp := postQuery(t, newTestRouter(&mockAnswers{err: tc.err}), `{"question":"q"}`)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			if resp.Answer != tc.want {
				t.Errorf("answer:\n got %q\nwant %q", resp.Answer, tc.want)
			}
		})
	}
}

func TestQuery_MalformedBody(t *testing.T) {
	answers := &mockAnswers{}

	for _, body := range []string{`{not json`, `{"mood":"calm"}`} {
		rr, _ := postQuery(t, newTestRouter(answers), body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %d", body, rr.Code)
		}
		var errResp errorResponse
		if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
			t.Fatalf("decode error response: %v", err)
		}
		if errResp.Code != codeBadRequest {
			t.Errorf("error code: got %s, want %s", errResp.Code, codeBadRequest)
		}
	}
	if answers.calls != 0 {
		t.Error("service must not be called for malformed bodies")
	}
}

func TestQuery_RequiresTokenWhenConfigured(t *testing.T) {
	h := NewServer(&mockAnswers{answer: domain.Answer{Text: "ok"}}, healthy(), zap.NewNop()).
		WithAPIKeys([]string{"secret"}).
		Router()

	rr, _ := postQuery(t, h, `{"question":"q"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"question":"q"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", rr.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		report healthuc.Report
		code   int
	}{
		{
			name:   "healthy",
			report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckOK}},
			code:   http.StatusOK,
		},
		{
			name:   "index missing",
			report: healthuc.Report{Status: healthuc.Degraded, Checks: map[string]healthuc.CheckResult{"index": healthuc.CheckMissing}},
			code:   http.StatusServiceUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewServer(&mockAnswers{}, &mockHealth{report: tc.report}, zap.NewNop()).Router()
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rr.Code)
			}
			var resp healthResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Status != string(tc.report.Status) {
				t.Errorf("status: got %q, want %q", resp.Status, tc.report.Status)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(&mockAnswers{answer: domain.Answer{Text: "ok"}})
	postQuery(t, h, `{"question":"q"}`)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "collegebuddy_http_requests_total") {
		t.Error("expected http request metrics in exposition")
	}
}

func TestCORS(t *testing.T) {
	h := newTestRouter(&mockAnswers{answer: domain.Answer{Text: "ok"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/query", http.NoBody)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("expected Access-Control-Allow-Origin on preflight")
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("expected credentials allowed, got %q", got)
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestRouter(&mockAnswers{answer: domain.Answer{Text: "ok"}})
	rr, _ := postQuery(t, h, `{"question":"q"}`)

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestFrontend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>buddy</html>"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o600); err != nil {
		t.Fatal(err)
	}

	h := NewServer(&mockAnswers{}, healthy(), zap.NewNop()).WithFrontend(dir).Router()

	for path, want := range map[string]string{"/": "buddy", "/static/app.js": "console.log"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rr.Code)
			continue
		}
		body, _ := io.ReadAll(rr.Body)
		if !strings.Contains(string(body), want) {
			t.Errorf("%s: unexpected body %q", path, body)
		}
	}
}

func TestFrontend_DisabledByDefault(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter(&mockAnswers{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

func TestRecoverer(t *testing.T) {
	h := newTestRouter(panicAnswers{})
	rr, _ := postQuery(t, h, `{"question":"q"}`)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var errResp errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != codeInternalError {
		t.Errorf("unexpected code %q", errResp.Code)
	}
}

type panicAnswers struct{}

func (panicAnswers) Answer(context.Context, domain.Query) (domain.Answer, error) {
	panic("boom")
}

// unusedEmbedder fails the test if the provider is reached.
type unusedEmbedder struct{ t *testing.T }

func (u unusedEmbedder) Embed(context.Context, string) (domain.EmbeddingResult, error) {
	u.t.Error("embedder must not be called without an index")
	return domain.EmbeddingResult{}, errors.New("unexpected call")
}

type unusedGenerator struct{ t *testing.T }

func (u unusedGenerator) Complete(context.Context, domain.CompletionRequest) (domain.CompletionResult, error) {
	u.t.Error("generator must not be called without an index")
	return domain.CompletionResult{}, errors.New("unexpected call")
}

func TestQuery_EmptyCorpusEndToEnd(t *testing.T) {
	store := index.NewStore(filepath.Join(t.TempDir(), "vector_index"))
	svc := answeruc.New(store, unusedEmbedder{t}, unusedGenerator{t}, zap.NewNop())
	h := NewServer(svc, healthuc.New(store, nil), zap.NewNop()).Router()

	rr, resp := postQuery(t, h, `{"question":"When is the deadline?"}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if resp.Answer != msgIndexNotFound {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
}
