package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/codewithboateng/cbcnorm/internal/cbc"
	"github.com/codewithboateng/cbcnorm/internal/jurisdiction"
	"github.com/codewithboateng/cbcnorm/internal/reporting"
	"github.com/codewithboateng/cbcnorm/internal/rules"
	"github.com/codewithboateng/cbcnorm/internal/storage"
)

// Store is the minimal contract the API needs.
type Store interface {
	ListRuns(limit, offset int) ([]storage.RunRow, error)
	LoadRun(id string) (cbc.Run, error)
	LoadLatestRun() (cbc.Run, error)
	ListDecisions(runID, method string) ([]cbc.Decision, error)
}

// UserStore is the auth/audit contract the API uses.
type UserStore interface {
	GetUserByUsername(string) (storage.User, string, error)
	CreateSession(int64, string, time.Time) error
	GetSession(string) (storage.User, error)
	DeleteSession(string) error
	LogAudit(username, action, resource string, meta map[string]any) error
}

// Server backs the operator console. The rule book is served read-only:
// rule edits happen through the CLI, never over HTTP.
type Server struct {
	DB              Store
	UserStore       UserStore
	Book            *rules.Book
	Index           *jurisdiction.Index
	Logger          *slog.Logger
	AllowedOrigins  []string
	SessionDuration time.Duration
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Health
	mux.HandleFunc("GET /api/v1/health", s.cors(s.handleHealth))

	// Auth
	mux.HandleFunc("POST /api/v1/auth/login", s.cors(s.handleLogin))
	mux.HandleFunc("POST /api/v1/auth/logout", s.cors(withAuth(s, s.handleLogout, "auth:logout")))
	mux.HandleFunc("GET /api/v1/me", s.cors(withAuth(s, s.handleMe, "me")))

	// Runs
	mux.HandleFunc("GET /api/v1/runs", s.cors(s.handleListRuns))
	mux.HandleFunc("GET /api/v1/runs/latest", s.cors(s.handleGetLatest))
	mux.HandleFunc("GET /api/v1/runs/{id}", s.cors(s.handleGetRun))
	mux.HandleFunc("GET /api/v1/runs/{id}/decisions", s.cors(s.handleListDecisions))

	// Rule book, read-only
	mux.HandleFunc("GET /api/v1/columns/standard", s.cors(s.handleStandardColumns))
	mux.HandleFunc("GET /api/v1/rules/justifications", s.cors(s.handleJustifications))
	mux.HandleFunc("POST /api/v1/resolve", s.cors(withAuth(s, s.handleResolve, "resolve")))

	// Fallback 404 (and CORS preflight)
	mux.HandleFunc("/", s.cors(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := clamp(parseInt(q.Get("limit"), 20), 1, 200)
	offset := parseInt(q.Get("offset"), 0)

	rows, err := s.DB.ListRuns(limit, offset)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": rows, "limit": limit, "offset": offset,
	})
}

func (s *Server) handleGetLatest(w http.ResponseWriter, r *http.Request) {
	run, err := s.DB.LoadLatestRun()
	if err != nil {
		s.err(w, http.StatusNotFound, "no runs")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := s.DB.LoadRun(id)
	if err != nil {
		s.err(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	method := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("method")))
	items, err := s.DB.ListDecisions(id, method)
	if err != nil {
		s.err(w, http.StatusInternalServerError, "db error: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": id, "method": method, "items": items,
	})
}

// GET /api/v1/columns/standard (no auth needed for read-only)
func (s *Server) handleStandardColumns(w http.ResponseWriter, r *http.Request) {
	cols := s.Book.StandardColumnNames()
	writeJSON(w, http.StatusOK, map[string]any{"items": cols, "count": len(cols)})
}

// GET /api/v1/rules/justifications streams the audit CSV.
func (s *Server) handleJustifications(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := reporting.WriteJustificationsCSV(&buf, s.Book); err != nil {
		s.err(w, http.StatusInternalServerError, "rule book: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="justifications.csv"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) err(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func clamp(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
