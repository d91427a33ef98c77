package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/foxseedlab/auditbot/internal/audit"
	"github.com/foxseedlab/auditbot/internal/repository"
	"github.com/go-chi/chi/v5"
)

const (
	xlsxExtension     = ".xlsx"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

type AuditLister interface {
	ListAudits(ctx context.Context) ([]repository.Audit, error)
	Active() (repository.Audit, bool)
}

type Server struct {
	addr      string
	exportDir string
	authToken string
	audits    AuditLister
	srv       *http.Server
}

func NewServer(addr, exportDir, authToken string, audits AuditLister) *Server {
	s := &Server{addr: addr, exportDir: exportDir, authToken: authToken, audits: audits}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Router mounts the audit data routes only when an auth token is configured.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	if s.authToken == "" {
		return r
	}
	r.Group(func(r chi.Router) {
		r.Use(s.requireBearerToken)
		r.Get("/audits", s.handleListAudits)
		r.Get("/exports/{filename}", s.handleExport)
	})
	return r
}

func (s *Server) requireBearerToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			slog.Warn("http request rejected; bad or missing bearer token", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves in the background until Shutdown. An empty address disables the server.
func (s *Server) Start() {
	if s.addr == "" {
		slog.Info("http server disabled")
		return
	}
	if s.authToken == "" {
		slog.Warn("HTTP_AUTH_TOKEN is empty; only /healthz is served")
	}
	go func() {
		slog.Info("http server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err, "addr", s.addr)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) {
	if s.addr == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	ActiveAudit string `json:"active_audit,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok"}
	if a, ok := s.audits.Active(); ok {
		resp.ActiveAudit = a.TableName
	}
	writeJSON(w, http.StatusOK, resp)
}

type auditResponse struct {
	ID              string     `json:"id"`
	TableName       string     `json:"table_name"`
	Prompt          string     `json:"prompt"`
	ReminderSeconds int64      `json:"reminder_seconds"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
}

func (s *Server) handleListAudits(w http.ResponseWriter, r *http.Request) {
	audits, err := s.audits.ListAudits(r.Context())
	if err != nil {
		slog.Error("failed to list audits over http", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	out := make([]auditResponse, 0, len(audits))
	for _, a := range audits {
		out = append(out, auditResponse{
			ID:              a.ID,
			TableName:       a.TableName,
			Prompt:          a.Prompt,
			ReminderSeconds: a.ReminderSeconds,
			IsActive:        a.IsActive,
			CreatedAt:       a.CreatedAt,
			ClosedAt:        a.ClosedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	table, ok := strings.CutSuffix(filename, xlsxExtension)
	if !ok || !audit.ValidTableName(table) {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.exportDir, filename)
	f, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Error("failed to open export", "error", err, "path", path)
		}
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode http response", "error", err)
	}
}
