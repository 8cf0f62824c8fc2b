// Package server exposes datasets, transforms and session control over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jwulff/sensorviz/internal/aggregate"
	"github.com/jwulff/sensorviz/internal/analysis"
	"github.com/jwulff/sensorviz/internal/cleaner"
	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/logging"
	"github.com/jwulff/sensorviz/internal/session"
	"github.com/jwulff/sensorviz/internal/storage"
	"github.com/jwulff/sensorviz/internal/table"
	"github.com/jwulff/sensorviz/internal/views"
)

// CurrentID addresses whichever dataset the session has loaded.
const CurrentID = "current"

// Request body limits.
const (
	maxUploadBytes  = 64 << 20
	maxPayloadBytes = 256 << 20
)

var logger = logging.Logger().With("component", "server")

// Analyzer answers free-form questions about a dataset.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string, data any) (string, error)
}

// Server routes API requests.
type Server struct {
	store    storage.Store
	session  *session.Session
	analyzer Analyzer
	loc      *time.Location
	mux      *http.ServeMux
}

// New creates a server. analyzer may be nil, which disables /api/analyze.
func New(store storage.Store, sess *session.Session, analyzer Analyzer, loc *time.Location) *Server {
	if loc == nil {
		loc = time.UTC
	}
	s := &Server{
		store:    store,
		session:  sess,
		analyzer: analyzer,
		loc:      loc,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	s.mux.HandleFunc("GET /api/datasets", s.handleListDatasets)
	s.mux.HandleFunc("POST /api/datasets/{id}/clean", s.handleStoreDataset)
	s.mux.HandleFunc("GET /api/datasets/{id}", s.handleGetDataset)
	s.mux.HandleFunc("GET /api/datasets/{id}/columns", s.handleColumns)
	s.mux.HandleFunc("GET /api/datasets/{id}/trend", s.handleTrend)
	s.mux.HandleFunc("GET /api/datasets/{id}/histogram", s.handleHistogram)
	s.mux.HandleFunc("GET /api/datasets/{id}/scatter", s.handleScatter)
	s.mux.HandleFunc("GET /api/datasets/{id}/table", s.handleTable)

	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)

	s.mux.HandleFunc("GET /api/session", s.handleSession)
	s.mux.HandleFunc("POST /api/mode", s.handleMode)
	s.mux.HandleFunc("POST /api/feed", s.handleFeed)
	s.mux.HandleFunc("POST /api/historical", s.handleHistorical)
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// HTTPServer wraps Handler in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", rec.status, "elapsed", time.Since(start))
	})
}

// writeJSON encodes v before committing the status so an encoding failure
// can still be reported as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		logger.Warn("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(map[string]string{"error": "failed to encode response"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logger.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case storage.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, session.ErrWrongMode):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidRange),
		errors.Is(err, dataset.ErrInvalidPayload),
		errors.Is(err, storage.ErrEmptyID),
		errors.Is(err, analysis.ErrEmptyPrompt):
		return http.StatusBadRequest
	case errors.Is(err, cleaner.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// lookup resolves a dataset id, including CurrentID.
func (s *Server) lookup(ctx context.Context, id string) (*dataset.Dataset, error) {
	if id == CurrentID && s.session != nil {
		return s.session.Current(ctx)
	}
	return s.store.GetDataset(ctx, id)
}

func (s *Server) loadDataset(w http.ResponseWriter, r *http.Request) (*dataset.Dataset, bool) {
	ds, err := s.lookup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return nil, false
	}
	return ds, true
}

func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListDatasets(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": list})
}

func (s *Server) handleStoreDataset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ds, err := decodeBody(r, s.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ds.ID = id
	if err := s.store.PutDataset(r.Context(), ds); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	logger.Info("dataset stored", "id", id, "rows", ds.Len())
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func decodeBody(r *http.Request, loc *time.Location) (*dataset.Dataset, error) {
	data, err := readAll(r, maxPayloadBytes)
	if err != nil {
		return nil, err
	}
	return dataset.Decode(data, loc)
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ds.Summarize())
}

func (s *Server) handleColumns(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, views.ColumnsOf(ds, s.loc))
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	g := aggregate.All
	if raw := q.Get("granularity"); raw != "" {
		var valid bool
		if g, valid = aggregate.ParseGranularity(raw); !valid {
			writeError(w, http.StatusBadRequest, errors.New("unknown granularity: "+raw))
			return
		}
	}
	writeJSON(w, http.StatusOK, views.TrendOf(ds, q.Get("column"), g, s.loc))
}

func (s *Server) handleHistogram(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, views.HistogramsOf(ds, q.Get("column"), q.Get("month"), s.loc))
}

func (s *Server) handleScatter(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if q.Get("x") == "" || q.Get("y") == "" {
		writeError(w, http.StatusBadRequest, errors.New("x and y are required"))
		return
	}
	writeJSON(w, http.StatusOK, views.ScatterOf(ds, q.Get("x"), q.Get("y")))
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	ds, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	size := table.DefaultPageSize
	if raw := q.Get("size"); raw != "" {
		parsed, valid := table.ParsePageSize(raw)
		if !valid {
			writeError(w, http.StatusBadRequest, errors.New("invalid page size: "+raw))
			return
		}
		size = parsed
	}
	state := table.NewState(size)
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, errors.New("invalid page: "+raw))
			return
		}
		state.Page = page
	}
	writeJSON(w, http.StatusOK, views.TableOf(ds, state, s.loc))
}
