package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/session"
)

func readAll(r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return data, nil
}

func decodeJSON(r *http.Request, v any) error {
	data, err := readAll(r, 1<<20)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}
	return nil
}

type sessionState struct {
	Mode        session.Mode `json:"mode"`
	FeedRunning bool         `json:"feed_running"`
	DatasetID   string       `json:"dataset_id,omitempty"`
}

func (s *Server) state() sessionState {
	return sessionState{
		Mode:        s.session.Mode(),
		FeedRunning: s.session.FeedRunning(),
		DatasetID:   s.session.CurrentID(),
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, ok := session.ParseMode(req.Mode)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown mode: %q", req.Mode))
		return
	}
	if err := s.session.SetMode(r.Context(), m); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Running *bool `json:"running"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Running == nil {
		writeError(w, http.StatusBadRequest, errors.New("running is required"))
		return
	}
	if err := s.session.SetFeedRunning(r.Context(), *req.Running); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	start, ok := dataset.ParseTime(req.Start, s.loc)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid start: %q", req.Start))
		return
	}
	end, ok := dataset.ParseTime(req.End, s.loc)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid end: %q", req.End))
		return
	}
	ds, err := s.session.Backfill(r.Context(), start, end)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse upload: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("file is required: %w", err))
		return
	}
	defer file.Close()

	ds, err := s.session.Upload(r.Context(), header.Filename, file)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if s.analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("analysis is not configured"))
		return
	}
	var req struct {
		Prompt  string          `json:"prompt"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var data any = req.Payload
	if len(req.Payload) == 0 {
		// Without an explicit payload the loaded dataset's summary is the context.
		data = nil
		if ds, err := s.session.Current(r.Context()); err == nil {
			data = ds.Summarize()
		}
	}
	text, err := s.analyzer.Analyze(r.Context(), req.Prompt, data)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
