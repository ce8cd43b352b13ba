package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/KaramelBytes/dataqual-cli/internal/ai"
	"github.com/KaramelBytes/dataqual-cli/internal/analysis"
	"github.com/KaramelBytes/dataqual-cli/internal/history"
	"github.com/KaramelBytes/dataqual-cli/internal/ingest"
	"github.com/KaramelBytes/dataqual-cli/internal/suggest"
)

// AnalyzeResponse is returned by POST /api/analyze.
type AnalyzeResponse struct {
	FileName string           `json:"fileName"`
	Analysis *analysis.Report `json:"analysis"`
	Sample   []map[string]any `json:"sample"`
	Entry    *history.Entry   `json:"historyEntry,omitempty"`
}

// InsightsRequest is the body of POST /api/insights.
type InsightsRequest struct {
	Analysis *analysis.Report `json:"analysis"`
	Sample   []map[string]any `json:"sample"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
	Trend   *history.Trend  `json:"trend"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts a multipart upload in field "file", or a JSON body
// of rows (an array, or an object with "data"/"rows" and an optional
// "fileName"). Pass ?history=false to skip recording.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opt.MaxUploadBytes)

	name, ds, err := s.readDataset(r)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	rep, err := analysis.AnalyzeWithPolicy(ds, s.opt.Policy)
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	resp := AnalyzeResponse{
		FileName: name,
		Analysis: rep,
		Sample:   ingest.Sample(ds, s.opt.SampleRows),
	}
	if r.URL.Query().Get("history") != "false" {
		e, err := s.opt.History.Record(name, rep)
		if err != nil {
			// history is best effort
			s.log.WithError(err).Warn("record history")
		} else {
			resp.Entry = &e
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) readDataset(r *http.Request) (string, *analysis.Dataset, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, fmt.Errorf("read upload: %w", err)
		}
		defer file.Close()
		ds, err := ingest.Read(header.Filename, file, s.opt.Ingest)
		return header.Filename, ds, err
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read body: %w", err)
	}
	name := gjson.GetBytes(body, "fileName").String()
	if name == "" {
		name = "upload.json"
	}
	ds, err := ingest.ParseJSONRows(body, s.opt.Ingest)
	if err != nil {
		return "", nil, err
	}
	return name, ds, nil
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		w.Header().Set("Retry-After", "60")
		s.writeError(w, http.StatusTooManyRequests, errors.New("insight rate limit exceeded"))
		return
	}
	var req InsightsRequest
	if err := decodeBody(w, r, s.opt.MaxUploadBytes, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Analysis == nil {
		s.writeError(w, http.StatusBadRequest, errors.New("analysis is required"))
		return
	}
	res := s.opt.Insighter.Generate(r.Context(), req.Analysis, req.Sample)
	if res.Unavailable() {
		s.log.WithError(res.Err).Warn("insights unavailable")
		if d, ok := ai.RetryAfter(res.Err); ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(d.Seconds())))
		}
		writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var rep analysis.Report
	if err := decodeBody(w, r, s.opt.MaxUploadBytes, &rep); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	table := r.URL.Query().Get("table")
	if table == "" {
		table = s.opt.DefaultTable
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggest.Generate(&rep, table)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.opt.History.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Entries: entries, Trend: history.ComputeTrend(entries)})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.opt.History.Clear(); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, ingest.ErrTooManyRows):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, analysis.ErrEmptyDataset):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ingest.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	}
	return http.StatusBadRequest
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.WithError(err).Error("request error")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
