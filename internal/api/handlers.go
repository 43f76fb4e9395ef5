package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/securecheck/securecheck-cli/internal/catalogue"
	"github.com/securecheck/securecheck-cli/internal/export"
)

// ReportInfo describes one catalogue entry.
type ReportInfo struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Path string `json:"path"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string     `json:"status"`
	LastIngest *time.Time `json:"last_ingest"`
	Error      string     `json:"error,omitempty"`
}

var contentTypes = map[export.Format]string{
	export.FormatJSON:     "application/json",
	export.FormatYAML:     "application/yaml",
	export.FormatCSV:      "text/csv; charset=utf-8",
	export.FormatXLSX:     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	export.FormatTable:    "text/plain; charset=utf-8",
	export.FormatMarkdown: "text/markdown; charset=utf-8",
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: "database unreachable"})
		return
	}

	resp := HealthResponse{Status: "ok"}
	if s.runs != nil {
		last, err := s.runs.LastSuccess(r.Context())
		if err != nil {
			// no run log yet
			s.log.Debug("last ingest unknown", zap.Error(err))
		}
		resp.LastIngest = last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listReports(w http.ResponseWriter, _ *http.Request) {
	reports := s.cat.Reports()
	out := make([]ReportInfo, 0, len(reports))
	for _, rep := range reports {
		out = append(out, ReportInfo{
			Name: rep.Name,
			Slug: rep.Slug(),
			Path: "/api/v1/reports/" + rep.Slug(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) runReport(w http.ResponseWriter, r *http.Request) {
	format := export.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		f, err := export.ParseFormat(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		format = f
	}

	rep, err := s.cat.Lookup(chi.URLParam(r, "slug"))
	if err != nil {
		var unknown *catalogue.UnknownReportError
		if errors.As(err, &unknown) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "report lookup failed")
		return
	}

	res, err := s.cat.RunReport(r.Context(), rep)
	if err != nil {
		s.log.Error("report query failed", zap.String("report", rep.Name), zap.Error(err))
		writeError(w, http.StatusBadGateway, "report query failed: "+rep.Name)
		return
	}
	if res.Rows == nil {
		res.Rows = [][]any{}
	}

	if format == export.FormatJSON {
		writeJSON(w, http.StatusOK, res)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	if format.Binary() {
		w.Header().Set("Content-Disposition", `attachment; filename="`+res.Slug+`.xlsx"`)
	}
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, res); err != nil {
		s.log.Warn("write report response", zap.String("report", rep.Name), zap.Error(err))
	}
}

func (s *Server) overview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.cat.Overview(r.Context())
	if err != nil {
		s.log.Error("overview failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "overview query failed")
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
