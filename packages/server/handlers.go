package server

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/abdul-hamid-achik/hitboard/packages/export/metrics"
	"github.com/abdul-hamid-achik/hitboard/packages/history"
	"github.com/abdul-hamid-achik/hitboard/packages/report"
)

type errorResponse struct {
	Error string `json:"error"`
}

// RunResponse is the body of a successful POST /run-tests
type RunResponse struct {
	Message   string `json:"message"`
	ReportURL string `json:"reportUrl"`
	Passed    int    `json:"passed"`
	Failed    int    `json:"failed"`
	Total     int    `json:"total"`
	Warning   string `json:"warning,omitempty"`
}

// RunTests runs the collection once and responds after the run is recorded
func (s *Server) RunTests(c echo.Context) error {
	out, err := s.runner.Run(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	resp := RunResponse{
		Message:   "Test complete!",
		ReportURL: out.Record.ReportURL,
		Passed:    out.Record.Passed,
		Failed:    out.Record.Failed,
		Total:     out.Record.Total,
	}
	if out.PersistErr != nil {
		resp.Warning = "Run completed but could not be saved to history: " + out.PersistErr.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// GetReports lists report names, newest first
func (s *Server) GetReports(c echo.Context) error {
	names, err := report.List(s.reportsDir)
	if err != nil {
		s.logger.Error("failed to list reports", "dir", s.reportsDir, "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to read reports folder"})
	}
	return c.JSON(http.StatusOK, names)
}

// GetRunHistory returns the ledger, newest first
func (s *Server) GetRunHistory(c echo.Context) error {
	records, err := s.ledger.Load(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to load run history", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to read run history"})
	}
	return c.JSON(http.StatusOK, records)
}

// GetRunStats returns aggregate statistics over the ledger
func (s *Server) GetRunStats(c echo.Context) error {
	records, err := s.ledger.Load(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to load run history", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to read run history"})
	}
	return c.JSON(http.StatusOK, history.Summarize(records))
}

// Metrics exposes ledger statistics in the Prometheus text format
func (s *Server) Metrics(c echo.Context) error {
	records, err := s.ledger.Load(c.Request().Context())
	if err != nil {
		s.logger.Error("failed to load run history", "error", err)
		return c.String(http.StatusInternalServerError, "failed to read run history\n")
	}

	var buf bytes.Buffer
	if err := s.metrics.Export(&buf, history.Summarize(records)); err != nil {
		return err
	}
	return c.Blob(http.StatusOK, metrics.ContentType, buf.Bytes())
}

// Health returns health status
func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
