package api

import (
	"net/http"
	"time"

	"github.com/nductrung-205/furniture-be/internal/models"
)

const reportDateLayout = "2006-01-02"

// revenueReportHandler builds a revenue report for an explicit date range.
// Query parameters: startDate, endDate (both 2006-01-02) and an optional
// reportType of DAY, WEEK, MONTH or YEAR (default MONTH).
func (s *Server) revenueReportHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	startDate, err := time.Parse(reportDateLayout, query.Get("startDate"))

	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid startDate, expected YYYY-MM-DD")
		return
	}

	endDate, err := time.Parse(reportDateLayout, query.Get("endDate"))

	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "Invalid endDate, expected YYYY-MM-DD")
		return
	}

	granularity := models.GranularityMonth

	if v := query.Get("reportType"); v != "" {
		granularity = models.Granularity(v)
	}

	report, err := s.reportService.GenerateReport(r.Context(), startDate, endDate, granularity)

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report})
}

// quickReportHandler builds a revenue report for a named period relative to
// now: TODAY, THIS_WEEK, THIS_MONTH, THIS_QUARTER or THIS_YEAR.
func (s *Server) quickReportHandler(w http.ResponseWriter, r *http.Request) {
	period := models.QuickPeriod(r.URL.Query().Get("period"))

	report, err := s.reportService.QuickReport(r.Context(), period, time.Now())

	if err != nil {
		s.respondWithAppError(w, err)
		return
	}

	s.respondWithJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report})
}
