package http

import (
	"net/http"

	"github.com/pontaj-digital/pontaj-backend-go/internal/domain/report"
	"github.com/pontaj-digital/pontaj-backend-go/internal/handler/http/response"
)

type ReportHandler interface {
	// Per-worker and per-site rollup of one day
	GetActiveWorkers(w http.ResponseWriter, r *http.Request)

	// Aggregate of a date range with week comparison
	GetSummary(w http.ResponseWriter, r *http.Request)
}

type reportHandlerImpl struct {
	reportService report.ReportService
}

func NewReportHandler(reportService report.ReportService) ReportHandler {
	return &reportHandlerImpl{
		reportService: reportService,
	}
}

// GetActiveWorkers handles GET /admin/reports/active-workers
func (h *reportHandlerImpl) GetActiveWorkers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := report.ActiveWorkersRequest{
		Date: query.Get("date"),
	}
	if siteID := query.Get("site_id"); siteID != "" {
		req.SiteID = &siteID
	}

	result, err := h.reportService.ActiveWorkers(r.Context(), req)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.Success(w, result)
}

// GetSummary handles GET /admin/reports/summary
func (h *reportHandlerImpl) GetSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := report.SummaryRequest{
		From: query.Get("from"),
		To:   query.Get("to"),
	}

	result, err := h.reportService.Summary(r.Context(), req)
	if err != nil {
		response.HandleError(w, r, err)
		return
	}

	response.SuccessWithMessage(w, response.Localize(r, "report.generated", "Report generated"), result)
}
