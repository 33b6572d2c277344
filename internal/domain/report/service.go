package report

import "context"

// ReportService defines the interface for supervisor reports
type ReportService interface {
	// ActiveWorkers rolls up one day per worker and per site
	ActiveWorkers(ctx context.Context, req ActiveWorkersRequest) (ActiveWorkersReport, error)

	// Summary aggregates a date range and compares this week with the last
	Summary(ctx context.Context, req SummaryRequest) (SummaryReport, error)
}
