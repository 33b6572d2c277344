package report

import (
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/aggregate"
	"github.com/pontaj-digital/pontaj-backend-go/internal/pkg/validator"
)

// MaxRangeDays bounds the summary report period.
const MaxRangeDays = 93

// ========================================
// ACTIVE WORKERS REPORT
// ========================================

type ActiveWorkersRequest struct {
	// Date is YYYY-MM-DD; empty means today
	Date   string  `json:"date"`
	SiteID *string `json:"site_id"`
}

func (r *ActiveWorkersRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Date != "" {
		if _, ok := validator.IsValidDate(r.Date); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "date",
				Message: "date must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ActiveWorkersReport struct {
	Date        string                   `json:"date"`
	GeneratedAt string                   `json:"generated_at"`
	Workers     []aggregate.WorkerRollup `json:"workers"`
	Sites       []aggregate.SiteRollup   `json:"sites"`
	Summary     aggregate.Summary        `json:"summary"`
}

// ========================================
// SUMMARY REPORT
// ========================================

type SummaryRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (r *SummaryRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.From == "" {
		errs = append(errs, validator.ValidationError{
			Field:   "from",
			Message: "from is required",
		})
	}
	if r.To == "" {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to is required",
		})
	}

	if r.From != "" && r.To != "" {
		from, okFrom := validator.IsValidDate(r.From)
		if !okFrom {
			errs = append(errs, validator.ValidationError{
				Field:   "from",
				Message: "from must be in YYYY-MM-DD format",
			})
		}
		to, okTo := validator.IsValidDate(r.To)
		if !okTo {
			errs = append(errs, validator.ValidationError{
				Field:   "to",
				Message: "to must be in YYYY-MM-DD format",
			})
		}

		if okFrom && okTo {
			if from.After(to) {
				errs = append(errs, validator.ValidationError{
					Field:   "to",
					Message: "to must not be before from",
				})
			} else if to.Sub(from).Hours()/24 >= MaxRangeDays {
				errs = append(errs, validator.ValidationError{
					Field:   "to",
					Message: "range must not exceed " + validator.Itoa(MaxRangeDays) + " days",
				})
			}
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SummaryReport struct {
	From           string                   `json:"from"`
	To             string                   `json:"to"`
	GeneratedAt    string                   `json:"generated_at"`
	ByWorker       []aggregate.WorkerRollup `json:"by_worker"`
	BySite         []aggregate.SiteRollup   `json:"by_site"`
	ByDay          []aggregate.DayRollup    `json:"by_day"`
	Summary        aggregate.Summary        `json:"summary"`
	TopPerformers  []aggregate.WorkerRollup `json:"top_performers"`
	WeekComparison aggregate.WeekComparison `json:"week_comparison"`
}
