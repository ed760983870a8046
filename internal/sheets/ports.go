package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// MonthStore persists whole month documents by "YYYY-MM" key. Missing
	// months are reported as core.ErrMonthNotFound.
	MonthStore interface {
		GetMonth(ctx context.Context, key string) (core.MonthRecord, error)
		SaveMonth(ctx context.Context, key string, rec core.MonthRecord) error
		GetAllMonths(ctx context.Context) ([]core.MonthRecord, error)
		DeleteMonth(ctx context.Context, key string) error
	}

	// MonthExporter mirrors a month into an external spreadsheet.
	MonthExporter interface {
		ExportMonth(ctx context.Context, rec core.MonthRecord, summary core.Summary) error
		DeleteMonth(ctx context.Context, key string) error
	}
)
