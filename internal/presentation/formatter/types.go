package formatter

import (
	"fmt"
	"time"

	"github.com/lzray/focustrace/internal/core/model"
)

// Report is the assembled productivity report handed to a formatter
type Report struct {
	GeneratedAt time.Time                 `json:"generatedAt"`
	Window      string                    `json:"window"`
	EventCount  int                       `json:"eventCount"`
	Metrics     model.ProductivityMetrics `json:"metrics"`
	Switches    []model.ContextSwitch     `json:"switches"`
}

// Formatter renders a report to stdout
type Formatter interface {
	Format(report Report) error
}

// NewFormatter creates a formatter for the given output format
func NewFormatter(format string) (Formatter, error) {
	switch format {
	case "table", "":
		return NewTableFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use table, json)", format)
	}
}
