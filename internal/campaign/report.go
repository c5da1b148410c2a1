package campaign

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/prestige-production/outreach/internal/source"
)

// Run outcomes.
const (
	OutcomeCompleted           = "completed"
	OutcomeCompletedWithErrors = "completed_with_errors"
	OutcomeNoClients           = "no_clients"
)

// Report is the machine-readable result of one campaign run.
type Report struct {
	RunID           string          `json:"run_id"`
	Campaign        string          `json:"campaign"`
	Outcome         string          `json:"outcome"`
	TotalClients    int             `json:"total_clients"`
	Processed       int             `json:"processed"`
	Approved        int             `json:"approved"`
	Rejected        int             `json:"rejected"`
	Errors          int             `json:"errors"`
	ClientResults   []*Result       `json:"client_results"` // completion order
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	DurationSeconds float64         `json:"duration_seconds"`
	Metadata        source.Metadata `json:"metadata"`
}

// Failed reports whether the run should exit with a failure status.
// Rejections and timeouts alone are not failures.
func (r *Report) Failed() bool {
	return r.Errors > 0
}

// Stats returns the counters as a Stats value.
func (r *Report) Stats() Stats {
	return Stats{
		Total:     r.TotalClients,
		Processed: r.Processed,
		Approved:  r.Approved,
		Rejected:  r.Rejected,
		Errors:    r.Errors,
	}
}

// WriteJSON writes the indented report document.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
