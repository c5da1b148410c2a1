// Package source provides the client list used for a campaign run.
package source

import (
	"context"
	"time"

	"github.com/prestige-production/outreach/internal/client"
)

// Metadata describes the fetched sheet
type Metadata struct {
	TotalRows   int      `json:"total_rows"`   // All data rows in the sheet
	Contactable int      `json:"contactable"`  // Rows eligible for outreach
	Columns     []string `json:"columns"`      // Header row
}

// List is the result of one fetch
type List struct {
	Clients  []client.Client `json:"clients"`
	Metadata Metadata        `json:"metadata"`
}

// Source provides prospect records. A record is eligible when its
// last-contacted cell is empty or the column is absent.
type Source interface {
	// Fetch loads the sheet and returns the eligible clients.
	Fetch(ctx context.Context) (*List, error)

	// MarkContacted records the contact date for a client after a
	// successful send.
	MarkContacted(ctx context.Context, email string, at time.Time) error
}
