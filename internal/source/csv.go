package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prestige-production/outreach/internal/client"
)

// Well-known column headers. Any other column is carried through in Attrs.
const (
	columnName    = "Name"
	columnEmail   = "Email"
	columnCompany = "Company"
)

// CSVSource reads the client sheet from a local CSV file and writes the
// contact date back into it.
type CSVSource struct {
	path          string
	lastContacted string
	logger        *slog.Logger

	mu sync.Mutex // guards file rewrites from concurrent workers
}

// NewCSVSource creates a source backed by a CSV file with a header row.
func NewCSVSource(path, lastContactedColumn string, logger *slog.Logger) *CSVSource {
	if lastContactedColumn == "" {
		lastContactedColumn = "Last Contacted"
	}
	return &CSVSource{
		path:          path,
		lastContacted: lastContactedColumn,
		logger:        logger,
	}
}

// Fetch loads the sheet and returns clients whose last-contacted cell is
// empty. Rows without an email address are skipped with a warning.
func (s *CSVSource) Fetch(ctx context.Context) (*List, error) {
	header, rows, err := s.read()
	if err != nil {
		return nil, err
	}

	idx := indexColumns(header)
	if _, ok := idx[columnEmail]; !ok {
		return nil, fmt.Errorf("sheet has no %q column", columnEmail)
	}

	lcCol, hasLC := idx[s.lastContacted]
	if !hasLC {
		s.logger.Warn("last-contacted column not found, all rows considered eligible", "column", s.lastContacted)
	}

	list := &List{
		Metadata: Metadata{
			TotalRows: len(rows),
			Columns:   header,
		},
	}

	for _, row := range rows {
		if hasLC && strings.TrimSpace(cell(row, lcCol)) != "" {
			continue
		}

		c := client.Client{
			Name:    cell(row, column(idx, columnName)),
			Email:   cell(row, column(idx, columnEmail)),
			Company: cell(row, column(idx, columnCompany)),
		}
		for col, i := range idx {
			switch col {
			case columnName, columnEmail, columnCompany:
				continue
			}
			if v := cell(row, i); v != "" {
				if c.Attrs == nil {
					c.Attrs = make(map[string]string)
				}
				c.Attrs[col] = v
			}
		}

		if err := c.Validate(); err != nil {
			s.logger.Warn("skipping row with unusable email", "name", c.Name, "email", c.Email, "error", err)
			continue
		}

		list.Clients = append(list.Clients, c)
	}

	list.Metadata.Contactable = len(list.Clients)
	return list, nil
}

// MarkContacted writes the contact date into the client's last-contacted
// cell. The whole file is rewritten under a lock since workers finish
// concurrently.
func (s *CSVSource) MarkContacted(ctx context.Context, email string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header, rows, err := s.read()
	if err != nil {
		return err
	}

	idx := indexColumns(header)
	emailCol, ok := idx[columnEmail]
	if !ok {
		return fmt.Errorf("sheet has no %q column", columnEmail)
	}

	lcCol, ok := idx[s.lastContacted]
	if !ok {
		// Append the column so the date has somewhere to live.
		header = append(header, s.lastContacted)
		lcCol = len(header) - 1
	}

	found := false
	for i, row := range rows {
		if !strings.EqualFold(strings.TrimSpace(cell(row, emailCol)), strings.TrimSpace(email)) {
			continue
		}
		for len(row) <= lcCol {
			row = append(row, "")
		}
		row[lcCol] = at.Format("2006-01-02")
		rows[i] = row
		found = true
	}
	if !found {
		return fmt.Errorf("client %s not found in sheet", email)
	}

	return s.write(header, rows)
}

func (s *CSVSource) read() (header []string, rows [][]string, err error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open sheet: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // sheets exported by hand often have ragged rows

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("sheet is empty")
	}
	return records[0], records[1:], nil
}

func (s *CSVSource) write(header []string, rows [][]string) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temp sheet: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write sheet header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("failed to write sheet row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close sheet: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace sheet: %w", err)
	}
	return nil
}

func indexColumns(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(col)] = i
	}
	return idx
}

func column(idx map[string]int, name string) int {
	if i, ok := idx[name]; ok {
		return i
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
