package source

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clients.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write sheet: %v", err)
	}
	return path
}

func TestFetchFiltersContacted(t *testing.T) {
	path := writeSheet(t, `Name,Email,Company,Last Contacted
Alice,alice@x.com,Acme,
Bob,bob@x.com,Globex,2026-01-15
Carol,carol@x.com,Initech,
`)
	src := NewCSVSource(path, "Last Contacted", testLogger())

	list, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if list.Metadata.TotalRows != 3 {
		t.Errorf("expected 3 total rows, got %d", list.Metadata.TotalRows)
	}
	if len(list.Clients) != 2 || list.Metadata.Contactable != 2 {
		t.Fatalf("expected 2 eligible clients, got %d (contactable %d)", len(list.Clients), list.Metadata.Contactable)
	}
	if list.Clients[0].Email != "alice@x.com" || list.Clients[1].Email != "carol@x.com" {
		t.Errorf("unexpected eligible clients: %s, %s", list.Clients[0].Email, list.Clients[1].Email)
	}
	if list.Clients[0].Company != "Acme" {
		t.Errorf("expected company Acme, got %q", list.Clients[0].Company)
	}
}

func TestFetchMissingLastContactedColumn(t *testing.T) {
	path := writeSheet(t, `Name,Email
Alice,alice@x.com
Bob,bob@x.com
`)
	src := NewCSVSource(path, "Last Contacted", testLogger())

	list, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(list.Clients) != 2 {
		t.Errorf("without the column every row is eligible, got %d", len(list.Clients))
	}
}

func TestFetchExtraColumnsLandInAttrs(t *testing.T) {
	path := writeSheet(t, `Name,Email,Website,Notes
Alice,alice@x.com,https://acme.example,VIP
`)
	src := NewCSVSource(path, "Last Contacted", testLogger())

	list, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(list.Clients) != 1 {
		t.Fatalf("expected one client, got %d", len(list.Clients))
	}

	attrs := list.Clients[0].Attrs
	if attrs["Website"] != "https://acme.example" || attrs["Notes"] != "VIP" {
		t.Errorf("unexpected attrs: %v", attrs)
	}
}

func TestFetchSkipsRowsWithBadEmail(t *testing.T) {
	path := writeSheet(t, `Name,Email
Alice,alice@x.com
NoEmail,
BadEmail,not-an-address
`)
	src := NewCSVSource(path, "Last Contacted", testLogger())

	list, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(list.Clients) != 1 || list.Clients[0].Email != "alice@x.com" {
		t.Errorf("rows without a usable email must be skipped, got %+v", list.Clients)
	}
}

func TestFetchRequiresEmailColumn(t *testing.T) {
	path := writeSheet(t, `Name,Company
Alice,Acme
`)
	src := NewCSVSource(path, "Last Contacted", testLogger())

	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error for a sheet without an Email column")
	}
}

func TestFetchEmptySheet(t *testing.T) {
	path := writeSheet(t, "")
	src := NewCSVSource(path, "Last Contacted", testLogger())

	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected an error for an empty sheet")
	}
}

func TestMarkContacted(t *testing.T) {
	path := writeSheet(t, `Name,Email,Last Contacted
Alice,alice@x.com,
Bob,bob@x.com,
`)
	src := NewCSVSource(path, "Last Contacted", testLogger())

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := src.MarkContacted(context.Background(), "alice@x.com", at); err != nil {
		t.Fatalf("MarkContacted failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read sheet back: %v", err)
	}
	if !strings.Contains(string(data), "alice@x.com,2026-08-30") {
		t.Errorf("contact date not written:\n%s", data)
	}

	// A fresh fetch must no longer return the contacted client.
	list, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(list.Clients) != 1 || list.Clients[0].Email != "bob@x.com" {
		t.Errorf("contacted client must become ineligible, got %+v", list.Clients)
	}
}

func TestMarkContactedAppendsMissingColumn(t *testing.T) {
	path := writeSheet(t, `Name,Email
Alice,alice@x.com
`)
	src := NewCSVSource(path, "Last Contacted", testLogger())

	if err := src.MarkContacted(context.Background(), "alice@x.com", time.Now()); err != nil {
		t.Fatalf("MarkContacted failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read sheet back: %v", err)
	}
	if !strings.Contains(string(data), "Last Contacted") {
		t.Errorf("expected the column to be appended:\n%s", data)
	}
}

func TestMarkContactedUnknownClient(t *testing.T) {
	path := writeSheet(t, `Name,Email
Alice,alice@x.com
`)
	src := NewCSVSource(path, "Last Contacted", testLogger())

	if err := src.MarkContacted(context.Background(), "ghost@x.com", time.Now()); err == nil {
		t.Fatal("expected an error for an unknown client")
	}
}

func TestMarkContactedMatchesEmailCaseInsensitive(t *testing.T) {
	path := writeSheet(t, `Name,Email,Last Contacted
Alice,Alice@X.com,
`)
	src := NewCSVSource(path, "Last Contacted", testLogger())

	if err := src.MarkContacted(context.Background(), "alice@x.com", time.Now()); err != nil {
		t.Fatalf("MarkContacted failed: %v", err)
	}
}
