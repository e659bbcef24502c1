package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"expenses/internal/core"
	"expenses/internal/ports"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

// Store keeps expenses as rows of a single sheet. Row 1 holds the header;
// IDs are assigned as one more than the highest ID already present.
type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string

	// serializes ID assignment within this process
	mu sync.Mutex
}

var (
	_ ports.Store  = (*Store)(nil)
	_ ports.Pinger = (*Store)(nil)
)

func New(ctx context.Context, cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string) *Store {
	if strings.TrimSpace(sheet) == "" {
		sheet = "Expenses"
	}
	return &Store{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}
}

// newSheetsService authenticates with service account credentials, inline
// JSON first, then a file, then GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (s *Store) dataRange() string {
	return fmt.Sprintf("%s!A:E", s.sheet)
}

// readAll fetches every data row below the header.
func (s *Store) readAll(ctx context.Context) ([]core.Expense, bool, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.dataRange()).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", s.dataRange(), err)
	}
	hasHeader := len(resp.Values) > 0 && isHeader(resp.Values[0])
	rows, err := parseRows(resp.Values)
	if err != nil {
		return nil, hasHeader, err
	}
	return rows, hasHeader, nil
}

func (s *Store) Create(ctx context.Context, in core.NewExpense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in = in.WithDefaults(time.Now())

	existing, hasHeader, err := s.readAll(ctx)
	if err != nil {
		return core.Expense{}, core.NewPersistenceError("create expense", err)
	}
	var maxID int64
	for _, e := range existing {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	out := in.Materialize(maxID + 1)

	values := [][]any{}
	if !hasHeader && len(existing) == 0 {
		values = append(values, headerRow())
	}
	values = append(values, formatRow(out))

	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.dataRange(), &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return core.Expense{}, core.NewPersistenceError("create expense", fmt.Errorf("append to %s: %w", s.sheet, err))
	}

	slog.DebugContext(ctx, "Expense appended to sheet", "id", out.ID, "sheet", s.sheet)
	return out, nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.Expense, error) {
	all, _, err := s.readAll(ctx)
	if err != nil {
		return nil, core.NewPersistenceError("list expenses", err)
	}
	return all, nil
}

// ListByMonth filters client side; Sheets has no query language over values.
func (s *Store) ListByMonth(ctx context.Context, year, month int) ([]core.Expense, error) {
	all, _, err := s.readAll(ctx)
	if err != nil {
		return nil, core.NewPersistenceError("list expenses by month", err)
	}
	out := []core.Expense{}
	for _, e := range all {
		if e.InMonth(year, month) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) SumAmounts(ctx context.Context) (float64, bool, error) {
	all, _, err := s.readAll(ctx)
	if err != nil {
		return 0, false, core.NewPersistenceError("sum amounts", err)
	}
	if len(all) == 0 {
		return 0, false, nil
	}
	var total float64
	for _, e := range all {
		total += e.Amount
	}
	return total, true, nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
	return core.NewPersistenceError("ping", err)
}
