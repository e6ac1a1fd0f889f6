package workflow

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/teemow/sheetmailer/internal/orders"
)

// Environment variables read by SettingsFromEnv.
const (
	EnvSpreadsheetID = "SPREADSHEET_ID"
	EnvEmailTo       = "EMAIL_TO"
	EnvQueryTimeout  = "QUERY_TIMEOUT"
)

// DefaultQueryTimeout bounds a single query.
const DefaultQueryTimeout = 5 * time.Minute

// SubjectQueryRunes is how much of the question goes into the email subject.
const SubjectQueryRunes = 50

var (
	ErrMissingSpreadsheetID = errors.New("spreadsheet ID is required (set SPREADSHEET_ID)")
	ErrMissingRecipient     = errors.New("email recipient is required (set EMAIL_TO)")
)

// Settings describes the sheet being queried and where answers go.
type Settings struct {
	SpreadsheetID string
	SheetName     string
	Columns       []string
	EmailTo       string
	QueryTimeout  time.Duration
}

// SettingsFromEnv reads settings from the environment, defaulting the sheet
// layout to the seeded orders sheet.
func SettingsFromEnv() (Settings, error) {
	s := Settings{
		SpreadsheetID: strings.TrimSpace(os.Getenv(EnvSpreadsheetID)),
		EmailTo:       strings.TrimSpace(os.Getenv(EnvEmailTo)),
		QueryTimeout:  DefaultQueryTimeout,
	}
	if raw := strings.TrimSpace(os.Getenv(EnvQueryTimeout)); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return s, fmt.Errorf("invalid %s %q: %w", EnvQueryTimeout, raw, err)
		}
		s.QueryTimeout = d
	}
	return s.withDefaults(), nil
}

func (s Settings) withDefaults() Settings {
	if s.SheetName == "" {
		s.SheetName = orders.SheetName
	}
	if len(s.Columns) == 0 {
		s.Columns = append([]string(nil), orders.Headers...)
	}
	if s.QueryTimeout <= 0 {
		s.QueryTimeout = DefaultQueryTimeout
	}
	return s
}

// Validate reports missing required settings.
func (s Settings) Validate() error {
	var errs []error
	if s.SpreadsheetID == "" {
		errs = append(errs, ErrMissingSpreadsheetID)
	}
	if s.EmailTo == "" {
		errs = append(errs, ErrMissingRecipient)
	}
	return errors.Join(errs...)
}
