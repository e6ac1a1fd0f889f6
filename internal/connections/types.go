package connections

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/teemow/sheetmailer/internal/google"
)

// Status of a connection.
type Status string

const (
	StatusInitiated Status = "INITIATED"
	StatusActive    Status = "ACTIVE"
	StatusFailed    Status = "FAILED"
	StatusExpired   Status = "EXPIRED"
)

// DefaultUserID is the single local user all connections belong to.
const DefaultUserID = "default_user"

// Default auth config IDs, one per toolkit.
const (
	AuthConfigSheets = "googlesheets"
	AuthConfigGmail  = "gmail"
)

var (
	// ErrNotFound is returned for unknown connection or auth config IDs.
	ErrNotFound = errors.New("connection not found")
	// ErrAuthTimeout is returned when the user does not finish the consent flow in time.
	ErrAuthTimeout = errors.New("timed out waiting for authorization")
	// ErrAlreadyConnected is returned by Initiate when an ACTIVE connection
	// exists for the auth config and multiple connections were not requested.
	ErrAlreadyConnected = errors.New("an active connection already exists for this auth config")
	// ErrNotActive is returned when a token is requested for a connection that is not ACTIVE.
	ErrNotActive = errors.New("connection is not active")
)

// Connection is the persisted record of one OAuth connection.
type Connection struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AuthConfigID string    `json:"auth_config_id"`
	Toolkit      string    `json:"toolkit"`
	Status       Status    `json:"status"`
	AccountEmail string    `json:"account_email,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	AuthConfigID string
	Toolkit      string
	Statuses     []Status
}

func (f Filter) matches(c Connection) bool {
	if f.AuthConfigID != "" && c.AuthConfigID != f.AuthConfigID {
		return false
	}
	if f.Toolkit != "" && c.Toolkit != f.Toolkit {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, c.Status) {
		return false
	}
	return true
}

// InitiateOptions tune Initiate.
type InitiateOptions struct {
	// AllowMultiple creates a new connection even when one is already ACTIVE.
	AllowMultiple bool
}

// Request is the result of Initiate.
type Request struct {
	ID          string
	RedirectURL string
}

// AuthConfig binds an auth config ID to a toolkit and its scopes.
type AuthConfig struct {
	ID      string
	Toolkit string
	Scopes  []string
}

// DefaultAuthConfigs returns the Sheets and Gmail auth configs.
// GOOGLE_SHEETS_AUTH_CONFIG_ID and GOOGLE_MAIL_AUTH_CONFIG_ID rename them.
func DefaultAuthConfigs() []AuthConfig {
	sheetsID := AuthConfigSheets
	if v := os.Getenv("GOOGLE_SHEETS_AUTH_CONFIG_ID"); v != "" {
		sheetsID = v
	}
	gmailID := AuthConfigGmail
	if v := os.Getenv("GOOGLE_MAIL_AUTH_CONFIG_ID"); v != "" {
		gmailID = v
	}
	return []AuthConfig{
		{ID: sheetsID, Toolkit: google.ToolkitSheets, Scopes: google.ScopesForToolkit(google.ToolkitSheets)},
		{ID: gmailID, Toolkit: google.ToolkitGmail, Scopes: google.ScopesForToolkit(google.ToolkitGmail)},
	}
}

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID checks that an ID is safe to use in file names.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if len(id) > 100 {
		return fmt.Errorf("id too long (max 100 characters)")
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid id %q: only alphanumeric characters, hyphens and underscores are allowed", id)
	}
	return nil
}
