package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Attribute keys shared by every package that logs.
const (
	KeyOperation  = "operation"
	KeyService    = "service"
	KeyConnection = "connection"
	KeyUserHash   = "user_hash"
	KeyDuration   = "duration"
	KeyStatus     = "status"
	KeyError      = "error"
	KeyTool       = "tool"
	KeyProvider   = "provider"
	KeyIteration  = "iteration"
	KeyState      = "state"
)

// Status values. Duplicated in instrumentation, which imports this package.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Options selects the handler built by New.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "text" or "json". Empty means text.
	Format string
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// WithConnection returns a logger with the connection attribute set.
func WithConnection(logger *slog.Logger, connectionID string) *slog.Logger {
	return logger.With(slog.String(KeyConnection, connectionID))
}

func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

func Service(svc string) slog.Attr {
	return slog.String(KeyService, svc)
}

func Connection(connectionID string) slog.Attr {
	return slog.String(KeyConnection, connectionID)
}

func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

func Provider(provider string) slog.Attr {
	return slog.String(KeyProvider, provider)
}

func Iteration(n int) slog.Attr {
	return slog.Int(KeyIteration, n)
}

func State(state string) slog.Attr {
	return slog.String(KeyState, state)
}

func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns an error attribute, or an empty group (omitted by slog) when err is nil.
//
//	logger.Info("operation", logging.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed form of an email so log lines can be
// correlated without exposing the address.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns the anonymized email as an attribute.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken reports only the token length.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}

// Truncate shortens s to at most n runes, appending "..." when cut.
// Used to keep prompts and tool outputs readable in debug logs.
func Truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// ExtractDomain returns the domain part of an email address.
func ExtractDomain(email string) string {
	if email == "" {
		return ""
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// Domain returns the email domain as a low-cardinality attribute.
func Domain(email string) slog.Attr {
	return slog.String("user_domain", ExtractDomain(email))
}
