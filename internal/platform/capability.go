package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/teemow/sheetmailer/internal/agent"
	"github.com/teemow/sheetmailer/internal/tools/batch"
)

// Capability is something the workflow needs a tool for.
type Capability string

const (
	ReadSpreadsheet Capability = "read_spreadsheet"
	SendEmail       Capability = "send_email"
)

// Environment variables overriding the tool names of a capability.
const (
	EnvToolsReadSpreadsheet = "TOOLS_READ_SPREADSHEET"
	EnvToolsSendEmail       = "TOOLS_SEND_EMAIL"
)

// ErrCapabilityUnresolved is returned when no offered tool serves a
// capability.
var ErrCapabilityUnresolved = errors.New("capability unresolved")

// Mapping lists the tool names that serve each capability.
type Mapping map[Capability][]string

// DefaultMapping matches the built-in tool server.
func DefaultMapping() Mapping {
	return Mapping{
		ReadSpreadsheet: {"sheets_get_values", "sheets_batch_get_values", "sheets_get_metadata"},
		SendEmail:       {"gmail_send_email"},
	}
}

// MappingFromEnv returns base with capabilities overridden by the
// comma-separated TOOLS_* variables that are set. A variable that is set but
// names no tool is an error.
func MappingFromEnv(base Mapping) (Mapping, error) {
	out := make(Mapping, len(base))
	for capability, names := range base {
		out[capability] = append([]string(nil), names...)
	}
	overrides := []struct {
		capability Capability
		env        string
	}{
		{ReadSpreadsheet, EnvToolsReadSpreadsheet},
		{SendEmail, EnvToolsSendEmail},
	}
	var errs []error
	for _, o := range overrides {
		raw, ok := os.LookupEnv(o.env)
		if !ok || raw == "" {
			continue
		}
		names, err := batch.ParseList(raw, o.env)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid tool mapping: %w", err))
			continue
		}
		out[o.capability] = names
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// SelectOptions controls Select.
type SelectOptions struct {
	Mapping Mapping

	// AllowBroadMailFallback grants every mail tool when SendEmail cannot be
	// resolved otherwise.
	AllowBroadMailFallback bool

	Logger *slog.Logger
}

// Select returns the offered tools serving capabilities, in offered order.
//
// Explicitly mapped names win. When none of them is offered the name
// heuristic runs and a warning is logged; for SendEmail it takes only the
// first matching tool. A capability that still has no tool
// fails with ErrCapabilityUnresolved.
func Select(offered []agent.ToolSpec, capabilities []Capability, opts SelectOptions) ([]agent.ToolSpec, error) {
	mapping := opts.Mapping
	if mapping == nil {
		mapping = DefaultMapping()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	byName := make(map[string]bool, len(offered))
	for _, tool := range offered {
		byName[tool.Name] = true
	}

	chosen := make(map[string]bool)
	for _, capability := range capabilities {
		names := resolve(offered, byName, capability, mapping[capability], opts.AllowBroadMailFallback, logger)
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: no tool offered for %s", ErrCapabilityUnresolved, capability)
		}
		for _, name := range names {
			chosen[name] = true
		}
	}

	selected := make([]agent.ToolSpec, 0, len(chosen))
	for _, tool := range offered {
		if chosen[tool.Name] {
			selected = append(selected, tool)
		}
	}
	return selected, nil
}

func resolve(offered []agent.ToolSpec, byName map[string]bool, capability Capability, explicit []string, broad bool, logger *slog.Logger) []string {
	var names []string
	for _, name := range explicit {
		if byName[name] {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		return names
	}

	for _, tool := range offered {
		if matchesHeuristic(capability, tool.Name) {
			names = append(names, tool.Name)
			// A guessed send tool is never granted alongside another one.
			if capability == SendEmail {
				break
			}
		}
	}
	if len(names) > 0 {
		logger.Warn("capability resolved by name heuristic",
			slog.String("capability", string(capability)),
			slog.Any("mapped", explicit),
			slog.Any("tools", names))
		return names
	}

	if capability != SendEmail || !broad {
		return nil
	}
	for _, tool := range offered {
		if isMailTool(tool.Name) {
			logger.Warn("broad mail fallback granted tool",
				slog.String("capability", string(capability)),
				slog.String("tool", tool.Name))
			names = append(names, tool.Name)
		}
	}
	return names
}

// matchesHeuristic reports whether a tool name looks like it serves
// capability.
func matchesHeuristic(capability Capability, name string) bool {
	upper := strings.ToUpper(name)
	has := func(s string) bool { return strings.Contains(upper, s) }
	switch capability {
	case ReadSpreadsheet:
		return has("SHEET") && (has("BATCH_GET") || has("GET"))
	case SendEmail:
		return (has("SEND") && has("EMAIL") && !has("DRAFT")) || (has("POST") && has("MESSAGE"))
	default:
		return false
	}
}

func isMailTool(name string) bool {
	upper := strings.ToUpper(name)
	return strings.Contains(upper, "MAIL")
}
