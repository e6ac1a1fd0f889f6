package common

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// RequiredString returns a non-empty string argument.
func RequiredString(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}

// OptionalString returns a string argument or "".
func OptionalString(args map[string]interface{}, name string) string {
	v, _ := args[name].(string)
	return v
}

// OptionalBool returns a boolean argument or false.
func OptionalBool(args map[string]interface{}, name string) bool {
	v, _ := args[name].(bool)
	return v
}

// JSONResult renders v as indented JSON text content.
func JSONResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
