package common

import (
	"github.com/teemow/sheetmailer/internal/server"
)

// ConnectionArg is the optional argument naming the connection to act as.
const ConnectionArg = "connection"

// GetConnectionFromArgs returns the connection ID for a tool call.
//
// Priority order:
//  1. Explicit "connection" argument in request
//  2. The configured connection of the toolkit
func GetConnectionFromArgs(args map[string]interface{}, sc *server.ServerContext, toolkit string) string {
	if v, ok := args[ConnectionArg].(string); ok && v != "" {
		return v
	}
	if sc == nil {
		return ""
	}
	return sc.DefaultConnection(toolkit)
}
