package instrumentation

import "strings"

// ExtractUserDomain reduces an email to its domain for metric labels and
// general logs. Anything unparsable becomes "unknown".
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return "unknown"
}

// Operation label values for Google API metrics.
const (
	OperationGet      = "get"
	OperationBatchGet = "batch_get"
	OperationMetadata = "metadata"
	OperationUpdate   = "update"
	OperationSend     = "send"
	OperationDraft    = "draft"
	OperationProfile  = "profile"
)
