package google

import (
	gmail "google.golang.org/api/gmail/v1"
	sheets "google.golang.org/api/sheets/v4"
)

// Toolkit names identify which Google product a connection authorizes.
const (
	ToolkitSheets = "googlesheets"
	ToolkitGmail  = "gmail"
)

var identityScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
}

// SheetsScopes allow reading spreadsheets and writing the seeded demo data.
var SheetsScopes = append(append([]string{}, identityScopes...),
	sheets.SpreadsheetsReadonlyScope,
	sheets.SpreadsheetsScope,
)

// GmailScopes allow sending mail, creating drafts and reading the profile.
var GmailScopes = append(append([]string{}, identityScopes...),
	gmail.GmailSendScope,
	gmail.GmailComposeScope,
	gmail.GmailReadonlyScope,
)

// ScopesForToolkit returns the scopes of a toolkit, or nil if it is unknown.
func ScopesForToolkit(toolkit string) []string {
	switch toolkit {
	case ToolkitSheets:
		return append([]string{}, SheetsScopes...)
	case ToolkitGmail:
		return append([]string{}, GmailScopes...)
	default:
		return nil
	}
}
