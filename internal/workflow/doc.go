// Package workflow turns a natural-language question about the orders sheet
// into one bounded agent run that reads the sheet and emails the answer.
//
// A Runner is built once per session from a reasoner and a tool source. The
// tool source is narrowed to the read_spreadsheet and send_email
// capabilities, and every query starts from a fresh conversation under its
// own timeout.
package workflow
