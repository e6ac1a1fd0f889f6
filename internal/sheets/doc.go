// Package sheets provides a client for the Google Sheets API.
//
// It reads cell ranges in A1 notation, reports spreadsheet metadata and writes
// ranges back, which is how the seed command fills the Orders sheet.
package sheets
