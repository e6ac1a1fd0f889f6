// Package batch provides helpers for tool parameters that accept either a
// single value or a list, such as the ranges of sheets_batch_get_values or
// the recipients of gmail_send_email.
package batch
