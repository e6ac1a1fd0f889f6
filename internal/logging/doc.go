// Package logging provides structured logging helpers for sheetmailer.
//
// All packages log through log/slog with the attribute keys defined here so
// that agent runs, tool invocations and Google API calls can be correlated.
//
//	logger := logging.WithOperation(slog.Default(), "agent.run")
//	logger.Info("reasoner replied",
//	    logging.Iteration(2),
//	    logging.Status(logging.StatusSuccess))
//
// Account emails are hashed with AnonymizeEmail and OAuth tokens are reduced
// to their length with SanitizeToken before they reach a log line.
package logging
