// Package logging provides structured logging on top of log/slog.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "validation complete", "violations", 12)
//
// Packages that only need a *slog.Logger receive logger.Slog().
//
// # Redaction
//
// With RedactValues set, attributes named value, values or key are
// replaced by [redacted] so that cell contents from the validated tables
// do not end up in log storage.
package logging
