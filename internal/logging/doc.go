// Package logging assembles structured slog loggers for ytanalyzer.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context-aware helpers that tag log lines with batch IDs, video IDs,
// competitor IDs, and correlation IDs. NewNop serves tests and wiring code
// that cannot fail.
package logging
