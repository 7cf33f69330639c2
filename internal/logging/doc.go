// Package logging provides slog-based structured logging for trawl with
// console and JSON output formats, standardized field names, and helpers for
// deriving log attributes from request context.
package logging
