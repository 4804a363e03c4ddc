// Package logging wraps log/slog with the console and JSON handlers used by
// the montage CLI, plus helpers for carrying run and stage identifiers from
// context into structured log fields.
package logging
