// Package logging assembles the structured slog loggers used across BigRack.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes typed attribute helpers so components emit log data
// with a consistent shape. The package also provides a no-op logger for tests
// and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so operator tooling
// that tails the daemon log keeps seeing the field names it expects.
package logging
