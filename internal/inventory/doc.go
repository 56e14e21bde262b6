// Package inventory persists the rack and device records the MCP tools serve.
//
// Storage is a single SQLite database opened in WAL mode with a schema version
// gate: a database created by a different BigRack version is rejected rather
// than silently migrated. All operations take a context and retry briefly on
// SQLITE_BUSY so concurrent MCP sessions do not surface transient lock errors.
package inventory
