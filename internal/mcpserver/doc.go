// Package mcpserver owns the BigRack daemon lifecycle and its Model Context
// Protocol listener.
//
// Server.Start is all-or-nothing: it acquires the single-instance lock, opens
// the inventory store, binds the TCP listener, and only then reports success.
// Any failure unwinds whatever was acquired and returns an error, so the
// bootstrap layer sees exactly one of ready or failed.
//
// Sessions speak JSON-RPC 2.0, one JSON value per message, with the MCP
// methods initialize, ping, tools/list, and tools/call. Tool implementations
// live in tools.go and are thin wrappers over the inventory store.
package mcpserver
