// Package ipc exposes daemon control over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// The control surface is intentionally small: status and stop. MCP traffic
// uses the TCP listener owned by mcpserver; this socket exists so `bigrack
// status` and `bigrack stop` work without speaking MCP.
package ipc
