// Package main hosts the bigrack CLI entrypoint and command graph.
//
// The Cobra-based command tree launches and supervises the MCP daemon,
// translates terminal invocations into control-socket calls, and scaffolds
// configuration. It centralizes configuration resolution and socket
// discovery so subcommands can focus on user experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
