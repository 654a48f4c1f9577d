// Package cmd implements the command-line interface for mailscope.
//
// This package provides the following commands:
//   - scan: Scan a mailbox once and print one page of classified threads as JSON
//   - serve: Start the scan API server (HTTP) or MCP server (stdio)
//   - version: Display version information
package cmd
