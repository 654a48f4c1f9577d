// Package scan_tools exposes the scanning engine to MCP clients as the
// scan_threads and list_mailboxes tools.
package scan_tools
