// Command parkspot-mcp decides which parking spots in a lot photograph are
// occupied. It runs as an MCP server over stdio by default and also offers
// an HTTP API and one-shot CLI commands.
package main

func main() {
	Execute()
}
