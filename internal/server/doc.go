// Package server implements the MCP (Model Context Protocol) server for
// parking lot occupancy.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Lot analysis:
//   - lot_zones_load: Load and validate a zone definition
//   - lot_preprocess: Render the enhanced or low-contrast detector input
//   - lot_detect: Detect vehicles on both variants and merge them
//   - lot_merge: Merge caller-supplied box sets with non-max suppression
//   - lot_cluster_points: Sample points around a box centroid
//   - lot_resolve: Map detections onto zones
//   - lot_occupancy: Full run on an image, optionally persisted and reported
//   - lot_overlay: Draw zones and detections on the image
//   - lot_zone_crop: Crop one spot for review
//
// Zone annotation:
//   - zone_annotate_start: Open a session for a lot
//   - zone_annotate_click: Add a corner point
//   - zone_annotate_key: Send a key or typed text
//   - zone_annotate_status: Inspect a session
//   - zone_annotate_save: Write the finished zone definition
//
// Zones are selected either by lot_id, resolved through the configured zone
// directory, or by an explicit zones_path.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(pipeline.New(detector), zones.DirSource{Dir: "data/zones"})
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
