// Package server implements the MCP (Model Context Protocol) server for stamp extraction.
//
// This package provides a JSON-RPC 2.0 server that exposes the stamp pipeline
// through the MCP protocol, so an assistant can inspect a scanned document,
// find the colored seals on it and pull them out as transparent PNGs.
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
// Image Information:
//   - image_load: Load image and get metadata
//
// Color Operations:
//   - stamp_sample_color: Get color at pixel and whether it classifies as the stamp color
//   - stamp_suggest_colors: Candidate stamp colors, most frequent first
//
// Stamp Operations:
//   - stamp_detect_circles: Locate stamps without extracting them
//   - stamp_extract: Crop each stamp with a circular alpha mask
//   - stamp_recolor: Paint every stamp-colored pixel on a transparent canvas
//   - stamp_annotate: Outline and number detected stamps on the source image
//
// Tool calls that omit "color" search for the configured default stamp
// color. "strategy", "mode" and "fill_color" override the configured
// pipeline options for that call only.
//
// # Image Caching
//
// The server maintains an in-memory cache of loaded images. Images are cached
// by path and reused across multiple tool calls, avoiding redundant disk I/O.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for malformed arguments, -32000 for any other tool failure
//   - message: Human-readable error description
//   - data: The Go error string
//
// Logging goes to the zap logger passed to New, never to stdout.
//
// # Usage
//
//	srv, err := server.New(server.Config{Options: stamp.DefaultOptions(), DefaultColor: red}, logger)
//	if err != nil {
//	    return err
//	}
//	return srv.Run()
package server
