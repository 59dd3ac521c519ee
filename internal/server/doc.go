// Package server implements the MCP (Model Context Protocol) server for the image
// optimization tools.
//
// This package provides a JSON-RPC 2.0 server that exposes the optimizer and the
// CDN URL builder through the MCP protocol, so that MCP-compatible clients can
// prepare images for the web without a build step.
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
// Source Information:
//   - image_load: Load image and get metadata
//
// Optimization:
//   - image_optimize: Fit, filter and encode one image
//   - image_optimize_batch: Optimize several images, failures isolated per item
//   - image_optimize_use_case: Optimize with a named preset
//   - image_responsive_variants: One variant per breakpoint width
//   - image_resize: Exact-size resample
//   - image_compress: Colour passes at the source size
//   - image_transform: Render CDN-style options locally
//
// CDN URLs:
//   - cdn_build_url: Provider-specific delivery URL
//   - cdn_responsive_urls: One URL per breakpoint plus density variants
//   - cdn_picture_markup: <picture> element with WebP and JPEG sources
//
// # Output
//
// The image_* tools write their output to output_path (or into output_dir for
// the multi-image tools) when given, and otherwise return it base64-encoded in
// data_base64. Either way the result carries the size metrics.
//
// # Image Caching
//
// Source files are read through an LRU cache keyed by path, so repeated calls on
// the same file skip the disk.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	opt := optimizer.New(cfg.Optimizer, optimizer.WithLogger(logger))
//	defer opt.Dispose()
//	srv := server.New(opt, cdn.NewBuilder(cfg.CDN), cache, server.WithLogger(logger))
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
