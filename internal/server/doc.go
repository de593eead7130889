// Package server implements the MCP (Model Context Protocol) server for the
// pixel-art pipeline.
//
// The server speaks JSON-RPC 2.0 and exposes both the stateless pipeline
// stages and a single stateful workspace that chains them together.
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
//   - image_dimensions: Get width and height
//   - image_sample_color: Get color at pixel
//   - image_dominant_colors: Extract color palette
//   - image_suggest_background: Guess the background color
//
// Pixel Pipeline (stateless, one file in, one image out):
//   - pixel_pixelate: Block-average pixelation
//   - pixel_resize: Resize with a chosen filter
//   - pixel_key_background: Make the background transparent
//   - pixel_quantize: Reduce to a k-means palette
//   - pixel_psnr: MSE and PSNR between two images
//   - pixel_grid_overlay: Preview the pixelation blocks
//
// Workspace (stateful):
//   - workspace_open: Open the image to work on
//   - workspace_set_params: Change block size, size, keying and palette
//   - workspace_stroke: Paint or erase manual corrections
//   - workspace_undo: Undo the last stroke segment
//   - workspace_status: Parameters, result image and quality
//   - workspace_save: Write the result
//
// Block size and target size changes are debounced by the workspace; set
// wait=false on workspace_set_params to leave them pending.
//
// # Image Caching
//
// Source images are cached by path and shared between the stateless tools
// and the workspace. workspace_open always re-reads its file.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, prefixed by its category ("invalid parameter",
//     "dimension mismatch" or "image i/o failure")
//
// # Usage
//
//	srv := server.New(server.Config{Logger: logger, Version: version})
//	defer srv.Close()
//	if err := srv.Run(); err != nil {
//	    return err
//	}
package server
