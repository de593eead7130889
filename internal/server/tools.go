package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// schema builds an object input schema from its properties and required names.
func schema(properties map[string]interface{}, required ...string) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func propDefault(typ, description string, def interface{}) map[string]interface{} {
	p := prop(typ, description)
	p["default"] = def
	return p
}

var (
	pathProp   = prop("string", "Absolute path to the image file")
	outputProp = prop("string", "Optional path to write the result to. The format follows the extension. When omitted the result is returned as base64 PNG")
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, decoded format, file suffix and color depth.",
			InputSchema: schema(map[string]interface{}{
				"path": pathProp,
			}, "path"),
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: schema(map[string]interface{}{
				"path": pathProp,
			}, "path"),
		},
		{
			Name:        "image_sample_color",
			Description: "Get the color at a pixel. Use it to pick the background color to key out.",
			InputSchema: schema(map[string]interface{}{
				"path": pathProp,
				"x":    prop("integer", "X coordinate (0-based)"),
				"y":    prop("integer", "Y coordinate (0-based)"),
			}, "path", "x", "y"),
		},
		{
			Name:        "image_dominant_colors",
			Description: "Find the most prominent colors of an image by k-means clustering.",
			InputSchema: schema(map[string]interface{}{
				"path":  pathProp,
				"count": propDefault("integer", "Number of colors to return", 5),
			}, "path"),
		},
		{
			Name:        "image_suggest_background",
			Description: "Guess the background color of an image from its border.",
			InputSchema: schema(map[string]interface{}{
				"path": pathProp,
			}, "path"),
		},

		// Pixel Pipeline
		{
			Name:        "pixel_pixelate",
			Description: "Pixelate an image by replacing every block_size x block_size block with its average color. Output has the same size as the input.",
			InputSchema: schema(map[string]interface{}{
				"path":        pathProp,
				"block_size":  prop("integer", "Block edge length in pixels (>= 1). 1 returns an exact copy"),
				"output_path": outputProp,
			}, "path", "block_size"),
		},
		{
			Name:        "pixel_resize",
			Description: "Resize an image. When only width or only height is given the other keeps the aspect ratio.",
			InputSchema: schema(map[string]interface{}{
				"path":        pathProp,
				"width":       prop("integer", "Target width in pixels"),
				"height":      prop("integer", "Target height in pixels"),
				"filter":      propDefault("string", "Resampling filter: nearest, box, linear, catmullrom or lanczos", "linear"),
				"output_path": outputProp,
			}, "path"),
		},
		{
			Name:        "pixel_key_background",
			Description: "Make every pixel whose RGB channels are all strictly within tolerance of the background color fully transparent. Tolerance 0 keys nothing.",
			InputSchema: schema(map[string]interface{}{
				"path":        pathProp,
				"background":  propDefault("string", "Background color as #RRGGBB, or \"auto\" to guess it from the image border", "#FFFFFF"),
				"tolerance":   prop("integer", "Per-channel tolerance (0-255)"),
				"feather":     propDefault("number", "Gaussian radius used to soften the cut-out edge. 0 disables feathering", 0),
				"output_path": outputProp,
			}, "path", "tolerance"),
		},
		{
			Name:        "pixel_quantize",
			Description: "Reduce an image to a limited palette found by k-means clustering. Alpha is kept.",
			InputSchema: schema(map[string]interface{}{
				"path":        pathProp,
				"colors":      propDefault("integer", "Palette size (at least 1)", 16),
				"output_path": outputProp,
			}, "path"),
		},
		{
			Name:        "pixel_psnr",
			Description: "Compute MSE and PSNR between two images of the same size. Identical images report psnr null and identical true.",
			InputSchema: schema(map[string]interface{}{
				"reference": prop("string", "Absolute path to the reference image"),
				"candidate": prop("string", "Absolute path to the image being measured"),
			}, "reference", "candidate"),
		},
		{
			Name:        "pixel_grid_overlay",
			Description: "Draw the pixelation block grid on an image to preview which pixels end up in each block.",
			InputSchema: schema(map[string]interface{}{
				"path":         pathProp,
				"block_size":   propDefault("integer", "Block edge length in pixels", 8),
				"show_indices": propDefault("boolean", "Label each block with its col,row index", false),
				"grid_color":   propDefault("string", "Grid line color as #RRGGBB", "#FF00FF"),
				"output_path":  outputProp,
			}, "path"),
		},

		// Workspace
		{
			Name:        "workspace_open",
			Description: "Open an image in the workspace. Block size and target size reset to defaults and any manual edits are discarded.",
			InputSchema: schema(map[string]interface{}{
				"path": pathProp,
			}, "path"),
		},
		{
			Name:        "workspace_set_params",
			Description: "Change workspace parameters. Omitted fields keep their value. Block size and target size changes are debounced; any change discards manual edits.",
			InputSchema: schema(map[string]interface{}{
				"block_size":     prop("integer", "Pixelation block size"),
				"width":          prop("integer", "Target width; with lock_aspect the height follows"),
				"height":         prop("integer", "Target height; with lock_aspect the width follows"),
				"lock_aspect":    prop("boolean", "Keep the aspect ratio when one dimension changes"),
				"reset_size":     prop("boolean", "Reset the target size to the pixelated image size"),
				"background":     prop("string", "Key color as #RRGGBB"),
				"tolerance":      prop("integer", "Per-channel key tolerance (0-255)"),
				"keying":         prop("boolean", "Enable background keying"),
				"feather":        prop("number", "Feather radius for the keyed edge"),
				"palette_colors": prop("integer", "Palette size; 0 disables quantization"),
				"filter":         prop("string", "Resize filter: nearest, box, linear, catmullrom or lanczos"),
				"wait":           propDefault("boolean", "Apply debounced changes before returning", true),
			}),
		},
		{
			Name:        "workspace_stroke",
			Description: "Draw a stroke on the workspace result. paint cuts pixels out, erase restores them from the resized image. Each pair of consecutive points is one undoable segment.",
			InputSchema: schema(map[string]interface{}{
				"mode":  prop("string", "paint (pen) or erase (eraser)"),
				"width": propDefault("number", "Brush width in pixels", 20),
				"points": map[string]interface{}{
					"type":        "array",
					"description": "Stroke points in result image coordinates",
					"items": schema(map[string]interface{}{
						"x": prop("integer", "X coordinate"),
						"y": prop("integer", "Y coordinate"),
					}, "x", "y"),
				},
				"commit": propDefault("boolean", "Commit the manual edits so later strokes cannot undo them", false),
			}, "mode", "points"),
		},
		{
			Name:        "workspace_undo",
			Description: "Undo the last stroke segment.",
			InputSchema: schema(map[string]interface{}{}),
		},
		{
			Name:        "workspace_status",
			Description: "Report workspace parameters and sizes, optionally with the result image and its quality against the source.",
			InputSchema: schema(map[string]interface{}{
				"include_image":   propDefault("boolean", "Return the result as base64 PNG", false),
				"include_quality": propDefault("boolean", "Report MSE and PSNR against the resized source", false),
			}),
		},
		{
			Name:        "workspace_save",
			Description: "Save the workspace result. The format follows the extension; without one the source file's suffix is used.",
			InputSchema: schema(map[string]interface{}{
				"path": prop("string", "Absolute output path"),
			}, "path"),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
