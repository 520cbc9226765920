package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Shared argument schemas.
var (
	pathProperty = map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
	colorProperty = map[string]interface{}{
		"type":        "string",
		"description": "Stamp color to search for as hex (e.g. \"#FF0000\"). Defaults to the configured stamp color.",
	}
	fillColorProperty = map[string]interface{}{
		"type":        "string",
		"description": "Output color for flat-fill as hex. Defaults to the stamp color.",
	}
	strategyProperty = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"multi-circle", "single-blob"},
		"description": "multi-circle finds up to 6 round stamps; single-blob treats all stamp-colored pixels as one stamp",
	}
	modeProperty = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"flat-fill", "pass-through"},
		"description": "flat-fill paints stamp pixels in one color; pass-through keeps their original colors",
	}
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, alpha usage and file size. The decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Color Operations
		{
			Name:        "stamp_sample_color",
			Description: "Get the color at a pixel as hex, RGB, RGBA and half-range HSV (H 0-179, S and V 0-255), and whether it would be classified as the given stamp color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "X coordinate (0-based, from left)",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Y coordinate (0-based, from top)",
					},
					"color": colorProperty,
				},
				"required": []string{"path", "x", "y"},
			},
		},
		{
			Name:        "stamp_suggest_colors",
			Description: "List the most common saturated colors in the image as stamp-color candidates, most frequent first. Paper, black ink and gray noise are skipped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of colors to return. Default 5",
						"default":     5,
					},
				},
				"required": []string{"path"},
			},
		},

		// Stamp Operations
		{
			Name:        "stamp_detect_circles",
			Description: "Locate stamps of the given color and return their circles (x, y, radius in pixels), largest first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty,
					"color":    colorProperty,
					"strategy": strategyProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "stamp_extract",
			Description: "Extract each stamp of the given color as a square PNG with everything outside the stamp disk transparent. Returns base64 PNGs with their crop boxes and source circles.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty,
					"color":      colorProperty,
					"fill_color": fillColorProperty,
					"mode":       modeProperty,
					"strategy":   strategyProperty,
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Optional directory to also write stamp_<n>.png files into",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "stamp_recolor",
			Description: "Paint every pixel of the stamp color in the fill color on a transparent canvas the size of the image. Nothing is cropped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":       pathProperty,
					"color":      colorProperty,
					"fill_color": fillColorProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "stamp_annotate",
			Description: "Return the image with every detected stamp circle outlined and numbered in detection order, for checking what was found.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":     pathProperty,
					"color":    colorProperty,
					"strategy": strategyProperty,
					"outline_color": map[string]interface{}{
						"type":        "string",
						"description": "Outline color as hex. Default \"#00FF00\"",
					},
				},
				"required": []string{"path"},
			},
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
