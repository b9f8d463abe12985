package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the lot image",
	}
}

// lotProperties selects a zone definition by id or by file.
func lotProperties(props map[string]interface{}) map[string]interface{} {
	props["lot_id"] = map[string]interface{}{
		"type":        "integer",
		"description": "Lot id, resolved as lot-<id>.json in the zones directory",
	}
	props["zones_path"] = map[string]interface{}{
		"type":        "string",
		"description": "Zone definition file; takes precedence over lot_id",
	}
	return props
}

func boxSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"x1":         map[string]interface{}{"type": "number"},
			"y1":         map[string]interface{}{"type": "number"},
			"x2":         map[string]interface{}{"type": "number"},
			"y2":         map[string]interface{}{"type": "number"},
			"confidence": map[string]interface{}{"type": "number"},
			"class_id":   map[string]interface{}{"type": "integer"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

func sessionProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session id returned by zone_annotate_start",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Lot analysis
		{
			Name:        "lot_zones_load",
			Description: "Load and validate a lot's zone definition. Returns the zones in file order.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": lotProperties(map[string]interface{}{}),
			},
		},
		{
			Name:        "lot_preprocess",
			Description: "Render one of the two detector inputs: 'enhanced' (CLAHE on Lab lightness plus gamma, for dark vehicles) or 'low_contrast' (inverse gamma, for light vehicles). Returns base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"variant": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"enhanced", "low_contrast"},
						"description": "Variant to render. Default enhanced",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "lot_detect",
			Description: "Run the vehicle detector on both preprocessed variants of the image and merge the results with non-max suppression.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"confidence": map[string]interface{}{
						"type":        "number",
						"description": "Minimum detector confidence (0.0-1.0). Default 0.1",
					},
					"iou": map[string]interface{}{
						"type":        "number",
						"description": "Suppression IoU threshold (0.0-1.0). Default 0.4",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "lot_merge",
			Description: "Merge several box lists into one with greedy non-max suppression. Boxes overlapping a higher-confidence box by more than the IoU threshold are dropped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"sets": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "array", "items": boxSchema()},
						"description": "Box lists, one per detector run",
					},
					"iou": map[string]interface{}{
						"type":        "number",
						"description": "Suppression IoU threshold. Default 0.4",
					},
				},
				"required": []string{"sets"},
			},
		},
		{
			Name:        "lot_cluster_points",
			Description: "Return the grid of sample points around a box centroid that occupancy uses to test zone membership.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"box": boxSchema(),
					"grid_size": map[string]interface{}{
						"type":        "integer",
						"description": "Points per axis. Default 3",
					},
					"margin_ratio": map[string]interface{}{
						"type":        "number",
						"description": "Fraction of the box spanned by the grid. Default 0.3",
					},
				},
				"required": []string{"box"},
			},
		},
		{
			Name:        "lot_resolve",
			Description: "Map detections onto a lot's zones. A zone is taken when any sample point of any detection falls inside it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": lotProperties(map[string]interface{}{
					"detections": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"class":      map[string]interface{}{"type": "string"},
								"class_id":   map[string]interface{}{"type": "integer"},
								"confidence": map[string]interface{}{"type": "number"},
								"box": map[string]interface{}{
									"type":        "array",
									"items":       map[string]interface{}{"type": "integer"},
									"description": "[x1, y1, x2, y2]",
								},
							},
							"required": []string{"box"},
						},
					},
					"grid_size":    map[string]interface{}{"type": "integer"},
					"margin_ratio": map[string]interface{}{"type": "number"},
				}),
				"required": []string{"detections"},
			},
		},
		{
			Name:        "lot_occupancy",
			Description: "Full run: preprocess, detect, merge and resolve occupancy for every zone. Optionally stores the snapshot and posts it to the collector.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": lotProperties(map[string]interface{}{
					"path": pathProperty(),
					"persist": map[string]interface{}{
						"type":        "boolean",
						"description": "Store the result as the lot's latest snapshot",
					},
					"report": map[string]interface{}{
						"type":        "boolean",
						"description": "POST the result as CSV to the configured collector",
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "lot_overlay",
			Description: "Run occupancy and draw the zones (green free, red taken) and merged detections on the image. Returns base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": lotProperties(map[string]interface{}{
					"path":        pathProperty(),
					"free_color":  map[string]interface{}{"type": "string", "description": "Hex color for free spots"},
					"taken_color": map[string]interface{}{"type": "string", "description": "Hex color for taken spots"},
					"box_color":   map[string]interface{}{"type": "string", "description": "Hex color for detections"},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "lot_zone_crop",
			Description: "Crop the bounding rectangle of one spot for close inspection. Returns base64 PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": lotProperties(map[string]interface{}{
					"path":    pathProperty(),
					"spot_id": map[string]interface{}{"type": "string"},
					"padding": map[string]interface{}{
						"type":        "integer",
						"description": "Extra pixels around the zone. Default 10",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor. Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path", "spot_id"},
			},
		},

		// Zone annotation
		{
			Name:        "zone_annotate_start",
			Description: "Start an annotation session for a lot. Click four corners per spot, then type the spot id and press enter.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"lot_id": map[string]interface{}{"type": "integer"},
				},
				"required": []string{"lot_id"},
			},
		},
		{
			Name:        "zone_annotate_click",
			Description: "Add a corner at pixel (x, y). The fourth corner opens the spot id prompt.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty(),
					"x":          map[string]interface{}{"type": "integer"},
					"y":          map[string]interface{}{"type": "integer"},
				},
				"required": []string{"session_id", "x", "y"},
			},
		},
		{
			Name:        "zone_annotate_key",
			Description: "Send a key (enter, escape, backspace, q, r or a printable character) and/or literal text to the session.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty(),
					"key":        map[string]interface{}{"type": "string"},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Typed before key, one character at a time",
					},
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "zone_annotate_status",
			Description: "Show a session's state, committed zones and pending corners.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty(),
				},
				"required": []string{"session_id"},
			},
		},
		{
			Name:        "zone_annotate_save",
			Description: "Write the zones of a saved session (after 'q') to zones_path, or to the zones directory when omitted, and close the session.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": sessionProperty(),
					"zones_path": map[string]interface{}{"type": "string"},
				},
				"required": []string{"session_id"},
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
