package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var pathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Absolute path to the source image file",
}

var outputPathProperty = map[string]interface{}{
	"type":        "string",
	"description": "Optional file to write the encoded output to. Without it the output is returned as base64.",
}

var outputDirProperty = map[string]interface{}{
	"type":        "string",
	"description": "Optional directory to write the encoded outputs to. Without it outputs are returned as base64.",
}

var formatProperty = map[string]interface{}{
	"type":        "string",
	"enum":        []string{"webp", "jpeg", "png", "avif"},
	"description": "Output format (default webp). avif requires a vips build.",
}

var qualityProperty = map[string]interface{}{
	"type":        "number",
	"minimum":     0,
	"maximum":     1,
	"description": "Quality in [0,1] (default 0.8). Below 0.6 colour depth is reduced, below 0.4 the output is dithered.",
}

// optimizeProperties are the optimizer options shared by the image_* tools.
func optimizeProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"quality": qualityProperty,
		"max_width": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum output width in pixels (default 1920)",
		},
		"max_height": map[string]interface{}{
			"type":        "integer",
			"description": "Maximum output height in pixels (default 1080)",
		},
		"format": formatProperty,
		"progressive": map[string]interface{}{
			"type":        "boolean",
			"description": "Request a progressive bitstream where the encoder supports it",
		},
		"preserve_metadata": map[string]interface{}{
			"type":        "boolean",
			"description": "Keep EXIF metadata (JPEG to JPEG only)",
		},
		"enable_resize": map[string]interface{}{
			"type":        "boolean",
			"description": "Fit the output into max_width x max_height (default true)",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// cdnProperties are the transformation options shared by the cdn_* tools and
// image_transform.
func cdnProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"width":   map[string]interface{}{"type": "integer", "description": "Target width in pixels"},
		"height":  map[string]interface{}{"type": "integer", "description": "Target height in pixels"},
		"quality": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100, "description": "Quality 1-100"},
		"format": map[string]interface{}{
			"type": "string",
			"enum": []string{"auto", "webp", "avif", "jpeg", "png"},
		},
		"fit": map[string]interface{}{
			"type": "string",
			"enum": []string{"cover", "contain", "fill", "inside", "outside"},
		},
		"gravity": map[string]interface{}{
			"type":        "string",
			"description": "Crop anchor: center, north, south, east, west, northeast, northwest, southeast, southwest or auto",
		},
		"blur":      map[string]interface{}{"type": "integer", "description": "Blur radius"},
		"sharpen":   map[string]interface{}{"type": "boolean"},
		"grayscale": map[string]interface{}{"type": "boolean"},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

var providerProperty = map[string]interface{}{
	"type":        "string",
	"enum":        []string{"cloudinary", "imagekit", "cloudflare", "custom"},
	"description": "CDN provider (default from IMAGEOPT_CDN_PROVIDER)",
}

var cdnBreakpointsProperty = map[string]interface{}{
	"type": "array",
	"items": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"name":    map[string]interface{}{"type": "string"},
			"width":   map[string]interface{}{"type": "integer"},
			"density": map[string]interface{}{"type": "integer", "description": "Also emit <name>_<density>x at width*density"},
			"media":   map[string]interface{}{"type": "string", "description": "Media query (default (max-width: <width>px))"},
		},
		"required": []string{"name", "width"},
	},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Source Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and size. The file is cached for subsequent calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Optimization
		{
			Name:        "image_optimize",
			Description: "Optimize an image: fit it into the maximum bounds, apply noise reduction, sharpening and colour reduction according to the quality, and encode it. Returns size metrics.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": optimizeProperties(map[string]interface{}{
					"path":        pathProperty,
					"output_path": outputPathProperty,
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_optimize_batch",
			Description: "Optimize several images with the same options. Each item succeeds or fails on its own.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": optimizeProperties(map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Absolute paths of the source images",
					},
					"output_dir": outputDirProperty,
				}),
				"required": []string{"paths"},
			},
		},
		{
			Name:        "image_optimize_use_case",
			Description: "Optimize an image with a preset: thumbnail (150x150), gallery (800x600), hero (1920x1080, progressive), profile (400x400) or content (1200x800).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
					"use_case": map[string]interface{}{
						"type": "string",
						"enum": []string{"thumbnail", "gallery", "hero", "profile", "content"},
					},
					"output_path": outputPathProperty,
				},
				"required": []string{"path", "use_case"},
			},
		},
		{
			Name:        "image_responsive_variants",
			Description: "Create one optimized variant per breakpoint, each bounded by the breakpoint width.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": optimizeProperties(map[string]interface{}{
					"path": pathProperty,
					"breakpoints": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"name":    map[string]interface{}{"type": "string"},
								"width":   map[string]interface{}{"type": "integer"},
								"quality": qualityProperty,
							},
							"required": []string{"name", "width"},
						},
					},
					"output_dir": outputDirProperty,
				}),
				"required": []string{"path", "breakpoints"},
			},
		},
		{
			Name:        "image_resize",
			Description: "Resample an image to exactly width x height (bicubic) and encode it. No filters are applied.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty,
					"width":       map[string]interface{}{"type": "integer", "description": "Target width in pixels"},
					"height":      map[string]interface{}{"type": "integer", "description": "Target height in pixels"},
					"quality":     qualityProperty,
					"format":      formatProperty,
					"output_path": outputPathProperty,
				},
				"required": []string{"path", "width", "height"},
			},
		},
		{
			Name:        "image_compress",
			Description: "Apply the quality-driven colour passes at the source size and encode the image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        pathProperty,
					"quality":     qualityProperty,
					"format":      formatProperty,
					"output_path": outputPathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_transform",
			Description: "Render CDN-style transformation options locally, the way the custom provider would serve them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": cdnProperties(map[string]interface{}{
					"path": pathProperty,
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Custom-provider query string (e.g. width=300&fit=cover). Overrides the individual options.",
					},
					"output_format":  formatProperty,
					"output_quality": qualityProperty,
					"output_path":    outputPathProperty,
				}),
				"required": []string{"path"},
			},
		},

		// CDN URLs
		{
			Name:        "cdn_build_url",
			Description: "Build a CDN delivery URL for an image path in the provider's native syntax.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": cdnProperties(map[string]interface{}{
					"path":     map[string]interface{}{"type": "string", "description": "Image path relative to the CDN base URL"},
					"provider": providerProperty,
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "cdn_responsive_urls",
			Description: "Build one CDN URL per breakpoint, plus <name>_<density>x URLs for density multipliers above 1.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": cdnProperties(map[string]interface{}{
					"path":        map[string]interface{}{"type": "string", "description": "Image path relative to the CDN base URL"},
					"provider":    providerProperty,
					"breakpoints": cdnBreakpointsProperty,
				}),
				"required": []string{"path", "breakpoints"},
			},
		},
		{
			Name:        "cdn_picture_markup",
			Description: "Generate a <picture> element with WebP and JPEG sources per breakpoint and a lazy-loaded fallback <img>.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":        map[string]interface{}{"type": "string", "description": "Image path relative to the CDN base URL"},
					"alt":         map[string]interface{}{"type": "string", "description": "Alternative text"},
					"breakpoints": cdnBreakpointsProperty,
					"quality":     map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 100},
					"sizes":       map[string]interface{}{"type": "string", "description": "sizes attribute (default 100vw)"},
					"provider":    providerProperty,
				},
				"required": []string{"path", "alt", "breakpoints"},
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
