package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/image-optimizer/internal/cdn"
	"github.com/ironsheep/image-optimizer/internal/imaging"
	"github.com/ironsheep/image-optimizer/internal/optimizer"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_optimize", "cdn_build_url").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	s.logger.Debug("tool finished", zap.String("tool", params.Name), zap.Duration("elapsed", time.Since(start)))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Loads source files through the cache as needed
//  4. Calls the optimizer or the CDN builder
//  5. Returns the result or error
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Source Information
	case "image_load":
		return s.handleImageLoad(args)

	// Optimization
	case "image_optimize":
		return s.handleImageOptimize(ctx, args)
	case "image_optimize_batch":
		return s.handleImageOptimizeBatch(ctx, args)
	case "image_optimize_use_case":
		return s.handleImageOptimizeUseCase(ctx, args)
	case "image_responsive_variants":
		return s.handleImageResponsiveVariants(ctx, args)
	case "image_resize":
		return s.handleImageResize(ctx, args)
	case "image_compress":
		return s.handleImageCompress(ctx, args)
	case "image_transform":
		return s.handleImageTransform(ctx, args)

	// CDN URLs
	case "cdn_build_url":
		return s.handleCDNBuildURL(args)
	case "cdn_responsive_urls":
		return s.handleCDNResponsiveURLs(args)
	case "cdn_picture_markup":
		return s.handleCDNPictureMarkup(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Output ===

// ImageResult describes one encoded image produced by an image_* tool.
type ImageResult struct {
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	Format           imaging.Format `json:"format"`
	OriginalSize     int            `json:"original_size"`
	CompressedSize   int            `json:"compressed_size"`
	CompressionRatio float64        `json:"compression_ratio"`
	Progressive      bool           `json:"progressive"`
	DominantColor    string         `json:"dominant_color,omitempty"`

	// Exactly one of OutputPath and DataBase64 is set.
	OutputPath string `json:"output_path,omitempty"`
	DataBase64 string `json:"data_base64,omitempty"`
}

// emit writes img to outputPath, or inlines it as base64 when outputPath is
// empty, and releases the image.
func emit(img *optimizer.OptimizedImage, outputPath string) (*ImageResult, error) {
	defer img.Release()

	res := &ImageResult{
		Width:            img.Width,
		Height:           img.Height,
		Format:           img.Format,
		OriginalSize:     img.OriginalSize,
		CompressedSize:   img.CompressedSize,
		CompressionRatio: img.CompressionRatio,
		Progressive:      img.Progressive,
		DominantColor:    img.DominantColor,
	}
	if outputPath == "" {
		res.DataBase64 = base64.StdEncoding.EncodeToString(img.Data)
		return res, nil
	}
	if err := os.WriteFile(outputPath, img.Data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}
	res.OutputPath = outputPath
	return res, nil
}

var unsafeNameChars = strings.NewReplacer("/", "_", `\`, "_", "..", "_")

// outputFile names the file written for source inside dir:
// "<dir>/<base>-<suffix>.<ext>". It returns "" when dir is empty.
func outputFile(dir, source, suffix string, format imaging.Format) string {
	if dir == "" {
		return ""
	}
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if suffix != "" {
		base += "-" + unsafeNameChars.Replace(suffix)
	}
	ext := string(format)
	if format == imaging.JPEG {
		ext = "jpg"
	}
	return filepath.Join(dir, base+"."+ext)
}

// optimizeOptionArgs are the optimizer options accepted by the image_* tools.
// Omitted fields keep optimizer.DefaultOptions.
type optimizeOptionArgs struct {
	Quality          *float64 `json:"quality"`
	MaxWidth         int      `json:"max_width"`
	MaxHeight        int      `json:"max_height"`
	Format           string   `json:"format"`
	Progressive      bool     `json:"progressive"`
	PreserveMetadata bool     `json:"preserve_metadata"`
	EnableResize     *bool    `json:"enable_resize"`
}

func (a optimizeOptionArgs) options() (optimizer.Options, error) {
	opts := optimizer.DefaultOptions()
	if a.Quality != nil {
		opts.Quality = *a.Quality
	}
	if a.MaxWidth != 0 {
		opts.MaxWidth = a.MaxWidth
	}
	if a.MaxHeight != 0 {
		opts.MaxHeight = a.MaxHeight
	}
	if a.Format != "" {
		f, err := imaging.ParseFormat(a.Format)
		if err != nil {
			return opts, err
		}
		opts.Format = f
	}
	opts.Progressive = a.Progressive
	opts.PreserveMetadata = a.PreserveMetadata
	if a.EnableResize != nil {
		opts.EnableResize = *a.EnableResize
	}
	return opts, opts.Validate()
}

// === Source Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Optimization Handlers ===

type imageOptimizeArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
	optimizeOptionArgs
}

func (s *Server) handleImageOptimize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageOptimizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.optimizer.Optimize(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	return emit(img, a.OutputPath)
}

type imageOptimizeBatchArgs struct {
	Paths     []string `json:"paths"`
	OutputDir string   `json:"output_dir"`
	optimizeOptionArgs
}

// BatchItemResult is the outcome for one path of image_optimize_batch.
type BatchItemResult struct {
	Path   string       `json:"path"`
	Result *ImageResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// BatchResult is returned by image_optimize_batch, one item per input path.
type BatchResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []BatchItemResult `json:"items"`
}

func (s *Server) handleImageOptimizeBatch(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageOptimizeBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, fmt.Errorf("paths is required")
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}

	out := &BatchResult{Items: make([]BatchItemResult, len(a.Paths))}

	// Unreadable files fail on their own; the rest go through one batch.
	var (
		inputs  [][]byte
		indexes []int
	)
	for i, path := range a.Paths {
		out.Items[i].Path = path
		data, err := s.cache.Load(path)
		if err != nil {
			out.Items[i].Error = err.Error()
			continue
		}
		inputs = append(inputs, data)
		indexes = append(indexes, i)
	}

	if len(inputs) > 0 {
		batch, err := s.optimizer.OptimizeBatch(ctx, inputs, opts)
		if err != nil {
			return nil, err
		}
		for j, item := range batch.Items {
			i := indexes[j]
			if item.Err != nil {
				out.Items[i].Error = item.Err.Error()
				continue
			}
			res, err := emit(item.Image, outputFile(a.OutputDir, a.Paths[i], strconv.Itoa(i), item.Image.Format))
			if err != nil {
				out.Items[i].Error = err.Error()
				continue
			}
			out.Items[i].Result = res
		}
	}

	for _, item := range out.Items {
		if item.Error == "" {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	return out, nil
}

type imageOptimizeUseCaseArgs struct {
	Path       string `json:"path"`
	UseCase    string `json:"use_case"`
	OutputPath string `json:"output_path"`
}

func (s *Server) handleImageOptimizeUseCase(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageOptimizeUseCaseArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.optimizer.OptimizeForUseCase(ctx, data, optimizer.UseCase(a.UseCase))
	if err != nil {
		return nil, err
	}
	return emit(img, a.OutputPath)
}

type imageResponsiveVariantsArgs struct {
	Path        string                 `json:"path"`
	Breakpoints []optimizer.Breakpoint `json:"breakpoints"`
	OutputDir   string                 `json:"output_dir"`
	optimizeOptionArgs
}

func (s *Server) handleImageResponsiveVariants(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageResponsiveVariantsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	variants, err := s.optimizer.CreateResponsiveVariants(ctx, data, a.Breakpoints, opts)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*ImageResult, len(variants))
	var firstErr error
	for name, img := range variants {
		res, err := emit(img, outputFile(a.OutputDir, a.Path, name, img.Format))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out[name] = res
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

type imageResizeArgs struct {
	Path       string `json:"path"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	OutputPath string `json:"output_path"`
	optimizeOptionArgs
}

func (s *Server) handleImageResize(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageResizeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.optimizer.Resize(ctx, data, a.Width, a.Height, opts)
	if err != nil {
		return nil, err
	}
	return emit(img, a.OutputPath)
}

type imageCompressArgs struct {
	Path       string `json:"path"`
	OutputPath string `json:"output_path"`
	optimizeOptionArgs
}

func (s *Server) handleImageCompress(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageCompressArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	opts, err := a.options()
	if err != nil {
		return nil, err
	}
	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.optimizer.Compress(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	return emit(img, a.OutputPath)
}

type imageTransformArgs struct {
	Path          string   `json:"path"`
	Query         string   `json:"query"`
	OutputFormat  string   `json:"output_format"`
	OutputQuality *float64 `json:"output_quality"`
	OutputPath    string   `json:"output_path"`
	cdn.Options
}

// transform resolves the CDN options: the query string when given, otherwise
// the individual fields.
func (a imageTransformArgs) transform() (cdn.Options, error) {
	if a.Query == "" {
		return a.Options, a.Options.Validate()
	}
	values, err := url.ParseQuery(strings.TrimPrefix(a.Query, "?"))
	if err != nil {
		return cdn.Options{}, fmt.Errorf("invalid query: %w", err)
	}
	return cdn.ParseQuery(values)
}

func (s *Server) handleImageTransform(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageTransformArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	t, err := a.transform()
	if err != nil {
		return nil, err
	}

	// The CDN quality and format double as encoder settings unless overridden.
	opts := optimizer.DefaultOptions()
	switch {
	case a.OutputQuality != nil:
		opts.Quality = *a.OutputQuality
	case t.Quality > 0:
		opts.Quality = float64(t.Quality) / 100
	}
	format := a.OutputFormat
	if format == "" && t.Format != "auto" {
		format = t.Format
	}
	if format != "" {
		f, err := imaging.ParseFormat(format)
		if err != nil {
			return nil, err
		}
		opts.Format = f
	}

	data, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.optimizer.Transform(ctx, data, t.Transform(), opts)
	if err != nil {
		return nil, err
	}
	return emit(img, a.OutputPath)
}

// === CDN Handlers ===

func (s *Server) provider(name string) (cdn.Provider, error) {
	if name == "" {
		return s.cdn.DefaultProvider(), nil
	}
	return cdn.ParseProvider(name)
}

type cdnBuildURLArgs struct {
	Path     string `json:"path"`
	Provider string `json:"provider"`
	cdn.Options
}

func (s *Server) handleCDNBuildURL(args json.RawMessage) (interface{}, error) {
	var a cdnBuildURLArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	provider, err := s.provider(a.Provider)
	if err != nil {
		return nil, err
	}
	u, err := s.cdn.BuildURL(a.Path, a.Options, provider)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"provider": provider,
		"url":      u,
	}, nil
}

type cdnResponsiveURLsArgs struct {
	Path        string           `json:"path"`
	Provider    string           `json:"provider"`
	Breakpoints []cdn.Breakpoint `json:"breakpoints"`
	cdn.Options
}

func (s *Server) handleCDNResponsiveURLs(args json.RawMessage) (interface{}, error) {
	var a cdnResponsiveURLsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	provider, err := s.provider(a.Provider)
	if err != nil {
		return nil, err
	}
	urls, err := s.cdn.BuildResponsiveURLs(a.Path, a.Breakpoints, a.Options, provider)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"provider": provider,
		"urls":     urls,
	}, nil
}

type cdnPictureMarkupArgs struct {
	Path        string           `json:"path"`
	Alt         string           `json:"alt"`
	Breakpoints []cdn.Breakpoint `json:"breakpoints"`
	Quality     int              `json:"quality"`
	Sizes       string           `json:"sizes"`
	Provider    string           `json:"provider"`
}

func (s *Server) handleCDNPictureMarkup(args json.RawMessage) (interface{}, error) {
	var a cdnPictureMarkupArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	provider, err := s.provider(a.Provider)
	if err != nil {
		return nil, err
	}
	html, err := s.cdn.GeneratePictureMarkup(a.Path, a.Alt, cdn.PictureOptions{
		Breakpoints: a.Breakpoints,
		Quality:     a.Quality,
		Sizes:       a.Sizes,
		Provider:    provider,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"provider": provider,
		"html":     html,
	}, nil
}
