package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
	"github.com/ironsheep/stamp-tools-mcp/internal/stamp"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "stamp_extract").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// paramsError marks a failure caused by malformed tool arguments.
type paramsError struct {
	err error
}

func (e *paramsError) Error() string { return e.err.Error() }
func (e *paramsError) Unwrap() error { return e.err }

func invalidParams(format string, args ...interface{}) error {
	return &paramsError{err: fmt.Errorf(format, args...)}
}

// decodeArgs unmarshals tool arguments and requires a path.
func decodeArgs(args json.RawMessage, dest interface{ imagePath() string }) error {
	if len(args) == 0 {
		args = []byte("{}")
	}
	if err := json.Unmarshal(args, dest); err != nil {
		return &paramsError{err: fmt.Errorf("invalid arguments: %w", err)}
	}
	if dest.imagePath() == "" {
		return invalidParams("path is required")
	}
	return nil
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed arguments return -32602; any other tool failure returns a
// JSON-RPC error with code -32000 and the error text as data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Error("tool failed",
			zap.String("tool", params.Name),
			zap.Duration("cost", time.Since(start)),
			zap.Error(err),
		)
		var pe *paramsError
		if errors.As(err, &pe) {
			return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, CodeToolFailed, "Tool execution failed", err.Error())
	}
	s.logger.Info("tool call",
		zap.String("tool", params.Name),
		zap.Duration("cost", time.Since(start)),
	)

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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)

	// Color Operations
	case "stamp_sample_color":
		return s.handleSampleColor(args)
	case "stamp_suggest_colors":
		return s.handleSuggestColors(args)

	// Stamp Operations
	case "stamp_detect_circles":
		return s.handleDetectCircles(args)
	case "stamp_extract":
		return s.handleExtract(args)
	case "stamp_recolor":
		return s.handleRecolor(args)
	case "stamp_annotate":
		return s.handleAnnotate(args)

	default:
		return nil, invalidParams("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// targetColor parses hex, falling back to the configured default.
func (s *Server) targetColor(hex string) (imaging.ColorSpec, error) {
	if hex == "" {
		return s.defaultColor, nil
	}
	c, err := imaging.ParseHexColor(hex)
	if err != nil {
		return imaging.ColorSpec{}, &paramsError{err: err}
	}
	return c, nil
}

// pipeline builds a pipeline from the server defaults with per-call
// overrides. Empty arguments keep the defaults.
func (s *Server) pipeline(strategy, mode, fillColor string) (*stamp.Pipeline, error) {
	opts := s.opts
	if strategy != "" {
		opts.Strategy = stamp.Strategy(strategy)
	}
	if mode != "" {
		opts.Mode = imaging.CompositeMode(mode)
	}
	if fillColor != "" {
		fill, err := imaging.ParseHexColor(fillColor)
		if err != nil {
			return nil, &paramsError{err: fmt.Errorf("fill_color: %w", err)}
		}
		opts.FillColor = &fill
	}
	p, err := stamp.New(opts, s.logger)
	if err != nil {
		return nil, &paramsError{err: err}
	}
	return p, nil
}

// === Image Information ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (a *imageLoadArgs) imagePath() string { return a.Path }

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Color Operations ===

type sampleColorArgs struct {
	Path  string `json:"path"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

func (a *sampleColorArgs) imagePath() string { return a.Path }

// SampleColorResult is a pixel color plus its classification.
type SampleColorResult struct {
	*imaging.ColorResult

	// Target is the stamp color the pixel was tested against.
	Target string `json:"target"`

	// Matches reports whether the classifier accepts the pixel.
	Matches bool `json:"matches"`
}

func (s *Server) handleSampleColor(args json.RawMessage) (interface{}, error) {
	var a sampleColorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	target, err := s.targetColor(a.Color)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	sample, err := imaging.SampleColor(img, a.X, a.Y)
	if err != nil {
		return nil, err
	}
	classifier, err := imaging.NewClassifier(target, s.opts.Classify)
	if err != nil {
		return nil, err
	}
	return &SampleColorResult{
		ColorResult: sample,
		Target:      target.Hex(),
		Matches:     classifier.Match(sample.RGBA.R, sample.RGBA.G, sample.RGBA.B, sample.RGBA.A),
	}, nil
}

type suggestColorsArgs struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func (a *suggestColorsArgs) imagePath() string { return a.Path }

func (s *Server) handleSuggestColors(args json.RawMessage) (interface{}, error) {
	var a suggestColorsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Count <= 0 {
		a.Count = 5
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.SuggestStampColors(img, a.Count, s.opts.Classify), nil
}

// === Stamp Operations ===

type detectCirclesArgs struct {
	Path     string `json:"path"`
	Color    string `json:"color"`
	Strategy string `json:"strategy"`
}

func (a *detectCirclesArgs) imagePath() string { return a.Path }

// DetectCirclesResult lists located stamps, largest first.
type DetectCirclesResult struct {
	Color    string           `json:"color"`
	Strategy string           `json:"strategy"`
	Count    int              `json:"count"`
	Circles  []imaging.Circle `json:"circles"`
}

func (s *Server) handleDetectCircles(args json.RawMessage) (interface{}, error) {
	var a detectCirclesArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	target, err := s.targetColor(a.Color)
	if err != nil {
		return nil, err
	}
	p, err := s.pipeline(a.Strategy, "", "")
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	circles, err := p.DetectCircles(img, target)
	if err != nil {
		return nil, err
	}
	return &DetectCirclesResult{
		Color:    target.Hex(),
		Strategy: string(p.Options().Strategy),
		Count:    len(circles),
		Circles:  circles,
	}, nil
}

type extractArgs struct {
	Path      string `json:"path"`
	Color     string `json:"color"`
	FillColor string `json:"fill_color"`
	Mode      string `json:"mode"`
	Strategy  string `json:"strategy"`
	OutputDir string `json:"output_dir"`
}

func (a *extractArgs) imagePath() string { return a.Path }

// CropBox is a rectangle in source image coordinates.
type CropBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ExtractedStamp is one stamp in an ExtractResult.
type ExtractedStamp struct {
	Index  int            `json:"index"`
	Circle imaging.Circle `json:"circle"`
	Crop   CropBox        `json:"crop"`
	File   string         `json:"file,omitempty"`
	*imaging.EncodedImage
}

// ExtractResult is the output of stamp_extract.
type ExtractResult struct {
	Color         string           `json:"color"`
	Mode          string           `json:"mode"`
	Strategy      string           `json:"strategy"`
	MatchedPixels int              `json:"matched_pixels"`
	Count         int              `json:"count"`
	Stamps        []ExtractedStamp `json:"stamps"`
}

func (s *Server) handleExtract(args json.RawMessage) (interface{}, error) {
	var a extractArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	target, err := s.targetColor(a.Color)
	if err != nil {
		return nil, err
	}
	p, err := s.pipeline(a.Strategy, a.Mode, a.FillColor)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	res, err := p.Extract(img, target, "")
	if err != nil {
		return nil, err
	}

	if a.OutputDir != "" {
		if err := os.MkdirAll(a.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out := &ExtractResult{
		Color:         target.Hex(),
		Mode:          string(p.Options().Mode),
		Strategy:      string(p.Options().Strategy),
		MatchedPixels: res.MatchedPixels,
		Count:         len(res.Stamps),
		Stamps:        make([]ExtractedStamp, 0, len(res.Stamps)),
	}
	for i, st := range res.Stamps {
		enc, err := imaging.EncodePNGBase64(st.Image)
		if err != nil {
			return nil, err
		}
		es := ExtractedStamp{
			Index:  i + 1,
			Circle: st.Circle,
			Crop: CropBox{
				X:      st.Bounds.Min.X,
				Y:      st.Bounds.Min.Y,
				Width:  st.Bounds.Dx(),
				Height: st.Bounds.Dy(),
			},
			EncodedImage: enc,
		}
		if a.OutputDir != "" {
			es.File = filepath.Join(a.OutputDir, fmt.Sprintf("stamp_%d.png", i+1))
			if err := imaging.SavePNG(st.Image, es.File); err != nil {
				return nil, err
			}
		}
		out.Stamps = append(out.Stamps, es)
	}
	return out, nil
}

type recolorArgs struct {
	Path      string `json:"path"`
	Color     string `json:"color"`
	FillColor string `json:"fill_color"`
}

func (a *recolorArgs) imagePath() string { return a.Path }

func (s *Server) handleRecolor(args json.RawMessage) (interface{}, error) {
	var a recolorArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	target, err := s.targetColor(a.Color)
	if err != nil {
		return nil, err
	}
	p, err := s.pipeline("", "", a.FillColor)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	recolored, err := p.Recolor(img, target)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNGBase64(recolored)
}

type annotateArgs struct {
	Path         string `json:"path"`
	Color        string `json:"color"`
	Strategy     string `json:"strategy"`
	OutlineColor string `json:"outline_color"`
}

func (a *annotateArgs) imagePath() string { return a.Path }

// AnnotateResult is the outlined image plus the circles drawn on it.
type AnnotateResult struct {
	Circles []imaging.Circle `json:"circles"`
	*imaging.EncodedImage
}

func (s *Server) handleAnnotate(args json.RawMessage) (interface{}, error) {
	var a annotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.OutlineColor == "" {
		a.OutlineColor = "#00FF00"
	}
	outline, err := imaging.ParseHexColor(a.OutlineColor)
	if err != nil {
		return nil, &paramsError{err: fmt.Errorf("outline_color: %w", err)}
	}
	target, err := s.targetColor(a.Color)
	if err != nil {
		return nil, err
	}
	p, err := s.pipeline(a.Strategy, "", "")
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	circles, err := p.DetectCircles(img, target)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.EncodePNGBase64(imaging.Annotate(img, circles, outline))
	if err != nil {
		return nil, err
	}
	return &AnnotateResult{Circles: circles, EncodedImage: enc}, nil
}
