package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ironsheep/stamp-tools-mcp/internal/cache"
	"github.com/ironsheep/stamp-tools-mcp/internal/config"
	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
	"github.com/ironsheep/stamp-tools-mcp/internal/stamp"
)

// Response is the success envelope.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// ProcessData is the payload of a full extraction.
type ProcessData struct {
	Stamps  []string         `json:"stamps"`
	Circles []imaging.Circle `json:"circles,omitempty"`
}

// processRequest holds the parsed form fields.
type processRequest struct {
	target        imaging.ColorSpec
	fill          *imaging.ColorSpec
	mode          imaging.CompositeMode
	strategy      stamp.Strategy
	detectOnly    bool
	returnCircles bool
}

// fingerprint identifies the request options in the cache key.
func (r processRequest) fingerprint() string {
	fill := ""
	if r.fill != nil {
		fill = r.fill.Hex()
	}
	return fmt.Sprintf("color=%s|fill=%s|mode=%s|strategy=%s|detect=%t|circles=%t",
		r.target.Hex(), fill, r.mode, r.strategy, r.detectOnly, r.returnCircles)
}

// StampHandler serves POST /api/stamp/process.
type StampHandler struct {
	cfg     *config.Config
	results *cache.Cache
	logger  *zap.Logger
}

// NewStampHandler creates a handler. results may be nil.
func NewStampHandler(cfg *config.Config, results *cache.Cache, logger *zap.Logger) *StampHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StampHandler{cfg: cfg, results: results, logger: logger}
}

// Process extracts the stamps from the uploaded image.
func (h *StampHandler) Process(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "image file is required",
			Error:   err.Error(),
		})
		return
	}

	if file.Size > h.cfg.Upload.MaxSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("file exceeds the upload limit (%d bytes)", h.cfg.Upload.MaxSize),
		})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("unsupported file type %q", contentType),
		})
		return
	}

	req, err := h.parseRequest(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	f, err := file.Open()
	if err != nil {
		h.writeError(c, fmt.Errorf("failed to open upload: %w", err))
		return
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		h.writeError(c, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	ctx := c.Request.Context()
	key := cache.Key(data, req.fingerprint())

	var cached interface{}
	hit, err := h.results.Get(ctx, key, &cached)
	if err != nil {
		h.logger.Warn("failed to read result cache", zap.String("key", key), zap.Error(err))
	}
	if hit {
		h.logger.Debug("result cache hit", zap.String("key", key))
		c.JSON(http.StatusOK, Response{Success: true, Data: cached})
		return
	}

	payload, err := h.process(data, req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.results.Set(ctx, key, payload); err != nil {
		h.logger.Warn("failed to write result cache", zap.String("key", key), zap.Error(err))
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: payload})
}

func (h *StampHandler) parseRequest(c *gin.Context) (processRequest, error) {
	var req processRequest

	target, err := imaging.ParseHexColor(c.DefaultPostForm("color", h.cfg.Stamp.DefaultColor))
	if err != nil {
		return req, fmt.Errorf("color: %w", err)
	}
	req.target = target

	if s := c.PostForm("fill_color"); s != "" {
		fill, err := imaging.ParseHexColor(s)
		if err != nil {
			return req, fmt.Errorf("fill_color: %w", err)
		}
		req.fill = &fill
	}

	req.mode = imaging.CompositeMode(c.DefaultPostForm("mode", h.cfg.Stamp.Mode))
	req.strategy = stamp.Strategy(c.DefaultPostForm("strategy", h.cfg.Stamp.Strategy))
	req.detectOnly = c.DefaultPostForm("detectOnly", "false") == "true"
	req.returnCircles = c.DefaultPostForm("returnCircles", "false") == "true"
	return req, nil
}

// process runs the pipeline and returns the response payload.
func (h *StampHandler) process(data []byte, req processRequest) (interface{}, error) {
	opts, err := h.cfg.Stamp.Options()
	if err != nil {
		return nil, err
	}
	opts.Strategy = req.strategy
	opts.Mode = req.mode
	if req.fill != nil {
		opts.FillColor = req.fill
	}

	pipeline, err := stamp.New(opts, h.logger)
	if err != nil {
		return nil, err
	}

	img, format, err := imaging.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	h.logger.Debug("decoded upload",
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
	)

	if req.detectOnly {
		return pipeline.DetectCircles(img, req.target)
	}

	result, err := pipeline.Extract(img, req.target, "")
	if err != nil {
		return nil, err
	}

	out := ProcessData{Stamps: make([]string, 0, len(result.Stamps))}
	for i, s := range result.Stamps {
		enc, err := imaging.EncodePNGBase64(s.Image)
		if err != nil {
			return nil, fmt.Errorf("stamp %d: %w", i+1, err)
		}
		out.Stamps = append(out.Stamps, enc.DataURL())
	}
	if req.returnCircles {
		out.Circles = result.Circles
	}
	return out, nil
}

func (h *StampHandler) isAllowedType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	for _, t := range h.cfg.Upload.AllowedTypes {
		if contentType == t {
			return true
		}
	}
	return false
}

// writeError maps pipeline errors onto HTTP statuses.
func (h *StampHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, stamp.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid request", Error: err.Error()})
	case errors.Is(err, stamp.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "no stamp detected", Error: err.Error()})
	default:
		h.logger.Error("failed to process image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "image processing failed", Error: err.Error()})
	}
	_ = c.Error(err)
}
