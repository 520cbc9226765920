package server

import (
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
)

// createStampImageFile writes a white PNG with red disks {x, y, r} and returns its path.
func createStampImageFile(t *testing.T, width, height int, disks ...[3]int) string {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			for _, d := range disks {
				dx, dy := x-d[0], y-d[1]
				if dx*dx+dy*dy <= d[2]*d[2] {
					c = color.NRGBA{255, 0, 0, 255}
				}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "stamp.png")
	if err := imaging.SavePNG(img, path); err != nil {
		t.Fatalf("failed to save test image: %v", err)
	}
	return path
}

// callTool sends a tools/call request through the request router.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	params, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unmarshals the JSON text content of a successful call.
func decodeToolResult(t *testing.T, resp *MCPResponse, dest interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content = %v, want one entry", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type = %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), dest); err != nil {
		t.Fatalf("invalid tool result %q: %v", text, err)
	}
}

func expectError(t *testing.T, resp *MCPResponse, code int) {
	t.Helper()
	if resp.Error == nil {
		t.Fatalf("expected error code %d, got result %v", code, resp.Result)
	}
	if resp.Error.Code != code {
		t.Errorf("error code = %d, want %d (%v)", resp.Error.Code, code, resp.Error.Data)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 100, 80)

	var info imaging.ImageInfo
	decodeToolResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": path}), &info)

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("dimensions = %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("format = %s, want png", info.Format)
	}
	if info.FileSizeBytes <= 0 {
		t.Errorf("file size = %d, want > 0", info.FileSizeBytes)
	}
}

func TestHandleToolsCall_SampleColor(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 100, 100, [3]int{50, 50, 20})

	tests := []struct {
		name      string
		x, y      int
		color     string
		wantHex   string
		wantMatch bool
	}{
		{"inside stamp", 50, 50, "", "#FF0000", true},
		{"background", 5, 5, "", "#FFFFFF", false},
		{"inside stamp, blue target", 50, 50, "#0000ff", "#FF0000", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			args := map[string]interface{}{"path": path, "x": tc.x, "y": tc.y}
			if tc.color != "" {
				args["color"] = tc.color
			}
			var res struct {
				Hex     string `json:"hex"`
				Target  string `json:"target"`
				Matches bool   `json:"matches"`
			}
			decodeToolResult(t, callTool(t, s, "stamp_sample_color", args), &res)

			if res.Hex != tc.wantHex {
				t.Errorf("hex = %s, want %s", res.Hex, tc.wantHex)
			}
			if res.Matches != tc.wantMatch {
				t.Errorf("matches = %v, want %v", res.Matches, tc.wantMatch)
			}
		})
	}
}

func TestHandleToolsCall_SampleColor_OutOfBounds(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 10, 10)

	resp := callTool(t, s, "stamp_sample_color", map[string]interface{}{"path": path, "x": 10, "y": 0})
	expectError(t, resp, CodeToolFailed)
}

func TestHandleToolsCall_SuggestColors(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 100, 100, [3]int{50, 50, 30})

	var res imaging.SuggestedColorsResult
	decodeToolResult(t, callTool(t, s, "stamp_suggest_colors", map[string]interface{}{"path": path}), &res)

	// White paper is unsaturated, so the stamp is the only candidate.
	if len(res.Colors) != 1 {
		t.Fatalf("got %d colors, want 1: %+v", len(res.Colors), res.Colors)
	}
	if res.Colors[0].Hex != "#F00000" {
		t.Errorf("hex = %s, want #F00000", res.Colors[0].Hex)
	}
}

func TestHandleToolsCall_DetectCircles(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 200, 200, [3]int{100, 100, 40})

	var res DetectCirclesResult
	decodeToolResult(t, callTool(t, s, "stamp_detect_circles", map[string]interface{}{"path": path}), &res)

	if res.Count != 1 || len(res.Circles) != 1 {
		t.Fatalf("got %d circles, want 1", len(res.Circles))
	}
	if res.Strategy != "multi-circle" {
		t.Errorf("strategy = %s, want multi-circle", res.Strategy)
	}
	c := res.Circles[0]
	if c.X < 98 || c.X > 102 || c.Y < 98 || c.Y > 102 {
		t.Errorf("center = (%.1f, %.1f), want near (100, 100)", c.X, c.Y)
	}
	if c.Radius < 37 || c.Radius > 43 {
		t.Errorf("radius = %.1f, want near 40", c.Radius)
	}
}

func TestHandleToolsCall_DetectCircles_SingleBlob(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 200, 200, [3]int{100, 100, 40})

	var res DetectCirclesResult
	decodeToolResult(t, callTool(t, s, "stamp_detect_circles", map[string]interface{}{
		"path":     path,
		"strategy": "single-blob",
	}), &res)

	if len(res.Circles) != 1 {
		t.Fatalf("got %d circles, want 1", len(res.Circles))
	}
	want := imaging.Circle{X: 100, Y: 100, Radius: 50}
	if res.Circles[0] != want {
		t.Errorf("circle = %+v, want %+v", res.Circles[0], want)
	}
}

func TestHandleToolsCall_Extract(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 200, 200, [3]int{100, 100, 40})
	outDir := filepath.Join(t.TempDir(), "out")

	var res ExtractResult
	decodeToolResult(t, callTool(t, s, "stamp_extract", map[string]interface{}{
		"path":       path,
		"output_dir": outDir,
	}), &res)

	if res.Count != 1 || len(res.Stamps) != 1 {
		t.Fatalf("got %d stamps, want 1", len(res.Stamps))
	}
	if res.Mode != "flat-fill" {
		t.Errorf("mode = %s, want flat-fill", res.Mode)
	}
	if res.MatchedPixels == 0 {
		t.Error("matched_pixels should be positive")
	}

	st := res.Stamps[0]
	if st.Index != 1 {
		t.Errorf("index = %d, want 1", st.Index)
	}
	if st.Crop.Width < 90 || st.Crop.Width > 100 || st.Crop.Width != st.Crop.Height {
		t.Errorf("crop = %+v, want a square near 96", st.Crop)
	}
	if st.EncodedImage == nil || st.ImageBase64 == "" || st.MimeType != "image/png" {
		t.Fatal("stamp should carry a base64 PNG")
	}
	if st.Width != st.Crop.Width || st.Height != st.Crop.Height {
		t.Errorf("image %dx%d does not match crop %+v", st.Width, st.Height, st.Crop)
	}

	if st.File != filepath.Join(outDir, "stamp_1.png") {
		t.Errorf("file = %s", st.File)
	}
	if _, err := os.Stat(st.File); err != nil {
		t.Errorf("stamp file not written: %v", err)
	}
}

func TestHandleToolsCall_Extract_NotFound(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 100, 100, [3]int{50, 50, 20})

	resp := callTool(t, s, "stamp_extract", map[string]interface{}{
		"path":     path,
		"color":    "#0000FF",
		"strategy": "single-blob",
	})
	expectError(t, resp, CodeToolFailed)
	if data, _ := resp.Error.Data.(string); !strings.Contains(data, "no stamp detected") {
		t.Errorf("error data = %v, want it to mention no stamp detected", resp.Error.Data)
	}
}

func TestHandleToolsCall_Extract_NoCircles(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 100, 100, [3]int{50, 50, 20})

	var res ExtractResult
	decodeToolResult(t, callTool(t, s, "stamp_extract", map[string]interface{}{
		"path":  path,
		"color": "#0000FF",
	}), &res)
	if res.Count != 0 || len(res.Stamps) != 0 {
		t.Errorf("got %d stamps, want 0", len(res.Stamps))
	}
}

func TestHandleToolsCall_Recolor(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 120, 90, [3]int{60, 45, 20})

	var res imaging.EncodedImage
	decodeToolResult(t, callTool(t, s, "stamp_recolor", map[string]interface{}{
		"path":       path,
		"fill_color": "#0000FF",
	}), &res)

	if res.Width != 120 || res.Height != 90 {
		t.Errorf("dimensions = %dx%d, want 120x90", res.Width, res.Height)
	}
	if res.ImageBase64 == "" {
		t.Error("image should not be empty")
	}
}

func TestHandleToolsCall_Annotate(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 200, 200, [3]int{100, 100, 40})

	var res AnnotateResult
	decodeToolResult(t, callTool(t, s, "stamp_annotate", map[string]interface{}{"path": path}), &res)

	if len(res.Circles) != 1 {
		t.Errorf("got %d circles, want 1", len(res.Circles))
	}
	if res.EncodedImage == nil || res.Width != 200 || res.Height != 200 {
		t.Errorf("annotated image = %+v, want 200x200", res.EncodedImage)
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	path := createStampImageFile(t, 50, 50, [3]int{25, 25, 10})

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
	}{
		{"missing path", "image_load", map[string]interface{}{}},
		{"unknown tool", "stamp_vectorize", map[string]interface{}{"path": path}},
		{"bad color", "stamp_detect_circles", map[string]interface{}{"path": path, "color": "vermilion"}},
		{"bad strategy", "stamp_detect_circles", map[string]interface{}{"path": path, "strategy": "square"}},
		{"bad mode", "stamp_extract", map[string]interface{}{"path": path, "mode": "sepia"}},
		{"bad fill", "stamp_recolor", map[string]interface{}{"path": path, "fill_color": "#12"}},
		{"bad outline", "stamp_annotate", map[string]interface{}{"path": path, "outline_color": "green"}},
		{"wrong type", "stamp_sample_color", map[string]interface{}{"path": path, "x": "left", "y": 0}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expectError(t, callTool(t, s, tc.tool, tc.args), CodeInvalidParams)
		})
	}
}

func TestHandleToolsCall_MalformedParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`[1, 2, 3]`),
	})
	expectError(t, resp, CodeInvalidParams)
}

func TestHandleToolsCall_MissingFile(t *testing.T) {
	s := newTestServer(t)
	resp := callTool(t, s, "image_load", map[string]interface{}{
		"path": filepath.Join(t.TempDir(), "absent.png"),
	})
	expectError(t, resp, CodeToolFailed)
}
