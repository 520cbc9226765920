package httpapi

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/stamp-tools-mcp/internal/config"
	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// createStampPNG encodes a white image with a red disk of radius r at (cx, cy).
func createStampPNG(t *testing.T, w, h, cx, cy, r int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= r*r {
				c = color.NRGBA{255, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return data
}

// newUpload builds a multipart request for /api/stamp/process.
func newUpload(t *testing.T, data []byte, contentType string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if data != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="stamp.png"`)
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart failed: %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part failed: %v", err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField failed: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipart close failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/stamp/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestRouter(t *testing.T, modify func(*config.Config)) *gin.Engine {
	t.Helper()
	cfg := config.Default()
	if modify != nil {
		modify(cfg)
	}
	return NewRouter(cfg, nil, nil, BuildInfo{Version: "test", BuildTime: "now", GitCommit: "abc"})
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type processResponse struct {
	Success bool        `json:"success"`
	Data    ProcessData `json:"data"`
}

type detectResponse struct {
	Success bool             `json:"success"`
	Data    []imaging.Circle `json:"data"`
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, nil)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]string
	decodeJSON(t, w, &body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestVersion(t *testing.T) {
	r := newTestRouter(t, nil)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/version", nil))

	var info BuildInfo
	decodeJSON(t, w, &info)
	if info.GitCommit != "abc" || info.BuildTime != "now" {
		t.Errorf("info = %+v", info)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t, nil)
	w := serve(r, httptest.NewRequest(http.MethodOptions, "/api/stamp/process", nil))

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestProcess_Extract(t *testing.T) {
	r := newTestRouter(t, nil)
	data := createStampPNG(t, 200, 200, 100, 100, 40)

	w := serve(r, newUpload(t, data, "image/png", map[string]string{"color": "#ff0000"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp processResponse
	decodeJSON(t, w, &resp)
	if !resp.Success {
		t.Error("success should be true")
	}
	if len(resp.Data.Stamps) != 1 {
		t.Fatalf("got %d stamps, want 1", len(resp.Data.Stamps))
	}
	if !strings.HasPrefix(resp.Data.Stamps[0], "data:image/png;base64,") {
		t.Errorf("stamp is not a PNG data URL: %.40s", resp.Data.Stamps[0])
	}
	if len(resp.Data.Circles) != 0 {
		t.Errorf("circles should be omitted unless requested, got %v", resp.Data.Circles)
	}
}

func TestProcess_ReturnCircles(t *testing.T) {
	r := newTestRouter(t, nil)
	data := createStampPNG(t, 200, 200, 100, 100, 40)

	w := serve(r, newUpload(t, data, "image/png", map[string]string{"returnCircles": "true"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp processResponse
	decodeJSON(t, w, &resp)
	if len(resp.Data.Stamps) != 1 || len(resp.Data.Circles) != 1 {
		t.Fatalf("got %d stamps and %d circles, want 1 and 1",
			len(resp.Data.Stamps), len(resp.Data.Circles))
	}
	c := resp.Data.Circles[0]
	if c.X < 98 || c.X > 102 || c.Y < 98 || c.Y > 102 {
		t.Errorf("circle center = (%.1f, %.1f), want near (100, 100)", c.X, c.Y)
	}
}

func TestProcess_DetectOnly(t *testing.T) {
	r := newTestRouter(t, nil)
	data := createStampPNG(t, 200, 200, 100, 100, 40)

	w := serve(r, newUpload(t, data, "image/png", map[string]string{
		"detectOnly": "true",
		"strategy":   "single-blob",
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp detectResponse
	decodeJSON(t, w, &resp)
	if len(resp.Data) != 1 {
		t.Fatalf("got %d circles, want 1", len(resp.Data))
	}
	// Radius is ceil(40) + default margin 10.
	if resp.Data[0].Radius != 50 {
		t.Errorf("radius = %v, want 50", resp.Data[0].Radius)
	}
}

func TestProcess_NotFound(t *testing.T) {
	r := newTestRouter(t, nil)
	data := createStampPNG(t, 100, 100, 50, 50, 20)

	// A blue target matches nothing in a red-on-white image.
	w := serve(r, newUpload(t, data, "image/png", map[string]string{
		"color":    "#0000ff",
		"strategy": "single-blob",
	}))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}

	var resp ErrorResponse
	decodeJSON(t, w, &resp)
	if resp.Success || resp.Message != "no stamp detected" {
		t.Errorf("response = %+v", resp)
	}
}

func TestProcess_NoCirclesIsEmptySuccess(t *testing.T) {
	r := newTestRouter(t, nil)
	data := createStampPNG(t, 100, 100, 50, 50, 20)

	w := serve(r, newUpload(t, data, "image/png", map[string]string{"color": "#0000ff"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var resp processResponse
	decodeJSON(t, w, &resp)
	if len(resp.Data.Stamps) != 0 {
		t.Errorf("got %d stamps, want 0", len(resp.Data.Stamps))
	}
}

func TestProcess_BadRequests(t *testing.T) {
	png := createStampPNG(t, 50, 50, 25, 25, 10)

	tests := []struct {
		name        string
		data        []byte
		contentType string
		fields      map[string]string
		modify      func(*config.Config)
	}{
		{name: "missing image", data: nil},
		{name: "unsupported type", data: png, contentType: "text/plain"},
		{name: "bad color", data: png, contentType: "image/png", fields: map[string]string{"color": "crimson"}},
		{name: "bad fill color", data: png, contentType: "image/png", fields: map[string]string{"fill_color": "#12"}},
		{name: "bad mode", data: png, contentType: "image/png", fields: map[string]string{"mode": "sepia"}},
		{name: "bad strategy", data: png, contentType: "image/png", fields: map[string]string{"strategy": "square"}},
		{name: "not an image", data: []byte("plain text"), contentType: "image/png"},
		{
			name: "too large", data: png, contentType: "image/png",
			modify: func(c *config.Config) { c.Upload.MaxSize = 16 },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(t, tc.modify)
			w := serve(r, newUpload(t, tc.data, tc.contentType, tc.fields))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", w.Code, w.Body.String())
			}
			var resp ErrorResponse
			decodeJSON(t, w, &resp)
			if resp.Success || resp.Message == "" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestIsAllowedType(t *testing.T) {
	h := NewStampHandler(config.Default(), nil, nil)
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"IMAGE/JPEG", true},
		{"image/png; charset=binary", true},
		{"image/svg+xml", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := h.isAllowedType(tc.contentType); got != tc.want {
			t.Errorf("isAllowedType(%q) = %v, want %v", tc.contentType, got, tc.want)
		}
	}
}
