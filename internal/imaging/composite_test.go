package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

// createStampImage draws a filled disk of c on a white canvas.
func createStampImage(width, height int, cx, cy, r float64, c color.NRGBA) *image.NRGBA {
	img := createInMemoryImage(width, height, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return img
}

func flatFill(fill ColorSpec) CompositeOptions {
	return CompositeOptions{Mode: CompositeFlatFill, Scale: DefaultCropScale, Fill: fill}
}

func TestCropBox(t *testing.T) {
	tests := []struct {
		name          string
		circle        Circle
		width, height int
		want          image.Rectangle
	}{
		{"centered", Circle{100, 100, 40}, 200, 200, image.Rect(52, 52, 148, 148)},
		{"top-left edge", Circle{10, 10, 40}, 200, 200, image.Rect(0, 0, 96, 96)},
		{"right edge", Circle{190, 100, 40}, 200, 200, image.Rect(104, 52, 200, 148)},
		{"bottom edge", Circle{100, 195, 40}, 200, 200, image.Rect(52, 104, 148, 200)},
		{"larger than image", Circle{50, 40, 100}, 100, 80, image.Rect(0, 0, 100, 80)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CropBox(tc.circle, DefaultCropScale, tc.width, tc.height)
			if err != nil {
				t.Fatalf("CropBox failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("CropBox = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCropBox_AlwaysInside(t *testing.T) {
	const w, h = 120, 90
	for cx := -20.0; cx <= 140; cx += 7.5 {
		for cy := -20.0; cy <= 110; cy += 6.5 {
			for _, r := range []float64{1, 5.5, 30, 80, 200} {
				box, err := CropBox(Circle{cx, cy, r}, DefaultCropScale, w, h)
				if err != nil {
					t.Fatalf("CropBox(%v,%v,%v) failed: %v", cx, cy, r, err)
				}
				if box.Min.X < 0 || box.Min.Y < 0 || box.Max.X > w || box.Max.Y > h || box.Empty() {
					t.Fatalf("CropBox(%v,%v,%v) = %v escapes %dx%d", cx, cy, r, box, w, h)
				}
			}
		}
	}
}

func TestCropBox_Degenerate(t *testing.T) {
	for _, r := range []float64{0, -5, 0.1} {
		if _, err := CropBox(Circle{10, 10, r}, DefaultCropScale, 50, 50); !errors.Is(err, ErrGeometryDegenerate) {
			t.Errorf("radius %v: got %v, want ErrGeometryDegenerate", r, err)
		}
	}
	if _, err := CropBox(Circle{10, 10, 5}, 0, 50, 50); !errors.Is(err, ErrGeometryDegenerate) {
		t.Errorf("zero scale: got %v, want ErrGeometryDegenerate", err)
	}
}

func TestComposite_FlatFill(t *testing.T) {
	src := createStampImage(200, 200, 100, 100, 40, color.NRGBA{255, 0, 0, 255})
	mask, err := Classify(src, RGB(255, 0, 0), DefaultClassifyOptions())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	stamp, err := Composite(src, mask, Circle{100, 100, 40}, flatFill(RGB(0, 0, 255)))
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	if stamp.Bounds != image.Rect(52, 52, 148, 148) {
		t.Errorf("Bounds: got %v, want (52,52)-(148,148)", stamp.Bounds)
	}
	if stamp.Image.Bounds() != image.Rect(0, 0, 96, 96) {
		t.Fatalf("image bounds: got %v, want 96x96", stamp.Image.Bounds())
	}

	tests := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{"center", 48, 48, color.NRGBA{0, 0, 255, 255}},
		{"inside stamp", 20, 48, color.NRGBA{0, 0, 255, 255}},
		{"corner outside disk", 0, 0, color.NRGBA{}},
		{"inside disk but background", 48, 4, color.NRGBA{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stamp.Image.NRGBAAt(tc.x, tc.y); got != tc.want {
				t.Errorf("pixel (%d,%d): got %v, want %v", tc.x, tc.y, got, tc.want)
			}
		})
	}
}

func TestComposite_PassThrough(t *testing.T) {
	src := createStampImage(100, 100, 50, 50, 20, color.NRGBA{220, 10, 10, 200})
	mask, err := Classify(src, RGB(255, 0, 0), DefaultClassifyOptions())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	opts := CompositeOptions{Mode: CompositePassThrough, Scale: DefaultCropScale}
	stamp, err := Composite(src, mask, Circle{50, 50, 20}, opts)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}

	// scaled radius 24 -> 48px crop starting at (26,26)
	if got := stamp.Image.NRGBAAt(24, 24); got != (color.NRGBA{220, 10, 10, 200}) {
		t.Errorf("center: got %v, want source color with alpha 200", got)
	}
	if got := stamp.Image.NRGBAAt(0, 0); got.A != 0 {
		t.Errorf("corner should be transparent, got %v", got)
	}
}

func TestComposite_EdgeTolerance(t *testing.T) {
	src := createInMemoryImage(10, 10, color.NRGBA{255, 0, 0, 255})
	mask, err := Classify(src, RGB(255, 0, 0), DefaultClassifyOptions())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	opts := flatFill(RGB(255, 0, 0))
	opts.Scale = 1.25

	exact, err := Composite(src, mask, Circle{5, 5, 4}, opts)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if exact.Image.NRGBAAt(0, 0).A != 0 {
		t.Error("corner should fall outside the exact inscribed disk")
	}

	opts.EdgeTolerance = 2
	widened, err := Composite(src, mask, Circle{5, 5, 4}, opts)
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if widened.Image.NRGBAAt(0, 0).A != 255 {
		t.Error("corner should be inside the widened disk")
	}
}

func TestComposite_ClampedCropKeepsMaskAligned(t *testing.T) {
	// Stamp touching the left edge: the crop slides right and the mask must
	// be read at the shifted offsets.
	src := createStampImage(120, 120, 20, 60, 20, color.NRGBA{255, 0, 0, 255})
	mask, err := Classify(src, RGB(255, 0, 0), DefaultClassifyOptions())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	stamp, err := Composite(src, mask, Circle{20, 60, 20}, flatFill(RGB(255, 0, 0)))
	if err != nil {
		t.Fatalf("Composite failed: %v", err)
	}
	if stamp.Bounds.Min.X != 0 {
		t.Fatalf("crop should be clamped to x=0, got %v", stamp.Bounds)
	}
	// Source pixel (20,60) is the stamp center.
	p := image.Pt(20, 60).Sub(stamp.Bounds.Min)
	if got := stamp.Image.NRGBAAt(p.X, p.Y); got.A != 255 {
		t.Errorf("stamp center in crop: got %v, want opaque fill", got)
	}
}

func TestComposite_InvalidInput(t *testing.T) {
	src := createInMemoryImage(20, 20, color.White)
	mask := NewRegionMask(10, 10)
	if _, err := Composite(src, mask, Circle{10, 10, 5}, flatFill(RGB(255, 0, 0))); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("mismatched mask: got %v, want ErrInvalidInput", err)
	}

	mask = NewRegionMask(20, 20)
	bad := flatFill(RGB(255, 0, 0))
	bad.Mode = "sepia"
	if _, err := Composite(src, mask, Circle{10, 10, 5}, bad); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad mode: got %v, want ErrInvalidInput", err)
	}

	if _, err := Composite(src, mask, Circle{10, 10, 0}, flatFill(RGB(255, 0, 0))); !errors.Is(err, ErrGeometryDegenerate) {
		t.Errorf("zero radius: got %v, want ErrGeometryDegenerate", err)
	}
}

func TestRecolor(t *testing.T) {
	mask := NewRegionMask(4, 3)
	mask.Set(1, 1)
	mask.Set(3, 2)

	out := Recolor(mask, ColorSpec{0, 0, 255, 128})
	if out.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Fatalf("bounds: got %v, want 4x3", out.Bounds())
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			got := out.NRGBAAt(x, y)
			if mask.Matches(x, y) {
				if got != (color.NRGBA{0, 0, 255, 128}) {
					t.Errorf("(%d,%d): got %v, want fill", x, y, got)
				}
			} else if got.A != 0 {
				t.Errorf("(%d,%d): got %v, want transparent", x, y, got)
			}
		}
	}
}
