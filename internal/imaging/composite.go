package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Circle is a circle in image space. The center is in pixel-index
// coordinates (pixel (x, y) is the point (x, y)); both center and radius may
// be fractional.
type Circle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// CompositeMode selects what the compositor paints inside the disk.
type CompositeMode string

const (
	// CompositeFlatFill paints matched pixels in an opaque fill color.
	CompositeFlatFill CompositeMode = "flat-fill"

	// CompositePassThrough keeps the original colors of matched pixels.
	CompositePassThrough CompositeMode = "pass-through"
)

// DefaultCropScale enlarges the detected radius to leave a margin around the stamp.
const DefaultCropScale = 1.2

// CompositeOptions configure Composite.
type CompositeOptions struct {
	Mode CompositeMode

	// Scale multiplies the circle radius before the crop box is computed.
	Scale float64

	// EdgeTolerance widens the inscribed disk, in pixels, so anti-aliased
	// rims are not clipped. Zero keeps the exact inscribed disk.
	EdgeTolerance float64

	// Fill is the flat-fill color. Ignored in pass-through mode.
	Fill ColorSpec
}

// StampImage is one extracted stamp.
type StampImage struct {
	// Image is the square (or edge-clamped) crop with the circular alpha mask applied.
	Image *image.NRGBA

	// Bounds is the crop box in source image coordinates.
	Bounds image.Rectangle

	// Circle is the detection the crop was made for.
	Circle Circle
}

// Validate checks the composite options.
func (o CompositeOptions) Validate() error {
	switch o.Mode {
	case CompositeFlatFill, CompositePassThrough:
	default:
		return fmt.Errorf("%w: unknown composite mode %q", ErrInvalidInput, o.Mode)
	}
	if !(o.Scale > 0) {
		return fmt.Errorf("%w: crop scale must be positive, got %v", ErrInvalidInput, o.Scale)
	}
	if o.EdgeTolerance < 0 {
		return fmt.Errorf("%w: negative edge tolerance %v", ErrInvalidInput, o.EdgeTolerance)
	}
	return nil
}

// CropBox computes the square crop around circle, clamped inside a
// width x height image.
//
// The ideal box has side round(2*radius*scale) and is centered on the circle.
// If it overflows an edge it is slid inward by the minimum amount, never
// resized; only when the side exceeds the image dimension is the box cut to
// what remains. The returned rectangle always satisfies x>=0, y>=0,
// x+w<=width and y+h<=height.
func CropBox(circle Circle, scale float64, width, height int) (image.Rectangle, error) {
	scaled := circle.Radius * scale
	if !(scaled > 0) || math.IsInf(scaled, 0) {
		return image.Rectangle{}, fmt.Errorf("%w: crop radius %v", ErrGeometryDegenerate, scaled)
	}
	if width <= 0 || height <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: image %dx%d", ErrGeometryDegenerate, width, height)
	}

	size := int(math.Round(2 * scaled))
	if size < 1 {
		return image.Rectangle{}, fmt.Errorf("%w: crop side %d", ErrGeometryDegenerate, size)
	}

	x := clamp(int(math.Round(circle.X-scaled)), 0, max(width-size, 0))
	y := clamp(int(math.Round(circle.Y-scaled)), 0, max(height-size, 0))
	w := min(size, width-x)
	h := min(size, height-y)

	return image.Rect(x, y, x+w, y+h), nil
}

// Composite crops src around circle and applies the inscribed circular mask.
//
// Inside the disk, pixels that mask classified as stamp-colored are painted
// with opts.Fill (flat-fill) or keep their source color and alpha
// (pass-through). Everything else, including every pixel outside the disk,
// is fully transparent.
//
// Parameters:
//   - src: The decoded source image.
//   - mask: The classification of src; must have the same dimensions.
//   - circle: The detected circle, radius > 0.
//   - opts: Mode, scale, edge tolerance and fill color.
//
// Returns an error wrapping ErrGeometryDegenerate when the circle has no
// positive radius, or ErrInvalidInput when the mask does not match src.
func Composite(src *image.NRGBA, mask *RegionMask, circle Circle, opts CompositeOptions) (*StampImage, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	sb := src.Bounds()
	if mask.Width != sb.Dx() || mask.Height != sb.Dy() {
		return nil, fmt.Errorf("%w: mask %dx%d does not match image %dx%d",
			ErrInvalidInput, mask.Width, mask.Height, sb.Dx(), sb.Dy())
	}

	box, err := CropBox(circle, opts.Scale, sb.Dx(), sb.Dy())
	if err != nil {
		return nil, err
	}

	cropped := imaging.Crop(src, box.Add(sb.Min))
	w, h := box.Dx(), box.Dy()

	cx, cy := float64(w)/2, float64(h)/2
	radius := float64(min(w, h))/2 + opts.EdgeTolerance
	r2 := radius * radius

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	fill := opts.Fill.NRGBA()

	for py := 0; py < h; py++ {
		dy := float64(py) + 0.5 - cy
		for px := 0; px < w; px++ {
			dx := float64(px) + 0.5 - cx
			if dx*dx+dy*dy > r2 {
				continue
			}
			if !mask.Matches(box.Min.X+px, box.Min.Y+py) {
				continue
			}
			if opts.Mode == CompositeFlatFill {
				out.SetNRGBA(px, py, fill)
			} else {
				out.SetNRGBA(px, py, cropped.NRGBAAt(px, py))
			}
		}
	}

	return &StampImage{Image: out, Bounds: box, Circle: circle}, nil
}

// Recolor paints every classified pixel in fill on a transparent canvas the
// size of the mask. It is the whole-page counterpart of flat-fill
// compositing, without detection or cropping.
func Recolor(mask *RegionMask, fill ColorSpec) *image.NRGBA {
	out := image.NewNRGBA(mask.Bounds())
	c := fill.NRGBA()
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.Matches(x, y) {
				out.SetNRGBA(x, y, c)
			}
		}
	}
	return out
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
