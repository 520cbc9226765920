package imaging

import (
	"fmt"
	"image"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ClassifyMode selects how pixels are tested against the target color.
type ClassifyMode string

const (
	// ClassifyHSV matches a hue window plus saturation and value ranges.
	ClassifyHSV ClassifyMode = "hsv"

	// ClassifyRGB matches with the dominant-channel heuristic.
	ClassifyRGB ClassifyMode = "rgb"
)

// Range is an inclusive integer interval.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v int) bool {
	return v >= r.Min && v <= r.Max
}

// RGBThresholds calibrate the dominant-channel heuristic.
//
// A pixel matches when its dominant channel d (the channel that is largest
// in the target color; red for a red stamp) and the larger of the other two
// channels o satisfy:
//
//	d > Floor && d > o*Ratio && d-o > Diff
type RGBThresholds struct {
	Floor int     `json:"floor"`
	Ratio float64 `json:"ratio"`
	Diff  int     `json:"diff"`
}

var (
	// DefaultRGBThresholds is the permissive calibration used for faded or
	// photographed stamps.
	DefaultRGBThresholds = RGBThresholds{Floor: 40, Ratio: 1.15, Diff: 15}

	// StrictRGBThresholds only accepts bright, strongly dominant pixels.
	StrictRGBThresholds = RGBThresholds{Floor: 150, Ratio: 1.5, Diff: 0}
)

// ClassifyOptions configure Classify.
type ClassifyOptions struct {
	Mode            ClassifyMode
	HueTolerance    int   // Half-range hue units on each side of the target hue
	SaturationRange Range // Accepted saturation, 0-255
	ValueRange      Range // Accepted value, 0-255
	RGB             RGBThresholds
}

// DefaultClassifyOptions returns the HSV window of ±10 hue units with
// saturation and value in [50, 255].
func DefaultClassifyOptions() ClassifyOptions {
	return ClassifyOptions{
		Mode:            ClassifyHSV,
		HueTolerance:    10,
		SaturationRange: Range{Min: 50, Max: 255},
		ValueRange:      Range{Min: 50, Max: 255},
		RGB:             DefaultRGBThresholds,
	}
}

// Validate checks option ranges.
func (o ClassifyOptions) Validate() error {
	switch o.Mode {
	case ClassifyHSV, ClassifyRGB:
	default:
		return fmt.Errorf("%w: unknown classify mode %q", ErrInvalidInput, o.Mode)
	}
	if o.HueTolerance < 0 {
		return fmt.Errorf("%w: negative hue tolerance %d", ErrInvalidInput, o.HueTolerance)
	}
	for name, r := range map[string]Range{"saturation": o.SaturationRange, "value": o.ValueRange} {
		if r.Min < 0 || r.Max > 255 || r.Min > r.Max {
			return fmt.Errorf("%w: %s range [%d,%d] outside [0,255]", ErrInvalidInput, name, r.Min, r.Max)
		}
	}
	if o.RGB.Ratio < 0 {
		return fmt.Errorf("%w: negative RGB ratio threshold %v", ErrInvalidInput, o.RGB.Ratio)
	}
	return nil
}

// HueWindow is the set of half-range hues accepted around a target hue.
//
// When the band crosses the 0/180 boundary (Low > High) the window is the
// union of [0, High] and [Low, 179].
type HueWindow struct {
	Low   int
	High  int
	Wraps bool
	All   bool
}

// NewHueWindow builds the window target±tolerance on the 180-unit hue circle.
// A tolerance of 90 or more covers the whole circle.
func NewHueWindow(target, tolerance int) HueWindow {
	if tolerance >= 90 {
		return HueWindow{Low: 0, High: 179, All: true}
	}
	low := ((target-tolerance)%180 + 180) % 180
	high := (target + tolerance) % 180
	return HueWindow{Low: low, High: high, Wraps: low > high}
}

// Contains reports whether hue h falls inside the window.
func (w HueWindow) Contains(h int) bool {
	switch {
	case w.All:
		return true
	case w.Wraps:
		return h <= w.High || h >= w.Low
	default:
		return h >= w.Low && h <= w.High
	}
}

// Classifier decides per pixel whether it belongs to the target color.
type Classifier struct {
	opts     ClassifyOptions
	window   HueWindow
	dominant int // index of the target's largest channel: 0=R, 1=G, 2=B
}

// NewClassifier prepares a classifier for spec.
func NewClassifier(spec ColorSpec, opts ClassifyOptions) (*Classifier, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	dominant := 0
	if spec.G > spec.R && spec.G >= spec.B {
		dominant = 1
	} else if spec.B > spec.R && spec.B > spec.G {
		dominant = 2
	}

	return &Classifier{
		opts:     opts,
		window:   NewHueWindow(spec.HSV().H, opts.HueTolerance),
		dominant: dominant,
	}, nil
}

// Window returns the hue window used in HSV mode.
func (c *Classifier) Window() HueWindow {
	return c.window
}

// Match classifies one non-premultiplied pixel. Fully transparent pixels
// never match.
func (c *Classifier) Match(r, g, b, a uint8) bool {
	if a == 0 {
		return false
	}
	if c.opts.Mode == ClassifyRGB {
		return c.matchRGB(r, g, b)
	}
	hsv := RGBToHSV(r, g, b)
	return c.window.Contains(hsv.H) &&
		c.opts.SaturationRange.Contains(hsv.S) &&
		c.opts.ValueRange.Contains(hsv.V)
}

func (c *Classifier) matchRGB(r, g, b uint8) bool {
	ch := [3]int{int(r), int(g), int(b)}
	d := ch[c.dominant]
	o := 0
	for i, v := range ch {
		if i != c.dominant && v > o {
			o = v
		}
	}
	t := c.opts.RGB
	return d > t.Floor && float64(d) > float64(o)*t.Ratio && d-o > t.Diff
}

// Classify builds the RegionMask of img for spec.
//
// Rows are split into bands classified concurrently; every band writes a
// disjoint slice of the mask, so the result is identical to a serial scan.
// An image with no matching pixel yields an all-off mask and no error.
func Classify(img *image.NRGBA, spec ColorSpec, opts ClassifyOptions) (*RegionMask, error) {
	if err := ValidateImage(img); err != nil {
		return nil, err
	}
	c, err := NewClassifier(spec, opts)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := NewRegionMask(w, h)

	workers := runtime.GOMAXPROCS(0)
	if workers > h {
		workers = h
	}
	band := (h + workers - 1) / workers

	var g errgroup.Group
	for y0 := 0; y0 < h; y0 += band {
		y0 := y0
		y1 := y0 + band
		if y1 > h {
			y1 = h
		}
		g.Go(func() error {
			for y := y0; y < y1; y++ {
				off := img.PixOffset(b.Min.X, b.Min.Y+y)
				row := mask.Pix[y*w : (y+1)*w]
				for x := 0; x < w; x++ {
					p := img.Pix[off+4*x : off+4*x+4 : off+4*x+4]
					if c.Match(p[0], p[1], p[2], p[3]) {
						row[x] = MaskOn
					}
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	return mask, nil
}
