package stamp

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/ironsheep/stamp-tools-mcp/internal/detection"
	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
)

// Strategy selects how stamps are located in the classified mask.
type Strategy string

const (
	// StrategyMultiCircle finds up to MaxResults circles with a Hough search.
	StrategyMultiCircle Strategy = "multi-circle"

	// StrategySingleBlob treats every matching pixel as one stamp.
	StrategySingleBlob Strategy = "single-blob"
)

// Compositing modes, re-exported for callers of this package.
const (
	ModeFlatFill    = imaging.CompositeFlatFill
	ModePassThrough = imaging.CompositePassThrough
)

// Options configure a Pipeline.
type Options struct {
	Strategy Strategy

	// Mode is used by Extract when the caller passes an empty mode.
	Mode imaging.CompositeMode

	Classify imaging.ClassifyOptions
	Hough    detection.HoughParams

	// BlurSigma is the Gaussian sigma applied to the mask before the circle
	// search. Zero disables the blur.
	BlurSigma float64

	// CropScale enlarges each circle before cropping.
	CropScale float64

	// CropMargin is added to the blob radius (single-blob strategy).
	CropMargin int

	// EdgeTolerance widens the inscribed disk during compositing, in pixels.
	EdgeTolerance float64

	// FillColor is the flat-fill color. Nil paints in the target color.
	FillColor *imaging.ColorSpec
}

// DefaultOptions returns the calibrated defaults: HSV classification with a
// ±10 hue window, multi-circle search, flat-fill compositing at 1.2x.
func DefaultOptions() Options {
	return Options{
		Strategy:   StrategyMultiCircle,
		Mode:       ModeFlatFill,
		Classify:   imaging.DefaultClassifyOptions(),
		Hough:      detection.DefaultHoughParams(),
		BlurSigma:  imaging.DefaultBlurSigma,
		CropScale:  imaging.DefaultCropScale,
		CropMargin: detection.DefaultBlobMargin,
	}
}

// Validate checks every option group.
func (o Options) Validate() error {
	switch o.Strategy {
	case StrategyMultiCircle, StrategySingleBlob:
	default:
		return fmt.Errorf("%w: unknown strategy %q", ErrInvalidInput, o.Strategy)
	}
	if err := o.Classify.Validate(); err != nil {
		return err
	}
	if err := o.Hough.Validate(); err != nil {
		return err
	}
	if o.BlurSigma < 0 {
		return fmt.Errorf("%w: negative blur sigma %v", ErrInvalidInput, o.BlurSigma)
	}
	if o.CropMargin < 0 {
		return fmt.Errorf("%w: negative crop margin %d", ErrInvalidInput, o.CropMargin)
	}
	return o.composite(o.Mode, imaging.ColorSpec{}).Validate()
}

func (o Options) composite(mode imaging.CompositeMode, target imaging.ColorSpec) imaging.CompositeOptions {
	fill := target
	if o.FillColor != nil {
		fill = *o.FillColor
	}
	return imaging.CompositeOptions{
		Mode:          mode,
		Scale:         o.CropScale,
		EdgeTolerance: o.EdgeTolerance,
		Fill:          fill,
	}
}

// Locator finds stamp circles in a classified mask.
type Locator interface {
	LocateCircles(mask *imaging.RegionMask) ([]imaging.Circle, error)
}

type houghLocator struct {
	detector *detection.CircleDetector
	sigma    float64
}

func (l *houghLocator) LocateCircles(mask *imaging.RegionMask) ([]imaging.Circle, error) {
	return l.detector.Detect(imaging.HoughInput(mask, l.sigma)), nil
}

type blobLocator struct {
	locator *detection.BlobLocator
}

func (l *blobLocator) LocateCircles(mask *imaging.RegionMask) ([]imaging.Circle, error) {
	blob, err := l.locator.Locate(mask)
	if err != nil {
		return nil, err
	}
	return []imaging.Circle{blob.Circle}, nil
}

// NewLocator builds the Locator for opts.Strategy.
func NewLocator(opts Options) (Locator, error) {
	switch opts.Strategy {
	case StrategyMultiCircle:
		d, err := detection.NewCircleDetector(opts.Hough)
		if err != nil {
			return nil, err
		}
		return &houghLocator{detector: d, sigma: opts.BlurSigma}, nil
	case StrategySingleBlob:
		b, err := detection.NewBlobLocator(opts.CropMargin)
		if err != nil {
			return nil, err
		}
		return &blobLocator{locator: b}, nil
	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidInput, opts.Strategy)
	}
}

// Pipeline runs classification, location and compositing.
type Pipeline struct {
	opts    Options
	locator Locator
	logger  *zap.Logger
}

// Result is the output of Extract, one stamp per located circle in the same
// order.
type Result struct {
	Stamps  []imaging.StampImage `json:"-"`
	Circles []imaging.Circle     `json:"circles"`

	// MatchedPixels is the number of pixels classified as stamp-colored.
	MatchedPixels int `json:"matched_pixels"`
}

// New validates opts and builds a Pipeline. A nil logger discards output.
func New(opts Options, logger *zap.Logger) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	locator, err := NewLocator(opts)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{opts: opts, locator: locator, logger: logger}, nil
}

// Options returns the pipeline's configuration.
func (p *Pipeline) Options() Options {
	return p.opts
}

// classify validates img and builds its mask for target.
func (p *Pipeline) classify(img *image.NRGBA, target imaging.ColorSpec) (*imaging.RegionMask, error) {
	mask, err := imaging.Classify(img, target, p.opts.Classify)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("classified image",
		zap.String("target", target.Hex()),
		zap.String("classify_mode", string(p.opts.Classify.Mode)),
		zap.Int("width", mask.Width),
		zap.Int("height", mask.Height),
		zap.Int("matched", mask.Count()),
	)
	return mask, nil
}

func (p *Pipeline) locate(mask *imaging.RegionMask) ([]imaging.Circle, error) {
	circles, err := p.locator.LocateCircles(mask)
	if err != nil {
		p.logger.Debug("no stamp located", zap.String("strategy", string(p.opts.Strategy)), zap.Error(err))
		return nil, err
	}
	p.logger.Debug("located circles",
		zap.String("strategy", string(p.opts.Strategy)),
		zap.Int("count", len(circles)),
	)
	return circles, nil
}

// DetectCircles classifies img against target and returns the located
// circles without compositing.
//
// With the multi-circle strategy the result may be empty. With the
// single-blob strategy it holds exactly one circle, or the error wraps
// ErrNotFound.
func (p *Pipeline) DetectCircles(img *image.NRGBA, target imaging.ColorSpec) ([]imaging.Circle, error) {
	mask, err := p.classify(img, target)
	if err != nil {
		return nil, err
	}
	return p.locate(mask)
}

// Extract runs the whole pipeline and returns one StampImage per circle.
//
// Parameters:
//   - img: Decoded source image.
//   - target: Stamp color to search for. It is also the flat-fill color unless
//     Options.FillColor is set.
//   - mode: Compositing mode; empty uses Options.Mode.
//
// Returns:
//   - *Result: Stamps in descending-radius order (multi-circle) or a single
//     stamp (single-blob). An empty Stamps slice is a valid multi-circle
//     result.
//   - error: Wraps ErrInvalidInput for a malformed image or mode, ErrNotFound
//     when the single-blob strategy finds no matching pixel, or
//     ErrGeometryDegenerate for a circle that yields an empty crop. No partial
//     result is returned with an error.
func (p *Pipeline) Extract(img *image.NRGBA, target imaging.ColorSpec, mode imaging.CompositeMode) (*Result, error) {
	if mode == "" {
		mode = p.opts.Mode
	}
	copts := p.opts.composite(mode, target)
	if err := copts.Validate(); err != nil {
		return nil, err
	}

	mask, err := p.classify(img, target)
	if err != nil {
		return nil, err
	}
	circles, err := p.locate(mask)
	if err != nil {
		return nil, err
	}

	stamps := make([]imaging.StampImage, 0, len(circles))
	for i, c := range circles {
		s, err := imaging.Composite(img, mask, c, copts)
		if err != nil {
			return nil, fmt.Errorf("stamp %d: %w", i+1, err)
		}
		p.logger.Debug("composited stamp",
			zap.Int("index", i+1),
			zap.Float64("x", c.X),
			zap.Float64("y", c.Y),
			zap.Float64("radius", c.Radius),
			zap.Stringer("crop", s.Bounds),
			zap.String("mode", string(mode)),
		)
		stamps = append(stamps, *s)
	}

	return &Result{
		Stamps:        stamps,
		Circles:       circles,
		MatchedPixels: mask.Count(),
	}, nil
}

// Recolor paints every pixel of img that matches target in the fill color
// (Options.FillColor, or target) on a transparent canvas of the same size.
// No circle is located and nothing is cropped.
func (p *Pipeline) Recolor(img *image.NRGBA, target imaging.ColorSpec) (*image.NRGBA, error) {
	mask, err := p.classify(img, target)
	if err != nil {
		return nil, err
	}
	fill := target
	if p.opts.FillColor != nil {
		fill = *p.opts.FillColor
	}
	return imaging.Recolor(mask, fill), nil
}
