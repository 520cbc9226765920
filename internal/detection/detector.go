package detection

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
)

// HoughParams configure the circle search. Radius and separation bounds are
// fractions of the image size.
type HoughParams struct {
	MinRadiusFraction    float64 // of min(W, H)
	MaxRadiusFraction    float64 // of min(W, H)
	MinDistFraction      float64 // of H
	EdgeThreshold        float64 // Canny high threshold; low is half of it
	AccumulatorThreshold int     // votes a center and a radius need
	MaxResults           int
}

// DefaultHoughParams returns the calibrated search parameters.
func DefaultHoughParams() HoughParams {
	return HoughParams{
		MinRadiusFraction:    0.03,
		MaxRadiusFraction:    0.5,
		MinDistFraction:      1.0 / 6.0,
		EdgeThreshold:        200,
		AccumulatorThreshold: 50,
		MaxResults:           6,
	}
}

// Validate checks the parameter ranges.
func (p HoughParams) Validate() error {
	switch {
	case !(p.MinRadiusFraction >= 0):
		return fmt.Errorf("%w: negative min radius fraction %v", imaging.ErrInvalidInput, p.MinRadiusFraction)
	case !(p.MaxRadiusFraction > p.MinRadiusFraction):
		return fmt.Errorf("%w: max radius fraction %v not above min %v",
			imaging.ErrInvalidInput, p.MaxRadiusFraction, p.MinRadiusFraction)
	case !(p.MinDistFraction > 0):
		return fmt.Errorf("%w: min center separation fraction must be positive", imaging.ErrInvalidInput)
	case !(p.EdgeThreshold > 0):
		return fmt.Errorf("%w: edge threshold must be positive", imaging.ErrInvalidInput)
	case p.AccumulatorThreshold < 1:
		return fmt.Errorf("%w: accumulator threshold must be at least 1", imaging.ErrInvalidInput)
	case p.MaxResults < 1:
		return fmt.Errorf("%w: max results must be at least 1", imaging.ErrInvalidInput)
	}
	return nil
}

// searchBounds are HoughParams resolved against one image size.
type searchBounds struct {
	minRadius int
	maxRadius int
	minDist   float64
}

func (p HoughParams) resolve(width, height int) searchBounds {
	short := float64(min(width, height))
	minR := int(math.Ceil(p.MinRadiusFraction * short))
	maxR := int(math.Floor(p.MaxRadiusFraction * short))
	return searchBounds{
		minRadius: max(minR, 1),
		maxRadius: maxR,
		minDist:   math.Max(p.MinDistFraction*float64(height), 1),
	}
}

// CircleDetector finds stamp outlines in an edge-intensity image.
type CircleDetector struct {
	params HoughParams
}

// NewCircleDetector creates a detector after validating params.
func NewCircleDetector(params HoughParams) (*CircleDetector, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &CircleDetector{params: params}, nil
}

// Params returns the detector's parameters.
func (d *CircleDetector) Params() HoughParams {
	return d.params
}

// Detect runs the circle search on gray.
//
// Parameters:
//   - gray: Edge-intensity image, typically imaging.HoughInput of a mask.
//
// Returns:
//   - []imaging.Circle: At most MaxResults circles sorted by descending
//     radius, every radius within the resolved [minRadius, maxRadius]. An
//     empty, non-nil slice when nothing is found.
//
// Detect is deterministic: the same image and parameters always yield the
// same circles in the same order.
func (d *CircleDetector) Detect(gray *image.Gray) []imaging.Circle {
	b := gray.Bounds()
	sb := d.params.resolve(b.Dx(), b.Dy())
	if sb.maxRadius < sb.minRadius {
		return []imaging.Circle{}
	}

	found := houghCircles(gray, d.params, sb)

	circles := make([]imaging.Circle, 0, len(found))
	lo, hi := float64(sb.minRadius), float64(sb.maxRadius)
	for _, c := range found {
		if c.Radius < lo || c.Radius > hi {
			continue
		}
		circles = append(circles, c)
	}

	sort.SliceStable(circles, func(i, j int) bool {
		return circles[i].Radius > circles[j].Radius
	})
	if len(circles) > d.params.MaxResults {
		circles = circles[:d.params.MaxResults]
	}
	return circles
}
