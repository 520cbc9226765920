package detection

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
)

// ErrNotFound reports that no pixel was classified as stamp-colored.
var ErrNotFound = errors.New("no stamp detected")

// DefaultBlobMargin is added to the bounding radius of a blob, in pixels.
const DefaultBlobMargin = 10

// Blob is the bounding circle of every stamp-colored pixel in a mask.
type Blob struct {
	Circle      imaging.Circle `json:"circle"`
	CentroidX   float64        `json:"centroid_x"`
	CentroidY   float64        `json:"centroid_y"`
	MaxDistance float64        `json:"max_distance"`
	PixelCount  int            `json:"pixel_count"`
}

// BlobLocator treats all matching pixels as one stamp.
type BlobLocator struct {
	// Margin is added to ceil(MaxDistance) to form the circle radius.
	Margin int
}

// NewBlobLocator creates a locator with the given margin.
func NewBlobLocator(margin int) (*BlobLocator, error) {
	if margin < 0 {
		return nil, fmt.Errorf("%w: negative blob margin %d", imaging.ErrInvalidInput, margin)
	}
	return &BlobLocator{Margin: margin}, nil
}

// Locate computes the bounding circle of mask in two passes.
//
// The first pass sums the coordinates of every matching pixel to get the
// centroid. The second finds the matching pixel farthest from it. The
// circle is centered on the centroid with radius ceil(maxDistance) + Margin.
//
// Coordinates are integer pixel indices, so a symmetric blob centered on
// pixel (x, y) reports centroid (x, y).
//
// A single far-away noise pixel inflates the radius; the locator does not
// try to reject outliers.
//
// Returns an error wrapping ErrNotFound when the mask has no matching pixel.
func (l *BlobLocator) Locate(mask *imaging.RegionMask) (*Blob, error) {
	var sumX, sumY float64
	count := 0
	for y := 0; y < mask.Height; y++ {
		row := mask.Pix[y*mask.Width : (y+1)*mask.Width]
		for x, v := range row {
			if v == imaging.MaskOn {
				sumX += float64(x)
				sumY += float64(y)
				count++
			}
		}
	}
	if count == 0 {
		return nil, fmt.Errorf("blob locator: %w", ErrNotFound)
	}

	cx := sumX / float64(count)
	cy := sumY / float64(count)

	var maxD2 float64
	for y := 0; y < mask.Height; y++ {
		row := mask.Pix[y*mask.Width : (y+1)*mask.Width]
		dy := float64(y) - cy
		for x, v := range row {
			if v != imaging.MaskOn {
				continue
			}
			dx := float64(x) - cx
			if d2 := dx*dx + dy*dy; d2 > maxD2 {
				maxD2 = d2
			}
		}
	}
	maxD := math.Sqrt(maxD2)

	return &Blob{
		Circle: imaging.Circle{
			X:      cx,
			Y:      cy,
			Radius: math.Ceil(maxD) + float64(l.Margin),
		},
		CentroidX:   cx,
		CentroidY:   cy,
		MaxDistance: maxD,
		PixelCount:  count,
	}, nil
}
