//go:build gocv

package detection

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
)

// houghCircles runs OpenCV's HoughCircles (gradient method, dp=1) with the
// resolved bounds. EdgeThreshold is OpenCV's param1 (Canny high threshold)
// and AccumulatorThreshold its param2.
func houghCircles(gray *image.Gray, p HoughParams, sb searchBounds) []imaging.Circle {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()

	pix := gray.Pix
	if gray.Stride != width || b.Min != (image.Point{}) {
		pix = make([]byte, width*height)
		for y := 0; y < height; y++ {
			off := gray.PixOffset(b.Min.X, b.Min.Y+y)
			copy(pix[y*width:(y+1)*width], gray.Pix[off:off+width])
		}
	}

	src, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC1, pix)
	if err != nil {
		return nil
	}
	defer src.Close()

	out := gocv.NewMat()
	defer out.Close()

	gocv.HoughCirclesWithParams(src, &out, gocv.HoughGradient, 1, sb.minDist,
		p.EdgeThreshold, float64(p.AccumulatorThreshold), sb.minRadius, sb.maxRadius)

	circles := make([]imaging.Circle, 0, out.Cols())
	for i := 0; i < out.Cols(); i++ {
		v := out.GetVecfAt(0, i)
		if len(v) < 3 {
			continue
		}
		circles = append(circles, imaging.Circle{
			X:      float64(v[0]),
			Y:      float64(v[1]),
			Radius: float64(v[2]),
		})
	}
	return circles
}
