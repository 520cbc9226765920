//go:build !gocv

package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
)

type edgePoint struct {
	x, y int
}

type centerCandidate struct {
	index int
	score int32
}

// houghCircles is the pure-Go Hough gradient search.
//
// # Algorithm (Hough Gradient)
//
//  1. Edge Detection: Canny with thresholds EdgeThreshold/2 and EdgeThreshold
//  2. Accumulator Voting: every edge pixel walks its unit gradient vector in
//     both directions and votes once per cell for distances minRadius to
//     maxRadius. A filled disk's edge pixels all point at its center.
//  3. Pooling: votes are summed over each 3x3 window, so rays that round to
//     adjacent cells still count toward the same center
//  4. Peak Detection: pooled cells above AccumulatorThreshold that are local
//     maxima, visited strongest first. A peak within minDist of an accepted
//     center is skipped.
//  5. Radius Estimation: edge distances from the center are histogrammed in
//     one-pixel bins and the best three-bin window wins. The window must hold
//     at least AccumulatorThreshold edge pixels; the radius is their mean
//     distance.
//
// # Performance
//
// Time complexity is O(E × (maxRadius - minRadius) + C × E), where E is the
// number of edge pixels and C the number of peaks examined. Working on the
// mask rather than the photo keeps E small.
func houghCircles(gray *image.Gray, p HoughParams, sb searchBounds) []imaging.Circle {
	grad := SobelGradients(gray)
	edges := Canny(grad, p.EdgeThreshold/2, p.EdgeThreshold)
	width, height := grad.Width, grad.Height

	points := make([]edgePoint, 0)
	acc := make([]int32, width*height)

	for i, isEdge := range edges {
		if !isEdge {
			continue
		}
		x, y := i%width, i/width
		points = append(points, edgePoint{x: x, y: y})

		mag := grad.Mag[i]
		ux, uy := grad.DX[i]/mag, grad.DY[i]/mag
		for _, sign := range [2]float64{1, -1} {
			last := -1
			for r := sb.minRadius; r <= sb.maxRadius; r++ {
				cx := int(math.Round(float64(x) + sign*ux*float64(r)))
				cy := int(math.Round(float64(y) + sign*uy*float64(r)))
				if cx < 0 || cx >= width || cy < 0 || cy >= height {
					break
				}
				j := cy*width + cx
				if j != last {
					acc[j]++
					last = j
				}
			}
		}
	}

	if len(points) == 0 {
		return nil
	}

	pooled := make([]int32, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			var sum int32
			for dy := -1; dy <= 1; dy++ {
				row := (y + dy) * width
				sum += acc[row+x-1] + acc[row+x] + acc[row+x+1]
			}
			pooled[y*width+x] = sum
		}
	}

	threshold := int32(p.AccumulatorThreshold)
	candidates := make([]centerCandidate, 0)
	for y := 2; y < height-2; y++ {
		for x := 2; x < width-2; x++ {
			i := y*width + x
			v := pooled[i]
			if v > threshold &&
				v > pooled[i-1] && v >= pooled[i+1] &&
				v > pooled[i-width] && v >= pooled[i+width] {
				candidates = append(candidates, centerCandidate{index: i, score: v})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].index < candidates[j].index
	})

	circles := make([]imaging.Circle, 0)
	minDist2 := sb.minDist * sb.minDist

	for _, cand := range candidates {
		cx, cy := refineCenter(acc, width, cand.index)

		duplicate := false
		for _, c := range circles {
			dx, dy := c.X-cx, c.Y-cy
			if dx*dx+dy*dy < minDist2 {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		radius, support := estimateRadius(points, cx, cy, sb)
		if support < p.AccumulatorThreshold {
			continue
		}
		circles = append(circles, imaging.Circle{X: cx, Y: cy, Radius: radius})
	}

	return circles
}

// refineCenter returns the vote-weighted centroid of the 3x3 window around
// index.
func refineCenter(acc []int32, width, index int) (float64, float64) {
	x0, y0 := index%width, index/width
	var sum, sx, sy float64
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			v := float64(acc[(y0+dy)*width+x0+dx])
			sum += v
			sx += v * float64(x0+dx)
			sy += v * float64(y0+dy)
		}
	}
	if sum == 0 {
		return float64(x0), float64(y0)
	}
	return sx / sum, sy / sum
}

// estimateRadius finds the radius around (cx, cy) supported by the most edge
// pixels. Ties go to the larger radius so the outer rim of a ring wins.
func estimateRadius(points []edgePoint, cx, cy float64, sb searchBounds) (float64, int) {
	n := sb.maxRadius + 2
	hist := make([]int, n)
	sums := make([]float64, n)

	for _, p := range points {
		dx := float64(p.x) - cx
		dy := float64(p.y) - cy
		d := math.Sqrt(dx*dx + dy*dy)
		if d < float64(sb.minRadius) || d > float64(sb.maxRadius) {
			continue
		}
		bin := int(d)
		hist[bin]++
		sums[bin] += d
	}

	best, bestSupport := -1, 0
	for r := sb.maxRadius; r >= sb.minRadius; r-- {
		s := hist[r] + hist[r+1]
		if r > 0 {
			s += hist[r-1]
		}
		if s > bestSupport {
			best, bestSupport = r, s
		}
	}
	if best < 0 {
		return 0, 0
	}

	var total float64
	for r := max(best-1, 0); r <= best+1; r++ {
		total += sums[r]
	}
	radius := total / float64(bestSupport)
	radius = math.Max(float64(sb.minRadius), math.Min(float64(sb.maxRadius), radius))
	return radius, bestSupport
}
