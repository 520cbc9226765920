// Package detection locates stamps in a classified image.
//
// Two locators are provided, one per pipeline strategy:
//
//   - CircleDetector: a Hough gradient circle search over a blurred
//     edge-intensity image. It returns zero or more circles, largest first.
//   - BlobLocator: a bounding circle around every stamp-colored pixel of a
//     RegionMask. It returns exactly one circle or ErrNotFound.
//
// # Circle Search
//
// Radius bounds and the minimum center separation are fractions of the image
// size, so the same parameters work for a phone photo and a 600 dpi scan:
//
//	minRadius = 0.03 * min(W, H)
//	maxRadius = 0.5  * min(W, H)
//	minDist   = H / 6
//
// The default build runs a pure-Go Hough gradient transform:
//
//  1. Edge Detection: Sobel gradients, non-maximum suppression and hysteresis
//     thresholding (Canny) at EdgeThreshold and EdgeThreshold/2
//  2. Center Voting: every edge pixel votes along its gradient direction, both
//     ways, for distances in [minRadius, maxRadius]
//  3. Center Selection: local maxima above AccumulatorThreshold, strongest
//     first, skipping any within minDist of an accepted center
//  4. Radius Estimation: the most supported edge distance around each center
//
// Building with -tags gocv replaces the search with OpenCV's HoughCircles
// using the same parameters.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// Circle centers and radii are fractional pixels.
package detection
