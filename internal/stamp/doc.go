// Package stamp extracts colored seals from document images.
//
// A Pipeline classifies pixels against a target color, locates stamp circles
// with the configured Strategy, and composites each circle into a square
// image with a circular alpha mask:
//
//	classify -> locate (Hough circles | blob) -> composite -> []StampImage
//
// # Strategies
//
//   - StrategyMultiCircle: Hough circle search over the blurred mask. Finding
//     nothing yields an empty result.
//   - StrategySingleBlob: one bounding circle around every matching pixel.
//     Finding nothing is ErrNotFound.
//
// # Errors
//
// ErrInvalidInput, ErrNotFound and ErrGeometryDegenerate are re-exported from
// the imaging and detection packages so callers only import this one. All
// returned errors wrap exactly one of them; test with errors.Is.
//
// A Pipeline holds no per-call state and may be shared across goroutines.
package stamp
