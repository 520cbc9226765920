// Package imaging provides the pixel-level operations of the stamp extractor.
//
// This package implements color classification, region masks, Hough
// preprocessing, circular cropping/compositing and image encoding. All
// operations work on standard Go image types and use a coordinate system where
// (0,0) is at the top-left corner, X increases rightward, and Y increases
// downward.
//
// # Pixel Buffers
//
// Decoded images are normalized to *image.NRGBA (non-premultiplied RGBA8,
// row-major, origin at 0,0) with ToNRGBA. Every stage reads its input and
// allocates a new buffer for its output; nothing is mutated in place, so the
// same source image may be processed by concurrent callers.
//
// # Color Representation
//
// Target colors are expressed as a ColorSpec (8-bit R, G, B, A). The derived
// HSV triple uses the half-range hue convention common to 8-bit image
// libraries:
//   - H: 0-179 (360 degrees folded to 180 units)
//   - S: 0-255
//   - V: 0-255
//
// The HSV triple is always recomputed from RGB, never stored.
//
// # Classification
//
// Classify builds a RegionMask (0/255 per pixel) in one of two modes:
//   - ClassifyHSV: hue window around the target hue (wrapping across 0/180)
//     combined with saturation and value ranges
//   - ClassifyRGB: dominant-channel heuristic with configurable floor, ratio
//     and difference thresholds
//
// # Error Handling
//
// Functions return errors wrapping ErrInvalidInput for malformed images,
// colors or options, and ErrGeometryDegenerate when a crop box or mask radius
// would be non-positive. A classification that matches nothing is not an
// error.
package imaging
