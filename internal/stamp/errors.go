package stamp

import (
	"github.com/ironsheep/stamp-tools-mcp/internal/detection"
	"github.com/ironsheep/stamp-tools-mcp/internal/imaging"
)

var (
	// ErrInvalidInput reports a malformed image, color or option set.
	ErrInvalidInput = imaging.ErrInvalidInput

	// ErrNotFound reports that no pixel matched the target color
	// (single-blob strategy only).
	ErrNotFound = detection.ErrNotFound

	// ErrGeometryDegenerate reports a non-positive crop box or mask radius.
	ErrGeometryDegenerate = imaging.ErrGeometryDegenerate
)
