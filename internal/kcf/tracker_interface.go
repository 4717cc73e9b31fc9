package kcf

import (
	"image"

	"github.com/banshee-data/skcf/internal/geom"
)

// TrackerInterface is the single-object tracker contract the frame pipeline
// drives. Calls on one instance must be serialised by the caller.
type TrackerInterface interface {
	// Initialize seeds the model from one frame and an axis-aligned region.
	// Calling it again re-seeds from scratch.
	Initialize(frame image.Image, region image.Rectangle)

	// ProcessFrame advances tracking by one frame.
	ProcessFrame(frame image.Image)

	// GetTrackedArea returns the target as a clockwise quadrilateral,
	// top-left first.
	GetTrackedArea() geom.Quad

	// GetDescription names the tracker variant for logs and reports.
	GetDescription() string
}

// Verify at compile time that *Tracker implements TrackerInterface.
var _ TrackerInterface = (*Tracker)(nil)
