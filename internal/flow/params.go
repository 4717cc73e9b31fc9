package flow

// Params configures the scale estimator. The zero value is not useful; start
// from DefaultParams.
type Params struct {
	// Lucas-Kanade
	Window     int     // square search window, pixels
	Levels     int     // extra pyramid levels above the base image
	Iterations int     // per-level iteration cap
	Epsilon    float64 // stop when the update moves less than this, pixels
	MinEigen   float64 // reject points whose structure tensor is this flat

	// Forward-backward filtering
	NCCWindow   int     // appearance window compared between patches
	FBThreshold float64 // median forward-backward error above which all points are dropped

	// Scale sanity check
	InlierThreshold float64 // max distance between observed and predicted displacement

	// Point seeding
	WeightThreshold   float64 // min Hann weight for a seeded point
	RandomPoints      int
	MaxCorners        int
	CornerQuality     float64 // fraction of the strongest corner response
	CornerMinDistance float64
	CornerBlock       int
	Seed              int64
}

// DefaultParams returns the published scale-estimator settings.
func DefaultParams() Params {
	return Params{
		Window:            15,
		Levels:            0,
		Iterations:        20,
		Epsilon:           0.03,
		MinEigen:          1e-4,
		NCCWindow:         10,
		FBThreshold:       10,
		InlierThreshold:   5,
		WeightThreshold:   0.85,
		RandomPoints:      100,
		MaxCorners:        100,
		CornerQuality:     0.01,
		CornerMinDistance: 3,
		CornerBlock:       3,
		Seed:              0xFFFFFFFF,
	}
}
