// Package config loads tracker tuning from JSON and turns it into the
// immutable per-tracker configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/skcf/internal/features"
	"github.com/banshee-data/skcf/internal/flow"
	"github.com/banshee-data/skcf/internal/kcf"
	"github.com/banshee-data/skcf/internal/spectrum"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tracker.defaults.json"

// TrackerTuning holds optional overrides for every tracker parameter.
// Fields left nil fall back to the per-feature defaults, so a partial file
// is safe. Fields that differ between feature laws (kernel sigma, learning
// rate, cell size, polynomial exponent) are usually left out.
type TrackerTuning struct {
	// Correlation filter
	Padding           *float64 `json:"padding,omitempty"`
	Lambda            *float64 `json:"lambda,omitempty"`
	OutputSigmaFactor *float64 `json:"output_sigma_factor,omitempty"`
	KernelSigma       *float64 `json:"kernel_sigma,omitempty"`
	KernelPolyA       *float64 `json:"kernel_poly_a,omitempty"`
	KernelPolyB       *float64 `json:"kernel_poly_b,omitempty"`
	InterpFactor      *float64 `json:"interp_factor,omitempty"`
	CellSize          *int     `json:"cell_size,omitempty"`
	HOGOrientations   *int     `json:"hog_orientations,omitempty"`
	Packing           *string  `json:"packing,omitempty"` // "packed" or "full"
	Workers           *int     `json:"workers,omitempty"`

	// Scale estimator
	FlowWindow        *int     `json:"flow_window,omitempty"`
	FlowLevels        *int     `json:"flow_levels,omitempty"`
	FlowIterations    *int     `json:"flow_iterations,omitempty"`
	FlowEpsilon       *float64 `json:"flow_epsilon,omitempty"`
	NCCWindow         *int     `json:"ncc_window,omitempty"`
	FBThreshold       *float64 `json:"fb_threshold,omitempty"`
	InlierThreshold   *float64 `json:"inlier_threshold,omitempty"`
	WeightThreshold   *float64 `json:"weight_threshold,omitempty"`
	RandomPoints      *int     `json:"random_points,omitempty"`
	MaxCorners        *int     `json:"max_corners,omitempty"`
	CornerQuality     *float64 `json:"corner_quality,omitempty"`
	CornerMinDistance *float64 `json:"corner_min_distance,omitempty"`
	Seed              *int64   `json:"seed,omitempty"`
}

// LoadTrackerTuning loads a TrackerTuning from a JSON file. The file must
// have a .json extension and be under 1MB.
func LoadTrackerTuning(path string) (*TrackerTuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &TrackerTuning{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents up to the repository root. Panics if the file
// cannot be loaded; intended for tests and tools run from inside the tree.
func MustLoadDefaultConfig() *TrackerTuning {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/<binary>/ nested packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTrackerTuning(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks the fields that are set.
func (c *TrackerTuning) Validate() error {
	if c.Lambda != nil && *c.Lambda <= 0 {
		return fmt.Errorf("lambda must be positive, got %g", *c.Lambda)
	}
	if c.Padding != nil && *c.Padding < 0 {
		return fmt.Errorf("padding must be non-negative, got %g", *c.Padding)
	}
	if c.InterpFactor != nil && (*c.InterpFactor <= 0 || *c.InterpFactor > 1) {
		return fmt.Errorf("interp_factor must be in (0, 1], got %g", *c.InterpFactor)
	}
	if c.CellSize != nil && *c.CellSize < 1 {
		return fmt.Errorf("cell_size must be at least 1, got %d", *c.CellSize)
	}
	if c.HOGOrientations != nil && *c.HOGOrientations < 1 {
		return fmt.Errorf("hog_orientations must be at least 1, got %d", *c.HOGOrientations)
	}
	if c.Packing != nil {
		if _, err := spectrum.ParsePacking(*c.Packing); err != nil {
			return err
		}
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.FlowWindow != nil && *c.FlowWindow < 3 {
		return fmt.Errorf("flow_window must be at least 3, got %d", *c.FlowWindow)
	}
	if c.FlowLevels != nil && *c.FlowLevels < 0 {
		return fmt.Errorf("flow_levels must be non-negative, got %d", *c.FlowLevels)
	}
	if c.WeightThreshold != nil && (*c.WeightThreshold < 0 || *c.WeightThreshold > 1) {
		return fmt.Errorf("weight_threshold must be between 0 and 1, got %g", *c.WeightThreshold)
	}
	return nil
}

// isFHOG reports whether the per-feature defaults for law are the cell-based ones.
func isFHOG(law features.Law) bool { return law == features.FHOG }

// GetPadding returns the padding value or the default.
func (c *TrackerTuning) GetPadding() float64 {
	if c.Padding == nil {
		return 1.5
	}
	return *c.Padding
}

// GetLambda returns the lambda value or the default.
func (c *TrackerTuning) GetLambda() float64 {
	if c.Lambda == nil {
		return 1e-4
	}
	return *c.Lambda
}

// GetOutputSigmaFactor returns the output_sigma_factor value or the default.
func (c *TrackerTuning) GetOutputSigmaFactor() float64 {
	if c.OutputSigmaFactor == nil {
		return 0.1
	}
	return *c.OutputSigmaFactor
}

// GetKernelSigma returns the kernel_sigma value or the default for law.
func (c *TrackerTuning) GetKernelSigma(law features.Law) float64 {
	if c.KernelSigma != nil {
		return *c.KernelSigma
	}
	if isFHOG(law) {
		return 0.5
	}
	return 0.2
}

// GetKernelPolyA returns the kernel_poly_a value or the default.
func (c *TrackerTuning) GetKernelPolyA() float64 {
	if c.KernelPolyA == nil {
		return 1
	}
	return *c.KernelPolyA
}

// GetKernelPolyB returns the kernel_poly_b value or the default for law.
func (c *TrackerTuning) GetKernelPolyB(law features.Law) float64 {
	if c.KernelPolyB != nil {
		return *c.KernelPolyB
	}
	if isFHOG(law) {
		return 9
	}
	return 7
}

// GetInterpFactor returns the interp_factor value or the default for law.
func (c *TrackerTuning) GetInterpFactor(law features.Law) float64 {
	if c.InterpFactor != nil {
		return *c.InterpFactor
	}
	if isFHOG(law) {
		return 0.02
	}
	return 0.075
}

// GetCellSize returns the cell_size value or the default for law.
func (c *TrackerTuning) GetCellSize(law features.Law) int {
	if c.CellSize != nil {
		return *c.CellSize
	}
	if isFHOG(law) {
		return 4
	}
	return 1
}

// GetHOGOrientations returns the hog_orientations value or the default.
func (c *TrackerTuning) GetHOGOrientations() int {
	if c.HOGOrientations == nil {
		return 9
	}
	return *c.HOGOrientations
}

// GetPacking returns the spectrum packing; invalid values fall back to
// packed, Validate reports them.
func (c *TrackerTuning) GetPacking() spectrum.Packing {
	if c.Packing == nil {
		return spectrum.Packed
	}
	p, err := spectrum.ParsePacking(*c.Packing)
	if err != nil {
		return spectrum.Packed
	}
	return p
}

// GetWorkers returns the workers value; zero or unset means one per CPU.
func (c *TrackerTuning) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.GOMAXPROCS(0)
	}
	return *c.Workers
}

// GetFlowParams returns the scale-estimator settings with overrides applied.
func (c *TrackerTuning) GetFlowParams() flow.Params {
	p := flow.DefaultParams()
	setInt(&p.Window, c.FlowWindow)
	setInt(&p.Levels, c.FlowLevels)
	setInt(&p.Iterations, c.FlowIterations)
	setFloat(&p.Epsilon, c.FlowEpsilon)
	setInt(&p.NCCWindow, c.NCCWindow)
	setFloat(&p.FBThreshold, c.FBThreshold)
	setFloat(&p.InlierThreshold, c.InlierThreshold)
	setFloat(&p.WeightThreshold, c.WeightThreshold)
	setInt(&p.RandomPoints, c.RandomPoints)
	setInt(&p.MaxCorners, c.MaxCorners)
	setFloat(&p.CornerQuality, c.CornerQuality)
	setFloat(&p.CornerMinDistance, c.CornerMinDistance)
	if c.Seed != nil {
		p.Seed = *c.Seed
	}
	return p
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// ParamsFor builds the configuration of a tracker running method m. A nil
// tuning gives the published defaults.
func ParamsFor(m kcf.Method, tuning *TrackerTuning) kcf.TrackerConfig {
	if tuning == nil {
		tuning = &TrackerTuning{}
	}
	law := m.Feature
	return kcf.TrackerConfig{
		Method:            m,
		Padding:           tuning.GetPadding(),
		Lambda:            tuning.GetLambda(),
		OutputSigmaFactor: tuning.GetOutputSigmaFactor(),
		KernelSigma:       tuning.GetKernelSigma(law),
		PolyA:             tuning.GetKernelPolyA(),
		PolyB:             tuning.GetKernelPolyB(law),
		InterpFactor:      tuning.GetInterpFactor(law),
		CellSize:          tuning.GetCellSize(law),
		Orientations:      tuning.GetHOGOrientations(),
		Packing:           tuning.GetPacking(),
		Workers:           tuning.GetWorkers(),
		Flow:              tuning.GetFlowParams(),
	}
}
