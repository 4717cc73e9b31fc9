package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/skcf/internal/kcf"
	"github.com/banshee-data/skcf/internal/spectrum"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	cfg := MustLoadDefaultConfig()

	for _, m := range kcf.Methods() {
		got := ParamsFor(m, cfg)
		want := kcf.DefaultTrackerConfig(m)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: defaults file disagrees with built-in defaults (-want +got):\n%s", m, diff)
		}
	}
}

func TestParamsForNilTuning(t *testing.T) {
	m, err := kcf.ParseMethod("KCF_G_FHOG_S")
	if err != nil {
		t.Fatal(err)
	}
	got := ParamsFor(m, nil)
	if diff := cmp.Diff(kcf.DefaultTrackerConfig(m), got); diff != "" {
		t.Errorf("ParamsFor(nil) mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTrackerTuning(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
  "padding": 2,
  "interp_factor": 0.05,
  "cell_size": 2,
  "packing": "full",
  "workers": 3,
  "flow_levels": 2,
  "seed": 7
}`)

	cfg, err := LoadTrackerTuning(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Padding == nil || *cfg.Padding != 2 {
		t.Errorf("Expected Padding 2, got %v", cfg.Padding)
	}
	if cfg.Lambda != nil {
		t.Errorf("Expected Lambda unset, got %v", *cfg.Lambda)
	}

	m, _ := kcf.ParseMethod("KCF_G_FHOG")
	p := ParamsFor(m, cfg)
	if p.Padding != 2 || p.InterpFactor != 0.05 || p.CellSize != 2 {
		t.Errorf("overrides not applied: %+v", p)
	}
	if p.Packing != spectrum.Full {
		t.Errorf("Packing = %v, want full", p.Packing)
	}
	if p.Workers != 3 {
		t.Errorf("Workers = %d, want 3", p.Workers)
	}
	if p.Flow.Levels != 2 || p.Flow.Seed != 7 || p.Flow.Window != 15 {
		t.Errorf("flow overrides wrong: %+v", p.Flow)
	}
	// Unset per-feature values keep the FHOG defaults.
	if p.KernelSigma != 0.5 || p.PolyB != 9 {
		t.Errorf("KernelSigma=%g PolyB=%g, want 0.5 and 9", p.KernelSigma, p.PolyB)
	}
}

func TestLoadTrackerTuningRejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want string
	}{
		{"extension", "tuning.yaml", `{}`, ".json extension"},
		{"syntax", "bad.json", `{"padding": }`, "parse"},
		{"lambda", "lambda.json", `{"lambda": 0}`, "lambda"},
		{"padding", "padding.json", `{"padding": -1}`, "padding"},
		{"interp zero", "interp.json", `{"interp_factor": 0}`, "interp_factor"},
		{"interp above one", "interp.json", `{"interp_factor": 1.5}`, "interp_factor"},
		{"cell", "cell.json", `{"cell_size": 0}`, "cell_size"},
		{"packing", "packing.json", `{"packing": "half"}`, "packing"},
		{"weight", "weight.json", `{"weight_threshold": 2}`, "weight_threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTrackerTuning(writeConfig(t, tt.file, tt.body))
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadTrackerTuningTooLarge(t *testing.T) {
	body := `{"padding": 1.5` + strings.Repeat(" ", 1024*1024) + `}`
	_, err := LoadTrackerTuning(writeConfig(t, "big.json", body))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestLoadTrackerTuningMissing(t *testing.T) {
	if _, err := LoadTrackerTuning(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestGetWorkers(t *testing.T) {
	zero := 0
	cfg := &TrackerTuning{Workers: &zero}
	if got := cfg.GetWorkers(); got != runtime.GOMAXPROCS(0) {
		t.Errorf("GetWorkers() = %d, want GOMAXPROCS", got)
	}
}
