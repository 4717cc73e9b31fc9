package evaluation

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Metric selects the per-frame series to plot.
type Metric int

const (
	MetricAccuracy Metric = iota
	MetricDelta
)

func (m Metric) String() string {
	if m == MetricDelta {
		return "delta"
	}
	return "accuracy"
}

func (m Metric) label() string {
	if m == MetricDelta {
		return "Centroid distance (px)"
	}
	return "Overlap (IoU)"
}

func (m Metric) value(f FrameScore) float64 {
	if m == MetricDelta {
		return f.Delta
	}
	return f.Accuracy
}

// SavePlots writes one accuracy and one delta PNG per sequence into
// outputDir, with a line per method. It returns the files written.
func SavePlots(outputDir string, runs []RunScore) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	var files []string
	for _, seq := range sequences(runs) {
		group := bySequence(runs, seq)
		for _, m := range []Metric{MetricAccuracy, MetricDelta} {
			path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.png", fileStem(seq), m))
			if err := savePlot(path, seq, m, group); err != nil {
				return files, err
			}
			files = append(files, path)
		}
	}
	return files, nil
}

func savePlot(path, seq string, m Metric, runs []RunScore) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %s", seq, m)
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = m.label()
	if m == MetricAccuracy {
		p.Y.Min, p.Y.Max = 0, 1
	}

	colors := palette(len(runs))
	for i, r := range runs {
		pts := make(plotter.XYs, 0, len(r.Frames))
		for _, f := range r.Frames {
			pts = append(pts, plotter.XY{X: float64(f.Frame), Y: m.value(f)})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("%s %s: %w", r.Method, seq, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(r.Method, line)
	}
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}

// palette returns n evenly spaced hues.
func palette(n int) []color.Color {
	out := make([]color.Color, n)
	for i := range out {
		out[i] = colorful.Hsl(360*float64(i)/float64(n), 0.7, 0.5).Clamped()
	}
	return out
}

// sequences lists the sequence names in first-seen order.
func sequences(runs []RunScore) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range runs {
		if !seen[r.Sequence] {
			seen[r.Sequence] = true
			out = append(out, r.Sequence)
		}
	}
	return out
}

func bySequence(runs []RunScore, seq string) []RunScore {
	var out []RunScore
	for _, r := range runs {
		if r.Sequence == seq {
			out = append(out, r)
		}
	}
	return out
}

// fileStem makes a file name from a sequence name: anything outside ASCII
// letters, digits, dot, underscore and dash collapses to one underscore.
func fileStem(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "sequence"
	}
	return out
}
