// Command skcf-bench runs tracker methods over the synthetic sequences,
// scores them against ground truth and writes plots, an HTML report and a
// CSV summary. Runs can also be recorded to SQLite.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/skcf/internal/config"
	"github.com/banshee-data/skcf/internal/db"
	"github.com/banshee-data/skcf/internal/evaluation"
	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/kcf"
	"github.com/banshee-data/skcf/internal/monitoring"
	"github.com/banshee-data/skcf/internal/synth"
	"github.com/banshee-data/skcf/internal/version"
)

type options struct {
	methods    string
	sequences  string
	configPath string
	outDir     string
	dbPath     string
	parallel   int
}

// result is one method over one sequence.
type result struct {
	config kcf.TrackerConfig
	score  evaluation.RunScore
	areas  []geom.Quad
	timing monitoring.Summary
}

func main() {
	var o options
	flag.StringVar(&o.methods, "methods", "", "Comma-separated methods to run (default all)")
	flag.StringVar(&o.sequences, "sequences", "", "Comma-separated synthetic sequences (default all)")
	flag.StringVar(&o.configPath, "config", "", "Optional tuning JSON file")
	flag.StringVar(&o.outDir, "out", "bench-"+time.Now().Format("20060102_150405"), "Output directory")
	flag.StringVar(&o.dbPath, "db", "", "Optional SQLite database to record runs")
	flag.IntVar(&o.parallel, "parallel", runtime.NumCPU(), "Concurrent tracker runs")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("skcf-bench"))
		return
	}

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	monitoring.SetLogger(log.Infof)

	if err := run(o); err != nil {
		log.WithFields(log.Fields{"error": err}).Fatal("benchmark failed")
	}
}

func run(o options) error {
	methods, err := selectMethods(o.methods)
	if err != nil {
		return err
	}
	seqs, err := selectSequences(o.sequences)
	if err != nil {
		return err
	}
	var tuning *config.TrackerTuning
	if o.configPath != "" {
		if tuning, err = config.LoadTrackerTuning(o.configPath); err != nil {
			return err
		}
	}

	rendered := make([]synth.Sequence, len(seqs))
	for i, c := range seqs {
		rendered[i] = synth.Generate(c)
	}

	results := make([]result, len(methods)*len(rendered))
	var g errgroup.Group
	if o.parallel > 0 {
		g.SetLimit(o.parallel)
	}
	for si := range rendered {
		for mi, m := range methods {
			idx := si*len(methods) + mi
			seq := rendered[si]
			cfg := config.ParamsFor(m, tuning)
			// Tracker runs already fan out over channels; one worker each keeps
			// the run-level parallelism from oversubscribing.
			cfg.Workers = 1
			g.Go(func() error {
				results[idx] = trackSequence(cfg, seq)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	scores := make([]evaluation.RunScore, len(results))
	for i, r := range results {
		scores[i] = r.score
		log.WithFields(log.Fields{
			"method":   r.score.Method,
			"sequence": r.score.Sequence,
			"accuracy": fmt.Sprintf("%.3f", r.score.MeanAccuracy),
			"delta_px": fmt.Sprintf("%.2f", r.score.MeanDelta),
			"fps":      fmt.Sprintf("%.1f", r.timing.FPS),
		}).Debug("run scored")
	}

	if err := writeOutputs(o.outDir, results, scores); err != nil {
		return err
	}
	if o.dbPath != "" {
		if err := recordAll(o.dbPath, results); err != nil {
			return err
		}
	}
	log.WithFields(log.Fields{"runs": len(results), "out": o.outDir}).Info("benchmark complete")
	return nil
}

func trackSequence(cfg kcf.TrackerConfig, seq synth.Sequence) result {
	tracker := kcf.NewTracker(cfg)
	var stats monitoring.FrameStats
	areas := make([]geom.Quad, 0, len(seq.Frames))
	truth := make([]geom.Quad, len(seq.Truth))
	for i, r := range seq.Truth {
		truth[i] = geom.Quad(r.Corners())
	}

	start := truth[0].Bounds()
	for i, f := range seq.Frames {
		if i == 0 {
			stats.Time(func() { tracker.InitializeImage(f, start) })
		} else {
			stats.Time(func() { tracker.ProcessImage(f) })
		}
		areas = append(areas, tracker.GetTrackedArea())
	}
	return result{
		config: cfg,
		score:  evaluation.Score(cfg.Method.String(), seq.Name, truth, areas),
		areas:  areas,
		timing: stats.Summary(),
	}
}

func selectMethods(list string) ([]kcf.Method, error) {
	if strings.TrimSpace(list) == "" {
		return kcf.Methods(), nil
	}
	var out []kcf.Method
	for _, name := range strings.Split(list, ",") {
		m, err := kcf.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func selectSequences(list string) ([]synth.Config, error) {
	all := synth.Standard()
	if strings.TrimSpace(list) == "" {
		return all, nil
	}
	byName := make(map[string]synth.Config, len(all))
	var names []string
	for _, c := range all {
		byName[c.Name] = c
		names = append(names, c.Name)
	}
	var out []synth.Config
	for _, name := range strings.Split(list, ",") {
		c, ok := byName[strings.TrimSpace(name)]
		if !ok {
			sort.Strings(names)
			return nil, fmt.Errorf("unknown sequence %q (have %s)", name, strings.Join(names, ", "))
		}
		out = append(out, c)
	}
	return out, nil
}

func writeOutputs(dir string, results []result, scores []evaluation.RunScore) error {
	if _, err := evaluation.SavePlots(filepath.Join(dir, "plots"), scores); err != nil {
		return err
	}

	report, err := os.Create(filepath.Join(dir, "report.html"))
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := evaluation.WriteReport(report, "skcf benchmark", scores); err != nil {
		report.Close()
		return err
	}
	if err := report.Close(); err != nil {
		return fmt.Errorf("failed to close report: %w", err)
	}

	summary, err := os.Create(filepath.Join(dir, "summary.csv"))
	if err != nil {
		return fmt.Errorf("failed to create summary: %w", err)
	}
	defer summary.Close()
	w := csv.NewWriter(summary)
	w.Write([]string{"method", "sequence", "frames", "mean_accuracy", "mean_delta_px", "mean_frame_ms", "fps"})
	for _, r := range results {
		w.Write([]string{
			r.score.Method,
			r.score.Sequence,
			strconv.Itoa(len(r.score.Frames)),
			strconv.FormatFloat(r.score.MeanAccuracy, 'f', 4, 64),
			strconv.FormatFloat(r.score.MeanDelta, 'f', 3, 64),
			strconv.FormatFloat(r.timing.Mean, 'f', 3, 64),
			strconv.FormatFloat(r.timing.FPS, 'f', 1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func recordAll(path string, results []result) error {
	store, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, r := range results {
		cfgJSON, err := json.Marshal(r.config)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		runID, err := store.CreateRun(r.score.Method, r.score.Sequence, string(cfgJSON))
		if err != nil {
			return err
		}
		frames := make([]db.Frame, len(r.areas))
		for i, a := range r.areas {
			frames[i] = db.Frame{Index: i, Area: a}
			if i < len(r.score.Frames) {
				fs := r.score.Frames[i]
				frames[i].Accuracy, frames[i].Delta = &fs.Accuracy, &fs.Delta
			}
		}
		if err := store.RecordFrames(runID, frames); err != nil {
			return err
		}
		acc, delta, ms := r.score.MeanAccuracy, r.score.MeanDelta, r.timing.Mean
		if err := store.CompleteRun(runID, db.RunSummary{
			FrameCount:   len(r.areas),
			MeanAccuracy: &acc,
			MeanDelta:    &delta,
			MeanFrameMs:  &ms,
		}); err != nil {
			return err
		}
	}
	return nil
}
