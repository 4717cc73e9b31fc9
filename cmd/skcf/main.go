// Command skcf tracks one object through a video file or a directory of
// frames, starting from an initial rectangle, and writes the tracked
// quadrilateral of every frame as CSV.
//
// With -db, "skcf -db runs.db runs list" and the other runs actions read
// and maintain the recorded runs.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/banshee-data/skcf/internal/config"
	"github.com/banshee-data/skcf/internal/db"
	"github.com/banshee-data/skcf/internal/evaluation"
	"github.com/banshee-data/skcf/internal/geom"
	"github.com/banshee-data/skcf/internal/kcf"
	"github.com/banshee-data/skcf/internal/monitoring"
	"github.com/banshee-data/skcf/internal/version"
)

type options struct {
	input      string
	initRect   string
	truthPath  string
	method     string
	configPath string
	outPath    string
	dbPath     string
	maxFrames  int
}

func main() {
	var o options
	flag.StringVar(&o.input, "input", "", "Video file or directory of frames")
	flag.StringVar(&o.initRect, "init", "", "Initial region as x,y,w,h (defaults to the first ground-truth row)")
	flag.StringVar(&o.truthPath, "truth", "", "Optional ground-truth CSV for scoring")
	flag.StringVar(&o.method, "method", kcf.DefaultMethod.String(), "Tracker method, e.g. KCF_G_FHOG_S")
	flag.StringVar(&o.configPath, "config", "", "Optional tuning JSON file")
	flag.StringVar(&o.outPath, "out", "-", "Output CSV of tracked areas ('-' for stdout)")
	flag.StringVar(&o.dbPath, "db", "", "Optional SQLite database to record the run")
	flag.IntVar(&o.maxFrames, "max-frames", 0, "Stop after this many frames (0 = all)")
	listMethods := flag.Bool("list", false, "List tracker methods and exit")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("skcf"))
		return
	}

	if *listMethods {
		for _, m := range kcf.Methods() {
			fmt.Printf("%-14s %s\n", m, m.Description())
		}
		return
	}
	configureLogging(*verbose)

	if flag.Arg(0) == "runs" {
		if err := runsCommand(os.Stdout, o.dbPath, flag.Args()[1:]); err != nil {
			log.WithFields(log.Fields{"error": err}).Fatal("runs command failed")
		}
		return
	}

	if err := run(o); err != nil {
		log.WithFields(log.Fields{"error": err}).Fatal("tracking failed")
	}
}

// configureLogging routes tracker events through logrus at info level;
// verbose also enables debug output.
func configureLogging(verbose bool) {
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
	monitoring.SetLogger(log.Infof)
}

func run(o options) error {
	if o.input == "" {
		return errors.New("-input is required")
	}
	method, err := kcf.ParseMethod(o.method)
	if err != nil {
		return err
	}
	var tuning *config.TrackerTuning
	if o.configPath != "" {
		if tuning, err = config.LoadTrackerTuning(o.configPath); err != nil {
			return err
		}
	}
	cfg := config.ParamsFor(method, tuning)

	var truth []geom.Quad
	if o.truthPath != "" {
		if truth, err = evaluation.ReadAreasFile(o.truthPath); err != nil {
			return err
		}
	}
	region, err := initialRegion(o.initRect, truth)
	if err != nil {
		return err
	}

	src, err := openSource(o.input)
	if err != nil {
		return err
	}
	defer src.Close()

	out, closeOut, err := openOutput(o.outPath)
	if err != nil {
		return err
	}
	defer closeOut()
	writer := evaluation.NewAreaWriter(out)

	tracker := kcf.NewTracker(cfg)
	var (
		stats monitoring.FrameStats
		areas []geom.Quad
	)
	for n := 0; o.maxFrames <= 0 || n < o.maxFrames; n++ {
		frame, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if n == 0 {
			stats.Time(func() { tracker.Initialize(frame, region) })
		} else {
			stats.Time(func() { tracker.ProcessFrame(frame) })
		}
		area := tracker.GetTrackedArea()
		areas = append(areas, area)
		if log.IsLevelEnabled(log.DebugLevel) {
			c := area.Centroid()
			log.WithFields(log.Fields{"frame": n, "x": c.X, "y": c.Y}).Debug("frame tracked")
		}
		if err := writer.Write(area); err != nil {
			return fmt.Errorf("failed to write area: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	if len(areas) == 0 {
		return errors.New("input has no frames")
	}

	summary := stats.Summary()
	fields := log.Fields{
		"method":  tracker.GetDescription(),
		"frames":  summary.Frames,
		"mean_ms": fmt.Sprintf("%.2f", summary.Mean),
		"p95_ms":  fmt.Sprintf("%.2f", summary.P95),
		"fps":     fmt.Sprintf("%.1f", summary.FPS),
	}
	var score *evaluation.RunScore
	if truth != nil {
		s := evaluation.Score(method.String(), o.input, truth, areas)
		score = &s
		fields["accuracy"] = fmt.Sprintf("%.3f", s.MeanAccuracy)
		fields["delta_px"] = fmt.Sprintf("%.2f", s.MeanDelta)
	}
	log.WithFields(fields).Info("tracking complete")

	if o.dbPath != "" {
		if err := record(o.dbPath, o.input, cfg, areas, score, summary); err != nil {
			return err
		}
	}
	return nil
}

// initialRegion parses -init, falling back to the first ground-truth area.
func initialRegion(spec string, truth []geom.Quad) (image.Rectangle, error) {
	if spec != "" {
		areas, err := evaluation.ReadAreas(strings.NewReader(spec))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("invalid -init: %w", err)
		}
		if len(areas) != 1 {
			return image.Rectangle{}, fmt.Errorf("invalid -init: want one area, got %d", len(areas))
		}
		return areas[0].Bounds(), nil
	}
	if len(truth) == 0 {
		return image.Rectangle{}, errors.New("either -init or -truth is required")
	}
	return truth[0].Bounds(), nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func record(path, source string, cfg kcf.TrackerConfig, areas []geom.Quad, score *evaluation.RunScore, summary monitoring.Summary) error {
	store, err := db.NewDB(path)
	if err != nil {
		return err
	}
	defer store.Close()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	runID, err := store.CreateRun(cfg.Method.String(), source, string(cfgJSON))
	if err != nil {
		return err
	}

	frames := make([]db.Frame, len(areas))
	for i, a := range areas {
		frames[i] = db.Frame{Index: i, Area: a}
		if score != nil && i < len(score.Frames) {
			acc, delta := score.Frames[i].Accuracy, score.Frames[i].Delta
			frames[i].Accuracy, frames[i].Delta = &acc, &delta
		}
	}
	if err := store.RecordFrames(runID, frames); err != nil {
		return err
	}

	meanMs := summary.Mean
	s := db.RunSummary{FrameCount: len(areas), MeanFrameMs: &meanMs}
	if score != nil {
		s.MeanAccuracy, s.MeanDelta = &score.MeanAccuracy, &score.MeanDelta
	}
	if err := store.CompleteRun(runID, s); err != nil {
		return err
	}
	log.WithFields(log.Fields{"run_id": runID, "db": path}).Info("run recorded")
	return nil
}
