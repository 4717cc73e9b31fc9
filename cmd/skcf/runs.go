package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/banshee-data/skcf/internal/db"
	"github.com/banshee-data/skcf/internal/evaluation"
)

const runsUsage = `Usage: skcf -db <path> runs <action> [args]

Actions:
  list [method] [limit]   List recorded runs, newest first
  show <run-id>           Print a run and its tracked areas as CSV
  delete <run-id>         Delete a run and its frames
  version                 Print the schema migration version
  down                    Roll back every schema migration`

// runsCommand handles the 'runs' subcommand against the store at dbPath.
func runsCommand(w io.Writer, dbPath string, args []string) error {
	if dbPath == "" {
		return errors.New("-db is required for runs")
	}
	if len(args) < 1 {
		return fmt.Errorf("missing runs action\n\n%s", runsUsage)
	}

	store, err := db.NewDB(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	switch action := args[0]; action {
	case "list":
		return listRuns(w, store, args[1:])
	case "show":
		if len(args) < 2 {
			return errors.New("usage: skcf runs show <run-id>")
		}
		return showRun(w, store, args[1])
	case "delete":
		if len(args) < 2 {
			return errors.New("usage: skcf runs delete <run-id>")
		}
		if err := store.DeleteRun(args[1]); err != nil {
			return err
		}
		fmt.Fprintf(w, "deleted %s\n", args[1])
		return nil
	case "version":
		v, dirty, err := store.MigrateVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "schema version %d (dirty=%t)\n", v, dirty)
		return nil
	case "down":
		if err := store.MigrateDown(); err != nil {
			return err
		}
		fmt.Fprintln(w, "all migrations rolled back")
		return nil
	default:
		return fmt.Errorf("unknown runs action %q\n\n%s", action, runsUsage)
	}
}

func listRuns(w io.Writer, store *db.DB, args []string) error {
	var method string
	limit := 20
	if len(args) > 0 {
		method = args[0]
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid limit %q", args[1])
		}
		limit = n
	}

	runs, err := store.ListRuns(method, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMETHOD\tFRAMES\tACCURACY\tCREATED\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID, r.Method, r.FrameCount, optional(r.MeanAccuracy, "%.3f"),
			r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), r.Source)
	}
	return tw.Flush()
}

func showRun(w io.Writer, store *db.DB, id string) error {
	r, err := store.GetRun(id)
	if err != nil {
		return err
	}
	frames, err := store.RunFrames(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "# run %s method=%s source=%s frames=%d accuracy=%s delta=%s\n",
		r.ID, r.Method, r.Source, r.FrameCount,
		optional(r.MeanAccuracy, "%.3f"), optional(r.MeanDelta, "%.2f"))
	aw := evaluation.NewAreaWriter(w)
	for _, f := range frames {
		if err := aw.Write(f.Area); err != nil {
			return err
		}
	}
	return aw.Flush()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
