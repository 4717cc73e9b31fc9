// Package evaluation scores tracker output against ground truth and
// renders the results as PNG plots and an HTML report.
package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/skcf/internal/geom"
)

// ErrMalformedRow is returned for a CSV row that is neither x,y,w,h nor
// eight corner coordinates.
var ErrMalformedRow = errors.New("malformed area row")

// ReadAreas parses one area per row. A row is either x,y,w,h (top-left and
// size) or x1,y1,...,x4,y4 (corners, clockwise). Blank lines are skipped;
// fields may be separated by commas or whitespace.
func ReadAreas(r io.Reader) ([]geom.Quad, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []geom.Quad
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		fields := splitFields(rec)
		if len(fields) == 0 {
			continue
		}
		q, err := parseArea(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, q)
	}
}

// splitFields flattens CSV fields that themselves hold whitespace
// separated values.
func splitFields(rec []string) []string {
	var out []string
	for _, f := range rec {
		out = append(out, strings.Fields(f)...)
	}
	return out
}

func parseArea(fields []string) (geom.Quad, error) {
	v := make([]float64, len(fields))
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return geom.Quad{}, fmt.Errorf("%w: field %d %q", ErrMalformedRow, i+1, f)
		}
		v[i] = x
	}
	switch len(v) {
	case 4:
		r := geom.Rect{
			Center: geom.Pt(v[0]+v[2]/2, v[1]+v[3]/2),
			Size:   geom.Size{W: v[2], H: v[3]},
		}
		return geom.Quad(r.Corners()), nil
	case 8:
		return geom.Quad{{X: v[0], Y: v[1]}, {X: v[2], Y: v[3]}, {X: v[4], Y: v[5]}, {X: v[6], Y: v[7]}}, nil
	}
	return geom.Quad{}, fmt.Errorf("%w: %d values, want 4 or 8", ErrMalformedRow, len(v))
}

// ReadAreasFile is ReadAreas on a file.
func ReadAreasFile(path string) ([]geom.Quad, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open areas file: %w", err)
	}
	defer f.Close()
	areas, err := ReadAreas(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return areas, nil
}

// AreaWriter writes one clockwise quadrilateral per row.
type AreaWriter struct {
	w *csv.Writer
}

// NewAreaWriter wraps w.
func NewAreaWriter(w io.Writer) *AreaWriter {
	return &AreaWriter{w: csv.NewWriter(w)}
}

// Write appends q as x1,y1,...,x4,y4.
func (a *AreaWriter) Write(q geom.Quad) error {
	row := make([]string, 0, 8)
	for _, p := range q {
		row = append(row, strconv.FormatFloat(p.X, 'f', 2, 64), strconv.FormatFloat(p.Y, 'f', 2, 64))
	}
	return a.w.Write(row)
}

// Flush writes buffered rows and reports any write error.
func (a *AreaWriter) Flush() error {
	a.w.Flush()
	return a.w.Error()
}
