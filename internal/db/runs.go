package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/skcf/internal/geom"
)

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = errors.New("run not found")

// Run is one tracker pass over one source.
type Run struct {
	ID           string
	Method       string
	Source       string // video path or synthetic sequence name
	ConfigJSON   string
	FrameCount   int
	MeanAccuracy *float64 // nil without ground truth
	MeanDelta    *float64
	MeanFrameMs  *float64
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Frame is the tracked area of one frame.
type Frame struct {
	Index    int
	Area     geom.Quad
	Accuracy *float64
	Delta    *float64
}

// RunSummary carries the figures known when a run completes.
type RunSummary struct {
	FrameCount   int
	MeanAccuracy *float64
	MeanDelta    *float64
	MeanFrameMs  *float64
}

// CreateRun inserts a new run and returns its generated ID.
func (db *DB) CreateRun(method, source, configJSON string) (string, error) {
	id := uuid.New().String()
	_, err := db.Exec(
		`INSERT INTO tracker_runs (run_id, method, source, config_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, method, source, configJSON, unixSeconds(db.clock.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// RecordFrames stores frames for a run in one transaction.
func (db *DB) RecordFrames(runID string, frames []Frame) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO tracker_frames (
			run_id, frame_idx, x1, y1, x2, y2, x3, y3, x4, y4, accuracy, delta
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare frame insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range frames {
		q := f.Area
		if _, err := stmt.Exec(runID, f.Index,
			q[0].X, q[0].Y, q[1].X, q[1].Y, q[2].X, q[2].Y, q[3].X, q[3].Y,
			f.Accuracy, f.Delta,
		); err != nil {
			return fmt.Errorf("failed to record frame %d: %w", f.Index, err)
		}
	}
	return tx.Commit()
}

// CompleteRun stores the run summary and completion time.
func (db *DB) CompleteRun(runID string, s RunSummary) error {
	res, err := db.Exec(
		`UPDATE tracker_runs SET frame_count = ?, mean_accuracy = ?, mean_delta = ?, mean_frame_ms = ?, completed_at = ?
		WHERE run_id = ?`,
		s.FrameCount, s.MeanAccuracy, s.MeanDelta, s.MeanFrameMs, unixSeconds(db.clock.Now()), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("complete %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun returns a run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(`SELECT run_id, method, source, config_json, frame_count,
			mean_accuracy, mean_delta, mean_frame_ms, created_at, completed_at
		FROM tracker_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", runID, ErrRunNotFound)
	}
	return r, err
}

// ListRuns returns runs newest first, optionally filtered by method.
func (db *DB) ListRuns(method string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT run_id, method, source, config_json, frame_count,
			mean_accuracy, mean_delta, mean_frame_ms, created_at, completed_at
		FROM tracker_runs WHERE (? = '' OR method = ?)
		ORDER BY created_at DESC LIMIT ?`, method, method, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// RunFrames returns the frames of a run in frame order.
func (db *DB) RunFrames(runID string) ([]Frame, error) {
	rows, err := db.Query(`SELECT frame_idx, x1, y1, x2, y2, x3, y3, x4, y4, accuracy, delta
		FROM tracker_frames WHERE run_id = ? ORDER BY frame_idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var out []Frame
	for rows.Next() {
		var f Frame
		var acc, delta sql.NullFloat64
		q := &f.Area
		if err := rows.Scan(&f.Index,
			&q[0].X, &q[0].Y, &q[1].X, &q[1].Y, &q[2].X, &q[2].Y, &q[3].X, &q[3].Y,
			&acc, &delta,
		); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		f.Accuracy = nullable(acc)
		f.Delta = nullable(delta)
		out = append(out, f)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its frames.
func (db *DB) DeleteRun(runID string) error {
	res, err := db.Exec(`DELETE FROM tracker_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		r                   Run
		cfg                 sql.NullString
		acc, delta, frameMs sql.NullFloat64
		createdAt           float64
		completedAt         sql.NullFloat64
	)
	if err := s.Scan(&r.ID, &r.Method, &r.Source, &cfg, &r.FrameCount,
		&acc, &delta, &frameMs, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	r.ConfigJSON = cfg.String
	r.MeanAccuracy = nullable(acc)
	r.MeanDelta = nullable(delta)
	r.MeanFrameMs = nullable(frameMs)
	r.CreatedAt = fromUnixSeconds(createdAt)
	if completedAt.Valid {
		t := fromUnixSeconds(completedAt.Float64)
		r.CompletedAt = &t
	}
	return &r, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*1e9))
}
