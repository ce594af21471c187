// Package sqlite keeps a ledger of workflow runs in an SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/fire-risk-etl/internal/domain"
)

// Ledger records run reports. It implements pipeline.Recorder.
type Ledger struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the ledger at path and applies migrations.
func Open(path string, logger *slog.Logger) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := migrateUp(db, logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record stores a run report and its steps in one transaction. Recording the
// same run ID again replaces the earlier entry.
func (l *Ledger) Record(ctx context.Context, r domain.RunReport) error {
	if r.ID == "" {
		return errors.New("run report has no id")
	}
	layers, err := json.Marshal(r.Layers)
	if err != nil {
		return fmt.Errorf("encode layers: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, r.ID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			id, started_at, finished_at, status, error, grid_rows, grid_cols, cell_size,
			weight_slope, weight_aspect, weight_vegetation, vegetation_default, layers
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, toNanos(r.StartedAt), toNanos(r.FinishedAt), string(r.Status), r.Error,
		r.Shape.Rows, r.Shape.Cols, r.CellSize,
		r.Weights.Slope, r.Weights.Aspect, r.Weights.Vegetation,
		r.VegetationDefault, string(layers),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, s := range r.Steps {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_steps (run_id, seq, name, status, duration_ns, error) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, i, s.Name, string(s.Status), int64(s.Duration), s.Error,
		)
		if err != nil {
			return fmt.Errorf("insert step %s: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run write: %w", err)
	}
	l.logger.Debug("run recorded", "run_id", r.ID, "status", r.Status)
	return nil
}

// Get returns the run with the given ID.
func (l *Ledger) Get(ctx context.Context, id string) (domain.RunReport, error) {
	return l.queryOne(ctx, `WHERE id = ?`, id)
}

// Latest returns the most recently finished run.
func (l *Ledger) Latest(ctx context.Context) (domain.RunReport, error) {
	return l.queryOne(ctx, `ORDER BY finished_at DESC, rowid DESC LIMIT 1`)
}

// List returns up to limit runs, newest first, without their steps.
func (l *Ledger) List(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, selectRun+` ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.RunReport
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

const selectRun = `
	SELECT id, started_at, finished_at, status, error, grid_rows, grid_cols, cell_size,
	       weight_slope, weight_aspect, weight_vegetation, vegetation_default, layers
	FROM runs`

func (l *Ledger) queryOne(ctx context.Context, clause string, args ...any) (domain.RunReport, error) {
	r, err := scanRun(l.db.QueryRowContext(ctx, selectRun+" "+clause, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunReport{}, domain.ErrRunNotFound
	}
	if err != nil {
		return domain.RunReport{}, err
	}

	r.Steps, err = l.steps(ctx, r.ID)
	if err != nil {
		return domain.RunReport{}, err
	}
	return r, nil
}

func (l *Ledger) steps(ctx context.Context, runID string) ([]domain.StepReport, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT name, status, duration_ns, error FROM run_steps WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	var out []domain.StepReport
	for rows.Next() {
		var (
			s        domain.StepReport
			status   string
			duration int64
		)
		if err := rows.Scan(&s.Name, &status, &duration, &s.Error); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		s.Status = domain.Status(status)
		s.Duration = time.Duration(duration)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (domain.RunReport, error) {
	var (
		r                 domain.RunReport
		started, finished int64
		status, layers    string
	)
	err := s.Scan(
		&r.ID, &started, &finished, &status, &r.Error,
		&r.Shape.Rows, &r.Shape.Cols, &r.CellSize,
		&r.Weights.Slope, &r.Weights.Aspect, &r.Weights.Vegetation,
		&r.VegetationDefault, &layers,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.RunReport{}, err
		}
		return domain.RunReport{}, fmt.Errorf("scan run: %w", err)
	}
	r.StartedAt = fromNanos(started)
	r.FinishedAt = fromNanos(finished)
	r.Status = domain.Status(status)
	if err := json.Unmarshal([]byte(layers), &r.Layers); err != nil {
		return domain.RunReport{}, fmt.Errorf("decode layers: %w", err)
	}
	return r, nil
}

func toNanos(t time.Time) int64 { return t.UTC().UnixNano() }

func fromNanos(v int64) time.Time { return time.Unix(0, v).UTC() }
