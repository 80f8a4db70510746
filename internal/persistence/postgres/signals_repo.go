// Package postgres implements persistence.SignalStore on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sawpanic/signalrun/internal/persistence"
	"github.com/sawpanic/signalrun/internal/regime"
	"github.com/sawpanic/signalrun/internal/setups"
	"github.com/sawpanic/signalrun/internal/signal"
)

// Schema creates the signals table. Applied by Manager.Migrate.
const Schema = `
CREATE TABLE IF NOT EXISTS signals (
	audit_id                 TEXT PRIMARY KEY,
	symbol                   TEXT NOT NULL,
	side                     TEXT NOT NULL,
	setup                    TEXT NOT NULL,
	regime                   TEXT NOT NULL,
	entry                    DOUBLE PRECISION NOT NULL,
	stop                     DOUBLE PRECISION NOT NULL,
	tp1                      DOUBLE PRECISION NOT NULL,
	tp2                      DOUBLE PRECISION NOT NULL,
	tp_final                 DOUBLE PRECISION NOT NULL,
	tp1_clamped              BOOLEAN NOT NULL DEFAULT FALSE,
	trail_atr_mult           DOUBLE PRECISION NOT NULL,
	trail_atr_mult_after_tp1 DOUBLE PRECISION NOT NULL,
	trail_atr_mult_after_tp2 DOUBLE PRECISION NOT NULL,
	score                    DOUBLE PRECISION NOT NULL,
	reasons                  TEXT[] NOT NULL DEFAULT '{}',
	size_multiplier          DOUBLE PRECISION NOT NULL,
	generated_at             TIMESTAMPTZ NOT NULL,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS signals_generated_at_idx ON signals (generated_at DESC);`

const signalColumns = `audit_id, symbol, side, setup, regime, entry, stop, tp1, tp2, tp_final, tp1_clamped,
		trail_atr_mult, trail_atr_mult_after_tp1, trail_atr_mult_after_tp2,
		score, reasons, size_multiplier, generated_at`

// signalRow is the table mapping for signal.Signal
type signalRow struct {
	AuditID              string         `db:"audit_id"`
	Symbol               string         `db:"symbol"`
	Side                 string         `db:"side"`
	Setup                string         `db:"setup"`
	Regime               string         `db:"regime"`
	Entry                float64        `db:"entry"`
	Stop                 float64        `db:"stop"`
	TP1                  float64        `db:"tp1"`
	TP2                  float64        `db:"tp2"`
	TPFinal              float64        `db:"tp_final"`
	TP1Clamped           bool           `db:"tp1_clamped"`
	TrailATRMult         float64        `db:"trail_atr_mult"`
	TrailATRMultAfterTP1 float64        `db:"trail_atr_mult_after_tp1"`
	TrailATRMultAfterTP2 float64        `db:"trail_atr_mult_after_tp2"`
	Score                float64        `db:"score"`
	Reasons              pq.StringArray `db:"reasons"`
	SizeMultiplier       float64        `db:"size_multiplier"`
	GeneratedAt          time.Time      `db:"generated_at"`
}

func toRow(s *signal.Signal) signalRow {
	return signalRow{
		AuditID:              s.AuditID,
		Symbol:               s.Symbol,
		Side:                 string(s.Side),
		Setup:                string(s.Setup),
		Regime:               s.Regime.String(),
		Entry:                s.Entry,
		Stop:                 s.Stop,
		TP1:                  s.TP1,
		TP2:                  s.TP2,
		TPFinal:              s.TPFinal,
		TP1Clamped:           s.TP1Clamped,
		TrailATRMult:         s.TrailATRMult,
		TrailATRMultAfterTP1: s.TrailATRMultAfterTP1,
		TrailATRMultAfterTP2: s.TrailATRMultAfterTP2,
		Score:                s.Score,
		Reasons:              pq.StringArray(s.Reasons),
		SizeMultiplier:       s.SizeMultiplier,
		GeneratedAt:          s.GeneratedAt.UTC(),
	}
}

func (r signalRow) toSignal() (*signal.Signal, error) {
	rg, err := regime.Parse(r.Regime)
	if err != nil {
		return nil, fmt.Errorf("signal %s: %w", r.AuditID, err)
	}
	return &signal.Signal{
		AuditID:              r.AuditID,
		Symbol:               r.Symbol,
		Side:                 signal.Side(r.Side),
		Setup:                setups.Setup(r.Setup),
		Regime:               rg,
		Entry:                r.Entry,
		Stop:                 r.Stop,
		TP1:                  r.TP1,
		TP2:                  r.TP2,
		TPFinal:              r.TPFinal,
		TP1Clamped:           r.TP1Clamped,
		TrailATRMult:         r.TrailATRMult,
		TrailATRMultAfterTP1: r.TrailATRMultAfterTP1,
		TrailATRMultAfterTP2: r.TrailATRMultAfterTP2,
		Score:                r.Score,
		Reasons:              []string(r.Reasons),
		SizeMultiplier:       r.SizeMultiplier,
		GeneratedAt:          r.GeneratedAt.UTC(),
	}, nil
}

// signalsRepo implements persistence.SignalStore for PostgreSQL
type signalsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSignalsRepo creates a new PostgreSQL signal repository
func NewSignalsRepo(db *sqlx.DB, timeout time.Duration) persistence.SignalStore {
	return &signalsRepo{
		db:      db,
		timeout: timeout,
	}
}

// Insert records a signal once per audit id
func (r *signalsRepo) Insert(ctx context.Context, s *signal.Signal) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO signals (` + signalColumns + `)
		VALUES (:audit_id, :symbol, :side, :setup, :regime, :entry, :stop, :tp1, :tp2, :tp_final, :tp1_clamped,
			:trail_atr_mult, :trail_atr_mult_after_tp1, :trail_atr_mult_after_tp2,
			:score, :reasons, :size_multiplier, :generated_at)
		ON CONFLICT (audit_id) DO NOTHING`

	res, err := r.db.NamedExecContext(ctx, query, toRow(s))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert signal %s: %w", s.AuditID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n == 1, nil
}

// Delete removes a signal by audit id
func (r *signalsRepo) Delete(ctx context.Context, auditID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM signals WHERE audit_id = $1`, auditID); err != nil {
		return fmt.Errorf("failed to delete signal %s: %w", auditID, err)
	}
	return nil
}

// GetByAuditID finds a signal by its audit id
func (r *signalsRepo) GetByAuditID(ctx context.Context, auditID string) (*signal.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + signalColumns + ` FROM signals WHERE audit_id = $1`

	var row signalRow
	if err := r.db.GetContext(ctx, &row, query, auditID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get signal %s: %w", auditID, err)
	}
	return row.toSignal()
}

// List retrieves signals inside the window, newest first
func (r *signalsRepo) List(ctx context.Context, tr persistence.TimeRange, limit int) ([]*signal.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if limit <= 0 {
		limit = 1000
	}

	query := `
		SELECT ` + signalColumns + `
		FROM signals
		WHERE generated_at >= $1 AND generated_at < $2
		ORDER BY generated_at DESC, audit_id
		LIMIT $3`

	var rows []signalRow
	if err := r.db.SelectContext(ctx, &rows, query, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("failed to list signals: %w", err)
	}

	out := make([]*signal.Signal, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSignal()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// CountBySetup returns signal counts grouped by setup
func (r *signalsRepo) CountBySetup(ctx context.Context, tr persistence.TimeRange) (map[string]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT setup, COUNT(*)
		FROM signals
		WHERE generated_at >= $1 AND generated_at < $2
		GROUP BY setup
		ORDER BY setup`

	rows, err := r.db.QueryxContext(ctx, query, tr.From, tr.To)
	if err != nil {
		return nil, fmt.Errorf("failed to count signals by setup: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var setup string
		var count int64
		if err := rows.Scan(&setup, &count); err != nil {
			return nil, fmt.Errorf("failed to scan setup count: %w", err)
		}
		counts[setup] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return counts, nil
}
