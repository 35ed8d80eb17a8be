package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yatra_sevak/backend/internal/models"
)

// Store archives passes and alerts to Postgres. The queue itself lives in
// memory; rows here are a write-through copy for reporting.
type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 8
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS passes (
		pass_id TEXT PRIMARY KEY,
		site_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		lang TEXT NOT NULL,
		join_time TIMESTAMPTZ NOT NULL,
		priority BOOLEAN NOT NULL,
		estimated_wait_minutes INT NOT NULL,
		slot_time TIMESTAMPTZ NOT NULL,
		slot_class TEXT NOT NULL,
		status TEXT NOT NULL,
		predicted_today INT NOT NULL,
		cancelled_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS passes_site_idx ON passes (site_id, join_time)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		site_id TEXT NOT NULL,
		location TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		severity TEXT NOT NULL,
		density DOUBLE PRECISION NOT NULL DEFAULT 0,
		eta_minutes INT NOT NULL DEFAULT 0,
		dispatched BOOLEAN NOT NULL DEFAULT FALSE
	)`,
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// SavePass inserts or refreshes a pass row.
func (s *Store) SavePass(ctx context.Context, e models.QueueEntry) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO passes (pass_id, site_id, user_id, lang, join_time, priority,
			estimated_wait_minutes, slot_time, slot_class, status, predicted_today)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (pass_id) DO UPDATE SET
			priority = EXCLUDED.priority,
			status = EXCLUDED.status`,
		e.PassID, e.SiteID, e.UserID, e.Lang, e.JoinTime, e.Priority,
		e.EstimatedWaitMinutes, e.SlotTime, string(e.SlotClass), string(e.Status), e.PredictedToday)
	return err
}

// DeletePasses marks archived passes cancelled. History is kept.
func (s *Store) DeletePasses(ctx context.Context, passIDs []string) error {
	if len(passIDs) == 0 {
		return nil
	}
	_, err := s.Pool.Exec(ctx,
		`UPDATE passes SET status = $1, cancelled_at = $2 WHERE pass_id = ANY($3)`,
		string(models.StatusCancelled), time.Now().UTC(), passIDs)
	return err
}

func (s *Store) SaveAlert(ctx context.Context, a models.Alert) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO alerts (id, kind, site_id, location, created_at, severity, density, eta_minutes, dispatched)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET dispatched = EXCLUDED.dispatched`,
		a.ID, string(a.Kind), a.SiteID, a.Location, a.CreatedAt, string(a.Severity), a.Density, a.ETAMinutes, a.Dispatched)
	return err
}

func (s *Store) MarkDispatched(ctx context.Context, siteID string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE alerts SET dispatched = TRUE WHERE site_id = $1 AND NOT dispatched`, siteID)
	return err
}

// ListPasses returns archived passes for a site, newest first.
func (s *Store) ListPasses(ctx context.Context, siteID string, limit int) ([]models.QueueEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT pass_id, site_id, user_id, lang, join_time, priority,
			estimated_wait_minutes, slot_time, slot_class, status, predicted_today
		FROM passes WHERE site_id = $1 ORDER BY join_time DESC LIMIT $2`, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.QueueEntry
	for rows.Next() {
		var (
			e            models.QueueEntry
			class, state string
		)
		if err := rows.Scan(&e.PassID, &e.SiteID, &e.UserID, &e.Lang, &e.JoinTime, &e.Priority,
			&e.EstimatedWaitMinutes, &e.SlotTime, &class, &state, &e.PredictedToday); err != nil {
			return nil, err
		}
		e.SlotClass = models.SlotClass(class)
		e.Status = models.PassStatus(state)
		out = append(out, e)
	}
	return out, rows.Err()
}
