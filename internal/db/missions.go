package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pstracker/backend/internal/models"
)

// CreateMission persists a mission with all its items and checks in one
// transaction. Nothing is visible if any insert fails. Two concurrent
// creates on the same day can pick the same code, so the unique
// violation on mission_code is retried with a fresh counter read.
func (s *Store) CreateMission(ctx context.Context, m *models.Mission) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.createMission(ctx, m)
		if !isMissionCodeConflict(err) {
			return err
		}
	}
	return err
}

func isMissionCodeConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		strings.Contains(pgErr.ConstraintName, "mission_code")
}

func (s *Store) createMission(ctx context.Context, m *models.Mission) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		code, err := nextMissionCode(ctx, tx, time.Now())
		if err != nil {
			return err
		}
		m.MissionCode = code

		err = tx.QueryRow(ctx, `
			INSERT INTO missions (mission_code, cesta, batch_id, status, manual_handling, created_by)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id, created_at
		`, m.MissionCode, m.Cesta, m.BatchID, m.Status, m.ManualHandling, m.CreatedBy).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return err
		}

		for i := range m.Items {
			it := &m.Items[i]
			it.MissionID = m.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO mission_items (mission_id, n_ordine, n_lista, listone, sku, qty_ordered, qty_shipped, qty_missing, status)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
				RETURNING id
			`, m.ID, it.NOrdine, it.NLista, it.Listone, it.SKU, it.QtyOrdered, it.QtyShipped, it.QtyMissing, it.Status).Scan(&it.ID)
			if err != nil {
				return err
			}
		}

		for i := range m.Checks {
			c := &m.Checks[i]
			c.MissionID = m.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO position_checks (mission_id, position_code, udc, ordinal, skus, status)
				VALUES ($1,$2,$3,$4,$5,$6)
				RETURNING id
			`, m.ID, c.PositionCode, c.UDC, c.Ordinal, c.SKUs, c.Status).Scan(&c.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// nextMissionCode produces PSM-YYYYMMDD-NNN with a per-day counter, the
// historical code format operators already know.
func nextMissionCode(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	prefix := "PSM-" + now.Format("20060102") + "-"
	var last string
	err := tx.QueryRow(ctx, `
		SELECT mission_code FROM missions
		WHERE mission_code LIKE $1 || '%'
		ORDER BY mission_code DESC LIMIT 1
	`, prefix).Scan(&last)
	next := 1
	if err == nil {
		if n, convErr := strconv.Atoi(strings.TrimPrefix(last, prefix)); convErr == nil {
			next = n + 1
		}
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	return fmt.Sprintf("%s%03d", prefix, next), nil
}

func (s *Store) GetMission(ctx context.Context, id int64) (*models.Mission, error) {
	return s.getMission(ctx, s.Pool, id)
}

func (s *Store) GetMissionTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Mission, error) {
	return s.getMission(ctx, tx, id)
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *Store) getMission(ctx context.Context, q queryer, id int64) (*models.Mission, error) {
	var m models.Mission
	var createdBy *string
	err := q.QueryRow(ctx, `
		SELECT id, mission_code, cesta, batch_id, status, manual_handling, created_by, created_at, started_at, completed_at
		FROM missions WHERE id = $1
	`, id).Scan(&m.ID, &m.MissionCode, &m.Cesta, &m.BatchID, &m.Status, &m.ManualHandling, &createdBy, &m.CreatedAt, &m.StartedAt, &m.CompletedAt)
	if err != nil {
		return nil, err
	}
	m.CreatedBy = deref(createdBy)

	items, err := missionItems(ctx, q, id)
	if err != nil {
		return nil, err
	}
	m.Items = items

	checks, err := missionChecks(ctx, q, id)
	if err != nil {
		return nil, err
	}
	m.Checks = checks
	return &m, nil
}

func missionItems(ctx context.Context, q queryer, missionID int64) ([]models.MissionItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, mission_id, n_ordine, n_lista, listone, sku, qty_ordered, qty_shipped, qty_missing, status, resolved_at
		FROM mission_items WHERE mission_id = $1 ORDER BY sku, n_lista
	`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MissionItem
	for rows.Next() {
		var it models.MissionItem
		if err := rows.Scan(&it.ID, &it.MissionID, &it.NOrdine, &it.NLista, &it.Listone, &it.SKU,
			&it.QtyOrdered, &it.QtyShipped, &it.QtyMissing, &it.Status, &it.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func missionChecks(ctx context.Context, q queryer, missionID int64) ([]models.PositionCheck, error) {
	rows, err := q.Query(ctx, `
		SELECT id, mission_id, position_code, udc, ordinal, skus, status, checked_by, checked_at, notes
		FROM position_checks WHERE mission_id = $1 ORDER BY ordinal
	`, missionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PositionCheck
	for rows.Next() {
		var c models.PositionCheck
		var checkedBy, notes *string
		if err := rows.Scan(&c.ID, &c.MissionID, &c.PositionCode, &c.UDC, &c.Ordinal, &c.SKUs,
			&c.Status, &checkedBy, &c.CheckedAt, &notes); err != nil {
			return nil, err
		}
		c.CheckedBy = deref(checkedBy)
		c.Notes = deref(notes)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListMissions(ctx context.Context, status string, limit int) ([]models.Mission, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `
		SELECT id, mission_code, cesta, batch_id, status, manual_handling, created_by, created_at, started_at, completed_at
		FROM missions`
	var args []any
	if status != "" {
		args = append(args, strings.ToUpper(status))
		query += " WHERE status = $1"
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Mission
	for rows.Next() {
		var m models.Mission
		var createdBy *string
		if err := rows.Scan(&m.ID, &m.MissionCode, &m.Cesta, &m.BatchID, &m.Status, &m.ManualHandling,
			&createdBy, &m.CreatedAt, &m.StartedAt, &m.CompletedAt); err != nil {
			return nil, err
		}
		m.CreatedBy = deref(createdBy)
		out = append(out, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	for i := range out {
		items, err := missionItems(ctx, s.Pool, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
		checks, err := missionChecks(ctx, s.Pool, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Checks = checks
	}
	return out, nil
}

func (s *Store) GetCheck(ctx context.Context, checkID int64) (*models.PositionCheck, error) {
	var c models.PositionCheck
	var checkedBy, notes *string
	err := s.Pool.QueryRow(ctx, `
		SELECT id, mission_id, position_code, udc, ordinal, skus, status, checked_by, checked_at, notes
		FROM position_checks WHERE id = $1
	`, checkID).Scan(&c.ID, &c.MissionID, &c.PositionCode, &c.UDC, &c.Ordinal, &c.SKUs,
		&c.Status, &checkedBy, &c.CheckedAt, &notes)
	if err != nil {
		return nil, err
	}
	c.CheckedBy = deref(checkedBy)
	c.Notes = deref(notes)
	return &c, nil
}

func (s *Store) UpdateCheckTx(ctx context.Context, tx pgx.Tx, c models.PositionCheck) error {
	_, err := tx.Exec(ctx, `
		UPDATE position_checks
		SET status = $1, checked_by = $2, checked_at = $3, notes = $4
		WHERE id = $5
	`, c.Status, c.CheckedBy, c.CheckedAt, c.Notes, c.ID)
	return err
}

func (s *Store) UpdateItemStatusTx(ctx context.Context, tx pgx.Tx, itemID int64, status models.ItemStatus, resolvedAt *time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE mission_items SET status = $1, resolved_at = $2 WHERE id = $3
	`, status, resolvedAt, itemID)
	return err
}

func (s *Store) UpdateMissionStatusTx(ctx context.Context, tx pgx.Tx, missionID int64, status models.MissionStatus, startedAt, completedAt *time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE missions SET status = $1, started_at = $2, completed_at = $3 WHERE id = $4
	`, status, startedAt, completedAt, missionID)
	return err
}
