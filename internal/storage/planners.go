package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sms-planner/internal/models"
)

// FindOrCreatePlanner returns the planner for phone, creating it on first
// contact. created reports whether a new row was inserted.
func (q *Queries) FindOrCreatePlanner(ctx context.Context, phone string) (*models.Planner, bool, error) {
	res, err := q.exec(ctx,
		`INSERT INTO planners (phone, name, created_at) VALUES (?, '', ?) ON CONFLICT (phone) DO NOTHING`,
		phone, time.Now().UTC())
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert planner: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert planner: %w", err)
	}

	p, err := q.PlannerByPhone(ctx, phone)
	if err != nil {
		return nil, false, err
	}
	return p, n == 1, nil
}

// PlannerByPhone looks a planner up by canonical phone key.
func (q *Queries) PlannerByPhone(ctx context.Context, phone string) (*models.Planner, error) {
	return q.scanPlanner(q.queryRow(ctx, `SELECT id, phone, name FROM planners WHERE phone = ?`, phone))
}

// GetPlanner looks a planner up by id.
func (q *Queries) GetPlanner(ctx context.Context, id int64) (*models.Planner, error) {
	return q.scanPlanner(q.queryRow(ctx, `SELECT id, phone, name FROM planners WHERE id = ?`, id))
}

func (q *Queries) scanPlanner(row *sql.Row) (*models.Planner, error) {
	var p models.Planner
	if err := row.Scan(&p.ID, &p.Phone, &p.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load planner: %w", err)
	}
	return &p, nil
}

// SetPlannerName stores the planner's display name.
func (q *Queries) SetPlannerName(ctx context.Context, id int64, name string) error {
	_, err := q.exec(ctx, `UPDATE planners SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("failed to update planner name: %w", err)
	}
	return nil
}
