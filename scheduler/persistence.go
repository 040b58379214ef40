package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ovheul/heatplan/planner"
)

// savePlan persists the planner output to the database, one row per
// step, replacing any previously stored steps from the same horizon
// onward.
func (s *HeatScheduler) savePlan(ctx context.Context, plannedAt time.Time, out *planner.Output) error {
	if s.db == nil {
		return fmt.Errorf("database connection not available")
	}
	if len(out.Offsets) == 0 {
		return nil
	}

	config := s.GetConfig()
	stepSeconds := int64(config.StepHours * 3600)
	firstStep := plannedAt.Truncate(time.Duration(stepSeconds) * time.Second).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM plan_steps WHERE step_start >= $1`, firstStep); err != nil {
		return fmt.Errorf("failed to delete stale steps: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO plan_steps (
			step_start,
			planned_at,
			status,
			offset_c,
			buffer_kwh,
			supply_temp,
			cost,
			savings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (step_start) DO UPDATE SET
			planned_at = EXCLUDED.planned_at,
			status = EXCLUDED.status,
			offset_c = EXCLUDED.offset_c,
			buffer_kwh = EXCLUDED.buffer_kwh,
			supply_temp = EXCLUDED.supply_temp,
			cost = EXCLUDED.cost,
			savings = EXCLUDED.savings
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for t := range out.Offsets {
		var supply, cost, savings float64
		if t < len(out.SupplyTemp) {
			supply = out.SupplyTemp[t]
		}
		if t < len(out.CostPerStep) {
			cost = out.CostPerStep[t]
		}
		if t < len(out.SavingsPerStep) {
			savings = out.SavingsPerStep[t]
		}
		_, err := stmt.ExecContext(ctx,
			firstStep+int64(t)*stepSeconds,
			plannedAt,
			string(out.Status),
			out.Offsets[t],
			out.Buffer[t],
			supply,
			cost,
			savings,
		)
		if err != nil {
			return fmt.Errorf("failed to insert step %d: %w", t, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Printf("Saved %d plan steps to database", len(out.Offsets))
	return nil
}

// loadLatestPlan reloads the most recently persisted plan covering the
// present, reconstructing a partial planner output.
func (s *HeatScheduler) loadLatestPlan(ctx context.Context) (*planner.Output, time.Time, error) {
	if s.db == nil {
		return nil, time.Time{}, fmt.Errorf("database connection not available")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT step_start, planned_at, status, offset_c, buffer_kwh, supply_temp, cost, savings
		FROM plan_steps
		WHERE step_start >= $1
		ORDER BY step_start ASC
	`, time.Now().Add(-time.Hour).Unix())
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to query plan steps: %w", err)
	}
	defer rows.Close()

	out := &planner.Output{}
	var plannedAt time.Time
	for rows.Next() {
		var stepStart int64
		var status string
		var offset int
		var buffer, supply, cost, savings float64
		if err := rows.Scan(&stepStart, &plannedAt, &status, &offset, &buffer, &supply, &cost, &savings); err != nil {
			return nil, time.Time{}, fmt.Errorf("failed to scan plan step: %w", err)
		}
		out.Status = planner.Status(status)
		out.Offsets = append(out.Offsets, offset)
		out.Buffer = append(out.Buffer, buffer)
		out.SupplyTemp = append(out.SupplyTemp, supply)
		out.CostPerStep = append(out.CostPerStep, cost)
		out.SavingsPerStep = append(out.SavingsPerStep, savings)
		out.TotalCost += cost
		out.TotalSavings += savings
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("error iterating plan steps: %w", err)
	}

	if len(out.Offsets) == 0 {
		return nil, time.Time{}, nil
	}
	return out, plannedAt, nil
}

// saveManualOverride stores (or clears, when nil) the operator override.
func (s *HeatScheduler) saveManualOverride(ctx context.Context, offset *int) error {
	if s.db == nil {
		return fmt.Errorf("database connection not available")
	}

	if offset == nil {
		_, err := s.db.ExecContext(ctx, `DELETE FROM manual_override WHERE id = 1`)
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO manual_override (id, offset_c, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET offset_c = EXCLUDED.offset_c, updated_at = EXCLUDED.updated_at
	`, *offset, time.Now())
	return err
}

// loadManualOverride returns the persisted operator override, or nil.
func (s *HeatScheduler) loadManualOverride(ctx context.Context) (*int, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database connection not available")
	}

	var offset int
	err := s.db.QueryRowContext(ctx, `SELECT offset_c FROM manual_override WHERE id = 1`).Scan(&offset)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &offset, nil
}
