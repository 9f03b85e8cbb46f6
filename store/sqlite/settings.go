package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/fees"
)

// =============================================================================
// SETTINGS - cycle policy and fee schedule
// =============================================================================
//
// Both documents are stored in their factory JSON form and re-validated on
// read, so a hand-edited row surfaces as a typed error instead of a bad cycle.

const (
	keyCyclePolicy = "cycle_policy"
	keyFeeSchedule = "fee_schedule"
)

// SetCyclePolicy validates and stores the active cycle policy.
func (s *Store) SetCyclePolicy(ctx context.Context, p cycle.Policy) error {
	if p == nil {
		return &cycle.ConfigError{Field: "kind", Reason: "missing"}
	}
	if err := p.Validate(); err != nil {
		return err
	}
	return s.putSetting(ctx, keyCyclePolicy, factory.CycleToJSON(p))
}

// CyclePolicy returns the active policy, ErrNotFound when none is stored.
func (s *Store) CyclePolicy(ctx context.Context) (cycle.Policy, error) {
	var cj factory.CycleJSON
	if err := s.getSetting(ctx, keyCyclePolicy, &cj); err != nil {
		return nil, err
	}
	return s.factory.CycleFromJSON(cj)
}

// SetFeeSchedule validates and stores the active fee schedule.
func (s *Store) SetFeeSchedule(ctx context.Context, schedule fees.Schedule) error {
	fj := factory.FeesToJSON(schedule)
	if _, err := s.factory.FeesFromJSON(fj); err != nil {
		return err
	}
	return s.putSetting(ctx, keyFeeSchedule, fj)
}

// FeeSchedule returns the active fee schedule, ErrNotFound when none is stored.
func (s *Store) FeeSchedule(ctx context.Context) (fees.Schedule, error) {
	var fj factory.FeeJSON
	if err := s.getSetting(ctx, keyFeeSchedule, &fj); err != nil {
		return fees.Schedule{}, err
	}
	return s.factory.FeesFromJSON(fj)
}

// SeedDefaults stores p and schedule for whichever setting is still missing.
func (s *Store) SeedDefaults(ctx context.Context, p cycle.Policy, schedule fees.Schedule) error {
	if _, err := s.CyclePolicy(ctx); errors.Is(err, ErrNotFound) {
		if err := s.SetCyclePolicy(ctx, p); err != nil {
			return err
		}
	}
	if _, err := s.FeeSchedule(ctx); errors.Is(err, ErrNotFound) {
		if err := s.SetFeeSchedule(ctx, schedule); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) putSetting(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value_json, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value_json = excluded.value_json,
				updated_at = excluded.updated_at
		`, key, string(data), now())
		return err
	})
}

func (s *Store) getSetting(ctx context.Context, key string, dest any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value_json FROM settings WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("setting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}
