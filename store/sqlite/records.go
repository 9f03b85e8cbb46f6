package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/settlement"
)

// ErrDuplicate is returned when inserting a record whose ID already exists.
var ErrDuplicate = errors.New("duplicate id")

// =============================================================================
// PROFESSIONALS
// =============================================================================

// SaveProfessional inserts or updates a roster entry. The whole roster is
// re-validated inside the transaction, so a salary source loop or a dangling
// salary source is never persisted.
func (s *Store) SaveProfessional(ctx context.Context, p settlement.Professional) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		roster, err := queryJSON[settlement.Professional](ctx, tx,
			"SELECT data_json FROM professionals ORDER BY position ASC")
		if err != nil {
			return err
		}
		replaced := false
		for i := range roster {
			if roster[i].ID == p.ID {
				roster[i] = p
				replaced = true
			}
		}
		if !replaced {
			roster = append(roster, p)
		}
		if err := factory.ValidateRoster(roster); err != nil {
			return err
		}

		data, err := json.Marshal(factory.ProfessionalToJSON(p))
		if err != nil {
			return err
		}
		ts := now()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO professionals (id, position, name, employment, salary_source, data_json, created_at, updated_at)
			VALUES (?, (SELECT COALESCE(MAX(position), 0) + 1 FROM professionals), ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				employment = excluded.employment,
				salary_source = excluded.salary_source,
				data_json = excluded.data_json,
				updated_at = excluded.updated_at
		`, p.ID, p.Name, p.Employment, p.SalarySource, string(data), ts, ts)
		if err != nil {
			return fmt.Errorf("failed to save professional: %w", err)
		}
		return nil
	})
}

// Professionals returns the roster in insertion order.
func (s *Store) Professionals(ctx context.Context) ([]settlement.Professional, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, err := queryJSON[factory.ProfessionalJSON](ctx, s.db,
		"SELECT data_json FROM professionals ORDER BY position ASC")
	if err != nil {
		return nil, err
	}
	out := make([]settlement.Professional, 0, len(stored))
	for _, pj := range stored {
		p, err := s.factory.ProfessionalFromJSON(pj)
		if err != nil {
			return nil, fmt.Errorf("stored professional %s: %w", pj.ID, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// =============================================================================
// SALES
// =============================================================================

// AddSale stores a finalized sale. Sales are immutable once written.
func (s *Store) AddSale(ctx context.Context, sale settlement.Sale) error {
	data, err := json.Marshal(sale)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sales (id, at_ms, method, total, data_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sale.ID, sale.At.UnixMilli(), sale.Payment.Method, sale.Total.String(), string(data), now())
		return insertError("sale", err)
	})
}

// Sales returns sales with At in [from, to], oldest first.
func (s *Store) Sales(ctx context.Context, from, to time.Time) ([]settlement.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryJSON[settlement.Sale](ctx, s.db,
		"SELECT data_json FROM sales WHERE at_ms >= ? AND at_ms <= ? ORDER BY at_ms ASC, id ASC",
		from.UnixMilli(), to.UnixMilli())
}

// =============================================================================
// VALES
// =============================================================================

// AddVale stores an advance.
func (s *Store) AddVale(ctx context.Context, v settlement.Vale) error {
	if v.Status == "" {
		v.Status = settlement.ValeActive
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vales (id, employee_id, at_ms, total, status, data_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, v.ID, v.EmployeeID, v.At.UnixMilli(), v.Total.String(), v.Status, string(data), now())
		return insertError("vale", err)
	})
}

// SettleVale marks an advance as settled.
func (s *Store) SettleVale(ctx context.Context, id string) (settlement.Vale, error) {
	var v settlement.Vale
	err := s.write(ctx, func(tx *sql.Tx) error {
		var raw string
		err := tx.QueryRowContext(ctx, "SELECT data_json FROM vales WHERE id = ?", id).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("vale %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return err
		}
		v.Status = settlement.ValeSettled
		if v.Plan != nil {
			v.Plan.Paid = v.Plan.Count
		}
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE vales SET status = ?, data_json = ? WHERE id = ?",
			v.Status, string(data), id)
		return err
	})
	return v, err
}

// Vales returns every advance, oldest first.
func (s *Store) Vales(ctx context.Context) ([]settlement.Vale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryJSON[settlement.Vale](ctx, s.db, "SELECT data_json FROM vales ORDER BY at_ms ASC, id ASC")
}

// =============================================================================
// EXPENSES
// =============================================================================

// AddExpense stores a manual expense. Derived entries are recomputed per
// report and are refused here.
func (s *Store) AddExpense(ctx context.Context, e settlement.Expense) error {
	if e.Source == "" {
		e.Source = settlement.SourceManual
	}
	if e.IsDerived() {
		return &factory.ValidationError{Fields: map[string]string{"source": "derived expenses are not stored"}}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO expenses (id, at_ms, category, amount, source, data_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.At.UnixMilli(), e.Category, e.Amount.String(), e.Source, string(data), now())
		return insertError("expense", err)
	})
}

// Expenses returns stored expenses with At in [from, to], oldest first.
func (s *Store) Expenses(ctx context.Context, from, to time.Time) ([]settlement.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryJSON[settlement.Expense](ctx, s.db,
		"SELECT data_json FROM expenses WHERE at_ms >= ? AND at_ms <= ? ORDER BY at_ms ASC, id ASC",
		from.UnixMilli(), to.UnixMilli())
}

// =============================================================================
// STOCK
// =============================================================================

// SaveStockItem inserts or updates a product's unit cost.
func (s *Store) SaveStockItem(ctx context.Context, item settlement.StockItem) error {
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stock_items (item_id, name, unit_cost, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(item_id) DO UPDATE SET
				name = excluded.name,
				unit_cost = excluded.unit_cost,
				updated_at = excluded.updated_at
		`, item.ItemID, item.Name, item.UnitCost.String(), now())
		return err
	})
}

// StockItems returns every product with a unit cost.
func (s *Store) StockItems(ctx context.Context) ([]settlement.StockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT item_id, name, unit_cost FROM stock_items ORDER BY item_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stock items: %w", err)
	}
	defer rows.Close()

	items := []settlement.StockItem{}
	for rows.Next() {
		var (
			item settlement.StockItem
			name sql.NullString
			cost string
		)
		if err := rows.Scan(&item.ItemID, &name, &cost); err != nil {
			return nil, err
		}
		item.Name = name.String
		if item.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, fmt.Errorf("stock item %s: %w", item.ItemID, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// AddStockPurchase records a restock. It also refreshes the item's unit cost
// so cost of goods follows the latest purchase price.
func (s *Store) AddStockPurchase(ctx context.Context, p settlement.StockPurchase) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.write(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO stock_purchases (id, at_ms, item_id, quantity, unit_cost, data_json)
			VALUES (?, ?, ?, ?, ?, ?)
		`, p.ID, p.At.UnixMilli(), p.ItemID, p.Quantity, p.UnitCost.String(), string(data))
		if err := insertError("stock purchase", err); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO stock_items (item_id, name, unit_cost, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(item_id) DO UPDATE SET
				unit_cost = excluded.unit_cost,
				updated_at = excluded.updated_at
		`, p.ItemID, p.ItemID, p.UnitCost.String(), now())
		return err
	})
}

// StockPurchases returns restocks with At in [from, to], oldest first.
func (s *Store) StockPurchases(ctx context.Context, from, to time.Time) ([]settlement.StockPurchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryJSON[settlement.StockPurchase](ctx, s.db,
		"SELECT data_json FROM stock_purchases WHERE at_ms >= ? AND at_ms <= ? ORDER BY at_ms ASC, id ASC",
		from.UnixMilli(), to.UnixMilli())
}

// =============================================================================
// HELPERS
// =============================================================================

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryJSON scans a single data_json column into T.
func queryJSON[T any](ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to decode row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func insertError(what string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("failed to insert %s: %w", what, err)
}
