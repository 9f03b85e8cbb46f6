package factory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// ROSTER
// =============================================================================

var (
	// ErrUnknownSalarySource: a salary source names no roster entry.
	ErrUnknownSalarySource = errors.New("unknown salary source")

	// ErrSalarySourceCycle: salary sources form a loop (A pays B, B pays A).
	ErrSalarySourceCycle = errors.New("salary source cycle")
)

// ProfessionalJSON is the stored and submitted form of a roster entry.
type ProfessionalJSON struct {
	ID                  string          `json:"id" validate:"required,max=64"`
	Name                string          `json:"name" validate:"required,max=120"`
	Employment          string          `json:"employment" validate:"required,oneof=commissioned salaried rented"`
	FixedSalary         decimal.Decimal `json:"fixed_salary"`
	RentValue           decimal.Decimal `json:"rent_value"`
	SalaryActive        bool            `json:"salary_active"`
	SalarySource        string          `json:"salary_source" validate:"max=64"`
	CommissionRate      decimal.Decimal `json:"commission_rate"`
	CommissionOverrides []OverrideJSON  `json:"commission_overrides" validate:"dive"`
}

// OverrideJSON is a per-item commission rate.
type OverrideJSON struct {
	ItemID string          `json:"item_id" validate:"required"`
	Rate   decimal.Decimal `json:"rate"`
}

// ParseProfessional decodes and builds one roster entry.
func (f *Factory) ParseProfessional(data []byte) (settlement.Professional, error) {
	var pj ProfessionalJSON
	if err := decode(data, &pj); err != nil {
		return settlement.Professional{}, err
	}
	return f.ProfessionalFromJSON(pj)
}

// ProfessionalFromJSON validates one roster entry in isolation. Cross-entry
// checks belong to ValidateRoster.
func (f *Factory) ProfessionalFromJSON(pj ProfessionalJSON) (settlement.Professional, error) {
	if err := f.Struct(pj); err != nil {
		return settlement.Professional{}, err
	}

	bad := map[string]string{}
	if pj.FixedSalary.IsNegative() {
		bad["fixed_salary"] = "must not be negative"
	}
	if pj.RentValue.IsNegative() {
		bad["rent_value"] = "must not be negative"
	}
	checkPercent(bad, "commission_rate", pj.CommissionRate)
	for i, o := range pj.CommissionOverrides {
		checkPercent(bad, fmt.Sprintf("commission_overrides[%d].rate", i), o.Rate)
	}
	if len(bad) > 0 {
		return settlement.Professional{}, &ValidationError{Fields: bad}
	}

	p := settlement.Professional{
		ID:             pj.ID,
		Name:           pj.Name,
		Employment:     settlement.EmploymentType(pj.Employment),
		FixedSalary:    pj.FixedSalary,
		RentValue:      pj.RentValue,
		SalaryActive:   pj.SalaryActive,
		SalarySource:   strings.TrimSpace(pj.SalarySource),
		CommissionRate: pj.CommissionRate,
	}
	if p.SalarySource == "" {
		p.SalarySource = settlement.SalonSource
	}
	for _, o := range pj.CommissionOverrides {
		p.CommissionOverrides = append(p.CommissionOverrides, settlement.CommissionOverride{ItemID: o.ItemID, Rate: o.Rate})
	}
	return p, nil
}

// ProfessionalToJSON is the inverse of ProfessionalFromJSON.
func ProfessionalToJSON(p settlement.Professional) ProfessionalJSON {
	pj := ProfessionalJSON{
		ID:                  p.ID,
		Name:                p.Name,
		Employment:          string(p.Employment),
		FixedSalary:         p.FixedSalary,
		RentValue:           p.RentValue,
		SalaryActive:        p.SalaryActive,
		SalarySource:        p.SalarySource,
		CommissionRate:      p.CommissionRate,
		CommissionOverrides: []OverrideJSON{},
	}
	for _, o := range p.CommissionOverrides {
		pj.CommissionOverrides = append(pj.CommissionOverrides, OverrideJSON{ItemID: o.ItemID, Rate: o.Rate})
	}
	return pj
}

// =============================================================================
// SALARY SOURCE GRAPH
// =============================================================================
//
// Each professional has at most one outgoing edge (p -> SalarySource), so the
// graph is functional: following edges from any node either reaches the salon
// or loops. A walk that revisits a node on its own path is a cycle.

// ValidateRoster checks cross-entry invariants: unique IDs, salary sources
// that exist, and no salary source loops.
func ValidateRoster(roster []settlement.Professional) error {
	byID := make(map[string]settlement.Professional, len(roster))
	for _, p := range roster {
		if _, dup := byID[p.ID]; dup {
			return &ValidationError{Fields: map[string]string{"id": "duplicate id " + p.ID}}
		}
		byID[p.ID] = p
	}

	for _, p := range roster {
		if p.PaidBySalon() {
			continue
		}
		if _, ok := byID[p.SalarySource]; !ok {
			return fmt.Errorf("%w: %s is paid by %q", ErrUnknownSalarySource, p.ID, p.SalarySource)
		}
	}

	const (
		onPath = 1
		done   = 2
	)
	state := make(map[string]int, len(roster))
	for _, start := range roster {
		var path []string
		for id := start.ID; id != "" && state[id] != done; {
			if state[id] == onPath {
				return fmt.Errorf("%w: %s", ErrSalarySourceCycle, strings.Join(append(path, id), " -> "))
			}
			state[id] = onPath
			path = append(path, id)
			next := byID[id]
			id = ""
			if !next.PaidBySalon() {
				id = next.SalarySource
			}
		}
		for _, visited := range path {
			state[visited] = done
		}
	}
	return nil
}
