/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Reports and roster
  entries are returned in their domain JSON form; only writes and the cycle
  window get API-specific shapes.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry validator/v10 tags and are checked through
  factory.Factory.Struct, so field errors come back in the same shape as
  configuration errors.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/: ProfessionalJSON, CycleJSON, FeeJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/fees"
	"github.com/warp/settlement-engine/settlement"
)

// =============================================================================
// CYCLES AND REPORTS
// =============================================================================

// CycleDTO is a resolved cycle window.
type CycleDTO struct {
	Offset int               `json:"offset"`
	Policy factory.CycleJSON `json:"policy"`
	Start  time.Time         `json:"start"`
	End    time.Time         `json:"end"`
	Days   int               `json:"days"`
}

func toCycleDTO(p cycle.Policy, c cycle.Cycle, offset int) CycleDTO {
	return CycleDTO{
		Offset: offset,
		Policy: factory.CycleToJSON(p),
		Start:  c.Start,
		End:    c.End,
		Days:   c.Days(),
	}
}

// HistoryDTO lists past reports with worker activity, most recent first.
type HistoryDTO struct {
	MaxOffsets int                 `json:"max_offsets"`
	Reports    []settlement.Report `json:"reports"`
}

// =============================================================================
// SALES
// =============================================================================

// LineItemRequest is one worker's part of a sale.
type LineItemRequest struct {
	ItemID     string           `json:"item_id" validate:"required,max=64"`
	Name       string           `json:"name" validate:"max=120"`
	WorkerID   string           `json:"worker_id" validate:"required,max=64"`
	Type       string           `json:"type" validate:"required,oneof=service product package"`
	Quantity   int              `json:"quantity" validate:"gte=0"`
	FinalPrice decimal.Decimal  `json:"final_price"`
	Commission *decimal.Decimal `json:"commission,omitempty"`
}

// PaymentRequest says how the sale was settled.
type PaymentRequest struct {
	Method       string `json:"method" validate:"required,oneof=cash pix debit credit other"`
	Installments int    `json:"installments" validate:"gte=0,max=48"`
}

// CreateSaleRequest records a finalized checkout. Subtotal and total are
// computed server side: total = sum(final_price) - discount + tip.
type CreateSaleRequest struct {
	ID       string            `json:"id" validate:"omitempty,max=64"`
	At       *time.Time        `json:"at"`
	Items    []LineItemRequest `json:"items" validate:"required,min=1,dive"`
	Discount decimal.Decimal   `json:"discount"`
	Tip      decimal.Decimal   `json:"tip"`
	Payment  PaymentRequest    `json:"payment"`
}

func (req CreateSaleRequest) toSale(id string, now time.Time) settlement.Sale {
	sale := settlement.Sale{
		ID:       id,
		At:       now,
		Items:    make([]settlement.LineItem, len(req.Items)),
		Discount: req.Discount,
		Tip:      req.Tip,
		Payment: settlement.Payment{
			Method:       fees.Method(req.Payment.Method),
			Installments: req.Payment.Installments,
		},
	}
	if req.At != nil {
		sale.At = *req.At
	}
	for i, it := range req.Items {
		sale.Items[i] = settlement.LineItem{
			ItemID:     it.ItemID,
			Name:       it.Name,
			WorkerID:   it.WorkerID,
			Type:       settlement.ItemType(it.Type),
			Quantity:   it.Quantity,
			FinalPrice: it.FinalPrice,
			Commission: it.Commission,
		}
		sale.Subtotal = sale.Subtotal.Add(it.FinalPrice)
	}
	sale.Total = sale.Subtotal.Sub(sale.Discount).Add(sale.Tip)
	return sale
}

// =============================================================================
// VALES, EXPENSES, STOCK
// =============================================================================

// CreateValeRequest records an advance. Installments > 1 spreads recovery
// over monthly installments starting at first_due (default: at).
type CreateValeRequest struct {
	ID           string          `json:"id" validate:"omitempty,max=64"`
	EmployeeID   string          `json:"employee_id" validate:"required,max=64"`
	At           *time.Time      `json:"at"`
	Total        decimal.Decimal `json:"total"`
	Installments int             `json:"installments" validate:"gte=0,max=24"`
	FirstDue     *time.Time      `json:"first_due"`
}

func (req CreateValeRequest) toVale(id string, now time.Time) settlement.Vale {
	v := settlement.Vale{
		ID:         id,
		EmployeeID: req.EmployeeID,
		At:         now,
		Total:      req.Total,
		Status:     settlement.ValeActive,
	}
	if req.At != nil {
		v.At = *req.At
	}
	if req.Installments > 1 {
		v.Plan = &settlement.InstallmentPlan{Count: req.Installments, FirstDue: v.At}
		if req.FirstDue != nil {
			v.Plan.FirstDue = *req.FirstDue
		}
	}
	return v
}

// CreateExpenseRequest records a manual expense.
type CreateExpenseRequest struct {
	ID          string          `json:"id" validate:"omitempty,max=64"`
	At          *time.Time      `json:"at"`
	Description string          `json:"description" validate:"required,max=200"`
	Category    string          `json:"category" validate:"max=64"`
	Amount      decimal.Decimal `json:"amount"`
}

// StockItemRequest sets a product's unit cost.
type StockItemRequest struct {
	ItemID   string          `json:"item_id" validate:"required,max=64"`
	Name     string          `json:"name" validate:"max=120"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// StockPurchaseRequest records a restock.
type StockPurchaseRequest struct {
	ID       string          `json:"id" validate:"omitempty,max=64"`
	At       *time.Time      `json:"at"`
	ItemID   string          `json:"item_id" validate:"required,max=64"`
	Quantity int             `json:"quantity" validate:"min=1"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// =============================================================================
// SCENARIOS AND ERRORS
// =============================================================================

// ScenarioDTO describes a demo data set.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest picks a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
