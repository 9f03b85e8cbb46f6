/*
handlers.go - HTTP API handlers for the settlement engine

PURPOSE:
  Exposes settlement reports and the records behind them via REST API.
  Handles HTTP request/response and JSON serialization; reports are built
  by engine.Service and records are written through the SQLite store.

ENDPOINTS:
  Cycles and settlements:
    GET    /api/cycles?offset=N               Resolved cycle window
    GET    /api/settlements?offset=N          Settlement report (N <= 0)
    GET    /api/settlements/history?max=N     Past reports with activity

  Records:
    GET    /api/professionals                 Roster
    POST   /api/professionals                 Create or update a professional
    GET    /api/sales?offset=N                Sales in a cycle
    POST   /api/sales                         Record a sale
    GET    /api/vales                         All advances
    POST   /api/vales                         Record an advance
    POST   /api/vales/{id}/settle             Mark an advance settled
    GET    /api/expenses?offset=N             Manual expenses in a cycle
    POST   /api/expenses                      Record a manual expense
    GET    /api/stock/items                   Unit costs
    POST   /api/stock/items                   Set a unit cost
    POST   /api/stock/purchases               Record a restock

  Configuration:
    GET    /api/config/cycle                  Active cycle policy
    PUT    /api/config/cycle                  Replace it (validated)
    GET    /api/config/fees                   Active fee schedule
    PUT    /api/config/fees                   Replace it (validated)

REQUEST FLOW:
  1. Decode and validate the body (validator tags via factory.Factory)
  2. Write through the store; every write bumps the data version, so
     cached reports keyed on the old version are never served again
  3. Serialize the response

SECURITY NOTE:
  No authentication. All endpoints are public.

SEE ALSO:
  - errors.go: Status mapping
  - dto.go: Request/response data structures
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/warp/settlement-engine/cycle"
	"github.com/warp/settlement-engine/engine"
	"github.com/warp/settlement-engine/factory"
	"github.com/warp/settlement-engine/fees"
	"github.com/warp/settlement-engine/logging"
	"github.com/warp/settlement-engine/settlement"
	"github.com/warp/settlement-engine/store/sqlite"
)

const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Engine  *engine.Service
	Factory *factory.Factory

	log        *logging.Logger
	historyMax int
	defaults   Defaults

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// HandlerOptions configures a Handler. Zero values are usable.
type HandlerOptions struct {
	Logger *logging.Logger

	// HistoryMax caps ?max= on the history endpoint and is its default.
	HistoryMax int

	// Defaults are re-seeded by POST /api/reset.
	Defaults Defaults
}

// Defaults are the settings a freshly reset database starts with.
type Defaults struct {
	Policy cycle.Policy
	Fees   fees.Schedule
}

// NewHandler creates a new handler over the store and the report service.
func NewHandler(store *sqlite.Store, svc *engine.Service, opts HandlerOptions) *Handler {
	h := &Handler{
		Store:      store,
		Engine:     svc,
		Factory:    factory.New(),
		log:        opts.Logger,
		historyMax: opts.HistoryMax,
		defaults:   opts.Defaults,
	}
	if h.log == nil {
		h.log = logging.Nop()
	}
	if h.historyMax <= 0 {
		h.historyMax = 12
	}
	return h
}

// =============================================================================
// CYCLES AND SETTLEMENTS
// =============================================================================

// GetCycle returns the cycle window at ?offset= (any offset).
func (h *Handler) GetCycle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	p, err := h.Engine.Policy(ctx)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	c, err := h.Engine.CycleWindow(ctx, offset)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCycleDTO(p, c, offset))
}

// GetSettlement returns the settlement report at ?offset=.
func (h *Handler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	report, err := h.Engine.SettlementReport(r.Context(), offset)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetHistory walks back up to ?max= cycles, skipping idle ones.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	maxOffsets, err := queryInt(r, "max", h.historyMax)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if maxOffsets > h.historyMax {
		maxOffsets = h.historyMax
	}

	reports, err := h.Engine.BrowseHistory(r.Context(), maxOffsets)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryDTO{MaxOffsets: maxOffsets, Reports: reports})
}

// =============================================================================
// PROFESSIONALS
// =============================================================================

// ListProfessionals returns the roster in insertion order.
func (h *Handler) ListProfessionals(w http.ResponseWriter, r *http.Request) {
	roster, err := h.Store.Professionals(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	out := make([]factory.ProfessionalJSON, len(roster))
	for i, p := range roster {
		out[i] = factory.ProfessionalToJSON(p)
	}
	writeJSON(w, http.StatusOK, out)
}

// SaveProfessional creates or replaces a roster entry. A missing id is
// generated.
func (h *Handler) SaveProfessional(w http.ResponseWriter, r *http.Request) {
	var req factory.ProfessionalJSON
	if err := decodeBody(r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	p, err := h.Factory.ProfessionalFromJSON(req)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if err := h.Store.SaveProfessional(r.Context(), p); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.ProfessionalToJSON(p))
}

// =============================================================================
// SALES
// =============================================================================

// ListSales returns the sales of the cycle at ?offset=.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	c, err := h.Engine.CycleWindow(ctx, offset)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	sales, err := h.Store.Sales(ctx, c.Start, c.End)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

// CreateSale records a finalized checkout.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := h.decodeValid(r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}

	sale := req.toSale(idOrNew(req.ID), h.Engine.Now())
	if err := h.Store.AddSale(r.Context(), sale); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

// =============================================================================
// VALES
// =============================================================================

// ListVales returns every advance, oldest first.
func (h *Handler) ListVales(w http.ResponseWriter, r *http.Request) {
	vales, err := h.Store.Vales(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vales)
}

// CreateVale records an advance, optionally split into installments.
func (h *Handler) CreateVale(w http.ResponseWriter, r *http.Request) {
	var req CreateValeRequest
	if err := h.decodeValid(r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}
	if !req.Total.IsPositive() {
		h.writeFailure(w, fieldError("total", "must be positive"))
		return
	}

	v := req.toVale(idOrNew(req.ID), h.Engine.Now())
	if err := h.Store.AddVale(r.Context(), v); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// SettleVale marks an advance as settled; it stops being deducted.
func (h *Handler) SettleVale(w http.ResponseWriter, r *http.Request) {
	v, err := h.Store.SettleVale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// =============================================================================
// EXPENSES
// =============================================================================

// ListExpenses returns the manual expenses of the cycle at ?offset=. Derived
// entries only exist inside reports.
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	c, err := h.Engine.CycleWindow(ctx, offset)
	if err != nil {
		h.writeFailure(w, err)
		return
	}

	expenses, err := h.Store.Expenses(ctx, c.Start, c.End)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// CreateExpense records a manual expense.
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := h.decodeValid(r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}
	if req.Amount.IsNegative() {
		h.writeFailure(w, fieldError("amount", "must not be negative"))
		return
	}

	e := settlement.Expense{
		ID:          idOrNew(req.ID),
		At:          h.Engine.Now(),
		Description: req.Description,
		Category:    req.Category,
		Amount:      req.Amount,
		Source:      settlement.SourceManual,
	}
	if req.At != nil {
		e.At = *req.At
	}
	if err := h.Store.AddExpense(r.Context(), e); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// =============================================================================
// STOCK
// =============================================================================

// ListStockItems returns every product with a unit cost.
func (h *Handler) ListStockItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.StockItems(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// SaveStockItem sets a product's unit cost.
func (h *Handler) SaveStockItem(w http.ResponseWriter, r *http.Request) {
	var req StockItemRequest
	if err := h.decodeValid(r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}
	if req.UnitCost.IsNegative() {
		h.writeFailure(w, fieldError("unit_cost", "must not be negative"))
		return
	}

	item := settlement.StockItem{ItemID: req.ItemID, Name: req.Name, UnitCost: req.UnitCost}
	if err := h.Store.SaveStockItem(r.Context(), item); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// CreateStockPurchase records a restock.
func (h *Handler) CreateStockPurchase(w http.ResponseWriter, r *http.Request) {
	var req StockPurchaseRequest
	if err := h.decodeValid(r, &req); err != nil {
		h.writeFailure(w, err)
		return
	}
	if req.UnitCost.IsNegative() {
		h.writeFailure(w, fieldError("unit_cost", "must not be negative"))
		return
	}

	p := settlement.StockPurchase{
		ID:       idOrNew(req.ID),
		At:       h.Engine.Now(),
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		UnitCost: req.UnitCost,
	}
	if req.At != nil {
		p.At = *req.At
	}
	if err := h.Store.AddStockPurchase(r.Context(), p); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// GetCycleConfig returns the active cycle policy.
func (h *Handler) GetCycleConfig(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.CyclePolicy(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, factory.CycleToJSON(p))
}

// PutCycleConfig replaces the cycle policy. Invalid policies are rejected
// here, before they can reach a report.
func (h *Handler) PutCycleConfig(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	p, err := h.Factory.ParseCycle(body)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if err := h.Store.SetCyclePolicy(r.Context(), p); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.log.Info().Str("policy", p.Key()).Msg("cycle policy updated")
	writeJSON(w, http.StatusOK, factory.CycleToJSON(p))
}

// GetFeeConfig returns the active fee schedule.
func (h *Handler) GetFeeConfig(w http.ResponseWriter, r *http.Request) {
	s, err := h.Store.FeeSchedule(r.Context())
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, factory.FeesToJSON(s))
}

// PutFeeConfig replaces the fee schedule.
func (h *Handler) PutFeeConfig(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	s, err := h.Factory.ParseFees(body)
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	if err := h.Store.SetFeeSchedule(r.Context(), s); err != nil {
		h.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, factory.FeesToJSON(s))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeFailure maps err to a status and writes an ErrorResponse. Server
// errors are logged; client errors are not.
func (h *Handler) writeFailure(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: errorMessage(status), Details: err.Error()}

	var ve *factory.ValidationError
	if errors.As(err, &ve) {
		resp.Fields = ve.Fields
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, resp)
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fieldError("body", err.Error())
	}
	return body, nil
}

// decodeBody decodes the JSON body into dest.
func decodeBody(r *http.Request, dest any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil {
		return fieldError("body", err.Error())
	}
	return nil
}

// decodeValid decodes the body and runs validator tags on it.
func (h *Handler) decodeValid(r *http.Request, dest any) error {
	if err := decodeBody(r, dest); err != nil {
		return err
	}
	return h.Factory.Struct(dest)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fieldError(name, "must be an integer")
	}
	return n, nil
}

func fieldError(field, reason string) error {
	return &factory.ValidationError{Fields: map[string]string{field: reason}}
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.New().String()
}
