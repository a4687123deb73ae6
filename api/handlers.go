/*
handlers.go - HTTP API handlers for the sales ledger

PURPOSE:
  Exposes the payment engine and the dashboard via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  Payments:
    POST   /api/payments        Apply a payment to a sale
    GET    /api/payments        Recent payments with display context

  Dashboard:
    GET    /api/dashboard       Role-scoped statistics snapshot

  Health:
    GET    /api/health          Liveness probe

REQUEST FLOW:
  1. Identity middleware resolves the actor (see server.go)
  2. Parse and format-validate the request
  3. Check the policy gate
  4. Call domain logic (payment engine, reporting engine)
  5. Serialize response
  6. Map domain errors to HTTP statuses

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid amount/method, cancelled sale
  - 401: Missing identity headers
  - 403: Policy denial
  - 404: Sale not found
  - 500: Storage failures (retryable by the client)

SECURITY NOTE:
  Identity arrives pre-authenticated in headers from the session
  front-end. This service authorizes; it never authenticates.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/acrepoint/sales-ledger/ledger"
	"github.com/acrepoint/sales-ledger/policy"
	"github.com/acrepoint/sales-ledger/reporting"
	"github.com/acrepoint/sales-ledger/store/sqlite"
)

const paymentListLimit = 100

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Ledger  *ledger.Engine
	Reports *reporting.Engine
	Gate    *policy.Gate
	Logger  *zap.Logger
}

// NewHandler creates a new handler. logger may be nil for a no-op
// logger.
func NewHandler(store *sqlite.Store, eng *ledger.Engine, reports *reporting.Engine, gate *policy.Gate, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Store: store, Ledger: eng, Reports: reports, Gate: gate, Logger: logger}
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// RecordPayment applies a payment to a sale.
// POST /api/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := policy.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}
	if !h.Gate.Authorize(actor.Role, policy.ResourcePayments, policy.ActionCreate) {
		writeError(w, http.StatusForbidden, "Not permitted to record payments", ledger.ErrForbidden)
		return
	}

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.SaleID == "" {
		writeError(w, http.StatusBadRequest, "sale_id is required", nil)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	paymentDate := time.Now()
	if req.PaymentDate != "" {
		paymentDate, err = time.Parse(dateLayout, req.PaymentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment_date, want YYYY-MM-DD", err)
			return
		}
	}

	payment, err := h.Ledger.ApplyPayment(r.Context(), ledger.ApplyPaymentInput{
		SaleID:          ledger.SaleID(req.SaleID),
		Amount:          amount,
		Method:          ledger.PaymentMethod(req.PaymentMethod),
		ReferenceNumber: req.ReferenceNumber,
		PaymentDate:     paymentDate,
		RecordedBy:      actor.UserID,
		Notes:           req.Notes,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentDTO(payment))
}

// ListPayments returns the most recent payments, newest first.
// GET /api/payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := policy.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}
	if !h.Gate.Authorize(actor.Role, policy.ResourcePayments, policy.ActionView) {
		writeError(w, http.StatusForbidden, "Not permitted to view payments", ledger.ErrForbidden)
		return
	}

	details, err := h.Store.ListPayments(r.Context(), paymentListLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}

	dtos := make([]PaymentListItemDTO, len(details))
	for i, d := range details {
		dtos[i] = toPaymentListItemDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DASHBOARD HANDLER
// =============================================================================

// Dashboard returns the role-scoped statistics snapshot.
// GET /api/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := policy.ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing identity", nil)
		return
	}

	snap, err := h.Reports.Dashboard(r.Context(), actor, time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardDTO(snap))
}

// =============================================================================
// HEALTH
// =============================================================================

// Health is the liveness probe.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeDomainError maps the payment engine's error taxonomy onto HTTP
// statuses. Retryable storage failures surface as 500 so clients know
// a retry may succeed.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ledger.ErrForbidden):
		writeError(w, http.StatusForbidden, message, err)
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error("payment request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
