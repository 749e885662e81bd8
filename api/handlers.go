/*
handlers.go - Handler dependencies, JSON API and shared helpers

PURPOSE:
  Holds the Handler type shared by the HTML pages and the JSON API,
  the read-only JSON endpoints, and the helpers that turn ledger errors
  into HTTP responses.

ENDPOINTS:
  GET /api/children                   Children with balances
  GET /api/child/{id}                 Dashboard (transactions with running
                                      totals, completed workbooks, balance)
  GET /api/child/{id}/transactions    Transactions in date order
  GET /api/child/{id}/completions     Completed workbooks
  GET /api/workbooks                  All workbooks
  GET /healthz                        Store reachability

ERROR HANDLING:
  Errors are returned with the status their ledger category maps to:
  - 400: Validation errors, duplicate child, workbook already completed
  - 404: Child or workbook not found (also non-numeric ids)
  - 500: Storage failures, logged with the request ID

SEE ALSO:
  - pages.go: HTML pages and form submissions
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/kidledger/ledger"
)

// maxBodyBytes bounds JSON and form request bodies.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger *ledger.Ledger
	Logger *slog.Logger

	// Now supplies the date prefilled in forms.
	Now func() time.Time

	views views
}

// NewHandler parses the embedded views and returns a ready Handler.
func NewHandler(l *ledger.Ledger, logger *slog.Logger) (*Handler, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Ledger: l,
		Logger: logger,
		Now:    time.Now,
		views:  v,
	}, nil
}

func (h *Handler) today() string {
	return h.Now().Format(ledger.DateLayout)
}

// =============================================================================
// JSON API
// =============================================================================

// APIListChildren returns every child with its balance.
// GET /api/children
func (h *Handler) APIListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.Ledger.Children(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	dtos := make([]ChildDTO, len(children))
	for i, c := range children {
		dtos[i] = toChildDTO(c)
	}
	h.respondJSON(w, r, http.StatusOK, dtos)
}

// APIChildDashboard returns the same data as the child page.
// GET /api/child/{id}
func (h *Handler) APIChildDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := childIDParam(r)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	d, err := h.Ledger.Dashboard(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, toDashboardDTO(d))
}

// APIListTransactions returns the child's transactions, oldest first.
// GET /api/child/{id}/transactions
func (h *Handler) APIListTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := childIDParam(r)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	txs, err := h.Ledger.Transactions(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	h.respondJSON(w, r, http.StatusOK, dtos)
}

// APIListCompletions returns the child's completed workbooks.
// GET /api/child/{id}/completions
func (h *Handler) APIListCompletions(w http.ResponseWriter, r *http.Request) {
	id, err := childIDParam(r)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	completions, err := h.Ledger.Completions(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	dtos := make([]CompletionDTO, len(completions))
	for i, c := range completions {
		dtos[i] = toCompletionDTO(c)
	}
	h.respondJSON(w, r, http.StatusOK, dtos)
}

// APIListWorkbooks returns all workbooks.
// GET /api/workbooks
func (h *Handler) APIListWorkbooks(w http.ResponseWriter, r *http.Request) {
	workbooks, err := h.Ledger.Workbooks(r.Context())
	if err != nil {
		h.writeLedgerError(w, r, err)
		return
	}
	dtos := make([]WorkbookDTO, len(workbooks))
	for i, wb := range workbooks {
		dtos[i] = toWorkbookDTO(wb)
	}
	h.respondJSON(w, r, http.StatusOK, dtos)
}

// Health reports whether the store answers.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.Ledger.Store.Ping(r.Context()); err != nil {
		h.logError(r, "health check failed", err)
		writeError(w, http.StatusServiceUnavailable, "Database unavailable", nil)
		return
	}
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// REQUEST HELPERS
// =============================================================================

// childIDParam reads {id}. An id that cannot be parsed names no child.
func childIDParam(r *http.Request) (ledger.ChildID, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, ledger.ErrChildNotFound
	}
	return ledger.ChildID(id), nil
}

// wantsJSON reports whether the request body is JSON. JSON callers get
// JSON responses and 201s; everyone else is treated as a browser form.
func wantsJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// decodeRequest fills dst from a JSON body or from form values.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst formRequest) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if wantsJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return &ledger.ValidationError{Field: "body", Message: "must be a valid JSON object"}
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return &ledger.ValidationError{Field: "body", Message: "must be a valid form"}
	}
	return dst.fromForm(r.PostForm)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// statusFor maps a ledger error category to an HTTP status.
func statusFor(err error) int {
	switch {
	case ledger.IsValidation(err), ledger.IsConflict(err):
		return http.StatusBadRequest
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage is the client-facing text for err. Internal failures are
// not described to the client.
func errorMessage(err error) (string, any) {
	var ve *ledger.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Error(), map[string]string{"field": ve.Field}
	case ledger.IsNotFound(err), ledger.IsConflict(err):
		return err.Error(), nil
	default:
		return "Internal server error", nil
	}
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.Logger.Error(msg,
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"err", err,
	)
}

// writeLedgerError writes err as a JSON ErrorResponse.
func (h *Handler) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logError(r, "request failed", err)
	}
	message, details := errorMessage(err)
	h.respondJSON(w, r, status, ErrorResponse{Error: message, Details: details})
}

// respondJSON writes data, logging a value that could not be encoded.
func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		h.logError(r, "encode response failed", err)
	}
}

// writeJSON encodes into a buffer first, so a value JSON cannot hold
// (e.g. an infinite float) yields a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, data any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Internal server error"})
		return fmt.Errorf("encode response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf.WriteTo(w)
	return nil
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
