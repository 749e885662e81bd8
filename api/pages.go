/*
pages.go - HTML pages and form submissions

PURPOSE:
  Server-rendered UI. GET handlers render a view; POST handlers accept
  either an HTML form or a JSON body.

POST FLOW:
  1. Decode form or JSON into a *Request
  2. Confirm the child in the path exists (404 before any validation)
  3. Call the ledger, which validates and inserts
  4. Form:  303 redirect on success; the form is shown again with the
            error on 400
     JSON:  201 with the created record, or an ErrorResponse

REDIRECTS:
  POST /children, POST /workbooks       -> /
  POST /child/{id}/transaction|workbook -> /child/{id}

SEE ALSO:
  - views.go: Template loading
  - handlers.go: Error mapping helpers
*/
package api

import (
	"net/http"
	"strconv"

	"github.com/warp/kidledger/ledger"
)

// =============================================================================
// VIEW MODELS
// =============================================================================

type indexPage struct {
	Children []ledger.ChildSummary
}

type childForm struct {
	Name  string
	Error string
}

type workbooksPage struct {
	Workbooks []ledger.Workbook
}

type workbookForm struct {
	Name  string
	Error string
}

type transactionForm struct {
	Child       ledger.Child
	Date        string
	Description string
	Amount      string
	Error       string
}

type completionForm struct {
	Child      ledger.Child
	Workbooks  []ledger.Workbook
	WorkbookID ledger.WorkbookID
	Date       string
	Error      string
}

type errorPage struct {
	Status     int
	StatusText string
	Message    string
}

// =============================================================================
// RENDER HELPERS
// =============================================================================

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, view string, data any) {
	if err := h.views.render(w, status, view, data); err != nil {
		h.logError(r, "render failed", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// renderError shows err on the error page with its mapped status.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logError(r, "request failed", err)
	}
	message, _ := errorMessage(err)
	h.render(w, r, status, viewError, errorPage{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    message,
	})
}

// fail reports err in the response format the request asked for.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if wantsJSON(r) {
		h.writeLedgerError(w, r, err)
		return
	}
	h.renderError(w, r, err)
}

// showFormAgain reports whether a form submission that failed with err
// should re-render its form rather than the error page.
func showFormAgain(r *http.Request, err error) bool {
	return !wantsJSON(r) && statusFor(err) == http.StatusBadRequest
}

func formMessage(err error) string {
	message, _ := errorMessage(err)
	return message
}

// =============================================================================
// CHILDREN
// =============================================================================

// Home lists children with their balances.
// GET /
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	children, err := h.Ledger.Children(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, viewIndex, indexPage{Children: children})
}

// NewChildForm shows the add-child form.
// GET /children/new
func (h *Handler) NewChildForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, viewChildNew, childForm{})
}

// CreateChild adds a child.
// POST /children
func (h *Handler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req CreateChildRequest
	err := decodeRequest(w, r, &req)
	var child ledger.Child
	if err == nil {
		child, err = h.Ledger.CreateChild(r.Context(), req.Name)
	}
	if err != nil {
		if showFormAgain(r, err) {
			h.render(w, r, http.StatusBadRequest, viewChildNew, childForm{Name: req.Name, Error: formMessage(err)})
			return
		}
		h.fail(w, r, err)
		return
	}

	h.Logger.Info("child created", "child_id", child.ID)
	if wantsJSON(r) {
		h.respondJSON(w, r, http.StatusCreated, toChildDTO(ledger.ChildSummary{Child: child}))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ChildDashboard shows balance, transactions with running totals and
// completed workbooks.
// GET /child/{id}
func (h *Handler) ChildDashboard(w http.ResponseWriter, r *http.Request) {
	id, err := childIDParam(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	d, err := h.Ledger.Dashboard(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, viewChild, d)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// NewTransactionForm shows the add-transaction form with today's date.
// GET /child/{id}/transaction/new
func (h *Handler) NewTransactionForm(w http.ResponseWriter, r *http.Request) {
	child, err := h.pathChild(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, viewTransactionNew, transactionForm{Child: child, Date: h.today()})
}

// CreateTransaction appends a transaction to the child's ledger.
// POST /child/{id}/transaction
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	child, err := h.pathChild(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req CreateTransactionRequest
	err = decodeRequest(w, r, &req)
	var tx ledger.Transaction
	if err == nil {
		tx, err = h.createTransaction(r, child.ID, req)
	}
	if err != nil {
		if showFormAgain(r, err) {
			h.render(w, r, http.StatusBadRequest, viewTransactionNew, transactionForm{
				Child:       child,
				Date:        req.Date,
				Description: req.Description,
				Amount:      req.Amount.String(),
				Error:       formMessage(err),
			})
			return
		}
		h.fail(w, r, err)
		return
	}

	h.Logger.Info("transaction recorded", "child_id", child.ID, "transaction_id", tx.ID)
	if wantsJSON(r) {
		h.respondJSON(w, r, http.StatusCreated, toTransactionDTO(tx))
		return
	}
	http.Redirect(w, r, childPath(child.ID), http.StatusSeeOther)
}

func (h *Handler) createTransaction(r *http.Request, childID ledger.ChildID, req CreateTransactionRequest) (ledger.Transaction, error) {
	amount, err := ledger.ParseAmount(req.Amount.String())
	if err != nil {
		return ledger.Transaction{}, err
	}
	return h.Ledger.CreateTransaction(r.Context(), childID, req.Date, req.Description, amount)
}

// =============================================================================
// COMPLETIONS
// =============================================================================

// NewCompletionForm shows the record-completion form with the workbook list.
// GET /child/{id}/workbook/new
func (h *Handler) NewCompletionForm(w http.ResponseWriter, r *http.Request) {
	child, err := h.pathChild(r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	workbooks, err := h.Ledger.Workbooks(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, viewCompletionNew, completionForm{
		Child:     child,
		Workbooks: workbooks,
		Date:      h.today(),
	})
}

// CreateCompletion records that the child finished a workbook.
// POST /child/{id}/workbook
func (h *Handler) CreateCompletion(w http.ResponseWriter, r *http.Request) {
	child, err := h.pathChild(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req CreateCompletionRequest
	err = decodeRequest(w, r, &req)
	var c ledger.Completion
	if err == nil {
		var workbookID ledger.WorkbookID
		if workbookID, err = req.workbookID(); err == nil {
			c, err = h.Ledger.RecordCompletion(r.Context(), child.ID, workbookID, req.Date)
		}
	}
	if err != nil {
		if showFormAgain(r, err) {
			h.renderCompletionFormError(w, r, child, req, err)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.Logger.Info("workbook completed", "child_id", c.ChildID, "workbook_id", c.WorkbookID)
	if wantsJSON(r) {
		h.respondJSON(w, r, http.StatusCreated, toCompletionDTO(ledger.CompletionDetail{Completion: c}))
		return
	}
	http.Redirect(w, r, childPath(child.ID), http.StatusSeeOther)
}

func (h *Handler) renderCompletionFormError(w http.ResponseWriter, r *http.Request, child ledger.Child, req CreateCompletionRequest, cause error) {
	workbooks, err := h.Ledger.Workbooks(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusBadRequest, viewCompletionNew, completionForm{
		Child:      child,
		Workbooks:  workbooks,
		WorkbookID: req.selected(),
		Date:       req.Date,
		Error:      formMessage(cause),
	})
}

// =============================================================================
// WORKBOOKS
// =============================================================================

// ListWorkbooks shows all workbooks.
// GET /workbooks
func (h *Handler) ListWorkbooks(w http.ResponseWriter, r *http.Request) {
	workbooks, err := h.Ledger.Workbooks(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, viewWorkbooks, workbooksPage{Workbooks: workbooks})
}

// NewWorkbookForm shows the add-workbook form.
// GET /workbooks/new
func (h *Handler) NewWorkbookForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, viewWorkbookNew, workbookForm{})
}

// CreateWorkbook adds a workbook.
// POST /workbooks
func (h *Handler) CreateWorkbook(w http.ResponseWriter, r *http.Request) {
	var req CreateWorkbookRequest
	err := decodeRequest(w, r, &req)
	var wb ledger.Workbook
	if err == nil {
		wb, err = h.Ledger.CreateWorkbook(r.Context(), req.Name)
	}
	if err != nil {
		if showFormAgain(r, err) {
			h.render(w, r, http.StatusBadRequest, viewWorkbookNew, workbookForm{Name: req.Name, Error: formMessage(err)})
			return
		}
		h.fail(w, r, err)
		return
	}

	h.Logger.Info("workbook created", "workbook_id", wb.ID)
	if wantsJSON(r) {
		h.respondJSON(w, r, http.StatusCreated, toWorkbookDTO(wb))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// =============================================================================
// HELPERS
// =============================================================================

// pathChild loads the child named by {id}.
func (h *Handler) pathChild(r *http.Request) (ledger.Child, error) {
	id, err := childIDParam(r)
	if err != nil {
		return ledger.Child{}, err
	}
	return h.Ledger.Child(r.Context(), id)
}

func childPath(id ledger.ChildID) string {
	return "/child/" + strconv.FormatInt(int64(id), 10)
}
