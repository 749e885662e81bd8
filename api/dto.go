/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication and the request
  types shared by HTML forms and JSON bodies. Field names follow the
  persisted column names (children_id, workbooks_id) so existing API
  clients keep working.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients (form or JSON)

MONEY:
  Amounts and balances are computed as decimals and emitted as JSON
  numbers.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: Domain types
*/
package api

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/warp/kidledger/ledger"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChildDTO is a child with its current balance.
type ChildDTO struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

// WorkbookDTO represents a workbook.
type WorkbookDTO struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TransactionDTO is one ledger row.
type TransactionDTO struct {
	ID          int64   `json:"id"`
	ChildID     int64   `json:"children_id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// EntryDTO is a transaction with the running balance after it.
type EntryDTO struct {
	TransactionDTO
	Cumulative float64 `json:"cumulative"`
}

// CompletionDTO is a completed workbook. Names are filled on reads.
type CompletionDTO struct {
	ChildID      int64  `json:"children_id"`
	WorkbookID   int64  `json:"workbooks_id"`
	Completed    int    `json:"completed"`
	Date         string `json:"date"`
	ChildName    string `json:"child_name,omitempty"`
	WorkbookName string `json:"workbook_name,omitempty"`
}

// DashboardDTO mirrors the child page.
type DashboardDTO struct {
	Child              ChildDTO        `json:"child"`
	Transactions       []EntryDTO      `json:"transactions"`
	CompletedWorkbooks []CompletionDTO `json:"completed_workbooks"`
	Balance            float64         `json:"balance"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func toChildDTO(s ledger.ChildSummary) ChildDTO {
	return ChildDTO{ID: int64(s.ID), Name: s.Name, Balance: s.Balance.InexactFloat64()}
}

func toWorkbookDTO(w ledger.Workbook) WorkbookDTO {
	return WorkbookDTO{ID: int64(w.ID), Name: w.Name}
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          int64(tx.ID),
		ChildID:     int64(tx.ChildID),
		Date:        tx.Date,
		Description: tx.Description,
		Amount:      tx.Amount.InexactFloat64(),
	}
}

func toCompletionDTO(c ledger.CompletionDetail) CompletionDTO {
	return CompletionDTO{
		ChildID:      int64(c.ChildID),
		WorkbookID:   int64(c.WorkbookID),
		Completed:    c.Completed,
		Date:         c.Date,
		ChildName:    c.ChildName,
		WorkbookName: c.WorkbookName,
	}
}

func toDashboardDTO(d *ledger.Dashboard) DashboardDTO {
	entries := make([]EntryDTO, len(d.Entries))
	for i, e := range d.Entries {
		entries[i] = EntryDTO{
			TransactionDTO: toTransactionDTO(e.Transaction),
			Cumulative:     e.Cumulative.InexactFloat64(),
		}
	}
	completions := make([]CompletionDTO, len(d.Completions))
	for i, c := range d.Completions {
		completions[i] = toCompletionDTO(c)
	}
	return DashboardDTO{
		Child:              toChildDTO(ledger.ChildSummary{Child: d.Child, Balance: d.Balance}),
		Transactions:       entries,
		CompletedWorkbooks: completions,
		Balance:            d.Balance.InexactFloat64(),
	}
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// formRequest is implemented by request types that can also be read from
// an HTML form.
type formRequest interface {
	fromForm(url.Values) error
}

// Text fields are stored exactly as submitted by either path; the ledger
// decides what is valid.

// CreateChildRequest creates a child.
type CreateChildRequest struct {
	Name string `json:"name"`
}

func (req *CreateChildRequest) fromForm(v url.Values) error {
	req.Name = v.Get("name")
	return nil
}

// CreateWorkbookRequest creates a workbook.
type CreateWorkbookRequest struct {
	Name string `json:"name"`
}

func (req *CreateWorkbookRequest) fromForm(v url.Values) error {
	req.Name = v.Get("name")
	return nil
}

// CreateTransactionRequest appends a transaction. Amount accepts a JSON
// number or a numeric string.
type CreateTransactionRequest struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
}

func (req *CreateTransactionRequest) fromForm(v url.Values) error {
	req.Date = v.Get("date")
	req.Description = v.Get("description")
	req.Amount = json.Number(v.Get("amount"))
	return nil
}

// CreateCompletionRequest records a completed workbook. WorkbookID is nil
// when the field was not sent.
type CreateCompletionRequest struct {
	WorkbookID *int64 `json:"workbook_id"`
	Date       string `json:"date"`
}

func (req *CreateCompletionRequest) fromForm(v url.Values) error {
	req.Date = v.Get("date")
	raw := strings.TrimSpace(v.Get("workbook_id"))
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return &ledger.ValidationError{Field: "workbook_id", Message: "must be a number"}
	}
	req.WorkbookID = &id
	return nil
}

// workbookID returns the requested workbook, requiring the field.
func (req *CreateCompletionRequest) workbookID() (ledger.WorkbookID, error) {
	if req.WorkbookID == nil {
		return 0, &ledger.ValidationError{Field: "workbook_id", Message: "is required"}
	}
	return ledger.WorkbookID(*req.WorkbookID), nil
}

// selected is the workbook to preselect when the form is shown again.
func (req *CreateCompletionRequest) selected() ledger.WorkbookID {
	if req.WorkbookID == nil {
		return 0
	}
	return ledger.WorkbookID(*req.WorkbookID)
}
