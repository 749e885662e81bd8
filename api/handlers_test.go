/*
handlers_test.go - HTTP tests against the real router

Tests for:
- Form submissions (303 redirects, form re-render on 400)
- JSON bodies (201 with created record)
- Error mapping (400 validation/conflict, 404 missing or non-numeric id)
- Dashboard running totals through the JSON API
*/
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/kidledger/ledger"
	"github.com/warp/kidledger/store"
)

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *store.Store
}

func newTestServer(t *testing.T) *testServer {
	s, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h, err := NewHandler(ledger.New(s), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	h.Now = func() time.Time { return time.Date(2025, 1, 20, 9, 30, 0, 0, time.UTC) }

	return &testServer{t: t, router: NewRouter(h, []string{"http://localhost:8000"}), store: s}
}

func (ts *testServer) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) decode(rec *httptest.ResponseRecorder, v any) {
	ts.t.Helper()
	require.Equal(ts.t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), v))
}

func (ts *testServer) mustCreateChild(name string) {
	ts.t.Helper()
	rec := ts.postForm("/children", url.Values{"name": {name}})
	require.Equal(ts.t, http.StatusSeeOther, rec.Code, rec.Body.String())
}

func (ts *testServer) mustCreateWorkbook(name string) {
	ts.t.Helper()
	rec := ts.postForm("/workbooks", url.Values{"name": {name}})
	require.Equal(ts.t, http.StatusSeeOther, rec.Code, rec.Body.String())
}

// =============================================================================
// PAGES
// =============================================================================

func TestPages_Render(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")

	tests := []struct {
		path string
		want string
	}{
		{"/", "Children's Bank Accounts"},
		{"/children/new", "Add New Child"},
		{"/workbooks/new", "Add New Workbook"},
		{"/workbooks", "Workbooks"},
		{"/child/1", "Current Balance"},
		{"/child/1/transaction/new", `value="2025-01-20"`},
		{"/child/1/workbook/new", `value="2025-01-20"`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.get(tt.path)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestPages_MissingChildIsNotFound(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{
		"/child/99",
		"/child/99/transaction/new",
		"/child/99/workbook/new",
		"/child/abc",
		"/child/-1",
	} {
		t.Run(path, func(t *testing.T) {
			rec := ts.get(path)
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Contains(t, rec.Body.String(), "Child not found")
		})
	}
}

func TestStatic_Stylesheet(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/static/style.css")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
}

// =============================================================================
// CHILDREN
// =============================================================================

func TestCreateChild_FormRedirectsHome(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postForm("/children", url.Values{"name": {"Alice"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var children []ChildDTO
	ts.decode(ts.get("/api/children"), &children)
	assert.Equal(t, []ChildDTO{{ID: 1, Name: "Alice", Balance: 0}}, children)

	home := ts.get("/")
	assert.Contains(t, home.Body.String(), `href="/child/1"`)
	assert.Contains(t, home.Body.String(), "0.00")
}

func TestCreateChild_DuplicateNameShowsFormAgain(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")

	rec := ts.postForm("/children", url.Values{"name": {"Alice"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Add New Child")
	assert.Contains(t, rec.Body.String(), "A child with this name already exists")

	var children []ChildDTO
	ts.decode(ts.get("/api/children"), &children)
	assert.Len(t, children, 1)
}

func TestCreateChild_JSON(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postJSON("/children", `{"name":"Bob"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var child ChildDTO
	ts.decode(rec, &child)
	assert.Equal(t, ChildDTO{ID: 1, Name: "Bob"}, child)

	rec = ts.postJSON("/children", `{"name":"Bob"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	ts.decode(rec, &resp)
	assert.Equal(t, "A child with this name already exists", resp.Error)
}

func TestCreateChild_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postJSON("/children", `{"name":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	ts.decode(rec, &resp)
	assert.Equal(t, "name: must not be empty", resp.Error)
	assert.Equal(t, map[string]any{"field": "name"}, resp.Details)

	rec = ts.postForm("/children", url.Values{"name": {strings.Repeat("x", 101)}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "must be at most 100 characters")

	rec = ts.postJSON("/children", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTransactions_AliceEarnsAndSpends(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")

	rec := ts.postForm("/child/1/transaction", url.Values{
		"date": {"2025-01-01"}, "description": {"Earned money"}, "amount": {"50.00"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/child/1", rec.Header().Get("Location"))

	rec = ts.postJSON("/child/1/transaction",
		`{"date":"2025-01-02","description":"Spent money","amount":-20.00}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created TransactionDTO
	ts.decode(rec, &created)
	assert.Equal(t, TransactionDTO{ID: 2, ChildID: 1, Date: "2025-01-02", Description: "Spent money", Amount: -20}, created)

	var txs []TransactionDTO
	ts.decode(ts.get("/api/child/1/transactions"), &txs)
	require.Len(t, txs, 2)
	assert.Equal(t, "Earned money", txs[0].Description)
	assert.Equal(t, 50.0, txs[0].Amount)

	var d DashboardDTO
	ts.decode(ts.get("/api/child/1"), &d)
	assert.Equal(t, 30.0, d.Balance)
	assert.Equal(t, 30.0, d.Child.Balance)
	require.Len(t, d.Transactions, 2)
	assert.Equal(t, 50.0, d.Transactions[0].Cumulative)
	assert.Equal(t, 30.0, d.Transactions[1].Cumulative)
	assert.Empty(t, d.CompletedWorkbooks)

	page := ts.get("/child/1").Body.String()
	assert.Contains(t, page, "Current Balance")
	assert.Contains(t, page, "30.00")
	assert.Contains(t, page, "-20.00")
}

func TestTransactions_RoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")

	rec := ts.postJSON("/child/1/transaction",
		`{"date":"2025-01-25","description":"Chores completed","amount":"15.00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var txs []TransactionDTO
	ts.decode(ts.get("/api/child/1/transactions"), &txs)
	assert.Equal(t, []TransactionDTO{
		{ID: 1, ChildID: 1, Date: "2025-01-25", Description: "Chores completed", Amount: 15},
	}, txs)
}

func TestTransactions_Validation(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")

	tests := []struct {
		name string
		form url.Values
		want string
	}{
		{"day out of range", url.Values{"date": {"2022-10-33"}, "description": {"x"}, "amount": {"1"}}, "Day must be between 01 and 31"},
		{"bad month", url.Values{"date": {"2022-13-01"}, "description": {"x"}, "amount": {"1"}}, "Month must be between 01 and 12"},
		{"bad shape", url.Values{"date": {"22-10-01"}, "description": {"x"}, "amount": {"1"}}, "Date must be in YYYY-MM-DD format"},
		{"long description", url.Values{"date": {"2022-10-01"}, "description": {strings.Repeat("d", 61)}, "amount": {"1"}}, "must be at most 60 characters"},
		{"amount not a number", url.Values{"date": {"2022-10-01"}, "description": {"x"}, "amount": {"ten"}}, "amount: must be a number"},
		{"amount missing", url.Values{"date": {"2022-10-01"}, "description": {"x"}}, "amount: is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.postForm("/child/1/transaction", tt.form)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			// form is shown again with what was typed
			assert.Contains(t, rec.Body.String(), "New Transaction for Alice")
		})
	}

	var txs []TransactionDTO
	ts.decode(ts.get("/api/child/1/transactions"), &txs)
	assert.Empty(t, txs)
}

func TestTransactions_LenientCalendarDates(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")

	rec := ts.postForm("/child/1/transaction", url.Values{
		"date": {"2022-02-31"}, "description": {"Allowance"}, "amount": {"5"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestTransactions_MissingChild(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postForm("/child/99/transaction", url.Values{
		"date": {"bad"}, "description": {"x"}, "amount": {"1"},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.postJSON("/child/99/transaction", `{"date":"2025-01-01","description":"x","amount":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp ErrorResponse
	ts.decode(rec, &resp)
	assert.Equal(t, "Child not found", resp.Error)

	for _, path := range []string{"/api/child/99", "/api/child/99/transactions", "/api/child/99/completions", "/api/child/x/transactions"} {
		rec := ts.get(path)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

// =============================================================================
// WORKBOOKS AND COMPLETIONS
// =============================================================================

func TestWorkbooks_CreateAndList(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postForm("/workbooks", url.Values{"name": {"Grade 2 Reading"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = ts.postJSON("/workbooks", `{"name":"Grade 2 Math"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var workbooks []WorkbookDTO
	ts.decode(ts.get("/api/workbooks"), &workbooks)
	assert.Equal(t, []WorkbookDTO{{ID: 1, Name: "Grade 2 Reading"}, {ID: 2, Name: "Grade 2 Math"}}, workbooks)

	assert.Contains(t, ts.get("/workbooks").Body.String(), "Grade 2 Math")

	rec = ts.postForm("/workbooks", url.Values{"name": {""}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Add New Workbook")
}

func TestCompletions_OncePerWorkbook(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")
	ts.mustCreateWorkbook("Grade 2 Reading")

	rec := ts.postForm("/child/1/workbook", url.Values{"workbook_id": {"1"}, "date": {"2025-01-20"}})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	assert.Equal(t, "/child/1", rec.Header().Get("Location"))

	rec = ts.postForm("/child/1/workbook", url.Values{"workbook_id": {"1"}, "date": {"2025-02-01"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "This workbook has already been completed by this child")

	rec = ts.postJSON("/child/1/workbook", `{"workbook_id":1,"date":"2025-03-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var completions []CompletionDTO
	ts.decode(ts.get("/api/child/1/completions"), &completions)
	assert.Equal(t, []CompletionDTO{{
		ChildID: 1, WorkbookID: 1, Completed: 1, Date: "2025-01-20",
		ChildName: "Alice", WorkbookName: "Grade 2 Reading",
	}}, completions)

	page := ts.get("/child/1").Body.String()
	assert.Contains(t, page, "Grade 2 Reading")
	assert.Contains(t, page, "2025-01-20")
}

func TestCompletions_JSON(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")
	ts.mustCreateWorkbook("Grade 2 Reading")

	rec := ts.postJSON("/child/1/workbook", `{"workbook_id":1,"date":"2025-01-20"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c CompletionDTO
	ts.decode(rec, &c)
	assert.Equal(t, CompletionDTO{ChildID: 1, WorkbookID: 1, Completed: 1, Date: "2025-01-20"}, c)

	var d DashboardDTO
	ts.decode(ts.get("/api/child/1"), &d)
	require.Len(t, d.CompletedWorkbooks, 1)
	assert.Equal(t, "Grade 2 Reading", d.CompletedWorkbooks[0].WorkbookName)
}

func TestCompletions_Errors(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")
	ts.mustCreateWorkbook("Grade 2 Reading")

	tests := []struct {
		name string
		path string
		form url.Values
		code int
		want string
	}{
		{"missing child", "/child/99/workbook", url.Values{"workbook_id": {"1"}, "date": {"2025-01-20"}}, http.StatusNotFound, "Child not found"},
		{"missing workbook", "/child/1/workbook", url.Values{"workbook_id": {"42"}, "date": {"2025-01-20"}}, http.StatusNotFound, "Workbook not found"},
		{"bad workbook id", "/child/1/workbook", url.Values{"workbook_id": {"one"}, "date": {"2025-01-20"}}, http.StatusBadRequest, "workbook_id: must be a number"},
		{"bad date", "/child/1/workbook", url.Values{"workbook_id": {"1"}, "date": {"2022-10-33"}}, http.StatusBadRequest, "Day must be between 01 and 31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.postForm(tt.path, tt.form)
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}

	var completions []CompletionDTO
	ts.decode(ts.get("/api/child/1/completions"), &completions)
	assert.Empty(t, completions)
}

// =============================================================================
// HEALTH AND STORAGE FAILURES
// =============================================================================

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, ts.store.Close())
	rec = ts.get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStorageFailureIsInternalError(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.Close())

	rec := ts.get("/api/children")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp ErrorResponse
	ts.decode(rec, &resp)
	assert.Equal(t, "Internal server error", resp.Error)

	rec = ts.get("/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// =============================================================================
// FLOAT RANGE AND REQUEST SHAPES
// =============================================================================

func TestTransactions_BalanceMustFitFloat(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")

	form := url.Values{"date": {"2025-01-01"}, "description": {"Huge"}, "amount": {"1e308"}}
	rec := ts.postForm("/child/1/transaction", form)
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())

	rec = ts.postForm("/child/1/transaction", form)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "would put the balance out of range")

	rec = ts.postJSON("/child/1/transaction", `{"date":"2025-01-02","description":"Huge","amount":1e308}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var children []ChildDTO
	ts.decode(ts.get("/api/children"), &children)
	require.Len(t, children, 1)
	assert.Equal(t, 1e308, children[0].Balance)

	var d DashboardDTO
	ts.decode(ts.get("/api/child/1"), &d)
	assert.Equal(t, 1e308, d.Balance)
	assert.Len(t, d.Transactions, 1)
}

// GIVEN: rows already in the database whose sum overflows a float64
// WHEN: the JSON API reads them
// THEN: the client gets a 500 error body, never an empty 200
func TestJSON_UnencodableBalanceIsInternalError(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")

	ctx := context.Background()
	for _, date := range []string{"2025-01-01", "2025-01-02"} {
		_, err := ts.store.InsertTransaction(ctx, ledger.Transaction{
			ChildID: 1, Date: date, Description: "Imported", Amount: decimal.RequireFromString("1e308"),
		})
		require.NoError(t, err)
	}

	for _, path := range []string{"/api/children", "/api/child/1"} {
		rec := ts.get(path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		var resp ErrorResponse
		ts.decode(rec, &resp)
		assert.Equal(t, "Internal server error", resp.Error, path)
	}
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	err := writeJSON(rec, http.StatusOK, map[string]float64{"balance": math.Inf(1)})
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")

	rec = httptest.NewRecorder()
	require.NoError(t, writeJSON(rec, http.StatusCreated, map[string]float64{"balance": 1.5}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"balance":1.5}`, rec.Body.String())
}

func TestCreateChild_FormAndJSONStoreSameName(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.postJSON("/children", `{"name":"Alice "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var child ChildDTO
	ts.decode(rec, &child)
	assert.Equal(t, "Alice ", child.Name)

	// the same name through the form is the same child
	rec = ts.postForm("/children", url.Values{"name": {"Alice "}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "A child with this name already exists")

	var children []ChildDTO
	ts.decode(ts.get("/api/children"), &children)
	assert.Len(t, children, 1)
}

func TestCompletions_WorkbookIDRequired(t *testing.T) {
	ts := newTestServer(t)
	ts.mustCreateChild("Alice")
	ts.mustCreateWorkbook("Grade 2 Reading")

	rec := ts.postJSON("/child/1/workbook", `{"date":"2025-01-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	ts.decode(rec, &resp)
	assert.Equal(t, "workbook_id: is required", resp.Error)

	rec = ts.postForm("/child/1/workbook", url.Values{"date": {"2025-01-01"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "workbook_id: is required")

	var completions []CompletionDTO
	ts.decode(ts.get("/api/child/1/completions"), &completions)
	assert.Empty(t, completions)
}
