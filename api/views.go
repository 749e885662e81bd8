/*
views.go - Embedded HTML templates

PURPOSE:
  Parses the page templates once at startup. Every page is parsed
  together with layout.html and defines two blocks, "title" and
  "content", which the layout places.

TEMPLATE FUNCS:
  money     decimal -> "12.50"
  negative  decimal -> true when below zero (styling)

SEE ALSO:
  - pages.go: Handlers that render these views
  - templates/: The HTML sources
*/
package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	viewIndex          = "index"
	viewChild          = "child"
	viewChildNew       = "child_new"
	viewTransactionNew = "transaction_new"
	viewCompletionNew  = "completion_new"
	viewWorkbooks      = "workbooks"
	viewWorkbookNew    = "workbook_new"
	viewError          = "error"
)

var viewFuncs = template.FuncMap{
	"money":    func(d decimal.Decimal) string { return d.StringFixed(2) },
	"negative": func(d decimal.Decimal) bool { return d.IsNegative() },
}

// views maps a page name to its template (layout included).
type views map[string]*template.Template

func loadViews() (views, error) {
	names := []string{
		viewIndex, viewChild, viewChildNew, viewTransactionNew,
		viewCompletionNew, viewWorkbooks, viewWorkbookNew, viewError,
	}
	v := make(views, len(names))
	for _, name := range names {
		t, err := template.New("layout.html").Funcs(viewFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse view %s: %w", name, err)
		}
		v[name] = t
	}
	return v, nil
}

// render executes into a buffer first so a template failure never leaves
// a half-written 200 behind.
func (v views) render(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := v[name]
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
