// Package view projects the store contents and totals into the data the page
// template renders. Render is pure: same State in, same Page out.
package view

import (
	"budgetlog/internal/core"
	"budgetlog/internal/session"
)

const (
	EmptyMessage = "No transactions yet."

	SubmitAdd    = "Add Transaction"
	SubmitUpdate = "Update Transaction"

	DefaultCurrency = "₹"
)

// State is everything the page depends on.
type State struct {
	Records    []core.Transaction // already filtered
	Summary    core.Summary
	Filter     string
	Categories []string
	Currency   string
	Form       FormState
}

// FormState describes the create/update form.
type FormState struct {
	Mode   session.Mode
	Target int64
	Values core.Input
	Error  string
}

type Page struct {
	Rows       []Row
	Empty      bool
	EmptyText  string
	Summary    Totals
	Filter     string
	Categories []CategoryOption
	Types      []TypeOption
	Form       Form
}

type Row struct {
	ID        int64
	Text      string
	Category  string
	Class     string
	Amount    string
	CreatedAt string
	EditedAt  string
	Editing   bool
}

type Totals struct {
	Income  string
	Expense string
	Balance string
}

type CategoryOption struct {
	Name     string
	Selected bool // in the form
	Filtered bool // in the filter control
}

type TypeOption struct {
	Value    string
	Label    string
	Selected bool
}

type Form struct {
	Editing     bool
	Target      int64
	Text        string
	Amount      string
	SubmitLabel string
	ShowCancel  bool
	Error       string
}

func Render(s State) Page {
	currency := s.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	filter := s.Filter
	if filter == "" {
		filter = core.FilterAll
	}
	editing := s.Form.Mode == session.Editing

	p := Page{
		Rows:      make([]Row, 0, len(s.Records)),
		EmptyText: EmptyMessage,
		Filter:    filter,
		Summary: Totals{
			Income:  core.FormatTotal(currency, s.Summary.TotalIncome),
			Expense: core.FormatTotal(currency, s.Summary.TotalExpense),
			Balance: core.FormatTotal(currency, s.Summary.NetBalance),
		},
		Form: Form{
			Editing:     editing,
			Target:      s.Form.Target,
			Text:        s.Form.Values.Text,
			Amount:      s.Form.Values.Amount,
			SubmitLabel: SubmitAdd,
			Error:       s.Form.Error,
		},
	}
	if editing {
		p.Form.SubmitLabel = SubmitUpdate
		p.Form.ShowCancel = true
	}

	for _, t := range s.Records {
		p.Rows = append(p.Rows, Row{
			ID:        t.ID,
			Text:      t.Text,
			Category:  t.Category,
			Class:     rowClass(t.Type),
			Amount:    core.FormatSigned(currency, t.Amount),
			CreatedAt: t.CreatedAt,
			EditedAt:  t.EditedAt,
			Editing:   editing && t.ID == s.Form.Target,
		})
	}
	p.Empty = len(p.Rows) == 0

	for _, c := range s.Categories {
		p.Categories = append(p.Categories, CategoryOption{
			Name:     c,
			Selected: c == s.Form.Values.Category,
			Filtered: c == filter,
		})
	}

	formType := s.Form.Values.Type
	if formType == "" {
		formType = core.Expense
	}
	for _, typ := range []core.Type{core.Income, core.Expense} {
		p.Types = append(p.Types, TypeOption{
			Value:    string(typ),
			Label:    typeLabel(typ),
			Selected: typ == formType,
		})
	}
	return p
}

func rowClass(t core.Type) string {
	if t == core.Income {
		return "income-item"
	}
	return "expense-item"
}

func typeLabel(t core.Type) string {
	if t == core.Income {
		return "Income"
	}
	return "Expense"
}
