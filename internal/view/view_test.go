package view

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetlog/internal/core"
	"budgetlog/internal/session"
)

func demo() []core.Transaction {
	return []core.Transaction{
		{ID: 1, Text: "Demo Salary", Amount: decimal.NewFromInt(5000), Category: "Salary", Type: core.Income, CreatedAt: "c1"},
		{ID: 2, Text: "Demo Food", Amount: decimal.NewFromInt(-300), Category: "Food", Type: core.Expense, EditedAt: "e2"},
	}
}

func TestRenderRowsAndTotals(t *testing.T) {
	recs := demo()
	p := Render(State{Records: recs, Summary: core.Summarize(recs), Categories: []string{"Salary", "Food"}})

	require.Len(t, p.Rows, 2)
	assert.False(t, p.Empty)
	assert.Equal(t, core.FilterAll, p.Filter)

	assert.Equal(t, Row{ID: 1, Text: "Demo Salary", Category: "Salary", Class: "income-item", Amount: "+₹5000", CreatedAt: "c1"}, p.Rows[0])
	assert.Equal(t, Row{ID: 2, Text: "Demo Food", Category: "Food", Class: "expense-item", Amount: "-₹300", EditedAt: "e2"}, p.Rows[1])

	assert.Equal(t, Totals{Income: "₹5000.00", Expense: "₹300.00", Balance: "₹4700.00"}, p.Summary)
	assert.Equal(t, SubmitAdd, p.Form.SubmitLabel)
	assert.False(t, p.Form.ShowCancel)
}

func TestRenderEmptyPlaceholder(t *testing.T) {
	p := Render(State{Filter: "Food"})
	assert.True(t, p.Empty)
	assert.Empty(t, p.Rows)
	assert.Equal(t, EmptyMessage, p.EmptyText)
	assert.Equal(t, "Food", p.Filter)
	assert.Equal(t, "₹0.00", p.Summary.Balance)
}

func TestRenderEditForm(t *testing.T) {
	recs := demo()
	p := Render(State{
		Records:    recs,
		Categories: []string{"Salary", "Food"},
		Currency:   "€",
		Filter:     "Food",
		Form: FormState{
			Mode:   session.Editing,
			Target: 2,
			Values: recs[1].Input(),
		},
	})

	assert.True(t, p.Form.Editing)
	assert.Equal(t, SubmitUpdate, p.Form.SubmitLabel)
	assert.True(t, p.Form.ShowCancel)
	assert.Equal(t, "Demo Food", p.Form.Text)
	assert.Equal(t, "-300", p.Form.Amount)
	assert.Equal(t, "-€300", p.Rows[1].Amount)
	assert.True(t, p.Rows[1].Editing)
	assert.False(t, p.Rows[0].Editing)

	assert.Equal(t, []CategoryOption{
		{Name: "Salary"},
		{Name: "Food", Selected: true, Filtered: true},
	}, p.Categories)
	assert.Equal(t, []TypeOption{
		{Value: "income", Label: "Income"},
		{Value: "expense", Label: "Expense", Selected: true},
	}, p.Types)
}

func TestRenderDoesNotMutateInput(t *testing.T) {
	recs := demo()
	before := append([]core.Transaction(nil), recs...)
	Render(State{Records: recs})
	for i := range recs {
		assert.True(t, before[i].Equal(recs[i]))
	}
}
