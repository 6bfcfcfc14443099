package core

import "github.com/shopspring/decimal"

// Summary holds the running totals shown above the list.
type Summary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	NetBalance   decimal.Decimal
}

// Summarize computes totals from scratch over the full record set.
// Income amounts count as stored; expenses count by magnitude.
func Summarize(records []Transaction) Summary {
	income := decimal.Zero
	expense := decimal.Zero
	for _, r := range records {
		switch r.Type {
		case Income:
			income = income.Add(r.Amount)
		case Expense:
			expense = expense.Add(r.Amount.Abs())
		}
	}
	return Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		NetBalance:   income.Sub(expense),
	}
}
