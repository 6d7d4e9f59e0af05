package finance

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Uncategorized labels spend without a category
const Uncategorized = "uncategorized"

// CategoryAmount is the spend attributed to one category
type CategoryAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// Summary is the data behind the dashboard charts
type Summary struct {
	Income     decimal.Decimal  `json:"income"`
	Expense    decimal.Decimal  `json:"expense"`
	Net        decimal.Decimal  `json:"net"`
	Count      int              `json:"count"`
	ByCategory []CategoryAmount `json:"byCategory"`
}

// Summarize totals income and expense and breaks expense down by category,
// largest first. Transfers move money between sources and are not counted.
func Summarize(txs []Transaction) Summary {
	s := Summary{Income: decimal.Zero, Expense: decimal.Zero}
	byCategory := make(map[string]decimal.Decimal)

	for _, tx := range txs {
		switch tx.Type {
		case TransactionIncome:
			s.Income = s.Income.Add(tx.Amount)
		case TransactionExpense:
			s.Expense = s.Expense.Add(tx.Amount)
			name := tx.CategoryName
			if name == "" {
				name = Uncategorized
			}
			byCategory[name] = byCategory[name].Add(tx.Amount)
		default:
			continue
		}
		s.Count++
	}
	s.Net = s.Income.Sub(s.Expense)

	s.ByCategory = make([]CategoryAmount, 0, len(byCategory))
	for name, amount := range byCategory {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: amount})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		a, b := s.ByCategory[i], s.ByCategory[j]
		if !a.Amount.Equal(b.Amount) {
			return a.Amount.GreaterThan(b.Amount)
		}
		return a.Name < b.Name
	})
	return s
}
