package engine

import (
	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
)

// money renders an amount the way replies show it: rupee sign, two decimals.
func money(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

// signedMoney frames an amount by its transaction type: expenses with a
// leading minus, income with a plus.
func signedMoney(tx domain.Transaction) string {
	if tx.Type == domain.Expense {
		return "-" + money(tx.Amount)
	}
	return "+" + money(tx.Amount)
}

func titleType(t domain.TransactionType) string {
	if t == domain.Expense {
		return "Expense"
	}
	return "Income"
}
