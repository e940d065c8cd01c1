// Package domain defines the ledger entities shared by the store, the
// transaction engine and the report builder.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType carries the sign semantics of a transaction: amounts are
// stored non-negative, and the type alone decides whether an entry adds to or
// subtracts from the account balance.
type TransactionType string

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Defaults applied when the extractor leaves a field blank.
const (
	DefaultAccount     = "Cash"
	DefaultDescription = "Miscellaneous"

	// CorrectionDescription marks synthetic entries inserted by a
	// balance-set operation. Report totals skip entries carrying it.
	CorrectionDescription = "Balance correction"
)

// User is a chat user identified by an opaque external id. Users are created
// on first contact and never mutated afterwards.
type User struct {
	ID         int64
	ExternalID string
	Name       string
	CreatedAt  time.Time
}

// Account is a named money bucket owned by one user. Balance is a running
// cache: it always equals the signed sum of the account's transactions and is
// only ever adjusted incrementally, together with the row write that caused
// the change.
type Account struct {
	ID      int64
	UserID  int64
	Name    string
	Balance decimal.Decimal
}

// Transaction is a single ledger entry. Amount is always non-negative; the
// Type field decides the sign of its balance effect.
type Transaction struct {
	ID          int64
	AccountID   int64
	Amount      decimal.Decimal
	Type        TransactionType
	Description string
	Date        time.Time
}

// SignedAmount returns the balance effect of the transaction: Amount for
// income, negated Amount for expense.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}
