// Package store defines the persistence contract for the ledger. Two
// implementations exist: postgres (production) and memory (tests, local
// development without a database).
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
)

// Order selects the sort direction of a range query.
type Order int

const (
	// Descending returns newest entries first (display order).
	Descending Order = iota
	// Ascending returns oldest entries first (report replay order).
	Ascending
)

// TransactionUpdate lists the fields of a transaction an update may replace.
// Nil fields keep their prior value.
type TransactionUpdate struct {
	Amount      *decimal.Decimal
	Type        *domain.TransactionType
	Description *string
	Date        *time.Time
}

// Store is the ledger's persistence interface.
//
// The engine decides every balance delta; the store's only job is to commit
// the transaction-row write and the paired account-balance write atomically.
// A mutating call either applies both or neither. Implementations must also
// serialize mutations per account: two concurrent calls touching the same
// account must not interleave their read-modify-write of the balance or of
// the most-recent-transaction position.
type Store interface {
	// FindUser returns the user with the given external id, or
	// domain.ErrUserNotFound.
	FindUser(ctx context.Context, externalID string) (*domain.User, error)

	// CreateUser registers a new user. The external id must be unused.
	CreateUser(ctx context.Context, externalID, name string) (*domain.User, error)

	// FindAccount matches the account name case-insensitively, returning
	// domain.ErrAccountNotFound when the user has no such account.
	FindAccount(ctx context.Context, userID int64, name string) (*domain.Account, error)

	// CreateAccount creates an account for the user with the given
	// starting balance.
	CreateAccount(ctx context.Context, userID int64, name string, balance decimal.Decimal) (*domain.Account, error)

	// ListAccounts returns all accounts of a user.
	ListAccounts(ctx context.Context, userID int64) ([]domain.Account, error)

	// MostRecentTransaction returns the account's latest transaction by
	// date, ties broken by insertion order (later insertion wins), or
	// domain.ErrNoTransactions.
	MostRecentTransaction(ctx context.Context, accountID int64) (*domain.Transaction, error)

	// RecentTransactions returns up to limit transactions, newest first.
	RecentTransactions(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error)

	// TransactionsInRange returns the account's transactions with dates in
	// [start, end], both bounds inclusive, in the requested order.
	TransactionsInRange(ctx context.Context, accountID int64, start, end time.Time, order Order) ([]domain.Transaction, error)

	// InsertTransaction persists tx and applies delta to the owning
	// account's balance in the same storage transaction. The stored id is
	// written back into tx.
	InsertTransaction(ctx context.Context, tx *domain.Transaction, delta decimal.Decimal) error

	// InsertTransfer persists both legs of a transfer and both balance
	// deltas atomically: all four writes commit together or not at all.
	InsertTransfer(ctx context.Context, out *domain.Transaction, outDelta decimal.Decimal, in *domain.Transaction, inDelta decimal.Decimal) error

	// DeleteTransaction removes tx and applies delta (the reversal of the
	// entry's balance effect) atomically.
	DeleteTransaction(ctx context.Context, tx *domain.Transaction, delta decimal.Decimal) error

	// UpdateTransaction overwrites the supplied fields of tx and applies
	// delta atomically, returning the transaction as stored.
	UpdateTransaction(ctx context.Context, tx *domain.Transaction, fields TransactionUpdate, delta decimal.Decimal) (*domain.Transaction, error)
}
