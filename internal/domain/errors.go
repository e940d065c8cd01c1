package domain

import "errors"

var (
	// ErrUserNotFound indicates that no user exists for an external id.
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountNotFound indicates that a referenced account does not
	// exist. Only operations that address existing state return it; write
	// paths create missing accounts instead.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNoTransactions indicates that an account has no transactions, so
	// there is no "most recent" entry to act on.
	ErrNoTransactions = errors.New("no transactions")

	// ErrSelfTransfer indicates a transfer whose two sides resolve to the
	// same account.
	ErrSelfTransfer = errors.New("transfer source and destination are the same account")

	// ErrPartialTransfer indicates that one leg of a transfer committed
	// and the other failed, leaving the ledger inconsistent. The Postgres
	// store commits both legs in one transaction and never returns it; it
	// exists for stores that cannot provide joint atomicity.
	ErrPartialTransfer = errors.New("transfer partially applied")
)
