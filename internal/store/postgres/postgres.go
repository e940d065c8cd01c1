// Package postgres implements the ledger store on PostgreSQL using pgx.
//
// Per-account serialization comes from row locks: every mutating operation
// runs in a transaction that first locks the owning account row with
// SELECT ... FOR UPDATE, so concurrent operations on the same account queue
// up at the database while other accounts proceed in parallel.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
	"github.com/aruniyer/ledger-bot/internal/store"
)

// Store is the PostgreSQL implementation of store.Store. It holds a shared
// connection pool; create one per process and Close it on shutdown.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and applies the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// FindUser implements store.Store.
func (s *Store) FindUser(ctx context.Context, externalID string) (*domain.User, error) {
	const query = `
		SELECT id, external_id, name, created_at
		FROM users
		WHERE external_id = $1`

	u := &domain.User{}
	err := s.pool.QueryRow(ctx, query, externalID).
		Scan(&u.ID, &u.ExternalID, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("FindUser: %w", err)
	}
	return u, nil
}

// CreateUser implements store.Store.
func (s *Store) CreateUser(ctx context.Context, externalID, name string) (*domain.User, error) {
	const query = `
		INSERT INTO users (external_id, name)
		VALUES ($1, $2)
		RETURNING id, created_at`

	u := &domain.User{ExternalID: externalID, Name: name}
	if err := s.pool.QueryRow(ctx, query, externalID, name).Scan(&u.ID, &u.CreatedAt); err != nil {
		return nil, fmt.Errorf("CreateUser: %w", err)
	}
	return u, nil
}

// FindAccount implements store.Store. The name match is case-insensitive.
func (s *Store) FindAccount(ctx context.Context, userID int64, name string) (*domain.Account, error) {
	const query = `
		SELECT id, user_id, name, balance::text
		FROM accounts
		WHERE user_id = $1 AND lower(name) = lower($2)`

	return s.scanAccount(s.pool.QueryRow(ctx, query, userID, name))
}

// CreateAccount implements store.Store.
func (s *Store) CreateAccount(ctx context.Context, userID int64, name string, balance decimal.Decimal) (*domain.Account, error) {
	const query = `
		INSERT INTO accounts (user_id, name, balance)
		VALUES ($1, $2, $3::numeric)
		RETURNING id`

	acc := &domain.Account{UserID: userID, Name: name, Balance: balance}
	if err := s.pool.QueryRow(ctx, query, userID, name, balance.String()).Scan(&acc.ID); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	return acc, nil
}

// ListAccounts implements store.Store.
func (s *Store) ListAccounts(ctx context.Context, userID int64) ([]domain.Account, error) {
	const query = `
		SELECT id, user_id, name, balance::text
		FROM accounts
		WHERE user_id = $1
		ORDER BY id`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var (
			acc domain.Account
			bal string
		)
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.Name, &bal); err != nil {
			return nil, fmt.Errorf("ListAccounts: scan: %w", err)
		}
		if acc.Balance, err = decimal.NewFromString(bal); err != nil {
			return nil, fmt.Errorf("ListAccounts: parse balance %q: %w", bal, err)
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

// MostRecentTransaction implements store.Store. The id tie-break makes later
// insertions win when dates collide.
func (s *Store) MostRecentTransaction(ctx context.Context, accountID int64) (*domain.Transaction, error) {
	const query = `
		SELECT id, account_id, amount::text, type, description, date
		FROM transactions
		WHERE account_id = $1
		ORDER BY date DESC, id DESC
		LIMIT 1`

	tx, err := scanTransaction(s.pool.QueryRow(ctx, query, accountID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNoTransactions
	}
	if err != nil {
		return nil, fmt.Errorf("MostRecentTransaction: %w", err)
	}
	return tx, nil
}

// RecentTransactions implements store.Store.
func (s *Store) RecentTransactions(ctx context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	const query = `
		SELECT id, account_id, amount::text, type, description, date
		FROM transactions
		WHERE account_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("RecentTransactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// TransactionsInRange implements store.Store. Both bounds are inclusive.
func (s *Store) TransactionsInRange(ctx context.Context, accountID int64, start, end time.Time, order store.Order) ([]domain.Transaction, error) {
	query := `
		SELECT id, account_id, amount::text, type, description, date
		FROM transactions
		WHERE account_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC, id DESC`
	if order == store.Ascending {
		query = `
		SELECT id, account_id, amount::text, type, description, date
		FROM transactions
		WHERE account_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC, id ASC`
	}

	rows, err := s.pool.Query(ctx, query, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("TransactionsInRange: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// InsertTransaction implements store.Store.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction, delta decimal.Decimal) error {
	err := s.withAccountLock(ctx, tx.AccountID, func(dbtx pgx.Tx) error {
		if err := insertRow(ctx, dbtx, tx); err != nil {
			return err
		}
		return applyDelta(ctx, dbtx, tx.AccountID, delta)
	})
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// InsertTransfer implements store.Store. Both legs and both balance deltas
// commit in one database transaction; a failure on either side rolls back
// everything.
func (s *Store) InsertTransfer(ctx context.Context, out *domain.Transaction, outDelta decimal.Decimal, in *domain.Transaction, inDelta decimal.Decimal) error {
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("InsertTransfer: begin: %w", err)
	}
	defer dbtx.Rollback(ctx)

	// Lock both account rows in a fixed order so two opposite transfers
	// cannot deadlock.
	first, second := out.AccountID, in.AccountID
	if first > second {
		first, second = second, first
	}
	for _, id := range []int64{first, second} {
		if err := lockAccount(ctx, dbtx, id); err != nil {
			return fmt.Errorf("InsertTransfer: %w", err)
		}
	}

	for _, leg := range []struct {
		tx    *domain.Transaction
		delta decimal.Decimal
	}{{out, outDelta}, {in, inDelta}} {
		if err := insertRow(ctx, dbtx, leg.tx); err != nil {
			return fmt.Errorf("InsertTransfer: %w", err)
		}
		if err := applyDelta(ctx, dbtx, leg.tx.AccountID, leg.delta); err != nil {
			return fmt.Errorf("InsertTransfer: %w", err)
		}
	}

	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("InsertTransfer: commit: %w", err)
	}
	return nil
}

// DeleteTransaction implements store.Store.
func (s *Store) DeleteTransaction(ctx context.Context, tx *domain.Transaction, delta decimal.Decimal) error {
	err := s.withAccountLock(ctx, tx.AccountID, func(dbtx pgx.Tx) error {
		tag, err := dbtx.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, tx.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNoTransactions
		}
		return applyDelta(ctx, dbtx, tx.AccountID, delta)
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// UpdateTransaction implements store.Store.
func (s *Store) UpdateTransaction(ctx context.Context, tx *domain.Transaction, fields store.TransactionUpdate, delta decimal.Decimal) (*domain.Transaction, error) {
	updated := *tx
	if fields.Amount != nil {
		updated.Amount = *fields.Amount
	}
	if fields.Type != nil {
		updated.Type = *fields.Type
	}
	if fields.Description != nil {
		updated.Description = *fields.Description
	}
	if fields.Date != nil {
		updated.Date = *fields.Date
	}

	err := s.withAccountLock(ctx, tx.AccountID, func(dbtx pgx.Tx) error {
		const query = `
			UPDATE transactions
			SET amount = $1::numeric, type = $2, description = $3, date = $4
			WHERE id = $5`
		tag, err := dbtx.Exec(ctx, query,
			updated.Amount.String(), string(updated.Type), updated.Description, updated.Date, updated.ID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNoTransactions
		}
		return applyDelta(ctx, dbtx, tx.AccountID, delta)
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}
	return &updated, nil
}

// withAccountLock runs fn inside a transaction that holds the account's row
// lock, committing on success.
func (s *Store) withAccountLock(ctx context.Context, accountID int64, fn func(pgx.Tx) error) error {
	dbtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer dbtx.Rollback(ctx)

	if err := lockAccount(ctx, dbtx, accountID); err != nil {
		return err
	}
	if err := fn(dbtx); err != nil {
		return err
	}
	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func lockAccount(ctx context.Context, dbtx pgx.Tx, accountID int64) error {
	var id int64
	err := dbtx.QueryRow(ctx, `SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("lock account %d: %w", accountID, err)
	}
	return nil
}

func insertRow(ctx context.Context, dbtx pgx.Tx, tx *domain.Transaction) error {
	const query = `
		INSERT INTO transactions (account_id, amount, type, description, date)
		VALUES ($1, $2::numeric, $3, $4, $5)
		RETURNING id`
	return dbtx.QueryRow(ctx, query,
		tx.AccountID, tx.Amount.String(), string(tx.Type), tx.Description, tx.Date).Scan(&tx.ID)
}

func applyDelta(ctx context.Context, dbtx pgx.Tx, accountID int64, delta decimal.Decimal) error {
	_, err := dbtx.Exec(ctx,
		`UPDATE accounts SET balance = balance + $1::numeric WHERE id = $2`,
		delta.String(), accountID)
	if err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}
	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		acc domain.Account
		bal string
	)
	err := row.Scan(&acc.ID, &acc.UserID, &acc.Name, &bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if acc.Balance, err = decimal.NewFromString(bal); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", bal, err)
	}
	return &acc, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx  domain.Transaction
		amt string
		typ string
	)
	if err := row.Scan(&tx.ID, &tx.AccountID, &amt, &typ, &tx.Description, &tx.Date); err != nil {
		return nil, err
	}
	var err error
	if tx.Amount, err = decimal.NewFromString(amt); err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amt, err)
	}
	tx.Type = domain.TransactionType(typ)
	return &tx, nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return txs, nil
}
