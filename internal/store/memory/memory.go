// Package memory is an in-memory implementation of store.Store. It backs the
// engine and report tests and lets the bot run without a database. Data is
// lost on restart - use the postgres store for real deployments.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
	"github.com/aruniyer/ledger-bot/internal/store"
)

// Store keeps the whole ledger in maps guarded by one mutex. The single lock
// serializes every mutation, which over-satisfies the per-account
// serialization the engine needs; contention is irrelevant at this scale.
type Store struct {
	mu           sync.Mutex
	users        map[int64]*domain.User
	accounts     map[int64]*domain.Account
	transactions map[int64]*domain.Transaction
	nextID       int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		users:        make(map[int64]*domain.User),
		accounts:     make(map[int64]*domain.Account),
		transactions: make(map[int64]*domain.Transaction),
	}
}

func (s *Store) nextSequence() int64 {
	s.nextID++
	return s.nextID
}

// FindUser implements store.Store.
func (s *Store) FindUser(_ context.Context, externalID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ExternalID == externalID {
			userCopy := *u
			return &userCopy, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// CreateUser implements store.Store.
func (s *Store) CreateUser(_ context.Context, externalID, name string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := &domain.User{
		ID:         s.nextSequence(),
		ExternalID: externalID,
		Name:       name,
		CreatedAt:  time.Now(),
	}
	s.users[u.ID] = u
	userCopy := *u
	return &userCopy, nil
}

// FindAccount implements store.Store. The name match is case-insensitive.
func (s *Store) FindAccount(_ context.Context, userID int64, name string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.findAccountLocked(userID, name)
	if acc == nil {
		return nil, domain.ErrAccountNotFound
	}
	accCopy := *acc
	return &accCopy, nil
}

func (s *Store) findAccountLocked(userID int64, name string) *domain.Account {
	for _, acc := range s.accounts {
		if acc.UserID == userID && strings.EqualFold(acc.Name, name) {
			return acc
		}
	}
	return nil
}

// CreateAccount implements store.Store.
func (s *Store) CreateAccount(_ context.Context, userID int64, name string, balance decimal.Decimal) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := &domain.Account{
		ID:      s.nextSequence(),
		UserID:  userID,
		Name:    name,
		Balance: balance,
	}
	s.accounts[acc.ID] = acc
	accCopy := *acc
	return &accCopy, nil
}

// ListAccounts implements store.Store.
func (s *Store) ListAccounts(_ context.Context, userID int64) ([]domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var accounts []domain.Account
	for _, acc := range s.accounts {
		if acc.UserID == userID {
			accounts = append(accounts, *acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// MostRecentTransaction implements store.Store. Date ties go to the later
// insertion, which the monotonic ids encode.
func (s *Store) MostRecentTransaction(_ context.Context, accountID int64) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.Transaction
	for _, tx := range s.transactions {
		if tx.AccountID != accountID {
			continue
		}
		if latest == nil || tx.Date.After(latest.Date) ||
			(tx.Date.Equal(latest.Date) && tx.ID > latest.ID) {
			latest = tx
		}
	}
	if latest == nil {
		return nil, domain.ErrNoTransactions
	}
	txCopy := *latest
	return &txCopy, nil
}

// RecentTransactions implements store.Store.
func (s *Store) RecentTransactions(_ context.Context, accountID int64, limit int) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.accountTransactionsLocked(accountID, nil, nil)
	sortNewestFirst(txs)
	if limit > 0 && limit < len(txs) {
		txs = txs[:limit]
	}
	return txs, nil
}

// TransactionsInRange implements store.Store. Both bounds are inclusive.
func (s *Store) TransactionsInRange(_ context.Context, accountID int64, start, end time.Time, order store.Order) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs := s.accountTransactionsLocked(accountID, &start, &end)
	if order == store.Ascending {
		sortOldestFirst(txs)
	} else {
		sortNewestFirst(txs)
	}
	return txs, nil
}

func (s *Store) accountTransactionsLocked(accountID int64, start, end *time.Time) []domain.Transaction {
	var txs []domain.Transaction
	for _, tx := range s.transactions {
		if tx.AccountID != accountID {
			continue
		}
		if start != nil && tx.Date.Before(*start) {
			continue
		}
		if end != nil && tx.Date.After(*end) {
			continue
		}
		txs = append(txs, *tx)
	}
	return txs
}

func sortNewestFirst(txs []domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.After(txs[j].Date)
		}
		return txs[i].ID > txs[j].ID
	})
}

func sortOldestFirst(txs []domain.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date) {
			return txs[i].Date.Before(txs[j].Date)
		}
		return txs[i].ID < txs[j].ID
	})
}

// InsertTransaction implements store.Store.
func (s *Store) InsertTransaction(_ context.Context, tx *domain.Transaction, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(tx, delta)
}

// InsertTransfer implements store.Store. Under the single lock both legs are
// applied together; neither is visible alone.
func (s *Store) InsertTransfer(_ context.Context, out *domain.Transaction, outDelta decimal.Decimal, in *domain.Transaction, inDelta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.insertLocked(out, outDelta); err != nil {
		return err
	}
	if err := s.insertLocked(in, inDelta); err != nil {
		// Roll the first leg back so a failed transfer leaves no trace.
		delete(s.transactions, out.ID)
		s.accounts[out.AccountID].Balance = s.accounts[out.AccountID].Balance.Sub(outDelta)
		return err
	}
	return nil
}

func (s *Store) insertLocked(tx *domain.Transaction, delta decimal.Decimal) error {
	acc, ok := s.accounts[tx.AccountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	tx.ID = s.nextSequence()
	txCopy := *tx
	s.transactions[tx.ID] = &txCopy
	acc.Balance = acc.Balance.Add(delta)
	return nil
}

// DeleteTransaction implements store.Store.
func (s *Store) DeleteTransaction(_ context.Context, tx *domain.Transaction, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[tx.AccountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if _, ok := s.transactions[tx.ID]; !ok {
		return domain.ErrNoTransactions
	}
	delete(s.transactions, tx.ID)
	acc.Balance = acc.Balance.Add(delta)
	return nil
}

// UpdateTransaction implements store.Store.
func (s *Store) UpdateTransaction(_ context.Context, tx *domain.Transaction, fields store.TransactionUpdate, delta decimal.Decimal) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[tx.AccountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	stored, ok := s.transactions[tx.ID]
	if !ok {
		return nil, domain.ErrNoTransactions
	}

	if fields.Amount != nil {
		stored.Amount = *fields.Amount
	}
	if fields.Type != nil {
		stored.Type = *fields.Type
	}
	if fields.Description != nil {
		stored.Description = *fields.Description
	}
	if fields.Date != nil {
		stored.Date = *fields.Date
	}
	acc.Balance = acc.Balance.Add(delta)

	txCopy := *stored
	return &txCopy, nil
}

// Ensure Store implements the persistence interface.
var _ store.Store = (*Store)(nil)
