// Package engine applies structured intents to the ledger store. Each
// operation is a single atomic transition over an account's balance and
// transaction set: it commits wholesale or fails without visible effect.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
	"github.com/aruniyer/ledger-bot/internal/store"
)

// Operation names the ledger operation an intent resolved to.
type Operation string

const (
	OpRecord      Operation = "record"
	OpReadBalance Operation = "read_balance"
	OpSetBalance  Operation = "set_balance"
	OpTransfer    Operation = "transfer"
	OpDeleteLast  Operation = "delete_last"
	OpUpdateLast  Operation = "update_last"
	OpReadRecent  Operation = "read_recent"
	OpNone        Operation = "none"
)

// Effect is the structured side of a Result: what happened, to which
// accounts, and for how much.
type Effect struct {
	Operation   Operation
	Account     string
	FromAccount string
	Amount      decimal.Decimal
	Balance     decimal.Decimal // account balance after the operation, where meaningful
}

// Result is what every operation hands back to the transport layer: a short
// human-readable message plus the structured effect behind it.
type Result struct {
	Message string
	Effect  Effect
}

// Engine executes ledger operations against a store. It is safe for
// concurrent use: mutating operations span several store calls (resolve the
// account, read the balance or the most recent transaction, then write), so
// the engine holds a per-account lock across the whole operation. The store's
// own per-call atomicity is not enough for that read-modify-write.
type Engine struct {
	store store.Store
	loc   *time.Location
	log   zerolog.Logger
	locks *keyedMutex
	clock func() time.Time
}

// New creates an engine. loc is the timezone used for "now" defaults and
// user-facing dates.
func New(st store.Store, loc *time.Location, log zerolog.Logger) *Engine {
	return &Engine{
		store: st,
		loc:   loc,
		log:   log,
		locks: newKeyedMutex(),
		clock: time.Now,
	}
}

// accountLockKey identifies the serialization domain of one account. Name is
// lowercased so the key survives lazy creation, where only a name exists yet.
func accountLockKey(userID int64, name string) string {
	return strconv.FormatInt(userID, 10) + "/" + strings.ToLower(name)
}

// keyedMutex hands out one mutex per key. Entries are never evicted; a user's
// account set is small and stable.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// lock acquires the key's mutex and returns the release func.
func (k *keyedMutex) lock(key string) func() {
	m := k.get(key)
	m.Lock()
	return m.Unlock
}

// lockPair acquires two distinct keys in a fixed order so opposite transfers
// cannot deadlock.
func (k *keyedMutex) lockPair(a, b string) func() {
	if b < a {
		a, b = b, a
	}
	first, second := k.get(a), k.get(b)
	first.Lock()
	second.Lock()
	return func() {
		second.Unlock()
		first.Unlock()
	}
}

func (e *Engine) now() time.Time {
	return e.clock().In(e.loc)
}

// accountName applies the default account to an intent field.
func accountName(name string) string {
	if strings.TrimSpace(name) == "" {
		return domain.DefaultAccount
	}
	return strings.TrimSpace(name)
}

func description(desc string) string {
	if strings.TrimSpace(desc) == "" {
		return domain.DefaultDescription
	}
	return strings.TrimSpace(desc)
}

// resolveOrCreate finds the named account or lazily creates it with balance
// zero. Only write paths use it; operations addressing existing state go
// through FindAccount directly.
func (e *Engine) resolveOrCreate(ctx context.Context, userID int64, name string) (*domain.Account, error) {
	acc, err := e.store.FindAccount(ctx, userID, name)
	if err == nil {
		return acc, nil
	}
	if err != domain.ErrAccountNotFound {
		return nil, err
	}
	return e.store.CreateAccount(ctx, userID, name, decimal.Zero)
}

// Record inserts a new income or expense transaction, creating the account if
// needed.
func (e *Engine) Record(ctx context.Context, userID int64, in domain.Intent) (Result, error) {
	txType := domain.Income
	if in.Kind == domain.KindExpense {
		txType = domain.Expense
	}

	name := accountName(in.Account)
	unlock := e.locks.lock(accountLockKey(userID, name))
	defer unlock()

	acc, err := e.resolveOrCreate(ctx, userID, name)
	if err != nil {
		return Result{}, fmt.Errorf("Record: %w", err)
	}

	date := e.now()
	if in.Date != nil {
		date = *in.Date
	}
	tx := &domain.Transaction{
		AccountID:   acc.ID,
		Amount:      in.Amount,
		Type:        txType,
		Description: description(in.Description),
		Date:        date,
	}
	if err := e.store.InsertTransaction(ctx, tx, tx.SignedAmount()); err != nil {
		return Result{}, fmt.Errorf("Record: %w", err)
	}

	msg := fmt.Sprintf("%s of %s recorded in %s.", titleType(txType), money(tx.Amount), acc.Name)
	if tx.Description != domain.DefaultDescription {
		msg += "\nDescription: " + tx.Description
	}
	if in.Date != nil {
		msg += "\nDate: " + tx.Date.Format("2006-01-02")
	}

	return Result{
		Message: msg,
		Effect: Effect{
			Operation: OpRecord,
			Account:   acc.Name,
			Amount:    tx.Amount,
			Balance:   acc.Balance.Add(tx.SignedAmount()),
		},
	}, nil
}

// ReadBalance lists every account of the user with its current balance. No
// mutation, no lazy creation.
func (e *Engine) ReadBalance(ctx context.Context, userID int64, _ domain.Intent) (Result, error) {
	accounts, err := e.store.ListAccounts(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("ReadBalance: %w", err)
	}
	if len(accounts) == 0 {
		return Result{
			Message: "You don't have any accounts yet. Record an income or expense to start one.",
			Effect:  Effect{Operation: OpReadBalance},
		}, nil
	}

	var b strings.Builder
	b.WriteString("Current balances:")
	for _, acc := range accounts {
		b.WriteString(fmt.Sprintf("\n%s: %s", acc.Name, money(acc.Balance)))
	}
	return Result{
		Message: b.String(),
		Effect:  Effect{Operation: OpReadBalance},
	}, nil
}

// SetBalance brings an account to a target balance by inserting a correction
// transaction for the difference. The account's cached balance is never
// overwritten directly, so the balance-equals-sum-of-entries invariant holds
// without special-casing. A zero difference still inserts a zero-amount
// expense row, matching the audit trail users see elsewhere.
func (e *Engine) SetBalance(ctx context.Context, userID int64, in domain.Intent) (Result, error) {
	name := accountName(in.Account)
	unlock := e.locks.lock(accountLockKey(userID, name))
	defer unlock()

	// The difference must be computed from a balance no concurrent
	// operation can move before the correction row commits.
	acc, err := e.resolveOrCreate(ctx, userID, name)
	if err != nil {
		return Result{}, fmt.Errorf("SetBalance: %w", err)
	}

	diff := in.Amount.Sub(acc.Balance)
	txType := domain.Expense
	if diff.IsPositive() {
		txType = domain.Income
	}
	tx := &domain.Transaction{
		AccountID:   acc.ID,
		Amount:      diff.Abs(),
		Type:        txType,
		Description: domain.CorrectionDescription,
		Date:        e.now(),
	}
	if err := e.store.InsertTransaction(ctx, tx, tx.SignedAmount()); err != nil {
		return Result{}, fmt.Errorf("SetBalance: %w", err)
	}

	return Result{
		Message: fmt.Sprintf("%s balance set to %s (adjusted by %s of %s).",
			acc.Name, money(in.Amount), string(txType), money(tx.Amount)),
		Effect: Effect{
			Operation: OpSetBalance,
			Account:   acc.Name,
			Amount:    tx.Amount,
			Balance:   in.Amount,
		},
	}, nil
}

// Transfer moves money between two accounts as a paired expense/income, both
// legs committed in one storage transaction. A transfer onto the same account
// is rejected.
func (e *Engine) Transfer(ctx context.Context, userID int64, in domain.Intent) (Result, error) {
	fromName := accountName(in.FromAccount)
	toName := accountName(in.Account)
	if strings.EqualFold(fromName, toName) {
		return Result{}, fmt.Errorf("Transfer: %w", domain.ErrSelfTransfer)
	}

	unlock := e.locks.lockPair(
		accountLockKey(userID, fromName), accountLockKey(userID, toName))
	defer unlock()

	from, err := e.resolveOrCreate(ctx, userID, fromName)
	if err != nil {
		return Result{}, fmt.Errorf("Transfer: %w", err)
	}
	to, err := e.resolveOrCreate(ctx, userID, toName)
	if err != nil {
		return Result{}, fmt.Errorf("Transfer: %w", err)
	}

	now := e.now()
	desc := fmt.Sprintf("Transfer from %s to %s", from.Name, to.Name)
	out := &domain.Transaction{
		AccountID:   from.ID,
		Amount:      in.Amount,
		Type:        domain.Expense,
		Description: desc,
		Date:        now,
	}
	credit := &domain.Transaction{
		AccountID:   to.ID,
		Amount:      in.Amount,
		Type:        domain.Income,
		Description: desc,
		Date:        now,
	}
	if err := e.store.InsertTransfer(ctx, out, out.SignedAmount(), credit, credit.SignedAmount()); err != nil {
		return Result{}, fmt.Errorf("Transfer: %w", err)
	}

	return Result{
		Message: fmt.Sprintf("Transferred %s from %s to %s.", money(in.Amount), from.Name, to.Name),
		Effect: Effect{
			Operation:   OpTransfer,
			Account:     to.Name,
			FromAccount: from.Name,
			Amount:      in.Amount,
		},
	}, nil
}

// DeleteLast removes the account's most recent transaction and reverses its
// balance effect. A missing account is an error; an empty account is just a
// "nothing to delete" reply.
func (e *Engine) DeleteLast(ctx context.Context, userID int64, in domain.Intent) (Result, error) {
	name := accountName(in.Account)
	unlock := e.locks.lock(accountLockKey(userID, name))
	defer unlock()

	acc, err := e.store.FindAccount(ctx, userID, name)
	if err != nil {
		return Result{}, fmt.Errorf("DeleteLast: %w", err)
	}

	last, err := e.store.MostRecentTransaction(ctx, acc.ID)
	if err == domain.ErrNoTransactions {
		return Result{
			Message: fmt.Sprintf("There are no transactions in %s to delete.", acc.Name),
			Effect:  Effect{Operation: OpNone, Account: acc.Name},
		}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("DeleteLast: %w", err)
	}

	// Reversing means applying the negated original effect.
	if err := e.store.DeleteTransaction(ctx, last, last.SignedAmount().Neg()); err != nil {
		return Result{}, fmt.Errorf("DeleteLast: %w", err)
	}

	return Result{
		Message: fmt.Sprintf("Deleted the last %s of %s (%s) from %s.",
			string(last.Type), money(last.Amount), last.Description, acc.Name),
		Effect: Effect{
			Operation: OpDeleteLast,
			Account:   acc.Name,
			Amount:    last.Amount,
			Balance:   acc.Balance.Sub(last.SignedAmount()),
		},
	}, nil
}

// UpdateLast edits the account's most recent transaction. Only fields the
// intent actually carries are overwritten; the balance is corrected by
// reversing the old effect and applying the new one.
func (e *Engine) UpdateLast(ctx context.Context, userID int64, in domain.Intent) (Result, error) {
	name := accountName(in.Account)
	unlock := e.locks.lock(accountLockKey(userID, name))
	defer unlock()

	acc, err := e.store.FindAccount(ctx, userID, name)
	if err != nil {
		return Result{}, fmt.Errorf("UpdateLast: %w", err)
	}

	last, err := e.store.MostRecentTransaction(ctx, acc.ID)
	if err == domain.ErrNoTransactions {
		return Result{
			Message: fmt.Sprintf("There are no transactions in %s to update.", acc.Name),
			Effect:  Effect{Operation: OpNone, Account: acc.Name},
		}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("UpdateLast: %w", err)
	}

	var fields store.TransactionUpdate
	if in.Amount.IsPositive() {
		amount := in.Amount
		fields.Amount = &amount
	}
	if in.Kind == domain.KindIncome || in.Kind == domain.KindExpense {
		txType := domain.Income
		if in.Kind == domain.KindExpense {
			txType = domain.Expense
		}
		fields.Type = &txType
	}
	if d := strings.TrimSpace(in.Description); d != "" && d != domain.DefaultDescription {
		fields.Description = &d
	}
	if in.Date != nil {
		fields.Date = in.Date
	}

	// Reverse the old effect, then apply the new one.
	reversal := last.SignedAmount().Neg()
	next := *last
	if fields.Amount != nil {
		next.Amount = *fields.Amount
	}
	if fields.Type != nil {
		next.Type = *fields.Type
	}
	delta := reversal.Add(next.SignedAmount())

	updated, err := e.store.UpdateTransaction(ctx, last, fields, delta)
	if err != nil {
		return Result{}, fmt.Errorf("UpdateLast: %w", err)
	}

	return Result{
		Message: fmt.Sprintf("Updated the last transaction in %s: %s of %s (%s).",
			acc.Name, string(updated.Type), money(updated.Amount), updated.Description),
		Effect: Effect{
			Operation: OpUpdateLast,
			Account:   acc.Name,
			Amount:    updated.Amount,
			Balance:   acc.Balance.Add(delta),
		},
	}, nil
}

// ReadRecent returns the account's latest transactions, newest first. A
// missing account is a soft outcome here, not an error.
func (e *Engine) ReadRecent(ctx context.Context, userID int64, in domain.Intent) (Result, error) {
	name := accountName(in.Account)
	acc, err := e.store.FindAccount(ctx, userID, name)
	if err == domain.ErrAccountNotFound {
		return Result{
			Message: fmt.Sprintf("You don't have an account named %s.", name),
			Effect:  Effect{Operation: OpNone, Account: name},
		}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("ReadRecent: %w", err)
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	txs, err := e.store.RecentTransactions(ctx, acc.ID, limit)
	if err != nil {
		return Result{}, fmt.Errorf("ReadRecent: %w", err)
	}
	if len(txs) == 0 {
		return Result{
			Message: fmt.Sprintf("No transactions in %s yet.", acc.Name),
			Effect:  Effect{Operation: OpReadRecent, Account: acc.Name},
		}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d transactions in %s:", len(txs), acc.Name)
	for _, tx := range txs {
		fmt.Fprintf(&b, "\n%s: %s (%s)",
			tx.Date.In(e.loc).Format("02 Jan 2006"), signedMoney(tx), tx.Description)
	}
	return Result{
		Message: b.String(),
		Effect:  Effect{Operation: OpReadRecent, Account: acc.Name},
	}, nil
}

const defaultRecentLimit = 5
