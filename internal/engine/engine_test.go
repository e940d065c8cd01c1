package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
	"github.com/aruniyer/ledger-bot/internal/store"
	"github.com/aruniyer/ledger-bot/internal/store/memory"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *memory.Store, int64) {
	t.Helper()
	st := memory.New()
	user, err := st.CreateUser(context.Background(), "42", "Asha")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	eng := New(st, time.UTC, zerolog.Nop())
	eng.clock = func() time.Time { return testNow }
	return eng, st, user.ID
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func recordIntent(kind domain.IntentKind, account, amount, desc string) domain.Intent {
	d, _ := decimal.NewFromString(amount)
	return domain.Intent{
		Kind:        kind,
		Action:      domain.ActionCreate,
		Amount:      d,
		Account:     account,
		Description: desc,
	}
}

func accountBalance(t *testing.T, st *memory.Store, userID int64, name string) decimal.Decimal {
	t.Helper()
	acc, err := st.FindAccount(context.Background(), userID, name)
	if err != nil {
		t.Fatalf("FindAccount(%s) failed: %v", name, err)
	}
	return acc.Balance
}

func TestRecordLazyCreation(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	res, err := eng.Record(ctx, userID, recordIntent(domain.KindExpense, "NewAcc", "50", ""))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if !strings.Contains(res.Message, "Expense of ₹50.00 recorded in NewAcc") {
		t.Errorf("unexpected message: %q", res.Message)
	}

	got := accountBalance(t, st, userID, "NewAcc")
	if !got.Equal(dec(t, "-50")) {
		t.Errorf("NewAcc balance = %s, want -50", got)
	}
}

func TestRecordDefaultsAndMessage(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	// No account, no description: defaults apply, and the default
	// description stays out of the reply.
	res, err := eng.Record(ctx, userID, recordIntent(domain.KindIncome, "", "1000", ""))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if strings.Contains(res.Message, "Description:") {
		t.Errorf("default description should not be echoed, got %q", res.Message)
	}
	if got := accountBalance(t, st, userID, "Cash"); !got.Equal(dec(t, "1000")) {
		t.Errorf("Cash balance = %s, want 1000", got)
	}

	acc, _ := st.FindAccount(ctx, userID, "cash")
	last, err := st.MostRecentTransaction(ctx, acc.ID)
	if err != nil {
		t.Fatalf("MostRecentTransaction failed: %v", err)
	}
	if last.Description != domain.DefaultDescription {
		t.Errorf("description = %q, want %q", last.Description, domain.DefaultDescription)
	}
	if !last.Date.Equal(testNow) {
		t.Errorf("date = %v, want clock time %v", last.Date, testNow)
	}
}

func TestRecordThenReadBalanceAndRecent(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Record(ctx, userID, recordIntent(domain.KindIncome, "Cash", "1000", "")); err != nil {
		t.Fatalf("Record income failed: %v", err)
	}
	if _, err := eng.Record(ctx, userID, recordIntent(domain.KindExpense, "Cash", "300", "Groceries")); err != nil {
		t.Fatalf("Record expense failed: %v", err)
	}

	res, err := eng.ReadBalance(ctx, userID, domain.Intent{Kind: domain.KindBalance, Action: domain.ActionRead})
	if err != nil {
		t.Fatalf("ReadBalance failed: %v", err)
	}
	if !strings.Contains(res.Message, "Cash: ₹700.00") {
		t.Errorf("balance message = %q, want Cash: ₹700.00", res.Message)
	}

	recent, err := eng.ReadRecent(ctx, userID, domain.Intent{
		Kind: domain.KindTransaction, Action: domain.ActionRead, Account: "Cash", Limit: 2,
	})
	if err != nil {
		t.Fatalf("ReadRecent failed: %v", err)
	}
	groceries := strings.Index(recent.Message, "Groceries")
	income := strings.Index(recent.Message, "+₹1000.00")
	if groceries == -1 || income == -1 {
		t.Fatalf("recent message missing entries: %q", recent.Message)
	}
	if groceries > income {
		t.Errorf("expected newest (Groceries) first, got %q", recent.Message)
	}

	// Both inserts share the clock timestamp, so ordering fell back to
	// insertion order.
	acc, _ := st.FindAccount(ctx, userID, "Cash")
	last, _ := st.MostRecentTransaction(ctx, acc.ID)
	if last.Description != "Groceries" {
		t.Errorf("most recent = %q, want the later insertion", last.Description)
	}
}

func TestReadBalanceNoAccounts(t *testing.T) {
	eng, _, userID := newTestEngine(t)

	res, err := eng.ReadBalance(context.Background(), userID, domain.Intent{Kind: domain.KindBalance})
	if err != nil {
		t.Fatalf("ReadBalance failed: %v", err)
	}
	if !strings.Contains(res.Message, "don't have any accounts") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestSetBalanceConvergence(t *testing.T) {
	tests := []struct {
		name    string
		seed    []domain.Intent
		target  string
		adjType domain.TransactionType
	}{
		{
			name:    "from zero up",
			target:  "1000",
			adjType: domain.Income,
		},
		{
			name:    "down from positive",
			seed:    []domain.Intent{recordIntent(domain.KindIncome, "Cash", "5000", "")},
			target:  "1200",
			adjType: domain.Expense,
		},
		{
			name:    "up from negative",
			seed:    []domain.Intent{recordIntent(domain.KindExpense, "Cash", "400", "")},
			target:  "100",
			adjType: domain.Income,
		},
		{
			name:    "zero diff still records a correction",
			target:  "0",
			adjType: domain.Expense,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, st, userID := newTestEngine(t)
			ctx := context.Background()

			for _, in := range tt.seed {
				if _, err := eng.Record(ctx, userID, in); err != nil {
					t.Fatalf("seed Record failed: %v", err)
				}
			}

			_, err := eng.SetBalance(ctx, userID, domain.Intent{
				Kind:   domain.KindBalanceAdjustment,
				Amount: dec(t, tt.target),
			})
			if err != nil {
				t.Fatalf("SetBalance failed: %v", err)
			}

			if got := accountBalance(t, st, userID, "Cash"); !got.Equal(dec(t, tt.target)) {
				t.Errorf("balance = %s, want %s", got, tt.target)
			}

			acc, _ := st.FindAccount(ctx, userID, "Cash")
			last, err := st.MostRecentTransaction(ctx, acc.ID)
			if err != nil {
				t.Fatalf("correction row missing: %v", err)
			}
			if last.Description != domain.CorrectionDescription {
				t.Errorf("correction description = %q", last.Description)
			}
			if last.Type != tt.adjType {
				t.Errorf("correction type = %s, want %s", last.Type, tt.adjType)
			}
		})
	}
}

func TestTransfer(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	res, err := eng.Transfer(ctx, userID, domain.Intent{
		Kind:        domain.KindTransfer,
		Amount:      dec(t, "200"),
		FromAccount: "Cash",
		Account:     "HDFC",
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if !strings.Contains(res.Message, "Transferred ₹200.00 from Cash to HDFC") {
		t.Errorf("unexpected message: %q", res.Message)
	}

	if got := accountBalance(t, st, userID, "Cash"); !got.Equal(dec(t, "-200")) {
		t.Errorf("Cash balance = %s, want -200", got)
	}
	if got := accountBalance(t, st, userID, "HDFC"); !got.Equal(dec(t, "200")) {
		t.Errorf("HDFC balance = %s, want 200", got)
	}

	for _, name := range []string{"Cash", "HDFC"} {
		acc, _ := st.FindAccount(ctx, userID, name)
		last, err := st.MostRecentTransaction(ctx, acc.ID)
		if err != nil {
			t.Fatalf("leg missing on %s: %v", name, err)
		}
		if last.Description != "Transfer from Cash to HDFC" {
			t.Errorf("%s leg description = %q", name, last.Description)
		}
	}
}

func TestTransferSelfRejected(t *testing.T) {
	eng, st, userID := newTestEngine(t)

	// Both sides defaulting to Cash is the classic way to hit this.
	_, err := eng.Transfer(context.Background(), userID, domain.Intent{
		Kind:   domain.KindTransfer,
		Amount: dec(t, "100"),
	})
	if !errors.Is(err, domain.ErrSelfTransfer) {
		t.Fatalf("err = %v, want ErrSelfTransfer", err)
	}

	// Nothing may have been created.
	if _, err := st.FindAccount(context.Background(), userID, "Cash"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("rejected transfer must not create accounts")
	}
}

func TestDeleteLastReversibility(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Record(ctx, userID, recordIntent(domain.KindIncome, "Cash", "1000", "")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	groceries := recordIntent(domain.KindExpense, "Cash", "300", "Groceries")
	if _, err := eng.Record(ctx, userID, groceries); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	before := accountBalance(t, st, userID, "Cash")

	res, err := eng.DeleteLast(ctx, userID, domain.Intent{
		Kind: domain.KindExpense, Action: domain.ActionDelete, Account: "Cash",
	})
	if err != nil {
		t.Fatalf("DeleteLast failed: %v", err)
	}
	if !strings.Contains(res.Message, "expense of ₹300.00") {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if got := accountBalance(t, st, userID, "Cash"); !got.Equal(dec(t, "1000")) {
		t.Errorf("balance after delete = %s, want 1000", got)
	}

	// Re-recording the identical transaction restores the prior balance.
	if _, err := eng.Record(ctx, userID, groceries); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if got := accountBalance(t, st, userID, "Cash"); !got.Equal(before) {
		t.Errorf("balance after re-record = %s, want %s", got, before)
	}
}

func TestDeleteLastMissingAccount(t *testing.T) {
	eng, _, userID := newTestEngine(t)

	_, err := eng.DeleteLast(context.Background(), userID, domain.Intent{
		Kind: domain.KindExpense, Action: domain.ActionDelete, Account: "Ghost",
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestDeleteLastEmptyAccount(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	if _, err := st.CreateAccount(ctx, userID, "Cash", decimal.Zero); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	res, err := eng.DeleteLast(ctx, userID, domain.Intent{
		Kind: domain.KindExpense, Action: domain.ActionDelete, Account: "Cash",
	})
	if err != nil {
		t.Fatalf("empty delete should not error, got %v", err)
	}
	if !strings.Contains(res.Message, "no transactions") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestUpdateLastOnlyAmount(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	in := recordIntent(domain.KindExpense, "Cash", "300", "Groceries")
	in.Date = &date
	if _, err := eng.Record(ctx, userID, in); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	_, err := eng.UpdateLast(ctx, userID, domain.Intent{
		Kind:   domain.KindExpense,
		Action: domain.ActionUpdate,
		Amount: dec(t, "500"),
	})
	if err != nil {
		t.Fatalf("UpdateLast failed: %v", err)
	}

	acc, _ := st.FindAccount(ctx, userID, "Cash")
	last, _ := st.MostRecentTransaction(ctx, acc.ID)
	if !last.Amount.Equal(dec(t, "500")) {
		t.Errorf("amount = %s, want 500", last.Amount)
	}
	// Fields the intent did not carry stay untouched.
	if last.Description != "Groceries" {
		t.Errorf("description changed to %q", last.Description)
	}
	if last.Type != domain.Expense {
		t.Errorf("type changed to %s", last.Type)
	}
	if !last.Date.Equal(date) {
		t.Errorf("date changed to %v", last.Date)
	}
	if got := accountBalance(t, st, userID, "Cash"); !got.Equal(dec(t, "-500")) {
		t.Errorf("balance = %s, want -500", got)
	}
}

func TestUpdateLastTypeFlip(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Record(ctx, userID, recordIntent(domain.KindExpense, "Cash", "300", "")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// "update last transaction to an income of 300": old effect reversed,
	// new effect applied.
	_, err := eng.UpdateLast(ctx, userID, domain.Intent{
		Kind:   domain.KindIncome,
		Action: domain.ActionUpdate,
		Amount: dec(t, "300"),
	})
	if err != nil {
		t.Fatalf("UpdateLast failed: %v", err)
	}
	if got := accountBalance(t, st, userID, "Cash"); !got.Equal(dec(t, "300")) {
		t.Errorf("balance = %s, want 300", got)
	}
}

func TestUpdateLastEmptyAccount(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	if _, err := st.CreateAccount(ctx, userID, "Cash", decimal.Zero); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	res, err := eng.UpdateLast(ctx, userID, domain.Intent{
		Kind: domain.KindExpense, Action: domain.ActionUpdate, Amount: dec(t, "10"),
	})
	if err != nil {
		t.Fatalf("empty update should not error, got %v", err)
	}
	if !strings.Contains(res.Message, "no transactions") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestReadRecentMissingAccountIsSoft(t *testing.T) {
	eng, _, userID := newTestEngine(t)

	res, err := eng.ReadRecent(context.Background(), userID, domain.Intent{
		Kind: domain.KindTransaction, Action: domain.ActionRead, Account: "Ghost",
	})
	if err != nil {
		t.Fatalf("missing account on read must not error, got %v", err)
	}
	if !strings.Contains(res.Message, "don't have an account named Ghost") {
		t.Errorf("unexpected message: %q", res.Message)
	}
}

func TestReadRecentDefaultLimit(t *testing.T) {
	eng, _, userID := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		in := recordIntent(domain.KindExpense, "Cash", "10", "")
		date := testNow.Add(time.Duration(i) * time.Hour)
		in.Date = &date
		if _, err := eng.Record(ctx, userID, in); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	res, err := eng.ReadRecent(ctx, userID, domain.Intent{
		Kind: domain.KindTransaction, Action: domain.ActionRead, Account: "Cash",
	})
	if err != nil {
		t.Fatalf("ReadRecent failed: %v", err)
	}
	if !strings.Contains(res.Message, "Last 5 transactions") {
		t.Errorf("default limit not applied: %q", res.Message)
	}
}

// The balance invariant: after any mix of operations, every account balance
// equals the signed sum of its stored transactions.
func TestBalanceInvariant(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	ops := []func() error{
		func() error { _, err := eng.Record(ctx, userID, recordIntent(domain.KindIncome, "Cash", "1000", "")); return err },
		func() error {
			_, err := eng.Record(ctx, userID, recordIntent(domain.KindExpense, "Cash", "250.50", "Rent"))
			return err
		},
		func() error {
			_, err := eng.Transfer(ctx, userID, domain.Intent{Kind: domain.KindTransfer, Amount: dec(t, "100"), FromAccount: "Cash", Account: "HDFC"})
			return err
		},
		func() error {
			_, err := eng.SetBalance(ctx, userID, domain.Intent{Kind: domain.KindBalanceAdjustment, Amount: dec(t, "5000"), Account: "HDFC"})
			return err
		},
		func() error {
			_, err := eng.UpdateLast(ctx, userID, domain.Intent{Kind: domain.KindExpense, Action: domain.ActionUpdate, Amount: dec(t, "300"), Account: "Cash"})
			return err
		},
		func() error {
			_, err := eng.DeleteLast(ctx, userID, domain.Intent{Kind: domain.KindExpense, Action: domain.ActionDelete, Account: "HDFC"})
			return err
		},
	}
	for i, op := range ops {
		if err := op(); err != nil {
			t.Fatalf("op %d failed: %v", i, err)
		}
	}

	assertBalanceInvariant(t, st, userID)
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name    string
		intent  domain.Intent
		wantSub string
	}{
		{
			name:    "unknown kind",
			intent:  domain.Unknown(),
			wantSub: "couldn't understand",
		},
		{
			name: "delete on missing account becomes a message",
			intent: domain.Intent{
				Kind: domain.KindExpense, Action: domain.ActionDelete, Account: "Ghost",
			},
			wantSub: "don't have an account named Ghost",
		},
		{
			name: "self transfer becomes a message",
			intent: domain.Intent{
				Kind: domain.KindTransfer, Amount: decimal.NewFromInt(10),
				FromAccount: "cash", Account: "Cash",
			},
			wantSub: "two different accounts",
		},
		{
			name: "record routes by kind and action",
			intent: domain.Intent{
				Kind: domain.KindIncome, Action: domain.ActionCreate,
				Amount: decimal.NewFromInt(500),
			},
			wantSub: "Income of ₹500.00 recorded in Cash",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _, userID := newTestEngine(t)
			res := eng.Dispatch(context.Background(), userID, tt.intent)
			if !strings.Contains(res.Message, tt.wantSub) {
				t.Errorf("Dispatch message = %q, want substring %q", res.Message, tt.wantSub)
			}
		})
	}
}

// slowReadStore widens the window between the read and the write of a
// read-modify-write operation, so an unserialized interleaving would be
// caught reliably instead of by luck.
type slowReadStore struct {
	*memory.Store
	delay time.Duration
}

func (s *slowReadStore) MostRecentTransaction(ctx context.Context, accountID int64) (*domain.Transaction, error) {
	tx, err := s.Store.MostRecentTransaction(ctx, accountID)
	time.Sleep(s.delay)
	return tx, err
}

func (s *slowReadStore) FindAccount(ctx context.Context, userID int64, name string) (*domain.Account, error) {
	acc, err := s.Store.FindAccount(ctx, userID, name)
	time.Sleep(s.delay)
	return acc, err
}

func newSlowEngine(t *testing.T) (*Engine, *memory.Store, int64) {
	t.Helper()
	st := memory.New()
	user, err := st.CreateUser(context.Background(), "42", "Asha")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	eng := New(&slowReadStore{Store: st, delay: 10 * time.Millisecond}, time.UTC, zerolog.Nop())
	eng.clock = func() time.Time { return testNow }
	return eng, st, user.ID
}

func assertBalanceInvariant(t *testing.T, st *memory.Store, userID int64) {
	t.Helper()
	ctx := context.Background()
	accounts, err := st.ListAccounts(ctx, userID)
	if err != nil {
		t.Fatalf("ListAccounts failed: %v", err)
	}
	wide := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, acc := range accounts {
		txs, err := st.TransactionsInRange(ctx, acc.ID, wide, testNow.Add(24*time.Hour), store.Ascending)
		if err != nil {
			t.Fatalf("TransactionsInRange failed: %v", err)
		}
		sum := decimal.Zero
		for _, tx := range txs {
			sum = sum.Add(tx.SignedAmount())
		}
		if !acc.Balance.Equal(sum) {
			t.Errorf("%s: balance %s != transaction sum %s", acc.Name, acc.Balance, sum)
		}
	}
}

func TestConcurrentUpdateLastSerialized(t *testing.T) {
	eng, st, userID := newSlowEngine(t)
	ctx := context.Background()

	if _, err := eng.Record(ctx, userID, recordIntent(domain.KindExpense, "Cash", "300", "")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Two edits of the same transaction race: each reverses the old
	// effect and applies its own. Interleaved reads would commit a delta
	// computed against a row the other edit already changed.
	var wg sync.WaitGroup
	for _, amount := range []decimal.Decimal{dec(t, "500"), dec(t, "100")} {
		wg.Add(1)
		go func(amount decimal.Decimal) {
			defer wg.Done()
			_, err := eng.UpdateLast(ctx, userID, domain.Intent{
				Kind:   domain.KindExpense,
				Action: domain.ActionUpdate,
				Amount: amount,
			})
			if err != nil {
				t.Errorf("UpdateLast(%s) failed: %v", amount, err)
			}
		}(amount)
	}
	wg.Wait()

	assertBalanceInvariant(t, st, userID)

	// Still exactly one transaction, holding whichever edit ran last.
	acc, _ := st.FindAccount(ctx, userID, "Cash")
	txs, err := st.RecentTransactions(ctx, acc.ID, 10)
	if err != nil {
		t.Fatalf("RecentTransactions failed: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if !txs[0].Amount.Equal(dec(t, "500")) && !txs[0].Amount.Equal(dec(t, "100")) {
		t.Errorf("amount = %s, want 500 or 100", txs[0].Amount)
	}
}

func TestConcurrentSetBalanceConverges(t *testing.T) {
	eng, st, userID := newSlowEngine(t)
	ctx := context.Background()

	if _, err := eng.Record(ctx, userID, recordIntent(domain.KindIncome, "Cash", "250", "")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	// Each target's diff must be computed against the balance the other
	// correction left behind, not against a stale read.
	var wg sync.WaitGroup
	for _, target := range []decimal.Decimal{dec(t, "1000"), dec(t, "2000")} {
		wg.Add(1)
		go func(target decimal.Decimal) {
			defer wg.Done()
			_, err := eng.SetBalance(ctx, userID, domain.Intent{
				Kind:   domain.KindBalanceAdjustment,
				Amount: target,
			})
			if err != nil {
				t.Errorf("SetBalance(%s) failed: %v", target, err)
			}
		}(target)
	}
	wg.Wait()

	assertBalanceInvariant(t, st, userID)

	acc, _ := st.FindAccount(ctx, userID, "Cash")
	if !acc.Balance.Equal(dec(t, "1000")) && !acc.Balance.Equal(dec(t, "2000")) {
		t.Errorf("balance = %s, want one of the targets", acc.Balance)
	}
}

func TestConcurrentMixedOperationsKeepInvariant(t *testing.T) {
	eng, st, userID := newSlowEngine(t)
	ctx := context.Background()

	if _, err := eng.Record(ctx, userID, recordIntent(domain.KindIncome, "Cash", "1000", "")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	ops := []domain.Intent{
		recordIntent(domain.KindExpense, "Cash", "75", "rent"),
		recordIntent(domain.KindIncome, "Cash", "40", ""),
		{Kind: domain.KindBalanceAdjustment, Amount: dec(t, "500")},
		{Kind: domain.KindExpense, Action: domain.ActionUpdate, Amount: dec(t, "60")},
		{Kind: domain.KindExpense, Action: domain.ActionDelete},
		{Kind: domain.KindTransfer, Amount: dec(t, "25"), FromAccount: "Cash", Account: "HDFC"},
	}

	var wg sync.WaitGroup
	for _, in := range ops {
		wg.Add(1)
		go func(in domain.Intent) {
			defer wg.Done()
			eng.Dispatch(ctx, userID, in)
		}(in)
	}
	wg.Wait()

	assertBalanceInvariant(t, st, userID)
}

func TestAccountNameMatchingIsCaseInsensitive(t *testing.T) {
	eng, st, userID := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.Record(ctx, userID, recordIntent(domain.KindIncome, "HDFC", "100", "")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if _, err := eng.Record(ctx, userID, recordIntent(domain.KindIncome, "hdfc", "50", "")); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	accounts, _ := st.ListAccounts(ctx, userID)
	if len(accounts) != 1 {
		t.Fatalf("expected one account, got %d", len(accounts))
	}
	if !accounts[0].Balance.Equal(dec(t, "150")) {
		t.Errorf("balance = %s, want 150", accounts[0].Balance)
	}
}
