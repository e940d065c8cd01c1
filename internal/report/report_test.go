package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
	"github.com/aruniyer/ledger-bot/internal/store/memory"
)

var reportNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func newTestBuilder(t *testing.T) (*Builder, *memory.Store, int64) {
	t.Helper()
	st := memory.New()
	user, err := st.CreateUser(context.Background(), "7", "Asha")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	b := NewBuilder(st, time.UTC)
	b.clock = func() time.Time { return reportNow }
	return b, st, user.ID
}

func addTx(t *testing.T, st *memory.Store, accountID int64, amount string, txType domain.TransactionType, desc string, date time.Time) {
	t.Helper()
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("bad amount %q: %v", amount, err)
	}
	tx := &domain.Transaction{
		AccountID:   accountID,
		Amount:      amt,
		Type:        txType,
		Description: desc,
		Date:        date,
	}
	if err := st.InsertTransaction(context.Background(), tx, tx.SignedAmount()); err != nil {
		t.Fatalf("InsertTransaction failed: %v", err)
	}
}

func day(d int) time.Time {
	return time.Date(2025, 6, d, 10, 0, 0, 0, time.UTC)
}

func TestBuildRunningBalanceAndTotals(t *testing.T) {
	b, st, userID := newTestBuilder(t)
	ctx := context.Background()

	acc, _ := st.CreateAccount(ctx, userID, "Cash", decimal.Zero)
	addTx(t, st, acc.ID, "1000", domain.Income, "Salary", day(1))
	addTx(t, st, acc.ID, "300", domain.Expense, "Groceries", day(2))
	addTx(t, st, acc.ID, "500", domain.Income, domain.CorrectionDescription, day(3))

	start, end := day(1), day(30)
	data, err := b.Build(ctx, userID, &start, &end)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(data.Sections) != 1 {
		t.Fatalf("got %d sections, want 1", len(data.Sections))
	}
	rows := data.Sections[0].Rows
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	// Running balance replays the window from zero.
	wantRunning := []string{"1000", "700", "1200"}
	for i, want := range wantRunning {
		if !rows[i].Running.Equal(decimal.RequireFromString(want)) {
			t.Errorf("rows[%d].Running = %s, want %s", i, rows[i].Running, want)
		}
	}

	// The correction entry moved the running balance but not the totals.
	if !data.TotalIncome.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("TotalIncome = %s, want 1000", data.TotalIncome)
	}
	if !data.TotalExpense.Equal(decimal.RequireFromString("300")) {
		t.Errorf("TotalExpense = %s, want 300", data.TotalExpense)
	}
}

func TestBuildDefaultRange(t *testing.T) {
	b, st, userID := newTestBuilder(t)
	ctx := context.Background()

	acc, _ := st.CreateAccount(ctx, userID, "Cash", decimal.Zero)
	addTx(t, st, acc.ID, "50", domain.Expense, "too old", reportNow.Add(-40*24*time.Hour))
	addTx(t, st, acc.ID, "75", domain.Expense, "in window", reportNow.Add(-5*24*time.Hour))

	data, err := b.Build(ctx, userID, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if !data.End.Equal(reportNow) {
		t.Errorf("End = %v, want clock time %v", data.End, reportNow)
	}
	if !data.Start.Equal(reportNow.Add(-DefaultRange)) {
		t.Errorf("Start = %v, want 30 days before now", data.Start)
	}
	if len(data.Combined) != 1 || data.Combined[0].Description != "in window" {
		t.Errorf("default window included wrong rows: %+v", data.Combined)
	}
}

func TestBuildCombinedAcrossAccounts(t *testing.T) {
	b, st, userID := newTestBuilder(t)
	ctx := context.Background()

	cash, _ := st.CreateAccount(ctx, userID, "Cash", decimal.Zero)
	hdfc, _ := st.CreateAccount(ctx, userID, "HDFC", decimal.Zero)
	addTx(t, st, cash.ID, "10", domain.Expense, "cash day 2", day(2))
	addTx(t, st, hdfc.ID, "20", domain.Expense, "hdfc day 1", day(1))
	addTx(t, st, cash.ID, "30", domain.Income, "cash day 3", day(3))

	start, end := day(1), day(30)
	data, err := b.Build(ctx, userID, &start, &end)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(data.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(data.Sections))
	}
	want := []string{"hdfc day 1", "cash day 2", "cash day 3"}
	if len(data.Combined) != len(want) {
		t.Fatalf("combined has %d rows, want %d", len(data.Combined), len(want))
	}
	for i, desc := range want {
		if data.Combined[i].Description != desc {
			t.Errorf("Combined[%d] = %q, want %q", i, data.Combined[i].Description, desc)
		}
	}
}

func TestBuildSkipsEmptyAccounts(t *testing.T) {
	b, st, userID := newTestBuilder(t)
	ctx := context.Background()

	if _, err := st.CreateAccount(ctx, userID, "Dormant", decimal.Zero); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	data, err := b.Build(ctx, userID, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(data.Sections) != 0 {
		t.Errorf("empty account produced a section")
	}
}

func TestRenderHTML(t *testing.T) {
	b, st, userID := newTestBuilder(t)
	ctx := context.Background()

	acc, _ := st.CreateAccount(ctx, userID, "Cash", decimal.Zero)
	addTx(t, st, acc.ID, "1000", domain.Income, "Salary", day(1))
	addTx(t, st, acc.ID, "300.50", domain.Expense, "Groceries & veg", day(2))

	start, end := day(1), day(30)
	data, err := b.Build(ctx, userID, &start, &end)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out, err := RenderHTML(data)
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		"Expense Report",
		"Total Expense: ₹300.50",
		"Total Income: ₹1000.00",
		"<h2>Cash</h2>",
		"All Accounts Combined",
		"Groceries &amp; veg", // template escaping
		"2025-06-01",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}
