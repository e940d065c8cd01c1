// Package report builds read-only range views over a user's ledger for the
// report renderer. It performs no writes and is safe to call concurrently.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
	"github.com/aruniyer/ledger-bot/internal/store"
)

// DefaultRange is the report window when no bounds are given: the last 30
// days ending now.
const DefaultRange = 30 * 24 * time.Hour

// Row is one report line: a transaction with the account it belongs to and
// the running balance at that point of the replay.
type Row struct {
	Account     string
	Date        time.Time
	Type        domain.TransactionType
	Amount      decimal.Decimal
	Running     decimal.Decimal
	Description string
}

// AccountSection is one account's in-range transactions in ascending date
// order. Running balances replay the rows from zero; they are a display
// artifact of the window, not the account's live balance.
type AccountSection struct {
	Account string
	Rows    []Row
}

// Data is a fully assembled report.
type Data struct {
	Start, End   time.Time
	Sections     []AccountSection
	Combined     []Row // all accounts merged, ascending by date
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
}

// Builder resolves report queries against the ledger store.
type Builder struct {
	store store.Store
	loc   *time.Location
	clock func() time.Time
}

// NewBuilder creates a report builder. loc decides what "now" and the default
// window mean for the user.
func NewBuilder(st store.Store, loc *time.Location) *Builder {
	return &Builder{store: st, loc: loc, clock: time.Now}
}

// Build assembles the report for one user. Nil bounds fall back to the last
// 30 days ending now; both bounds are inclusive.
func (b *Builder) Build(ctx context.Context, userID int64, start, end *time.Time) (*Data, error) {
	rangeEnd := b.clock().In(b.loc)
	if end != nil {
		rangeEnd = *end
	}
	rangeStart := rangeEnd.Add(-DefaultRange)
	if start != nil {
		rangeStart = *start
	}

	accounts, err := b.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("report.Build: %w", err)
	}

	data := &Data{
		Start:        rangeStart,
		End:          rangeEnd,
		TotalIncome:  decimal.Zero,
		TotalExpense: decimal.Zero,
	}

	for _, acc := range accounts {
		txs, err := b.store.TransactionsInRange(ctx, acc.ID, rangeStart, rangeEnd, store.Ascending)
		if err != nil {
			return nil, fmt.Errorf("report.Build: account %s: %w", acc.Name, err)
		}
		if len(txs) == 0 {
			continue
		}

		section := AccountSection{Account: acc.Name}
		running := decimal.Zero
		for _, tx := range txs {
			running = running.Add(tx.SignedAmount())
			row := Row{
				Account:     acc.Name,
				Date:        tx.Date.In(b.loc),
				Type:        tx.Type,
				Amount:      tx.Amount,
				Running:     running,
				Description: tx.Description,
			}
			section.Rows = append(section.Rows, row)
			data.Combined = append(data.Combined, row)

			// Correction entries move balances but are not real
			// income or spending, so they stay out of the totals.
			if strings.EqualFold(tx.Description, domain.CorrectionDescription) {
				continue
			}
			if tx.Type == domain.Income {
				data.TotalIncome = data.TotalIncome.Add(tx.Amount)
			} else {
				data.TotalExpense = data.TotalExpense.Add(tx.Amount)
			}
		}
		data.Sections = append(data.Sections, section)
	}

	sort.SliceStable(data.Combined, func(i, j int) bool {
		return data.Combined[i].Date.Before(data.Combined[j].Date)
	})
	return data, nil
}
