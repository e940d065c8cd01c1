package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntentKind is the discriminator tag of an Intent. It mirrors the schema the
// extractor is prompted to produce.
type IntentKind string

const (
	KindIncome            IntentKind = "income"
	KindExpense           IntentKind = "expense"
	KindTransfer          IntentKind = "transfer"
	KindBalance           IntentKind = "balance"
	KindBalanceAdjustment IntentKind = "balance_adjustment"
	KindTransaction       IntentKind = "transaction"
	KindUnknown           IntentKind = "unknown"
)

// Valid reports whether k is one of the known intent kinds.
func (k IntentKind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindTransfer, KindBalance,
		KindBalanceAdjustment, KindTransaction, KindUnknown:
		return true
	}
	return false
}

// IntentAction refines an intent kind: record a new entry, modify or remove
// the most recent one, or read state.
type IntentAction string

const (
	ActionCreate IntentAction = "create"
	ActionUpdate IntentAction = "update"
	ActionDelete IntentAction = "delete"
	ActionRead   IntentAction = "read"
)

// Valid reports whether a is one of the known intent actions.
func (a IntentAction) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionRead:
		return true
	}
	return false
}

// Intent is a structured financial request inferred from one chat message.
// It is validated at the extractor boundary: a malformed extractor response
// becomes Intent{Kind: KindUnknown} rather than a half-filled record.
type Intent struct {
	Kind        IntentKind
	Action      IntentAction
	Amount      decimal.Decimal
	Account     string
	Description string
	Date        *time.Time // nil means "now" in the user's timezone
	FromAccount string     // transfers only
	Limit       int        // history requests; 0 means default
}

// Unknown is the intent returned when extraction fails or produces something
// the engine cannot act on.
func Unknown() Intent {
	return Intent{Kind: KindUnknown, Action: ActionCreate}
}
