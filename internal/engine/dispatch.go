package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/aruniyer/ledger-bot/internal/domain"
)

// Reply used when the extractor could not make sense of the message.
const unknownReply = "Sorry, I couldn't understand that."

// Dispatch routes an intent to the matching ledger operation and always
// produces a reply: typed failures become user-facing messages here, and
// storage failures become a generic apology. Nothing below this function
// leaks raw errors to the transport layer.
func (e *Engine) Dispatch(ctx context.Context, userID int64, in domain.Intent) Result {
	res, err := e.dispatch(ctx, userID, in)
	if err == nil {
		return res
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		return Result{
			Message: fmt.Sprintf("You don't have an account named %s.", accountName(in.Account)),
			Effect:  Effect{Operation: OpNone, Account: accountName(in.Account)},
		}
	case errors.Is(err, domain.ErrSelfTransfer):
		return Result{
			Message: "A transfer needs two different accounts.",
			Effect:  Effect{Operation: OpNone},
		}
	default:
		e.log.Error().
			Err(err).
			Int64("user_id", userID).
			Str("kind", string(in.Kind)).
			Str("action", string(in.Action)).
			Msg("ledger operation failed")
		return Result{
			Message: "Something went wrong while updating your ledger. Please try again.",
			Effect:  Effect{Operation: OpNone},
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, userID int64, in domain.Intent) (Result, error) {
	switch {
	case (in.Kind == domain.KindIncome || in.Kind == domain.KindExpense) && in.Action == domain.ActionCreate:
		return e.Record(ctx, userID, in)
	case (in.Kind == domain.KindIncome || in.Kind == domain.KindExpense) && in.Action == domain.ActionUpdate:
		return e.UpdateLast(ctx, userID, in)
	case (in.Kind == domain.KindIncome || in.Kind == domain.KindExpense) && in.Action == domain.ActionDelete:
		return e.DeleteLast(ctx, userID, in)
	case in.Kind == domain.KindBalance:
		return e.ReadBalance(ctx, userID, in)
	case in.Kind == domain.KindBalanceAdjustment:
		return e.SetBalance(ctx, userID, in)
	case in.Kind == domain.KindTransfer:
		return e.Transfer(ctx, userID, in)
	case in.Kind == domain.KindTransaction:
		return e.ReadRecent(ctx, userID, in)
	default:
		return Result{Message: unknownReply, Effect: Effect{Operation: OpNone}}, nil
	}
}
