package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aruniyer/ledger-bot/internal/domain"
	"github.com/aruniyer/ledger-bot/internal/engine"
	"github.com/aruniyer/ledger-bot/internal/logger"
	"github.com/aruniyer/ledger-bot/internal/nlp"
	"github.com/aruniyer/ledger-bot/internal/report"
	"github.com/aruniyer/ledger-bot/internal/store"
)

// Sender is the outbound side of the transport. *Client satisfies it; tests
// substitute a recorder.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, filename string, content []byte, caption string) error
}

// Webhook handles inbound Telegram updates. One update is one unit of work:
// resolve the user, extract the intent, run it through the engine, reply.
// Every update that carries a text message gets exactly one reply.
type Webhook struct {
	store     store.Store
	extractor nlp.Extractor
	engine    *engine.Engine
	reports   *report.Builder
	sender    Sender
	log       zerolog.Logger
}

// NewWebhook wires the webhook handler.
func NewWebhook(st store.Store, ex nlp.Extractor, eng *engine.Engine, rb *report.Builder, sender Sender, log zerolog.Logger) *Webhook {
	return &Webhook{
		store:     st,
		extractor: ex,
		engine:    eng,
		reports:   rb,
		sender:    sender,
		log:       log,
	}
}

// Handle is the POST /webhook endpoint. Telegram redelivers any update that
// is not answered with 200, so every request is acknowledged, including
// undecodable ones; failures are logged and answered in-chat instead.
func (h *Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	log := h.logFor(r.Context())

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		// A payload that can never decode must still be acknowledged
		// or Telegram will redeliver it forever.
		log.Warn().Err(err).Msg("undecodable webhook payload")
		writeOK(w)
		return
	}

	msg := update.incoming()
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		log.Debug().Int64("update_id", update.UpdateID).Msg("ignoring update without text")
		writeOK(w)
		return
	}

	reply := h.process(r.Context(), msg)
	if reply != "" {
		if err := h.sender.SendMessage(r.Context(), msg.Chat.ID, reply); err != nil {
			log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to send reply")
		}
	}
	writeOK(w)
}

// logFor prefers the request-scoped logger the middleware stored in the
// context, so webhook lines carry the request id of the HTTP line.
func (h *Webhook) logFor(ctx context.Context) zerolog.Logger {
	if log, ok := logger.FromContext(ctx); ok {
		return log
	}
	return h.log
}

// process runs one message through identity resolution and the engine,
// returning the reply text. An empty return means the reply was already
// delivered (reports send a document instead of text).
func (h *Webhook) process(ctx context.Context, msg *Message) string {
	log := h.logFor(ctx)
	externalID := strconv.FormatInt(msg.From.ID, 10)
	name := msg.From.FirstName
	if name == "" {
		name = "User"
	}

	user, err := h.store.FindUser(ctx, externalID)
	if errors.Is(err, domain.ErrUserNotFound) {
		if user, err = h.store.CreateUser(ctx, externalID, name); err == nil {
			log.Info().Str("external_id", externalID).Msg("registered new user")
		}
	}
	if err != nil {
		log.Error().Err(err).Str("external_id", externalID).Msg("identity resolution failed")
		return "Something went wrong. Please try again."
	}

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start":
		return fmt.Sprintf("Welcome, %s! Tell me things like \"spent 500 on groceries\" or \"got 1000 salary in HDFC\" and I'll keep your ledger.", user.Name)
	case strings.HasPrefix(text, "/report"), strings.HasPrefix(text, "/export"):
		return h.processReport(ctx, user, msg.Chat.ID, text)
	}

	intent, err := h.extractor.Parse(ctx, text)
	if err != nil {
		// Parse degrades to KindUnknown; record why and carry on.
		log.Warn().Err(err).Str("external_id", externalID).Msg("intent extraction failed")
	}
	log.Info().
		Str("external_id", externalID).
		Str("kind", string(intent.Kind)).
		Str("action", string(intent.Action)).
		Msg("dispatching intent")

	return h.engine.Dispatch(ctx, user.ID, intent).Message
}

// processReport builds and sends the report document. The returned string is
// only non-empty when something failed and a text reply is needed instead.
func (h *Webhook) processReport(ctx context.Context, user *domain.User, chatID int64, text string) string {
	log := h.logFor(ctx)

	start, end, err := h.extractor.ParseTimeRange(ctx, text)
	if err != nil {
		// Fall back to the default window rather than refusing.
		log.Warn().Err(err).Msg("time range extraction failed, using default range")
		start, end = nil, nil
	}

	data, err := h.reports.Build(ctx, user.ID, start, end)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("report build failed")
		return "Couldn't build your report right now. Please try again."
	}
	doc, err := report.RenderHTML(data)
	if err != nil {
		log.Error().Err(err).Msg("report render failed")
		return "Couldn't build your report right now. Please try again."
	}

	filename := fmt.Sprintf("expense-report-%s.html", uuid.NewString()[:8])
	caption := fmt.Sprintf("Expense report %s to %s",
		data.Start.Format("02 Jan 2006"), data.End.Format("02 Jan 2006"))
	if err := h.sender.SendDocument(ctx, chatID, filename, doc, caption); err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send report")
		return "Couldn't deliver your report. Please try again."
	}
	return ""
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
