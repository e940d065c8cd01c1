package nlp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aruniyer/ledger-bot/internal/domain"
)

// intentPayload is the wire shape the model is prompted to produce.
type intentPayload struct {
	Type        string  `json:"type"`
	Action      string  `json:"action"`
	Amount      float64 `json:"amount"`
	Account     string  `json:"account"`
	Description string  `json:"description"`
	Date        *string `json:"date"`
	FromAccount *string `json:"from_account"`
	Limit       *int    `json:"limit"`
}

// decodeIntent validates the model output and converts it into a domain
// intent. Anything malformed - bad JSON, an unlisted type or action, a
// negative amount - is rejected here so the engine only ever sees either a
// well-formed intent or KindUnknown.
func decodeIntent(raw string, loc *time.Location) (domain.Intent, error) {
	var p intentPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Unknown(), fmt.Errorf("unmarshal intent: %w", err)
	}

	kind := domain.IntentKind(strings.ToLower(strings.TrimSpace(p.Type)))
	if !kind.Valid() {
		return domain.Unknown(), fmt.Errorf("unknown intent type %q", p.Type)
	}
	action := domain.IntentAction(strings.ToLower(strings.TrimSpace(p.Action)))
	if action == "" {
		action = domain.ActionCreate
	}
	if !action.Valid() {
		return domain.Unknown(), fmt.Errorf("unknown intent action %q", p.Action)
	}
	if p.Amount < 0 {
		return domain.Unknown(), fmt.Errorf("negative amount %v", p.Amount)
	}

	intent := domain.Intent{
		Kind:        kind,
		Action:      action,
		Amount:      decimal.NewFromFloat(p.Amount),
		Account:     strings.TrimSpace(p.Account),
		Description: strings.TrimSpace(p.Description),
	}
	if p.FromAccount != nil {
		intent.FromAccount = strings.TrimSpace(*p.FromAccount)
	}
	if p.Limit != nil && *p.Limit > 0 {
		intent.Limit = *p.Limit
	}
	if p.Date != nil && strings.TrimSpace(*p.Date) != "" {
		d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(*p.Date), loc)
		if err != nil {
			return domain.Unknown(), fmt.Errorf("bad date %q: %w", *p.Date, err)
		}
		intent.Date = &d
	}
	return intent, nil
}

type timeRangePayload struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// decodeTimeRange parses the model's report-range answer. The end bound is
// pushed to the last instant of its day so inclusive range queries cover the
// whole day.
func decodeTimeRange(raw string, loc *time.Location) (*time.Time, *time.Time, error) {
	var p timeRangePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, nil, fmt.Errorf("unmarshal time range: %w", err)
	}

	parse := func(s *string) (*time.Time, error) {
		if s == nil || strings.TrimSpace(*s) == "" {
			return nil, nil
		}
		d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(*s), loc)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", *s, err)
		}
		return &d, nil
	}

	start, err := parse(p.Start)
	if err != nil {
		return nil, nil, err
	}
	end, err := parse(p.End)
	if err != nil {
		return nil, nil, err
	}
	if end != nil {
		e := end.Add(24*time.Hour - time.Nanosecond)
		end = &e
	}
	return start, end, nil
}

// cleanModelJSON strips Markdown fences and stray text the model sometimes
// wraps around its JSON despite instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// If junk still surrounds the object, keep only the first '{' to the
	// last '}'.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
