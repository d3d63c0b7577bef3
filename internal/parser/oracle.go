package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sms-planner/internal/models"
	"sms-planner/internal/phone"
)

const guestSystemPrompt = `You extract party guests from a text message.
Reply with JSON only: {"guests":[{"name":"...","phone":"..."}]}.
Every guest must have a phone number copied from the message. Never invent numbers.
If a name has no number, leave the phone empty.`

const dateSystemPrompt = `You extract calendar dates from a text message.
Reply with JSON only: {"dates":["YYYY-MM-DD", ...]}.
Resolve relative expressions against today's date. Return an empty list if unsure.`

var errNoJSON = errors.New("oracle reply has no JSON object")

func (p *Parser) oracleGuests(ctx context.Context, text string) ([]GuestEntry, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	reply, err := p.oracle.Complete(ctx, guestSystemPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("failed to query oracle: %w", err)
	}

	var payload struct {
		Guests []GuestEntry `json:"guests"`
	}
	if err := decodeReply(reply, &payload); err != nil {
		return nil, err
	}

	out := make([]GuestEntry, 0, len(payload.Guests))
	for _, g := range payload.Guests {
		e, ok := entry(g.Name, g.Phone)
		if !ok {
			return nil, fail(KindGuests, ReasonNeedsPhone, g.Name)
		}
		if e.Name == "" {
			return nil, fail(KindGuests, ReasonNeedsName, e.Phone)
		}
		// The number must actually appear in the message.
		if !strings.Contains(phone.Digits(text), e.Phone) {
			return nil, fail(KindGuests, ReasonNeedsPhone, g.Name)
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, fail(KindGuests, ReasonNeedsPhone, text)
	}
	return out, nil
}

func (p *Parser) oracleDates(ctx context.Context, text string, pctx Context) ([]time.Time, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	today := models.DateOf(pctx.today())
	prompt := fmt.Sprintf("Today is %s (%s).\nMessage: %s", today.Format(models.DateLayout), today.Weekday(), text)
	reply, err := p.oracle.Complete(ctx, dateSystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to query oracle: %w", err)
	}

	var payload struct {
		Dates []string `json:"dates"`
	}
	if err := decodeReply(reply, &payload); err != nil {
		return nil, err
	}

	seen := make(map[time.Time]bool)
	var out []time.Time
	for _, s := range payload.Dates {
		d, err := models.ParseDate(s)
		if err != nil {
			return nil, fail(KindDates, ReasonUnrecognized, s)
		}
		if d.Before(today) || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fail(KindDates, ReasonAmbiguous, text)
	}
	if len(out) > maxProposedDates {
		return nil, fail(KindDates, ReasonAmbiguous, text)
	}
	sortDates(out)
	return out, nil
}

// decodeReply pulls the first JSON object out of a chat reply, which may be
// wrapped in prose or a code fence.
func decodeReply(reply string, v any) error {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return errNoJSON
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to decode oracle reply: %w", err)
	}
	return nil
}

func sortDates(ds []time.Time) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Before(ds[j]) })
}
