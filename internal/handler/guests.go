package handler

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"sms-planner/internal/compose"
	"sms-planner/internal/models"
	"sms-planner/internal/parser"
	"sms-planner/internal/storage"
)

var (
	reContactPicks = regexp.MustCompile(`(?i)^\d{1,3}(?:\s*(?:,|&|\s|and)\s*\d{1,3})*$`)
	reRemove       = regexp.MustCompile(`(?i)^(?:remove|delete)\s+(\d{1,3}(?:\s*(?:,|&|\s|and)\s*\d{1,3})*)$`)
	reNumbers      = regexp.MustCompile(`\d+`)
)

// collectGuests serves both collecting_guests and the adding_guest detour.
func (h *Handler) collectGuests(ctx context.Context, q Store, req Request) (Result, error) {
	ev, text := req.Event, req.Text

	if isCommand(text, "done", "finished", "that's it", "thats it") {
		return h.doneAddingGuests(ctx, q, req)
	}

	contacts, err := q.ListContacts(ctx, req.Planner.ID)
	if err != nil {
		return Result{}, err
	}

	if m := reRemove.FindStringSubmatch(text); m != nil {
		return h.removeContacts(ctx, q, req.Planner, contacts, m[1])
	}

	var entries []parser.GuestEntry
	if reContactPicks.MatchString(text) {
		if len(contacts) == 0 {
			return errorReply(compose.NoContacts), nil
		}
		for _, n := range menuNumbers(text) {
			if n < 1 || n > len(contacts) {
				return errorReply(compose.PickNumber(len(contacts)) + "\n\n" + compose.ContactMenu(contacts)), nil
			}
			c := contacts[n-1]
			entries = append(entries, parser.GuestEntry{Name: c.Name, Phone: c.Phone})
		}
	} else {
		entries, err = h.parser.Guests(ctx, text)
		if err != nil {
			if f, ok := parser.AsFailure(err); ok {
				return errorReply(guestGuidance(f)), nil
			}
			return Result{}, err
		}
	}

	for _, e := range entries {
		if e.Phone == req.Planner.Phone {
			return errorReply(compose.NoSelf), nil
		}
	}

	var (
		added      []models.Guest
		duplicates []string
	)
	for _, e := range entries {
		g, err := q.AddGuest(ctx, ev.ID, e.Name, e.Phone)
		if errors.Is(err, storage.ErrDuplicateGuest) {
			duplicates = append(duplicates, e.Name)
			continue
		}
		if err != nil {
			return Result{}, err
		}
		if err := q.UpsertContact(ctx, req.Planner.ID, e.Name, e.Phone); err != nil {
			return Result{}, err
		}
		if err := q.DeleteStaleResponseStates(ctx, e.Phone, ev.ID); err != nil {
			return Result{}, err
		}
		added = append(added, *g)
	}

	res := reply(compose.GuestsAdded(added, duplicates))
	if len(added) == 0 {
		res.Kind = KindError
		return res, nil
	}

	// Guests added after requests went out get their own request; picks
	// made from the old responses no longer hold.
	if ev.CurrentStage == models.StageAddingGuest && ev.PreviousStage.AvailabilityRequested() {
		all, err := q.ListGuests(ctx, ev.ID)
		if err != nil {
			return Result{}, err
		}
		names := make([]string, 0, len(added))
		for _, g := range added {
			out, err := h.requestAvailability(ctx, q, req.Planner, ev, g, all)
			if err != nil {
				return Result{}, err
			}
			res.Outbound = append(res.Outbound, out)
			names = append(names, g.Name)
		}
		if ev.PreviousStage.PastAvailability() {
			ev.ClearSelections()
			ev.PreviousStage = models.StageCollectingAvailability
		}
		res.Reply = compose.GuestsAdded(added, duplicates) + "\n\n" + compose.AvailabilityRequested(names)
	}
	return res, nil
}

// doneAddingGuests leaves the guest stage: forward to dates for a new
// event, or back to wherever the detour started.
func (h *Handler) doneAddingGuests(ctx context.Context, q Store, req Request) (Result, error) {
	ev := req.Event
	guests, err := q.ListGuests(ctx, ev.ID)
	if err != nil {
		return Result{}, err
	}
	if len(guests) == 0 {
		return errorReply(compose.NeedGuests), nil
	}

	if ev.CurrentStage == models.StageCollectingGuests {
		if len(ev.ProposedDates) > 0 {
			return transition(models.StageAwaitingConfirmation, compose.ConfirmationMenu(guests, ev.ProposedDates)), nil
		}
		return transition(models.StageCollectingDates, compose.AskDates), nil
	}

	next := ev.PreviousStage
	switch {
	case next == "":
		next = models.StageCollectingDates
		if len(ev.ProposedDates) > 0 {
			next = models.StageAwaitingConfirmation
		}
	case next == models.StageAddingGuest || next == models.StageCollectingGuests:
		next = models.StageCollectingDates
	}
	ev.PreviousStage = ""

	text, err := h.prompt(ctx, q, req.Planner, ev, next)
	if err != nil {
		return Result{}, err
	}
	return transition(next, text), nil
}

func (h *Handler) removeContacts(ctx context.Context, q Store, planner *models.Planner, contacts []models.Contact, list string) (Result, error) {
	if len(contacts) == 0 {
		return errorReply(compose.NoContacts), nil
	}
	seen := make(map[int]bool)
	var names []string
	for _, n := range menuNumbers(list) {
		if n < 1 || n > len(contacts) {
			return errorReply(compose.PickNumber(len(contacts)) + "\n\n" + compose.ContactMenu(contacts)), nil
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		c := contacts[n-1]
		if err := q.DeleteContact(ctx, planner.ID, c.ID); err != nil {
			return Result{}, err
		}
		names = append(names, c.Name)
	}

	left, err := q.ListContacts(ctx, planner.ID)
	if err != nil {
		return Result{}, err
	}
	return reply(compose.ContactsRemoved(names, left)), nil
}

// requestAvailability opens an awaiting_availability state for g and
// builds the request SMS.
func (h *Handler) requestAvailability(ctx context.Context, q Store, planner *models.Planner, ev *models.Event, g models.Guest, all []models.Guest) (Outbound, error) {
	err := q.PutResponseState(ctx, models.GuestResponseState{
		Phone:   g.Phone,
		EventID: ev.ID,
		Kind:    models.AwaitingAvailability,
	})
	if err != nil {
		return Outbound{}, err
	}
	return Outbound{To: g.Phone, Body: compose.AvailabilityRequest(g, planner.Name, all, ev.ProposedDates)}, nil
}

func guestGuidance(f *parser.Failure) string {
	switch f.Reason {
	case parser.ReasonNeedsPhone:
		return compose.GuestsNeedPhone
	case parser.ReasonNeedsName:
		return compose.GuestsNeedName(f.Detail)
	}
	return compose.GuestsUnreadable
}

func menuNumbers(s string) []int {
	var out []int
	for _, m := range reNumbers.FindAllString(s, -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// isCommand reports whether text, ignoring case and trailing punctuation,
// is one of words.
func isCommand(text string, words ...string) bool {
	t := strings.ToLower(strings.TrimRight(strings.TrimSpace(text), ".!?"))
	for _, w := range words {
		if t == w {
			return true
		}
	}
	return false
}
