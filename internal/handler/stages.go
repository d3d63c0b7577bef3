package handler

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"sms-planner/internal/compose"
	"sms-planner/internal/models"
	"sms-planner/internal/overlap"
	"sms-planner/internal/parser"
	"sms-planner/internal/venue"
)

// maxMenu caps candidate menus at single-digit picks.
const maxMenu = 9

var (
	reLiteralVenue = regexp.MustCompile(`(?i)^(?:at|@)\s+(.+)$`)
	reActivityIn   = regexp.MustCompile(`(?i)^(.+?)\s+(?:in|near|around)\s+(.+)$`)
	reEdit         = regexp.MustCompile(`(?i)^(?:edit|change)\s+(guests?|time|venue|activity)$`)
)

// CollectName stores the planner's name. The router opens the first event
// on the returned collecting_guests transition.
func (h *Handler) CollectName(ctx context.Context, q Store, planner *models.Planner, text string, created bool) (Result, error) {
	name := strings.Join(strings.Fields(text), " ")
	if created || name == "" {
		return reply(compose.AskName), nil
	}
	if err := q.SetPlannerName(ctx, planner.ID, name); err != nil {
		return Result{}, err
	}
	planner.Name = name

	contacts, err := q.ListContacts(ctx, planner.ID)
	if err != nil {
		return Result{}, err
	}
	return transition(models.StageCollectingGuests, compose.Welcome(name, contacts)), nil
}

func (h *Handler) collectDates(ctx context.Context, q Store, req Request) (Result, error) {
	dates, err := h.parser.Dates(ctx, req.Text, h.parseContext(req.Event))
	if err != nil {
		f, ok := parser.AsFailure(err)
		if !ok {
			return Result{}, err
		}
		if f.Reason == parser.ReasonAmbiguous {
			return errorReply(compose.DatesAmbiguous), nil
		}
		return errorReply(compose.DatesUnreadable), nil
	}

	req.Event.ProposedDates = dates
	guests, err := q.ListGuests(ctx, req.Event.ID)
	if err != nil {
		return Result{}, err
	}
	return transition(models.StageAwaitingConfirmation, compose.ConfirmationMenu(guests, dates)), nil
}

func (h *Handler) awaitConfirmation(ctx context.Context, q Store, req Request) (Result, error) {
	ev := req.Event
	switch req.Text {
	case "1":
		guests, err := q.ListGuests(ctx, ev.ID)
		if err != nil {
			return Result{}, err
		}
		if len(guests) == 0 {
			return errorReply(compose.NeedGuests), nil
		}
		res := transition(models.StageCollectingAvailability, compose.RequestsSent(len(guests)))
		for _, g := range guests {
			out, err := h.requestAvailability(ctx, q, req.Planner, ev, g, guests)
			if err != nil {
				return Result{}, err
			}
			res.Outbound = append(res.Outbound, out)
		}
		return res, nil
	case "2":
		return transition(models.StageCollectingDates, compose.AskDates), nil
	case "3":
		return h.detourToGuests(ctx, q, req)
	}

	text, err := h.prompt(ctx, q, req.Planner, ev, ev.CurrentStage)
	if err != nil {
		return Result{}, err
	}
	return errorReply(compose.PickNumber(3) + "\n\n" + text), nil
}

// detourToGuests enters adding_guest, remembering where to come back to.
func (h *Handler) detourToGuests(ctx context.Context, q Store, req Request) (Result, error) {
	contacts, err := q.ListContacts(ctx, req.Planner.ID)
	if err != nil {
		return Result{}, err
	}
	req.Event.PreviousStage = req.Event.CurrentStage
	return transition(models.StageAddingGuest, compose.AskGuests(contacts)), nil
}

func (h *Handler) collectAvailability(ctx context.Context, q Store, req Request) (Result, error) {
	ev := req.Event
	switch {
	case isCommand(req.Text, "status"):
		guests, err := q.ListGuests(ctx, ev.ID)
		if err != nil {
			return Result{}, err
		}
		return reply(compose.Status(guests)), nil
	case isCommand(req.Text, "remind"):
		guests, err := q.ListGuests(ctx, ev.ID)
		if err != nil {
			return Result{}, err
		}
		var (
			names []string
			out   []Outbound
		)
		for _, g := range guests {
			if g.AvailabilityProvided {
				continue
			}
			o, err := h.requestAvailability(ctx, q, req.Planner, ev, g, guests)
			if err != nil {
				return Result{}, err
			}
			out = append(out, o)
			names = append(names, g.Name)
		}
		res := reply(compose.RemindersSent(names))
		res.Outbound = out
		return res, nil
	case req.Text == "1":
		return h.presentCandidates(ctx, q, ev)
	case req.Text == "2":
		return h.detourToGuests(ctx, q, req)
	}
	return errorReply(compose.AvailabilityHelp), nil
}

// presentCandidates shows the strict menu once everyone has replied, and
// the partial menu while guests are pending or when nothing works for all.
func (h *Handler) presentCandidates(ctx context.Context, q Store, ev *models.Event) (Result, error) {
	guests, err := q.ListGuests(ctx, ev.ID)
	if err != nil {
		return Result{}, err
	}
	responded, pending := 0, 0
	for _, g := range guests {
		if g.AvailabilityProvided {
			responded++
		} else {
			pending++
		}
	}
	if responded == 0 {
		return errorReply(compose.NoResponsesYet(guests)), nil
	}

	intervals, err := q.ListAvailability(ctx, ev.ID)
	if err != nil {
		return Result{}, err
	}

	if pending == 0 {
		if strict := capMenu(overlap.Compute(guests, intervals, false)); len(strict) > 0 {
			return transition(models.StageSelectingTime, compose.CandidateMenu(strict, false, false)), nil
		}
	}
	partial := capMenu(overlap.Compute(guests, intervals, true))
	if len(partial) == 0 {
		return errorReply(compose.NoOverlap), nil
	}
	return transition(models.StageSelectingPartialTime, compose.CandidateMenu(partial, true, pending == 0)), nil
}

// menuFor recomputes the menu last shown for stage.
func (h *Handler) menuFor(ctx context.Context, q Store, ev *models.Event, stage models.Stage) ([]overlap.Candidate, bool, error) {
	guests, err := q.ListGuests(ctx, ev.ID)
	if err != nil {
		return nil, false, err
	}
	intervals, err := q.ListAvailability(ctx, ev.ID)
	if err != nil {
		return nil, false, err
	}

	partial := stage == models.StageSelectingPartialTime
	fallback := false
	if partial {
		fallback = true
		for _, g := range guests {
			if !g.AvailabilityProvided {
				fallback = false
				break
			}
		}
	}
	return capMenu(overlap.Compute(guests, intervals, partial)), fallback, nil
}

func capMenu(cands []overlap.Candidate) []overlap.Candidate {
	if len(cands) > maxMenu {
		return cands[:maxMenu]
	}
	return cands
}

func (h *Handler) selectTime(ctx context.Context, q Store, req Request) (Result, error) {
	ev := req.Event
	cands, fallback, err := h.menuFor(ctx, q, ev, ev.CurrentStage)
	if err != nil {
		return Result{}, err
	}
	if len(cands) == 0 {
		return transition(models.StageCollectingAvailability, compose.NoOverlap), nil
	}

	partial := ev.CurrentStage == models.StageSelectingPartialTime
	n, err := strconv.Atoi(req.Text)
	if err != nil || n < 1 || n > len(cands) {
		return errorReply(compose.PickNumber(len(cands)) + "\n\n" + compose.CandidateMenu(cands, partial, fallback)), nil
	}

	c := cands[n-1]
	ev.SelectedDate = c.Date
	ev.SelectedStart = c.Start
	ev.SelectedEnd = c.End
	ev.UserSetStartTime = false
	ev.StartTime = 0
	ev.SelectedGuests = nil
	if partial {
		ev.SelectedGuests = append([]string(nil), c.Guests...)
	}
	return transition(models.StageCollectingActivity, compose.AskActivity(c.Date, c.Start, c.End)), nil
}

func (h *Handler) collectActivity(ctx context.Context, q Store, req Request) (Result, error) {
	ev := req.Event
	if req.Text == "" {
		return errorReply(compose.AskActivity(ev.SelectedDate, ev.SelectedStart, ev.SelectedEnd)), nil
	}

	if m := reLiteralVenue.FindStringSubmatch(req.Text); m != nil {
		return h.literalVenue(ctx, q, ev, m[1])
	}

	activity, location := req.Text, h.config.DefaultLocation
	if m := reActivityIn.FindStringSubmatch(req.Text); m != nil {
		activity, location = m[1], m[2]
	}
	ev.Activity = strings.TrimSpace(activity)
	ev.Location = strings.TrimSpace(location)
	ev.VenueExclusions = nil
	ev.SelectedVenue = nil
	ev.VenueOptions = h.venues.Suggest(ctx, ev.Activity, ev.Location, nil)
	return transition(models.StageSelectingVenue, compose.VenueMenu(ev.Activity, ev.VenueOptions)), nil
}

func (h *Handler) selectVenue(ctx context.Context, q Store, req Request) (Result, error) {
	ev := req.Event
	switch req.Text {
	case "4":
		for _, v := range ev.VenueOptions {
			ev.VenueExclusions = appendUnique(ev.VenueExclusions, v.Name)
		}
		ev.VenueOptions = h.venues.Suggest(ctx, ev.Activity, ev.Location, ev.VenueExclusions)
		return reply(compose.VenueMenu(ev.Activity, ev.VenueOptions)), nil
	case "5":
		return h.changeActivity(ev), nil
	}

	if n, err := strconv.Atoi(req.Text); err == nil {
		if n < 1 || n > len(ev.VenueOptions) {
			return errorReply(compose.PickNumber(len(ev.VenueOptions)) + "\n\n" + compose.VenueMenu(ev.Activity, ev.VenueOptions)), nil
		}
		v := ev.VenueOptions[n-1]
		ev.SelectedVenue = &v
		return h.toFinalConfirmation(ctx, q, ev)
	}

	name := req.Text
	if m := reLiteralVenue.FindStringSubmatch(name); m != nil {
		name = m[1]
	}
	if name == "" {
		return errorReply(compose.AskVenueName), nil
	}
	return h.literalVenue(ctx, q, ev, name)
}

func (h *Handler) literalVenue(ctx context.Context, q Store, ev *models.Event, name string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return errorReply(compose.AskVenueName), nil
	}
	ev.SelectedVenue = &models.Venue{Name: name, Link: venue.MapsLink(name, ev.Location)}
	return h.toFinalConfirmation(ctx, q, ev)
}

func (h *Handler) changeActivity(ev *models.Event) Result {
	ev.Activity = ""
	ev.Location = ""
	ev.SelectedVenue = nil
	ev.VenueOptions = nil
	ev.VenueExclusions = nil
	return transition(models.StageCollectingActivity, compose.AskActivity(ev.SelectedDate, ev.SelectedStart, ev.SelectedEnd))
}

func (h *Handler) toFinalConfirmation(ctx context.Context, q Store, ev *models.Event) (Result, error) {
	guests, err := q.ListGuests(ctx, ev.ID)
	if err != nil {
		return Result{}, err
	}
	return transition(models.StageFinalConfirmation, compose.FinalSummary(ev, inviteTargets(ev, guests))), nil
}

func (h *Handler) finalConfirmation(ctx context.Context, q Store, req Request) (Result, error) {
	ev := req.Event
	switch req.Text {
	case "1":
		return transition(models.StageSettingStartTime, compose.AskStartTime(ev.SelectedStart, ev.SelectedEnd)), nil
	case "2":
		return h.sendInvitations(ctx, q, req)
	case "3":
		return h.changeActivity(ev), nil
	}

	if m := reEdit.FindStringSubmatch(req.Text); m != nil {
		switch strings.ToLower(m[1]) {
		case "guest", "guests":
			return h.detourToGuests(ctx, q, req)
		case "time":
			return h.presentCandidates(ctx, q, ev)
		case "activity":
			return h.changeActivity(ev), nil
		case "venue":
			if ev.Activity == "" {
				return h.changeActivity(ev), nil
			}
			ev.SelectedVenue = nil
			ev.VenueExclusions = nil
			ev.VenueOptions = h.venues.Suggest(ctx, ev.Activity, ev.Location, nil)
			return transition(models.StageSelectingVenue, compose.VenueMenu(ev.Activity, ev.VenueOptions)), nil
		}
	}

	guests, err := q.ListGuests(ctx, ev.ID)
	if err != nil {
		return Result{}, err
	}
	return errorReply(compose.PickNumber(3) + "\n\n" + compose.FinalSummary(ev, inviteTargets(ev, guests))), nil
}

// sendInvitations opens an RSVP state for every invitee and finalizes
// the event.
func (h *Handler) sendInvitations(ctx context.Context, q Store, req Request) (Result, error) {
	ev := req.Event
	guests, err := q.ListGuests(ctx, ev.ID)
	if err != nil {
		return Result{}, err
	}
	targets := inviteTargets(ev, guests)
	if len(targets) == 0 {
		return errorReply(compose.NeedGuests), nil
	}

	res := transition(models.StageFinalized, "")
	names := make([]string, 0, len(targets))
	for _, g := range targets {
		err := q.PutResponseState(ctx, models.GuestResponseState{
			Phone:   g.Phone,
			EventID: ev.ID,
			Kind:    models.AwaitingRSVP,
		})
		if err != nil {
			return Result{}, err
		}
		res.Outbound = append(res.Outbound, Outbound{To: g.Phone, Body: compose.Invitation(g, req.Planner.Name, ev)})
		names = append(names, g.Name)
	}
	ev.Status = models.EventFinalized
	res.Reply = compose.InvitationsSent(names)
	return res, nil
}

// inviteTargets narrows guests to the ones available for a partial pick.
func inviteTargets(ev *models.Event, guests []models.Guest) []models.Guest {
	if len(ev.SelectedGuests) == 0 {
		return guests
	}
	chosen := make(map[string]bool, len(ev.SelectedGuests))
	for _, name := range ev.SelectedGuests {
		chosen[name] = true
	}
	var out []models.Guest
	for _, g := range guests {
		if chosen[g.Name] {
			out = append(out, g)
		}
	}
	if len(out) == 0 {
		return guests
	}
	return out
}

func (h *Handler) setStartTime(ctx context.Context, q Store, req Request) (Result, error) {
	ev := req.Event
	pctx := h.parseContext(ev)
	pctx.WindowStart, pctx.WindowEnd = ev.SelectedStart, ev.SelectedEnd

	start, err := h.parser.StartTime(req.Text, pctx)
	if err != nil {
		f, ok := parser.AsFailure(err)
		if !ok {
			return Result{}, err
		}
		if f.Reason == parser.ReasonOutsideWindow {
			return errorReply(compose.StartTimeOutside(ev.SelectedStart, ev.SelectedEnd)), nil
		}
		return errorReply(compose.AskStartTime(ev.SelectedStart, ev.SelectedEnd)), nil
	}

	ev.StartTime = start
	ev.UserSetStartTime = true
	return h.toFinalConfirmation(ctx, q, ev)
}

func (h *Handler) finalized(_ context.Context, _ Store, _ Request) (Result, error) {
	return reply(compose.Finalized), nil
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return list
		}
	}
	return append(list, s)
}
