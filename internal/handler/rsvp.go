package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sms-planner/internal/compose"
	"sms-planner/internal/models"
	"sms-planner/internal/parser"
	"sms-planner/internal/storage"
)

var rsvpWords = map[string]models.RSVPStatus{
	"y": models.RSVPYes, "yes": models.RSVPYes, "yep": models.RSVPYes, "yeah": models.RSVPYes, "✅": models.RSVPYes,
	"n": models.RSVPNo, "no": models.RSVPNo, "nope": models.RSVPNo, "❌": models.RSVPNo,
	"m": models.RSVPMaybe, "maybe": models.RSVPMaybe,
}

// HandleGuest answers a guest's reply to an availability request or an
// invitation. When the late-arrival rule applies it writes the planner's
// event itself. The caller deletes st whatever the outcome.
func (h *Handler) HandleGuest(ctx context.Context, q Store, st *models.GuestResponseState, text string) (Result, error) {
	text = strings.TrimSpace(text)

	ev, err := q.GetEvent(ctx, st.EventID)
	if errors.Is(err, storage.ErrNotFound) {
		return errorReply(compose.StaleRequest), nil
	}
	if err != nil {
		return Result{}, err
	}
	g, err := q.GuestByPhone(ctx, ev.ID, st.Phone)
	if errors.Is(err, storage.ErrNotFound) {
		return errorReply(compose.StaleRequest), nil
	}
	if err != nil {
		return Result{}, err
	}
	planner, err := q.GetPlanner(ctx, ev.PlannerID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load planner: %w", err)
	}

	switch {
	case st.Kind == models.AwaitingAvailability && ev.Status == models.EventPlanning:
		return h.guestAvailability(ctx, q, planner, ev, g, text)
	case st.Kind == models.AwaitingRSVP && ev.Status == models.EventFinalized:
		return h.guestRSVP(ctx, q, planner, g, text)
	}
	return errorReply(compose.StaleRequest), nil
}

func (h *Handler) guestAvailability(ctx context.Context, q Store, planner *models.Planner, ev *models.Event, g *models.Guest, text string) (Result, error) {
	avail, err := h.parser.Availability(text, h.parseContext(ev))
	if err != nil {
		if _, ok := parser.AsFailure(err); ok {
			return errorReply(compose.AvailabilityGuidance(ev.ProposedDates)), nil
		}
		return Result{}, err
	}

	if err := q.RecordAvailability(ctx, ev.ID, g.ID, avail.Intervals); err != nil {
		return Result{}, err
	}
	if err := q.SetAvailabilityProvided(ctx, g.ID, true); err != nil {
		return Result{}, err
	}

	res := reply(compose.AvailabilityThanks(avail.Intervals, planner.Name))
	if g.AvailabilityProvided {
		return res, nil
	}

	switch {
	case ev.CurrentStage.PastAvailability():
		ev.ClearSelections()
		ev.CurrentStage = models.StageCollectingAvailability
		ev.PreviousStage = ""
	case ev.CurrentStage == models.StageAddingGuest && ev.PreviousStage.PastAvailability():
		// Let the detour finish; "done" then lands in collecting_availability.
		ev.ClearSelections()
		ev.PreviousStage = models.StageCollectingAvailability
	case ev.CurrentStage == models.StageCollectingAvailability:
		guests, err := q.ListGuests(ctx, ev.ID)
		if err != nil {
			return Result{}, err
		}
		for _, other := range guests {
			if other.ID != g.ID && !other.AvailabilityProvided {
				return res, nil
			}
		}
		res.Outbound = append(res.Outbound, Outbound{To: planner.Phone, Body: compose.AllResponded(g.Name)})
		return res, nil
	default:
		return res, nil
	}

	if err := q.UpdateEvent(ctx, ev); err != nil {
		return Result{}, err
	}
	h.log.Info().Int64("event_id", ev.ID).Str("guest", g.Phone).Msg("Late availability reset event selections")
	res.Outbound = append(res.Outbound, Outbound{To: planner.Phone, Body: compose.LateArrival(g.Name)})
	return res, nil
}

func (h *Handler) guestRSVP(ctx context.Context, q Store, planner *models.Planner, g *models.Guest, text string) (Result, error) {
	status, ok := rsvpWords[strings.ToLower(strings.TrimRight(text, ".!"))]
	if !ok {
		return errorReply(compose.RSVPGuidance), nil
	}
	if err := q.UpdateRSVP(ctx, g.ID, status); err != nil {
		return Result{}, err
	}

	res := reply(compose.RSVPReply(status, planner.Name))
	res.Outbound = []Outbound{{To: planner.Phone, Body: compose.RSVPNotice(g.Name, status)}}
	return res, nil
}
