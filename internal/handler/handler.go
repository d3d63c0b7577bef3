// Package handler implements the planner conversation stages and the
// transient guest response flow. Stage handlers never persist the stage
// themselves: they return the next stage and the router writes it in the
// same transaction as their other changes.
package handler

import (
	"context"
	"strings"
	"time"

	"sms-planner/internal/compose"
	"sms-planner/internal/models"
	"sms-planner/internal/overlap"
	"sms-planner/internal/parser"

	"github.com/rs/zerolog"
)

// Kind classifies a handler result.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Outbound is an SMS to someone other than the sender, sent after the
// transaction commits.
type Outbound struct {
	To   string
	Body string
}

// Result is a handler's reply plus an optional stage transition.
type Result struct {
	Reply    string
	Next     models.Stage
	Kind     Kind
	Outbound []Outbound
}

func reply(text string) Result {
	return Result{Reply: text, Kind: KindSuccess}
}

func errorReply(text string) Result {
	return Result{Reply: text, Kind: KindError}
}

func transition(next models.Stage, text string) Result {
	return Result{Reply: text, Next: next, Kind: KindSuccess}
}

// Store is the part of the conversation store the handlers use.
type Store interface {
	overlap.Loader

	GetPlanner(ctx context.Context, id int64) (*models.Planner, error)
	SetPlannerName(ctx context.Context, id int64, name string) error
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	UpdateEvent(ctx context.Context, ev *models.Event) error

	AddGuest(ctx context.Context, eventID int64, name, phone string) (*models.Guest, error)
	GuestByPhone(ctx context.Context, eventID int64, phone string) (*models.Guest, error)
	SetAvailabilityProvided(ctx context.Context, guestID int64, provided bool) error
	UpdateRSVP(ctx context.Context, guestID int64, status models.RSVPStatus) error

	UpsertContact(ctx context.Context, plannerID int64, name, phone string) error
	ListContacts(ctx context.Context, plannerID int64) ([]models.Contact, error)
	DeleteContact(ctx context.Context, plannerID, contactID int64) error

	RecordAvailability(ctx context.Context, eventID, guestID int64, intervals []models.AvailabilityInterval) error

	PutResponseState(ctx context.Context, st models.GuestResponseState) error
	DeleteStaleResponseStates(ctx context.Context, phone string, keepEventID int64) error
}

// Parser is the parser facade.
type Parser interface {
	Guests(ctx context.Context, text string) ([]parser.GuestEntry, error)
	Dates(ctx context.Context, text string, pctx parser.Context) ([]time.Time, error)
	Availability(text string, pctx parser.Context) (parser.Availability, error)
	StartTime(text string, pctx parser.Context) (models.Clock, error)
}

// VenueSuggester returns one to three venues.
type VenueSuggester interface {
	Suggest(ctx context.Context, activity, location string, exclusions []string) []models.Venue
}

// Config holds the handler settings.
type Config struct {
	DefaultLocation string
	Location        *time.Location
	Now             func() time.Time
}

// Handler runs both planner stages and guest responses.
type Handler struct {
	parser Parser
	venues VenueSuggester
	config Config
	log    zerolog.Logger
	stages map[models.Stage]stageFunc
}

// Request is one planner message in the context of their active event.
type Request struct {
	Planner *models.Planner
	Event   *models.Event
	Text    string
}

type stageFunc func(ctx context.Context, q Store, req Request) (Result, error)

// New creates a handler.
func New(p Parser, venues VenueSuggester, cfg Config, log zerolog.Logger) *Handler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := &Handler{parser: p, venues: venues, config: cfg, log: log}
	h.stages = map[models.Stage]stageFunc{
		models.StageCollectingGuests:       h.collectGuests,
		models.StageAddingGuest:            h.collectGuests,
		models.StageCollectingDates:        h.collectDates,
		models.StageAwaitingConfirmation:   h.awaitConfirmation,
		models.StageCollectingAvailability: h.collectAvailability,
		models.StageSelectingTime:          h.selectTime,
		models.StageSelectingPartialTime:   h.selectTime,
		models.StageCollectingActivity:     h.collectActivity,
		models.StageSelectingVenue:         h.selectVenue,
		models.StageFinalConfirmation:      h.finalConfirmation,
		models.StageSettingStartTime:       h.setStartTime,
		models.StageFinalized:              h.finalized,
	}
	return h
}

// Handle dispatches a planner message to the handler for the event's
// current stage.
func (h *Handler) Handle(ctx context.Context, q Store, req Request) (Result, error) {
	req.Text = strings.TrimSpace(req.Text)
	if strings.EqualFold(req.Text, "help") {
		return h.Prompt(ctx, q, req.Planner, req.Event)
	}

	fn, ok := h.stages[req.Event.CurrentStage]
	if !ok {
		h.log.Error().Str("stage", string(req.Event.CurrentStage)).Int64("event_id", req.Event.ID).Msg("Unknown stage")
		return errorReply(compose.UnknownStage), nil
	}
	return fn(ctx, q, req)
}

// Prompt re-sends what the current stage is waiting for.
func (h *Handler) Prompt(ctx context.Context, q Store, planner *models.Planner, ev *models.Event) (Result, error) {
	text, err := h.prompt(ctx, q, planner, ev, ev.CurrentStage)
	if err != nil {
		return Result{}, err
	}
	return reply(text), nil
}

func (h *Handler) prompt(ctx context.Context, q Store, planner *models.Planner, ev *models.Event, stage models.Stage) (string, error) {
	switch stage {
	case models.StageCollectingGuests, models.StageAddingGuest:
		contacts, err := q.ListContacts(ctx, planner.ID)
		if err != nil {
			return "", err
		}
		return compose.AskGuests(contacts), nil
	case models.StageCollectingDates:
		return compose.AskDates, nil
	case models.StageAwaitingConfirmation:
		guests, err := q.ListGuests(ctx, ev.ID)
		if err != nil {
			return "", err
		}
		return compose.ConfirmationMenu(guests, ev.ProposedDates), nil
	case models.StageCollectingAvailability:
		guests, err := q.ListGuests(ctx, ev.ID)
		if err != nil {
			return "", err
		}
		return compose.Status(guests) + "\n\n" + compose.AvailabilityHelp, nil
	case models.StageSelectingTime, models.StageSelectingPartialTime:
		cands, fallback, err := h.menuFor(ctx, q, ev, stage)
		if err != nil {
			return "", err
		}
		return compose.CandidateMenu(cands, stage == models.StageSelectingPartialTime, fallback), nil
	case models.StageCollectingActivity:
		return compose.AskActivity(ev.SelectedDate, ev.SelectedStart, ev.SelectedEnd), nil
	case models.StageSelectingVenue:
		return compose.VenueMenu(ev.Activity, ev.VenueOptions), nil
	case models.StageFinalConfirmation:
		guests, err := q.ListGuests(ctx, ev.ID)
		if err != nil {
			return "", err
		}
		return compose.FinalSummary(ev, inviteTargets(ev, guests)), nil
	case models.StageSettingStartTime:
		return compose.AskStartTime(ev.SelectedStart, ev.SelectedEnd), nil
	case models.StageFinalized:
		return compose.Finalized, nil
	}
	return compose.UnknownStage, nil
}

func (h *Handler) today() time.Time {
	return models.DateOf(h.config.Now().In(h.config.Location))
}

func (h *Handler) parseContext(ev *models.Event) parser.Context {
	return parser.Context{Today: h.today(), ProposedDates: ev.ProposedDates}
}
