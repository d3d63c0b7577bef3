// Package router turns one inbound SMS into one reply: it picks guest or
// planner mode, serializes work per phone and commits each message's
// changes in a single transaction.
package router

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"sms-planner/internal/compose"
	"sms-planner/internal/handler"
	"sms-planner/internal/models"
	"sms-planner/internal/phone"
	"sms-planner/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Sender delivers an SMS to a canonical phone key.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// Router dispatches inbound messages.
type Router struct {
	store   *storage.Store
	handler *handler.Handler
	sender  Sender
	locks   *KeyedMutex
	limiter *RateLimiter
	log     zerolog.Logger
}

// New creates a router. limiter may be nil.
func New(store *storage.Store, h *handler.Handler, sender Sender, limiter *RateLimiter, log zerolog.Logger) *Router {
	return &Router{
		store:   store,
		handler: h,
		sender:  sender,
		locks:   &KeyedMutex{},
		limiter: limiter,
		log:     log,
	}
}

var resetWords = map[string]bool{"reset": true, "restart": true, "start over": true}

func isReset(text string) bool {
	t := strings.ToLower(strings.Join(strings.Fields(text), " "))
	return resetWords[strings.TrimRight(t, ".!")]
}

// Handle processes one inbound message and returns the reply text. A panic
// anywhere below is logged and answered with the generic apology.
func (r *Router) Handle(ctx context.Context, from, body string) (reply string) {
	key := phone.Normalize(from)
	log := r.log.With().Str("request_id", uuid.NewString()).Str("phone", key).Logger()
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Bytes("stack", debug.Stack()).Msg("Recovered from panic while handling message")
			reply = compose.Apology
		}
	}()

	if !phone.IsValid(key) {
		log.Warn().Str("from", from).Msg("Rejecting message from invalid number")
		return compose.InvalidSender
	}
	log.Debug().Str("body", body).Msg("Inbound message")

	res, err := r.process(ctx, key, body, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to handle message")
		return compose.Apology
	}

	for _, out := range res.Outbound {
		if err := r.sender.Send(ctx, out.To, out.Body); err != nil {
			log.Error().Err(err).Str("to", out.To).Msg("Failed to send outbound SMS")
		}
	}
	return res.Reply
}

func (r *Router) process(ctx context.Context, key, body string, log zerolog.Logger) (handler.Result, error) {
	unlock, st, err := r.lock(ctx, key)
	if err != nil {
		return handler.Result{}, err
	}
	defer unlock()

	// Guest replies are not rate limited.
	if st != nil {
		return r.guest(ctx, st, body, log)
	}
	if !r.limiter.Allow(key) {
		log.Warn().Msg("Rate limited")
		return handler.Result{Reply: compose.RateLimited, Kind: handler.KindError}, nil
	}
	return r.planner(ctx, key, body, log)
}

// lock takes the sender's lock and, when the sender owes a guest reply,
// the lock of the planner that asked. The state is re-read under the lock.
func (r *Router) lock(ctx context.Context, key string) (func(), *models.GuestResponseState, error) {
	for {
		peek, err := r.responseState(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		owner := ""
		if peek != nil {
			owner = r.plannerPhone(ctx, peek.EventID)
		}

		unlock := r.locks.LockAll(key, owner)
		st, err := r.responseState(ctx, key)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if st == nil || (peek != nil && st.EventID == peek.EventID) {
			return unlock, st, nil
		}
		// The state changed between peek and lock.
		unlock()
	}
}

func (r *Router) responseState(ctx context.Context, key string) (*models.GuestResponseState, error) {
	st, err := r.store.GetResponseState(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return st, err
}

// plannerPhone finds who owns an event. Failures only mean one lock fewer;
// the guest handler reports the stale state itself.
func (r *Router) plannerPhone(ctx context.Context, eventID int64) string {
	ev, err := r.store.GetEvent(ctx, eventID)
	if err != nil {
		return ""
	}
	p, err := r.store.GetPlanner(ctx, ev.PlannerID)
	if err != nil {
		return ""
	}
	return p.Phone
}

// guest handles a one-shot guest reply. The state is deleted whatever
// happens, panics included.
func (r *Router) guest(ctx context.Context, st *models.GuestResponseState, body string, log zerolog.Logger) (handler.Result, error) {
	log = log.With().Str("mode", "guest").Int64("event_id", st.EventID).Str("kind", string(st.Kind)).Logger()

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := r.store.DeleteResponseState(ctx, st.Phone, st.EventID); err != nil {
			log.Error().Err(err).Msg("Failed to clear guest response state")
		}
	}()

	var res handler.Result
	err := r.store.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		res, err = r.handler.HandleGuest(ctx, q, st, body)
		if err != nil {
			return err
		}
		return q.DeleteResponseState(ctx, st.Phone, st.EventID)
	})
	if err != nil {
		return handler.Result{}, err
	}
	committed = true

	log.Info().Str("result", string(res.Kind)).Int("outbound", len(res.Outbound)).Msg("Guest reply handled")
	return res, nil
}

func (r *Router) planner(ctx context.Context, key, body string, log zerolog.Logger) (handler.Result, error) {
	log = log.With().Str("mode", "planner").Logger()

	var (
		res           handler.Result
		before, after models.Stage
	)
	err := r.store.WithTx(ctx, func(q *storage.Queries) error {
		planner, created, err := q.FindOrCreatePlanner(ctx, key)
		if err != nil {
			return err
		}

		if planner.Name == "" {
			before = models.StageCollectingName
			res, err = r.handler.CollectName(ctx, q, planner, body, created || isReset(body))
			if err != nil {
				return err
			}
			after = res.Next
			if res.Next == models.StageNone {
				return nil
			}
			_, err = q.CreateEvent(ctx, planner.ID, res.Next)
			return err
		}

		if isReset(body) {
			res, err = r.reset(ctx, q, planner)
			after = models.StageCollectingGuests
			return err
		}

		ev, err := q.ActiveEvent(ctx, planner.ID)
		if errors.Is(err, storage.ErrNotFound) {
			// The last event was finalized: start a new one.
			if _, err := q.CreateEvent(ctx, planner.ID, models.StageCollectingGuests); err != nil {
				return err
			}
			contacts, err := q.ListContacts(ctx, planner.ID)
			if err != nil {
				return err
			}
			res = handler.Result{Reply: compose.NewPlan(contacts), Kind: handler.KindSuccess}
			after = models.StageCollectingGuests
			return nil
		}
		if err != nil {
			return err
		}

		before = ev.CurrentStage
		res, err = r.handler.Handle(ctx, q, handler.Request{Planner: planner, Event: ev, Text: body})
		if err != nil {
			return err
		}
		if res.Next != models.StageNone {
			ev.CurrentStage = res.Next
		}
		after = ev.CurrentStage
		return q.UpdateEvent(ctx, ev)
	})
	if err != nil {
		return handler.Result{}, err
	}

	log.Info().
		Str("stage_before", string(before)).
		Str("stage_after", string(after)).
		Str("result", string(res.Kind)).
		Int("outbound", len(res.Outbound)).
		Msg("Planner message handled")
	return res, nil
}

// reset cancels the active event and opens a fresh one.
func (r *Router) reset(ctx context.Context, q *storage.Queries, planner *models.Planner) (handler.Result, error) {
	ev, err := q.ActiveEvent(ctx, planner.ID)
	switch {
	case err == nil:
		if err := q.CancelEvent(ctx, ev.ID); err != nil {
			return handler.Result{}, err
		}
	case !errors.Is(err, storage.ErrNotFound):
		return handler.Result{}, err
	}

	if _, err := q.CreateEvent(ctx, planner.ID, models.StageCollectingGuests); err != nil {
		return handler.Result{}, fmt.Errorf("failed to open event after reset: %w", err)
	}
	contacts, err := q.ListContacts(ctx, planner.ID)
	if err != nil {
		return handler.Result{}, err
	}
	return handler.Result{Reply: compose.Starter(contacts), Kind: handler.KindSuccess}, nil
}
