package router

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"sms-planner/internal/compose"
	"sms-planner/internal/handler"
	"sms-planner/internal/models"
	"sms-planner/internal/parser"
	"sms-planner/internal/storage"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	To   string
	Body string
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (s *recordingSender) Send(_ context.Context, to, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, sent{To: to, Body: body})
	return s.err
}

func (s *recordingSender) to(phone string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.msgs {
		if m.To == phone {
			out = append(out, m.Body)
		}
	}
	return out
}

type staticVenues struct{}

func (staticVenues) Suggest(context.Context, string, string, []string) []models.Venue {
	return []models.Venue{{Name: "Nopa"}}
}

type panickingVenues struct{}

func (panickingVenues) Suggest(context.Context, string, string, []string) []models.Venue {
	panic("venue lookup exploded")
}

type testEnv struct {
	ctx    context.Context
	store  *storage.Store
	sender *recordingSender
	router *Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithVenues(t, staticVenues{})
}

func newTestEnvWithVenues(t *testing.T, venues handler.VenueSuggester) *testEnv {
	t.Helper()
	ctx := context.Background()
	s, err := storage.Open(ctx, "sqlite3", ":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	h := handler.New(parser.New(nil, 0, zerolog.Nop()), venues, handler.Config{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, time.August, 25, 9, 0, 0, 0, time.UTC) },
	}, zerolog.Nop())
	sender := &recordingSender{}
	return &testEnv{ctx: ctx, store: s, sender: sender, router: New(s, h, sender, nil, zerolog.Nop())}
}

func (e *testEnv) send(from, body string) string {
	return e.router.Handle(e.ctx, from, body)
}

func (e *testEnv) activeEvent(t *testing.T, plannerPhone string) *models.Event {
	t.Helper()
	p, err := e.store.PlannerByPhone(e.ctx, plannerPhone)
	require.NoError(t, err)
	ev, err := e.store.ActiveEvent(e.ctx, p.ID)
	require.NoError(t, err)
	return ev
}

// onboard runs a planner through naming, guests and dates up to sent
// availability requests.
func (e *testEnv) onboard(t *testing.T) {
	t.Helper()
	e.send("+15105550001", "hi")
	e.send("+15105550001", "Aaron")
	e.send("+15105550001", "John 5105935336, Mary 5105550002")
	e.send("+15105550001", "done")
	e.send("+15105550001", "Saturday and Sunday")
	e.send("+15105550001", "1")
	require.Equal(t, models.StageCollectingAvailability, e.activeEvent(t, "5105550001").CurrentStage)
}

func TestRouter_FreshPlannerOnboarding(t *testing.T) {
	e := newTestEnv(t)

	assert.Contains(t, e.send("+15105550001", "hi"), "What's your name?")
	assert.Contains(t, e.send("+15105550001", "Aaron"), "Nice to meet you, Aaron!")

	reply := e.send("+15105550001", "John 5105935336")
	assert.Contains(t, reply, "Added: John (5105935336)")
	assert.Contains(t, reply, "done")

	assert.Contains(t, e.send("+15105550001", "done"), "What dates")
	assert.Equal(t, models.StageCollectingDates, e.activeEvent(t, "5105550001").CurrentStage)
}

func TestRouter_SendsAvailabilityRequestsAfterCommit(t *testing.T) {
	e := newTestEnv(t)
	e.onboard(t)

	john := e.sender.to("5105935336")
	require.Len(t, john, 1)
	assert.Contains(t, john[0], "Hi John! Aaron is planning a get-together with Mary")
	require.Len(t, e.sender.to("5105550002"), 1)
}

func TestRouter_GuestResponseIsSingleShot(t *testing.T) {
	e := newTestEnv(t)
	e.onboard(t)

	reply := e.send("5105935336", "Saturday 2ydufb")
	assert.Contains(t, reply, "couldn't understand")

	_, err := e.store.GetResponseState(e.ctx, "5105935336")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Now an ordinary planner message from a brand new planner.
	assert.Contains(t, e.send("5105935336", "Saturday 7-11pm"), "What's your name?")
	_, err = e.store.PlannerByPhone(e.ctx, "5105935336")
	assert.NoError(t, err)
}

func TestRouter_GuestAvailabilityRecorded(t *testing.T) {
	e := newTestEnv(t)
	e.onboard(t)

	reply := e.send("+1 (510) 593-5336", "Saturday all day")
	assert.Contains(t, reply, "Sat, 8/30: All day")
	assert.Contains(t, reply, "I'll let Aaron know")

	assert.Contains(t, e.send("5105550001", "status"), "Still waiting for: Mary")
}

func TestRouter_LateArrivalInvalidatesSelections(t *testing.T) {
	e := newTestEnv(t)
	e.onboard(t)
	e.send("5105935336", "Saturday all day")
	e.send("5105550001", "1")
	e.send("5105550001", "1")
	e.send("5105550001", "at Joe's Pizza")
	ev := e.activeEvent(t, "5105550001")
	require.Equal(t, models.StageFinalConfirmation, ev.CurrentStage)
	require.Equal(t, models.NewDate(2025, time.August, 30), ev.SelectedDate)

	e.send("5105550002", "Sunday after 6")

	ev = e.activeEvent(t, "5105550001")
	assert.Equal(t, models.StageCollectingAvailability, ev.CurrentStage)
	assert.True(t, ev.SelectedDate.IsZero())
	assert.Zero(t, ev.SelectedStart)
	assert.Zero(t, ev.SelectedEnd)
	assert.Nil(t, ev.SelectedVenue)

	notices := e.sender.to("5105550001")
	require.NotEmpty(t, notices)
	assert.Contains(t, notices[len(notices)-1], "Mary")
}

func TestRouter_AddGuestFromConfirmationPreservesReturn(t *testing.T) {
	e := newTestEnv(t)
	e.send("5105550001", "hi")
	e.send("5105550001", "Aaron")
	e.send("5105550001", "John 5105935336")
	e.send("5105550001", "done")
	e.send("5105550001", "Saturday and Sunday")

	e.send("5105550001", "3")
	ev := e.activeEvent(t, "5105550001")
	assert.Equal(t, models.StageAddingGuest, ev.CurrentStage)
	assert.Equal(t, models.StageAwaitingConfirmation, ev.PreviousStage)

	e.send("5105550001", "Bob 5551234567")
	e.send("5105550001", "done")

	ev = e.activeEvent(t, "5105550001")
	assert.Equal(t, models.StageAwaitingConfirmation, ev.CurrentStage)
	assert.Equal(t, models.StageNone, ev.PreviousStage)
	assert.Empty(t, e.sender.to("5551234567"))
}

func TestRouter_ResetTwiceIsResetOnce(t *testing.T) {
	e := newTestEnv(t)
	e.onboard(t)
	first := e.activeEvent(t, "5105550001")

	assert.Contains(t, e.send("5105550001", "reset"), "starting over")
	second := e.activeEvent(t, "5105550001")
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.StageCollectingGuests, second.CurrentStage)

	// Requests from the cancelled event are gone.
	_, err := e.store.GetResponseState(e.ctx, "5105935336")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Contains(t, e.send("5105550001", "Start Over"), "starting over")
	third := e.activeEvent(t, "5105550001")
	assert.Equal(t, models.StageCollectingGuests, third.CurrentStage)

	guests, err := e.store.ListGuests(e.ctx, third.ID)
	require.NoError(t, err)
	assert.Empty(t, guests)
}

func TestRouter_ResetBeforeNameAsksForName(t *testing.T) {
	e := newTestEnv(t)
	e.send("5105550001", "hi")
	assert.Contains(t, e.send("5105550001", "reset"), "What's your name?")

	p, err := e.store.PlannerByPhone(e.ctx, "5105550001")
	require.NoError(t, err)
	assert.Empty(t, p.Name)
}

func TestRouter_MenuPickOutOfRange(t *testing.T) {
	e := newTestEnv(t)
	e.onboard(t)
	e.send("5105935336", "Saturday all day")
	e.send("5105550002", "Saturday all day")
	e.send("5105550001", "1")
	require.Equal(t, models.StageSelectingTime, e.activeEvent(t, "5105550001").CurrentStage)

	assert.Contains(t, e.send("5105550001", "4"), "Please reply 1")
	ev := e.activeEvent(t, "5105550001")
	assert.Equal(t, models.StageSelectingTime, ev.CurrentStage)
	assert.False(t, ev.HasSelection())
}

func TestRouter_NewPlanAfterFinalized(t *testing.T) {
	e := newTestEnv(t)
	e.onboard(t)
	e.send("5105935336", "Saturday all day")
	e.send("5105550002", "Saturday all day")
	e.send("5105550001", "1")
	e.send("5105550001", "1")
	e.send("5105550001", "at Joe's Pizza")
	assert.Contains(t, e.send("5105550001", "2"), "Invitations sent to John and Mary")

	assert.Contains(t, e.send("5105935336", "y"), "Wonderful")
	assert.Contains(t, e.send("5105550001", "hello again"), "Let's plan something new")
	assert.Equal(t, models.StageCollectingGuests, e.activeEvent(t, "5105550001").CurrentStage)
}

func TestRouter_SendFailureDoesNotFailReply(t *testing.T) {
	e := newTestEnv(t)
	e.sender.err = errors.New("carrier down")
	e.onboard(t)

	assert.Len(t, e.sender.to("5105935336"), 1)
}

func TestRouter_RateLimit(t *testing.T) {
	e := newTestEnv(t)
	e.router.limiter = NewRateLimiter(1, 1)

	assert.Contains(t, e.send("5105550001", "hi"), "What's your name?")
	assert.Contains(t, e.send("5105550001", "Aaron"), "too quickly")
}

func TestRouter_RateLimitedGuestReplyStillConsumesState(t *testing.T) {
	e := newTestEnv(t)
	e.onboard(t)
	e.router.limiter = NewRateLimiter(1, 1)

	// Use up John's token as a planner would.
	e.router.limiter.Allow("5105935336")

	reply := e.send("5105935336", "Saturday 7-11pm")
	assert.NotEqual(t, compose.RateLimited, reply)
	assert.Contains(t, reply, "I'll let Aaron know")

	_, err := e.store.GetResponseState(e.ctx, "5105935336")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// With no state left John is an ordinary sender again.
	assert.Equal(t, compose.RateLimited, e.send("5105935336", "hi"))
}

func TestRouter_InvalidNumberGetsError(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, compose.InvalidSender, e.send("12345", "hi"))

	_, err := e.store.PlannerByPhone(e.ctx, "12345")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRouter_PanicIsRecovered(t *testing.T) {
	e := newTestEnvWithVenues(t, panickingVenues{})
	e.onboard(t)
	e.send("5105935336", "Saturday all day")
	e.send("5105550002", "Saturday all day")
	e.send("5105550001", "1")
	e.send("5105550001", "1")
	require.Equal(t, models.StageCollectingActivity, e.activeEvent(t, "5105550001").CurrentStage)

	assert.Equal(t, compose.Apology, e.send("5105550001", "dinner"))
	ev := e.activeEvent(t, "5105550001")
	assert.Equal(t, models.StageCollectingActivity, ev.CurrentStage)
	assert.Empty(t, ev.Activity)

	// The transaction was rolled back, so other senders are not blocked.
	done := make(chan string, 1)
	go func() { done <- e.send("5105550003", "hi") }()
	select {
	case reply := <-done:
		assert.Contains(t, reply, "What's your name?")
	case <-time.After(3 * time.Second):
		t.Fatal("store still locked after recovered panic")
	}
}

var crowd = []string{
	"Ann", "Ben", "Cal", "Dee", "Eve", "Fay", "Gus", "Hal", "Ivy", "Jay",
	"Kim", "Lou", "Max", "Ned", "Oda", "Pat", "Quinn", "Ray", "Sue", "Tom",
}

func TestRouter_ConcurrentPlannerMessagesAreSerialized(t *testing.T) {
	e := newTestEnv(t)
	e.send("5105550001", "hi")
	e.send("5105550001", "Aaron")

	replies := make([]string, len(crowd))
	var wg sync.WaitGroup
	for i, name := range crowd {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			replies[i] = e.send("5105550001", fmt.Sprintf("%s 5105551%03d", name, i))
		}(i, name)
	}
	wg.Wait()

	for i, r := range replies {
		assert.Contains(t, r, "Added: "+crowd[i], "reply %d", i)
	}
	ev := e.activeEvent(t, "5105550001")
	assert.Equal(t, models.StageCollectingGuests, ev.CurrentStage)
	guests, err := e.store.ListGuests(e.ctx, ev.ID)
	require.NoError(t, err)
	assert.Len(t, guests, len(crowd))
}

func TestRouter_ConcurrentGuestRepliesNotifyOnce(t *testing.T) {
	e := newTestEnv(t)
	e.send("5105550001", "hi")
	e.send("5105550001", "Aaron")
	invited := crowd[:8]
	for i, name := range invited {
		e.send("5105550001", fmt.Sprintf("%s 5105551%03d", name, i))
	}
	e.send("5105550001", "done")
	e.send("5105550001", "Saturday and Sunday")
	e.send("5105550001", "1")
	require.Equal(t, models.StageCollectingAvailability, e.activeEvent(t, "5105550001").CurrentStage)

	var wg sync.WaitGroup
	for i := range invited {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			e.send(fmt.Sprintf("5105551%03d", i), "Saturday all day")
		}(i)
		go func() {
			defer wg.Done()
			e.send("5105550001", "status")
		}()
	}
	wg.Wait()

	for i := range invited {
		_, err := e.store.GetResponseState(e.ctx, fmt.Sprintf("5105551%03d", i))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	notices := 0
	for _, m := range e.sender.to("5105550001") {
		if strings.Contains(m, "Everyone has sent their availability") {
			notices++
		}
	}
	assert.Equal(t, 1, notices)
	assert.Equal(t, models.StageCollectingAvailability, e.activeEvent(t, "5105550001").CurrentStage)
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	var (
		m       KeyedMutex
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("5105550001")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, counter)
}

func TestKeyedMutex_LockAllDedupesShards(t *testing.T) {
	var m KeyedMutex
	unlock := m.LockAll("5105550001", "5105550001", "")
	unlock()

	done := make(chan struct{})
	go func() {
		u := m.LockAll("5105935336", "5105550001")
		u()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("LockAll deadlocked")
	}
}
