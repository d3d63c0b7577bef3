package overlap

import (
	"context"
	"errors"
	"testing"
	"time"

	"sms-planner/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	aug29 = models.NewDate(2025, time.August, 29)
	aug30 = models.NewDate(2025, time.August, 30)
	aug31 = models.NewDate(2025, time.August, 31)
)

func guest(id int64, name string, responded bool) models.Guest {
	return models.Guest{ID: id, EventID: 1, Name: name, AvailabilityProvided: responded}
}

func slot(guestID int64, d time.Time, start, end models.Clock) models.AvailabilityInterval {
	return models.AvailabilityInterval{EventID: 1, GuestID: guestID, Date: d, Start: start, End: end}
}

func allDay(guestID int64, d time.Time) models.AvailabilityInterval {
	return models.AvailabilityInterval{EventID: 1, GuestID: guestID, Date: d, AllDay: true}
}

func at(h int) models.Clock { return models.NewClock(h, 0) }

func TestCompute_StrictOverlap(t *testing.T) {
	guests := []models.Guest{guest(1, "A", true), guest(2, "B", true)}
	intervals := []models.AvailabilityInterval{
		slot(1, aug29, at(14), at(18)),
		slot(2, aug29, at(16), at(20)),
	}

	got := Compute(guests, intervals, false)

	require.Len(t, got, 1)
	assert.Equal(t, aug29, got[0].Date)
	assert.Equal(t, at(16), got[0].Start)
	assert.Equal(t, at(18), got[0].End)
	assert.Equal(t, []string{"A", "B"}, got[0].Guests)
	assert.False(t, got[0].AllDay)
}

func TestCompute_PartialTieBreaksOnEarlierStart(t *testing.T) {
	guests := []models.Guest{
		guest(1, "A", true), guest(2, "B", true), guest(3, "C", true), guest(4, "D", false),
	}
	intervals := []models.AvailabilityInterval{
		allDay(1, aug30),
		slot(2, aug30, at(10), at(12)),
		slot(3, aug30, at(14), at(16)),
	}

	got := Compute(guests, intervals, true)

	require.Len(t, got, 2)
	assert.Equal(t, at(10), got[0].Start)
	assert.Equal(t, at(12), got[0].End)
	assert.Equal(t, []string{"A", "B"}, got[0].Guests)
	assert.Equal(t, at(14), got[1].Start)
	assert.Equal(t, at(16), got[1].End)
	assert.Equal(t, []string{"A", "C"}, got[1].Guests)
}

func TestCompute_ZeroRespondersIsEmpty(t *testing.T) {
	guests := []models.Guest{guest(1, "A", false), guest(2, "B", false)}
	assert.Empty(t, Compute(guests, nil, false))
	assert.Empty(t, Compute(guests, nil, true))
}

func TestCompute_DisjointWindows(t *testing.T) {
	guests := []models.Guest{guest(1, "A", true), guest(2, "B", true)}
	intervals := []models.AvailabilityInterval{
		slot(1, aug29, at(10), at(12)),
		slot(2, aug29, at(14), at(19)),
	}

	assert.Empty(t, Compute(guests, intervals, false))

	partial := Compute(guests, intervals, true)
	require.Len(t, partial, 1)
	assert.Equal(t, []string{"B"}, partial[0].Guests)
	assert.Equal(t, at(14), partial[0].Start)
	assert.Equal(t, at(19), partial[0].End)
}

func TestCompute_StrictDropsDateMissingAResponder(t *testing.T) {
	guests := []models.Guest{guest(1, "A", true), guest(2, "B", true)}
	intervals := []models.AvailabilityInterval{
		slot(1, aug29, at(18), at(22)),
		slot(1, aug30, at(10), at(16)),
		slot(2, aug30, at(12), at(20)),
	}

	got := Compute(guests, intervals, false)

	require.Len(t, got, 1)
	assert.Equal(t, aug30, got[0].Date)
	assert.Equal(t, at(12), got[0].Start)
	assert.Equal(t, at(16), got[0].End)
}

func TestCompute_AllDayWithItselfIsAllDay(t *testing.T) {
	guests := []models.Guest{guest(1, "A", true), guest(2, "B", true)}
	intervals := []models.AvailabilityInterval{allDay(1, aug31), allDay(2, aug31)}

	got := Compute(guests, intervals, false)

	require.Len(t, got, 1)
	assert.True(t, got[0].AllDay)
	assert.Equal(t, models.DayStart, got[0].Start)
	assert.Equal(t, models.DayEnd, got[0].End)
}

func TestCompute_SingleResponderPartialEmitsIntervalsAsIs(t *testing.T) {
	guests := []models.Guest{guest(1, "A", true), guest(2, "B", false)}
	intervals := []models.AvailabilityInterval{
		slot(1, aug30, at(9), at(11)),
		slot(1, aug29, at(19), at(23)),
	}

	got := Compute(guests, intervals, true)

	require.Len(t, got, 2)
	assert.Equal(t, aug29, got[0].Date)
	assert.Equal(t, aug30, got[1].Date)
	assert.Equal(t, at(9), got[1].Start)
}

func TestCompute_DiscardsInvertedIntervals(t *testing.T) {
	guests := []models.Guest{guest(1, "A", true), guest(2, "B", true)}
	intervals := []models.AvailabilityInterval{
		slot(1, aug29, at(18), at(14)),
		slot(2, aug29, at(10), at(20)),
	}
	assert.Empty(t, Compute(guests, intervals, false))
}

func TestCompute_PartialOrdersAcrossDates(t *testing.T) {
	guests := []models.Guest{guest(1, "A", true), guest(2, "B", true), guest(3, "C", true)}
	intervals := []models.AvailabilityInterval{
		slot(1, aug29, at(18), at(20)),
		slot(2, aug29, at(18), at(20)),
		slot(1, aug30, at(12), at(14)),
		slot(2, aug30, at(12), at(14)),
		slot(3, aug30, at(13), at(18)),
		slot(1, aug31, at(10), at(16)),
		slot(2, aug31, at(11), at(17)),
	}

	got := Compute(guests, intervals, true)

	require.Len(t, got, 3)
	assert.Equal(t, aug30, got[0].Date)
	assert.Len(t, got[0].Guests, 3)
	assert.Equal(t, aug31, got[1].Date)
	assert.Equal(t, 300, got[1].Duration())
	assert.Equal(t, aug29, got[2].Date)
}

func TestCompute_IsDeterministic(t *testing.T) {
	guests := []models.Guest{guest(3, "C", true), guest(1, "A", true), guest(2, "B", true)}
	intervals := []models.AvailabilityInterval{
		slot(2, aug30, at(10), at(12)),
		allDay(1, aug30),
		slot(3, aug30, at(14), at(16)),
		slot(1, aug29, at(8), at(9)),
	}
	reversed := make([]models.AvailabilityInterval, len(intervals))
	for i, iv := range intervals {
		reversed[len(intervals)-1-i] = iv
	}

	assert.Equal(t, Compute(guests, intervals, true), Compute(guests, reversed, true))
	assert.Equal(t, Compute(guests, intervals, false), Compute(guests, reversed, false))
}

func TestCompute_StrictIsSubsetOfPartial(t *testing.T) {
	guests := []models.Guest{guest(1, "A", true), guest(2, "B", true)}
	intervals := []models.AvailabilityInterval{
		slot(1, aug29, at(14), at(18)),
		slot(2, aug29, at(16), at(20)),
		slot(1, aug30, at(9), at(10)),
		slot(2, aug30, at(11), at(12)),
	}

	strict := Compute(guests, intervals, false)
	partial := Compute(guests, intervals, true)

	require.NotEmpty(t, strict)
	for _, c := range strict {
		assert.Contains(t, partial, c)
	}
}

type fakeLoader struct {
	guests    []models.Guest
	intervals []models.AvailabilityInterval
	err       error
}

func (f fakeLoader) ListGuests(context.Context, int64) ([]models.Guest, error) {
	return f.guests, f.err
}

func (f fakeLoader) ListAvailability(context.Context, int64) ([]models.AvailabilityInterval, error) {
	return f.intervals, nil
}

func TestForEvent(t *testing.T) {
	l := fakeLoader{
		guests:    []models.Guest{guest(1, "A", true), guest(2, "B", true)},
		intervals: []models.AvailabilityInterval{allDay(1, aug29), allDay(2, aug29)},
	}
	got, err := ForEvent(context.Background(), l, 1, false)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = ForEvent(context.Background(), fakeLoader{err: errors.New("boom")}, 1, false)
	assert.Error(t, err)
}
