package compose

import (
	"testing"
	"time"

	"sms-planner/internal/models"
	"sms-planner/internal/overlap"

	"github.com/stretchr/testify/assert"
)

func TestClock(t *testing.T) {
	cases := map[models.Clock]string{
		models.NewClock(14, 0):  "2pm",
		models.NewClock(19, 30): "7:30pm",
		models.NewClock(12, 0):  "12pm",
		models.NewClock(0, 0):   "12am",
		models.NewClock(9, 5):   "9:05am",
		models.DayEnd:           "11:59pm",
	}
	for in, want := range cases {
		assert.Equal(t, want, Clock(in))
	}
}

func TestRange(t *testing.T) {
	assert.Equal(t, "4pm-6pm", Range(models.NewClock(16, 0), models.NewClock(18, 0)))
	assert.Equal(t, "All day", Range(models.DayStart, models.DayEnd))
}

func TestDates(t *testing.T) {
	d := models.NewDate(2025, time.August, 29)
	assert.Equal(t, "Fri, 8/29", ShortDate(d))
	assert.Equal(t, "Friday, August 29", LongDate(d))
}

func TestFirstName(t *testing.T) {
	assert.Equal(t, "Emily", FirstName("Dr. Emily Watson"))
	assert.Equal(t, "John", FirstName("John Smith"))
	assert.Equal(t, "Aaron", FirstName("  Aaron  "))
	assert.Equal(t, "Dr.", FirstName("Dr."))
	assert.Equal(t, "", FirstName(""))
}

func TestJoinNames(t *testing.T) {
	assert.Equal(t, "", JoinNames(nil))
	assert.Equal(t, "A", JoinNames([]string{"A"}))
	assert.Equal(t, "A and B", JoinNames([]string{"A", "B"}))
	assert.Equal(t, "A, B, and C", JoinNames([]string{"A", "B", "C"}))
}

func TestMenuLine(t *testing.T) {
	c := overlap.Candidate{
		Date:   models.NewDate(2025, time.August, 29),
		Start:  models.NewClock(16, 0),
		End:    models.NewClock(18, 0),
		Guests: []string{"Ann Lee", "Bob Ray"},
	}
	assert.Equal(t, "1. Fri, 8/29: 4pm-6pm", MenuLine(1, c, false))
	assert.Equal(t, "2. Fri, 8/29: 4pm-6pm (Ann, Bob)", MenuLine(2, c, true))
}

func TestStatus(t *testing.T) {
	guests := []models.Guest{
		{Name: "A", AvailabilityProvided: true},
		{Name: "B", AvailabilityProvided: true},
		{Name: "C", AvailabilityProvided: true},
		{Name: "D"},
	}
	msg := Status(guests)
	assert.Contains(t, msg, "Responded: 3")
	assert.Contains(t, msg, "Pending: 1")
	assert.Contains(t, msg, "Still waiting for: D")
	assert.Contains(t, msg, "Press 1 to view current overlaps")

	none := Status([]models.Guest{{Name: "A"}, {Name: "B"}})
	assert.NotContains(t, none, "Press 1")
}

func TestAvailabilityRequest_NamesOtherGuests(t *testing.T) {
	dates := []time.Time{models.NewDate(2025, time.August, 29)}
	john := models.Guest{Name: "John Doe", Phone: "5105935336"}
	mary := models.Guest{Name: "Mary Major", Phone: "5105550002"}
	sam := models.Guest{Name: "Sam Smith", Phone: "5105550003"}

	msg := AvailabilityRequest(john, "Aaron Planner", []models.Guest{john, mary, sam}, dates)
	assert.Contains(t, msg, "Hi John!")
	assert.Contains(t, msg, "Aaron is planning a get-together with Mary and Sam")
	assert.Contains(t, msg, "Fri, 8/29")

	solo := AvailabilityRequest(john, "Aaron", []models.Guest{john}, dates)
	assert.NotContains(t, solo, " with ")
}

func TestIntervals(t *testing.T) {
	d := models.NewDate(2025, time.August, 30)
	got := Intervals([]models.AvailabilityInterval{
		{Date: d, AllDay: true},
		{Date: d.AddDate(0, 0, 1), Start: models.NewClock(19, 0), End: models.NewClock(23, 0)},
	})
	assert.Equal(t, "Sat, 8/30: All day\nSun, 8/31: 7pm-11pm", got)
}

func TestInvitation(t *testing.T) {
	ev := &models.Event{
		SelectedDate:  models.NewDate(2025, time.August, 29),
		SelectedStart: models.NewClock(19, 30),
		SelectedEnd:   models.NewClock(22, 0),
		Activity:      "dinner",
		SelectedVenue: &models.Venue{Name: "Nopa", Link: "https://example.com/nopa"},
	}
	msg := Invitation(models.Guest{Name: "Dr. Emily Watson"}, "Aaron Smith", ev)
	assert.Contains(t, msg, "Hi Emily! Aaron invited you to dinner at Nopa!")
	assert.Contains(t, msg, "Friday, August 29, 7:30pm-10pm")
	assert.Contains(t, msg, "https://example.com/nopa")

	ev.UserSetStartTime = true
	ev.StartTime = models.NewClock(20, 0)
	assert.Contains(t, Invitation(models.Guest{Name: "Emily"}, "Aaron", ev), "Friday, August 29 at 8pm")
}
