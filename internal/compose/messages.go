package compose

import (
	"fmt"
	"strings"
	"time"

	"sms-planner/internal/models"
	"sms-planner/internal/overlap"
)

const (
	AskName       = "👋 Hi! I'm your event planning assistant. I'll help you get friends together by text.\n\nWhat's your name?"
	AskDates      = "📅 What dates are you thinking? (e.g. \"Saturday and Sunday\", \"12/15-12/17\", \"next Friday\")"
	Apology       = "Sorry, something went wrong on our end. Please try again in a moment."
	RateLimited   = "You're sending messages too quickly. Please wait a moment and try again."
	InvalidSender = "Sorry, we couldn't read your phone number, so we can't plan with this number."
	StaleRequest  = "That request is no longer active. Text anything to start planning your own event!"
	Finalized     = "Your invitations have been sent! Text anything to start planning a new event."
)

// Welcome greets a planner by first name and asks for guests.
func Welcome(name string, contacts []models.Contact) string {
	return fmt.Sprintf("Nice to meet you, %s! 🎉\n\n%s", FirstName(name), AskGuests(contacts))
}

// Starter is the reply to a reset keyword.
func Starter(contacts []models.Contact) string {
	return "🔄 Okay, starting over! Your previous plan has been cancelled.\n\n" + AskGuests(contacts)
}

// AskGuests prompts for guests, offering the contact book when it has entries.
func AskGuests(contacts []models.Contact) string {
	var b strings.Builder
	b.WriteString("Who's invited? Text each guest's name and phone number (e.g. \"John 5105935336\").")
	if len(contacts) > 0 {
		b.WriteString("\n\nOr pick from your contacts (e.g. \"1,3\"):\n")
		b.WriteString(ContactMenu(contacts))
	}
	b.WriteString("\n\nText 'done' when finished.")
	return b.String()
}

// ContactMenu numbers the contact book.
func ContactMenu(contacts []models.Contact) string {
	lines := make([]string, len(contacts))
	for i, c := range contacts {
		lines[i] = fmt.Sprintf("%d. %s", i+1, c.Name)
	}
	return strings.Join(lines, "\n")
}

// GuestsAdded confirms new guests and lists skipped duplicates.
func GuestsAdded(added []models.Guest, duplicates []string) string {
	var b strings.Builder
	if len(added) > 0 {
		parts := make([]string, len(added))
		for i, g := range added {
			parts[i] = fmt.Sprintf("%s (%s)", g.Name, g.Phone)
		}
		b.WriteString("Added: " + strings.Join(parts, ", "))
	}
	if len(duplicates) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Already on the list: " + strings.Join(duplicates, ", "))
	}
	b.WriteString("\n\nAdd more guests or text 'done' when finished.")
	return b.String()
}

// ConfirmationMenu summarizes guests and dates before requests go out.
func ConfirmationMenu(guests []models.Guest, dates []time.Time) string {
	names := make([]string, len(guests))
	for i, g := range guests {
		names[i] = g.Name
	}
	return fmt.Sprintf("📋 Here's the plan so far:\nGuests: %s\nDates: %s\n\nReply:\n1. Send availability requests\n2. Change dates\n3. Add more guests",
		strings.Join(names, ", "), Dates(dates))
}

// AvailabilityRequest asks one guest when they are free. Other guests are
// named only when the event has at least two.
func AvailabilityRequest(g models.Guest, plannerName string, all []models.Guest, dates []time.Time) string {
	var others []string
	for _, o := range all {
		if o.Phone != g.Phone {
			others = append(others, FirstName(o.Name))
		}
	}

	with := ""
	if len(all) >= 2 && len(others) > 0 {
		with = " with " + JoinNames(others)
	}
	return fmt.Sprintf("Hi %s! %s is planning a get-together%s and wants to know when you're free.\n\nProposed dates: %s\n\nReply with your availability, e.g. \"Friday 7-11pm\" or \"Saturday all day\".",
		FirstName(g.Name), FirstName(plannerName), with, Dates(dates))
}

// RequestsSent confirms availability requests went out.
func RequestsSent(n int) string {
	return fmt.Sprintf("📨 Availability requests sent to %d %s! I'll keep track of responses.\n\n%s", n, plural(n, "guest", "guests"), AvailabilityHelp)
}

// AvailabilityHelp lists the commands of the availability stage.
const AvailabilityHelp = "Text:\n'status' to see who has responded\n'remind' to nudge pending guests\n1 to view overlapping times\n2 to add more guests"

// Status summarizes responded and pending guests.
func Status(guests []models.Guest) string {
	var pending []string
	responded := 0
	for _, g := range guests {
		if g.AvailabilityProvided {
			responded++
		} else {
			pending = append(pending, g.Name)
		}
	}

	var b strings.Builder
	b.WriteString("📊 Availability status\n")
	fmt.Fprintf(&b, "Responded: %d\nPending: %d", responded, len(pending))
	if len(pending) > 0 {
		b.WriteString("\nStill waiting for: " + strings.Join(pending, ", "))
	}
	switch {
	case responded > 0 && len(pending) > 0:
		b.WriteString("\n\nPress 1 to view current overlaps")
	case responded > 0:
		b.WriteString("\n\nEveryone has responded! Press 1 to view the best times")
	}
	return b.String()
}

// RemindersSent confirms nudges to pending guests.
func RemindersSent(names []string) string {
	if len(names) == 0 {
		return "Everyone has already responded! Press 1 to view the best times."
	}
	return "🔔 Reminder sent to " + JoinNames(names) + "."
}

// CandidateMenu lists overlap candidates for selection. Partial menus name
// the available guests on each line.
func CandidateMenu(cands []overlap.Candidate, partial, fallback bool) string {
	var b strings.Builder
	switch {
	case fallback:
		b.WriteString("No time works for everyone. Here are the best partial options:\n")
	case partial:
		b.WriteString("Here are the best times so far (not everyone has responded):\n")
	default:
		b.WriteString("🎯 Times that work for everyone:\n")
	}
	for i, c := range cands {
		b.WriteString("\n" + MenuLine(i+1, c, partial))
	}
	b.WriteString("\n\nReply with a number to pick a time.")
	return b.String()
}

// MenuLine renders "1. Fri, 8/29: 4pm-6pm".
func MenuLine(n int, c overlap.Candidate, partial bool) string {
	line := fmt.Sprintf("%d. %s: %s", n, ShortDate(c.Date), Range(c.Start, c.End))
	if partial {
		line += " (" + strings.Join(FirstNames(c.Guests), ", ") + ")"
	}
	return line
}

// AskActivity follows a chosen time.
func AskActivity(d time.Time, start, end models.Clock) string {
	return fmt.Sprintf("✅ Got it: %s.\n\nWhat would you like to do? (e.g. \"dinner\", \"bowling in Oakland\") Or text a venue name like \"at Joe's Pizza\".", Window(d, start, end))
}

// VenueMenu lists venue suggestions plus the fixed options 4 and 5.
func VenueMenu(activity string, venues []models.Venue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📍 Some ideas for %s:\n", activity)
	for i, v := range venues {
		fmt.Fprintf(&b, "\n%d. %s", i+1, v.Name)
		if v.Description != "" {
			b.WriteString(" - " + v.Description)
		}
	}
	b.WriteString("\n\n4. Show me different options\n5. Change activity\n\nOr text your own venue name.")
	return b.String()
}

// FinalSummary shows everything chosen and the final options.
func FinalSummary(ev *models.Event, guests []models.Guest) string {
	var b strings.Builder
	b.WriteString("🎉 Final details:\n")
	if ev.UserSetStartTime {
		fmt.Fprintf(&b, "When: %s at %s\n", LongDate(ev.SelectedDate), Clock(ev.StartTime))
	} else {
		fmt.Fprintf(&b, "When: %s\n", Window(ev.SelectedDate, ev.SelectedStart, ev.SelectedEnd))
	}
	if ev.Activity != "" {
		fmt.Fprintf(&b, "What: %s\n", ev.Activity)
	}
	if ev.SelectedVenue != nil {
		fmt.Fprintf(&b, "Where: %s\n", ev.SelectedVenue.Name)
	}
	names := make([]string, 0, len(guests))
	for _, g := range guests {
		names = append(names, g.Name)
	}
	fmt.Fprintf(&b, "Who: %s\n", strings.Join(names, ", "))
	b.WriteString("\nReply:\n1. Set a specific start time\n2. Send invitations\n3. Change activity\nOr 'edit guests', 'edit time', 'edit venue'")
	return b.String()
}

// AskStartTime prompts for a start time inside the chosen window.
func AskStartTime(start, end models.Clock) string {
	return fmt.Sprintf("⏰ What time should it start? Pick a time between %s and %s (e.g. \"7:30pm\").", Clock(start), Clock(end))
}

// Invitation is sent to each guest when the planner confirms.
func Invitation(g models.Guest, plannerName string, ev *models.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 Hi %s! %s invited you", FirstName(g.Name), FirstName(plannerName))
	if ev.Activity != "" {
		fmt.Fprintf(&b, " to %s", ev.Activity)
	}
	if ev.SelectedVenue != nil {
		fmt.Fprintf(&b, " at %s", ev.SelectedVenue.Name)
	}
	b.WriteString("!\n\n")
	if ev.UserSetStartTime {
		fmt.Fprintf(&b, "📅 %s at %s\n", LongDate(ev.SelectedDate), Clock(ev.StartTime))
	} else {
		fmt.Fprintf(&b, "📅 %s\n", Window(ev.SelectedDate, ev.SelectedStart, ev.SelectedEnd))
	}
	if ev.SelectedVenue != nil && ev.SelectedVenue.Link != "" {
		fmt.Fprintf(&b, "📍 %s\n", ev.SelectedVenue.Link)
	}
	b.WriteString("\nReply YES, NO, or MAYBE to RSVP.")
	return b.String()
}

// InvitationsSent confirms dispatch to the planner.
func InvitationsSent(names []string) string {
	return fmt.Sprintf("💌 Invitations sent to %s! I'll let you know as people RSVP.", JoinNames(FirstNames(names)))
}

// AvailabilityThanks echoes a guest's recorded availability.
func AvailabilityThanks(intervals []models.AvailabilityInterval, plannerName string) string {
	if len(intervals) == 0 {
		return fmt.Sprintf("Thanks for letting us know you're not available. I'll let %s know.", FirstName(plannerName))
	}
	return fmt.Sprintf("Got it! Your availability:\n%s\n\nThanks! I'll let %s know.", Intervals(intervals), FirstName(plannerName))
}

// AvailabilityGuidance answers an availability reply that did not parse.
func AvailabilityGuidance(dates []time.Time) string {
	msg := "Sorry, I couldn't understand that. Please reply with a day and time, e.g. \"Friday 7-11pm\", \"Saturday all day\", or \"Sunday morning\"."
	if len(dates) > 0 {
		msg += "\n\nProposed dates: " + Dates(dates)
	}
	return msg
}

// LateArrival tells the planner a guest responded after times were chosen.
func LateArrival(guestName string) string {
	return fmt.Sprintf("📬 %s just sent their availability. Your time and venue picks were reset so they can be included.\n\n%s", guestName, AvailabilityHelp)
}

// AllResponded tells the planner the last pending guest has replied.
func AllResponded(guestName string) string {
	return fmt.Sprintf("📬 %s just responded. Everyone has sent their availability! Press 1 to view the best times.", guestName)
}

// RSVPReply answers a guest's RSVP.
func RSVPReply(status models.RSVPStatus, plannerName string) string {
	switch status {
	case models.RSVPYes:
		return fmt.Sprintf("🎉 Wonderful! I'll let %s know you're coming.", FirstName(plannerName))
	case models.RSVPNo:
		return fmt.Sprintf("Thanks for letting us know. I'll tell %s you can't make it.", FirstName(plannerName))
	default:
		return fmt.Sprintf("Got it, I'll tell %s you're a maybe.", FirstName(plannerName))
	}
}

// RSVPGuidance answers an RSVP reply that was not yes, no or maybe.
const RSVPGuidance = "Sorry, I didn't catch that. Please reply YES, NO, or MAYBE."

// RSVPNotice forwards a guest's RSVP to the planner.
func RSVPNotice(guestName string, status models.RSVPStatus) string {
	return fmt.Sprintf("📬 %s replied %s to your invitation.", guestName, strings.ToUpper(string(status)))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Replies for input a stage could not accept.
const (
	UnknownStage     = "Sorry, I lost track of where we were. Text 'reset' to start over."
	NeedGuests       = "Add at least one guest first, e.g. \"John 5105935336\"."
	GuestsNeedPhone  = "I need a phone number for each guest, e.g. \"John 5105935336\" or \"Mary (510) 555-0123\"."
	GuestsUnreadable = "I couldn't read that guest list. Text each guest's name and phone number, e.g. \"John 5105935336\"."
	NoSelf           = "That's your own number! Add your guests' names and numbers instead."
	NoContacts       = "You don't have any saved contacts yet. Text a guest's name and phone number, e.g. \"John 5105935336\"."
	DatesAmbiguous   = "Which month did you mean? Try a full date like \"8/29\" or \"August 29\"."
	DatesUnreadable  = "Sorry, I couldn't understand those dates. Try something like \"Saturday and Sunday\", \"12/15-12/17\", or \"next Friday\"."
	NoOverlap        = "No overlapping times yet. Text 'status' to see who's pending, 'remind' to nudge them, or 2 to add guests."
	AskVenueName     = "What's the name of the place?"
)

// GuestsNeedName asks for the name that goes with a bare number.
func GuestsNeedName(phone string) string {
	return fmt.Sprintf("Who is %s? Text their name with the number, e.g. \"John %s\".", phone, phone)
}

// NewPlan starts a fresh event after the previous one was finalized.
func NewPlan(contacts []models.Contact) string {
	return "✨ Let's plan something new!\n\n" + AskGuests(contacts)
}

// ContactsRemoved confirms removal and re-shows the menu.
func ContactsRemoved(names []string, contacts []models.Contact) string {
	msg := "🗑️ Removed " + JoinNames(names) + " from your contacts."
	if len(contacts) > 0 {
		msg += "\n\n" + ContactMenu(contacts)
	}
	return msg
}

// PickNumber answers an out-of-range or non-numeric menu reply.
func PickNumber(n int) string {
	if n == 1 {
		return "Please reply 1 to pick that option."
	}
	return fmt.Sprintf("Please reply with a number from 1 to %d.", n)
}

// NoResponsesYet answers a request for overlaps before anyone replied.
func NoResponsesYet(guests []models.Guest) string {
	return "Nobody has responded yet, so there's nothing to compare.\n\n" + Status(guests)
}

// StartTimeOutside rejects a start time outside the chosen window.
func StartTimeOutside(start, end models.Clock) string {
	return fmt.Sprintf("That's outside the chosen window. Pick a time between %s and %s.", Clock(start), Clock(end))
}

// AvailabilityRequested confirms new guests were asked for availability.
func AvailabilityRequested(names []string) string {
	return "📨 I've asked " + JoinNames(FirstNames(names)) + " for their availability."
}
