// Package parser turns free-text SMS bodies into structured values: guest
// entries, proposed dates, availability windows and start times.
package parser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sms-planner/internal/models"

	"github.com/rs/zerolog"
)

// Kind selects a sub-parser.
type Kind string

const (
	KindGuests        Kind = "guest_tokens"
	KindDates         Kind = "dates"
	KindAvailability  Kind = "availability"
	KindTimeSelection Kind = "time_selection"
)

// Reason explains a parse failure.
type Reason string

const (
	ReasonNeedsPhone    Reason = "needs_phone"
	ReasonNeedsName     Reason = "needs_name"
	ReasonAmbiguous     Reason = "ambiguous"
	ReasonUnrecognized  Reason = "unrecognized"
	ReasonOutsideDates  Reason = "outside_dates"
	ReasonOutsideWindow Reason = "outside_window"
	ReasonEmpty         Reason = "empty"
)

// Failure is returned for input the parser could not accept.
type Failure struct {
	Kind   Kind
	Reason Reason
	Detail string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("parse %s: %s", f.Kind, f.Reason)
	}
	return fmt.Sprintf("parse %s: %s: %q", f.Kind, f.Reason, f.Detail)
}

func fail(kind Kind, reason Reason, detail string) error {
	return &Failure{Kind: kind, Reason: reason, Detail: detail}
}

// AsFailure unwraps a parse failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Context is what the parsers know about the conversation.
// WindowStart/WindowEnd bound time selection; both zero means unbounded.
type Context struct {
	Today         time.Time
	ProposedDates []time.Time
	WindowStart   models.Clock
	WindowEnd     models.Clock
}

func (c Context) today() time.Time {
	if c.Today.IsZero() {
		return time.Now()
	}
	return c.Today
}

// Oracle is a chat-completion endpoint used when the deterministic parsers
// give up.
type Oracle interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Result holds whichever field matches the requested Kind.
type Result struct {
	Guests       []GuestEntry
	Dates        []time.Time
	Availability Availability
	Time         models.Clock
}

// Parser is the single entry point used by the handlers.
type Parser struct {
	oracle  Oracle
	timeout time.Duration
	log     zerolog.Logger
}

// New creates a Parser. oracle may be nil.
func New(oracle Oracle, timeout time.Duration, log zerolog.Logger) *Parser {
	return &Parser{oracle: oracle, timeout: timeout, log: log}
}

// Parse dispatches text to the sub-parser for kind.
func (p *Parser) Parse(ctx context.Context, kind Kind, text string, pctx Context) (Result, error) {
	switch kind {
	case KindGuests:
		g, err := p.Guests(ctx, text)
		return Result{Guests: g}, err
	case KindDates:
		d, err := p.Dates(ctx, text, pctx)
		return Result{Dates: d}, err
	case KindAvailability:
		a, err := p.Availability(text, pctx)
		return Result{Availability: a}, err
	case KindTimeSelection:
		c, err := p.StartTime(text, pctx)
		return Result{Time: c}, err
	}
	return Result{}, fmt.Errorf("unknown parse kind %q", kind)
}

// Guests reads name/phone pairs, asking the oracle only when the regex
// patterns found nothing usable.
func (p *Parser) Guests(ctx context.Context, text string) ([]GuestEntry, error) {
	entries, err := ParseGuests(text)
	if err == nil || p.oracle == nil {
		return entries, err
	}
	f, _ := AsFailure(err)
	if f != nil && f.Reason == ReasonNeedsPhone && !hasPhoneDigits(text) {
		// The oracle cannot invent a phone number.
		return nil, err
	}

	got, oerr := p.oracleGuests(ctx, text)
	if oerr != nil {
		p.log.Warn().Err(oerr).Msg("oracle guest parse failed, using regex result")
		return nil, err
	}
	return got, nil
}

// Dates reads proposed dates, falling back to the oracle.
func (p *Parser) Dates(ctx context.Context, text string, pctx Context) ([]time.Time, error) {
	dates, err := ParseDates(text, pctx)
	if err == nil || p.oracle == nil {
		return dates, err
	}

	got, oerr := p.oracleDates(ctx, text, pctx)
	if oerr != nil {
		p.log.Warn().Err(oerr).Msg("oracle date parse failed, using regex result")
		return nil, err
	}
	return got, nil
}

// Availability never consults the oracle: validation is by closed lexicon.
func (p *Parser) Availability(text string, pctx Context) (Availability, error) {
	return ParseAvailability(text, pctx)
}

// StartTime reads a start time inside the chosen window.
func (p *Parser) StartTime(text string, pctx Context) (models.Clock, error) {
	return ParseStartTime(text, pctx)
}

func (p *Parser) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.timeout)
}
