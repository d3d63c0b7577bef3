// Package venue suggests places for the chosen activity using the chat
// oracle, with a Redis cache and a curated fallback list.
package venue

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"sms-planner/internal/models"

	"github.com/rs/zerolog"
)

// MaxSuggestions is the number of venues offered per list.
const MaxSuggestions = 3

const systemPrompt = `You recommend real venues for a group outing.
Reply with JSON only: {"venues":[{"name":"...","description":"one short sentence","link":"https://..."}]}.
Return exactly 3 venues located in the given area. Never repeat an excluded venue.`

// Oracle is the chat-completion endpoint.
type Oracle interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Service produces venue suggestions. oracle and cache may be nil.
type Service struct {
	oracle  Oracle
	cache   KVStore
	ttl     time.Duration
	timeout time.Duration
	log     zerolog.Logger
}

// NewService creates a venue suggester.
func NewService(oracle Oracle, cache KVStore, ttl, timeout time.Duration, log zerolog.Logger) *Service {
	return &Service{oracle: oracle, cache: cache, ttl: ttl, timeout: timeout, log: log}
}

// Suggest returns between one and MaxSuggestions venues, never one whose
// name is in exclusions unless the curated list is exhausted.
func (s *Service) Suggest(ctx context.Context, activity, location string, exclusions []string) []models.Venue {
	key := cacheKey(activity, location, exclusions)

	if s.cache != nil {
		if venues, err := s.cached(ctx, key); err == nil {
			return venues
		} else if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn().Err(err).Msg("Venue cache read failed")
		}
	}

	if s.oracle != nil {
		venues, err := s.ask(ctx, activity, location, exclusions)
		if err == nil && len(venues) > 0 {
			s.store(ctx, key, venues)
			return venues
		}
		s.log.Warn().Err(err).Str("activity", activity).Msg("Venue oracle failed, using curated list")
	}

	return Fallback(activity, location, exclusions, MaxSuggestions)
}

func (s *Service) ask(ctx context.Context, activity, location string, exclusions []string) ([]models.Venue, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf("Activity: %s\nArea: %s", activity, location)
	if len(exclusions) > 0 {
		prompt += "\nExclude: " + strings.Join(exclusions, "; ")
	}
	reply, err := s.oracle.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to query venue oracle: %w", err)
	}

	start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, errors.New("venue oracle reply has no JSON object")
	}
	var payload struct {
		Venues []models.Venue `json:"venues"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode venue oracle reply: %w", err)
	}

	var out []models.Venue
	for _, v := range payload.Venues {
		v.Name = strings.TrimSpace(v.Name)
		if v.Name == "" || excluded(v.Name, exclusions) {
			continue
		}
		if !validLink(v.Link) {
			v.Link = MapsLink(v.Name, location)
		}
		out = append(out, v)
		if len(out) == MaxSuggestions {
			break
		}
	}
	return out, nil
}

func (s *Service) cached(ctx context.Context, key string) ([]models.Venue, error) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var venues []models.Venue
	if err := json.Unmarshal([]byte(raw), &venues); err != nil || len(venues) == 0 {
		return nil, ErrCacheMiss
	}
	return venues, nil
}

func (s *Service) store(ctx context.Context, key string, venues []models.Venue) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(venues)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(b), s.ttl); err != nil {
		s.log.Warn().Err(err).Msg("Venue cache write failed")
	}
}

func cacheKey(activity, location string, exclusions []string) string {
	ex := make([]string, len(exclusions))
	for i, e := range exclusions {
		ex[i] = strings.ToLower(strings.TrimSpace(e))
	}
	sort.Strings(ex)
	h := sha1.Sum([]byte(strings.ToLower(strings.TrimSpace(activity)) + "|" +
		strings.ToLower(strings.TrimSpace(location)) + "|" + strings.Join(ex, "|")))
	return "venues:" + hex.EncodeToString(h[:])
}

func validLink(link string) bool {
	u, err := url.Parse(link)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// MapsLink builds a map search link for a venue name.
func MapsLink(name, location string) string {
	q := strings.TrimPrefix(strings.TrimPrefix(name, "A "), "An ")
	if location != "" {
		q += " near " + location
	}
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(q)
}
