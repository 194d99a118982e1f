// Package events runs the cached external event search over the frequency
// ranked (tag, city) aggregate.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"itk_server/core/agent/llm"
	"itk_server/core/domain"
	"itk_server/core/port/out"
	"itk_server/pkg/logger"
)

const searchSystemPrompt = "You are an event discovery assistant. " +
	"Return a strict JSON array of event objects with fields: " +
	"name, date, location, address, price, description, url, category. " +
	"No prose outside the JSON."

const placeholderEventURL = "https://itk-so.vercel.app/sample-event"

// SearchSummary reports what one search pass did. Failures are contained
// per pair and never abort the pass.
type SearchSummary struct {
	PairsProcessed int `json:"pairs_processed"`
	FreshHits      int `json:"fresh_hits"`
	OracleCalls    int `json:"oracle_calls"`
	EventsStored   int `json:"events_stored"`
	Failures       int `json:"failures"`
}

type Service struct {
	pairs     out.PairRepository
	oracle    out.CompletionOracle
	freshness time.Duration
	pairLimit int
	now       func() time.Time
}

func NewService(pairs out.PairRepository, oracle out.CompletionOracle, freshness time.Duration, pairLimit int) *Service {
	return &Service{
		pairs:     pairs,
		oracle:    oracle,
		freshness: freshness,
		pairLimit: pairLimit,
		now:       time.Now,
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// placeholderEvents keeps a pair's cache non-empty when the oracle produced
// nothing usable, so downstream composition always has material.
func placeholderEvents(pair *domain.HobbyCityPair) []domain.Event {
	return []domain.Event{{
		Name:        fmt.Sprintf("Local %s Meetup", titleCase(pair.TagName)),
		Date:        "TBD",
		Location:    titleCase(pair.City),
		Description: fmt.Sprintf("A recurring gathering for %s fans. Details land closer to the date.", pair.TagName),
		URL:         placeholderEventURL,
		Category:    pair.TagName,
		SourceHobby: pair.TagName,
	}}
}

func (s *Service) searchPrompt(pair *domain.HobbyCityPair) string {
	template := pair.SearchPromptTemplate
	if template == "" {
		template = fmt.Sprintf("Find upcoming %s events in {city} this week", pair.TagName)
	}
	return strings.ReplaceAll(template, "{city}", pair.City)
}

// SearchPair refreshes one pair's event cache. A fresh cache is returned as
// is with no oracle call. Every oracle attempt stamps last_searched so a
// broken pair cannot be retried in a hot loop inside the window.
func (s *Service) SearchPair(ctx context.Context, pair *domain.HobbyCityPair) ([]domain.Event, bool, error) {
	now := s.now()
	if pair.IsFresh(now, s.freshness) {
		return pair.CachedResults, true, nil
	}

	response, err := s.oracle.Search(ctx, s.searchPrompt(pair), searchSystemPrompt)
	if err != nil {
		return nil, false, err
	}

	events := parseEvents(response, pair.TagName)
	if len(events) == 0 {
		events = placeholderEvents(pair)
	}

	if err := s.pairs.UpdateCache(ctx, pair.ID, events, now); err != nil {
		return nil, false, err
	}
	return events, false, nil
}

// parseEvents maps a raw oracle response into tagged events. Objects without
// a usable name are dropped; an unparseable response yields nil.
func parseEvents(response, sourceHobby string) []domain.Event {
	var events []domain.Event
	for _, raw := range llm.ExtractJSONArray(response) {
		event, ok := domain.EventFromWire(raw)
		if !ok {
			continue
		}
		event.SourceHobby = sourceHobby
		events = append(events, event)
	}
	return events
}

// SearchCity refreshes caches for the top pairs of one city, most frequent
// first. Pass city == "" to run over every city.
func (s *Service) SearchCity(ctx context.Context, city string) (*SearchSummary, error) {
	return s.SearchCityLimited(ctx, city, 0)
}

// SearchCityLimited is SearchCity with a per-call pair cap. limit <= 0 uses
// the configured default.
func (s *Service) SearchCityLimited(ctx context.Context, city string, limit int) (*SearchSummary, error) {
	if limit <= 0 {
		limit = s.pairLimit
	}
	city = strings.ToLower(strings.TrimSpace(city))
	pairs, err := s.pairs.ListByFrequency(ctx, city, limit)
	if err != nil {
		return nil, err
	}

	summary := &SearchSummary{}
	for _, pair := range pairs {
		summary.PairsProcessed++
		events, fresh, err := s.SearchPair(ctx, pair)
		if err != nil {
			summary.Failures++
			logger.WithError(err).WithFields(map[string]interface{}{
				"tag":  pair.TagName,
				"city": pair.City,
			}).Warn("Pair search failed, continuing with remaining pairs")
			continue
		}
		if fresh {
			summary.FreshHits++
			continue
		}
		summary.OracleCalls++
		summary.EventsStored += len(events)
	}
	return summary, nil
}

// SearchAll refreshes caches across all cities.
func (s *Service) SearchAll(ctx context.Context) (*SearchSummary, error) {
	return s.SearchCity(ctx, "")
}
