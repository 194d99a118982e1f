// Package hobby turns raw free-text interest statements into canonical tags
// and maintains the frequency-weighted (tag, city) aggregate.
package hobby

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"itk_server/core/agent/llm"
	"itk_server/core/domain"
	"itk_server/core/port/out"
	"itk_server/pkg/logger"

	"github.com/google/uuid"
)

const maxTags = 12

var wordSplitRe = regexp.MustCompile(`[,;\n]+`)

type Service struct {
	users   out.UserRepository
	hobbies out.HobbyRepository
	tags    out.TagRepository
	pairs   out.PairRepository
	oracle  out.CompletionOracle
}

func NewService(
	users out.UserRepository,
	hobbies out.HobbyRepository,
	tags out.TagRepository,
	pairs out.PairRepository,
	oracle out.CompletionOracle,
) *Service {
	return &Service{
		users:   users,
		hobbies: hobbies,
		tags:    tags,
		pairs:   pairs,
		oracle:  oracle,
	}
}

// heuristicTags splits raw text on commas/semicolons/newlines, normalizes
// whitespace and trailing punctuation, and keeps 2-32 char tokens.
func heuristicTags(rawText string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, part := range wordSplitRe.Split(strings.ToLower(rawText), -1) {
		normalized := strings.Trim(strings.Join(strings.Fields(part), " "), " .")
		if len(normalized) < 2 || len(normalized) > 32 || seen[normalized] {
			continue
		}
		seen[normalized] = true
		tags = append(tags, normalized)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

// ExtractTags returns up to 12 deduplicated lowercase interest tags for the
// given text. The oracle path is primary; any unusable response degrades to
// the heuristic splitter. This never fails on malformed model output.
func (s *Service) ExtractTags(ctx context.Context, rawText string) []string {
	prompt := fmt.Sprintf(
		"Extract up to 12 concise hobby tags from this text. "+
			"Return valid JSON array of lowercase strings only. Text:\n%s", rawText)

	response, err := s.oracle.Chat(ctx, prompt, "Return strict JSON only.")
	if err != nil {
		logger.WithError(err).Warn("Tag extraction oracle call failed, using heuristic")
		return heuristicTags(rawText)
	}
	if response == "" {
		return heuristicTags(rawText)
	}

	candidates := llm.ExtractStringList(response)
	if candidates == nil {
		return heuristicTags(rawText)
	}

	var tags []string
	seen := make(map[string]bool)
	for _, candidate := range candidates {
		cleaned := strings.ToLower(strings.TrimSpace(candidate))
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		tags = append(tags, cleaned)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}

func (s *Service) getOrCreateTag(ctx context.Context, tagName string) (*domain.HobbyTag, error) {
	existing, err := s.tags.GetByName(ctx, tagName)
	if err == nil {
		return existing, nil
	}
	if err != out.ErrNotFound {
		return nil, err
	}

	tag := &domain.HobbyTag{
		TagName:      tagName,
		SearchPrompt: fmt.Sprintf("Find upcoming %s events in {city} this week", tagName),
	}
	if err := s.tags.Create(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

// UpsertPairs accumulates per-call occurrence counts of each tag into the
// (tag, city) aggregate. Frequency only ever increases.
func (s *Service) UpsertPairs(ctx context.Context, city string, tags []string) error {
	cityNormalized := strings.ToLower(strings.TrimSpace(city))

	counts := make(map[string]int)
	var order []string
	for _, tagName := range tags {
		if counts[tagName] == 0 {
			order = append(order, tagName)
		}
		counts[tagName]++
	}

	for _, tagName := range order {
		tag, err := s.getOrCreateTag(ctx, tagName)
		if err != nil {
			return err
		}

		pair, err := s.pairs.GetByTagAndCity(ctx, tag.ID, cityNormalized)
		if err == out.ErrNotFound {
			err = s.pairs.Create(ctx, &domain.HobbyCityPair{
				HobbyTagID: tag.ID,
				TagName:    tagName,
				City:       cityNormalized,
				Frequency:  counts[tagName],
			})
			if err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}

		if err := s.pairs.IncrementFrequency(ctx, pair.ID, counts[tagName]); err != nil {
			return err
		}
	}
	return nil
}

// ParseAndStore extracts tags from the user's latest interest statement,
// records them on that statement, and folds them into the city aggregate.
// Returns out.ErrNotFound when the user does not exist; a user with no
// statement yields no tags and no mutation.
func (s *Service) ParseAndStore(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest, err := s.hobbies.LatestByUser(ctx, userID)
	if err == out.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tags := s.ExtractTags(ctx, latest.RawText)
	if err := s.hobbies.UpdateParsedTags(ctx, latest.ID, tags); err != nil {
		return nil, err
	}
	if err := s.UpsertPairs(ctx, user.City, tags); err != nil {
		return nil, err
	}
	return tags, nil
}
