package newsletter

import (
	"fmt"
	"strings"

	"itk_server/core/domain"
)

// subjectMaxLen and introMaxLen are hard output caps applied after all other
// sanitation.
const (
	subjectMaxLen = 78
	introMaxLen   = 190
)

var subjectBannedTerms = []string{
	"what's actually worth leaving the house for",
	"fits your vibe",
	"doom-scrolling",
	"doom scrolling",
}

var introBannedTerms = []string{
	" yo ",
	" vibe",
	"doom-scrolling",
	"doom scrolling",
	"fits your vibe",
	"what's worth leaving the house for",
}

// truncate collapses whitespace and cuts to limit with a trailing ellipsis.
func truncate(value string, limit int) string {
	cleaned := strings.Join(strings.Fields(value), " ")
	if len(cleaned) <= limit {
		return cleaned
	}
	cut := limit - 1
	if cut < 0 {
		cut = 0
	}
	return strings.TrimRight(cleaned[:cut], " ") + "..."
}

// sanitizeSubject enforces the house style on model-written subjects: no
// marketing cliches, single line, bounded length. Unusable subjects fall back
// to "<city>: <first event>".
func sanitizeSubject(subject, city string, events []domain.Event) string {
	candidate := strings.Trim(strings.Join(strings.Fields(strings.ReplaceAll(subject, "\n", " ")), " "), " -")
	lowered := strings.ToLower(candidate)

	banned := false
	for _, term := range subjectBannedTerms {
		if strings.Contains(lowered, term) {
			banned = true
			break
		}
	}
	if candidate == "" || banned {
		firstEvent := "weekend plans"
		if len(events) > 0 && strings.TrimSpace(events[0].Name) != "" {
			firstEvent = truncate(strings.TrimSpace(events[0].Name), 38)
		}
		candidate = fmt.Sprintf("%s: %s", city, firstEvent)
	}
	if len(candidate) > subjectMaxLen {
		candidate = truncate(candidate, subjectMaxLen)
	}
	return candidate
}

// firstSentence cuts at the first terminal punctuation mark followed by
// whitespace, then guarantees the result itself ends with one.
func firstSentence(text string) string {
	cleaned := strings.Join(strings.Fields(strings.ReplaceAll(text, "\n", " ")), " ")
	for i := 0; i < len(cleaned)-1; i++ {
		if (cleaned[i] == '.' || cleaned[i] == '!' || cleaned[i] == '?') && cleaned[i+1] == ' ' {
			cleaned = cleaned[:i+1]
			break
		}
	}
	cleaned = strings.TrimSpace(cleaned)
	if cleaned != "" && !strings.ContainsRune(".!?", rune(cleaned[len(cleaned)-1])) {
		cleaned += "."
	}
	return cleaned
}

// sanitizeIntro reduces the intro to one on-style sentence; anything banned
// or empty becomes the neutral city fallback.
func sanitizeIntro(intro, city string) string {
	sentence := firstSentence(intro)
	lowered := " " + strings.ToLower(sentence) + " "

	banned := false
	for _, term := range introBannedTerms {
		if strings.Contains(lowered, term) {
			banned = true
			break
		}
	}
	if sentence == "" || banned {
		return fmt.Sprintf("This week in %s has a few legit standouts that are actually worth your time.", city)
	}
	return truncate(sentence, introMaxLen)
}

// deriveDatingPreference resolves the explicit profile setting first, then
// infers from goal text. Users without a dating goal get "not_specified".
func deriveDatingPreference(user *domain.User, goalsRawText string, goalTypes []string) string {
	if user.DatingPreference != nil {
		explicit := strings.ToLower(strings.TrimSpace(*user.DatingPreference))
		switch explicit {
		case domain.DatingPrefDateNightSpots, domain.DatingPrefMeetingPeople, domain.DatingPrefBoth:
			return explicit
		}
	}

	hasDatingGoal := false
	for _, goal := range goalTypes {
		if strings.Contains(strings.ToLower(goal), "dating") {
			hasDatingGoal = true
			break
		}
	}
	if !hasDatingGoal {
		return domain.DatingPrefNotSpecified
	}

	haystack := strings.ToLower(goalsRawText)
	for _, term := range []string{"meet people", "singles", "speed dating", "mixer"} {
		if strings.Contains(haystack, term) {
			return domain.DatingPrefMeetingPeople
		}
	}
	for _, term := range []string{"partner", "boyfriend", "girlfriend", "wife", "husband", "date night"} {
		if strings.Contains(haystack, term) {
			return domain.DatingPrefDateNightSpots
		}
	}
	return domain.DatingPrefBoth
}

// mergeEventSources concatenates primary then secondary, dropping nameless
// events and (name, date, location) duplicates. First occurrence wins, so
// primary source fields survive a collision.
func mergeEventSources(primary, secondary []domain.Event) []domain.Event {
	var merged []domain.Event
	seen := make(map[string]bool)
	for _, event := range append(append([]domain.Event{}, primary...), secondary...) {
		if strings.TrimSpace(event.Name) == "" {
			continue
		}
		key := event.DedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, event)
	}
	return merged
}

// eventDigest is the compact plain-text listing fed to the writing model.
func eventDigest(events []domain.Event) string {
	var rows []string
	for _, event := range events {
		if len(rows) == 6 {
			break
		}
		name := truncate(strings.TrimSpace(event.Name), 70)
		if name == "" {
			name = "Event"
		}
		date := truncate(strings.TrimSpace(event.Date), 45)
		if date == "" {
			date = "TBA"
		}
		location := truncate(strings.TrimSpace(event.Location), 50)
		if location == "" {
			location = "Local"
		}
		why := truncate(strings.TrimSpace(event.Description), 90)
		rows = append(rows, fmt.Sprintf("- %s | %s | %s | %s", name, date, location, why))
	}
	return strings.Join(rows, "\n")
}
