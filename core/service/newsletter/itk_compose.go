// Package newsletter drafts, renders, and dispatches the weekly email.
package newsletter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"itk_server/core/agent/llm"
	"itk_server/core/domain"
	"itk_server/core/port/out"
	"itk_server/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const writeSystemPrompt = "You are ITK's newsletter copywriter. Return strict minified JSON only."

const (
	providerSpotify = "spotify"
	providerGoogle  = "google"

	// pairsPerDraft / eventsPerPair bound the interest-sourced events pulled
	// into one draft; venue events fill the rest.
	pairsPerDraft      = 4
	eventsPerPair      = 2
	venueEventsLimit   = 8
	feedbackLinesLimit = 6
)

// VenueEventSource supplies the cached venue events for a city.
type VenueEventSource interface {
	GetCachedEvents(ctx context.Context, city string, limit int) ([]domain.Event, error)
}

// Composer drafts one newsletter per subscribed user from cached event data
// and optional personalization context.
type Composer struct {
	users       out.UserRepository
	hobbies     out.HobbyRepository
	goals       out.GoalRepository
	pairs       out.PairRepository
	newsletters out.NewsletterRepository
	feedback    out.FeedbackRepository
	oauthTokens out.OAuthTokenRepository
	venueEvents VenueEventSource
	music       out.MusicProvider
	calendar    out.CalendarProvider
	oracle      out.CompletionOracle
	renderer    *Renderer
	now         func() time.Time
}

func NewComposer(
	users out.UserRepository,
	hobbies out.HobbyRepository,
	goals out.GoalRepository,
	pairs out.PairRepository,
	newsletters out.NewsletterRepository,
	feedback out.FeedbackRepository,
	oauthTokens out.OAuthTokenRepository,
	venueEvents VenueEventSource,
	music out.MusicProvider,
	calendar out.CalendarProvider,
	oracle out.CompletionOracle,
	renderer *Renderer,
) *Composer {
	return &Composer{
		users:       users,
		hobbies:     hobbies,
		goals:       goals,
		pairs:       pairs,
		newsletters: newsletters,
		feedback:    feedback,
		oauthTokens: oauthTokens,
		venueEvents: venueEvents,
		music:       music,
		calendar:    calendar,
		oracle:      oracle,
		renderer:    renderer,
		now:         time.Now,
	}
}

// collectEvents gathers venue events first, then pair events, deduplicated.
// An empty result degrades to the single roundup placeholder so a draft is
// never card-less.
func (c *Composer) collectEvents(ctx context.Context, user *domain.User) []domain.Event {
	city := strings.ToLower(strings.TrimSpace(user.City))

	var venueEvents []domain.Event
	if c.venueEvents != nil {
		cached, err := c.venueEvents.GetCachedEvents(ctx, user.City, venueEventsLimit)
		if err != nil {
			logger.WithError(err).WithField("city", city).Warn("Venue event lookup failed, drafting without venue events")
		} else {
			venueEvents = cached
		}
	}

	var pairEvents []domain.Event
	pairs, err := c.pairs.ListByFrequency(ctx, city, pairsPerDraft)
	if err != nil {
		logger.WithError(err).WithField("city", city).Warn("Pair lookup failed, drafting without interest events")
	} else {
		for _, pair := range pairs {
			cached := pair.CachedResults
			if len(cached) > eventsPerPair {
				cached = cached[:eventsPerPair]
			}
			pairEvents = append(pairEvents, cached...)
		}
	}

	events := mergeEventSources(venueEvents, pairEvents)
	if len(events) == 0 {
		events = []domain.Event{{
			Name:     "City event roundup",
			Date:     "This week",
			Location: user.City,
			URL:      fallbackEventURL,
		}}
	}
	return events
}

// bearerToken fetches and unwraps a provider token; absence is normal.
func (c *Composer) bearerToken(ctx context.Context, userID uuid.UUID, provider string) string {
	if c.oauthTokens == nil {
		return ""
	}
	token, err := c.oauthTokens.GetByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return ""
	}
	return token.AccessToken
}

func (c *Composer) collectMusicContext(ctx context.Context, userID uuid.UUID) []out.Track {
	if c.music == nil {
		return nil
	}
	accessToken := c.bearerToken(ctx, userID, providerSpotify)
	if accessToken == "" {
		return nil
	}
	tracks, err := c.music.RecentTracks(ctx, accessToken)
	if err != nil {
		logger.WithError(err).Debug("Music context unavailable")
		return nil
	}
	return tracks
}

func (c *Composer) collectCalendarContext(ctx context.Context, userID uuid.UUID) []out.BusyWindow {
	if c.calendar == nil {
		return nil
	}
	accessToken := c.bearerToken(ctx, userID, providerGoogle)
	if accessToken == "" {
		return nil
	}
	windows, err := c.calendar.BusyWindows(ctx, accessToken)
	if err != nil {
		logger.WithError(err).Debug("Calendar context unavailable")
		return nil
	}
	return windows
}

type copyContext struct {
	user          *domain.User
	tags          []string
	hobbyRawText  string
	goalsRawText  string
	datingPref    string
	feedbackLines []string
	events        []domain.Event
	musicContext  []out.Track
	busyWindows   []out.BusyWindow
}

func writePrompt(cc copyContext) string {
	feedbackBlock := "- none yet"
	if len(cc.feedbackLines) > 0 {
		var lines []string
		for _, item := range cc.feedbackLines {
			lines = append(lines, "- "+item)
		}
		feedbackBlock = strings.Join(lines, "\n")
	}

	musicJSON, _ := json.Marshal(cc.musicContext)
	calendarJSON, _ := json.Marshal(cc.busyWindows)

	return "Create newsletter copy for a local-events product.\n" +
		"Return strict JSON with keys: subject, intro.\n" +
		"Constraints:\n" +
		"- Subject: 4-9 words, specific, intriguing, tweet-energy.\n" +
		"- Intro: exactly one sentence, <= 24 words.\n" +
		"- Voice: sharp, social, friend-in-a-group-chat. Natural Gen Z tone only.\n" +
		"- Never use: yo, vibe, doom-scrolling, fits your vibe, what's worth leaving the house for, fam.\n" +
		"- Use Gen Z slang naturally (not forced). Reference vocabulary: bet, no cap, bussin, fire, mid, " +
		"hits different, lowkey, high key, slay, ate, sending me, dead, cooked, dub, L, W, rizz, " +
		"pressed, shook, NGL, FR, FRFR, facts, say less, let them cook, receipts, rent free, " +
		"caught in 4k, extra, basic, cheugy, clapback, dank, dope, flex, fit, ghost, glow-up, " +
		"GOAT, hype, ick, IYKYK, LFG, lit, on point, periodt, pulling, salty, savage, shade, " +
		"ship, sick, slap, stan, sus, tea, thicc, W, yeet. Use sparingly and only where natural.\n" +
		"- Ground writing in real details from events, hobbies raw text, and goals raw text.\n" +
		fmt.Sprintf("User: name=%s, city=%s, concision=%s.\n", cc.user.Name, cc.user.City, cc.user.ConcisionPref) +
		fmt.Sprintf("Hobby tags (for event search, not writing style): %v\n", cc.tags) +
		fmt.Sprintf("Hobbies raw text (for personalization/tone): %s\n", cc.hobbyRawText) +
		fmt.Sprintf("Goals raw text (for personalization/tone): %s\n", cc.goalsRawText) +
		fmt.Sprintf("Dating preference context: %s\n", cc.datingPref) +
		fmt.Sprintf("Recent feedback from prior newsletters:\n%s\n", feedbackBlock) +
		fmt.Sprintf("Events:\n%s\n", eventDigest(cc.events)) +
		fmt.Sprintf("Spotify context: %s\n", string(musicJSON)) +
		fmt.Sprintf("Calendar busy windows: %s\n", string(calendarJSON))
}

// generateCopy asks the writing model for subject+intro and sanitizes both.
// Any oracle failure or malformed response degrades to the deterministic
// fallbacks, never an error.
func (c *Composer) generateCopy(ctx context.Context, cc copyContext) (string, string) {
	var subject, intro string
	response, err := c.oracle.Write(ctx, writePrompt(cc), writeSystemPrompt)
	if err != nil {
		logger.WithError(err).WithField("user_id", cc.user.ID.String()).Warn("Copy generation failed, using fallback copy")
	} else if response != "" {
		if parsed := llm.ExtractJSONObject(response); parsed != nil {
			if value, ok := parsed["subject"].(string); ok {
				subject = strings.TrimSpace(value)
			}
			if value, ok := parsed["intro"].(string); ok {
				intro = strings.TrimSpace(value)
			}
		}
	}
	return sanitizeSubject(subject, cc.user.City, cc.events), sanitizeIntro(intro, cc.user.City)
}

// DraftForUser assembles and persists one newsletter draft. Personalization
// context (music, calendar, feedback history) is strictly best-effort; only
// storage failures surface as errors.
func (c *Composer) DraftForUser(ctx context.Context, user *domain.User) (*domain.Newsletter, error) {
	var tags []string
	var hobbyRawText string
	if latestHobby, err := c.hobbies.LatestByUser(ctx, user.ID); err == nil {
		tags = latestHobby.ParsedTags
		hobbyRawText = latestHobby.RawText
	} else if err != out.ErrNotFound {
		return nil, err
	}

	var goalsRawText string
	var goalTypes []string
	if latestGoal, err := c.goals.LatestByUser(ctx, user.ID); err == nil {
		goalsRawText = latestGoal.RawText
		goalTypes = latestGoal.GoalTypes
	} else if err != out.ErrNotFound {
		return nil, err
	}

	events := c.collectEvents(ctx, user)

	var feedbackLines []string
	if c.feedback != nil {
		lines, err := c.feedback.RecentSummaries(ctx, user.ID, feedbackLinesLimit)
		if err != nil {
			logger.WithError(err).Debug("Feedback history unavailable")
		} else {
			feedbackLines = lines
		}
	}

	cc := copyContext{
		user:          user,
		tags:          tags,
		hobbyRawText:  hobbyRawText,
		goalsRawText:  goalsRawText,
		datingPref:    deriveDatingPreference(user, goalsRawText, goalTypes),
		feedbackLines: feedbackLines,
		events:        events,
		musicContext:  c.collectMusicContext(ctx, user.ID),
		busyWindows:   c.collectCalendarContext(ctx, user.ID),
	}

	subject, introLine := c.generateCopy(ctx, cc)

	generatedAt := c.now()
	html := c.renderer.Render(user.Name, user.City, introLine, events, generatedAt)
	if !strings.Contains(html, "<html") {
		fallbackIntro := fmt.Sprintf("Fresh picks around %s are in. Here is your clean, quick-hit lineup for the week.", user.City)
		html = c.renderer.Render(user.Name, user.City, fallbackIntro, events, generatedAt)
	}

	newsletter := &domain.Newsletter{
		UserID:         user.ID,
		Subject:        subject,
		HTMLContent:    html,
		EventsIncluded: events,
	}
	if err := c.newsletters.Insert(ctx, newsletter); err != nil {
		return nil, err
	}
	return newsletter, nil
}

// DraftUser drafts for a single user on demand. Unsubscribed users are
// skipped rather than erroring so a stale scheduler entry is harmless.
func (c *Composer) DraftUser(ctx context.Context, userID uuid.UUID) (int, error) {
	user, err := c.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !user.IsSubscribed {
		return 0, nil
	}
	if _, err := c.DraftForUser(ctx, user); err != nil {
		return 0, err
	}
	return 1, nil
}

// DraftAll drafts for every subscribed user sequentially, isolating per-user
// failures. Returns the number of successful drafts.
func (c *Composer) DraftAll(ctx context.Context) (int, error) {
	users, err := c.users.ListSubscribed(ctx)
	if err != nil {
		return 0, err
	}

	drafted := 0
	for _, user := range users {
		if _, err := c.DraftForUser(ctx, user); err != nil {
			logger.WithError(err).WithField("user_id", user.ID.String()).Error("Draft failed, continuing with remaining users")
			continue
		}
		drafted++
	}
	return drafted, nil
}
