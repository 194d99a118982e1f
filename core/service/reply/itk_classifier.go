package reply

import (
	"context"
	"fmt"
	"strings"

	"itk_server/core/agent/llm"
	"itk_server/core/domain"
	"itk_server/core/port/out"
	"itk_server/pkg/logger"

	"github.com/goccy/go-json"
)

const classifySystemPrompt = "You are an email-reply intent classifier for ITK. Return strict JSON only."

// maxInterestsPerReply caps how many interests one reply can add or remove.
const maxInterestsPerReply = 12

// Result is one classified reply. RewrittenFeedback is always populated,
// whatever the intent.
type Result struct {
	Intent            string   `json:"intent"`
	AddInterests      []string `json:"add_interests"`
	RemoveInterests   []string `json:"remove_interests"`
	FeedbackType      string   `json:"feedback_type"`
	RewrittenFeedback string   `json:"rewritten_feedback"`
}

// Classifier turns raw reply text into a Result, degrading through three
// tiers: blank short-circuit, model classification, keyword heuristic.
type Classifier struct {
	oracle out.CompletionOracle
}

func NewClassifier(oracle out.CompletionOracle) *Classifier {
	return &Classifier{oracle: oracle}
}

// heuristicResult is the deterministic keyword classifier used when the
// model response is missing or invalid.
func heuristicResult(replyText string) Result {
	lowered := " " + strings.ToLower(replyText) + " "

	for _, token := range []string{" unsubscribe", " stop ", " remove me", " no longer"} {
		if strings.Contains(lowered, token) {
			return Result{
				Intent:            domain.IntentUnsubscribe,
				FeedbackType:      domain.FeedbackPreference,
				RewrittenFeedback: "User asked to unsubscribe from ITK newsletter emails.",
			}
		}
	}

	removeIntent := false
	for _, token := range []string{" less ", " no ", " don't", "do not", "remove", "without"} {
		if strings.Contains(lowered, token) {
			removeIntent = true
			break
		}
	}
	addIntent := false
	for _, token := range []string{" more ", " add ", " include", "also", "into"} {
		if strings.Contains(lowered, token) {
			addIntent = true
			break
		}
	}

	if addIntent && !removeIntent {
		return Result{
			Intent:            domain.IntentAddInterests,
			FeedbackType:      domain.FeedbackPreference,
			RewrittenFeedback: "User asked to add new interests based on this reply.",
		}
	}
	if removeIntent && !addIntent {
		return Result{
			Intent:            domain.IntentRemoveInterests,
			FeedbackType:      domain.FeedbackPreference,
			RewrittenFeedback: "User asked to remove specific interests based on this reply.",
		}
	}

	feedbackType := domain.FeedbackSuggestion
	for _, token := range []string{" not ", " didn't", "didnt", "bad", "hate"} {
		if strings.Contains(lowered, token) {
			feedbackType = domain.FeedbackNegative
			break
		}
	}
	return Result{
		Intent:            domain.IntentFeedback,
		FeedbackType:      feedbackType,
		RewrittenFeedback: "User feedback summary: " + strings.TrimSpace(replyText),
	}
}

func classifyPrompt(replyText string, newsletter *domain.Newsletter, user *domain.User) string {
	var contextLines []string
	if user != nil {
		contextLines = append(contextLines,
			"user_city="+user.City,
			"user_name="+user.Name,
		)
	}
	if newsletter != nil {
		events := newsletter.EventsIncluded
		if len(events) > 5 {
			events = events[:5]
		}
		eventsJSON, _ := json.Marshal(events)
		contextLines = append(contextLines,
			"newsletter_id="+newsletter.ID.String(),
			"newsletter_subject="+newsletter.Subject,
			"newsletter_events="+string(eventsJSON),
		)
	}
	contextBlock := "none"
	if len(contextLines) > 0 {
		contextBlock = strings.Join(contextLines, " | ")
	}

	return "Read an inbound newsletter reply and classify intent.\n" +
		"Return strict JSON object with keys:\n" +
		"- intent: one of add_interests, remove_interests, unsubscribe, feedback\n" +
		"- add_interests: array of concise strings\n" +
		"- remove_interests: array of concise strings\n" +
		"- feedback_type: one of positive, negative, preference, suggestion\n" +
		"- rewritten_feedback: a clear context-rich rewrite of user intent with newsletter/city details when relevant\n" +
		"If intent is not feedback, still provide rewritten_feedback as a concise contextual summary.\n" +
		fmt.Sprintf("Context: %s\n", contextBlock) +
		fmt.Sprintf("Raw reply:\n%s\n", replyText)
}

// normalizeInterests lowercases, dedupes preserving order, and caps.
func normalizeInterests(values []any) []string {
	var interests []string
	seen := make(map[string]bool)
	for _, value := range values {
		str, ok := value.(string)
		if !ok {
			continue
		}
		cleaned := strings.ToLower(strings.TrimSpace(str))
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		interests = append(interests, cleaned)
		if len(interests) == maxInterestsPerReply {
			break
		}
	}
	return interests
}

// Classify returns the intent and rewritten feedback for one reply. A blank
// reply is minimal-content feedback without a model call; any invalid model
// output falls back to the keyword heuristic.
func (c *Classifier) Classify(ctx context.Context, replyText string, newsletter *domain.Newsletter, user *domain.User) Result {
	if strings.TrimSpace(replyText) == "" {
		return Result{
			Intent:            domain.IntentFeedback,
			FeedbackType:      domain.FeedbackSuggestion,
			RewrittenFeedback: "User replied with minimal content and no explicit request.",
		}
	}

	response, err := c.oracle.Chat(ctx, classifyPrompt(replyText, newsletter, user), classifySystemPrompt)
	if err != nil {
		logger.WithError(err).Warn("Reply classification oracle call failed, using heuristic")
		return heuristicResult(replyText)
	}

	parsed := llm.ExtractJSONObject(response)
	if parsed == nil {
		return heuristicResult(replyText)
	}

	intent, _ := parsed["intent"].(string)
	intent = strings.ToLower(strings.TrimSpace(intent))
	if !domain.ValidIntent(intent) {
		return heuristicResult(replyText)
	}

	var addInterests, removeInterests []string
	if values, ok := parsed["add_interests"].([]any); ok {
		addInterests = normalizeInterests(values)
	}
	if values, ok := parsed["remove_interests"].([]any); ok {
		removeInterests = normalizeInterests(values)
	}

	feedbackType, _ := parsed["feedback_type"].(string)
	feedbackType = strings.ToLower(strings.TrimSpace(feedbackType))
	if !domain.ValidFeedbackType(feedbackType) {
		feedbackType = domain.FeedbackSuggestion
	}

	rewritten, _ := parsed["rewritten_feedback"].(string)
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		rewritten = heuristicResult(replyText).RewrittenFeedback
	}

	return Result{
		Intent:            intent,
		AddInterests:      addInterests,
		RemoveInterests:   removeInterests,
		FeedbackType:      feedbackType,
		RewrittenFeedback: rewritten,
	}
}
