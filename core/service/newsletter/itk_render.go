package newsletter

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"
	"time"

	"itk_server/core/domain"
)

const fallbackEventURL = "https://itk-so.vercel.app"

// renderedEventsCap bounds how many merged events make it into the email.
const renderedEventsCap = 8

var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"Music", []string{"music", "concert", "dj", "band", "show", "live"}},
	{"Food", []string{"food", "tasting", "brunch", "dinner", "restaurant", "market"}},
	{"Social", []string{"mixer", "social", "networking", "meetup", "singles"}},
	{"Outdoors", []string{"hike", "run", "trail", "outdoor", "park", "bike"}},
	{"Arts", []string{"gallery", "museum", "art", "film", "photo", "theater"}},
	{"Fitness", []string{"fitness", "yoga", "pilates", "workout", "wellness"}},
}

var categoryEmojis = map[string]string{
	"music":    "\U0001F3B5",
	"food":     "\U0001F37D️",
	"social":   "\U0001F91D",
	"outdoors": "\U0001F33F",
	"arts":     "\U0001F3A8",
	"fitness":  "\U0001F4AA",
}

// inferCategory prefers the event's own category field, then keyword-matches
// name and description. Everything else lands in Featured.
func inferCategory(event domain.Event) string {
	if raw := strings.TrimSpace(event.Category); raw != "" {
		return titleWords(raw)
	}
	haystack := strings.ToLower(event.Name + " " + event.Description)
	for _, entry := range categoryKeywords {
		for _, word := range entry.words {
			if strings.Contains(haystack, word) {
				return entry.category
			}
		}
	}
	return "Featured"
}

func categoryEmoji(category string) string {
	if emoji, ok := categoryEmojis[strings.ToLower(category)]; ok {
		return emoji
	}
	return "✨"
}

func titleWords(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

// inferPriceIndicator maps free-form price text onto the Free/$..$$$$ scale.
// Dollar amounts bucket at 15/40/100; unparseable text defaults to $$.
func inferPriceIndicator(event domain.Event) string {
	for _, raw := range []string{event.Price} {
		cleaned := strings.ToLower(strings.TrimSpace(raw))
		if cleaned == "" {
			continue
		}
		switch cleaned {
		case "$", "$$", "$$$", "$$$$":
			return cleaned
		}
		if strings.Contains(cleaned, "free") {
			return "Free"
		}
		var digits strings.Builder
		for _, ch := range cleaned {
			if (ch >= '0' && ch <= '9') || ch == '.' {
				digits.WriteRune(ch)
			}
		}
		if digits.Len() == 0 {
			continue
		}
		amount, err := strconv.ParseFloat(digits.String(), 64)
		if err != nil {
			continue
		}
		switch {
		case amount == 0:
			return "Free"
		case amount <= 15:
			return "$"
		case amount <= 40:
			return "$$"
		case amount <= 100:
			return "$$$"
		default:
			return "$$$$"
		}
	}
	return "$$"
}

// eventCard is the normalized, length-bounded shape rendered into one card.
type eventCard struct {
	Name     string
	Date     string
	Location string
	Price    string
	Summary  string
	URL      string
	CTA      string
}

type eventGroup struct {
	Category string
	Events   []eventCard
}

// buildEventGroups caps, normalizes, and groups events by inferred category,
// preserving first-seen category order. An empty input yields the single
// "City event roundup" placeholder card.
func buildEventGroups(events []domain.Event, city string) []eventGroup {
	capped := events
	if len(capped) > renderedEventsCap {
		capped = capped[:renderedEventsCap]
	}

	byCategory := make(map[string]int)
	var groups []eventGroup
	for _, event := range capped {
		name := truncate(strings.TrimSpace(event.Name), 90)
		if name == "" {
			name = "Event"
		}
		date := strings.TrimSpace(event.Date)
		if date == "" {
			date = "Date TBA"
		}
		location := truncate(strings.TrimSpace(event.Location), 80)
		if location == "" {
			location = city
		}
		summary := strings.TrimSpace(event.Description)
		if summary == "" {
			summary = "Worth checking out this week."
		}
		eventURL := strings.TrimSpace(event.URL)
		if eventURL == "" {
			eventURL = fallbackEventURL
		}
		cta := strings.TrimSpace(event.CTA)
		if cta == "" {
			cta = "Check it out"
		}

		card := eventCard{
			Name:     name,
			Date:     date,
			Location: location,
			Price:    inferPriceIndicator(event),
			Summary:  truncate(summary, 170),
			URL:      eventURL,
			CTA:      cta,
		}

		category := inferCategory(event)
		idx, ok := byCategory[category]
		if !ok {
			byCategory[category] = len(groups)
			groups = append(groups, eventGroup{Category: category})
			idx = len(groups) - 1
		}
		groups[idx].Events = append(groups[idx].Events, card)
	}

	if len(groups) == 0 {
		groups = []eventGroup{{
			Category: "Featured",
			Events: []eventCard{{
				Name:     "City event roundup",
				Date:     "This week",
				Location: city,
				Price:    "$$",
				Summary:  "Fresh picks are loading in now. Open ITK for the latest schedule.",
				URL:      fallbackEventURL,
				CTA:      "Check it out",
			}},
		}}
	}
	return groups
}

// Renderer produces the inline-styled email HTML.
type Renderer struct {
	appURL    string
	fromEmail string
}

func NewRenderer(appURL, fromEmail string) *Renderer {
	return &Renderer{appURL: strings.TrimRight(appURL, "/"), fromEmail: fromEmail}
}

// extractEmailAddress pulls the bare address out of "Name <addr>" forms.
func extractEmailAddress(value string) string {
	if start := strings.Index(value, "<"); start >= 0 {
		if end := strings.Index(value[start:], ">"); end > 0 {
			return strings.TrimSpace(value[start+1 : start+end])
		}
	}
	return strings.TrimSpace(value)
}

func renderCard(card eventCard) string {
	var b strings.Builder
	b.WriteString(`<tr><td style="padding:0 0 16px 0;">`)
	b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="border:1px solid #dbe5ff;border-radius:14px;background:#f8faff;">`)
	b.WriteString(`<tr><td style="padding:16px 16px 10px 16px;">`)
	b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr>`)
	fmt.Fprintf(&b, `<td style="font-size:20px;line-height:1.2;font-weight:700;color:#111827;">%s</td>`, html.EscapeString(card.Name))
	fmt.Fprintf(&b, `<td align="right" style="font-size:13px;font-weight:700;color:#1d4ed8;white-space:nowrap;">%s</td>`, html.EscapeString(card.Price))
	b.WriteString(`</tr></table>`)
	fmt.Fprintf(&b, `<p style="margin:10px 0 0 0;font-size:14px;line-height:1.5;color:#334155;">`+"\U0001F5D3️"+` %s</p>`, html.EscapeString(card.Date))
	fmt.Fprintf(&b, `<p style="margin:4px 0 0 0;font-size:14px;line-height:1.5;color:#334155;">`+"\U0001F4CD"+` %s</p>`, html.EscapeString(card.Location))
	fmt.Fprintf(&b, `<p style="margin:10px 0 0 0;font-size:15px;line-height:1.55;color:#111827;">%s</p>`, html.EscapeString(card.Summary))
	fmt.Fprintf(&b, `<p style="margin:14px 0 0 0;"><a href="%s" style="display:inline-block;background:#1d4ed8;color:#ffffff;text-decoration:none;font-size:14px;font-weight:700;padding:10px 14px;border-radius:10px;">%s</a></p>`,
		html.EscapeString(card.URL), html.EscapeString(card.CTA))
	b.WriteString(`</td></tr></table></td></tr>`)
	return b.String()
}

func renderSection(group eventGroup) string {
	var b strings.Builder
	b.WriteString(`<tr><td style="padding:2px 0 12px 0;">`)
	b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr>`)
	fmt.Fprintf(&b, `<td style="font-size:13px;font-weight:800;letter-spacing:0.04em;text-transform:uppercase;color:#1d4ed8;">%s %s</td>`,
		categoryEmoji(group.Category), html.EscapeString(group.Category))
	b.WriteString(`<td style="border-bottom:1px solid #dbe5ff;">&nbsp;</td>`)
	b.WriteString(`</tr></table></td></tr>`)
	for _, card := range group.Events {
		b.WriteString(renderCard(card))
	}
	return b.String()
}

// Render produces the full newsletter document. Output is self-contained
// table layout with inline styles, safe for email clients.
func (r *Renderer) Render(userName, city, introLine string, events []domain.Event, generatedAt time.Time) string {
	fromEmail := extractEmailAddress(r.fromEmail)
	unsubscribeURL := fmt.Sprintf("%s/unsubscribe?email=%s", r.appURL, url.QueryEscape(fromEmail))
	groups := buildEventGroups(events, city)

	var sections strings.Builder
	for _, group := range groups {
		sections.WriteString(renderSection(group))
	}

	preview := html.EscapeString(truncate(introLine, 90))
	cityDisplay := html.EscapeString(city)
	issueDate := html.EscapeString(formatIssueDate(generatedAt))

	var b strings.Builder
	b.WriteString(`<!doctype html><html><head><meta charset="utf-8" /><meta name="viewport" content="width=device-width, initial-scale=1" />`)
	b.WriteString(`<style>@media only screen and (max-width: 640px) { .wrapper {width:100% !important;} .shell {padding:14px !important;} .card {padding:18px !important;} .title {font-size:26px !important; line-height:1.2 !important;} }</style></head>`)
	b.WriteString(`<body style="margin:0;padding:0;background:#eef2ff;font-family:'Inter','Avenir Next','Segoe UI',Arial,sans-serif;color:#111827;">`)
	fmt.Fprintf(&b, `<div style="display:none;max-height:0;overflow:hidden;opacity:0;">%s</div>`, preview)
	b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background:#eef2ff;">`)
	b.WriteString(`<tr><td class="shell" style="padding:22px 12px;">`)
	b.WriteString(`<table class="wrapper" role="presentation" width="620" align="center" cellpadding="0" cellspacing="0" style="width:620px;max-width:620px;">`)
	b.WriteString(`<tr><td class="card" style="background:#ffffff;border-radius:18px;padding:26px 22px;border:1px solid #dbe5ff;">`)
	b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0">`)
	b.WriteString(`<tr><td style="padding-bottom:18px;border-bottom:1px solid #e5e7eb;">`)
	b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0"><tr><td>`)
	b.WriteString(`<p style="margin:0;font-size:12px;font-weight:800;letter-spacing:0.08em;text-transform:uppercase;color:#1d4ed8;">ITK Weekly</p>`)
	fmt.Fprintf(&b, `<p style="margin:8px 0 0 0;font-size:13px;color:#475569;">%s local briefing</p>`, cityDisplay)
	b.WriteString(`</td>`)
	fmt.Fprintf(&b, `<td align="right" style="font-size:13px;color:#64748b;">%s</td>`, issueDate)
	b.WriteString(`</tr></table></td></tr>`)
	b.WriteString(`<tr><td style="padding-top:18px;">`)
	fmt.Fprintf(&b, `<h1 class="title" style="margin:0;font-size:31px;line-height:1.15;color:#0f172a;">%s, your week in %s</h1>`, html.EscapeString(userName), cityDisplay)
	fmt.Fprintf(&b, `<p style="margin:12px 0 18px 0;font-size:16px;line-height:1.5;color:#1f2937;">%s</p>`, html.EscapeString(introLine))
	b.WriteString(`<p style="margin:0 0 20px 0;font-size:13px;line-height:1.5;color:#475569;">Quick scan format: category sections, concise event cards, direct links.</p>`)
	b.WriteString(`</td></tr>`)
	b.WriteString(sections.String())
	b.WriteString(`<tr><td style="padding-top:10px;">`)
	b.WriteString(`<table role="presentation" width="100%" cellpadding="0" cellspacing="0" style="background:#f8fafc;border-radius:14px;border:1px solid #e2e8f0;"><tr><td style="padding:14px;">`)
	b.WriteString(`<p style="margin:0;font-size:14px;line-height:1.5;color:#0f172a;">Want this to get sharper next week? Reply to this email and tell us what to include less or more of.</p>`)
	fmt.Fprintf(&b, `<p style="margin:10px 0 0 0;font-size:13px;line-height:1.5;color:#334155;">Or message us directly at <a href="mailto:%s" style="color:#1d4ed8;text-decoration:none;">%s</a>.</p>`,
		html.EscapeString(fromEmail), html.EscapeString(fromEmail))
	b.WriteString(`</td></tr></table></td></tr>`)
	b.WriteString(`<tr><td style="padding-top:22px;border-top:1px solid #e5e7eb;">`)
	b.WriteString(`<p style="margin:0;font-size:12px;line-height:1.6;color:#64748b;">ITK curates local events for pilot cities: Austin and San Antonio.</p>`)
	fmt.Fprintf(&b, `<p style="margin:8px 0 0 0;font-size:12px;line-height:1.6;color:#64748b;"><a href="%s" style="color:#64748b;text-decoration:underline;">Unsubscribe</a> &nbsp;|&nbsp; <a href="https://instagram.com" style="color:#64748b;text-decoration:underline;">Instagram</a> &nbsp;|&nbsp; <a href="https://x.com" style="color:#64748b;text-decoration:underline;">X</a> &nbsp;|&nbsp; <a href="https://tiktok.com" style="color:#64748b;text-decoration:underline;">TikTok</a></p>`,
		html.EscapeString(unsubscribeURL))
	b.WriteString(`</td></tr></table></td></tr></table></td></tr></table></body></html>`)
	return b.String()
}

// formatIssueDate renders "Aug 28, 2026" without a zero-padded day.
func formatIssueDate(t time.Time) string {
	return fmt.Sprintf("%s %d, %d", t.Format("Jan"), t.Day(), t.Year())
}
