// Package reply processes inbound newsletter reply webhooks: payload
// extraction, intent classification, and effect application.
package reply

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	uuidRe     = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	angleAddrRe = regexp.MustCompile(`<([^>]+)>`)
	htmlTagRe  = regexp.MustCompile(`<[^>]+>`)
)

// payloadData unwraps the optional "data" envelope some inbound providers
// nest their fields under.
func payloadData(payload map[string]any) map[string]any {
	if nested, ok := payload["data"].(map[string]any); ok {
		return nested
	}
	return payload
}

// extractSenderEmail pulls the bare lowercase address out of a From header,
// handling "Name <addr>" forms.
func extractSenderEmail(rawFrom string) string {
	if match := angleAddrRe.FindStringSubmatch(rawFrom); match != nil {
		return strings.ToLower(strings.TrimSpace(match[1]))
	}
	return strings.ToLower(strings.TrimSpace(rawFrom))
}

// extractRecipientCandidates collects every recipient-ish value: to, cc,
// delivered_to, envelope_to, each either a comma-joined string or a list.
func extractRecipientCandidates(payload map[string]any) []string {
	data := payloadData(payload)
	var candidates []string
	for _, key := range []string{"to", "cc", "delivered_to", "envelope_to"} {
		switch value := data[key].(type) {
		case string:
			for _, item := range strings.Split(value, ",") {
				if trimmed := strings.TrimSpace(item); trimmed != "" {
					candidates = append(candidates, trimmed)
				}
			}
		case []any:
			for _, item := range value {
				str, ok := item.(string)
				if !ok {
					continue
				}
				if trimmed := strings.TrimSpace(str); trimmed != "" {
					candidates = append(candidates, trimmed)
				}
			}
		}
	}
	return candidates
}

// extractNewsletterID returns the first parseable UUID found anywhere in the
// recipient list; plus-tagged reply addresses carry it in the local part.
func extractNewsletterID(recipients []string) *uuid.UUID {
	for _, recipient := range recipients {
		for _, match := range uuidRe.FindAllString(recipient, -1) {
			if id, err := uuid.Parse(match); err == nil {
				return &id
			}
		}
	}
	return nil
}

// extractReplyText prefers the plain-text body fields; failing those it
// strips tags from the HTML body.
func extractReplyText(payload map[string]any) string {
	data := payloadData(payload)
	for _, key := range []string{"text", "text_body", "reply"} {
		if value, ok := data[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}

	var html string
	for _, key := range []string{"html", "html_body"} {
		if value, ok := data[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				html = trimmed
				break
			}
		}
	}
	if html == "" {
		return ""
	}
	withoutTags := htmlTagRe.ReplaceAllString(html, " ")
	return strings.Join(strings.Fields(withoutTags), " ")
}
