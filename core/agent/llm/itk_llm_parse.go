package llm

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
	arraySpanRe   = regexp.MustCompile(`(?s)\[.*\]`)
)

// ExtractJSONArray parses a model response into a list of raw JSON objects
// using three fallback tiers: direct parse, fenced code block, first [...]
// span. The first tier yielding a non-empty list wins. Returns nil when no
// tier produces anything usable; it never returns an error.
func ExtractJSONArray(payload string) []json.RawMessage {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}

	if items := parseArray(payload); len(items) > 0 {
		return items
	}

	if m := fencedBlockRe.FindStringSubmatch(payload); m != nil {
		if items := parseArray(strings.TrimSpace(m[1])); len(items) > 0 {
			return items
		}
	}

	if span := arraySpanRe.FindString(payload); span != "" {
		if items := parseArray(span); len(items) > 0 {
			return items
		}
	}

	return nil
}

func parseArray(payload string) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		return nil
	}
	return items
}

// ExtractJSONObject parses a model response expected to be a single JSON
// object, tolerating fenced code blocks. Returns nil on any parse failure.
func ExtractJSONObject(payload string) map[string]any {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}

	if obj := parseObject(payload); obj != nil {
		return obj
	}

	if m := fencedBlockRe.FindStringSubmatch(payload); m != nil {
		return parseObject(strings.TrimSpace(m[1]))
	}

	return nil
}

func parseObject(payload string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return nil
	}
	return obj
}

// ExtractStringList parses a model response expected to be a JSON array of
// strings. Non-string items are stringified; blanks are dropped. Returns nil
// (not an error) when the payload is not a JSON array.
func ExtractStringList(payload string) []string {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil
	}

	var items []any
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		if m := fencedBlockRe.FindStringSubmatch(payload); m != nil {
			if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &items); err != nil {
				return nil
			}
		} else {
			return nil
		}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
