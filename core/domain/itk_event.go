package domain

import (
	"strings"

	"github.com/goccy/go-json"
)

// Event is the tagged record passed between pipeline stages. External JSON is
// loosely typed; the parsing boundary maps it into this shape and fills
// defaults for missing fields.
type Event struct {
	Name        string `json:"name"`
	Date        string `json:"date,omitempty"`
	Location    string `json:"location,omitempty"`
	Address     string `json:"address,omitempty"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Category    string `json:"category,omitempty"`
	CTA         string `json:"cta,omitempty"`
	SourceHobby string `json:"source_hobby,omitempty"`
}

// eventWire accepts the loose external JSON shape, including the legacy "why"
// key some oracle responses use instead of "description".
type eventWire struct {
	Name        any `json:"name"`
	Date        any `json:"date"`
	Location    any `json:"location"`
	Address     any `json:"address"`
	Price       any `json:"price"`
	Cost        any `json:"cost"`
	Description any `json:"description"`
	Why         any `json:"why"`
	URL         any `json:"url"`
	Category    any `json:"category"`
	Type        any `json:"type"`
	CTA         any `json:"cta"`
}

func wireString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return ""
		}
		return strings.Trim(strings.TrimSpace(string(b)), `"`)
	}
}

// EventFromWire converts one loosely-typed JSON object into an Event.
// Returns false when the object has no usable name.
func EventFromWire(raw json.RawMessage) (Event, bool) {
	var w eventWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return Event{}, false
	}

	name := wireString(w.Name)
	if name == "" {
		return Event{}, false
	}

	description := wireString(w.Description)
	if description == "" {
		description = wireString(w.Why)
	}
	price := wireString(w.Price)
	if price == "" {
		price = wireString(w.Cost)
	}
	category := wireString(w.Category)
	if category == "" {
		category = wireString(w.Type)
	}

	return Event{
		Name:        name,
		Date:        wireString(w.Date),
		Location:    wireString(w.Location),
		Address:     wireString(w.Address),
		Price:       price,
		Description: description,
		URL:         wireString(w.URL),
		Category:    category,
		CTA:         wireString(w.CTA),
	}, true
}

// DedupeKey is the case-insensitive (name, date, location) triple used when
// merging event sources. First occurrence wins.
func (e Event) DedupeKey() string {
	return strings.ToLower(strings.TrimSpace(e.Name)) + "|" +
		strings.ToLower(strings.TrimSpace(e.Date)) + "|" +
		strings.ToLower(strings.TrimSpace(e.Location))
}
