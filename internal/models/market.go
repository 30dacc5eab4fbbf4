// Package models defines the domain entities for pendlewatch.
//
// The Pendle API returns markets as loosely shaped JSON objects. Only two
// derived fields are interpreted: an identifier used to detect new listings
// and a display name used in notifications. Everything else is kept as-is in
// Raw and never inspected.
package models

import (
	"encoding/json"
	"fmt"
)

// UnknownName is the display name used when a market carries no name-like field.
const UnknownName = "Unknown"

// idKeys and nameKeys are tried in order; the first non-empty value wins.
var (
	idKeys   = []string{"marketAddress", "address", "id", "lpAddress"}
	nameKeys = []string{"name", "symbol", "underlyingName", "underlyingSymbol"}
)

// Market is a single market listing as returned by the Pendle API.
type Market struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Raw  map[string]any `json:"raw,omitempty"`
}

// ParseMarket derives the identifier and display name of a raw market record.
// It is pure: the same record always yields the same Market.
//
// The ID falls back to the record's canonical JSON form (keys sorted) when no
// id-like field is set, so such records are still tracked consistently.
func ParseMarket(raw map[string]any) Market {
	id, ok := firstNonEmpty(raw, idKeys)
	if !ok {
		id = canonical(raw)
	}
	name, ok := firstNonEmpty(raw, nameKeys)
	if !ok {
		name = UnknownName
	}
	return Market{ID: id, Name: name, Raw: raw}
}

// firstNonEmpty returns the first key whose value is present and non-empty.
func firstNonEmpty(raw map[string]any, keys []string) (string, bool) {
	for _, key := range keys {
		if s, ok := stringValue(raw[key]); ok {
			return s, true
		}
	}
	return "", false
}

// stringValue renders a decoded JSON value as a string. Empty strings, null,
// false, zero and empty containers count as absent.
func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		if !val {
			return "", false
		}
		return "true", true
	case json.Number:
		if f, err := val.Float64(); err == nil && f == 0 {
			return "", false
		}
		return val.String(), true
	case float64:
		if val == 0 {
			return "", false
		}
		return fmt.Sprint(val), true
	case []any:
		if len(val) == 0 {
			return "", false
		}
		return canonical(val), true
	case map[string]any:
		if len(val) == 0 {
			return "", false
		}
		return canonical(val), true
	default:
		s := fmt.Sprint(val)
		return s, s != ""
	}
}

// canonical returns a deterministic string form of a decoded JSON value.
// encoding/json sorts map keys, which keeps the output stable across runs.
func canonical(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
