// Package guard decides whether an incoming snapshot may replace the stored
// one. It works on raw JSON so the server never needs the typed model.
package guard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Rejection reasons, as sent on the wire.
const (
	ReasonEmptyData = "empty_data_protection"
	ReasonStale     = "stale_timestamp"
)

var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Kind describes one synchronized document kind.
type Kind struct {
	// Name is the API name, e.g. "desktop".
	Name string
	// Slot is the storage identifier, e.g. "user-desktop".
	Slot string
	// Guarded lists the top-level array fields checked for non-regression.
	Guarded []string
}

var (
	Desktop = Kind{Name: "desktop", Slot: "user-desktop", Guarded: []string{"widgets", "navigationSites"}}
	Files   = Kind{Name: "file-metadata", Slot: "user-files", Guarded: []string{"files", "folders"}}
)

// Kinds lists every kind the server stores.
var Kinds = []Kind{Desktop, Files}

// Lookup finds a kind by API name or slot.
func Lookup(name string) (Kind, bool) {
	for _, k := range Kinds {
		if k.Name == name || k.Slot == name {
			return k, true
		}
	}
	return Kind{}, false
}

// Envelope is what the guard needs from a snapshot.
type Envelope struct {
	// UpdatedAt is 0 when the snapshot carries no usable timestamp.
	UpdatedAt int64
	// Populated is true when any guarded array is non-empty.
	Populated bool
	Raw       json.RawMessage
}

// Inspect reads the fields the guard needs from raw, which must be a JSON
// object. Unknown fields are ignored and the document is not decoded.
func Inspect(k Kind, raw []byte) (Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if !gjson.ValidBytes(trimmed) {
		return Envelope{}, fmt.Errorf("%w: malformed JSON", ErrInvalidSnapshot)
	}
	doc := gjson.ParseBytes(trimmed)
	if !doc.IsObject() {
		return Envelope{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidSnapshot)
	}

	env := Envelope{Raw: json.RawMessage(trimmed)}

	if ts := doc.Get("updatedAt"); ts.Type == gjson.Number && ts.Num > 0 {
		env.UpdatedAt = int64(ts.Num)
	}

	for _, name := range k.Guarded {
		if arr := doc.Get(name); arr.IsArray() && arr.Get("#").Int() > 0 {
			env.Populated = true
			break
		}
	}

	return env, nil
}

// Conflict is the rejection returned to the writer, with the authoritative
// stored snapshot. It is encoded as the body of an HTTP 409.
type Conflict struct {
	Error           string          `json:"error"`
	Conflict        bool            `json:"conflict"`
	ServerData      json.RawMessage `json:"serverData"`
	Reason          string          `json:"reason"`
	ClientTimestamp int64           `json:"clientTimestamp,omitempty"`
	ServerTimestamp int64           `json:"serverTimestamp,omitempty"`
}

// Evaluate applies the write rules against the stored snapshot. It returns
// nil when incoming may replace stored.
//
// An older snapshot is rejected as stale; ordering is skipped when either
// side has no timestamp. A snapshot that passes ordering is still rejected
// when it is empty and the stored one is not, however new it is.
func Evaluate(stored *Envelope, incoming Envelope) *Conflict {
	if stored == nil {
		return nil
	}

	if stored.UpdatedAt > 0 && incoming.UpdatedAt > 0 && incoming.UpdatedAt < stored.UpdatedAt {
		return &Conflict{
			Error:           "Conflict: server has newer data",
			Conflict:        true,
			ServerData:      stored.Raw,
			Reason:          ReasonStale,
			ClientTimestamp: incoming.UpdatedAt,
			ServerTimestamp: stored.UpdatedAt,
		}
	}

	if stored.Populated && !incoming.Populated {
		return &Conflict{
			Error:      "Cannot overwrite existing data with empty data",
			Conflict:   true,
			ServerData: stored.Raw,
			Reason:     ReasonEmptyData,
		}
	}

	return nil
}
