package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// EntryKind tags the origin of a display entry identifier. Keeping the tag in
// the type (rather than a string-prefix convention) makes collisions between
// live and placeholder identifiers structurally impossible.
type EntryKind uint8

const (
	// KindLive identifies an entry backed by a live participant.
	KindLive EntryKind = iota + 1
	// KindRoster identifies a placeholder sourced from a roster record.
	KindRoster
	// KindSeat identifies a generic filler placeholder.
	KindSeat
)

func (k EntryKind) String() string {
	switch k {
	case KindLive:
		return "live"
	case KindRoster:
		return "roster"
	case KindSeat:
		return "seat"
	default:
		return "unknown"
	}
}

// EntryID is a tagged identifier for display entries. The zero value is
// invalid. EntryID is comparable and safe to use as a map key, which is what
// the rank diff relies on.
type EntryID struct {
	kind  EntryKind
	value string
}

// LiveID builds the identifier for a live participant.
func LiveID(id AgentID) EntryID { return EntryID{kind: KindLive, value: string(id)} }

// RosterID builds the identifier for a roster-sourced placeholder.
func RosterID(key string) EntryID { return EntryID{kind: KindRoster, value: key} }

// SeatID builds the identifier for the n-th generic filler seat. n is the
// position in the backfill sequence, not the overall list index, so the id
// stays stable across passes while the live count is unchanged.
func SeatID(n int) EntryID { return EntryID{kind: KindSeat, value: strconv.Itoa(n)} }

// Kind returns the identifier's origin tag.
func (e EntryID) Kind() EntryKind { return e.kind }

// IsZero reports whether the identifier is unset.
func (e EntryID) IsZero() bool { return e.kind == 0 }

// IsPlaceholder reports whether the identifier belongs to a synthetic entry.
func (e EntryID) IsPlaceholder() bool { return e.kind == KindRoster || e.kind == KindSeat }

// String renders the kind-prefixed form, e.g. "live:42" or "seat:3". Screen
// clients use this as a stable DOM key.
func (e EntryID) String() string {
	if e.IsZero() {
		return ""
	}
	return e.kind.String() + ":" + e.value
}

// MarshalJSON encodes the prefixed string form.
func (e EntryID) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.String())
}

// UnmarshalJSON parses the prefixed string form produced by MarshalJSON.
func (e *EntryID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*e = EntryID{}
		return nil
	}
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return fmt.Errorf("entry id %q: missing kind tag", s)
	}
	switch kind {
	case "live":
		e.kind = KindLive
	case "roster":
		e.kind = KindRoster
	case "seat":
		e.kind = KindSeat
	default:
		return fmt.Errorf("entry id %q: unknown kind %q", s, kind)
	}
	e.value = value
	return nil
}
