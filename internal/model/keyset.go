package model

import "strings"

// KeySet is an immutable set of UniqueKeys already present in the store.
// With returns an extended copy, so each phase hands the next one an
// explicit value instead of sharing a mutated set.
type KeySet struct {
	keys map[string]struct{}
}

// NewKeySet builds a set from keys. Empty keys are ignored.
func NewKeySet(keys ...string) KeySet {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			m[k] = struct{}{}
		}
	}
	return KeySet{keys: m}
}

// KeysOf collects the UniqueKey column of rows.
func KeysOf(rows []StoredRow) KeySet {
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.UniqueKey)
	}
	return NewKeySet(keys...)
}

// With returns a new set containing s plus keys.
func (s KeySet) With(keys ...string) KeySet {
	m := make(map[string]struct{}, len(s.keys)+len(keys))
	for k := range s.keys {
		m[k] = struct{}{}
	}
	for _, k := range keys {
		if k != "" {
			m[k] = struct{}{}
		}
	}
	return KeySet{keys: m}
}

// Has reports exact membership.
func (s KeySet) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Known reports whether base is a member or a prefix of a member. The
// prefix match covers fan-out keys of the form base|PDF<n>.
func (s KeySet) Known(base string) bool {
	if s.Has(base) {
		return true
	}
	for k := range s.keys {
		if strings.HasPrefix(k, base) {
			return true
		}
	}
	return false
}

// Len returns the number of keys.
func (s KeySet) Len() int {
	return len(s.keys)
}
