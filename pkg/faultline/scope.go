// scope.go implements the mutable per-client scope: context, tags, and user
// identity, with reserved-key protection and the capture-time merge.

package faultline

import (
	"maps"
	"sync"
)

// reservedContextKeys are SDK-managed context fields. Callers may never set
// them as sticky global state via SetContext.
var reservedContextKeys = []string{
	"exception_class",
	"frames",
	"queries",
	"request",
	"breadcrumbs",
}

// mergeAllowedKeys is the narrower allow-list for per-call local context.
// These may be supplied per capture even though related keys are globally
// reserved. The asymmetry with reservedContextKeys is intentional: some
// fields make sense for one event but never as sticky global state.
var mergeAllowedKeys = []string{
	"user",
	"request",
	"queries",
}

// ReservedKeys returns a copy of the reserved context key set.
func ReservedKeys() []string {
	out := make([]string, len(reservedContextKeys))
	copy(out, reservedContextKeys)
	return out
}

func isReservedKey(key string) bool {
	for _, k := range reservedContextKeys {
		if k == key {
			return true
		}
	}
	return false
}

func isMergeAllowedKey(key string) bool {
	for _, k := range mergeAllowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Scope is the per-client mutable bag of context, tags, and user identity
// applied to every captured event until cleared. A Scope is exclusively
// owned by one Client; independent Scopes share no state.
//
// Safe for concurrent use (see BreadcrumbBuffer for the locking rationale).
type Scope struct {
	mu      sync.RWMutex
	context map[string]any
	tags    map[string]string
	user    map[string]any
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{
		context: make(map[string]any),
		tags:    make(map[string]string),
	}
}

// SetContext upserts a user-defined context value. Returns ReservedKeyError
// when key is in the reserved set.
func (s *Scope) SetContext(key string, value any) error {
	if isReservedKey(key) {
		return &ReservedKeyError{Key: key}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.context[key] = value
	return nil
}

// Context returns a defensive copy of the context map.
func (s *Scope) Context() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.context)
}

// SetTag upserts a single tag.
func (s *Scope) SetTag(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags[key] = value
}

// SetTags merges the given tags into the scope; new values override existing
// ones on key collision.
func (s *Scope) SetTags(tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.tags, tags)
}

// Tags returns a defensive copy of the tag map.
func (s *Scope) Tags() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.tags)
}

// SetUser replaces the user record wholesale. Last write wins; this is a
// full replace, not a merge.
func (s *Scope) SetUser(user map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = maps.Clone(user)
}

// User returns a defensive copy of the user record, or nil when unset.
func (s *Scope) User() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.user)
}

// Clear resets context, tags, and user to empty.
func (s *Scope) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.context = make(map[string]any)
	s.tags = make(map[string]string)
	s.user = nil
}

// Merge combines the global scope with per-call local context under strict
// field-ownership rules and returns the merged mapping. Local values win on
// key collision. Tags and user appear as keys of the result only when either
// side supplies them; they are omitted entirely otherwise, never emitted as
// empty objects.
//
// Any local key in the reserved set that is not on the merge allow-list
// fails with ReservedKeyError before anything is merged.
func (s *Scope) Merge(local map[string]any) (map[string]any, error) {
	for key := range local {
		if isReservedKey(key) && !isMergeAllowedKey(key) {
			return nil, &ReservedKeyError{Key: key}
		}
	}

	s.mu.RLock()
	merged := maps.Clone(s.context)
	globalTags := maps.Clone(s.tags)
	globalUser := maps.Clone(s.user)
	s.mu.RUnlock()

	if merged == nil {
		merged = make(map[string]any)
	}
	maps.Copy(merged, local)

	localTags, hasLocalTags := localTagMap(local)
	if len(globalTags) > 0 || hasLocalTags {
		tags := make(map[string]string, len(globalTags)+len(localTags))
		maps.Copy(tags, globalTags)
		maps.Copy(tags, localTags)
		merged["tags"] = tags
	} else {
		delete(merged, "tags")
	}

	localUser, hasLocalUser := localUserMap(local)
	if len(globalUser) > 0 || hasLocalUser {
		// Shallow per-field merge, not whole-object replace.
		user := make(map[string]any, len(globalUser)+len(localUser))
		maps.Copy(user, globalUser)
		maps.Copy(user, localUser)
		merged["user"] = user
	} else {
		delete(merged, "user")
	}

	return merged, nil
}

// localTagMap extracts a tag mapping from local context, accepting either
// map[string]string or map[string]any with string values.
func localTagMap(local map[string]any) (map[string]string, bool) {
	v, ok := local["tags"]
	if !ok {
		return nil, false
	}
	switch t := v.(type) {
	case map[string]string:
		return t, true
	case map[string]any:
		tags := make(map[string]string, len(t))
		for k, val := range t {
			if s, ok := val.(string); ok {
				tags[k] = s
			}
		}
		return tags, true
	}
	return nil, false
}

// localUserMap extracts a user record from local context.
func localUserMap(local map[string]any) (map[string]any, bool) {
	v, ok := local["user"]
	if !ok {
		return nil, false
	}
	u, ok := v.(map[string]any)
	return u, ok
}
