// Package service defines the backend-agnostic interface to the real-time database.
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Database defines the interface for real-time database backends.
// All database traffic goes through this interface.
// Higher layers never import a backend package directly.
type Database interface {
	// Listen registers a live value subscription on the collection at path.
	// fn is called with the complete ordered child set after the initial
	// load and after every change. Listen blocks until ctx is cancelled or
	// the subscription fails for good.
	Listen(ctx context.Context, path string, fn func(Snapshot)) error

	// Push adds a child under path with a generated, chronologically
	// ordered key and returns the key.
	Push(ctx context.Context, path string, value map[string]any) (string, error)

	// Update merges fields into the child at path.
	// A nil field value removes that field.
	Update(ctx context.Context, path string, fields map[string]any) error

	// Set replaces the value at path.
	Set(ctx context.Context, path string, value any) error

	// Remove deletes the value at path.
	Remove(ctx context.Context, path string) error
}

// Snapshot is the full content of a collection at one point in time.
type Snapshot struct {
	// Children in key order. Push keys sort in insertion order.
	Children []Child
}

// Child is one keyed record of a snapshot.
type Child struct {
	Key   string
	Value json.RawMessage
}

// ServerTimestamp is the placeholder the database replaces with its own
// clock, in milliseconds since the epoch.
var ServerTimestamp = map[string]any{".sv": "timestamp"}

// IsServerTimestamp reports whether v is the ServerTimestamp placeholder.
func IsServerTimestamp(v any) bool {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	s, ok := m[".sv"].(string)
	return ok && s == "timestamp"
}

// ResolveServerValues returns a copy of fields with every ServerTimestamp
// placeholder replaced by now. Used by backends that run their own clock.
func ResolveServerValues(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if IsServerTimestamp(v) {
			out[k] = now.UnixMilli()
			continue
		}
		out[k] = v
	}
	return out
}

// SplitPath splits "tasks/abc" into ("tasks", "abc").
// A single segment has an empty parent.
func SplitPath(path string) (parent, key string) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}
