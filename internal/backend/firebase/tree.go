package firebase

import (
	"encoding/json"
	"slices"
	"strings"

	"livetask/internal/service"
)

// tree is the local copy of a subscribed location, kept current by applying
// put and patch events.
type tree struct {
	root any
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// set replaces the value at path. A nil value deletes it.
func (t *tree) set(path string, value any) {
	t.root = setAt(t.root, segments(path), value)
}

// merge sets each child of data below path.
func (t *tree) merge(path string, data map[string]any) {
	base := segments(path)
	for k, v := range data {
		t.root = setAt(t.root, append(slices.Clone(base), segments(k)...), v)
	}
}

func setAt(node any, segs []string, value any) any {
	if len(segs) == 0 {
		return value
	}

	m, ok := node.(map[string]any)
	if !ok {
		if value == nil {
			return node
		}
		m = make(map[string]any)
	}

	child := setAt(m[segs[0]], segs[1:], value)
	if isEmpty(child) {
		delete(m, segs[0])
	} else {
		m[segs[0]] = child
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}

// snapshot returns the root's children ordered by key.
func (t *tree) snapshot() service.Snapshot {
	m, ok := t.root.(map[string]any)
	if !ok {
		return service.Snapshot{}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var snap service.Snapshot
	for _, k := range keys {
		raw, err := json.Marshal(m[k])
		if err != nil {
			continue
		}
		snap.Children = append(snap.Children, service.Child{Key: k, Value: raw})
	}
	return snap
}
