// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"livetask/internal/service"
)

// ErrNotFound is returned when a path does not exist.
var ErrNotFound = errors.New("not found")

// FakeDatabase is an in-memory implementation of service.Database for testing.
// Keys pushed by the fake are "k0001", "k0002", ... so key order is
// insertion order.
type FakeDatabase struct {
	mu        sync.RWMutex
	nodes     map[string]map[string]map[string]any // parent -> key -> record
	seq       int
	listeners map[int]fakeListener
	nextID    int

	// Now is the server clock. Defaults to time.Now.
	Now func() time.Time

	// Error injection for testing
	ListenErr error
	PushErr   error
	UpdateErr error
	SetErr    error
	RemoveErr error
}

type fakeListener struct {
	path string
	fn   func(service.Snapshot)
}

// NewFakeDatabase creates an empty FakeDatabase.
func NewFakeDatabase() *FakeDatabase {
	return &FakeDatabase{
		nodes:     make(map[string]map[string]map[string]any),
		listeners: make(map[int]fakeListener),
		Now:       time.Now,
	}
}

// AddRecord stores a raw record at parent/key without notifying listeners.
func (f *FakeDatabase) AddRecord(parent, key string, record map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.children(parent)[key] = record
}

// Record returns a copy of the record at path.
func (f *FakeDatabase) Record(path string) (map[string]any, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	parent, key := service.SplitPath(path)
	rec, ok := f.nodes[parent][key]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out, true
}

// Len returns the number of children under parent.
func (f *FakeDatabase) Len(parent string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.nodes[parent])
}

// Listeners returns the number of active listeners.
func (f *FakeDatabase) Listeners() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.listeners)
}

// Notify pushes the current snapshot of path to its listeners.
func (f *FakeDatabase) Notify(path string) {
	f.notify(path)
}

// Listen implements service.Database.
func (f *FakeDatabase) Listen(ctx context.Context, path string, fn func(service.Snapshot)) error {
	if f.ListenErr != nil {
		return f.ListenErr
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fakeListener{path: path, fn: fn}
	snap := f.snapshotLocked(path)
	f.mu.Unlock()

	fn(snap)

	<-ctx.Done()

	f.mu.Lock()
	delete(f.listeners, id)
	f.mu.Unlock()
	return nil
}

// Push implements service.Database.
func (f *FakeDatabase) Push(ctx context.Context, path string, value map[string]any) (string, error) {
	if f.PushErr != nil {
		return "", f.PushErr
	}
	f.mu.Lock()
	f.seq++
	key := fmt.Sprintf("k%04d", f.seq)
	f.children(path)[key] = service.ResolveServerValues(value, f.Now())
	f.mu.Unlock()

	f.notify(path)
	return key, nil
}

// Update implements service.Database.
func (f *FakeDatabase) Update(ctx context.Context, path string, fields map[string]any) error {
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	parent, key := service.SplitPath(path)

	f.mu.Lock()
	children := f.children(parent)
	rec, ok := children[key]
	if !ok {
		rec = make(map[string]any)
		children[key] = rec
	}
	for k, v := range service.ResolveServerValues(fields, f.Now()) {
		if v == nil {
			delete(rec, k)
			continue
		}
		rec[k] = v
	}
	f.mu.Unlock()

	f.notify(parent)
	return nil
}

// Set implements service.Database.
func (f *FakeDatabase) Set(ctx context.Context, path string, value any) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	parent, key := service.SplitPath(path)

	rec, ok := value.(map[string]any)
	if !ok {
		rec = map[string]any{"value": value}
	}

	f.mu.Lock()
	f.children(parent)[key] = service.ResolveServerValues(rec, f.Now())
	f.mu.Unlock()

	f.notify(parent)
	return nil
}

// Remove implements service.Database.
func (f *FakeDatabase) Remove(ctx context.Context, path string) error {
	if f.RemoveErr != nil {
		return f.RemoveErr
	}
	parent, key := service.SplitPath(path)

	f.mu.Lock()
	if _, ok := f.nodes[parent][key]; !ok {
		f.mu.Unlock()
		return ErrNotFound
	}
	delete(f.nodes[parent], key)
	f.mu.Unlock()

	f.notify(parent)
	return nil
}

func (f *FakeDatabase) children(parent string) map[string]map[string]any {
	c, ok := f.nodes[parent]
	if !ok {
		c = make(map[string]map[string]any)
		f.nodes[parent] = c
	}
	return c
}

func (f *FakeDatabase) snapshotLocked(path string) service.Snapshot {
	children := f.nodes[path]
	keys := make([]string, 0, len(children))
	for k := range children {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var snap service.Snapshot
	for _, k := range keys {
		raw, err := json.Marshal(children[k])
		if err != nil {
			continue
		}
		snap.Children = append(snap.Children, service.Child{Key: k, Value: raw})
	}
	return snap
}

func (f *FakeDatabase) notify(path string) {
	f.mu.RLock()
	var fns []func(service.Snapshot)
	for _, l := range f.listeners {
		if l.path == path {
			fns = append(fns, l.fn)
		}
	}
	snap := f.snapshotLocked(path)
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(snap)
	}
}
