package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"livetask/internal/service"
	"livetask/internal/store"
	"livetask/internal/testutil"
)

// recorder collects every set of tasks delivered by SubscribeAll.
type recorder struct {
	mu     sync.Mutex
	pushes [][]service.Task
}

func (r *recorder) onChange(tasks []service.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, tasks)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pushes)
}

func (r *recorder) last() []service.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pushes) == 0 {
		return nil
	}
	return r.pushes[len(r.pushes)-1]
}

func newStore(t *testing.T) (*store.Store, *testutil.FakeDatabase) {
	t.Helper()
	db := testutil.NewFakeDatabase()
	db.Now = func() time.Time { return time.UnixMilli(1704067200000) }
	return store.New(db, store.WithLogger(zap.NewNop())), db
}

func subscribe(t *testing.T, s *store.Store, db *testutil.FakeDatabase) *recorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rec := &recorder{}
	s.SubscribeAll(ctx, rec.onChange)
	testutil.WaitFor(t, "initial push", func() bool { return rec.count() > 0 })
	return rec
}

func TestCreate_RoundTrip(t *testing.T) {
	s, db := newStore(t)
	rec := subscribe(t, s, db)

	id, err := s.Create(context.Background(), service.NewTask{
		Text:     "Buy milk",
		DueDate:  "2024-01-01",
		Priority: service.PriorityHigh,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	testutil.WaitFor(t, "push after create", func() bool { return len(rec.last()) == 1 })

	got := rec.last()[0]
	if got.ID != id {
		t.Errorf("expected id %q, got %q", id, got.ID)
	}
	if got.Text != "Buy milk" || got.DueDate != "2024-01-01" || got.Priority != service.PriorityHigh {
		t.Errorf("fields not preserved: %+v", got)
	}
	if got.Completed || got.IsDeleted {
		t.Errorf("expected completed=false isDeleted=false, got %+v", got)
	}
	if !got.CreatedAt.Equal(time.UnixMilli(1704067200000)) {
		t.Errorf("expected server createdAt, got %v", got.CreatedAt)
	}
}

func TestCreate_EmptyText(t *testing.T) {
	s, db := newStore(t)

	_, err := s.Create(context.Background(), service.NewTask{Text: "   "})
	if !errors.Is(err, store.ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if db.Len(store.Collection) != 0 {
		t.Error("expected nothing written")
	}
}

func TestCreate_BackendError(t *testing.T) {
	s, db := newStore(t)
	db.PushErr = errors.New("permission denied")

	_, err := s.Create(context.Background(), service.NewTask{Text: "x", Priority: service.PriorityLow})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, db.PushErr) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}

func TestToggleComplete_FlipsOnlyCompleted(t *testing.T) {
	s, db := newStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, service.NewTask{Text: "Walk dog", DueDate: "2024-02-02", Priority: service.PriorityLow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, _ := db.Record(store.Collection + "/" + id)

	if err := s.ToggleComplete(ctx, id, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	after, _ := db.Record(store.Collection + "/" + id)
	if after["completed"] != true {
		t.Errorf("expected completed=true, got %v", after["completed"])
	}
	for _, field := range []string{"text", "dueDate", "priority", "isDeleted", "createdAt"} {
		if before[field] != after[field] {
			t.Errorf("field %s changed: %v -> %v", field, before[field], after[field])
		}
	}

	if err := s.ToggleComplete(ctx, id, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, _ := db.Record(store.Collection + "/" + id)
	if again["completed"] != false {
		t.Errorf("expected completed=false after second toggle, got %v", again["completed"])
	}
}

func TestSoftDelete_HiddenButRetained(t *testing.T) {
	s, db := newStore(t)
	rec := subscribe(t, s, db)
	ctx := context.Background()

	keep, _ := s.Create(ctx, service.NewTask{Text: "Keep", Priority: service.PriorityLow})
	drop, _ := s.Create(ctx, service.NewTask{Text: "Drop", Priority: service.PriorityLow})
	testutil.WaitFor(t, "two tasks", func() bool { return len(rec.last()) == 2 })

	if err := s.SoftDelete(ctx, drop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.WaitFor(t, "deleted task hidden", func() bool { return len(rec.last()) == 1 })
	if rec.last()[0].ID != keep {
		t.Errorf("expected remaining task %q, got %q", keep, rec.last()[0].ID)
	}

	raw, ok := db.Record(store.Collection + "/" + drop)
	if !ok {
		t.Fatal("soft-deleted record must stay in the database")
	}
	if raw["isDeleted"] != true {
		t.Errorf("expected isDeleted=true, got %v", raw["isDeleted"])
	}
	if raw["deletedAt"] != int64(1704067200000) {
		t.Errorf("expected server deletedAt, got %v", raw["deletedAt"])
	}
}

func TestSubscribeAll_InsertionOrderAndFilter(t *testing.T) {
	s, db := newStore(t)
	db.AddRecord(store.Collection, "a1", map[string]any{"text": "first", "priority": "low"})
	db.AddRecord(store.Collection, "a2", map[string]any{"text": "gone", "priority": "low", "isDeleted": true})
	db.AddRecord(store.Collection, "a3", map[string]any{"text": "third", "priority": "high"})

	rec := subscribe(t, s, db)

	got := rec.last()
	if len(got) != 2 {
		t.Fatalf("expected 2 visible tasks, got %d", len(got))
	}
	if got[0].Text != "first" || got[1].Text != "third" {
		t.Errorf("expected insertion order first, third; got %q, %q", got[0].Text, got[1].Text)
	}
}

func TestSubscribeAll_SkipsUndecodableRecords(t *testing.T) {
	s, db := newStore(t)
	db.AddRecord(store.Collection, "a1", map[string]any{"text": 42})
	db.AddRecord(store.Collection, "a2", map[string]any{"text": "fine", "priority": "medium"})

	rec := subscribe(t, s, db)

	got := rec.last()
	if len(got) != 1 || got[0].Text != "fine" {
		t.Errorf("expected only the valid record, got %+v", got)
	}
}

func TestSubscribeAll_AttachFailureIsSilent(t *testing.T) {
	s, db := newStore(t)
	db.ListenErr = errors.New("unreachable")

	called := make(chan struct{}, 1)
	s.SubscribeAll(context.Background(), func([]service.Task) { called <- struct{}{} })

	select {
	case <-called:
		t.Fatal("callback must not fire when the listener cannot attach")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeAll_StopsWithContext(t *testing.T) {
	s, db := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	rec := &recorder{}
	s.SubscribeAll(ctx, rec.onChange)
	testutil.WaitFor(t, "listener attached", func() bool { return db.Listeners() == 1 })

	cancel()
	testutil.WaitFor(t, "listener detached", func() bool { return db.Listeners() == 0 })
}

func TestSnapshot(t *testing.T) {
	s, db := newStore(t)
	db.AddRecord(store.Collection, "a1", map[string]any{"text": "one", "priority": "low"})
	db.AddRecord(store.Collection, "a2", map[string]any{"text": "two", "priority": "low", "isDeleted": true})

	tasks, err := s.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "a1" {
		t.Errorf("expected only a1, got %+v", tasks)
	}
	testutil.WaitFor(t, "listener detached", func() bool { return db.Listeners() == 0 })
}

func TestSnapshot_ListenError(t *testing.T) {
	s, db := newStore(t)
	db.ListenErr = errors.New("unreachable")

	_, err := s.Snapshot(context.Background())
	if !errors.Is(err, db.ListenErr) {
		t.Errorf("expected wrapped listen error, got %v", err)
	}
}

func TestUpdate_BackendError(t *testing.T) {
	s, db := newStore(t)
	db.UpdateErr = errors.New("offline")

	text := "new"
	err := s.Update(context.Background(), "a1", service.TaskUpdate{Text: &text})
	if !errors.Is(err, db.UpdateErr) {
		t.Errorf("expected wrapped backend error, got %v", err)
	}
}

func TestCheckConnection(t *testing.T) {
	s, db := newStore(t)

	if err := s.CheckConnection(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := db.Record("connection_test"); ok {
		t.Error("expected probe record removed")
	}

	db.SetErr = errors.New("unreachable")
	if err := s.CheckConnection(context.Background()); !errors.Is(err, db.SetErr) {
		t.Errorf("expected probe failure, got %v", err)
	}
}

func TestVisible(t *testing.T) {
	in := []service.Task{
		{ID: "1"},
		{ID: "2", IsDeleted: true},
		{ID: "3"},
	}
	out := store.Visible(in)
	if len(out) != 2 || out[0].ID != "1" || out[1].ID != "3" {
		t.Errorf("unexpected result: %+v", out)
	}
}
