package shell_test

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"livetask/internal/service"
	"livetask/internal/shell"
	"livetask/internal/store"
	"livetask/internal/testutil"
)

// scriptedReader answers prompts from a fixed list of lines, then io.EOF.
type scriptedReader struct {
	mu          sync.Mutex
	lines       []string
	prompts     []string
	suggestions []string
	history     []string

	// onPrompt runs before each Prompt is answered.
	onPrompt func()
}

func (r *scriptedReader) next(prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	if line == "^C" {
		return "", liner.ErrPromptAborted
	}
	return line, nil
}

func (r *scriptedReader) Prompt(prompt string) (string, error) {
	if r.onPrompt != nil {
		r.onPrompt()
	}
	return r.next(prompt)
}

func (r *scriptedReader) PromptWithSuggestion(prompt, text string, pos int) (string, error) {
	r.mu.Lock()
	r.suggestions = append(r.suggestions, text)
	r.mu.Unlock()
	return r.next(prompt)
}

func (r *scriptedReader) AppendHistory(item string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, item)
}

func (r *scriptedReader) feed(lines ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, lines...)
}

// syncBuffer is a bytes.Buffer safe for the listener goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	db  *testutil.FakeDatabase
	lr  *scriptedReader
	out *syncBuffer
	sh  *shell.Shell
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewFakeDatabase()
	lr := &scriptedReader{}
	out := &syncBuffer{}
	now := func() time.Time { return time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC) }
	sh := shell.New(store.New(db, store.WithLogger(zap.NewNop())), lr, out,
		shell.WithLogger(zap.NewNop()), shell.WithClock(now))
	return &fixture{db: db, lr: lr, out: out, sh: sh}
}

func (f *fixture) attach(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.sh.View().Attach(ctx)
	testutil.WaitFor(t, "listener attached", func() bool { return f.db.Listeners() == 1 })
	return ctx
}

func (f *fixture) only(t *testing.T) service.Task {
	t.Helper()
	testutil.WaitFor(t, "one task", func() bool { return len(f.sh.View().Tasks()) == 1 })
	return f.sh.View().Tasks()[0]
}

func TestExec_AddUsesFormSlots(t *testing.T) {
	f := newFixture(t)
	ctx := f.attach(t)

	f.sh.Exec(ctx, "due 2025-07-04")
	f.sh.Exec(ctx, "prio high")
	f.sh.Exec(ctx, "add   Pay rent  ")

	got := f.only(t)
	if got.Text != "Pay rent" || got.DueDate != "2025-07-04" || got.Priority != service.PriorityHigh {
		t.Errorf("unexpected task: %+v", got)
	}
	if !strings.Contains(f.out.String(), "   1  [ ] Pay rent  (high, due 2025-07-04)") {
		t.Errorf("expected rendered task, got:\n%s", f.out.String())
	}
}

func TestExec_AddDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := f.attach(t)

	f.sh.Exec(ctx, "add Walk dog")

	got := f.only(t)
	if got.DueDate != "2025-06-30" || got.Priority != service.PriorityMedium {
		t.Errorf("expected today and medium, got %+v", got)
	}
}

func TestExec_AddEmptyText(t *testing.T) {
	f := newFixture(t)
	ctx := f.attach(t)

	f.sh.Exec(ctx, "add")

	if f.db.Len(store.Collection) != 0 {
		t.Error("expected nothing written")
	}
	if !strings.Contains(f.out.String(), "usage: add <text>") {
		t.Errorf("expected usage hint, got:\n%s", f.out.String())
	}
}

func TestExec_InvalidPrioritySlot(t *testing.T) {
	f := newFixture(t)
	ctx := f.attach(t)

	f.sh.Exec(ctx, "prio urgent")
	f.sh.Exec(ctx, "prio")

	if !strings.Contains(f.out.String(), "invalid priority") {
		t.Errorf("expected invalid priority message, got:\n%s", f.out.String())
	}
	if !strings.Contains(f.out.String(), "priority: medium") {
		t.Errorf("expected slot unchanged, got:\n%s", f.out.String())
	}
}

func TestExec_ToggleByNumber(t *testing.T) {
	f := newFixture(t)
	ctx := f.attach(t)

	f.sh.Exec(ctx, "add Walk dog")
	task := f.only(t)

	f.sh.Exec(ctx, "toggle 1")

	rec, _ := f.db.Record(store.Collection + "/" + task.ID)
	if rec["completed"] != true {
		t.Errorf("expected completed, got %v", rec["completed"])
	}
}

func TestExec_RemoveConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := f.attach(t)

	f.sh.Exec(ctx, "add Walk dog")
	task := f.only(t)

	f.lr.feed("n")
	f.sh.Exec(ctx, "rm 1")
	if !strings.Contains(f.out.String(), "cancelled") {
		t.Errorf("expected cancelled, got:\n%s", f.out.String())
	}
	if rec, _ := f.db.Record(store.Collection + "/" + task.ID); rec["isDeleted"] == true {
		t.Fatal("declined delete must not write")
	}

	f.lr.feed("yes")
	f.sh.Exec(ctx, "rm "+task.ID)
	testutil.WaitFor(t, "task hidden", func() bool { return len(f.sh.View().Tasks()) == 0 })

	if !strings.Contains(f.lr.prompts[len(f.lr.prompts)-1], "Are you sure") {
		t.Errorf("expected confirmation prompt, got %q", f.lr.prompts)
	}
}

func TestExec_Edit(t *testing.T) {
	f := newFixture(t)
	ctx := f.attach(t)

	f.sh.Exec(ctx, "add Walk dog")
	task := f.only(t)

	f.lr.feed("  ", "Walk the dog", "2025-08-01", "low")
	f.sh.Exec(ctx, "edit 1")

	testutil.WaitFor(t, "edit pushed", func() bool {
		return f.sh.View().Tasks()[0].Text == "Walk the dog"
	})
	got := f.sh.View().Tasks()[0]
	if got.ID != task.ID || got.DueDate != "2025-08-01" || got.Priority != service.PriorityLow {
		t.Errorf("unexpected task after edit: %+v", got)
	}
	if !strings.Contains(f.out.String(), "task text required") {
		t.Errorf("expected empty text to re-prompt, got:\n%s", f.out.String())
	}
	if f.lr.suggestions[0] != "Walk dog" || f.lr.suggestions[3] != string(service.PriorityMedium) {
		t.Errorf("expected prompts pre-filled with current values, got %q", f.lr.suggestions)
	}
	if _, open := f.sh.View().Editing(); open {
		t.Error("expected modal closed")
	}
}

func TestExec_EditAbort(t *testing.T) {
	f := newFixture(t)
	ctx := f.attach(t)

	f.sh.Exec(ctx, "add Walk dog")
	f.only(t)

	f.lr.feed("^C")
	f.sh.Exec(ctx, "edit 1")

	if f.sh.View().Tasks()[0].Text != "Walk dog" {
		t.Error("aborted edit must not write")
	}
	if _, open := f.sh.View().Editing(); open {
		t.Error("expected modal closed")
	}
}

func TestExec_Criteria(t *testing.T) {
	f := newFixture(t)
	f.db.AddRecord(store.Collection, "a1", map[string]any{"text": "Buy milk", "priority": "low", "dueDate": "2025-07-02"})
	f.db.AddRecord(store.Collection, "a2", map[string]any{"text": "Call mom", "priority": "high", "dueDate": "2025-07-01"})
	ctx := f.attach(t)
	testutil.WaitFor(t, "tasks loaded", func() bool { return len(f.sh.View().Tasks()) == 2 })

	f.sh.Exec(ctx, "search MILK")
	if p := f.sh.View().Projection(); len(p) != 1 || p[0].ID != "a1" {
		t.Errorf("search: unexpected projection %+v", p)
	}

	f.sh.Exec(ctx, "clear")
	f.sh.Exec(ctx, "filter high")
	if p := f.sh.View().Projection(); len(p) != 1 || p[0].ID != "a2" {
		t.Errorf("filter: unexpected projection %+v", p)
	}

	f.sh.Exec(ctx, "filter all")
	f.sh.Exec(ctx, "sort date")
	if p := f.sh.View().Projection(); len(p) != 2 || p[0].ID != "a2" {
		t.Errorf("sort: unexpected projection %+v", p)
	}

	f.sh.Exec(ctx, "sort sideways")
	if !strings.Contains(f.out.String(), "invalid sort mode") {
		t.Errorf("expected sort error, got:\n%s", f.out.String())
	}
}

func TestExec_UnknownRefAndCommand(t *testing.T) {
	f := newFixture(t)
	ctx := f.attach(t)

	f.sh.Exec(ctx, "toggle 7")
	f.sh.Exec(ctx, "toggle")
	f.sh.Exec(ctx, "frobnicate")

	out := f.out.String()
	for _, want := range []string{"task number out of range: 7", "task reference required", "unknown command: frobnicate"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestExec_Quit(t *testing.T) {
	f := newFixture(t)
	for _, line := range []string{"quit", "exit", "q"} {
		if !f.sh.Exec(context.Background(), line) {
			t.Errorf("%q: expected quit", line)
		}
	}
	if f.sh.Exec(context.Background(), "help") {
		t.Error("help must not quit")
	}
}

func TestRun_ReadsUntilEOF(t *testing.T) {
	f := newFixture(t)
	f.lr.feed("add Buy milk", "   ", "ls")

	if err := f.sh.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.db.Len(store.Collection) != 1 {
		t.Errorf("expected one task written, got %d", f.db.Len(store.Collection))
	}
	if len(f.lr.history) != 2 {
		t.Errorf("expected blank line kept out of history, got %q", f.lr.history)
	}
	if f.lr.prompts[0] != shell.Prompt {
		t.Errorf("expected prompt %q, got %q", shell.Prompt, f.lr.prompts[0])
	}
}

func TestRun_AbortQuits(t *testing.T) {
	f := newFixture(t)
	f.lr.feed("^C", "add never")

	if err := f.sh.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.db.Len(store.Collection) != 0 {
		t.Error("expected loop to stop at abort")
	}
}

func TestRun_PushRepeatsOpenPrompt(t *testing.T) {
	f := newFixture(t)
	f.lr.onPrompt = func() {
		f.lr.onPrompt = nil
		testutil.WaitFor(t, "listener attached", func() bool { return f.db.Listeners() == 1 })
		f.db.AddRecord(store.Collection, "a1", map[string]any{"text": "Buy milk", "priority": "low"})
		f.db.Notify(store.Collection)
		testutil.WaitFor(t, "pushed render", func() bool { return strings.Contains(f.out.String(), "Buy milk") })
	}

	if err := f.sh.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := f.out.String()
	after := out[strings.LastIndex(out, "Buy milk"):]
	if !strings.Contains(after, shell.Prompt) {
		t.Errorf("expected prompt repeated after pushed list, got %q", out)
	}
}

func TestExec_RenderWithoutPromptOmitsIt(t *testing.T) {
	f := newFixture(t)
	f.db.AddRecord(store.Collection, "a1", map[string]any{"text": "Buy milk", "priority": "low"})
	ctx := f.attach(t)
	f.only(t)

	f.sh.Exec(ctx, "ls")
	if strings.Contains(f.out.String(), shell.Prompt) {
		t.Errorf("expected no prompt outside the read loop, got %q", f.out.String())
	}
}
