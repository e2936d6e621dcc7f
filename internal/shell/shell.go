// Package shell is the interactive task list: a read-eval loop over a live
// view of the task set. The list is re-rendered on every push from the
// database and after every change of search, filter or sort.
//
// A push that arrives while a prompt is open prints below the input line
// and then repeats the prompt. liner redraws the typed text on the next
// keystroke.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"livetask/internal/output"
	"livetask/internal/service"
	"livetask/internal/store"
	"livetask/internal/view"
)

// Prompt is the main prompt.
const Prompt = "livetask> "

// LineReader reads lines from the user.
type LineReader interface {
	Prompt(prompt string) (string, error)
	PromptWithSuggestion(prompt, text string, pos int) (string, error)
	AppendHistory(item string)
}

// Shell runs the interactive loop and is the view's surface.
type Shell struct {
	view *view.View
	lr   LineReader
	log  *zap.Logger

	outMu sync.Mutex
	out   io.Writer
	// open is the prompt currently shown by lr, empty between prompts.
	open  string

	// form holds the add-form slots set by the due and prio commands.
	form view.AddForm
}

// Option configures a Shell.
type Option func(*options)

type options struct {
	log    *zap.Logger
	now    func() time.Time
	locale language.Tag
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithClock sets the clock used to default invalid dates.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLocale sets the collation locale for name sorting.
func WithLocale(tag language.Tag) Option {
	return func(o *options) { o.locale = tag }
}

// New creates a shell over a task store.
func New(ts view.TaskStore, lr LineReader, out io.Writer, opts ...Option) *Shell {
	o := options{now: time.Now, locale: language.Und}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.L()
	}

	s := &Shell{lr: lr, out: out, log: o.log.Named("shell")}
	s.form.DueDate = o.now().UTC().Format(service.DateLayout)
	s.form.Priority = string(service.PriorityMedium)
	s.view = view.New(ts, s,
		view.WithClock(o.now),
		view.WithLocale(o.locale),
		view.WithLogger(o.log))
	return s
}

// View returns the shell's view.
func (s *Shell) View() *view.View {
	return s.view
}

// Run attaches the view and reads commands until quit, end of input or
// ctx is cancelled.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.view.Attach(ctx)
	s.printf("livetask shell. Type 'help' for commands.\n")

	for {
		line, err := s.prompt(Prompt)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				s.printf("\n")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.lr.AppendHistory(line)

		if quit := s.Exec(ctx, line); quit {
			return nil
		}
	}
}

// Exec runs one command line. It returns true when the user asked to quit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "quit", "exit", "q":
		return true
	case "help", "?":
		s.printf("%s", helpText)
	case "add":
		s.add(ctx, rest)
	case "due":
		s.setDue(rest)
	case "prio", "priority":
		s.setPriority(rest)
	case "search":
		s.view.SetSearch(rest)
	case "clear":
		s.view.ClearSearch()
	case "filter":
		p, err := view.ParsePriorityFilter(rest)
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		s.view.SetPriorityFilter(p)
	case "sort":
		m, err := view.ParseSortMode(rest)
		if err != nil {
			s.printf("%v\n", err)
			return false
		}
		s.view.SetSort(m)
	case "toggle", "done":
		if task, ok := s.lookup(rest); ok {
			_ = s.view.Toggle(ctx, task.ID)
		}
	case "rm", "delete":
		if task, ok := s.lookup(rest); ok {
			if err := s.view.Delete(ctx, task.ID); errors.Is(err, view.ErrCancelled) {
				s.printf("cancelled\n")
			}
		}
	case "edit":
		if task, ok := s.lookup(rest); ok {
			s.edit(ctx, task)
		}
	case "ls", "list":
		s.Render(s.view.Projection())
	case "show":
		if task, ok := s.lookup(rest); ok {
			s.outMu.Lock()
			output.FormatTaskDetail(s.out, task)
			s.outMu.Unlock()
		}
	default:
		s.printf("unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) add(ctx context.Context, text string) {
	form := s.form
	form.Text = text
	if _, err := s.view.Add(ctx, form); errors.Is(err, store.ErrEmptyText) {
		s.printf("usage: add <text>\n")
	}
}

func (s *Shell) setDue(arg string) {
	if arg == "" {
		s.printf("due date: %s\n", s.form.DueDate)
		return
	}
	s.form.DueDate = arg
}

func (s *Shell) setPriority(arg string) {
	if arg == "" {
		s.printf("priority: %s\n", s.form.Priority)
		return
	}
	p, err := service.ParsePriority(arg)
	if err != nil {
		s.printf("%v\n", err)
		return
	}
	s.form.Priority = string(p)
}

func (s *Shell) lookup(ref string) (service.Task, bool) {
	if ref == "" {
		s.printf("task reference required\n")
		return service.Task{}, false
	}
	task, err := s.view.Lookup(ref)
	if err != nil {
		s.printf("%v\n", err)
		return service.Task{}, false
	}
	return task, true
}

// edit runs the edit modal: each field is prompted pre-filled with its
// current value. Aborting a prompt closes the modal without saving.
func (s *Shell) edit(ctx context.Context, task service.Task) {
	form, err := s.view.OpenEdit(task.ID)
	if err != nil {
		s.printf("%v\n", err)
		return
	}
	defer s.view.CloseEdit()

	text, err := s.promptText(form.Text)
	if err != nil {
		s.printf("edit cancelled\n")
		return
	}
	due, err := s.promptWithSuggestion("due: ", form.DueDate, -1)
	if err != nil {
		s.printf("edit cancelled\n")
		return
	}
	prio, err := s.promptWithSuggestion("priority: ", form.Priority, -1)
	if err != nil {
		s.printf("edit cancelled\n")
		return
	}
	form.Text, form.DueDate, form.Priority = text, due, prio

	_ = s.view.SubmitEdit(ctx, form)
}

// promptText asks for the task text until it is not blank.
func (s *Shell) promptText(current string) (string, error) {
	for {
		text, err := s.promptWithSuggestion("text: ", current, -1)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
		s.printf("task text required\n")
	}
}

// Render implements view.Surface.
func (s *Shell) Render(tasks []service.Task) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintln(s.out)
	output.RenderList(s.out, tasks)
	if s.open != "" {
		fmt.Fprint(s.out, s.open)
	}
}

// Alert implements view.Surface.
func (s *Shell) Alert(msg string) {
	s.printf("%s\n", msg)
}

// Confirm implements view.Surface. Only y or yes confirms.
func (s *Shell) Confirm(prompt string) bool {
	answer, err := s.prompt(prompt + " [y/N] ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// ClearInput implements view.Surface. The text slot is per command, so
// only the due date and priority slots persist.
func (s *Shell) ClearInput() {
	s.form.Text = ""
}

func (s *Shell) prompt(p string) (string, error) {
	s.setOpen(p)
	defer s.setOpen("")
	return s.lr.Prompt(p)
}

func (s *Shell) promptWithSuggestion(p, text string, pos int) (string, error) {
	s.setOpen(p)
	defer s.setOpen("")
	return s.lr.PromptWithSuggestion(p, text, pos)
}

func (s *Shell) setOpen(p string) {
	s.outMu.Lock()
	s.open = p
	s.outMu.Unlock()
}

func (s *Shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

const helpText = `Commands:
  add <text>            Create a task with the current due date and priority
  due [YYYY-MM-DD]      Show or set the due date for new tasks
  prio [high|medium|low]
                        Show or set the priority for new tasks
  search <text>         Show tasks containing text
  clear                 Clear the search
  filter <p|all>        Show only one priority
  sort <date|priority|name|none>
  toggle <ref>          Toggle completion
  rm <ref>              Delete a task
  edit <ref>            Edit text, due date and priority
  show <ref>            Print a task with its id
  ls                    Print the list again
  help                  Print this help
  quit                  Leave the shell

A <ref> is a number from the list or a task id.
`
