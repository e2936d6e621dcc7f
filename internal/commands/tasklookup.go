package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/output"
	"livetask/internal/service"
	"livetask/internal/store"
	"livetask/internal/view"
)

// SnapshotTimeout bounds the initial read of one-shot commands.
const SnapshotTimeout = 10 * time.Second

// criteriaFlags are the projection flags shared by list and the commands
// that take a numeric task reference.
type criteriaFlags struct {
	search   string
	priority string
	sort     string
}

// register adds the flags. priorityFlag names the priority filter flag, so
// edit can keep --priority for the new value.
func (f *criteriaFlags) register(fs *pflag.FlagSet, priorityFlag string) {
	fs.StringVarP(&f.search, "search", "s", "", "")
	fs.StringVar(&f.priority, priorityFlag, "", "")
	fs.StringVar(&f.sort, "sort", "", "")
}

func (f *criteriaFlags) criteria() (view.Criteria, error) {
	p, err := view.ParsePriorityFilter(f.priority)
	if err != nil {
		return view.Criteria{}, err
	}
	m, err := view.ParseSortMode(f.sort)
	if err != nil {
		return view.Criteria{}, err
	}
	return view.Criteria{Search: f.search, Priority: p, Sort: m}, nil
}

// cliSurface presents view output on the command's streams.
type cliSurface struct {
	io       IO
	render   bool
	quiet    bool
	force    bool
	separate bool

	renders int

	in      *bufio.Reader
	alerted bool
}

func newSurface(streams IO, cfg *config.Config) *cliSurface {
	return &cliSurface{io: streams, quiet: cfg.Quiet}
}

func (s *cliSurface) Render(tasks []service.Task) {
	if !s.render {
		return
	}
	if len(tasks) == 0 && s.quiet {
		return
	}
	if s.separate && s.renders > 0 {
		fmt.Fprintln(s.io.Out)
	}
	s.renders++
	output.RenderList(s.io.Out, tasks)
}

func (s *cliSurface) Alert(msg string) {
	s.alerted = true
	fmt.Fprintf(s.io.ErrOut, "error: %s\n", msg)
}

// Confirm asks on stderr and reads the answer from stdin. Only y or yes
// confirms.
func (s *cliSurface) Confirm(prompt string) bool {
	if s.force {
		return true
	}
	if s.io.In == nil {
		return false
	}
	if s.in == nil {
		s.in = bufio.NewReader(s.io.In)
	}
	fmt.Fprintf(s.io.ErrOut, "%s [y/N] ", prompt)
	line, err := s.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(s.io.ErrOut)
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (s *cliSurface) ClearInput() {}

// session is a view over one snapshot of the task set.
type session struct {
	store   *store.Store
	view    *view.View
	surface *cliSurface
}

// openSession reads the current tasks and loads them into a view with the
// given criteria. The surface renders the projection if its render flag is set.
func openSession(ctx context.Context, cfg *config.Config, db service.Database, c view.Criteria, surface *cliSurface) (*session, error) {
	st := store.New(db)

	readCtx, cancel := context.WithTimeout(ctx, SnapshotTimeout)
	defer cancel()
	tasks, err := st.Snapshot(readCtx)
	if err != nil {
		return nil, err
	}

	v := view.New(st, surface, view.WithCriteria(c), view.WithLocale(cfg.LocaleTag()))
	v.Replace(tasks)
	return &session{store: st, view: v, surface: surface}, nil
}

// resolve finds the task named by ref.
func (s *session) resolve(ref string) (service.Task, error) {
	return s.view.Lookup(ref)
}

// fail reports err unless the surface already alerted it, and returns the
// matching exit code.
func fail(errOut io.Writer, surface *cliSurface, err error) int {
	if surface == nil || !surface.alerted {
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return exitcode.ForError(err)
}

// usage reports a bad argument or flag value.
func usage(errOut io.Writer, err error) int {
	fmt.Fprintf(errOut, "error: %v\n", err)
	return exitcode.UserError
}

// ok prints the success line unless quiet.
func ok(cfg *config.Config, out io.Writer) {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
}
