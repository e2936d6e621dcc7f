// Package view keeps a filtered, sorted projection of the live task set in
// sync with the user's search, filter and sort settings, and turns user
// actions into task store calls.
//
// The full task set is replaced on every push from the store. The view never
// mutates it locally: a toggle or edit shows up with the next push.
package view

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"livetask/internal/service"
	"livetask/internal/store"
)

// ConfirmDeletePrompt is the question asked before a soft delete.
const ConfirmDeletePrompt = "Are you sure you want to delete this task?"

var (
	// ErrNoTask is returned when an id is not in the current task set.
	ErrNoTask = errors.New("task not found")

	// ErrModalClosed is returned when submitting an edit with no open modal.
	ErrModalClosed = errors.New("edit modal is not open")

	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled")
)

// TaskStore is the part of the task store the view depends on.
type TaskStore interface {
	SubscribeAll(ctx context.Context, onChange func([]service.Task))
	Create(ctx context.Context, task service.NewTask) (string, error)
	Update(ctx context.Context, id string, u service.TaskUpdate) error
	ToggleComplete(ctx context.Context, id string, current bool) error
	SoftDelete(ctx context.Context, id string) error
}

// Surface is the presentation the view drives.
// Render is called with the view lock held and must not call back into the view.
type Surface interface {
	// Render replaces the displayed list. An empty slice shows the
	// "no tasks found" placeholder.
	Render(tasks []service.Task)

	// Alert reports a failed action to the user.
	Alert(msg string)

	// Confirm asks a yes/no question.
	Confirm(prompt string) bool

	// ClearInput empties the add form's text field.
	ClearInput()
}

// View holds the task set, the criteria and the edit modal.
type View struct {
	store   TaskStore
	surface Surface
	log     *zap.Logger
	now     func() time.Time
	locale  language.Tag

	mu         sync.Mutex
	tasks      []service.Task
	criteria   Criteria
	projection []service.Task
	editing    *EditForm
}

// Option configures a View.
type Option func(*View)

// WithClock sets the clock used to default invalid dates.
func WithClock(now func() time.Time) Option {
	return func(v *View) { v.now = now }
}

// WithLocale sets the collation locale for name sorting.
func WithLocale(tag language.Tag) Option {
	return func(v *View) { v.locale = tag }
}

// WithCriteria sets the initial criteria.
func WithCriteria(c Criteria) Option {
	return func(v *View) { v.criteria = c }
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(log *zap.Logger) Option {
	return func(v *View) { v.log = log }
}

// New creates a View over a task store and a surface.
func New(ts TaskStore, surface Surface, opts ...Option) *View {
	v := &View{
		store:   ts,
		surface: surface,
		now:     time.Now,
		locale:  language.Und,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.log == nil {
		v.log = zap.L()
	}
	v.log = v.log.Named("view")
	return v
}

// Attach subscribes the view to the store until ctx is cancelled.
func (v *View) Attach(ctx context.Context) {
	v.store.SubscribeAll(ctx, v.Replace)
}

// Replace swaps in a new full task set and re-renders.
func (v *View) Replace(tasks []service.Task) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tasks = store.Visible(tasks)
	v.refreshLocked()
}

// Tasks returns the full task set.
func (v *View) Tasks() []service.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]service.Task(nil), v.tasks...)
}

// Projection returns the tasks currently rendered.
func (v *View) Projection() []service.Task {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]service.Task(nil), v.projection...)
}

// Criteria returns the current criteria.
func (v *View) Criteria() Criteria {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.criteria
}

// SetCriteria replaces all criteria at once and re-renders.
func (v *View) SetCriteria(c Criteria) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.criteria = c
	v.refreshLocked()
}

// SetSearch sets the search text and re-renders.
func (v *View) SetSearch(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.criteria.Search = q
	v.refreshLocked()
}

// ClearSearch empties the search text and re-renders.
func (v *View) ClearSearch() {
	v.SetSearch("")
}

// SetPriorityFilter sets the priority filter ("" for none) and re-renders.
func (v *View) SetPriorityFilter(p service.Priority) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.criteria.Priority = p
	v.refreshLocked()
}

// SetSort sets the sort mode and re-renders.
func (v *View) SetSort(m SortMode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.criteria.Sort = m
	v.refreshLocked()
}

func (v *View) refreshLocked() {
	v.projection = Project(v.tasks, v.criteria, v.locale)
	v.surface.Render(v.projection)
}

// Add creates a task from the add form. Empty text is not submitted and
// returns store.ErrEmptyText without an alert. An invalid date becomes today.
func (v *View) Add(ctx context.Context, form AddForm) (string, error) {
	text := strings.TrimSpace(form.Text)
	if text == "" {
		return "", store.ErrEmptyText
	}

	priority, err := parseFormPriority(form.Priority)
	if err != nil {
		v.surface.Alert("Error creating task: " + err.Error())
		return "", err
	}

	due, ok := NormalizeDueDate(form.DueDate, v.now())
	if !ok {
		v.log.Warn("invalid date provided, using today instead",
			zap.String("input", form.DueDate), zap.String("date", due))
	}

	id, err := v.store.Create(ctx, service.NewTask{
		Text:     text,
		DueDate:  due,
		Priority: priority,
	})
	if err != nil {
		v.surface.Alert("Error creating task: " + err.Error())
		return "", err
	}
	v.surface.ClearInput()
	return id, nil
}

// Toggle flips the completion of a task in the current set.
func (v *View) Toggle(ctx context.Context, id string) error {
	task, ok := v.find(id)
	if !ok {
		return ErrNoTask
	}
	if err := v.store.ToggleComplete(ctx, id, task.Completed); err != nil {
		v.surface.Alert("Error updating task: " + err.Error())
		return err
	}
	return nil
}

// Delete soft-deletes a task after the user confirms.
func (v *View) Delete(ctx context.Context, id string) error {
	if _, ok := v.find(id); !ok {
		return ErrNoTask
	}
	if !v.surface.Confirm(ConfirmDeletePrompt) {
		return ErrCancelled
	}
	if err := v.store.SoftDelete(ctx, id); err != nil {
		v.surface.Alert("Error deleting task: " + err.Error())
		return err
	}
	v.log.Debug("task soft deleted", zap.String("id", id))
	return nil
}

// OpenEdit opens the edit modal pre-filled with the task's fields.
func (v *View) OpenEdit(id string) (EditForm, error) {
	task, ok := v.find(id)
	if !ok {
		return EditForm{}, ErrNoTask
	}
	form := EditForm{
		ID:       task.ID,
		Text:     task.Text,
		DueDate:  task.DueDate,
		Priority: string(task.Priority),
	}

	v.mu.Lock()
	v.editing = &form
	v.mu.Unlock()
	return form, nil
}

// Editing returns the open modal's form.
func (v *View) Editing() (EditForm, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.editing == nil {
		return EditForm{}, false
	}
	return *v.editing, true
}

// CloseEdit closes the modal. Closing a closed modal is a no-op.
func (v *View) CloseEdit() {
	v.mu.Lock()
	v.editing = nil
	v.mu.Unlock()
}

// SubmitEdit saves the modal form and closes the modal on success. Empty
// text is not submitted and leaves the modal open.
func (v *View) SubmitEdit(ctx context.Context, form EditForm) error {
	open, ok := v.Editing()
	if !ok {
		return ErrModalClosed
	}
	if form.ID == "" {
		form.ID = open.ID
	}

	text := strings.TrimSpace(form.Text)
	if text == "" {
		return store.ErrEmptyText
	}

	priority, err := parseFormPriority(form.Priority)
	if err != nil {
		v.surface.Alert("Error updating task: " + err.Error())
		return err
	}

	due, valid := NormalizeDueDate(form.DueDate, v.now())
	if !valid {
		v.log.Warn("invalid date provided, using today instead",
			zap.String("input", form.DueDate), zap.String("date", due))
	}

	err = v.store.Update(ctx, form.ID, service.TaskUpdate{
		Text:     &text,
		DueDate:  &due,
		Priority: &priority,
	})
	if err != nil {
		v.surface.Alert("Error updating task: " + err.Error())
		return err
	}
	v.CloseEdit()
	return nil
}

// Lookup resolves a user reference: a 1-based number in the current
// projection, or a task id in the full set.
func (v *View) Lookup(ref string) (service.Task, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil && !strings.HasPrefix(ref, "-") && !strings.HasPrefix(ref, "+") {
		v.mu.Lock()
		defer v.mu.Unlock()
		if n < 1 || n > len(v.projection) {
			return service.Task{}, fmt.Errorf("%w: task number out of range: %d", ErrNoTask, n)
		}
		return v.projection[n-1], nil
	}
	if t, ok := v.find(ref); ok {
		return t, nil
	}
	return service.Task{}, fmt.Errorf("%w: %s", ErrNoTask, ref)
}

// Find returns the task with the given id. Numbers are not treated as
// list positions.
func (v *View) Find(id string) (service.Task, error) {
	if t, ok := v.find(id); ok {
		return t, nil
	}
	return service.Task{}, fmt.Errorf("%w: %s", ErrNoTask, id)
}

func (v *View) find(id string) (service.Task, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range v.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}
