// Package store is the task store: the only component that reads and writes
// the tasks collection.
//
// Tasks are never physically removed. SoftDelete flags a task and every
// snapshot passes through Visible before it reaches a subscriber. There is no
// hard-delete or restore operation.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"livetask/internal/service"
)

const (
	// Collection is the database path holding task records.
	Collection = "tasks"

	// connectionTestPath is written and removed by CheckConnection.
	connectionTestPath = "connection_test"
)

// ErrEmptyText is returned when creating a task without text.
var ErrEmptyText = errors.New("task text required")

// Store reads and writes tasks through a service.Database.
type Store struct {
	db  service.Database
	log *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// New creates a Store over db.
func New(db service.Database, opts ...Option) *Store {
	s := &Store{db: db}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.L()
	}
	s.log = s.log.Named("store")
	return s
}

// SubscribeAll registers a live listener on the whole collection. Every time
// a task is added, changed or removed, onChange receives all non-deleted
// tasks in insertion order. The listener stays active until ctx is
// cancelled. Failures to attach are logged, not returned.
func (s *Store) SubscribeAll(ctx context.Context, onChange func([]service.Task)) {
	go func() {
		err := s.db.Listen(ctx, Collection, func(snap service.Snapshot) {
			onChange(Visible(s.decode(snap)))
		})
		if err != nil && ctx.Err() == nil {
			s.log.Error("task subscription failed", zap.Error(err))
		}
	}()
}

// Snapshot returns the current non-deleted tasks by waiting for the first
// push of a live subscription.
func (s *Store) Snapshot(ctx context.Context) ([]service.Task, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	first := make(chan []service.Task, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.db.Listen(ctx, Collection, func(snap service.Snapshot) {
			select {
			case first <- Visible(s.decode(snap)):
				cancel()
			default:
			}
		})
	}()

	select {
	case tasks := <-first:
		return tasks, nil
	case err := <-done:
		select {
		case tasks := <-first:
			return tasks, nil
		default:
		}
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("read tasks: %w", err)
	}
}

// Create stores a new task and returns its generated id.
func (s *Store) Create(ctx context.Context, task service.NewTask) (string, error) {
	if strings.TrimSpace(task.Text) == "" {
		return "", ErrEmptyText
	}
	id, err := s.db.Push(ctx, Collection, map[string]any{
		"text":      task.Text,
		"dueDate":   task.DueDate,
		"priority":  string(task.Priority),
		"completed": false,
		"isDeleted": false,
		"createdAt": service.ServerTimestamp,
	})
	if err != nil {
		s.log.Error("error creating task", zap.Error(err))
		return "", fmt.Errorf("create task: %w", err)
	}
	s.log.Debug("task created", zap.String("id", id))
	return id, nil
}

// Update merges the set fields of u into the task. Concurrent writers are
// not coordinated; the last write of each field wins.
func (s *Store) Update(ctx context.Context, id string, u service.TaskUpdate) error {
	return s.update(ctx, id, u.Fields())
}

// ToggleComplete flips the completed flag given its current value.
func (s *Store) ToggleComplete(ctx context.Context, id string, current bool) error {
	completed := !current
	return s.Update(ctx, id, service.TaskUpdate{Completed: &completed})
}

// SoftDelete marks the task deleted. The record stays in the database.
func (s *Store) SoftDelete(ctx context.Context, id string) error {
	return s.update(ctx, id, map[string]any{
		"isDeleted": true,
		"deletedAt": service.ServerTimestamp,
	})
}

// CheckConnection writes a probe record and removes it again.
func (s *Store) CheckConnection(ctx context.Context) error {
	err := s.db.Set(ctx, connectionTestPath, map[string]any{
		"timestamp": service.ServerTimestamp,
		"message":   "Connected successfully",
	})
	if err != nil {
		return fmt.Errorf("connection test: %w", err)
	}
	if err := s.db.Remove(ctx, connectionTestPath); err != nil {
		return fmt.Errorf("connection test cleanup: %w", err)
	}
	s.log.Debug("connected to database")
	return nil
}

func (s *Store) update(ctx context.Context, id string, fields map[string]any) error {
	if id == "" {
		return errors.New("task id required")
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.db.Update(ctx, Collection+"/"+id, fields); err != nil {
		s.log.Error("error updating task", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("update task %s: %w", id, err)
	}
	s.log.Debug("task updated", zap.String("id", id))
	return nil
}

func (s *Store) decode(snap service.Snapshot) []service.Task {
	tasks := make([]service.Task, 0, len(snap.Children))
	for _, child := range snap.Children {
		task, err := decodeTask(child)
		if err != nil {
			s.log.Warn("skipping task record", zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// Visible drops soft-deleted tasks, keeping order.
func Visible(tasks []service.Task) []service.Task {
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.IsDeleted {
			out = append(out, t)
		}
	}
	return out
}
