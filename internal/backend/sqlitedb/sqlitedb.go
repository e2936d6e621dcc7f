// Package sqlitedb implements service.Database over a local SQLite file.
// Every child of a collection is one row holding its JSON value. Listeners
// in the same process are notified after each committed write.
package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"livetask/internal/service"
)

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
  parent TEXT NOT NULL,
  key    TEXT NOT NULL,
  value  TEXT NOT NULL,
  PRIMARY KEY (parent, key)
);
`

const (
	selectChildrenQuery = `SELECT key, value FROM nodes WHERE parent = ? ORDER BY key`
	selectValueQuery    = `SELECT value FROM nodes WHERE parent = ? AND key = ?`
	upsertQuery         = `
INSERT INTO nodes (parent, key, value) VALUES (?, ?, ?)
ON CONFLICT (parent, key) DO UPDATE SET value = excluded.value`
	deleteQuery = `DELETE FROM nodes WHERE parent = ? AND key = ?`
)

type nodeRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

type listener struct {
	path string
	fn   func(service.Snapshot)
}

// DB is a service.Database stored in SQLite.
type DB struct {
	db  *sqlx.DB
	log *zap.Logger
	now func() time.Time

	mu        sync.Mutex
	listeners map[int]listener
	nextID    int

	// notifyMu keeps snapshots delivered in commit order.
	notifyMu sync.Mutex
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(log *zap.Logger) Option {
	return func(d *DB) { d.log = log }
}

// WithClock sets the clock used to resolve server timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// Open opens or creates the database file at path.
func Open(ctx context.Context, path string, opts ...Option) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	dsn := "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL"
	conn, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	d := &DB{
		db:        conn,
		now:       time.Now,
		listeners: make(map[int]listener),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = zap.L()
	}
	d.log = d.log.Named("sqlite")
	return d, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Listen implements service.Database. fn must not write to d.
func (d *DB) Listen(ctx context.Context, path string, fn func(service.Snapshot)) error {
	d.notifyMu.Lock()
	snap, err := d.snapshot(ctx, path)
	if err != nil {
		d.notifyMu.Unlock()
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = listener{path: path, fn: fn}
	d.mu.Unlock()

	fn(snap)
	d.notifyMu.Unlock()

	<-ctx.Done()

	d.mu.Lock()
	delete(d.listeners, id)
	d.mu.Unlock()
	return nil
}

// Push implements service.Database.
func (d *DB) Push(ctx context.Context, path string, value map[string]any) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	key := id.String()

	data, err := json.Marshal(service.ResolveServerValues(value, d.now()))
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, upsertQuery, path, key, string(data)); err != nil {
		return "", err
	}

	d.notify(path)
	return key, nil
}

// Update implements service.Database.
func (d *DB) Update(ctx context.Context, path string, fields map[string]any) error {
	parent, key := service.SplitPath(path)

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rec := make(map[string]any)
	var current string
	err = tx.GetContext(ctx, &current, selectValueQuery, parent, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		if err := json.Unmarshal([]byte(current), &rec); err != nil {
			// A scalar at path is replaced by the merged fields.
			rec = make(map[string]any)
		}
	}

	for k, v := range service.ResolveServerValues(fields, d.now()) {
		if v == nil {
			delete(rec, k)
			continue
		}
		rec[k] = v
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertQuery, parent, key, string(data)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	d.notify(parent)
	return nil
}

// Set implements service.Database.
func (d *DB) Set(ctx context.Context, path string, value any) error {
	parent, key := service.SplitPath(path)

	if m, ok := value.(map[string]any); ok {
		value = service.ResolveServerValues(m, d.now())
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	if _, err := d.db.ExecContext(ctx, upsertQuery, parent, key, string(data)); err != nil {
		return err
	}

	d.notify(parent)
	return nil
}

// Remove implements service.Database.
func (d *DB) Remove(ctx context.Context, path string) error {
	parent, key := service.SplitPath(path)
	if _, err := d.db.ExecContext(ctx, deleteQuery, parent, key); err != nil {
		return err
	}

	d.notify(parent)
	return nil
}

func (d *DB) snapshot(ctx context.Context, path string) (service.Snapshot, error) {
	var rows []nodeRow
	if err := d.db.SelectContext(ctx, &rows, selectChildrenQuery, path); err != nil {
		return service.Snapshot{}, fmt.Errorf("read %s: %w", path, err)
	}

	snap := service.Snapshot{Children: make([]service.Child, 0, len(rows))}
	for _, row := range rows {
		snap.Children = append(snap.Children, service.Child{Key: row.Key, Value: json.RawMessage(row.Value)})
	}
	return snap, nil
}

func (d *DB) notify(path string) {
	d.notifyMu.Lock()
	defer d.notifyMu.Unlock()

	d.mu.Lock()
	var fns []func(service.Snapshot)
	for _, l := range d.listeners {
		if l.path == path {
			fns = append(fns, l.fn)
		}
	}
	d.mu.Unlock()
	if len(fns) == 0 {
		return
	}

	snap, err := d.snapshot(context.Background(), path)
	if err != nil {
		d.log.Warn("failed to read snapshot for listeners", zap.String("path", path), zap.Error(err))
		return
	}
	for _, fn := range fns {
		fn(snap)
	}
}
