package sqlitedb_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"livetask/internal/backend/sqlitedb"
	"livetask/internal/service"
	"livetask/internal/testutil"
)

var serverNow = time.UnixMilli(1704067200000)

func open(t *testing.T, path string) *sqlitedb.DB {
	t.Helper()
	db, err := sqlitedb.Open(context.Background(), path,
		sqlitedb.WithLogger(zap.NewNop()),
		sqlitedb.WithClock(func() time.Time { return serverNow }))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type collector struct {
	mu    sync.Mutex
	snaps []service.Snapshot
}

func (c *collector) add(s service.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snaps = append(c.snaps, s)
}

func (c *collector) last() service.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snaps[len(c.snaps)-1]
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.snaps)
}

func listen(t *testing.T, db *sqlitedb.DB, path string) *collector {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c := &collector{}
	go func() { _ = db.Listen(ctx, path, c.add) }()
	testutil.WaitFor(t, "initial snapshot", func() bool { return c.count() > 0 })
	return c
}

func decode(t *testing.T, raw json.RawMessage) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestPush_KeysInInsertionOrder(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "tasks.db"))
	c := listen(t, db, "tasks")
	ctx := context.Background()

	var keys []string
	for _, text := range []string{"one", "two", "three"} {
		key, err := db.Push(ctx, "tasks", map[string]any{"text": text, "createdAt": service.ServerTimestamp})
		require.NoError(t, err)
		keys = append(keys, key)
	}

	testutil.WaitFor(t, "three children", func() bool { return len(c.last().Children) == 3 })
	snap := c.last()
	for i, child := range snap.Children {
		assert.Equal(t, keys[i], child.Key)
	}
	first := decode(t, snap.Children[0].Value)
	assert.Equal(t, "one", first["text"])
	assert.Equal(t, float64(serverNow.UnixMilli()), first["createdAt"])
}

func TestUpdate_MergesFields(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "tasks.db"))
	ctx := context.Background()

	key, err := db.Push(ctx, "tasks", map[string]any{"text": "Walk dog", "completed": false, "note": "x"})
	require.NoError(t, err)

	require.NoError(t, db.Update(ctx, "tasks/"+key, map[string]any{
		"completed": true,
		"note":      nil,
		"deletedAt": service.ServerTimestamp,
	}))

	c := listen(t, db, "tasks")
	rec := decode(t, c.last().Children[0].Value)
	assert.Equal(t, "Walk dog", rec["text"])
	assert.Equal(t, true, rec["completed"])
	assert.NotContains(t, rec, "note")
	assert.Equal(t, float64(serverNow.UnixMilli()), rec["deletedAt"])
}

func TestSetRemove(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "tasks.db"))
	c := listen(t, db, "connection_test")
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, "connection_test/probe", map[string]any{"message": "Connected successfully"}))
	testutil.WaitFor(t, "probe written", func() bool { return len(c.last().Children) == 1 })

	require.NoError(t, db.Remove(ctx, "connection_test/probe"))
	testutil.WaitFor(t, "probe removed", func() bool { return len(c.last().Children) == 0 })
}

func TestListen_OnlyMatchingPath(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "tasks.db"))
	c := listen(t, db, "tasks")

	_, err := db.Push(context.Background(), "other", map[string]any{"text": "x"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, c.count())
}

func TestListen_ReturnsOnCancel(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "tasks.db"))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- db.Listen(ctx, "tasks", func(service.Snapshot) {}) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Listen did not return")
	}
}

func TestListen_CancelledBeforeStart(t *testing.T) {
	db := open(t, filepath.Join(t.TempDir(), "tasks.db"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := db.Listen(ctx, "tasks", func(service.Snapshot) { called = true })
	require.NoError(t, err)
	assert.False(t, called)
}

func TestReopen_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.db")
	db := open(t, path)
	key, err := db.Push(context.Background(), "tasks", map[string]any{"text": "keep"})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	again := open(t, path)
	c := listen(t, again, "tasks")
	require.Len(t, c.last().Children, 1)
	assert.Equal(t, key, c.last().Children[0].Key)
}
