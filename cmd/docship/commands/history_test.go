package commands

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docship/internal/history"
)

func newHistoryStore(t *testing.T) *history.SQLiteStore {
	t.Helper()
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestListHistoryByRunID(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "run-1", history.EventRunStarted, []byte(`{"lanes":2}`), nil))
	require.NoError(t, store.Append(ctx, "run-1", history.EventRunFinished, []byte(`{"failed":true}`), nil))
	require.NoError(t, store.Append(ctx, "run-2", history.EventRunStarted, []byte(`{}`), nil))

	var buf bytes.Buffer
	require.NoError(t, listHistory(ctx, &buf, store, "run-1", 0))

	out := buf.String()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, history.EventRunStarted)
	assert.Contains(t, out, history.EventRunFinished)
	assert.Contains(t, out, `{"failed":true}`)
	assert.NotContains(t, out, "run-2")
}

func TestListHistoryRange(t *testing.T) {
	store := newHistoryStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, "run-1", history.EventRunStarted, []byte(`{}`), nil))

	var buf bytes.Buffer
	require.NoError(t, listHistory(ctx, &buf, store, "", time.Hour))
	assert.Contains(t, buf.String(), "run-1")
}

func TestListHistoryEmpty(t *testing.T) {
	store := newHistoryStore(t)

	var buf bytes.Buffer
	require.NoError(t, listHistory(context.Background(), &buf, store, "run-absent", 0))
	assert.Contains(t, buf.String(), "no events recorded")
}
