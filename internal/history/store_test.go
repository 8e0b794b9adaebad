package history

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docship/internal/matrix"
	"git.home.luguber.info/inful/docship/internal/runner"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndGetByRunID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "run-1", EventRunStarted, []byte(`{"lanes":2}`), nil))
	require.NoError(t, store.Append(ctx, "run-1", EventRunFinished, []byte(`{"failed":false}`), map[string]string{"tag": "v1.0.0"}))
	require.NoError(t, store.Append(ctx, "run-2", EventRunStarted, []byte(`{}`), nil))

	events, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventRunStarted, events[0].EventType)
	assert.Equal(t, EventRunFinished, events[1].EventType)
	assert.Equal(t, "v1.0.0", events[1].Metadata["tag"])
}

func TestGetRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "run-1", EventRunStarted, []byte(`{}`), nil))

	now := time.Now()
	events, err := store.GetRange(ctx, now.Add(-time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = store.GetRange(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRecorderPersistsRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store)

	rec.RunStarted("run-1", 2)
	rec.LaneFinished("run-1", runner.Result{
		Job:      matrix.Job{Name: "test-linux", Stage: "test"},
		Status:   runner.StatusPassed,
		Duration: 1500 * time.Millisecond,
	})
	rec.RunFinished(&runner.Report{
		RunID:    "run-1",
		Results:  []runner.Result{{Status: runner.StatusPassed}},
		Duration: 2 * time.Second,
	})

	events, err := store.GetByRunID(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, events, 3)

	var lane LanePayload
	require.NoError(t, json.Unmarshal(events[1].Payload, &lane))
	assert.Equal(t, "test-linux", lane.Lane)
	assert.Equal(t, runner.StatusPassed, lane.Status)
	assert.Equal(t, int64(1500), lane.DurationMS)

	var run RunPayload
	require.NoError(t, json.Unmarshal(events[2].Payload, &run))
	assert.False(t, run.Failed)
	assert.Equal(t, 1, run.Lanes)
}
