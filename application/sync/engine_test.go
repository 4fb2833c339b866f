package sync

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"canvassync/application/ports"
	"canvassync/domain/canvas"
	"canvassync/infrastructure/persistence/memory"
)

type stubNet struct{ online bool }

func (s *stubNet) Online() bool { return s.online }

// flakyRemote injects connectivity failures into the push path. GetCanvas
// is the first remote call of every push, so one override fails the whole
// operation.
type flakyRemote struct {
	ports.RemoteStore
	err error
}

func (f *flakyRemote) GetCanvas(ctx context.Context, id string) (*canvas.Canvas, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.RemoteStore.GetCanvas(ctx, id)
}

type fixture struct {
	engine *Engine
	local  *memory.LocalStore
	remote *memory.RemoteStore
	flaky  *flakyRemote
	queue  *memory.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	local := memory.NewLocalStore()
	remote := memory.NewRemoteStore()
	flaky := &flakyRemote{RemoteStore: remote}
	queue := memory.NewQueue()
	engine := New(local, flaky, queue, &stubNet{online: true}, zap.NewNop(), WithUserID("user-1"))
	return &fixture{engine: engine, local: local, remote: remote, flaky: flaky, queue: queue}
}

func seedLocalCanvas(t *testing.T, f *fixture, id, name string, updatedAt int64) *canvas.Canvas {
	t.Helper()
	c := &canvas.Canvas{
		ID: id, UserID: "user-1", Name: name,
		CreatedAt: updatedAt, UpdatedAt: updatedAt,
	}
	require.NoError(t, f.local.PutCanvas(context.Background(), c))
	return c
}

func seedLocalNode(t *testing.T, f *fixture, canvasID, id, content string, updatedAt int64) *canvas.Node {
	t.Helper()
	n := &canvas.Node{
		ID: id, CanvasID: canvasID, UserID: "user-1",
		Type: canvas.NodeTypeText, Content: content,
		CreatedAt: updatedAt, UpdatedAt: updatedAt,
	}
	require.NoError(t, f.local.PutNode(context.Background(), n))
	return n
}

func TestPushCreatesRemoteCanvasWithSameID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "Notes", 100)
	seedLocalNode(t, f, "c1", "n1", "first", 100)
	seedLocalNode(t, f, "c1", "n2", "second", 101)
	sess := canvas.NewChatSession("c1", "user-1", "Chat", nil)
	require.NoError(t, f.local.PutChatSession(ctx, sess))

	f.engine.SyncCanvasToCloud(ctx, "c1")

	rc, err := f.remote.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, rc, "canvas created remotely under the local id")
	assert.Equal(t, "Notes", rc.Name)
	assert.Equal(t, "user-1", rc.UserID)

	nodes, err := f.remote.GetCanvasNodes(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	sessions, err := f.remote.GetChatSessions(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, sess.ID, sessions[0].ID)

	entries, err := f.queue.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "successful push queues nothing")
}

func TestPushIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "Notes", 100)
	seedLocalNode(t, f, "c1", "n1", "first", 100)

	f.engine.SyncCanvasToCloud(ctx, "c1")
	f.engine.SyncCanvasToCloud(ctx, "c1")

	canvases, err := f.remote.GetAllCanvases(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, canvases, 1)

	nodes, err := f.remote.GetCanvasNodes(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestPushAbsentCanvasIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.engine.SyncCanvasToCloud(ctx, "missing")

	canvases, err := f.remote.GetAllCanvases(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, canvases)
	entries, err := f.queue.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPushUpdatesRemoteOnlyWhenLocalStrictlyNewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.remote.SeedCanvas(&canvas.Canvas{
		ID: "c1", UserID: "user-1", Name: "remote name",
		CreatedAt: 100, UpdatedAt: 200,
	})

	// Older local copy: the remote row must not regress.
	seedLocalCanvas(t, f, "c1", "stale local", 150)
	f.engine.SyncCanvasToCloud(ctx, "c1")
	rc, err := f.remote.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "remote name", rc.Name)

	// Same timestamp: a tie favors neither side.
	seedLocalCanvas(t, f, "c1", "tied local", 200)
	f.engine.SyncCanvasToCloud(ctx, "c1")
	rc, err = f.remote.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "remote name", rc.Name)

	// Strictly newer local copy wins.
	seedLocalCanvas(t, f, "c1", "fresh local", 300)
	f.engine.SyncCanvasToCloud(ctx, "c1")
	rc, err = f.remote.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "fresh local", rc.Name)
}

func TestPullMergesByUpdatedAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "local name", 100)
	seedLocalNode(t, f, "c1", "stale", "local copy", 100)
	seedLocalNode(t, f, "c1", "fresh", "local copy", 500)

	f.remote.SeedCanvas(&canvas.Canvas{
		ID: "c1", UserID: "user-1", Name: "remote name",
		CreatedAt: 100, UpdatedAt: 200,
	})
	f.remote.SeedNode(&canvas.Node{
		ID: "stale", CanvasID: "c1", UserID: "user-1",
		Type: canvas.NodeTypeText, Content: "remote copy",
		CreatedAt: 100, UpdatedAt: 300,
	})
	f.remote.SeedNode(&canvas.Node{
		ID: "fresh", CanvasID: "c1", UserID: "user-1",
		Type: canvas.NodeTypeText, Content: "remote copy",
		CreatedAt: 100, UpdatedAt: 300,
	})
	f.remote.SeedNode(&canvas.Node{
		ID: "new", CanvasID: "c1", UserID: "user-1",
		Type: canvas.NodeTypeText, Content: "remote only",
		CreatedAt: 100, UpdatedAt: 300,
	})

	f.engine.SyncCanvasFromCloud(ctx, "c1")

	lc, err := f.local.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "remote name", lc.Name, "strictly newer remote canvas row wins")

	byID := map[string]string{}
	nodes, err := f.local.GetCanvasNodes(ctx, "c1")
	require.NoError(t, err)
	for _, n := range nodes {
		byID[n.ID] = n.Content
	}
	assert.Equal(t, "remote copy", byID["stale"], "newer remote node replaces local")
	assert.Equal(t, "local copy", byID["fresh"], "newer local node survives the pull")
	assert.Equal(t, "remote only", byID["new"], "remote-only node is inserted")
}

func TestPullTieKeepsLocal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "local name", 200)
	f.remote.SeedCanvas(&canvas.Canvas{
		ID: "c1", UserID: "user-1", Name: "remote name",
		CreatedAt: 100, UpdatedAt: 200,
	})

	f.engine.SyncCanvasFromCloud(ctx, "c1")

	lc, err := f.local.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "local name", lc.Name)
}

func TestPullAbsentRemoteIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "local name", 100)

	f.engine.SyncCanvasFromCloud(ctx, "c1")

	lc, err := f.local.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "local name", lc.Name)
}

func TestFullSyncConvergesBothDirections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "local-only", "Mine", 100)
	f.remote.SeedCanvas(&canvas.Canvas{
		ID: "remote-only", UserID: "user-1", Name: "Theirs",
		CreatedAt: 100, UpdatedAt: 100,
	})

	var statuses []Status
	f.engine.SetStatusCallback(func(s Status) { statuses = append(statuses, s) })

	f.engine.FullSync(ctx)

	rc, err := f.remote.GetCanvas(ctx, "local-only")
	require.NoError(t, err)
	assert.NotNil(t, rc)

	lc, err := f.local.GetCanvas(ctx, "remote-only")
	require.NoError(t, err)
	require.NotNil(t, lc)
	assert.Equal(t, "Theirs", lc.Name)

	assert.Equal(t, []Status{StatusSyncing, StatusSuccess}, statuses)
	assert.Equal(t, StatusSuccess, f.engine.Status())
}

func TestFullSyncReportsErrorStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "Notes", 100)
	f.flaky.err = stderrors.New("connection refused")

	f.engine.FullSync(ctx)

	assert.Equal(t, StatusError, f.engine.Status())
}

func TestUnconfiguredEngineIsInert(t *testing.T) {
	local := memory.NewLocalStore()
	remote := memory.NewRemoteStore()
	queue := memory.NewQueue()
	engine := New(local, remote, queue, &stubNet{online: true}, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, local.PutCanvas(ctx, &canvas.Canvas{
		ID: "c1", UserID: "user-1", Name: "Notes", CreatedAt: 100, UpdatedAt: 100,
	}))

	engine.FullSync(ctx)
	engine.SyncCanvasToCloud(ctx, "c1")

	assert.Equal(t, StatusIdle, engine.Status())
	canvases, err := remote.GetAllCanvases(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, canvases)

	// Configuring afterwards arms the same engine.
	engine.Configure("user-1")
	engine.SyncCanvasToCloud(ctx, "c1")
	canvases, err = remote.GetAllCanvases(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, canvases, 1)
}

func TestPushFailureQueuesRetryOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "Notes", 100)
	f.flaky.err = stderrors.New("network down")

	f.engine.SyncCanvasToCloud(ctx, "c1")
	f.engine.SyncCanvasToCloud(ctx, "c1")

	entries, err := f.queue.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1, "repeat failures dedup to one pending entry")
	assert.Equal(t, canvas.SyncOpCanvas, entries[0].Op)
	assert.Equal(t, "c1", entries[0].CanvasID)
}

func TestNotifyOnlineReplaysQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "Notes", 100)
	f.flaky.err = stderrors.New("network down")
	f.engine.SyncCanvasToCloud(ctx, "c1")

	f.flaky.err = nil
	f.engine.NotifyOnline(ctx)

	rc, err := f.remote.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.NotNil(t, rc, "queued push replayed after reconnect")

	entries, err := f.queue.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNotifyOnlineClearsQueueEvenWhenReplayFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "Notes", 100)
	f.flaky.err = stderrors.New("network down")
	f.engine.SyncCanvasToCloud(ctx, "c1")

	// Still offline when the replay runs.
	f.engine.NotifyOnline(ctx)

	entries, err := f.queue.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "drain empties the queue regardless of outcome")
}

func TestPeriodicSyncPushesEveryTick(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedLocalCanvas(t, f, "c1", "Notes", 100)

	f.engine.StartPeriodicSync(20 * time.Millisecond)
	defer f.engine.StopPeriodicSync()

	require.Eventually(t, func() bool {
		rc, err := f.remote.GetCanvas(ctx, "c1")
		return err == nil && rc != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPeriodicSyncSkipsTicksWhileOffline(t *testing.T) {
	local := memory.NewLocalStore()
	remote := memory.NewRemoteStore()
	queue := memory.NewQueue()
	engine := New(local, remote, queue, &stubNet{online: false}, zap.NewNop(), WithUserID("user-1"))
	ctx := context.Background()
	require.NoError(t, local.PutCanvas(ctx, &canvas.Canvas{
		ID: "c1", UserID: "user-1", Name: "Notes", CreatedAt: 100, UpdatedAt: 100,
	}))

	engine.StartPeriodicSync(10 * time.Millisecond)
	defer engine.StopPeriodicSync()
	time.Sleep(100 * time.Millisecond)

	rc, err := remote.GetCanvas(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, rc, "offline ticks push nothing")
}
