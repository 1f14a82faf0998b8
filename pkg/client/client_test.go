package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braidhq/braiddb/pkg/api"
	"github.com/braidhq/braiddb/pkg/events"
	"github.com/braidhq/braiddb/pkg/memdb"
	"github.com/braidhq/braiddb/pkg/types"
)

func remoteOp(agent string, seq types.Seq, parents []Version, key string, value string, docParents []Version) types.RemoteOperation {
	return types.RemoteOperation{
		Version: types.RemoteVersion{Agent: agent, Seq: seq},
		Parents: parents,
		DocOps: []types.RemoteDocOp{{
			Id:      key,
			Patch:   types.BlobValue([]byte(value)),
			Parents: docParents,
		}},
	}
}

func newTestBackend(t *testing.T) (*httptest.Server, *memdb.Store, *events.Broker) {
	t.Helper()
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	store := memdb.New(broker)
	srv := httptest.NewServer(api.NewServer(store, broker, "server").Handler())
	t.Cleanup(srv.Close)
	return srv, store, broker
}

func TestPutThenGet(t *testing.T) {
	srv, _, _ := newTestBackend(t)

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	version, err := c.Put(ctx, "k", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "server", version.Agent)

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestGetMissingKey(t *testing.T) {
	srv, _, _ := newTestBackend(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "missing")
	assert.Error(t, err)
}

func TestGetConflictReturnsErrConflict(t *testing.T) {
	srv, store, _ := newTestBackend(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	root := []Version{{Agent: "ROOT", Seq: 0}}
	_, err = store.ApplyAndAdvance(remoteOp("A", 0, root, "k", "a", root))
	require.NoError(t, err)
	_, err = store.ApplyAndAdvance(remoteOp("B", 0, root, "k", "b", root))
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "k")
	var conflictErr *ErrConflict
	require.ErrorAs(t, err, &conflictErr)
	assert.Equal(t, "k", conflictErr.Key)

	entries, err := c.GetConflict(context.Background(), "k")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestWatchReceivesPublishedEvent(t *testing.T) {
	srv, _, _ := newTestBackend(t)
	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := c.Watch(ctx, "k")
	require.NoError(t, err)

	_, err = c.Put(context.Background(), "k", []byte("v1"))
	require.NoError(t, err)

	select {
	case ev := <-ch:
		require.NotNil(t, ev)
		assert.Equal(t, "k", ev.ID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for watch event")
	}
}
