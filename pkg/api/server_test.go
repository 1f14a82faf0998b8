package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braidhq/braiddb/pkg/events"
	"github.com/braidhq/braiddb/pkg/memdb"
	"github.com/braidhq/braiddb/pkg/types"
)

func newTestServer() (*Server, *memdb.Store) {
	store := memdb.New(nil)
	return NewServer(store, nil, "server"), store
}

func TestHealthHandler(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestReadyHandlerReportsBranchSize(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ReadyResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "ok", resp.Checks["store"])
	assert.Equal(t, "1", resp.Checks["branch_size"])
}

func TestPutThenGetRoundTrips(t *testing.T) {
	s, _ := newTestServer()

	putReq := httptest.NewRequest(http.MethodPut, "/doc/k", strings.NewReader("hello"))
	putW := httptest.NewRecorder()
	s.mux.ServeHTTP(putW, putReq)
	require.Equal(t, http.StatusOK, putW.Code)
	assert.NotEmpty(t, putW.Header().Get("X-Braiddb-Version"))

	getReq := httptest.NewRequest(http.MethodGet, "/doc/k", nil)
	getW := httptest.NewRecorder()
	s.mux.ServeHTTP(getW, getReq)

	assert.Equal(t, http.StatusOK, getW.Code)
	assert.Equal(t, "hello", getW.Body.String())
}

// TestConcurrentPutsAllSucceed drives the same race the underlying store's
// PutDoc test drives, but through the HTTP handler: n concurrent PUTs to the
// same key from this server's single agent must all return 200 with a
// distinct X-Braiddb-Version, never a silently dropped duplicate.
func TestConcurrentPutsAllSucceed(t *testing.T) {
	s, store := newTestServer()

	const n = 50
	versions := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPut, "/doc/k", strings.NewReader(fmt.Sprintf("v%d", i)))
			w := httptest.NewRecorder()
			s.mux.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)
			versions[i] = w.Header().Get("X-Braiddb-Version")
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, v := range versions {
		require.NotEmpty(t, v)
		assert.False(t, seen[v], "version %q returned for more than one PUT", v)
		seen[v] = true
	}

	maxSeq, ok := store.MaxSeqForAgentString("server")
	require.True(t, ok)
	assert.Equal(t, types.Seq(n-1), maxSeq)
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/doc/missing", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetConflictedKeyReturns409WithEntries(t *testing.T) {
	store := memdb.New(nil)
	s := NewServer(store, nil, "ignored")

	root := []types.RemoteVersion{{Agent: types.RootAgentString, Seq: 0}}
	_, err := store.ApplyAndAdvance(types.RemoteOperation{
		Version: types.RemoteVersion{Agent: "A", Seq: 0},
		Parents: root,
		DocOps:  []types.RemoteDocOp{{Id: "k", Patch: types.BlobValue([]byte("a")), Parents: root}},
	})
	require.NoError(t, err)
	_, err = store.ApplyAndAdvance(types.RemoteOperation{
		Version: types.RemoteVersion{Agent: "B", Seq: 0},
		Parents: root,
		DocOps:  []types.RemoteDocOp{{Id: "k", Patch: types.BlobValue([]byte("b")), Parents: root}},
	})
	require.NoError(t, err)

	getReq := httptest.NewRequest(http.MethodGet, "/doc/k", nil)
	getW := httptest.NewRecorder()
	s.mux.ServeHTTP(getW, getReq)

	assert.Equal(t, http.StatusConflict, getW.Code)

	var entries []conflictEntry
	require.NoError(t, json.NewDecoder(getW.Body).Decode(&entries))
	assert.Len(t, entries, 2)
}

func TestSequentialPutsAdvanceSeq(t *testing.T) {
	s, _ := newTestServer()

	first := httptest.NewRequest(http.MethodPut, "/doc/k", strings.NewReader("v1"))
	w1 := httptest.NewRecorder()
	s.mux.ServeHTTP(w1, first)
	require.Equal(t, http.StatusOK, w1.Code)

	second := httptest.NewRequest(http.MethodPut, "/doc/k", strings.NewReader("v2"))
	w2 := httptest.NewRecorder()
	s.mux.ServeHTTP(w2, second)
	require.Equal(t, http.StatusOK, w2.Code)

	assert.NotEqual(t, w1.Header().Get("X-Braiddb-Version"), w2.Header().Get("X-Braiddb-Version"))

	getReq := httptest.NewRequest(http.MethodGet, "/doc/k", nil)
	getW := httptest.NewRecorder()
	s.mux.ServeHTTP(getW, getReq)
	assert.Equal(t, "v2", getW.Body.String())
}

func TestWatchWithoutBrokerReturnsUnavailable(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/doc/k/watch", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWatchRejectsNonGET(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	store := memdb.New(broker)
	s := NewServer(store, broker, "server")

	req := httptest.NewRequest(http.MethodPost, "/doc/k/watch", nil)
	w := httptest.NewRecorder()
	s.mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
