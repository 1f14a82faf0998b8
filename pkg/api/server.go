package api

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/braidhq/braiddb/pkg/events"
	"github.com/braidhq/braiddb/pkg/log"
	"github.com/braidhq/braiddb/pkg/memdb"
	"github.com/braidhq/braiddb/pkg/metrics"
	"github.com/braidhq/braiddb/pkg/types"
)

// Server is the HTTP surface over a Store: GET/PUT against a document key,
// an optional watch stream, and health/ready/metrics.
type Server struct {
	store  *memdb.Store
	broker *events.Broker
	agent  string

	mux  *http.ServeMux
	http *http.Server
}

// NewServer wires a Server around store. agent is this server's own agent
// string, used as version.agent on every operation it constructs for a PUT.
// broker may be nil, in which case /doc/{key}/watch returns 503.
func NewServer(store *memdb.Store, broker *events.Broker, agent string) *Server {
	s := &Server{store: store, broker: broker, agent: agent}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /doc/{key}", s.handleGet)
	mux.HandleFunc("PUT /doc/{key}", s.handlePut)
	mux.Handle("GET /doc/{key}/watch", readOnlyGuard(http.HandlerFunc(s.handleWatch)))
	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.HandleFunc("GET /readyz", s.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	s.mux = mux

	return s
}

// Handler returns the server's full handler, including middleware, for
// embedding in a caller-managed http.Server (httptest, a custom listener).
func (s *Server) Handler() http.Handler {
	return withMiddleware(s.mux)
}

// Start listens on addr and serves until the listener errors or Stop is
// called.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // the watch stream is long-lived
		IdleTimeout:  60 * time.Second,
	}
	log.Logger.Info().Str("addr", addr).Msg("api server listening")
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// conflictEntry is one value of a multi-value (conflicted) document, as
// returned in a 409 body.
type conflictEntry struct {
	Version types.RemoteVersion `json:"version"`
	Value   string              `json:"value"`
}

// handleGet returns a document's value: a never-written document is a 404;
// a single value is returned as a bare text/plain body; more than one
// concurrent value is a 409 with every {version, value} pair as JSON, since
// the core leaves conflict presentation to the embedder.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	vals := s.store.Get(key)
	// A never-written document reads back as the implicit root value.
	if len(vals) == 1 && vals[0].Order == types.OrderRoot {
		vals = nil
	}

	switch len(vals) {
	case 0:
		http.Error(w, "not found", http.StatusNotFound)
	case 1:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Braiddb-Version", encodeVersion(s.store.OrderToRemoteVersion(vals[0].Order)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(vals[0].Value.Blob)
	default:
		entries := make([]conflictEntry, len(vals))
		for i, v := range vals {
			entries[i] = conflictEntry{
				Version: s.store.OrderToRemoteVersion(v.Order),
				Value:   string(v.Value.Blob),
			}
		}
		writeJSON(w, http.StatusConflict, entries)
	}
}

// handlePut writes key's value as the server's next operation. The server
// assigns itself the next seq in its own agent's sequence, points parents
// at the view's current branch, and points the single doc_op's parents at
// the document's current tip orders -- exactly the versions this write
// supersedes. pkg/memdb.Store.PutDoc does the read-construct-apply
// sequence under a single lock acquisition, since composing it from
// separate getters would let two concurrent PUTs from this agent observe
// the same max_seq and collide.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("reading body: %v", err), http.StatusBadRequest)
		return
	}

	order, err := s.store.PutDoc(s.agent, key, body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Braiddb-Version", encodeVersion(s.store.OrderToRemoteVersion(order)))
	w.WriteHeader(http.StatusOK)
}

// handleWatch implements GET /doc/{key}/watch: a best-effort, chunked
// stream of newline-delimited JSON DocEvents for the named key. There is
// no backlog -- a watcher only sees events published after it subscribes.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		http.Error(w, "watch not available", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	key := r.PathValue("key")
	sub := s.broker.Subscribe()
	defer s.broker.Unsubscribe(sub)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	bw := bufio.NewWriter(w)
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-sub:
			if !open {
				return
			}
			if ev.ID != key {
				continue
			}
			if err := json.NewEncoder(bw).Encode(ev); err != nil {
				return
			}
			if err := bw.Flush(); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// encodeVersion matches RemoteVersion.encode() in the original source:
// base64 of the agent string's bytes followed by the seq as a big-endian
// uint64.
func encodeVersion(v types.RemoteVersion) string {
	buf := make([]byte, 0, len(v.Agent)+8)
	buf = append(buf, []byte(v.Agent)...)
	var seqBytes [8]byte
	binary.BigEndian.PutUint64(seqBytes[:], v.Seq)
	buf = append(buf, seqBytes[:]...)
	return base64.StdEncoding.EncodeToString(buf)
}
