package memdb

import (
	"fmt"
	"sync"

	"github.com/braidhq/braiddb/pkg/events"
	"github.com/braidhq/braiddb/pkg/log"
	"github.com/braidhq/braiddb/pkg/metrics"
	"github.com/braidhq/braiddb/pkg/opgraph"
	"github.com/braidhq/braiddb/pkg/types"
	"github.com/braidhq/braiddb/pkg/view"
)

// Store composes an operation graph with its materialized view behind a
// single multi-reader/single-writer lock, and publishes a DocEvent on the
// supplied Broker after every mutation that touches a document. Every
// exported method is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	ops    *opgraph.OpDb
	view   *view.ViewDb
	broker *events.Broker
}

// New returns an empty Store. broker may be nil, in which case document
// events are not published.
func New(broker *events.Broker) *Store {
	return &Store{
		ops:    opgraph.New(),
		view:   view.New(),
		broker: broker,
	}
}

// ApplyAndAdvance ingests op into the operation graph and immediately
// advances the view past it, holding the write lock across both steps so
// no caller ever observes an order whose view does not yet reflect it.
//
// The error return is reserved for validation performed above this layer
// (e.g. by pkg/api before it ever calls in); it is always nil from Store
// itself. A contract violation in the underlying graph or view -- a
// caller supplying an operation whose parents aren't already known, for
// instance -- is a programming error, not a recoverable condition: Store
// only attaches the offending version to the panic before letting it
// continue to unwind.
func (s *Store) ApplyAndAdvance(op types.RemoteOperation) (order types.Order, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyAndAdvanceLocked(op)
}

// PutDoc builds the RemoteOperation for writing value to key as agent's
// next operation and applies it, holding the write lock across the whole
// read-construct-apply sequence. Composing this from Store's separate
// getters (MaxSeqForAgentString, Branch, Get) followed by a later
// ApplyAndAdvance is racy: two concurrent PUTs from the same agent can
// both read the same max_seq, both build the same next version, and the
// second ApplyAndAdvance then hits AddOperation's idempotent-duplicate
// fast path -- returning success while silently dropping the second
// write's doc_op. PutDoc is the only sanctioned way to turn a document
// write into an operation.
func (s *Store) PutDoc(agent string, key types.DocId, value []byte) (types.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var succeeds *types.Seq
	nextSeq := types.Seq(0)
	if id, ok := s.ops.TryAgentToLocal(agent); ok {
		if prev, ok := s.ops.MaxSeq(id); ok {
			succeeds = &prev
			nextSeq = prev + 1
		}
	}

	branchOrders := s.view.Branch()
	branch := make([]types.RemoteVersion, len(branchOrders))
	for i, o := range branchOrders {
		branch[i] = s.ops.OrderToRemoteVersion(o)
	}

	docVals := s.view.GetCloned(key)
	docParents := make([]types.RemoteVersion, len(docVals))
	for i, v := range docVals {
		docParents[i] = s.ops.OrderToRemoteVersion(v.Order)
	}
	if len(docParents) == 0 {
		docParents = []types.RemoteVersion{{Agent: types.RootAgentString, Seq: 0}}
	}

	op := types.RemoteOperation{
		Version:  types.RemoteVersion{Agent: agent, Seq: nextSeq},
		Succeeds: succeeds,
		Parents:  branch,
		DocOps: []types.RemoteDocOp{{
			Id:      key,
			Patch:   types.BlobValue(value),
			Parents: docParents,
		}},
	}

	return s.applyAndAdvanceLocked(op)
}

// applyAndAdvanceLocked is ApplyAndAdvance's body, factored out so PutDoc
// can share it under a lock it already holds instead of recursing into
// s.mu.Lock().
func (s *Store) applyAndAdvanceLocked(op types.RemoteOperation) (order types.Order, err error) {
	defer func() {
		if r := recover(); r != nil {
			panic(fmt.Errorf("memdb: applying operation %+v: %v", op.Version, r))
		}
	}()

	before := s.ops.Len()
	order = s.ops.AddOperation(op)
	duplicate := s.ops.Len() == before

	metrics.OperationsIngestedTotal.Inc()
	if duplicate {
		metrics.OperationsDuplicateTotal.Inc()
		log.WithOrder(order).Debug().Msg("duplicate operation ingested, no-op")
		return order, nil
	}

	timer := metrics.NewTimer()
	s.view.ApplyForwards(s.ops, order)
	timer.ObserveDuration(metrics.ViewApplyDuration)

	metrics.FrontierSize.Set(float64(len(s.ops.Frontier())))
	metrics.BranchSize.Set(float64(len(s.view.Branch())))

	log.WithOrder(order).Debug().
		Str("agent", s.ops.OrderToRemoteVersion(order).Agent).
		Int("parents", len(op.Parents)).
		Msg("ingested operation")

	stored := s.ops.OperationByOrder(order)
	for _, docOp := range stored.DocOps {
		vals := s.view.GetCloned(docOp.Id)
		if len(vals) > 1 {
			metrics.DocumentConflictsTotal.Inc()
		}
		s.publish(&events.DocEvent{
			ID:        docOp.Id,
			Order:     order,
			Direction: events.DirectionForward,
			Values:    vals,
		})
	}

	return order, nil
}

// Unapply rolls the view back past order, undoing its contribution to the
// branch and to every document it edited. It is exposed for tests
// exercising apply/unapply symmetry; no HTTP route calls it. It does not
// remove the operation from the graph.
func (s *Store) Unapply(order types.Order) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			panic(fmt.Errorf("memdb: unapplying order %d: %v", order, r))
		}
	}()

	op := s.ops.OperationByOrder(order)

	timer := metrics.NewTimer()
	s.view.ApplyBackwards(s.ops, order)
	timer.ObserveDuration(metrics.ViewRevertDuration)

	metrics.BranchSize.Set(float64(len(s.view.Branch())))

	for _, docOp := range op.DocOps {
		s.publish(&events.DocEvent{
			ID:        docOp.Id,
			Order:     order,
			Direction: events.DirectionBackward,
			Values:    s.view.GetCloned(docOp.Id),
		})
	}

	return nil
}

// Get returns the current tip value(s) of a document. More than one entry
// means concurrent writes left the document in a conflicted state.
func (s *Store) Get(id types.DocId) []types.DocVersionValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view.GetCloned(id)
}

// MaxSeq returns the highest seq known for agent.
func (s *Store) MaxSeq(agent types.Agent) (types.Seq, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops.MaxSeq(agent)
}

// MaxSeqForAgentString is MaxSeq for a caller that only knows an agent's
// wire string, such as pkg/api assembling its own next outgoing operation.
// An agent never seen before reports (0, false), matching MaxSeq.
func (s *Store) MaxSeqForAgentString(agent string) (types.Seq, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.ops.TryAgentToLocal(agent)
	if !ok {
		return 0, false
	}
	return s.ops.MaxSeq(id)
}

// Branch returns the view's current branch, translated to wire versions.
func (s *Store) Branch() []types.RemoteVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := s.view.Branch()
	out := make([]types.RemoteVersion, len(orders))
	for i, o := range orders {
		out[i] = s.ops.OrderToRemoteVersion(o)
	}
	return out
}

// OrderToRemoteVersion translates order to its wire version.
func (s *Store) OrderToRemoteVersion(order types.Order) types.RemoteVersion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ops.OrderToRemoteVersion(order)
}

func (s *Store) publish(ev *events.DocEvent) {
	metrics.DocumentsTracked.Set(float64(s.view.DocsTracked()))
	if s.broker == nil {
		return
	}
	s.broker.Publish(ev)
}
