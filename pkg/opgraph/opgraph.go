package opgraph

import (
	"fmt"
	"sort"

	"github.com/braidhq/braiddb/pkg/agentmap"
	"github.com/braidhq/braiddb/pkg/types"
)

// DeepCheck gates the invariant-verifying assertions described in the
// operation graph's design notes. It defaults to true, matching the
// original prototype's DEEP_CHECK constant; disable it on hot paths once
// the graph has been exercised enough to trust.
var DeepCheck = true

// OpDb is the append-only causal operation graph. It owns the AgentMap, the
// dense operation vector indexed by Order, the version-to-order index, and
// the global frontier. Operations are immutable once appended; OpDb never
// reorders or removes them.
type OpDb struct {
	agents *agentmap.Map

	ops          []types.LocalOperation
	versionToOrd map[types.LocalVersion]types.Order
	frontier     []types.Order
}

// New returns an empty OpDb whose frontier is the singleton root order.
func New() *OpDb {
	return &OpDb{
		agents:       agentmap.New(),
		versionToOrd: make(map[types.LocalVersion]types.Order),
		frontier:     []types.Order{types.OrderRoot},
	}
}

// Len returns the number of stored operations.
func (db *OpDb) Len() int { return len(db.ops) }

// Frontier returns the current global frontier: the set of orders with no
// descendant yet in the store. The returned slice is owned by the caller.
func (db *OpDb) Frontier() []types.Order {
	out := make([]types.Order, len(db.frontier))
	copy(out, db.frontier)
	return out
}

// MaxSeq returns the highest seq stored for agent, or false if the agent is
// unknown. Implemented as the entry immediately before {agent, Seq::MAX} in
// the version index.
func (db *OpDb) MaxSeq(agent types.Agent) (types.Seq, bool) {
	end := types.LocalVersion{Agent: agent, Seq: ^types.Seq(0)}

	var bestVersion types.LocalVersion
	found := false
	for v := range db.versionToOrd {
		if !v.Less(end) {
			continue
		}
		if !found || bestVersion.Less(v) {
			bestVersion = v
			found = true
		}
	}
	if !found || bestVersion.Agent != agent {
		return 0, false
	}
	return bestVersion.Seq, true
}

// TryAgentToLocal looks up agent's dense local id without interning it,
// for callers that need to distinguish "never written" from seq 0.
func (db *OpDb) TryAgentToLocal(agent string) (types.Agent, bool) {
	return db.agents.TryToLocal(agent)
}

// OperationByOrder fetches the operation stored at order. order must not be
// types.OrderRoot.
func (db *OpDb) OperationByOrder(order types.Order) *types.LocalOperation {
	if order == types.OrderRoot {
		panic("opgraph: cannot fetch the root operation")
	}
	return &db.ops[order]
}

// OperationByVersion fetches the operation with the given local version, if
// present.
func (db *OpDb) OperationByVersion(v types.LocalVersion) (*types.LocalOperation, bool) {
	order, ok := db.VersionToOrder(v)
	if !ok {
		return nil, false
	}
	return db.OperationByOrder(order), true
}

// VersionToOrder resolves a local version to its order. types.AgentRoot
// short-circuits to types.OrderRoot.
func (db *OpDb) VersionToOrder(v types.LocalVersion) (types.Order, bool) {
	if v.Agent == types.AgentRoot {
		return types.OrderRoot, true
	}
	order, ok := db.versionToOrd[v]
	return order, ok
}

// RemoteVersionToOrder resolves a wire version to its order, interning its
// agent string in the process.
func (db *OpDb) RemoteVersionToOrder(v types.RemoteVersion) (types.Order, bool) {
	local := db.agents.VersionToLocal(v)
	return db.VersionToOrder(local)
}

// OrderToVersion returns the local version stored at order. types.OrderRoot
// short-circuits to types.RootVersion.
func (db *OpDb) OrderToVersion(order types.Order) types.LocalVersion {
	if order == types.OrderRoot {
		return types.RootVersion
	}
	return db.OperationByOrder(order).Version
}

// OrderToRemoteVersion translates an order to its wire version.
func (db *OpDb) OrderToRemoteVersion(order types.Order) types.RemoteVersion {
	return db.agents.VersionToRemote(db.OrderToVersion(order))
}

// BranchContainsVersion reports whether target is target itself or an
// ancestor of any member of branch, following operation-level parents.
func (db *OpDb) BranchContainsVersion(target types.Order, branch []types.Order) bool {
	return db.rawBranchContainsVersion(target, branch, nil)
}

// BranchContainsDocVersion is BranchContainsVersion restricted to the
// document-scoped subgraph rooted at id: it follows doc_op.parents instead
// of operation parents.
func (db *OpDb) BranchContainsDocVersion(target types.Order, branch []types.Order, id types.DocId) bool {
	return db.rawBranchContainsVersion(target, branch, &id)
}

// rawBranchContainsVersion implements a bounded reverse DFS from branch,
// seeking target. Orders are dense and assigned in topological order, so
// any queued order <= target cannot reach target (its subgraph only
// contains smaller orders) and is pruned immediately.
func (db *OpDb) rawBranchContainsVersion(target types.Order, branch []types.Order, atID *types.DocId) bool {
	if DeepCheck && atID != nil {
		for _, o := range branch {
			op := db.OperationByOrder(o)
			if types.DocOpByID(op.DocOps, *atID) == nil {
				panic(fmt.Sprintf("opgraph: branch member %d has no doc_op for %q", o, *atID))
			}
		}
	}

	// Order matters between these two checks: apply_backwards relies on an
	// empty branch returning false even when target is types.OrderRoot.
	if len(branch) == 0 {
		return false
	}
	if target == types.OrderRoot || containsOrder(branch, target) {
		return true
	}

	visited := make(map[types.Order]bool)
	queue := append([]types.Order(nil), branch...)
	sort.Slice(queue, func(i, j int) bool { return queue[i] > queue[j] })

	for len(queue) > 0 {
		order := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if order <= target || order == types.OrderRoot {
			if order == target {
				return true
			}
			continue
		}

		if visited[order] {
			continue
		}
		visited[order] = true

		op := db.OperationByOrder(order)
		if atID == nil {
			queue = append(queue, op.Parents...)
			if op.Succeeds != nil {
				queue = append(queue, *op.Succeeds)
			}
		} else {
			docOp := types.DocOpByID(op.DocOps, *atID)
			if docOp == nil {
				panic(fmt.Sprintf("opgraph: missing doc_op entry for %q at order %d", *atID, order))
			}
			queue = append(queue, docOp.Parents...)
		}
	}

	return false
}

func containsOrder(s []types.Order, target types.Order) bool {
	for _, o := range s {
		if o == target {
			return true
		}
	}
	return false
}

// AdvanceBranchByOp returns the branch that results from applying op to
// branch: every parent of op present in branch is dropped (now strictly
// dominated), and op's own order is appended. Elements of branch that are
// not named in op.Parents are concurrent to or descend from op's parents
// and are retained untouched.
//
// Preconditions (asserted): op.Order is not already in branch, and every
// parent of op is in branch.
func (db *OpDb) AdvanceBranchByOp(branch []types.Order, op *types.LocalOperation) []types.Order {
	if db.BranchContainsVersion(op.Order, branch) {
		panic(fmt.Sprintf("opgraph: order %d already present in branch", op.Order))
	}
	for _, parent := range op.Parents {
		if !db.BranchContainsVersion(parent, branch) {
			panic(fmt.Sprintf("opgraph: parent %d of order %d missing from branch", parent, op.Order))
		}
	}

	next := make([]types.Order, 0, len(branch)+1)
	for _, o := range branch {
		if !containsOrder(op.Parents, o) {
			next = append(next, o)
		}
	}
	next = append(next, op.Order)
	return next
}

// AddOperation interns op into the graph and returns its assigned order.
// If op.Version has already been ingested, AddOperation is a no-op that
// returns the existing order (idempotent ingestion). Every parent and
// doc-op parent must already be present in the store; a missing one is a
// caller contract violation and is fatal.
func (db *OpDb) AddOperation(op types.RemoteOperation) types.Order {
	if len(op.Parents) == 0 {
		panic("opgraph: operation parents field must not be empty")
	}

	localVersion := db.agents.VersionToLocal(op.Version)
	if order, ok := db.versionToOrd[localVersion]; ok {
		return order
	}

	parentOrders := make([]types.Order, len(op.Parents))
	for i, v := range op.Parents {
		order, ok := db.RemoteVersionToOrder(v)
		if !ok {
			panic(fmt.Sprintf("opgraph: operation's parent %+v missing in op db", v))
		}
		parentOrders[i] = order
	}

	docOps := make([]types.LocalDocOp, len(op.DocOps))
	for i, d := range op.DocOps {
		parents := make([]types.Order, len(d.Parents))
		for j, v := range d.Parents {
			order, ok := db.RemoteVersionToOrder(v)
			if !ok {
				panic(fmt.Sprintf("opgraph: doc_op parent %+v missing in op db", v))
			}
			parents[j] = order
		}
		docOps[i] = types.LocalDocOp{Id: d.Id, Patch: d.Patch, Parents: parents}
	}

	var succeeds *types.Order
	if op.Succeeds != nil {
		order, ok := db.VersionToOrder(types.LocalVersion{Agent: localVersion.Agent, Seq: *op.Succeeds})
		if !ok {
			panic("opgraph: predecessor missing in database")
		}
		succeeds = &order
	}

	newOrder := types.Order(len(db.ops))
	localOp := types.LocalOperation{
		Order:    newOrder,
		Version:  localVersion,
		Parents:  parentOrders,
		DocOps:   docOps,
		Succeeds: succeeds,
	}

	db.frontier = db.AdvanceBranchByOp(db.frontier, &localOp)

	db.ops = append(db.ops, localOp)
	db.versionToOrd[localVersion] = newOrder

	return newOrder
}
