/*
Package opgraph implements the causal operation graph that every other
layer of the store is built on.

Operations may arrive more than once (re-ingesting a known version is a
no-op), but each one's parents must already be stored; OpDb is the
append-only structure that turns them into a stable, densely-numbered DAG
that the rest of the system can reason about without ever touching the
wire-form (Agent string, Seq) versions again.

# Shape

	┌───────────────────────────── OpDb ─────────────────────────────┐
	│                                                                  │
	│  agents: AgentMap        (string agent id  <->  dense Agent)    │
	│                                                                  │
	│  ops[0..N): []LocalOperation                                    │
	│     stored in the order AddOperation interned them, which is    │
	│     always a topological order: every Order a LocalOperation    │
	│     names as a parent is strictly less than its own Order.      │
	│                                                                  │
	│  versionToOrd: {Agent,Seq} -> Order                             │
	│     the only way back from a version to its place in ops.       │
	│                                                                  │
	│  frontier: []Order                                              │
	│     the current set of global DAG tips: orders with no          │
	│     descendant yet ingested. Maintained incrementally by         │
	│     AdvanceBranchByOp on every AddOperation, never recomputed.   │
	└──────────────────────────────────────────────────────────────────┘

# Branches

A "branch" is any antichain of orders under the parents relation -- the
frontier is one, but so is the branch a ViewDb tracks at some point behind
the frontier. BranchContainsVersion(target, branch) walks parents backward
from branch looking for target; because ops are numbered topologically,
any order <= target can be pruned on sight, which keeps the walk bounded
by the causal gap between branch and target rather than by total history
size.

AdvanceBranchByOp is the single primitive both OpDb.AddOperation and the
view layer use to fold one operation into a branch: drop the operation's
named parents (they're now dominated) and append its own order. The only
other code that edits a branch is ViewDb.ApplyBackwards, which removes an
order and restores its parents.

# Document-scoped ancestry

BranchContainsDocVersion runs the identical walk but follows doc_op
parents within one document's edit history instead of whole-operation
parents -- the same machinery answers both "is this in my causal past"
and "is this edit in this document's causal past", parameterized by
whether a DocId is supplied.
*/
package opgraph
