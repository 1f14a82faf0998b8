// Package types defines the data model shared by the operation graph, the
// materialized view, and the agent map: versions, operations, and document
// values.
package types

// Seq is a per-agent monotonic sequence number.
type Seq = uint64

// Agent is a dense integer id assigned by an AgentMap to an agent string.
// AgentRoot is the sentinel value denoting the reserved ROOT agent.
type Agent = uint32

// Order is a dense local index into the operation store's append-only
// vector. OrderRoot is the sentinel value denoting the ROOT operation.
type Order = uint64

// DocId is an opaque document identifier.
type DocId = string

// AgentRoot is the sentinel Agent id for the reserved "ROOT" agent string.
const AgentRoot Agent = ^Agent(0)

// OrderRoot is the sentinel Order for the implicit root operation that
// every genesis operation's parents list points to.
const OrderRoot Order = ^Order(0)

// RootAgentString is the reserved agent string that AgentMap always maps
// to AgentRoot without interning it.
const RootAgentString = "ROOT"

// RemoteVersion identifies an operation portably, by agent string and
// per-agent sequence number. This is the wire form.
type RemoteVersion struct {
	Agent string
	Seq   Seq
}

// LocalVersion identifies an operation using an interned Agent id. It is
// totally ordered by (Agent, Seq), which makes it usable as a map key and
// lets OpDb.MaxSeq find an agent's highest sequence number.
type LocalVersion struct {
	Agent Agent
	Seq   Seq
}

// RootVersion is the LocalVersion corresponding to OrderRoot.
var RootVersion = LocalVersion{Agent: AgentRoot, Seq: 0}

// Less reports whether v sorts before o under (Agent, Seq) order.
func (v LocalVersion) Less(o LocalVersion) bool {
	if v.Agent != o.Agent {
		return v.Agent < o.Agent
	}
	return v.Seq < o.Seq
}

// DocValue is the opaque payload carried by a document operation: either no
// value (the implicit root state) or an arbitrary blob.
type DocValue struct {
	IsNone bool
	Blob   []byte
}

// NoneValue is the implicit value of a document that has never been
// written.
func NoneValue() DocValue { return DocValue{IsNone: true} }

// BlobValue wraps an opaque byte slice as a DocValue.
func BlobValue(b []byte) DocValue { return DocValue{Blob: b} }

// RemoteDocOp is a single document-scoped edit as received from the wire:
// the document it touches, its patch, and the document-scoped versions it
// supersedes.
type RemoteDocOp struct {
	Id      DocId
	Patch   DocValue
	Parents []RemoteVersion
}

// RemoteOperation is an operation as received from the wire: its own
// version, an optional predecessor in the same agent's sequence, the
// (non-empty) set of versions whose frontier it extends, and the document
// edits it carries.
type RemoteOperation struct {
	Version  RemoteVersion
	Succeeds *Seq
	Parents  []RemoteVersion
	DocOps   []RemoteDocOp
}

// LocalDocOp is the interned form of RemoteDocOp: Order references in place
// of Version references.
type LocalDocOp struct {
	Id      DocId
	Patch   DocValue
	Parents []Order
}

// LocalOperation is the interned, stored form of an operation: its assigned
// Order, its own version, its parents as Orders, its document edits, and
// the Order of the same agent's previous operation, if any.
type LocalOperation struct {
	Order    Order
	Version  LocalVersion
	Parents  []Order
	DocOps   []LocalDocOp
	Succeeds *Order
}

// DocVersionValue pairs a concurrent tip order with the value it
// contributed to a document. ViewDb.docs[id] is a sorted slice of these.
type DocVersionValue struct {
	Order Order
	Value DocValue
}

// DocOpByID returns the LocalDocOp in entries matching id, or nil.
func DocOpByID(entries []LocalDocOp, id DocId) *LocalDocOp {
	for i := range entries {
		if entries[i].Id == id {
			return &entries[i]
		}
	}
	return nil
}
