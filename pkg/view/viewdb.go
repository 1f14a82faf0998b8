package view

import (
	"sort"

	"github.com/braidhq/braiddb/pkg/opgraph"
	"github.com/braidhq/braiddb/pkg/types"
)

// DeepCheck gates the ancestry assertions in ApplyForwards. It mirrors
// opgraph.DeepCheck and defaults to true.
var DeepCheck = true

// ViewDb is a materialized view over an OpDb: a branch (the set of
// operation orders this view has observed) plus, for every document that
// branch has touched, the set of concurrent tip values contributing to
// that document's current state. A brand new ViewDb observes nothing but
// the root.
type ViewDb struct {
	branch []types.Order
	docs   map[types.DocId][]types.DocVersionValue
}

// New returns a ViewDb whose branch is the singleton root order and whose
// documents are all implicitly absent.
func New() *ViewDb {
	return &ViewDb{
		branch: []types.Order{types.OrderRoot},
		docs:   make(map[types.DocId][]types.DocVersionValue),
	}
}

// Branch returns a copy of the view's current branch.
func (v *ViewDb) Branch() []types.Order {
	out := make([]types.Order, len(v.branch))
	copy(out, v.branch)
	return out
}

// DocsTracked returns the number of documents with a non-implicit
// (written-to) value.
func (v *ViewDb) DocsTracked() int {
	return len(v.docs)
}

// GetCloned returns the current value(s) of key. Every document implicitly
// exists with the none value rooted at types.OrderRoot until something
// writes to it.
func (v *ViewDb) GetCloned(key types.DocId) []types.DocVersionValue {
	if vals, ok := v.docs[key]; ok {
		out := make([]types.DocVersionValue, len(vals))
		copy(out, vals)
		return out
	}
	return []types.DocVersionValue{{Order: types.OrderRoot, Value: types.NoneValue()}}
}

// BranchAsVersions translates the view's branch to wire-portable local
// versions via ops.
func (v *ViewDb) BranchAsVersions(ops *opgraph.OpDb) []types.LocalVersion {
	out := make([]types.LocalVersion, len(v.branch))
	for i, o := range v.branch {
		out[i] = ops.OrderToVersion(o)
	}
	return out
}

// ApplyForwards folds the operation at order into the view: its branch
// advances past order, and for every document it edits, the document's
// recorded tip values are updated to reflect the edit. Any prior tip whose
// order is not named by the edit's parents is concurrent to it and is
// retained, producing a multi-valued (conflicted) read. Under DeepCheck,
// every parent the edit names must be one of the document's current tip
// orders or a document-scoped ancestor of them; otherwise ApplyForwards
// panics.
func (v *ViewDb) ApplyForwards(ops *opgraph.OpDb, order types.Order) {
	op := ops.OperationByOrder(order)

	v.branch = ops.AdvanceBranchByOp(v.branch, op)

	for _, docOp := range op.DocOps {
		prevVals := v.GetCloned(docOp.Id)

		if DeepCheck {
			for _, p := range docOp.Parents {
				exists := false
				for _, pv := range prevVals {
					if pv.Order == p {
						exists = true
						break
					}
				}
				if !exists {
					docBranch := make([]types.Order, len(prevVals))
					for i, pv := range prevVals {
						docBranch[i] = pv.Order
					}
					if !ops.BranchContainsDocVersion(p, docBranch, docOp.Id) {
						panic("view: doc_op parent not dominated by prior document value")
					}
				}
			}
		}

		newVals := []types.DocVersionValue{{Order: order, Value: docOp.Patch}}
		for _, old := range prevVals {
			if !containsOrder(docOp.Parents, old.Order) {
				newVals = append(newVals, old)
			}
		}

		sort.Slice(newVals, func(i, j int) bool { return newVals[i].Order < newVals[j].Order })
		v.docs[docOp.Id] = newVals
	}
}

// ApplyBackwards is the exact inverse of ApplyForwards: it removes order
// from the branch (restoring its parents that aren't already dominated)
// and rolls every document it edited back to the value(s) it superseded.
func (v *ViewDb) ApplyBackwards(ops *opgraph.OpDb, order types.Order) {
	op := ops.OperationByOrder(order)

	idx := -1
	for i, o := range v.branch {
		if o == order {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic("view: order not present in branch")
	}
	last := len(v.branch) - 1
	if idx < last {
		v.branch[idx] = v.branch[last]
	}
	v.branch = v.branch[:last]

	for _, p := range op.Parents {
		if !ops.BranchContainsVersion(p, v.branch) {
			v.branch = append(v.branch, p)
		}
	}

	for _, docOp := range op.DocOps {
		prevVals := v.GetCloned(docOp.Id)

		newVals := make([]types.DocVersionValue, 0, len(prevVals))
		for _, pv := range prevVals {
			if pv.Order != order {
				newVals = append(newVals, pv)
			}
		}
		docBranch := make([]types.Order, len(newVals))
		for i, pv := range newVals {
			docBranch[i] = pv.Order
		}

		for _, p := range docOp.Parents {
			if ops.BranchContainsDocVersion(p, docBranch, docOp.Id) {
				continue
			}
			if p == types.OrderRoot {
				if len(newVals) != 0 {
					panic("view: root parent restored alongside other document values")
				}
				continue
			}
			parentOp := ops.OperationByOrder(p)
			parentDocOp := types.DocOpByID(parentOp.DocOps, docOp.Id)
			if parentDocOp == nil {
				panic("view: missing doc_op entry on parent operation")
			}
			newVals = append(newVals, types.DocVersionValue{Order: p, Value: parentDocOp.Patch})
		}

		if len(newVals) == 0 {
			delete(v.docs, docOp.Id)
		} else {
			sort.Slice(newVals, func(i, j int) bool { return newVals[i].Order < newVals[j].Order })
			v.docs[docOp.Id] = newVals
		}
	}
}

func containsOrder(s []types.Order, target types.Order) bool {
	for _, o := range s {
		if o == target {
			return true
		}
	}
	return false
}
