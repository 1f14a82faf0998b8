package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/braidhq/braiddb/pkg/opgraph"
	"github.com/braidhq/braiddb/pkg/types"
)

func rv(agent string, s types.Seq) types.RemoteVersion {
	return types.RemoteVersion{Agent: agent, Seq: s}
}

func rootParents() []types.RemoteVersion {
	return []types.RemoteVersion{rv(types.RootAgentString, 0)}
}

func TestGetClonedOfUnknownDocReturnsRootNone(t *testing.T) {
	v := New()
	vals := v.GetCloned("doc1")
	require.Len(t, vals, 1)
	assert.Equal(t, types.OrderRoot, vals[0].Order)
	assert.True(t, vals[0].Value.IsNone)
}

func TestApplyForwardsSingleWrite(t *testing.T) {
	ops := opgraph.New()
	v := New()

	o := ops.AddOperation(types.RemoteOperation{
		Version: rv("a", 1),
		Parents: rootParents(),
		DocOps: []types.RemoteDocOp{
			{Id: "doc1", Patch: types.BlobValue([]byte("v1")), Parents: rootParents()},
		},
	})
	v.ApplyForwards(ops, o)

	vals := v.GetCloned("doc1")
	require.Len(t, vals, 1)
	assert.Equal(t, o, vals[0].Order)
	assert.Equal(t, []byte("v1"), vals[0].Value.Blob)
}

func TestApplyForwardsConcurrentWritesProduceConflict(t *testing.T) {
	ops := opgraph.New()
	v := New()

	o1 := ops.AddOperation(types.RemoteOperation{
		Version: rv("a", 1),
		Parents: rootParents(),
		DocOps:  []types.RemoteDocOp{{Id: "doc1", Patch: types.BlobValue([]byte("a1")), Parents: rootParents()}},
	})
	o2 := ops.AddOperation(types.RemoteOperation{
		Version: rv("b", 1),
		Parents: rootParents(),
		DocOps:  []types.RemoteDocOp{{Id: "doc1", Patch: types.BlobValue([]byte("b1")), Parents: rootParents()}},
	})

	v.ApplyForwards(ops, o1)
	v.ApplyForwards(ops, o2)

	vals := v.GetCloned("doc1")
	assert.Len(t, vals, 2, "concurrent writes to the same doc must both survive as a conflict")
}

func TestApplyForwardsSequentialWriteSupersedesParent(t *testing.T) {
	ops := opgraph.New()
	v := New()

	o1 := ops.AddOperation(types.RemoteOperation{
		Version: rv("a", 1),
		Parents: rootParents(),
		DocOps:  []types.RemoteDocOp{{Id: "doc1", Patch: types.BlobValue([]byte("v1")), Parents: rootParents()}},
	})
	v.ApplyForwards(ops, o1)

	seq1 := types.Seq(1)
	o2 := ops.AddOperation(types.RemoteOperation{
		Version:  rv("a", 2),
		Succeeds: &seq1,
		Parents:  []types.RemoteVersion{rv("a", 1)},
		DocOps: []types.RemoteDocOp{
			{Id: "doc1", Patch: types.BlobValue([]byte("v2")), Parents: []types.RemoteVersion{rv("a", 1)}},
		},
	})
	v.ApplyForwards(ops, o2)

	vals := v.GetCloned("doc1")
	require.Len(t, vals, 1)
	assert.Equal(t, o2, vals[0].Order)
	assert.Equal(t, []byte("v2"), vals[0].Value.Blob)
}

func TestApplyBackwardsIsExactInverseOfApplyForwards(t *testing.T) {
	ops := opgraph.New()
	v := New()

	o1 := ops.AddOperation(types.RemoteOperation{
		Version: rv("a", 1),
		Parents: rootParents(),
		DocOps:  []types.RemoteDocOp{{Id: "doc1", Patch: types.BlobValue([]byte("v1")), Parents: rootParents()}},
	})
	seq1 := types.Seq(1)
	o2 := ops.AddOperation(types.RemoteOperation{
		Version:  rv("a", 2),
		Succeeds: &seq1,
		Parents:  []types.RemoteVersion{rv("a", 1)},
		DocOps: []types.RemoteDocOp{
			{Id: "doc1", Patch: types.BlobValue([]byte("v2")), Parents: []types.RemoteVersion{rv("a", 1)}},
		},
	})

	v.ApplyForwards(ops, o1)
	v.ApplyForwards(ops, o2)

	v.ApplyBackwards(ops, o2)

	vals := v.GetCloned("doc1")
	require.Len(t, vals, 1)
	assert.Equal(t, o1, vals[0].Order)
	assert.Equal(t, []byte("v1"), vals[0].Value.Blob)

	assert.ElementsMatch(t, []types.Order{o1}, v.Branch())
}

func TestApplyBackwardsToEmptyRestoresRootNone(t *testing.T) {
	ops := opgraph.New()
	v := New()

	o1 := ops.AddOperation(types.RemoteOperation{
		Version: rv("a", 1),
		Parents: rootParents(),
		DocOps:  []types.RemoteDocOp{{Id: "doc1", Patch: types.BlobValue([]byte("v1")), Parents: rootParents()}},
	})
	v.ApplyForwards(ops, o1)
	v.ApplyBackwards(ops, o1)

	vals := v.GetCloned("doc1")
	require.Len(t, vals, 1)
	assert.Equal(t, types.OrderRoot, vals[0].Order)
	assert.True(t, vals[0].Value.IsNone)
}

func TestBranchAsVersionsTranslatesOrders(t *testing.T) {
	ops := opgraph.New()
	v := New()

	o1 := ops.AddOperation(types.RemoteOperation{Version: rv("alice", 1), Parents: rootParents()})
	v.ApplyForwards(ops, o1)

	versions := v.BranchAsVersions(ops)
	require.Len(t, versions, 1)
	assert.Equal(t, types.Seq(1), versions[0].Seq)
}
