package history_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvnet/crdtcheck/internal/actor"
	"github.com/ruvnet/crdtcheck/internal/history"
)

func TestDefaultRecordInputAppendsPendingPair(t *testing.T) {
	var h history.History
	rec := history.Default{}

	next, ok := rec.RecordInput(h, actor.InputMsg("increment"))
	require.True(t, ok)
	require.Len(t, next, 1)
	assert.Equal(t, "increment", next[0].Input)
	assert.False(t, next[0].HasOutput)
}

func TestDefaultRecordInputDeclinesNonInputEnvelopes(t *testing.T) {
	rec := history.Default{}
	_, ok := rec.RecordInput(nil, actor.SnapshotMsg([]byte("x")))
	assert.False(t, ok)
}

func TestDefaultRecordOutputFillsLastPendingPair(t *testing.T) {
	rec := history.Default{}
	h, ok := rec.RecordInput(nil, actor.InputMsg("increment"))
	require.True(t, ok)

	h, ok = rec.RecordOutput(h, actor.OutputMsg(7))
	require.True(t, ok)
	require.Len(t, h, 1)
	assert.Equal(t, 7, h[0].Output)
	assert.True(t, h[0].HasOutput)
}

func TestDefaultRecordOutputDeclinesOnEmptyHistory(t *testing.T) {
	rec := history.Default{}
	_, ok := rec.RecordOutput(nil, actor.OutputMsg(7))
	assert.False(t, ok)
}

func TestHistoryEqualAndHashAgreeOnIdenticalTraces(t *testing.T) {
	rec := history.Default{}
	a, _ := rec.RecordInput(nil, actor.InputMsg("x"))
	a, _ = rec.RecordOutput(a, actor.OutputMsg(1))

	b, _ := rec.RecordInput(nil, actor.InputMsg("x"))
	b, _ = rec.RecordOutput(b, actor.OutputMsg(1))

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestHistoryHashDivergesOnDifferentOutputs(t *testing.T) {
	rec := history.Default{}
	a, _ := rec.RecordInput(nil, actor.InputMsg("x"))
	a, _ = rec.RecordOutput(a, actor.OutputMsg(1))

	b, _ := rec.RecordInput(nil, actor.InputMsg("x"))
	b, _ = rec.RecordOutput(b, actor.OutputMsg(2))

	assert.False(t, a.Equal(b))
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestHistoryCloneIsIndependent(t *testing.T) {
	rec := history.Default{}
	orig, _ := rec.RecordInput(nil, actor.InputMsg("x"))

	cp := orig.Clone()
	cp[0].Input = "y"

	assert.Equal(t, "x", orig[0].Input)
	assert.Equal(t, "y", cp[0].Input)
}
