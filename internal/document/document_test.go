package document_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvnet/crdtcheck/internal/crdtdoc"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc/fake"
	"github.com/ruvnet/crdtcheck/internal/document"
)

func newDoc(t *testing.T, replica document.ReplicaID) *document.Document {
	t.Helper()
	return document.New(fake.New(), replica)
}

func TestNewDocumentIsEmpty(t *testing.T) {
	d := newDoc(t, 1)
	assert.False(t, d.HasError())
	assert.Equal(t, crdtdoc.Heads(""), d.LastSentHeads())
}

func TestApplyChangeSetsErrorOnGarbage(t *testing.T) {
	d := newDoc(t, 1)
	d.ApplyChange([]byte("not a valid gob change"))
	assert.True(t, d.HasError())
}

func TestErrorBitIsSticky(t *testing.T) {
	d := newDoc(t, 1)
	d.SetError()
	require.True(t, d.HasError())
	_ = d.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 1) })
	assert.True(t, d.HasError(), "error bit must never clear")
}

func TestGenerateSyncMessageAdvancesLastSentHeads(t *testing.T) {
	d := newDoc(t, 1)
	err := d.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 1) })
	require.NoError(t, err)

	before := d.LastSentHeads()
	assert.Equal(t, crdtdoc.Heads(""), before)

	msg, ok := d.GenerateSyncMessage(2)
	require.True(t, ok)
	require.NotEmpty(t, msg)
	assert.Equal(t, d.Heads(), d.LastSentHeads())
}

func TestGetLastLocalChangesForSyncDoesNotAdvanceWatermark(t *testing.T) {
	d := newDoc(t, 1)
	require.NoError(t, d.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 1) }))

	changes := d.GetLastLocalChangesForSync()
	assert.Len(t, changes, 1)
	assert.Equal(t, crdtdoc.Heads(""), d.LastSentHeads(), "must not advance until caller confirms emission")

	prev := d.UpdateLastSentHeads()
	assert.Equal(t, crdtdoc.Heads(""), prev)
	assert.Equal(t, d.Heads(), d.LastSentHeads())
}

func TestGetLastLocalChangesForSyncExcludesForeignChanges(t *testing.T) {
	a := newDoc(t, 1)
	b := newDoc(t, 2)
	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 1) }))

	msg, ok := a.GenerateSyncMessage(2)
	require.True(t, ok)
	b.ReceiveSyncMessage(1, msg)
	require.False(t, b.HasError())

	require.NoError(t, b.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("y", 2) }))
	own := b.GetLastLocalChangesForSync()
	assert.Len(t, own, 1, "only b's own change should be offered for sync, not a's replicated one")
}

func TestSyncConvergesTwoReplicas(t *testing.T) {
	a := newDoc(t, 1)
	b := newDoc(t, 2)

	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 41) }))
	require.NoError(t, b.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("y", 1) }))

	for i := 0; i < 4; i++ {
		if msg, ok := a.GenerateSyncMessage(2); ok {
			b.ReceiveSyncMessage(1, msg)
		}
		if msg, ok := b.GenerateSyncMessage(1); ok {
			a.ReceiveSyncMessage(2, msg)
		}
	}

	assert.Equal(t, a.Heads(), b.Heads())
	assert.False(t, a.HasError())
	assert.False(t, b.HasError())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	d := newDoc(t, 1)
	require.NoError(t, d.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 7) }))

	saved := d.Save()

	reloaded := newDoc(t, 1)
	require.NoError(t, reloaded.LoadAndMerge(saved))
	assert.Equal(t, d.Heads(), reloaded.Heads())
	assert.Equal(t, d.Values(), reloaded.Values())
}

func TestCloneIsIndependent(t *testing.T) {
	d := newDoc(t, 1)
	require.NoError(t, d.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 1) }))
	_, _ = d.GenerateSyncMessage(2)

	clone := d.Clone()
	require.NoError(t, clone.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 2) }))

	assert.NotEqual(t, d.Heads(), clone.Heads())
	assert.True(t, d.Equal(d))
	assert.False(t, d.Equal(clone))
}

func TestEqualAndHashAgree(t *testing.T) {
	a := newDoc(t, 1)
	b := newDoc(t, 1)
	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 9) }))
	require.NoError(t, b.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 9) }))

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestWithInitialChangeSharesRoot(t *testing.T) {
	seed := func(tx crdtdoc.Tx) { tx.PutRegister("seed", 1) }

	a := newDoc(t, 1)
	a.WithInitialChange(seed)
	b := newDoc(t, 2)
	b.WithInitialChange(seed)

	assert.Equal(t, a.Heads(), b.Heads(), "independently seeded documents must share a root")
}
