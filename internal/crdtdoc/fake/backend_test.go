package fake_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvnet/crdtcheck/internal/crdtdoc"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc/fake"
)

func TestCounterMergeSumsBothActorsContributions(t *testing.T) {
	b := fake.New()
	a := b.New([]byte("a"))
	c := b.New([]byte("c"))

	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { tx.IncrementCounter("count", 3) }))
	require.NoError(t, c.Transact(func(tx crdtdoc.Tx) { tx.IncrementCounter("count", 4) }))

	require.NoError(t, a.Merge(c))
	require.NoError(t, c.Merge(a))

	va := a.Values()["count"]
	vc := c.Values()["count"]
	assert.Equal(t, int64(7), va)
	assert.Equal(t, va, vc)
}

func TestRegisterLastWriterWinsBreaksTiesByActor(t *testing.T) {
	b := fake.New()
	a := b.New([]byte("a"))
	z := b.New([]byte("z"))

	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 1) }))
	require.NoError(t, z.Transact(func(tx crdtdoc.Tx) { tx.PutRegister("x", 2) }))

	require.NoError(t, a.Merge(z))
	require.NoError(t, z.Merge(a))

	// Both changes are at seq 1; the tie breaks toward the lexicographically
	// larger actor id, so "z"'s write of 2 should win on both replicas.
	assert.Equal(t, a.Values()["x"], z.Values()["x"])
	assert.Equal(t, int64(2), a.Values()["x"])
}

func TestHeadsConvergeAfterMerge(t *testing.T) {
	b := fake.New()
	a := b.New([]byte("a"))
	c := b.New([]byte("c"))

	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { tx.InsertElement("1", "x") }))
	require.NoError(t, c.Transact(func(tx crdtdoc.Tx) { tx.InsertElement("2", "y") }))

	assert.NotEqual(t, a.Heads(), c.Heads())

	require.NoError(t, a.Merge(c))
	require.NoError(t, c.Merge(a))
	assert.Equal(t, a.Heads(), c.Heads())
}

func TestDeleteElementTombstonesAcrossMerge(t *testing.T) {
	b := fake.New()
	a := b.New([]byte("a"))
	c := b.New([]byte("c"))

	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { tx.InsertElement("1", "x") }))
	require.NoError(t, c.Merge(a))
	require.NoError(t, c.Transact(func(tx crdtdoc.Tx) { tx.DeleteElement("1") }))
	require.NoError(t, a.Merge(c))

	var got string
	var ok bool
	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { got, ok = tx.GetElement("1") }))
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestSaveLoadRoundTripPreservesHeadsAndValues(t *testing.T) {
	b := fake.New()
	a := b.New([]byte("a"))
	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) {
		tx.PutRegister("x", 9)
		tx.InsertElement("1", "hello")
	}))

	data := a.Save()
	loaded, err := b.Load(data)
	require.NoError(t, err)

	assert.Equal(t, a.Heads(), loaded.Heads())
	assert.Equal(t, a.Values(), loaded.Values())
}

func TestApplyChangeIsIdempotent(t *testing.T) {
	b := fake.New()
	a := b.New([]byte("a"))
	c := b.New([]byte("c"))

	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { tx.IncrementCounter("n", 1) }))
	changes := a.ChangesSince("")
	require.Len(t, changes, 1)

	require.NoError(t, c.ApplyChange(changes[0]))
	require.NoError(t, c.ApplyChange(changes[0]))
	assert.Equal(t, int64(1), c.Values()["n"])
}

func TestSyncMessageRoundTripConverges(t *testing.T) {
	b := fake.New()
	a := b.New([]byte("a"))
	c := b.New([]byte("c"))

	require.NoError(t, a.Transact(func(tx crdtdoc.Tx) { tx.InsertElement("1", "x") }))

	ssA := a.NewSyncState()
	msg, ok := a.GenerateSyncMessage(ssA)
	require.True(t, ok)

	ssC := c.NewSyncState()
	require.NoError(t, c.ReceiveSyncMessage(ssC, msg))

	assert.Equal(t, a.Values(), c.Values())

	// No further changes: a second round produces nothing new to send.
	_, ok = a.GenerateSyncMessage(ssA)
	assert.False(t, ok)
}
