package todo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruvnet/crdtcheck/applications/todo"
	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc/fake"
	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/history"
	"github.com/ruvnet/crdtcheck/internal/properties"
)

type fakeSnapshot struct {
	servers []properties.ServerView
	hist    history.History
}

func (s fakeSnapshot) Servers() []properties.ServerView    { return s.servers }
func (s fakeSnapshot) ServerToServerTrafficInFlight() bool { return false }
func (s fakeSnapshot) History() history.History            { return s.hist }

func serverView(list []string) properties.ServerView {
	return properties.ServerView{Values: map[string]interface{}{"list:root": list}}
}

func TestIntegerIDsCollideAcrossReplicas(t *testing.T) {
	a := todo.IntegerIDs(document.ReplicaID(0), 1)
	b := todo.IntegerIDs(document.ReplicaID(1), 1)
	assert.Equal(t, a, b, "integer ids ignore the replica and collide on the first create")
}

func TestReplicaSeededIDsNeverCollideAcrossReplicas(t *testing.T) {
	a := todo.ReplicaSeededIDs(document.ReplicaID(0), 1)
	b := todo.ReplicaSeededIDs(document.ReplicaID(1), 1)
	assert.NotEqual(t, a, b)
}

func TestReplicaSeededIDsAreDeterministic(t *testing.T) {
	a := todo.ReplicaSeededIDs(document.ReplicaID(2), 5)
	b := todo.ReplicaSeededIDs(document.ReplicaID(2), 5)
	assert.Equal(t, a, b)
}

func TestCreateThenDeleteRemovesTheEntry(t *testing.T) {
	a := todo.Application{Backend: fake.New(), IDs: todo.ReplicaSeededIDs}
	st := a.Init(document.ReplicaID(0))

	out, ok := a.Execute(st, todo.Create{Text: "buy milk"})
	require.True(t, ok)
	created := out.(todo.Created)
	assert.Equal(t, "0-1", created.ID)
	assert.Equal(t, []string{"buy milk"}, st.Document().Values()["list:root"])

	out, ok = a.Execute(st, todo.Delete{ID: created.ID})
	require.True(t, ok)
	assert.Equal(t, todo.Deleted{ID: created.ID}, out)
	assert.Equal(t, []string{}, st.Document().Values()["list:root"])
}

func TestDeleteOfUnknownIDIsANoop(t *testing.T) {
	a := todo.Application{Backend: fake.New(), IDs: todo.ReplicaSeededIDs}
	st := a.Init(document.ReplicaID(0))

	out, ok := a.Execute(st, todo.Delete{ID: "no-such-id"})
	require.True(t, ok)
	assert.Equal(t, todo.Deleted{ID: "no-such-id"}, out)
	assert.Equal(t, []string{}, st.Document().Values()["list:root"])
}

func TestCreateThenDeleteDriverFollowsUpOnlyAfterCreated(t *testing.T) {
	d := todo.CreateThenDeleteDriver{Text: "buy milk"}
	_, inputs := d.Init(document.ReplicaID(0))
	assert.Equal(t, []app.Input{todo.Create{Text: "buy milk"}}, inputs)

	follow := d.HandleOutput(app.NoopDriverState{}, todo.Created{ID: "0-1"})
	assert.Equal(t, []app.Input{todo.Delete{ID: "0-1"}}, follow)

	assert.Nil(t, d.HandleOutput(app.NoopDriverState{}, todo.Deleted{ID: "0-1"}))
}

func TestCountPropertyCollapsesOnColliddingCreates(t *testing.T) {
	trace := history.History{
		{Input: todo.Create{Text: "a"}, Output: todo.Created{ID: "1"}, HasOutput: true},
		{Input: todo.Create{Text: "b"}, Output: todo.Created{ID: "1"}, HasOutput: true},
	}
	p := todo.CountProperty()
	assert.False(t, p.Condition(fakeSnapshot{servers: []properties.ServerView{serverView([]string{"a"}), serverView([]string{"a"})}, hist: trace}),
		"one live element against two completed creates is the collapse the property must flag")

	assert.True(t, p.Condition(fakeSnapshot{servers: []properties.ServerView{serverView([]string{"a", "b"}), serverView([]string{"a", "b"})}, hist: trace}),
		"two live elements match the trace's two completed creates")
}

func TestCountPropertyAccountsForDeletes(t *testing.T) {
	trace := history.History{
		{Input: todo.Create{Text: "a"}, Output: todo.Created{ID: "0-1"}, HasOutput: true},
		{Input: todo.Delete{ID: "0-1"}, Output: todo.Deleted{ID: "0-1"}, HasOutput: true},
	}
	p := todo.CountProperty()
	assert.True(t, p.Condition(fakeSnapshot{servers: []properties.ServerView{serverView([]string{}), serverView([]string{})}, hist: trace}))
}
