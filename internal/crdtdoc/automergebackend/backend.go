// Package automergebackend binds internal/crdtdoc.Backend to the real
// automerge CRDT via github.com/automerge/automerge-go. It is the
// production implementation; internal/crdtdoc/fake exists purely so unit
// tests don't need cgo.
package automergebackend

import (
	"fmt"
	"sort"

	automerge "github.com/automerge/automerge-go"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc"
)

// Backend constructs documents backed by automerge-go.
type Backend struct{}

// New returns a Backend.
func New() crdtdoc.Backend { return Backend{} }

func (Backend) New(actorID []byte) crdtdoc.Doc {
	d := automerge.New()
	d.SetActorID(automerge.NewActorID(actorID))
	return &doc{am: d}
}

func (Backend) Load(data []byte) (crdtdoc.Doc, error) {
	d, err := automerge.Load(data)
	if err != nil {
		return nil, fmt.Errorf("automerge: load: %w", err)
	}
	return &doc{am: d}, nil
}

type doc struct {
	am *automerge.Doc
}

func (d *doc) Clone() crdtdoc.Doc {
	return &doc{am: d.am.Fork()}
}

func (d *doc) SetActor(id []byte) { d.am.SetActorID(automerge.NewActorID(id)) }
func (d *doc) Actor() []byte      { return d.am.ActorID().Bytes() }

func (d *doc) Heads() crdtdoc.Heads {
	heads := d.am.Heads()
	return crdtdoc.Heads(automerge.EncodeHeads(heads))
}

func (d *doc) HasChanges() bool {
	return len(d.am.Heads()) > 0
}

func (d *doc) Transact(fn func(crdtdoc.Tx)) error {
	txn := d.am.Transaction()
	fn(&tx{txn: txn, am: d.am})
	return txn.Commit()
}

func (d *doc) ApplyChange(raw []byte) error {
	change, err := automerge.LoadChange(raw)
	if err != nil {
		return fmt.Errorf("automerge: decode change: %w", err)
	}
	return d.am.ApplyChanges(change)
}

func (d *doc) ChangesSince(heads crdtdoc.Heads) [][]byte {
	decoded, err := automerge.DecodeHeads(string(heads))
	if err != nil {
		return nil
	}
	changes := d.am.ChangesSince(decoded)
	out := make([][]byte, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.RawBytes())
	}
	return out
}

func (d *doc) ChangeAuthor(raw []byte) ([]byte, error) {
	change, err := automerge.LoadChange(raw)
	if err != nil {
		return nil, fmt.Errorf("automerge: decode change: %w", err)
	}
	return change.ActorID().Bytes(), nil
}

func (d *doc) Save() []byte { return d.am.Save() }

func (d *doc) Merge(other crdtdoc.Doc) error {
	od, ok := other.(*doc)
	if !ok {
		return fmt.Errorf("automerge: cannot merge foreign document type")
	}
	_, err := d.am.Merge(od.am)
	return err
}

func (d *doc) NewSyncState() crdtdoc.SyncState {
	return automerge.NewSyncState(d.am)
}

func (d *doc) GenerateSyncMessage(state crdtdoc.SyncState) ([]byte, bool) {
	ss := state.(*automerge.SyncState)
	msg, ok := ss.GenerateMessage()
	if !ok {
		return nil, false
	}
	return msg.Encode(), true
}

func (d *doc) ReceiveSyncMessage(state crdtdoc.SyncState, message []byte) error {
	ss := state.(*automerge.SyncState)
	msg, err := automerge.DecodeSyncMessage(message)
	if err != nil {
		return fmt.Errorf("automerge: decode sync message: %w", err)
	}
	return ss.ReceiveMessage(msg)
}

func (d *doc) CloneSyncState(state crdtdoc.SyncState) crdtdoc.SyncState {
	ss := state.(*automerge.SyncState)
	return ss.Clone()
}

func (d *doc) SyncStateDigest(state crdtdoc.SyncState) string {
	ss := state.(*automerge.SyncState)
	return string(ss.Encode())
}

func (d *doc) Values() map[string]interface{} {
	out := map[string]interface{}{}
	for _, key := range d.am.Keys(automerge.Root) {
		if key == listPath {
			continue
		}
		v, err := d.am.Root().Get(key)
		if err != nil {
			continue
		}
		out[key] = v.Value()
	}
	out["list:root"] = d.liveListValues()
	return out
}

// liveListValues mirrors tx.ListValues but reads outside a transaction and
// sorts the result, for use by Values() once a document's mutations have
// already been committed.
func (d *doc) liveListValues() []string {
	listVal, err := d.am.Root().Get(listPath)
	if err != nil || listVal == nil {
		return []string{}
	}
	list := listVal.List()
	n := list.Len()
	live := make([]string, 0, n)
	for i := 0; i < n; i++ {
		item := list.Get(i).Map()
		del, _ := item.Get("deleted")
		if del != nil && del.Bool() {
			continue
		}
		v, _ := item.Get("value")
		if v != nil {
			live = append(live, v.Str())
		}
	}
	sort.Strings(live)
	return live
}

// tx adapts crdtdoc.Tx onto an automerge transaction using the root map and a
// single root-level list named "items" for list/set-shaped applications.
type tx struct {
	txn *automerge.Transaction
	am  *automerge.Doc
}

const listPath = "items"

func (t *tx) GetRegister(key string) (int64, bool) {
	v, err := t.txn.Root().Get(key)
	if err != nil || v == nil {
		return 0, false
	}
	i, ok := v.Int64()
	return i, ok
}

func (t *tx) PutRegister(key string, value int64) {
	_ = t.txn.Root().Set(key, value)
}

func (t *tx) EnsureCounter(key string) {
	if v, err := t.txn.Root().Get(key); err != nil || v == nil {
		_ = t.txn.Root().Set(key, automerge.NewCounter(0))
	}
}

func (t *tx) IncrementCounter(key string, delta int64) {
	_ = t.txn.Root().Counter(key).Increment(delta)
}

func (t *tx) InsertElement(id string, value string) {
	list := t.txn.Root().List(listPath)
	_ = list.Append(map[string]interface{}{"id": id, "value": value, "deleted": false})
}

func (t *tx) DeleteElement(id string) {
	list := t.txn.Root().List(listPath)
	n := list.Len()
	for i := 0; i < n; i++ {
		item := list.Get(i).Map()
		idVal, _ := item.Get("id")
		if idVal != nil && idVal.Str() == id {
			_ = item.Set("deleted", true)
		}
	}
}

func (t *tx) SetField(id, field, value string) {
	list := t.txn.Root().List(listPath)
	n := list.Len()
	for i := 0; i < n; i++ {
		item := list.Get(i).Map()
		idVal, _ := item.Get("id")
		if idVal != nil && idVal.Str() == id {
			_ = item.Set(field, value)
		}
	}
}

func (t *tx) GetElement(id string) (string, bool) {
	list := t.txn.Root().List(listPath)
	n := list.Len()
	for i := 0; i < n; i++ {
		item := list.Get(i).Map()
		idVal, _ := item.Get("id")
		if idVal == nil || idVal.Str() != id {
			continue
		}
		del, _ := item.Get("deleted")
		if del != nil && del.Bool() {
			return "", false
		}
		v, _ := item.Get("value")
		if v == nil {
			return "", false
		}
		return v.Str(), true
	}
	return "", false
}

func (t *tx) ListValues() []string {
	list := t.txn.Root().List(listPath)
	n := list.Len()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		item := list.Get(i).Map()
		del, _ := item.Get("deleted")
		if del != nil && del.Bool() {
			continue
		}
		v, _ := item.Get("value")
		if v != nil {
			out = append(out, v.Str())
		}
	}
	return out
}

func (t *tx) ListIDs() []string {
	list := t.txn.Root().List(listPath)
	n := list.Len()
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		item := list.Get(i).Map()
		del, _ := item.Get("deleted")
		if del != nil && del.Bool() {
			continue
		}
		idVal, _ := item.Get("id")
		if idVal != nil {
			out = append(out, idVal.Str())
		}
	}
	return out
}
