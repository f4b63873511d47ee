// Package fake provides a small deterministic in-memory CRDT used to exercise
// and test internal/document and everything built on it without requiring the
// cgo-based github.com/automerge/automerge-go binding. It implements a
// last-writer-wins register map, a grow/shrink counter register, and an
// OR-Set-style tombstoned element collection (for list/map applications),
// which is sufficient to reproduce every reference application's observable
// behaviour: naive-register races, CRDT-counter convergence, concurrent
// list-move duplication, and id-collision in todo creation.
package fake

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ruvnet/crdtcheck/internal/crdtdoc"
)

func init() {
	gob.Register(change{})
	gob.Register(putRegisterOp{})
	gob.Register(incrementCounterOp{})
	gob.Register(insertElementOp{})
	gob.Register(deleteElementOp{})
	gob.Register(setFieldOp{})
}

// Backend constructs fake documents.
type Backend struct{}

// New returns a Backend.
func New() crdtdoc.Backend { return Backend{} }

func (Backend) New(actorID []byte) crdtdoc.Doc {
	return &doc{
		actor:     append([]byte(nil), actorID...),
		registers: map[string]*register{},
		elements:  map[string]*element{},
		clock:     map[string]uint64{},
	}
}

func (Backend) Load(data []byte) (crdtdoc.Doc, error) {
	d := &doc{registers: map[string]*register{}, elements: map[string]*element{}, clock: map[string]uint64{}}
	if len(data) == 0 {
		return d, nil
	}
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, fmt.Errorf("fake: decode snapshot: %w", err)
	}
	d.actor = snap.Actor
	for _, c := range snap.Changes {
		if err := d.applyChange(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

type op interface{ isOp() }

type putRegisterOp struct {
	Key   string
	Value int64
}
type incrementCounterOp struct {
	Key   string
	Delta int64
}
type insertElementOp struct {
	ID    string
	Value string
}
type deleteElementOp struct {
	ID string
}
type setFieldOp struct {
	ID, Field, Value string
}

func (putRegisterOp) isOp()      {}
func (incrementCounterOp) isOp() {}
func (insertElementOp) isOp()    {}
func (deleteElementOp) isOp()    {}
func (setFieldOp) isOp()         {}

// change is the wire-level unit exchanged between replicas: one actor's
// atomic batch of ops, tagged with a per-actor monotonic sequence number so
// heads can be expressed as a vector clock.
type change struct {
	Actor []byte
	Seq   uint64
	Ops   []op
}

type snapshot struct {
	Actor   []byte
	Changes []change
}

type register struct {
	isCounter bool
	value     int64
	writerSeq uint64
	writer    string
	parts     map[string]int64 // per-actor contribution, for the counter type
}

type element struct {
	value     string
	tombstone bool
	fields    map[string]string
	writerSeq uint64
	writer    string
}

type doc struct {
	actor     []byte
	registers map[string]*register
	elements  map[string]*element
	clock     map[string]uint64 // per-actor highest applied seq: the vector clock / heads
	applied   []change          // full causal history, for ChangesSince/Save
}

func actorKey(id []byte) string { return string(id) }

func (d *doc) Clone() crdtdoc.Doc {
	nd := &doc{
		actor:     append([]byte(nil), d.actor...),
		registers: map[string]*register{},
		elements:  map[string]*element{},
		clock:     map[string]uint64{},
	}
	for k, v := range d.clock {
		nd.clock[k] = v
	}
	for _, c := range d.applied {
		cc := c
		cc.Ops = append([]op(nil), c.Ops...)
		nd.applied = append(nd.applied, cc)
	}
	for k, v := range d.registers {
		rv := *v
		if v.parts != nil {
			rv.parts = map[string]int64{}
			for a, p := range v.parts {
				rv.parts[a] = p
			}
		}
		nd.registers[k] = &rv
	}
	for k, v := range d.elements {
		ev := *v
		if v.fields != nil {
			ev.fields = map[string]string{}
			for f, val := range v.fields {
				ev.fields[f] = val
			}
		}
		nd.elements[k] = &ev
	}
	return nd
}

func (d *doc) SetActor(id []byte) { d.actor = append([]byte(nil), id...) }
func (d *doc) Actor() []byte      { return d.actor }
func (d *doc) HasChanges() bool   { return len(d.applied) > 0 }

// Heads encodes the vector clock as a canonical, sorted "actor:seq,actor:seq"
// string so two documents with the same causal frontier compare and hash equal
// regardless of application order (heads only ever grow, per the monotonicity
// invariant this type enforces by construction: clock entries are max'd, never
// decreased).
func (d *doc) Heads() crdtdoc.Heads {
	keys := make([]string, 0, len(d.clock))
	for k, seq := range d.clock {
		if seq == 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, encodeClockEntry(k, d.clock[k]))
	}
	return crdtdoc.Heads(strings.Join(parts, ","))
}

func encodeClockEntry(actorKey string, seq uint64) string {
	return base64.StdEncoding.EncodeToString([]byte(actorKey)) + ":" + strconv.FormatUint(seq, 10)
}

func decodeClockEntry(entry string) (actorKey string, seq uint64, ok bool) {
	idx := strings.LastIndexByte(entry, ':')
	if idx < 0 {
		return "", 0, false
	}
	raw, err := base64.StdEncoding.DecodeString(entry[:idx])
	if err != nil {
		return "", 0, false
	}
	n, err := strconv.ParseUint(entry[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return string(raw), n, true
}

type tx struct {
	d   *doc
	ops []op
}

func (t *tx) GetRegister(key string) (int64, bool) {
	r, ok := t.d.registers[key]
	if !ok {
		return 0, false
	}
	return r.value, true
}

func (t *tx) PutRegister(key string, value int64) {
	t.ops = append(t.ops, putRegisterOp{Key: key, Value: value})
}

func (t *tx) EnsureCounter(key string) {
	if _, ok := t.d.registers[key]; !ok {
		t.ops = append(t.ops, incrementCounterOp{Key: key, Delta: 0})
	}
}

func (t *tx) IncrementCounter(key string, delta int64) {
	t.ops = append(t.ops, incrementCounterOp{Key: key, Delta: delta})
}

func (t *tx) InsertElement(id string, value string) {
	t.ops = append(t.ops, insertElementOp{ID: id, Value: value})
}

func (t *tx) DeleteElement(id string) {
	t.ops = append(t.ops, deleteElementOp{ID: id})
}

func (t *tx) SetField(id, field, value string) {
	t.ops = append(t.ops, setFieldOp{ID: id, Field: field, Value: value})
}

func (t *tx) ListValues() []string {
	out := make([]string, 0, len(t.d.elements))
	for _, e := range t.d.elements {
		if !e.tombstone {
			out = append(out, e.value)
		}
	}
	sort.Strings(out)
	return out
}

func (t *tx) GetElement(id string) (string, bool) {
	e, ok := t.d.elements[id]
	if !ok || e.tombstone {
		return "", false
	}
	return e.value, true
}

func (t *tx) ListIDs() []string {
	out := make([]string, 0, len(t.d.elements))
	for id, e := range t.d.elements {
		if !e.tombstone {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func (d *doc) Transact(fn func(crdtdoc.Tx)) error {
	t := &tx{d: d}
	fn(t)
	if len(t.ops) == 0 {
		return nil
	}
	seq := d.clock[actorKey(d.actor)] + 1
	c := change{Actor: append([]byte(nil), d.actor...), Seq: seq, Ops: t.ops}
	return d.applyChange(c)
}

func (d *doc) applyChange(c change) error {
	key := actorKey(c.Actor)
	if have := d.clock[key]; have >= c.Seq {
		// Already applied: changes are idempotent.
		return nil
	}
	for _, o := range c.Ops {
		d.applyOp(key, c.Seq, o)
	}
	d.clock[key] = c.Seq
	d.applied = append(d.applied, c)
	return nil
}

func (d *doc) applyOp(writer string, seq uint64, o op) {
	switch v := o.(type) {
	case putRegisterOp:
		r := d.registers[v.Key]
		if r == nil {
			r = &register{}
			d.registers[v.Key] = r
		}
		// last-writer-wins by (seq, actor) to break ties deterministically.
		if r.writerSeq < seq || (r.writerSeq == seq && r.writer < writer) {
			r.value = v.Value
			r.writerSeq = seq
			r.writer = writer
		}
	case incrementCounterOp:
		r := d.registers[v.Key]
		if r == nil {
			r = &register{isCounter: true, parts: map[string]int64{}}
			d.registers[v.Key] = r
		}
		r.isCounter = true
		if r.parts == nil {
			r.parts = map[string]int64{}
		}
		r.parts[writer] += v.Delta
		var sum int64
		for _, p := range r.parts {
			sum += p
		}
		r.value = sum
	case insertElementOp:
		e := d.elements[v.ID]
		if e == nil {
			e = &element{fields: map[string]string{}}
			d.elements[v.ID] = e
		}
		// last-writer-wins by (seq, actor), same tie-break as putRegisterOp.
		if e.writerSeq < seq || (e.writerSeq == seq && e.writer < writer) {
			e.value = v.Value
			e.writerSeq = seq
			e.writer = writer
		}
	case deleteElementOp:
		e := d.elements[v.ID]
		if e == nil {
			e = &element{fields: map[string]string{}}
			d.elements[v.ID] = e
		}
		e.tombstone = true
	case setFieldOp:
		e := d.elements[v.ID]
		if e == nil {
			e = &element{fields: map[string]string{}}
			d.elements[v.ID] = e
		}
		if e.fields == nil {
			e.fields = map[string]string{}
		}
		e.fields[v.Field] = v.Value
	}
}

func (d *doc) ApplyChange(raw []byte) error {
	var c change
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&c); err != nil {
		return fmt.Errorf("fake: decode change: %w", err)
	}
	return d.applyChange(c)
}

func (d *doc) ChangesSince(heads crdtdoc.Heads) [][]byte {
	have := parseHeads(heads)
	var out [][]byte
	for _, c := range d.applied {
		if c.Seq <= have[actorKey(c.Actor)] {
			continue
		}
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(c); err != nil {
			continue
		}
		out = append(out, buf.Bytes())
	}
	return out
}

func parseHeads(h crdtdoc.Heads) map[string]uint64 {
	out := map[string]uint64{}
	s := string(h)
	if s == "" {
		return out
	}
	for _, part := range strings.Split(s, ",") {
		if actorKey, seq, ok := decodeClockEntry(part); ok {
			out[actorKey] = seq
		}
	}
	return out
}

func (d *doc) ChangeAuthor(raw []byte) ([]byte, error) {
	var c change
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&c); err != nil {
		return nil, fmt.Errorf("fake: decode change: %w", err)
	}
	return c.Actor, nil
}

func (d *doc) Save() []byte {
	var buf bytes.Buffer
	snap := snapshot{Actor: d.actor, Changes: d.applied}
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return nil
	}
	return buf.Bytes()
}

func (d *doc) Merge(other crdtdoc.Doc) error {
	od, ok := other.(*doc)
	if !ok {
		return fmt.Errorf("fake: cannot merge foreign document type")
	}
	for _, c := range od.applied {
		if err := d.applyChange(c); err != nil {
			return err
		}
	}
	return nil
}

// syncState is the fake's per-peer sync session: it simply remembers the last
// heads it knows the peer has seen, and the sync "message" is the set of
// missing changes plus the sender's heads.
type syncState struct {
	peerHeads crdtdoc.Heads
}

func (d *doc) NewSyncState() crdtdoc.SyncState { return &syncState{} }

type syncMessage struct {
	Changes    []change
	SenderSeen map[string]uint64
}

func (d *doc) GenerateSyncMessage(state crdtdoc.SyncState) ([]byte, bool) {
	ss := state.(*syncState)
	changes := d.ChangesSince(ss.peerHeads)
	if len(changes) == 0 {
		return nil, false
	}
	decoded := make([]change, 0, len(changes))
	for _, raw := range changes {
		var c change
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&c); err == nil {
			decoded = append(decoded, c)
		}
	}
	msg := syncMessage{Changes: decoded, SenderSeen: cloneClock(d.clock)}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(msg); err != nil {
		return nil, false
	}
	ss.peerHeads = d.Heads()
	return buf.Bytes(), true
}

func (d *doc) ReceiveSyncMessage(state crdtdoc.SyncState, message []byte) error {
	ss := state.(*syncState)
	var msg syncMessage
	if err := gob.NewDecoder(bytes.NewReader(message)).Decode(&msg); err != nil {
		return fmt.Errorf("fake: decode sync message: %w", err)
	}
	for _, c := range msg.Changes {
		if err := d.applyChange(c); err != nil {
			return err
		}
	}
	for actor, seq := range msg.SenderSeen {
		if cur, ok := ss.peerHeads2()[actor]; !ok || cur < seq {
			ss.setSeen(actor, seq)
		}
	}
	return nil
}

func cloneClock(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *doc) CloneSyncState(state crdtdoc.SyncState) crdtdoc.SyncState {
	ss := state.(*syncState)
	cp := *ss
	return &cp
}

func (d *doc) SyncStateDigest(state crdtdoc.SyncState) string {
	ss := state.(*syncState)
	return string(ss.peerHeads)
}

func (ss *syncState) peerHeads2() map[string]uint64 { return parseHeads(ss.peerHeads) }

func (ss *syncState) setSeen(actor string, seq uint64) {
	m := ss.peerHeads2()
	m[actor] = seq
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, encodeClockEntry(k, m[k]))
	}
	ss.peerHeads = crdtdoc.Heads(strings.Join(parts, ","))
}

func (d *doc) Values() map[string]interface{} {
	out := map[string]interface{}{}
	for k, r := range d.registers {
		out[k] = r.value
	}
	live := make([]string, 0, len(d.elements))
	for _, e := range d.elements {
		if !e.tombstone {
			live = append(live, e.value)
		}
	}
	sort.Strings(live)
	out["list:root"] = live
	return out
}
