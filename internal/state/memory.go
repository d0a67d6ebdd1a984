package state

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// memoryConn is an in-process store used by unit tests and local
// development. It mirrors the remote backends' contract, including
// all-or-nothing transactions via snapshot and restore.
type memoryConn struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
}

func newMemoryConn() *memoryConn {
	return &memoryConn{collections: make(map[string]map[string]Document)}
}

func (m *memoryConn) Create(ctx context.Context, collection, id string, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(collection, id, doc)
	return nil
}

func (m *memoryConn) Add(ctx context.Context, collection string, doc Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.setLocked(collection, id, doc)
	return id, nil
}

func (m *memoryConn) Get(ctx context.Context, collection, id string) (Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.collections[collection][id]
	if !ok {
		return nil, false, nil
	}
	return doc.Clone(), true, nil
}

func (m *memoryConn) Update(ctx context.Context, collection, id string, fields Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(collection, id, fields), nil
}

func (m *memoryConn) Delete(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteLocked(collection, id)
	return nil
}

func (m *memoryConn) Query(ctx context.Context, collection string, filters []Filter) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Result{}
	for id, doc := range m.collections[collection] {
		if matchesAll(doc, filters) {
			out = append(out, Result{ID: id, Doc: doc.Clone()})
		}
	}
	// deterministic order for callers and tests
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RunTransaction holds the store lock for the whole body, so the body must
// issue all operations through the Tx it receives, never through the
// Client.
func (m *memoryConn) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]map[string]Document, len(m.collections))
	for name, col := range m.collections {
		cp := make(map[string]Document, len(col))
		for id, doc := range col {
			cp[id] = doc.Clone()
		}
		snapshot[name] = cp
	}

	if err := fn(ctx, &memoryTx{conn: m}); err != nil {
		m.collections = snapshot
		return err
	}
	return nil
}

func (m *memoryConn) Close() error { return nil }

func (m *memoryConn) setLocked(collection, id string, doc Document) {
	col, ok := m.collections[collection]
	if !ok {
		col = make(map[string]Document)
		m.collections[collection] = col
	}
	col[id] = doc.Clone()
}

func (m *memoryConn) updateLocked(collection, id string, fields Document) bool {
	doc, ok := m.collections[collection][id]
	if !ok {
		return false
	}
	for k, v := range fields {
		doc[k] = v.clone()
	}
	return true
}

func (m *memoryConn) deleteLocked(collection, id string) {
	delete(m.collections[collection], id)
}

// memoryTx operates on the live store while RunTransaction holds the lock;
// the pre-transaction snapshot is restored when the body fails.
type memoryTx struct {
	conn *memoryConn
}

func (t *memoryTx) Get(ctx context.Context, collection, id string) (Document, bool, error) {
	doc, ok := t.conn.collections[collection][id]
	if !ok {
		return nil, false, nil
	}
	return doc.Clone(), true, nil
}

func (t *memoryTx) Set(ctx context.Context, collection, id string, doc Document) error {
	t.conn.setLocked(collection, id, doc)
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, collection, id string) error {
	t.conn.deleteLocked(collection, id)
	return nil
}

func matchesAll(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !matches(doc, f) {
			return false
		}
	}
	return true
}

func matches(doc Document, f Filter) bool {
	v, ok := doc[f.Field]
	if !ok {
		return false
	}
	if v.kind == KindMap || v.kind == KindList {
		return f.Op == "==" && reflect.DeepEqual(v.Native(), f.Value.Native())
	}
	cmp, ok := compareValues(v, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case "==":
		return cmp == 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

// compareValues orders two values of the same scalar kind; mixed kinds do
// not match, mirroring Firestore's typed comparisons.
func compareValues(a, b Value) (int, bool) {
	if a.kind != b.kind {
		return 0, false
	}
	switch a.kind {
	case KindString:
		return strings.Compare(a.str, b.str), true
	case KindInteger:
		switch {
		case a.i < b.i:
			return -1, true
		case a.i > b.i:
			return 1, true
		}
		return 0, true
	case KindDouble:
		switch {
		case a.f < b.f:
			return -1, true
		case a.f > b.f:
			return 1, true
		}
		return 0, true
	case KindBool:
		switch {
		case !a.b && b.b:
			return -1, true
		case a.b && !b.b:
			return 1, true
		}
		return 0, true
	case KindTime:
		return a.t.Compare(b.t), true
	}
	return 0, false
}
