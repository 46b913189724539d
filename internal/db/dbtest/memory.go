// Package dbtest provides an in-memory db.Gateway with document-store semantics for tests and local runs.
package dbtest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"crm-backend/internal/db"
)

// MemoryGateway stores documents as BSON in insertion order. Identifiers are generated ObjectIDs,
// so ValidID matches the Mongo gateway. Safe for concurrent use.
type MemoryGateway struct {
	mu          sync.RWMutex
	collections map[string]*collection

	// Err, when set, is returned (wrapped as db.ErrStorage) by every operation. Set it before use.
	Err error

	writes int
}

type collection struct {
	ids  []string
	docs map[string]bson.Raw
}

// NewMemoryGateway returns an empty gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{collections: make(map[string]*collection)}
}

var _ db.Gateway = (*MemoryGateway)(nil)
var _ db.Inspector = (*MemoryGateway)(nil)

// lookup returns the named collection or an empty one; it never mutates state.
func (m *MemoryGateway) lookup(name string) *collection {
	if c, ok := m.collections[name]; ok {
		return c
	}
	return &collection{docs: map[string]bson.Raw{}}
}

func (m *MemoryGateway) coll(name string) *collection {
	c, ok := m.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]bson.Raw)}
		m.collections[name] = c
	}
	return c
}

func (m *MemoryGateway) fail(op string) error {
	if m.Err == nil {
		return nil
	}
	return fmt.Errorf("dbtest: %s: %w: %w", op, db.ErrStorage, m.Err)
}

func (m *MemoryGateway) ValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func (m *MemoryGateway) Insert(_ context.Context, name string, doc any) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("insert"); err != nil {
		return "", err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return "", err
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return "", err
	}
	oid := primitive.NewObjectID()
	for _, e := range d {
		if e.Key == "_id" {
			return "", errors.New("dbtest: document already carries _id")
		}
	}
	d = append(bson.D{{Key: "_id", Value: oid}}, d...)
	stored, err := bson.Marshal(d)
	if err != nil {
		return "", err
	}
	c := m.coll(name)
	id := oid.Hex()
	c.ids = append(c.ids, id)
	c.docs[id] = stored
	m.writes++
	return id, nil
}

func (m *MemoryGateway) FindAll(_ context.Context, name string, filter map[string]any, out any) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("find"); err != nil {
		return err
	}
	sliceVal := reflect.ValueOf(out)
	if sliceVal.Kind() != reflect.Pointer || sliceVal.Elem().Kind() != reflect.Slice {
		return errors.New("dbtest: out must be a pointer to a slice")
	}
	sliceVal = sliceVal.Elem()
	result := reflect.MakeSlice(sliceVal.Type(), 0, 0)
	c := m.lookup(name)
	for _, id := range c.ids {
		raw := c.docs[id]
		ok, err := matches(raw, filter)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		elem := reflect.New(sliceVal.Type().Elem())
		if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
			return err
		}
		result = reflect.Append(result, elem.Elem())
	}
	sliceVal.Set(result)
	return nil
}

// matches applies top-level equality, comparing BSON encodings.
func matches(raw bson.Raw, filter map[string]any) (bool, error) {
	for k, want := range filter {
		got, err := raw.LookupErr(k)
		if err != nil {
			return false, nil
		}
		t, data, err := bson.MarshalValue(want)
		if err != nil {
			return false, err
		}
		if got.Type != t || !bytes.Equal(got.Value, data) {
			return false, nil
		}
	}
	return true, nil
}

func (m *MemoryGateway) FindOne(_ context.Context, name, id string, out any) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("find one"); err != nil {
		return false, err
	}
	raw, ok := m.lookup(name).docs[id]
	if !ok {
		return false, nil
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryGateway) UpdateOne(_ context.Context, name, id string, fields map[string]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update"); err != nil {
		return 0, err
	}
	c := m.lookup(name)
	raw, ok := c.docs[id]
	if !ok {
		return 0, nil
	}
	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return 0, err
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		replaced := false
		for i := range d {
			if d[i].Key == k {
				d[i].Value = fields[k]
				replaced = true
				break
			}
		}
		if !replaced {
			d = append(d, bson.E{Key: k, Value: fields[k]})
		}
	}
	stored, err := bson.Marshal(d)
	if err != nil {
		return 0, err
	}
	c.docs[id] = stored
	m.writes++
	return 1, nil
}

func (m *MemoryGateway) DeleteOne(_ context.Context, name, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete"); err != nil {
		return 0, err
	}
	c := m.lookup(name)
	if _, ok := c.docs[id]; !ok {
		return 0, nil
	}
	delete(c.docs, id)
	for i, v := range c.ids {
		if v == id {
			c.ids = append(c.ids[:i], c.ids[i+1:]...)
			break
		}
	}
	m.writes++
	return 1, nil
}

func (m *MemoryGateway) Ping(context.Context) error {
	return m.fail("ping")
}

func (m *MemoryGateway) Name() string {
	return "memory"
}

// CollectionNames returns the names of collections that hold at least one document, sorted.
func (m *MemoryGateway) CollectionNames(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("list collections"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m.collections))
	for name, c := range m.collections {
		if len(c.ids) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// WriteCount returns the number of Insert, UpdateOne and DeleteOne calls that changed a document.
func (m *MemoryGateway) WriteCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
