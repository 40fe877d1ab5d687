package store

import (
	"encoding/json"
	"fmt"
)

// Document kinds for records that are stored by id and loaded back in the
// order they were first saved
const (
	KindAgent        = "agent"
	KindConversation = "conversation"
	KindTeam         = "team"
	KindConnection   = "connection"
)

// documents keeps JSON documents of one kind in first-saved order
type documents struct {
	order []string
	data  map[string][]byte
}

func newDocuments() *documents {
	return &documents{data: make(map[string][]byte)}
}

func (d *documents) put(id string, data []byte) {
	if _, ok := d.data[id]; !ok {
		d.order = append(d.order, id)
	}
	d.data[id] = data
}

func (d *documents) remove(id string) {
	if _, ok := d.data[id]; !ok {
		return
	}
	delete(d.data, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *documents) all() [][]byte {
	out := make([][]byte, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.data[id])
	}
	return out
}

// DecodeAll unmarshals every document into a new T
func DecodeAll[T any](kind string, docs [][]byte) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, raw := range docs {
		v := new(T)
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		out = append(out, v)
	}
	return out, nil
}
