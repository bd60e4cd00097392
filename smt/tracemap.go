package smt

import (
	"fmt"
	"os"
)

// MapSize is the number of entries in a coverage map.
const MapSize = 1 << 16

// TraceMap is an AFL-style virgin map over hashed branch contexts. Every
// entry starts with all bits set; visiting a context clears its bit, so a
// set bit means the context has not been seen before.
type TraceMap struct {
	path   string
	virgin []byte
}

// NewTraceMap loads the map at path, or starts a fresh one when path is
// empty.
func NewTraceMap(path string) (*TraceMap, error) {
	m := &TraceMap{path: path, virgin: make([]byte, MapSize)}
	for i := range m.virgin {
		m.virgin[i] = 0xff
	}
	if path == "" {
		return m, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return m, nil // first run, map is created on Save
	} else if err != nil {
		return nil, err
	}
	if len(data) != MapSize {
		return nil, fmt.Errorf("smt: coverage map %s has size %d, want %d", path, len(data), MapSize)
	}
	copy(m.virgin, data)
	return m, nil
}

// Visit marks the hashed context as seen and reports whether it was new.
func (m *TraceMap) Visit(h uint64) bool {
	idx := h & (MapSize - 1)
	mask := byte(1) << ((h >> 16) & 7)
	if m.virgin[idx]&mask == 0 {
		return false
	}
	m.virgin[idx] &^= mask
	return true
}

// Save writes the map back to its backing file, if it has one.
func (m *TraceMap) Save() error {
	if m.path == "" {
		return nil
	}
	return os.WriteFile(m.path, m.virgin, 0o644)
}
