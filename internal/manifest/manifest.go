// Package manifest persists the on-disk directory spec §6 describes: per
// table, per column, the (startPageIdx, numPages) of each node group. It
// is a JSON sidecar next to the data file, in the Load/Save-to-sidecar
// shape used across this module for small persistent metadata.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// PageRange records where one column's bytes for one node group landed.
type PageRange struct {
	StartPageIdx int64 `json:"start_page_idx"`
	NumPages     int   `json:"num_pages"`
}

// NodeGroupEntry is one node group's page ranges, one per column in
// table-column order.
type NodeGroupEntry struct {
	NodeGroupIdx int         `json:"node_group_idx"`
	Columns      []PageRange `json:"columns"`
	NumRows      int64       `json:"num_rows"`
}

// TableManifest accumulates node-group entries for one table.
type TableManifest struct {
	Table      string           `json:"table"`
	NodeGroups []NodeGroupEntry `json:"node_groups"`
}

// Manifest is the full directory, keyed by table name, persisted as one
// JSON sidecar per data file.
type Manifest struct {
	mu     sync.Mutex
	path   string
	Tables map[string]*TableManifest `json:"tables"`
}

func sidecarPath(dataPath string) string {
	dir := filepath.Dir(dataPath)
	base := filepath.Base(dataPath)
	return filepath.Join(dir, base+".manifest.json")
}

func New(dataPath string) *Manifest {
	return &Manifest{path: sidecarPath(dataPath), Tables: make(map[string]*TableManifest)}
}

// Load reads an existing manifest sidecar, or returns an empty one.
func Load(dataPath string) (*Manifest, error) {
	m := New(dataPath)
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Tables == nil {
		m.Tables = make(map[string]*TableManifest)
	}
	return m, nil
}

// RecordNodeGroup appends a node group's page ranges under table.
func (m *Manifest) RecordNodeGroup(table string, entry NodeGroupEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tm, ok := m.Tables[table]
	if !ok {
		tm = &TableManifest{Table: table}
		m.Tables[table] = tm
	}
	tm.NodeGroups = append(tm.NodeGroups, entry)
}

// Save writes the manifest to its sidecar path.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(m.path, data, 0644)
}
