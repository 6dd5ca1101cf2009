package manifest

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingSidecarIsEmpty(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "person.dat")
	m, err := Load(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Tables) != 0 {
		t.Errorf("len(Tables) = %d, want 0 for a missing sidecar", len(m.Tables))
	}
}

func TestRecordNodeGroupAccumulates(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "person.dat")
	m := New(dataPath)

	m.RecordNodeGroup("person", NodeGroupEntry{
		NodeGroupIdx: 0,
		Columns:      []PageRange{{StartPageIdx: 0, NumPages: 4}},
		NumRows:      100,
	})
	m.RecordNodeGroup("person", NodeGroupEntry{
		NodeGroupIdx: 1,
		Columns:      []PageRange{{StartPageIdx: 4, NumPages: 4}},
		NumRows:      50,
	})

	tm, ok := m.Tables["person"]
	if !ok {
		t.Fatal("table person missing from manifest")
	}
	if len(tm.NodeGroups) != 2 {
		t.Fatalf("len(NodeGroups) = %d, want 2", len(tm.NodeGroups))
	}
	if tm.NodeGroups[1].Columns[0].StartPageIdx != 4 {
		t.Errorf("second node group StartPageIdx = %d, want 4", tm.NodeGroups[1].Columns[0].StartPageIdx)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "knows.dat")
	m := New(dataPath)
	m.RecordNodeGroup("knows", NodeGroupEntry{
		NodeGroupIdx: 0,
		Columns: []PageRange{
			{StartPageIdx: 0, NumPages: 2},
			{StartPageIdx: 2, NumPages: 2},
		},
		NumRows: 1024,
	})
	if err := m.Save(); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(dataPath)
	if err != nil {
		t.Fatal(err)
	}
	tm, ok := reloaded.Tables["knows"]
	if !ok {
		t.Fatal("table knows missing after reload")
	}
	if len(tm.NodeGroups) != 1 || len(tm.NodeGroups[0].Columns) != 2 {
		t.Fatalf("reloaded shape mismatch: %+v", tm)
	}
	if tm.NodeGroups[0].NumRows != 1024 {
		t.Errorf("NumRows = %d, want 1024", tm.NodeGroups[0].NumRows)
	}
	if tm.NodeGroups[0].Columns[1].StartPageIdx != 2 || tm.NodeGroups[0].Columns[1].NumPages != 2 {
		t.Errorf("second column range = %+v, want {2 2}", tm.NodeGroups[0].Columns[1])
	}
}

func TestTwoTablesIndependent(t *testing.T) {
	dataPath := filepath.Join(t.TempDir(), "mixed.dat")
	m := New(dataPath)
	m.RecordNodeGroup("person", NodeGroupEntry{NodeGroupIdx: 0, NumRows: 10})
	m.RecordNodeGroup("knows", NodeGroupEntry{NodeGroupIdx: 0, NumRows: 20})

	if len(m.Tables) != 2 {
		t.Fatalf("len(Tables) = %d, want 2", len(m.Tables))
	}
	if m.Tables["person"].NodeGroups[0].NumRows != 10 {
		t.Errorf("person NumRows wrong")
	}
	if m.Tables["knows"].NodeGroups[0].NumRows != 20 {
		t.Errorf("knows NumRows wrong")
	}
}
