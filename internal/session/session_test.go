package session

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/loomgraph/loomgraph/internal/catalog"
	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/manifest"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func personCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	cols := []catalog.ColumnDef{
		{Name: "id", Type: common.Primitive(common.INT64)},
		{Name: "name", Type: common.Primitive(common.STRING)},
	}
	if err := cat.CreateNodeTable("person", cols, 0); err != nil {
		t.Fatal(err)
	}
	return cat
}

func TestCopyFromSerial(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeCSV(t, dir, "person.csv", "1,alice\n2,bob\n3,carol\n")
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}

	sess := New(dataDir, personCatalog(t))
	opts := DefaultCopyOptions()
	result, err := sess.CopyFrom("person", csvPath, opts)
	if err != nil {
		t.Fatal(err)
	}
	if result.RowsInserted != 3 {
		t.Fatalf("RowsInserted = %d, want 3", result.RowsInserted)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %v, want none", result.Errors)
	}

	man, err := manifest.Load(filepath.Join(dataDir, "person.data"))
	if err != nil {
		t.Fatal(err)
	}
	tm, ok := man.Tables["person"]
	if !ok {
		t.Fatal("manifest missing person table after CopyFrom")
	}
	if len(tm.NodeGroups) != 1 {
		t.Fatalf("len(NodeGroups) = %d, want 1", len(tm.NodeGroups))
	}
	if tm.NodeGroups[0].NumRows != 3 {
		t.Errorf("NodeGroups[0].NumRows = %d, want 3", tm.NodeGroups[0].NumRows)
	}
	if len(tm.NodeGroups[0].Columns) != 2 {
		t.Errorf("len(Columns) = %d, want 2", len(tm.NodeGroups[0].Columns))
	}
}

func TestCopyFromLenientRecordsErrors(t *testing.T) {
	dir := t.TempDir()
	// row 2's open quote never closes, swallowing the rest of the file.
	csvPath := writeCSV(t, dir, "person.csv", "1,alice\n2,\"unterminated\n")
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}

	sess := New(dataDir, personCatalog(t))
	opts := DefaultCopyOptions()
	opts.Lenient = true
	result, err := sess.CopyFrom("person", csvPath, opts)
	if err != nil {
		t.Fatal(err)
	}
	if result.RowsInserted != 1 {
		t.Fatalf("RowsInserted = %d, want 1", result.RowsInserted)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("len(Errors) = %d, want 1", len(result.Errors))
	}

	if _, err := os.Stat(filepath.Join(dataDir, "person.data.errors.json")); err != nil {
		t.Errorf("error-log sidecar missing: %v", err)
	}
}

func TestCopyFromParallel(t *testing.T) {
	dir := t.TempDir()
	var sb []byte
	for i := 1; i <= 500; i++ {
		sb = append(sb, []byte(csvRow(i))...)
	}
	csvPath := writeCSV(t, dir, "person.csv", string(sb))
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}

	sess := New(dataDir, personCatalog(t))
	opts := DefaultCopyOptions()
	opts.Parallel = true
	opts.Workers = 4
	result, err := sess.CopyFrom("person", csvPath, opts)
	if err != nil {
		t.Fatal(err)
	}
	if result.RowsInserted != 500 {
		t.Fatalf("RowsInserted = %d, want 500", result.RowsInserted)
	}

	man, err := manifest.Load(filepath.Join(dataDir, "person.data"))
	if err != nil {
		t.Fatal(err)
	}
	tm, ok := man.Tables["person"]
	if !ok {
		t.Fatal("manifest missing person table after parallel CopyFrom")
	}
	var total int64
	for _, ng := range tm.NodeGroups {
		total += ng.NumRows
	}
	if total != 500 {
		t.Errorf("sum of NodeGroups[*].NumRows = %d, want 500", total)
	}
}

func csvRow(i int) string {
	return strconv.Itoa(i) + ",name" + strconv.Itoa(i) + "\n"
}

func TestCancelStopsIngestion(t *testing.T) {
	dir := t.TempDir()
	var sb []byte
	for i := 1; i <= 1000; i++ {
		sb = append(sb, []byte(csvRow(i))...)
	}
	csvPath := writeCSV(t, dir, "person.csv", string(sb))
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		t.Fatal(err)
	}

	sess := New(dataDir, personCatalog(t))
	sess.Cancel()

	opts := DefaultCopyOptions()
	_, err := sess.CopyFrom("person", csvPath, opts)
	if err == nil {
		t.Fatal("expected CopyFrom to fail when cancelled before it starts")
	}
}
