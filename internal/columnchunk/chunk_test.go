package columnchunk

import (
	"path/filepath"
	"testing"

	"github.com/loomgraph/loomgraph/internal/common"
	"github.com/loomgraph/loomgraph/internal/pagestore"
)

func TestPlainChunkRoundTrip(t *testing.T) {
	c := Create(common.Primitive(common.INT64), 8)
	pc := c.(*PlainColumnChunk)
	for i := 0; i < 8; i++ {
		if err := pc.SetValueFromString(i, "42"); err != nil {
			t.Fatalf("SetValueFromString: %v", err)
		}
	}

	dir := t.TempDir()
	store, err := pagestore.OpenFileStore(filepath.Join(dir, "data.bin"))
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	defer store.Close()

	n, err := c.Flush(store, 0)
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	// 8 INT64 values fill one value page; the 1-byte null mask follows on
	// its own page.
	if n != pagestore.NumPagesForBytes(8*8)+pagestore.NumPagesForBytes(1) {
		t.Fatalf("unexpected page count %d", n)
	}

	raw, err := store.ReadAt(8*8, 0)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	readBack := NewPlainColumnChunk(common.Primitive(common.INT64))
	readBack.Initialize(8)
	copy(readBack.buffer, raw)
	for i := 0; i < 8; i++ {
		if got := readBack.GetInt64(i); got != 42 {
			t.Errorf("pos %d: got %d, want 42", i, got)
		}
	}
}

func TestIdempotentFlush(t *testing.T) {
	c := Create(common.Primitive(common.INT32), 4)
	pc := c.(*PlainColumnChunk)
	pc.WriteInt32(0, 7)
	pc.WriteInt32(1, -3)

	dir := t.TempDir()
	store, err := pagestore.OpenFileStore(filepath.Join(dir, "data.bin"))
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	defer store.Close()

	if _, err := c.Flush(store, 0); err != nil {
		t.Fatalf("first flush: %v", err)
	}
	first, err := store.ReadAt(pagestore.PageSize, 0)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if _, err := c.Flush(store, 0); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	second, err := store.ReadAt(pagestore.PageSize, 0)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("flush is not idempotent")
	}
}

func TestNullPreservationAcrossReload(t *testing.T) {
	const n = 100000
	c := Create(common.Primitive(common.INT64), n)
	pc := c.(*PlainColumnChunk)
	nullPositions := []int{37, 500, 99999}
	nullSet := map[int]bool{}
	for _, p := range nullPositions {
		nullSet[p] = true
	}
	for i := 0; i < n; i++ {
		if nullSet[i] {
			pc.WriteNull(i)
			continue
		}
		pc.WriteInt64(i, int64(i))
	}

	dir := t.TempDir()
	store, err := pagestore.OpenFileStore(filepath.Join(dir, "data.bin"))
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	defer store.Close()

	if _, err := c.Flush(store, 0); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// The null pages follow the value pages; reread them into a fresh null
	// chunk instead of inspecting the in-memory one.
	valuePages := pagestore.NumPagesForBytes(n * 8)
	raw, err := store.ReadAt(len(pc.nullChunk.RawBytes()), int64(valuePages)*pagestore.PageSize)
	if err != nil {
		t.Fatalf("ReadAt null pages: %v", err)
	}
	reloaded := NewNullColumnChunk(n)
	reloaded.LoadRawBytes(raw)

	for i := 0; i < n; i++ {
		if got := reloaded.IsNull(i); got != nullSet[i] {
			t.Fatalf("pos %d: IsNull=%v, want %v", i, got, nullSet[i])
		}
	}
}

func TestStringColumnChunkOverflow(t *testing.T) {
	c := Create(common.Primitive(common.STRING), 3)
	sc := c.(*StringColumnChunk)
	sc.WriteString(0, "hello")
	sc.WriteNull(1)
	sc.WriteString(2, "world")

	if got := sc.GetString(0); got != "hello" {
		t.Errorf("pos 0: got %q", got)
	}
	if !sc.nullChunk.IsNull(1) {
		t.Errorf("pos 1 should be null")
	}
	if got := sc.GetString(2); got != "world" {
		t.Errorf("pos 2: got %q", got)
	}
}

func TestFixedListColumnChunk(t *testing.T) {
	ft := common.FixedList(common.Primitive(common.INT32), 3)
	c := Create(ft, 2)
	fc := c.(*FixedListColumnChunk)
	if err := fc.WriteFromString(0, "{1,2,3}", '{', '}'); err != nil {
		t.Fatalf("WriteFromString: %v", err)
	}
	if err := fc.WriteFromString(1, "{-1,0}", '{', '}'); err == nil {
		t.Fatalf("expected error for wrong element count")
	}
}

func TestFileTypeForExtension(t *testing.T) {
	cases := map[string]common.FileType{
		".csv":     common.FileTypeCSV,
		"csv":      common.FileTypeCSV,
		"parquet":  common.FileTypeParquet,
		"npy":      common.FileTypeNPY,
		"ttl":      common.FileTypeTurtle,
	}
	for ext, want := range cases {
		got, err := common.FileTypeForExtension(ext)
		if err != nil {
			t.Fatalf("FileTypeForExtension(%q): %v", ext, err)
		}
		if got != want {
			t.Errorf("FileTypeForExtension(%q) = %v, want %v", ext, got, want)
		}
	}
	if _, err := common.FileTypeForExtension("xyz"); err == nil {
		t.Errorf("expected error for unknown extension")
	}
}
