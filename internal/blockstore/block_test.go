package blockstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestBlockWriterReaderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spill.bin")

	w, err := CreateBlockWriter(path)
	if err != nil {
		t.Fatal(err)
	}

	blocks := map[int][]byte{
		2: bytes.Repeat([]byte("gamma"), 100),
		0: bytes.Repeat([]byte("alpha"), 100),
		1: bytes.Repeat([]byte("beta"), 100),
	}
	for idx, data := range blocks {
		if err := w.WriteBlock(idx, data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := OpenBlockReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	indexes := r.BlockIndexes()
	if len(indexes) != 3 {
		t.Fatalf("got %d indexes, want 3", len(indexes))
	}
	for i := 1; i < len(indexes); i++ {
		if indexes[i-1] > indexes[i] {
			t.Fatalf("BlockIndexes not ascending: %v", indexes)
		}
	}

	for idx, want := range blocks {
		got, err := r.ReadBlock(idx)
		if err != nil {
			t.Fatalf("ReadBlock(%d): %v", idx, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("block %d round trip mismatch", idx)
		}
	}
}

func TestBlockReaderRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notaspill.bin")
	if err := os.WriteFile(path, []byte("not a spill file, much too short or wrong"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenBlockReader(path); err == nil {
		t.Fatal("expected error opening a non-spill file")
	}
}

func TestCacheEvictsByByteBudget(t *testing.T) {
	c := NewCache(10)
	c.Put(0, bytes.Repeat([]byte("x"), 6))
	c.Put(1, bytes.Repeat([]byte("y"), 6))

	if _, ok := c.Get(0); ok {
		t.Error("block 0 should have been evicted once block 1 pushed over budget")
	}
	if _, ok := c.Get(1); !ok {
		t.Error("block 1 should still be cached")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCacheKeepsAtLeastOneEntry(t *testing.T) {
	c := NewCache(1)
	c.Put(0, bytes.Repeat([]byte("z"), 100))
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 (never evict down to zero)", c.Len())
	}
}
