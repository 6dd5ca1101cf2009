package bloom

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestMightContainNoFalseNegatives(t *testing.T) {
	f := New(1000, 0.01)
	keys := make([]string, 0, 1000)
	for i := 0; i < 1000; i++ {
		k := fmt.Sprintf("key-%d", i)
		keys = append(keys, k)
		f.Add(k)
	}
	for _, k := range keys {
		if !f.MightContain(k) {
			t.Fatalf("false negative for %q", k)
		}
	}
}

// An empty filter has every bit clear, so MightContain must deterministically
// report false for anything - no possibility of a false positive yet.
func TestMightContainEmptyFilter(t *testing.T) {
	f := New(100, 0.01)
	if f.MightContain("never-added") {
		t.Error("empty filter reported MightContain true")
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	f := New(500, 0.01)
	f.Add("alice")
	f.Add("bob")

	data := f.Serialize()
	f2, err := Deserialize(data)
	if err != nil {
		t.Fatal(err)
	}
	if !f2.MightContain("alice") || !f2.MightContain("bob") {
		t.Error("deserialized filter lost a key")
	}
	if f2.Count() != f.Count() {
		t.Errorf("Count() = %d, want %d", f2.Count(), f.Count())
	}
}

func TestSaveLoad(t *testing.T) {
	f := New(100, 0.01)
	f.Add("duplicate-pk-1")

	path := filepath.Join(t.TempDir(), "filter.bloom")
	if err := f.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.MightContain("duplicate-pk-1") {
		t.Error("loaded filter lost its key")
	}
}

func TestLoadMmap(t *testing.T) {
	f := New(100, 0.01)
	f.Add("mmap-key")
	path := filepath.Join(t.TempDir(), "filter.bloom")
	if err := f.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, cleanup, err := LoadMmap(path)
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	if !loaded.MightContain("mmap-key") {
		t.Error("mmap-loaded filter lost its key")
	}
}
