package local

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
)

type entry struct {
	Name string         `json:"name"`
	Ml   int            `json:"ml"`
	Tags []string       `json:"tags,omitempty"`
	Days map[string]int `json:"days,omitempty"`
}

func newCollection(t *testing.T) (*Collection[entry], *Dir) {
	t.Helper()
	d, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return NewCollection[entry](d, "hydration"), d
}

func TestOpen_CreatesNestedRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data", "replica")
	d, err := Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d.Root() != root {
		t.Errorf("Root() = %q, want %q", d.Root(), root)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
}

func TestCollection_PutGet(t *testing.T) {
	c, _ := newCollection(t)

	in := entry{
		Name: "2025-03-14",
		Ml:   750,
		Tags: []string{"morning", "gym"},
		Days: map[string]int{"2025-03-13": 2000},
	}
	if err := c.Put("today", in); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := c.Get("today")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != in.Name || got.Ml != in.Ml {
		t.Errorf("Get() = %+v, want %+v", got, in)
	}
	if !slices.Equal(got.Tags, in.Tags) || got.Days["2025-03-13"] != 2000 {
		t.Errorf("nested fields lost: %+v", got)
	}
}

func TestCollection_PutOverwrites(t *testing.T) {
	c, _ := newCollection(t)

	for _, ml := range []int{250, 500, 1250} {
		if err := c.Put("today", entry{Ml: ml}); err != nil {
			t.Fatalf("Put(%d) error = %v", ml, err)
		}
	}
	got, err := c.Get("today")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Ml != 1250 {
		t.Errorf("Ml = %d, want 1250", got.Ml)
	}
}

func TestCollection_GetMissing(t *testing.T) {
	c, _ := newCollection(t)
	if _, err := c.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestCollection_GetCorrupt(t *testing.T) {
	c, _ := newCollection(t)

	path := c.File("broken")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(`{"ml": "lots"`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := c.Get("broken")
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("Get() error = %v, want ErrCorrupt", err)
	}
}

func TestCollection_BadKeys(t *testing.T) {
	c, _ := newCollection(t)
	for _, key := range []string{"", ".", "..", "../escape", `a\b`, "x/y"} {
		if err := c.Put(key, entry{}); !errors.Is(err, ErrBadKey) {
			t.Errorf("Put(%q) error = %v, want ErrBadKey", key, err)
		}
		if _, err := c.Get(key); !errors.Is(err, ErrBadKey) {
			t.Errorf("Get(%q) error = %v, want ErrBadKey", key, err)
		}
	}
}

func TestCollection_Remove(t *testing.T) {
	c, _ := newCollection(t)

	if err := c.Put("gone", entry{Ml: 1}); err != nil {
		t.Fatal(err)
	}
	if err := c.Remove("gone"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := c.Get("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Remove error = %v", err)
	}
	if err := c.Remove("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
}

func TestCollection_Keys(t *testing.T) {
	c, d := newCollection(t)

	keys, err := c.Keys()
	if err != nil || len(keys) != 0 {
		t.Fatalf("Keys() on empty = %v, %v", keys, err)
	}

	for _, k := range []string{"c", "a", "b"} {
		if err := c.Put(k, entry{}); err != nil {
			t.Fatal(err)
		}
	}
	// stray files the store did not write
	folder := filepath.Join(d.Root(), "hydration")
	os.WriteFile(filepath.Join(folder, "notes.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(folder, ".pending-123"), []byte("x"), 0644)
	os.Mkdir(filepath.Join(folder, "sub.json"), 0755)

	keys, err = c.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if !slices.Equal(keys, []string{"a", "b", "c"}) {
		t.Errorf("Keys() = %v, want [a b c]", keys)
	}
}

func TestCollection_SeparateNamespaces(t *testing.T) {
	c, d := newCollection(t)
	other := NewCollection[entry](d, "sleep")

	if err := c.Put("shared", entry{Ml: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := other.Get("shared"); !errors.Is(err, ErrNotFound) {
		t.Errorf("other collection saw key: %v", err)
	}
}

func TestCollection_PutLeavesNoTempFiles(t *testing.T) {
	c, d := newCollection(t)

	for i := range 5 {
		if err := c.Put("today", entry{Ml: i}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(d.Root(), "hydration"))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".pending-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("got %d files, want 1", len(entries))
	}
}

func TestCollection_ConcurrentWriters(t *testing.T) {
	c, _ := newCollection(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("day-%02d", i%7)
			if err := c.Put(key, entry{Ml: i}); err != nil {
				t.Errorf("Put(%s) error = %v", key, err)
			}
			if _, err := c.Get(key); err != nil {
				t.Errorf("Get(%s) error = %v", key, err)
			}
		}()
	}
	wg.Wait()

	keys, err := c.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 7 {
		t.Errorf("Keys() = %v, want 7 keys", keys)
	}
}
