package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

const ext = ".json"

// Dir is a directory of JSON collections. One Dir serializes writers
// across all of its collections.
type Dir struct {
	root string
	mu   sync.RWMutex
}

// Open creates root if needed.
func Open(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &Dir{root: root}, nil
}

// Root returns the directory backing d.
func (d *Dir) Root() string { return d.root }

// Collection holds documents of type T under root/name/<key>.json.
type Collection[T any] struct {
	dir  *Dir
	name string
}

// NewCollection binds a typed collection to d.
func NewCollection[T any](d *Dir, name string) *Collection[T] {
	return &Collection[T]{dir: d, name: name}
}

// File returns the path a key is stored at.
func (c *Collection[T]) File(key string) string {
	return filepath.Join(c.dir.root, c.name, key+ext)
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	return nil
}

// Get decodes the document under key.
func (c *Collection[T]) Get(key string) (T, error) {
	var doc T
	if err := checkKey(key); err != nil {
		return doc, err
	}

	c.dir.mu.RLock()
	data, err := os.ReadFile(c.File(key))
	c.dir.mu.RUnlock()

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return doc, ErrNotFound
	case err != nil:
		return doc, fmt.Errorf("read %s/%s: %w", c.name, key, err)
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("%w: %s/%s: %v", ErrCorrupt, c.name, key, err)
	}
	return doc, nil
}

// Put replaces the document under key. The new content is written to a
// sibling temp file and renamed into place.
func (c *Collection[T]) Put(key string, doc T) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", c.name, key, err)
	}
	data = append(data, '\n')

	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	folder := filepath.Join(c.dir.root, c.name)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return fmt.Errorf("create collection %s: %w", c.name, err)
	}
	return writeAtomic(folder, c.File(key), data)
}

func writeAtomic(folder, target string, data []byte) (err error) {
	tmp, err := os.CreateTemp(folder, ".pending-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// Remove deletes the document under key.
func (c *Collection[T]) Remove(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	c.dir.mu.Lock()
	defer c.dir.mu.Unlock()

	err := os.Remove(c.File(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("remove %s/%s: %w", c.name, key, err)
	}
	return nil
}

// Keys lists stored keys in lexical order. Temp files are skipped.
func (c *Collection[T]) Keys() ([]string, error) {
	c.dir.mu.RLock()
	defer c.dir.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(c.dir.root, c.name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}

	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if key, ok := strings.CutSuffix(name, ext); ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
