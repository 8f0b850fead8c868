package pipeline

import (
	"errors"
	"fmt"
)

var ErrUnknownImage = errors.New("unknown image id")

type CatalogEntry struct {
	ID   int    `json:"id"`
	Path string `json:"path"`
}

// Catalog maps the 1-based image ids shown to users onto file paths.
type Catalog struct {
	paths []string
}

func NewCatalog(paths []string) *Catalog {
	return &Catalog{paths: append([]string(nil), paths...)}
}

func (c *Catalog) Len() int {
	return len(c.paths)
}

func (c *Catalog) Resolve(id int) (string, error) {
	if id < 1 || id > len(c.paths) {
		return "", fmt.Errorf("%w: %d (have 1..%d)", ErrUnknownImage, id, len(c.paths))
	}
	return c.paths[id-1], nil
}

func (c *Catalog) Entries() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(c.paths))
	for i, p := range c.paths {
		entries = append(entries, CatalogEntry{ID: i + 1, Path: p})
	}
	return entries
}
