package cards

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by a Catalog when no definition exists for an id.
var ErrNotFound = errors.New("card not found")

// Catalog resolves card identifiers to their immutable definitions.
type Catalog interface {
	Lookup(id string) (CardDefinition, error)
}

// StaticCatalog is an in-memory Catalog backed by a fixed definition set.
// Safe for concurrent use; definitions are never mutated after construction.
type StaticCatalog struct {
	mu   sync.RWMutex
	defs map[string]CardDefinition
}

// NewStaticCatalog builds a catalog from the given definitions, validating
// each one. Duplicate ids are rejected.
func NewStaticCatalog(defs ...CardDefinition) (*StaticCatalog, error) {
	c := &StaticCatalog{defs: make(map[string]CardDefinition, len(defs))}
	for _, def := range defs {
		if err := c.add(def); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *StaticCatalog) add(def CardDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := c.defs[def.ID]; exists {
		return fmt.Errorf("duplicate card id %s", def.ID)
	}
	c.defs[def.ID] = def
	return nil
}

// Lookup returns the definition for the given id.
func (c *StaticCatalog) Lookup(id string) (CardDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[id]
	if !ok {
		return CardDefinition{}, fmt.Errorf("lookup %q: %w", id, ErrNotFound)
	}
	return def, nil
}

// Size returns the number of definitions in the catalog.
func (c *StaticCatalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}

// IDs returns all card ids in the catalog, sorted.
func (c *StaticCatalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.defs))
	for id := range c.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// catalogFile is the on-disk YAML layout of a card set.
type catalogFile struct {
	Set   string           `yaml:"set"`
	Cards []CardDefinition `yaml:"cards"`
}

// LoadCatalog reads card definitions from a YAML file and returns a validated
// catalog.
func LoadCatalog(path string) (*StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	catalog, err := NewStaticCatalog(file.Cards...)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return catalog, nil
}
