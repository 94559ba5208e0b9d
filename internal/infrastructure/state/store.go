package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// saveFile is the on-disk shape of the local state
type saveFile struct {
	AssortmentBlacklist    []string `json:"assortment_blacklist"`
	ProductFolderBlacklist []string `json:"productfolder_blacklist"`
}

// Store holds the operator-maintained blacklists that exclude ERP items and
// categories from storefront creation. A missing file means empty sets;
// mutation happens only through explicit CLI commands, never during a sync
// run.
type Store struct {
	path       string
	items      map[string]struct{}
	categories map[string]struct{}
}

// Open loads the store from the given path. A missing file yields an empty
// store; a corrupt file is an error.
func Open(path string) (*Store, error) {
	s := &Store{
		path:       path,
		items:      make(map[string]struct{}),
		categories: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read save file: %w", err)
	}

	var file saveFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse save file %s: %w", path, err)
	}
	for _, ref := range file.AssortmentBlacklist {
		s.items[ref] = struct{}{}
	}
	for _, ref := range file.ProductFolderBlacklist {
		s.categories[ref] = struct{}{}
	}
	return s, nil
}

// ContainsItem reports whether the item ref is blacklisted
func (s *Store) ContainsItem(ref string) bool {
	_, ok := s.items[ref]
	return ok
}

// ContainsCategory reports whether the category ref is blacklisted
func (s *Store) ContainsCategory(ref string) bool {
	_, ok := s.categories[ref]
	return ok
}

// AddItem blacklists an item ref. Adding an existing ref is a no-op.
func (s *Store) AddItem(ref string) {
	s.items[ref] = struct{}{}
}

// AddCategory blacklists a category ref. Adding an existing ref is a no-op.
func (s *Store) AddCategory(ref string) {
	s.categories[ref] = struct{}{}
}

// Items returns the blacklisted item refs, sorted
func (s *Store) Items() []string {
	return sortedKeys(s.items)
}

// Categories returns the blacklisted category refs, sorted
func (s *Store) Categories() []string {
	return sortedKeys(s.categories)
}

// Save writes the store to disk atomically via a temp file and rename, so a
// crash mid-write never leaves a truncated save file behind.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(saveFile{
		AssortmentBlacklist:    s.Items(),
		ProductFolderBlacklist: s.Categories(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode save file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".saves-*.json")
	if err != nil {
		return fmt.Errorf("create temp save file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close save file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace save file: %w", err)
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
