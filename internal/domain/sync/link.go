package sync

import "sort"

// ErpRefMetaKey is the storefront metadata key carrying the ERP reference
// of a linked entity.
const ErpRefMetaKey = "wooms_ref"

// Link associates one storefront entity with one ERP entity. The engine
// creates links when a storefront entity is first tied to an ERP entity and
// never deletes them on its own; detaching is an explicit operator action.
type Link struct {
	// ErpRef is the opaque stable reference of the ERP entity
	ErpRef string
	// StorefrontID is the storefront entity identifier
	StorefrontID int64
}

// DuplicateGroup is one detected violation of the at-most-one link
// invariant. Exactly one of the two sides describes the shared key.
type DuplicateGroup struct {
	// ErpRef is set when several storefront entities consume one ERP
	// reference
	ErpRef string
	// StorefrontID is set when several ERP entities claim one storefront
	// entity
	StorefrontID int64
	// StorefrontIDs are the competing storefront consumers (ErpRef form)
	StorefrontIDs []int64
	// ErpRefs are the competing ERP claimants (StorefrontID form)
	ErpRefs []string
}

// LinkSet is the per-run view of all external-reference links, derived by
// scanning every storefront entity's metadata once at startup. Duplicate
// links are a detectable, reportable error state - the set tolerates them
// and surfaces them through Duplicates, it never drops or merges entries.
//
// LinkSet is not safe for concurrent use; the engine is single-threaded.
type LinkSet struct {
	byRef map[string][]int64
	byID  map[int64][]string
}

// NewLinkSet creates an empty link set
func NewLinkSet() *LinkSet {
	return &LinkSet{
		byRef: make(map[string][]int64),
		byID:  make(map[int64][]string),
	}
}

// Add records one observed link
func (s *LinkSet) Add(erpRef string, storefrontID int64) {
	s.byRef[erpRef] = append(s.byRef[erpRef], storefrontID)
	s.byID[storefrontID] = append(s.byID[storefrontID], erpRef)
}

// Len returns the number of distinct ERP references in the set
func (s *LinkSet) Len() int {
	return len(s.byRef)
}

// Contains reports whether the ERP reference has at least one storefront
// consumer.
func (s *LinkSet) Contains(erpRef string) bool {
	return len(s.byRef[erpRef]) > 0
}

// Resolve returns the storefront id linked to the ERP reference. The second
// return is false when the reference is unlinked or duplicated; ambiguous
// links never resolve silently.
func (s *LinkSet) Resolve(erpRef string) (int64, bool) {
	ids := s.byRef[erpRef]
	if len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}

// Refs returns all ERP references in the set, sorted for deterministic
// iteration.
func (s *LinkSet) Refs() []string {
	refs := make([]string, 0, len(s.byRef))
	for ref := range s.byRef {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Duplicates returns every violated at-most-one invariant: ERP references
// with more than one storefront consumer and storefront ids claimed by more
// than one ERP entity. A pure read-only diagnostic.
func (s *LinkSet) Duplicates() []DuplicateGroup {
	var groups []DuplicateGroup
	for _, ref := range s.Refs() {
		if ids := s.byRef[ref]; len(ids) > 1 {
			sorted := append([]int64(nil), ids...)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
			groups = append(groups, DuplicateGroup{ErpRef: ref, StorefrontIDs: sorted})
		}
	}

	ids := make([]int64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if refs := s.byID[id]; len(refs) > 1 {
			sorted := append([]string(nil), refs...)
			sort.Strings(sorted)
			groups = append(groups, DuplicateGroup{StorefrontID: id, ErpRefs: sorted})
		}
	}
	return groups
}
