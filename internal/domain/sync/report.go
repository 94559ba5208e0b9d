package sync

import (
	"fmt"
	"strings"
)

// Report-group names used across the engine
const (
	GroupCreatedProducts = "created_products"
	GroupCreatedVariants = "created_variants"
	GroupUpdated         = "updated"
	GroupDuplicates      = "duplicates"
	GroupUnsynchronized  = "unsynchronized"
	GroupRefNotFound     = "reference_not_found"
	GroupOrders          = "orders"
	GroupErrors          = "errors"
)

type reportGroup struct {
	displayName string
	entries     []string
}

// Report aggregates run results into ordered named groups for the
// end-of-run summary. Per-item failures land here in addition to the log so
// an operator gets one consolidated view.
//
// Report is not safe for concurrent use; the engine is single-threaded.
type Report struct {
	order  []string
	groups map[string]*reportGroup
}

// NewReport creates a report with the standard groups registered
func NewReport() *Report {
	r := &Report{groups: make(map[string]*reportGroup)}
	r.AddGroup(GroupCreatedProducts, "New products created")
	r.AddGroup(GroupCreatedVariants, "New variants created")
	r.AddGroup(GroupUpdated, "Items updated")
	r.AddGroup(GroupDuplicates, "Duplicate links")
	r.AddGroup(GroupUnsynchronized, "Unsynchronized storefront items")
	r.AddGroup(GroupRefNotFound, "References not found")
	r.AddGroup(GroupOrders, "Orders ingested")
	r.AddGroup(GroupErrors, "Errors")
	return r
}

// AddGroup registers a group. Registering an existing group is a no-op.
func (r *Report) AddGroup(name, displayName string) {
	if _, ok := r.groups[name]; ok {
		return
	}
	r.groups[name] = &reportGroup{displayName: displayName}
	r.order = append(r.order, name)
}

// Append adds one entry to the named group. Unknown groups are registered
// on the fly with the name as display name.
func (r *Report) Append(name, format string, args ...any) {
	group, ok := r.groups[name]
	if !ok {
		r.AddGroup(name, name)
		group = r.groups[name]
	}
	group.entries = append(group.entries, fmt.Sprintf(format, args...))
}

// Entries returns the entries of the named group
func (r *Report) Entries(name string) []string {
	if group, ok := r.groups[name]; ok {
		return group.entries
	}
	return nil
}

// String renders the non-empty groups in registration order
func (r *Report) String() string {
	var b strings.Builder
	for _, name := range r.order {
		group := r.groups[name]
		if len(group.entries) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s:\n", group.displayName)
		for _, entry := range group.entries {
			fmt.Fprintf(&b, "\t%s\n", strings.ReplaceAll(entry, "\n", "\n\t\t"))
		}
	}
	return b.String()
}
