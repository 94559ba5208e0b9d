package shared

// NamedRef identifies a remote ERP entity by its opaque stable reference
// together with its display name. The reference is what goes on the wire;
// the name is what mappings in the configuration are keyed by.
type NamedRef struct {
	ID   string
	Ref  string
	Name string
}

// IsZero reports whether the reference is unset
func (r NamedRef) IsZero() bool {
	return r.Ref == ""
}
