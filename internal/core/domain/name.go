package domain

import "unique"

// Name is the identity of a dependency.
// It wraps a unique.Handle[string], so two names built from equal strings compare equal
// with ==, and can be used directly as map keys.
type Name struct {
	h unique.Handle[string]
}

// NewName interns s and returns its Name.
func NewName(s string) Name {
	return Name{h: unique.Make(s)}
}

// String returns the underlying string value.
func (n Name) String() string {
	var zero unique.Handle[string]
	if n.h == zero {
		return ""
	}
	return n.h.Value()
}

// IsZero reports whether n was never assigned.
func (n Name) IsZero() bool {
	var zero unique.Handle[string]
	return n.h == zero
}

// MarshalText implements encoding.TextMarshaler.
func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *Name) UnmarshalText(text []byte) error {
	n.h = unique.Make(string(text))
	return nil
}

// Names converts a list of strings to interned names, preserving order.
func Names(ss []string) []Name {
	out := make([]Name, len(ss))
	for i, s := range ss {
		out[i] = NewName(s)
	}
	return out
}
