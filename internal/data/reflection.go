package data

import "reflect"

// Property is one named slot of a Table, a Struct or an object.
type Property struct {
	Name  string
	Value *Value
}

// Reflection is the capability shared by everything that exposes an ordered
// list of named values: tables, structs and objects.
type Reflection interface {
	// Size returns the number of properties.
	Size() int

	// NameAt returns the name of the i-th property, or "" when i is out of range.
	NameAt(i int) string

	// At returns the i-th value, or nil when i is out of range.
	At(i int) *Value

	// Lookup returns the value named name, or nil when absent.
	Lookup(name string) *Value

	// IndexOf returns the position of name, or -1 when absent.
	IndexOf(name string) int

	// PropertyNames returns the property names in order.
	PropertyNames() []string
}

// PropertyList is an ordered list of properties. Name lookup is a linear scan;
// property counts are small.
type PropertyList []Property

func (l PropertyList) Size() int { return len(l) }

func (l PropertyList) NameAt(i int) string {
	if i < 0 || i >= len(l) {
		return ""
	}
	return l[i].Name
}

func (l PropertyList) At(i int) *Value {
	if i < 0 || i >= len(l) {
		return nil
	}
	return l[i].Value
}

func (l PropertyList) Lookup(name string) *Value {
	if i := l.IndexOf(name); i >= 0 {
		return l[i].Value
	}
	return nil
}

func (l PropertyList) IndexOf(name string) int {
	for i := range l {
		if l[i].Name == name {
			return i
		}
	}
	return -1
}

func (l PropertyList) PropertyNames() []string {
	names := make([]string, len(l))
	for i := range l {
		names[i] = l[i].Name
	}
	return names
}

// Clone deep-copies the list, translating references through tr.
func (l PropertyList) Clone(tr Translator) PropertyList {
	if l == nil {
		return nil
	}
	out := make(PropertyList, len(l))
	for i := range l {
		out[i] = Property{Name: l[i].Name, Value: l[i].Value.Clone(tr)}
	}
	return out
}

// Compare reports whether both lists hold the same names and values in the same order.
func (l PropertyList) Compare(other PropertyList, tr Translator) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i].Name != other[i].Name || !l[i].Value.Compare(other[i].Value, tr) {
			return false
		}
	}
	return true
}

// Referent is anything a Ref value can point at.
type Referent interface {
	ObjectID() string
	TypeName() string
	IsA(typeName string) bool
}

// Translator rewrites a reference target into another object set. A nil
// Translator leaves targets unchanged.
type Translator func(Referent) Referent

func (tr Translator) apply(r Referent) Referent {
	if IsNilReferent(r) {
		return nil
	}
	if tr == nil {
		return r
	}
	out := tr(r)
	if IsNilReferent(out) {
		return nil
	}
	return out
}

// IsNilReferent reports whether r is nil or an interface wrapping a nil pointer.
func IsNilReferent(r Referent) bool {
	if r == nil {
		return true
	}
	rv := reflect.ValueOf(r)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// SameReferent compares two reference targets by identity.
func SameReferent(a, b Referent) bool {
	an, bn := IsNilReferent(a), IsNilReferent(b)
	if an || bn {
		return an == bn
	}
	return a == b
}
