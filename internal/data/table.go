package data

import "fmt"

// Table is an ordered sequence of named values. Dictionary tables use
// unique names; array tables use empty names and rely on position.
type Table struct {
	props PropertyList
}

// NewTableOf builds a table from the given properties. The table takes
// ownership of the values.
func NewTableOf(props ...Property) *Table {
	return &Table{props: append(PropertyList(nil), props...)}
}

func (t *Table) Size() int                { return t.props.Size() }
func (t *Table) NameAt(i int) string      { return t.props.NameAt(i) }
func (t *Table) At(i int) *Value          { return t.props.At(i) }
func (t *Table) Lookup(name string) *Value { return t.props.Lookup(name) }
func (t *Table) IndexOf(name string) int  { return t.props.IndexOf(name) }
func (t *Table) PropertyNames() []string  { return t.props.PropertyNames() }

// Properties returns the entries in order. The slice is a copy; the values are not.
func (t *Table) Properties() []Property {
	return append([]Property(nil), t.props...)
}

// Get returns the i-th value or ErrOutOfRange.
func (t *Table) Get(i int) (*Value, error) {
	if i < 0 || i >= len(t.props) {
		return nil, outOfRange(i, len(t.props))
	}
	return t.props[i].Value, nil
}

// AddProperty inserts value under name before position indexBefore. An
// indexBefore of -1 appends. Non-empty names must be unique.
func (t *Table) AddProperty(name string, value *Value, indexBefore int) (*Value, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: nil value for %q", ErrTypeMismatch, name)
	}
	if name != "" && t.props.IndexOf(name) >= 0 {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	if indexBefore == -1 {
		indexBefore = len(t.props)
	}
	if indexBefore < 0 || indexBefore > len(t.props) {
		return nil, outOfRange(indexBefore, len(t.props))
	}
	t.props = append(t.props, Property{})
	copy(t.props[indexBefore+1:], t.props[indexBefore:])
	t.props[indexBefore] = Property{Name: name, Value: value}
	return value, nil
}

// AddKind appends a default-constructed value of kind k.
func (t *Table) AddKind(name string, k Kind, indexBefore int) (*Value, error) {
	v, err := NewDefault(k)
	if err != nil {
		return nil, err
	}
	return t.AddProperty(name, v, indexBefore)
}

// RemoveProperty removes the i-th entry.
func (t *Table) RemoveProperty(i int) error {
	if i < 0 || i >= len(t.props) {
		return outOfRange(i, len(t.props))
	}
	t.props = append(t.props[:i], t.props[i+1:]...)
	return nil
}

// RemoveNamed removes the entry called name.
func (t *Table) RemoveNamed(name string) error {
	i := t.props.IndexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: no property %q", ErrOutOfRange, name)
	}
	return t.RemoveProperty(i)
}

// RenameProperty changes the name of an entry in place.
func (t *Table) RenameProperty(oldName, newName string) error {
	i := t.props.IndexOf(oldName)
	if i < 0 {
		return fmt.Errorf("%w: no property %q", ErrOutOfRange, oldName)
	}
	if newName == oldName {
		return nil
	}
	if newName != "" && t.props.IndexOf(newName) >= 0 {
		return fmt.Errorf("%w: %q", ErrDuplicateName, newName)
	}
	t.props[i].Name = newName
	return nil
}

// ReplaceProperty swaps the value stored at position i, keeping its name,
// and returns the previous value.
func (t *Table) ReplaceProperty(i int, value *Value) (*Value, error) {
	if i < 0 || i >= len(t.props) {
		return nil, outOfRange(i, len(t.props))
	}
	if value == nil {
		return nil, fmt.Errorf("%w: nil replacement at %d", ErrTypeMismatch, i)
	}
	old := t.props[i].Value
	t.props[i].Value = value
	return old, nil
}

// SwapProperties exchanges two entries.
func (t *Table) SwapProperties(i, j int) error {
	if i < 0 || i >= len(t.props) {
		return outOfRange(i, len(t.props))
	}
	if j < 0 || j >= len(t.props) {
		return outOfRange(j, len(t.props))
	}
	t.props[i], t.props[j] = t.props[j], t.props[i]
	return nil
}

// Clear removes all entries.
func (t *Table) Clear() { t.props = nil }

// Resize grows or shrinks an array table to n entries. New entries are
// clones of proto; every existing entry must have the same type as proto.
func (t *Table) Resize(n int, proto *Value) error {
	if n < 0 {
		return outOfRange(n, len(t.props))
	}
	for i := range t.props {
		if t.props[i].Value.TypeName() != proto.TypeName() {
			return fmt.Errorf("%w: entry %d is %s, resize element is %s",
				ErrTypeMismatch, i, t.props[i].Value.TypeName(), proto.TypeName())
		}
	}
	if n <= len(t.props) {
		t.props = t.props[:n]
		return nil
	}
	for len(t.props) < n {
		t.props = append(t.props, Property{Value: proto.Clone(nil)})
	}
	return nil
}

// Clone deep-copies the table, translating references through tr.
func (t *Table) Clone(tr Translator) *Table {
	if t == nil {
		return &Table{}
	}
	return &Table{props: t.props.Clone(tr)}
}

// Compare reports structural equality after translating references through tr.
func (t *Table) Compare(other *Table, tr Translator) bool {
	if t == nil || other == nil {
		return t.len() == 0 && other.len() == 0
	}
	return t.props.Compare(other.props, tr)
}

func (t *Table) len() int {
	if t == nil {
		return 0
	}
	return len(t.props)
}

// Equal is Compare with the identity translator.
func (t *Table) Equal(other *Table) bool { return t.Compare(other, nil) }

// Scalar is the set of Go types that map onto scalar value kinds.
type Scalar interface {
	bool | int32 | int64 | float64 | string
}

// NewScalar wraps x in a value of the matching kind.
func NewScalar[T Scalar](x T) *Value {
	switch x := any(x).(type) {
	case bool:
		return NewBool(x)
	case int32:
		return NewInt(x)
	case int64:
		return NewInt64(x)
	case float64:
		return NewDouble(x)
	case string:
		return NewString(x)
	}
	panic("unreachable")
}

// ScalarOf reads v as T.
func ScalarOf[T Scalar](v *Value) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *bool:
		b, err := v.AsBool()
		*p = b
		return out, err
	case *int32:
		i, err := v.AsInt()
		*p = i
		return out, err
	case *int64:
		i, err := v.AsInt64()
		*p = i
		return out, err
	case *float64:
		d, err := v.AsDouble()
		*p = d
		return out, err
	case *string:
		s, err := v.AsString()
		*p = s
		return out, err
	}
	return out, ErrTypeMismatch
}

// Set replaces the content of t with unnamed entries holding values.
func Set[T Scalar](t *Table, values []T) {
	t.props = make(PropertyList, len(values))
	for i, x := range values {
		t.props[i] = Property{Value: NewScalar(x)}
	}
}

// AsSlice reads a homogeneous array table as a slice of T.
func AsSlice[T Scalar](t *Table) ([]T, error) {
	out := make([]T, 0, t.Size())
	for i := range t.props {
		x, err := ScalarOf[T](t.props[i].Value)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, x)
	}
	return out, nil
}

// CompareSlice reports whether t holds exactly values, in order.
func CompareSlice[T Scalar](t *Table, values []T) bool {
	got, err := AsSlice[T](t)
	if err != nil || len(got) != len(values) {
		return false
	}
	for i := range got {
		if got[i] != values[i] {
			return false
		}
	}
	return true
}
