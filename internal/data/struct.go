package data

import (
	"fmt"
	"strings"
)

// Struct is a fixed, named set of member values. Unlike Table, its member
// list never changes after construction.
type Struct struct {
	typeName string
	props    PropertyList
}

// NewStructOf builds a struct of the given type from its members.
func NewStructOf(typeName string, members ...Property) *Struct {
	return &Struct{typeName: typeName, props: append(PropertyList(nil), members...)}
}

// TypeName returns the registered struct type name, for example "Vec3f".
func (s *Struct) TypeName() string { return s.typeName }

func (s *Struct) Size() int                 { return s.props.Size() }
func (s *Struct) NameAt(i int) string       { return s.props.NameAt(i) }
func (s *Struct) At(i int) *Value           { return s.props.At(i) }
func (s *Struct) Lookup(name string) *Value { return s.props.Lookup(name) }
func (s *Struct) IndexOf(name string) int   { return s.props.IndexOf(name) }
func (s *Struct) PropertyNames() []string   { return s.props.PropertyNames() }

// Clone deep-copies the struct, translating references through tr.
func (s *Struct) Clone(tr Translator) *Struct {
	return &Struct{typeName: s.typeName, props: s.props.Clone(tr)}
}

// Compare reports member-wise equality of two structs of the same type.
func (s *Struct) Compare(other *Struct, tr Translator) bool {
	if other == nil || s.typeName != other.typeName {
		return false
	}
	return s.props.Compare(other.props, tr)
}

// checkAssign reports whether every member of other can be assigned to s,
// without writing anything.
func (s *Struct) checkAssign(other *Struct) error {
	if other == nil || other.typeName != s.typeName || len(other.props) != len(s.props) {
		got := "nil"
		if other != nil {
			got = other.typeName
		}
		return fmt.Errorf("%w: cannot assign %s to %s", ErrTypeMismatch, got, s.typeName)
	}
	for i := range s.props {
		if err := s.props[i].Value.checkAssign(other.props[i].Value); err != nil {
			return fmt.Errorf("member %s: %w", s.props[i].Name, err)
		}
	}
	return nil
}

// assign copies every member of other. Nothing is written unless all
// members are assignable.
func (s *Struct) assign(other *Struct) (bool, error) {
	if err := s.checkAssign(other); err != nil {
		return false, err
	}
	changed := false
	for i := range s.props {
		c, err := s.props[i].Value.Assign(other.props[i].Value, false)
		if err != nil {
			return false, fmt.Errorf("member %s: %w", s.props[i].Name, err)
		}
		changed = changed || c
	}
	return changed, nil
}

func (s *Struct) String() string {
	parts := make([]string, len(s.props))
	for i := range s.props {
		parts[i] = s.props[i].Name + "=" + s.props[i].Value.String()
	}
	return s.typeName + "{" + strings.Join(parts, ", ") + "}"
}
