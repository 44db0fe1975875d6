package core

import (
	"fmt"
	"strings"
)

// PropertyDescriptor names a property by object and name path. Unlike a
// Handle it may describe a property that does not exist (yet).
type PropertyDescriptor struct {
	Object *Object
	Names  []string
}

// Describe builds a descriptor from a dotted path such as "translation.x".
func Describe(obj *Object, path string) PropertyDescriptor {
	var names []string
	if path != "" {
		names = strings.Split(path, ".")
	}
	return PropertyDescriptor{Object: obj, Names: names}
}

// Resolve returns the handle of the described property, if it exists.
func (d PropertyDescriptor) Resolve() (Handle, bool) {
	if d.Object == nil {
		return Handle{}, false
	}
	h := PropertyHandle(d.Object, d.Names...)
	return h, h.IsValid() && !h.IsObject()
}

// Equal compares object identity and the name path.
func (d PropertyDescriptor) Equal(other PropertyDescriptor) bool {
	return d.Object == other.Object && namesEqual(d.Names, other.Names)
}

// Contains reports whether other is d or lies below d.
func (d PropertyDescriptor) Contains(other PropertyDescriptor) bool {
	if d.Object != other.Object || len(other.Names) < len(d.Names) {
		return false
	}
	return namesEqual(d.Names, other.Names[:len(d.Names)])
}

// Path returns the dotted name path.
func (d PropertyDescriptor) Path() string { return strings.Join(d.Names, ".") }

// Key identifies the descriptor by object ID and path.
func (d PropertyDescriptor) Key() string {
	if d.Object == nil {
		return "\x00" + d.Path()
	}
	return d.Object.ObjectID() + "\x00" + d.Path()
}

func (d PropertyDescriptor) String() string {
	if d.Object == nil {
		return "<nil>." + d.Path()
	}
	return d.Object.Name() + "." + d.Path()
}

func namesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Link is a directed edge from a start property to an end property. Links
// are compared by value: two links are the same link when their endpoints
// match, whatever their flags.
type Link struct {
	Start PropertyDescriptor
	End   PropertyDescriptor
	Valid bool
	Weak  bool
}

// SameEndpoints reports whether l and other connect the same properties of
// the same objects.
func (l Link) SameEndpoints(other Link) bool {
	return l.Start.Equal(other.Start) && l.End.Equal(other.End)
}

// SameEndpointsByID compares endpoints by object ID, for links that live in
// different projects.
func (l Link) SameEndpointsByID(other Link) bool {
	return l.Start.Key() == other.Start.Key() && l.End.Key() == other.End.Key()
}

// Key identifies the link by object IDs and paths.
func (l Link) Key() string { return l.Start.Key() + "\x01" + l.End.Key() }

func (l Link) String() string {
	flags := ""
	if l.Weak {
		flags += " weak"
	}
	if !l.Valid {
		flags += " invalid"
	}
	return fmt.Sprintf("%s -> %s%s", l.Start, l.End, flags)
}

// CloneLinkWithTranslation rewrites both endpoints through tr. It fails
// when either endpoint has no counterpart.
func CloneLinkWithTranslation(l Link, tr func(*Object) *Object) (Link, bool) {
	start, end := tr(l.Start.Object), tr(l.End.Object)
	if start == nil || end == nil {
		return Link{}, false
	}
	return Link{
		Start: PropertyDescriptor{Object: start, Names: append([]string(nil), l.Start.Names...)},
		End:   PropertyDescriptor{Object: end, Names: append([]string(nil), l.End.Names...)},
		Valid: l.Valid,
		Weak:  l.Weak,
	}, true
}
