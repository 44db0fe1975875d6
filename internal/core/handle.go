package core

import (
	"strconv"
	"strings"

	"github.com/ajitpratap0/scenecore/internal/data"
)

// Handle addresses a value inside an object by a path of property indices.
// A handle with an empty path addresses the object itself.
type Handle struct {
	obj  *Object
	path []int
}

// NewHandle returns the handle for the given index path inside obj.
func NewHandle(obj *Object, path ...int) Handle {
	return Handle{obj: obj, path: append([]int(nil), path...)}
}

// ObjectHandle returns the handle of obj itself.
func ObjectHandle(obj *Object) Handle { return Handle{obj: obj} }

// PropertyHandle resolves a dotted name path such as "translation.x".
// The result is invalid when any segment is missing.
func PropertyHandle(obj *Object, names ...string) Handle {
	h := ObjectHandle(obj)
	for _, n := range names {
		h = h.Get(n)
	}
	return h
}

// Object returns the root object of the handle.
func (h Handle) Object() *Object { return h.obj }

// Indices returns a copy of the index path.
func (h Handle) Indices() []int { return append([]int(nil), h.path...) }

// Depth returns the number of path segments.
func (h Handle) Depth() int { return len(h.path) }

// IsObject reports whether the handle addresses a whole object.
func (h Handle) IsObject() bool { return h.obj != nil && len(h.path) == 0 }

// IsRef reports whether the handle addresses a Ref value.
func (h Handle) IsRef() bool {
	v := h.Value()
	return v != nil && v.Kind() == data.KindRef
}

// IsValid reports whether the handle resolves.
func (h Handle) IsValid() bool {
	if h.obj == nil {
		return false
	}
	return len(h.path) == 0 || h.Value() != nil
}

// Value returns the addressed value, or nil for object handles and for
// paths that no longer resolve.
func (h Handle) Value() *data.Value {
	if h.obj == nil || len(h.path) == 0 {
		return nil
	}
	var r data.Reflection = h.obj
	var v *data.Value
	for _, i := range h.path {
		if r == nil {
			return nil
		}
		v = r.At(i)
		if v == nil {
			return nil
		}
		r = substructure(v)
	}
	return v
}

// Reflection returns the substructure addressed by the handle: the object
// itself, a Table or a Struct. It is nil for scalar and Ref values.
func (h Handle) Reflection() data.Reflection {
	if h.obj == nil {
		return nil
	}
	if len(h.path) == 0 {
		return h.obj
	}
	return substructure(h.Value())
}

func substructure(v *data.Value) data.Reflection {
	if v == nil || !v.Kind().HasSubstructure() {
		return nil
	}
	r, _ := v.Substructure()
	return r
}

// At returns the handle of the i-th property below h. The result is
// invalid when i is out of range.
func (h Handle) At(i int) Handle {
	r := h.Reflection()
	if r == nil || i < 0 || i >= r.Size() {
		return Handle{}
	}
	path := make([]int, len(h.path)+1)
	copy(path, h.path)
	path[len(h.path)] = i
	return Handle{obj: h.obj, path: path}
}

// Get returns the handle of the named property below h.
func (h Handle) Get(name string) Handle {
	r := h.Reflection()
	if r == nil {
		return Handle{}
	}
	return h.At(r.IndexOf(name))
}

// Parent returns the handle one level up. The parent of an object handle is invalid.
func (h Handle) Parent() Handle {
	if len(h.path) == 0 {
		return Handle{}
	}
	return Handle{obj: h.obj, path: h.path[:len(h.path)-1 : len(h.path)-1]}
}

// Index returns the last path segment, or -1 for object handles.
func (h Handle) Index() int {
	if len(h.path) == 0 {
		return -1
	}
	return h.path[len(h.path)-1]
}

// Contains reports whether other lies at or below h within the same object.
func (h Handle) Contains(other Handle) bool {
	if h.obj == nil || h.obj != other.obj || len(other.path) < len(h.path) {
		return false
	}
	for i := range h.path {
		if h.path[i] != other.path[i] {
			return false
		}
	}
	return true
}

// Equal reports whether both handles address the same slot.
func (h Handle) Equal(other Handle) bool {
	return h.obj == other.obj && len(h.path) == len(other.path) && h.Contains(other)
}

// Names returns the property names along the path.
func (h Handle) Names() []string {
	names := make([]string, 0, len(h.path))
	var r data.Reflection = h.obj
	for _, i := range h.path {
		if r == nil {
			break
		}
		names = append(names, r.NameAt(i))
		r = substructure(r.At(i))
	}
	return names
}

// Descriptor converts the handle into a name-based property descriptor.
func (h Handle) Descriptor() PropertyDescriptor {
	return PropertyDescriptor{Object: h.obj, Names: h.Names()}
}

// PathKey encodes the index path, for use as a map key within one object.
func (h Handle) PathKey() string {
	var b strings.Builder
	for i, idx := range h.path {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

// Key encodes the object ID and index path.
func (h Handle) Key() string {
	if h.obj == nil {
		return ""
	}
	return h.obj.ObjectID() + "#" + h.PathKey()
}

func (h Handle) String() string {
	if h.obj == nil {
		return "<invalid>"
	}
	parts := append([]string{h.obj.Name()}, h.Names()...)
	return strings.Join(parts, ".")
}
