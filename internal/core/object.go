package core

import (
	"sort"

	"github.com/ajitpratap0/scenecore/internal/data"
)

// Property names shared by every object type.
const (
	PropObjectID   = "objectID"
	PropObjectName = "objectName"
	PropUserTags   = "userTags"
	PropChildren   = "children"
)

const (
	idIndex = iota
	nameIndex
	tagsIndex
	childrenIndex
)

// Object is the unit of identity in the project graph. Its reflected
// properties are persistent; the parent pointer, back-references and file
// listeners are volatile state rebuilt on load and on undo/redo.
type Object struct {
	desc  *TypeDescriptor
	props data.PropertyList
	annos []data.Annotation

	parent    *Object
	backRefs  map[string]struct{}
	listeners map[string]*uriListener
	frozen    bool
}

type uriListener struct {
	path     string
	handle   Handle
	listener Listener
}

func newObject(desc *TypeDescriptor, name, id string) *Object {
	props := data.PropertyList{
		{Name: PropObjectID, Value: data.NewString(id, &data.Hidden{})},
		{Name: PropObjectName, Value: data.NewString(name, &data.DisplayName{Name: "Object Name"})},
		{Name: PropUserTags, Value: data.NewArray()},
		{Name: PropChildren, Value: data.NewArray(&data.Hidden{})},
	}
	if desc.Properties != nil {
		props = append(props, desc.Properties()...)
	}
	return &Object{
		desc:     desc,
		props:    props,
		backRefs: make(map[string]struct{}),
	}
}

func (o *Object) Size() int                 { return o.props.Size() }
func (o *Object) NameAt(i int) string       { return o.props.NameAt(i) }
func (o *Object) At(i int) *data.Value      { return o.props.At(i) }
func (o *Object) Lookup(name string) *data.Value { return o.props.Lookup(name) }
func (o *Object) IndexOf(name string) int   { return o.props.IndexOf(name) }
func (o *Object) PropertyNames() []string   { return o.props.PropertyNames() }

// ObjectID returns the stable identifier of the object.
func (o *Object) ObjectID() string {
	s, _ := o.props[idIndex].Value.AsString()
	return s
}

// Name returns the display name of the object.
func (o *Object) Name() string {
	s, _ := o.props[nameIndex].Value.AsString()
	return s
}

// TypeName returns the registered type name.
func (o *Object) TypeName() string { return o.desc.Name }

// IsA reports whether the object's type is typeName or derives from it.
func (o *Object) IsA(typeName string) bool {
	if typeName == "" || typeName == o.desc.Name {
		return true
	}
	for _, b := range o.desc.Bases {
		if b == typeName {
			return true
		}
	}
	return false
}

// Descriptor returns the type metadata of the object.
func (o *Object) Descriptor() *TypeDescriptor { return o.desc }

// Parent returns the owning object, or nil for top-level objects.
func (o *Object) Parent() *Object { return o.parent }

// Frozen reports whether the object belongs to a committed snapshot.
func (o *Object) Frozen() bool { return o.frozen }

// Children returns the owned objects in order.
func (o *Object) Children() []*Object {
	tbl, _ := o.props[childrenIndex].Value.AsTable()
	out := make([]*Object, 0, tbl.Size())
	for i := 0; i < tbl.Size(); i++ {
		if child := refObject(tbl.At(i)); child != nil {
			out = append(out, child)
		}
	}
	return out
}

// ChildIndex returns the position of child in the children table, or -1.
func (o *Object) ChildIndex(child *Object) int {
	tbl, _ := o.props[childrenIndex].Value.AsTable()
	for i := 0; i < tbl.Size(); i++ {
		if refObject(tbl.At(i)) == child {
			return i
		}
	}
	return -1
}

// ChildrenHandle returns the handle of the children table.
func (o *Object) ChildrenHandle() Handle { return NewHandle(o, childrenIndex) }

// UserTags returns the free-form tags attached to the object.
func (o *Object) UserTags() []string {
	tbl, _ := o.props[tagsIndex].Value.AsTable()
	tags, _ := data.AsSlice[string](tbl)
	return tags
}

// Annotations returns the object-level annotations.
func (o *Object) Annotations() []data.Annotation { return o.annos }

// AddAnnotation attaches an object-level annotation, replacing one of the same type.
func (o *Object) AddAnnotation(a data.Annotation) {
	for i := range o.annos {
		if o.annos[i].AnnotationType() == a.AnnotationType() {
			o.annos[i] = a
			return
		}
	}
	o.annos = append(o.annos, a)
}

// RemoveAnnotation detaches an object-level annotation. Absent annotations are a no-op.
func (o *Object) RemoveAnnotation(typeName string) bool {
	for i := range o.annos {
		if o.annos[i].AnnotationType() == typeName {
			o.annos = append(o.annos[:i], o.annos[i+1:]...)
			return true
		}
	}
	return false
}

// ObjectAnnotation returns the first object-level annotation of type A.
func ObjectAnnotation[A data.Annotation](o *Object) (A, bool) {
	return data.FindIn[A](o.annos)
}

// Clone returns a detached copy of o with the same type, ID and annotations.
// References are rewritten through tr. The copy has no parent and no
// back-references until it is deserialized into a project.
func (o *Object) Clone(tr data.Translator) *Object {
	return &Object{
		desc:     o.desc,
		props:    o.props.Clone(tr),
		annos:    data.CloneAnnotations(o.annos),
		backRefs: make(map[string]struct{}),
	}
}

// Compare reports whether other has the type of o and equal properties.
// References of o are translated through tr before they are compared.
func (o *Object) Compare(other *Object, tr data.Translator) bool {
	if o == nil || other == nil {
		return o == other
	}
	return o.desc.Name == other.desc.Name && o.props.Compare(other.props, tr)
}

// ReferencingObjectIDs returns the IDs of the objects that hold a reference
// to o, sorted.
func (o *Object) ReferencingObjectIDs() []string {
	ids := make([]string, 0, len(o.backRefs))
	for id := range o.backRefs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IsReferencedBy reports whether the object with the given ID references o.
func (o *Object) IsReferencedBy(ownerID string) bool {
	_, ok := o.backRefs[ownerID]
	return ok
}

// OnAfterAddReferenceToThis records that slot now points at o. A slot in
// the owner's children table makes the owner the parent of o.
func (o *Object) OnAfterAddReferenceToThis(slot Handle) {
	owner := slot.Object()
	o.backRefs[owner.ObjectID()] = struct{}{}
	if isChildSlot(slot) {
		o.parent = owner
	}
}

// OnBeforeRemoveReferenceToThis runs before slot stops pointing at o. The
// slot lies inside removed, the subtree that is being overwritten or
// dropped; the back-reference survives only if the owner still points at o
// from outside removed.
func (o *Object) OnBeforeRemoveReferenceToThis(slot, removed Handle) {
	owner := slot.Object()
	if !owner.hasReferenceOutside(o, removed) {
		delete(o.backRefs, owner.ObjectID())
	}
	if isChildSlot(slot) && o.parent == owner {
		o.parent = nil
	}
}

// OnAfterDeserialization rebuilds the back-references that o contributes to
// the objects it references, then runs the type hook.
func (o *Object) OnAfterDeserialization() {
	for _, slot := range o.ReferenceSlots() {
		if target := refObject(slot.Value()); target != nil {
			target.OnAfterAddReferenceToThis(slot)
		}
	}
	if o.desc.Behavior != nil {
		o.desc.Behavior.OnAfterDeserialization(o)
	}
}

// ReferenceSlots returns the handles of all non-null Ref values in o, depth first.
func (o *Object) ReferenceSlots() []Handle {
	return referenceSlotsUnder(ObjectHandle(o))
}

// ReferenceSlotsUnder returns the handles of all non-null Ref values at or
// below root, depth first.
func ReferenceSlotsUnder(root Handle) []Handle { return referenceSlotsUnder(root) }

func referenceSlotsUnder(root Handle) []Handle {
	var out []Handle
	var walk func(h Handle)
	walk = func(h Handle) {
		r := h.Reflection()
		if r == nil {
			if v := h.Value(); v != nil && refObject(v) != nil {
				out = append(out, h)
			}
			return
		}
		for i := 0; i < r.Size(); i++ {
			walk(h.At(i))
		}
	}
	walk(root)
	return out
}

func (o *Object) hasReferenceOutside(target *Object, removed Handle) bool {
	for _, slot := range o.ReferenceSlots() {
		if removed.Contains(slot) {
			continue
		}
		if refObject(slot.Value()) == target {
			return true
		}
	}
	return false
}

func isChildSlot(slot Handle) bool {
	return len(slot.path) == 2 && slot.path[0] == childrenIndex
}

// ReferencedObject returns the object a Ref value points at, or nil.
func ReferencedObject(v *data.Value) *Object { return refObject(v) }

func refObject(v *data.Value) *Object {
	if v == nil || v.Kind() != data.KindRef {
		return nil
	}
	r, _ := v.AsRef()
	o, _ := r.(*Object)
	return o
}

// referent converts o into a data.Referent without wrapping a nil pointer.
func referent(o *Object) data.Referent {
	if o == nil {
		return nil
	}
	return o
}

// TreeWalk returns root followed by all its descendants, depth first,
// parents before children.
func TreeWalk(root *Object) []*Object {
	var out []*Object
	seen := make(map[*Object]bool)
	stack := []*Object{root}
	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[o] {
			continue
		}
		seen[o] = true
		out = append(out, o)
		children := o.Children()
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return out
}

// IsDescendantOf reports whether o lies strictly below ancestor in the ownership tree.
func (o *Object) IsDescendantOf(ancestor *Object) bool {
	for p := o.parent; p != nil; p = p.parent {
		if p == ancestor {
			return true
		}
	}
	return false
}
