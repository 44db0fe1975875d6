package data

import (
	"fmt"
	"strconv"
)

// Value is a single typed cell. It holds exactly one of bool, int32, int64,
// float64, string, a reference, a Table or a Struct; the kind never changes.
//
// Values do not maintain graph-wide invariants. Back-references and change
// notification are the job of the mutation context that owns the object.
type Value struct {
	kind Kind

	b   bool
	i   int32
	i64 int64
	d   float64
	s   string

	ref      Referent
	elemType string

	table *Table
	st    *Struct

	annos []Annotation
}

func newValue(k Kind, annos []Annotation) *Value {
	return &Value{kind: k, annos: annos}
}

// NewBool returns a Bool value.
func NewBool(b bool, annos ...Annotation) *Value {
	v := newValue(KindBool, annos)
	v.b = b
	return v
}

// NewInt returns an Int value.
func NewInt(i int32, annos ...Annotation) *Value {
	v := newValue(KindInt, annos)
	v.i = i
	return v
}

// NewInt64 returns an Int64 value.
func NewInt64(i int64, annos ...Annotation) *Value {
	v := newValue(KindInt64, annos)
	v.i64 = i
	return v
}

// NewDouble returns a Double value.
func NewDouble(d float64, annos ...Annotation) *Value {
	v := newValue(KindDouble, annos)
	v.d = d
	return v
}

// NewString returns a String value.
func NewString(s string, annos ...Annotation) *Value {
	v := newValue(KindString, annos)
	v.s = s
	return v
}

// NewRef returns a null reference whose targets must satisfy IsA(elemType).
// An empty elemType accepts any target.
func NewRef(elemType string, annos ...Annotation) *Value {
	v := newValue(KindRef, annos)
	v.elemType = elemType
	return v
}

// NewTable returns an empty dictionary-style Table value.
func NewTable(annos ...Annotation) *Value {
	v := newValue(KindTable, annos)
	v.table = &Table{}
	return v
}

// NewArray returns an empty Table value tagged with ArraySemantic.
func NewArray(annos ...Annotation) *Value {
	return NewTable(append([]Annotation{&ArraySemantic{}}, annos...)...)
}

// NewStruct wraps s in a Struct value. The value owns s.
func NewStruct(s *Struct, annos ...Annotation) *Value {
	v := newValue(KindStruct, annos)
	v.st = s
	return v
}

// NewDefault returns the default value of a kind. Struct values need a
// struct type and cannot be default-constructed here.
func NewDefault(k Kind) (*Value, error) {
	switch k {
	case KindBool:
		return NewBool(false), nil
	case KindInt:
		return NewInt(0), nil
	case KindInt64:
		return NewInt64(0), nil
	case KindDouble:
		return NewDouble(0), nil
	case KindString:
		return NewString(""), nil
	case KindRef:
		return NewRef(""), nil
	case KindTable:
		return NewTable(), nil
	}
	return nil, fmt.Errorf("%w: no default value for %s", ErrTypeMismatch, k)
}

// Kind returns the primitive type of the value.
func (v *Value) Kind() Kind { return v.kind }

// ElementType returns the declared target type of a Ref value.
func (v *Value) ElementType() string { return v.elemType }

// TypeName returns the kind name, or the struct type name for Struct values.
func (v *Value) TypeName() string {
	if v.kind == KindStruct && v.st != nil {
		return v.st.TypeName()
	}
	return v.kind.String()
}

func (v *Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, mismatch(KindBool, v.kind)
	}
	return v.b, nil
}

func (v *Value) AsInt() (int32, error) {
	if v.kind != KindInt {
		return 0, mismatch(KindInt, v.kind)
	}
	return v.i, nil
}

func (v *Value) AsInt64() (int64, error) {
	if v.kind != KindInt64 {
		return 0, mismatch(KindInt64, v.kind)
	}
	return v.i64, nil
}

func (v *Value) AsDouble() (float64, error) {
	if v.kind != KindDouble {
		return 0, mismatch(KindDouble, v.kind)
	}
	return v.d, nil
}

func (v *Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", mismatch(KindString, v.kind)
	}
	return v.s, nil
}

// AsRef returns the reference target, which is nil for a null reference.
func (v *Value) AsRef() (Referent, error) {
	if v.kind != KindRef {
		return nil, mismatch(KindRef, v.kind)
	}
	return v.ref, nil
}

func (v *Value) AsTable() (*Table, error) {
	if v.kind != KindTable {
		return nil, mismatch(KindTable, v.kind)
	}
	return v.table, nil
}

func (v *Value) AsStruct() (*Struct, error) {
	if v.kind != KindStruct {
		return nil, mismatch(KindStruct, v.kind)
	}
	return v.st, nil
}

// Substructure returns the Reflection of a Table or Struct value.
func (v *Value) Substructure() (Reflection, error) {
	switch v.kind {
	case KindTable:
		return v.table, nil
	case KindStruct:
		return v.st, nil
	}
	return nil, fmt.Errorf("%w: %s has no substructure", ErrTypeMismatch, v.kind)
}

func (v *Value) SetBool(b bool) (bool, error) {
	if v.kind != KindBool {
		return false, mismatch(KindBool, v.kind)
	}
	changed := v.b != b
	v.b = b
	return changed, nil
}

func (v *Value) SetInt(i int32) (bool, error) {
	if v.kind != KindInt {
		return false, mismatch(KindInt, v.kind)
	}
	changed := v.i != i
	v.i = i
	return changed, nil
}

func (v *Value) SetInt64(i int64) (bool, error) {
	if v.kind != KindInt64 {
		return false, mismatch(KindInt64, v.kind)
	}
	changed := v.i64 != i
	v.i64 = i
	return changed, nil
}

func (v *Value) SetDouble(d float64) (bool, error) {
	if v.kind != KindDouble {
		return false, mismatch(KindDouble, v.kind)
	}
	changed := v.d != d
	v.d = d
	return changed, nil
}

func (v *Value) SetString(s string) (bool, error) {
	if v.kind != KindString {
		return false, mismatch(KindString, v.kind)
	}
	changed := v.s != s
	v.s = s
	return changed, nil
}

// CanSetRef reports whether target may be stored in this Ref value.
func (v *Value) CanSetRef(target Referent) bool {
	if v.kind != KindRef {
		return false
	}
	if IsNilReferent(target) || v.elemType == "" {
		return true
	}
	return target.IsA(v.elemType)
}

// SetRef points the reference at target. Targets whose dynamic type is not
// compatible with the declared element type are rejected with ErrTypeMismatch.
func (v *Value) SetRef(target Referent) (bool, error) {
	if v.kind != KindRef {
		return false, mismatch(KindRef, v.kind)
	}
	if !v.CanSetRef(target) {
		return false, fmt.Errorf("%w: %s object %q cannot be stored in Ref<%s>",
			ErrTypeMismatch, target.TypeName(), target.ObjectID(), v.elemType)
	}
	if IsNilReferent(target) {
		target = nil
	}
	changed := !SameReferent(v.ref, target)
	v.ref = target
	return changed, nil
}

// SetTable replaces the table content. The value takes ownership of t.
func (v *Value) SetTable(t *Table) (bool, error) {
	if v.kind != KindTable {
		return false, mismatch(KindTable, v.kind)
	}
	if t == nil {
		t = &Table{}
	}
	changed := !v.table.Equal(t)
	v.table = t
	return changed, nil
}

// SetStruct copies the members of s into the value. Both structs must have
// the same struct type.
func (v *Value) SetStruct(s *Struct) (bool, error) {
	if v.kind != KindStruct {
		return false, mismatch(KindStruct, v.kind)
	}
	return v.st.assign(s)
}

// Clone returns a deep copy of the value, including annotations, with all
// nested references rewritten through tr.
func (v *Value) Clone(tr Translator) *Value {
	c := *v
	c.annos = CloneAnnotations(v.annos)
	switch v.kind {
	case KindRef:
		c.ref = tr.apply(v.ref)
	case KindTable:
		c.table = v.table.Clone(tr)
	case KindStruct:
		c.st = v.st.Clone(tr)
	}
	return &c
}

// Assign copies the content of other into v and reports whether v changed.
// Annotation data is copied when includeAnnotations is set but never counts
// as a change.
func (v *Value) Assign(other *Value, includeAnnotations bool) (bool, error) {
	if other.kind != v.kind {
		return false, mismatch(v.kind, other.kind)
	}
	var (
		changed bool
		err     error
	)
	switch v.kind {
	case KindBool:
		changed, err = v.SetBool(other.b)
	case KindInt:
		changed, err = v.SetInt(other.i)
	case KindInt64:
		changed, err = v.SetInt64(other.i64)
	case KindDouble:
		changed, err = v.SetDouble(other.d)
	case KindString:
		changed, err = v.SetString(other.s)
	case KindRef:
		changed, err = v.SetRef(other.ref)
	case KindTable:
		if !v.table.Equal(other.table) {
			v.table = other.table.Clone(nil)
			changed = true
		}
	case KindStruct:
		changed, err = v.st.assign(other.st)
	}
	if err != nil {
		return false, err
	}
	if includeAnnotations {
		v.CopyAnnotationData(other)
	}
	return changed, nil
}

func (v *Value) checkAssign(other *Value) error {
	if other == nil {
		return fmt.Errorf("%w: cannot assign nil to %s", ErrTypeMismatch, v.kind)
	}
	if other.kind != v.kind {
		return mismatch(v.kind, other.kind)
	}
	switch v.kind {
	case KindRef:
		if !v.CanSetRef(other.ref) {
			return fmt.Errorf("%w: %s object %q cannot be stored in Ref<%s>",
				ErrTypeMismatch, other.ref.TypeName(), other.ref.ObjectID(), v.elemType)
		}
	case KindStruct:
		return v.st.checkAssign(other.st)
	}
	return nil
}

// Compare reports structural equality after translating the references of v
// through tr. Annotations are ignored.
func (v *Value) Compare(other *Value, tr Translator) bool {
	if other == nil || v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindInt64:
		return v.i64 == other.i64
	case KindDouble:
		return v.d == other.d
	case KindString:
		return v.s == other.s
	case KindRef:
		return SameReferent(tr.apply(v.ref), other.ref)
	case KindTable:
		return v.table.Compare(other.table, tr)
	case KindStruct:
		return v.st.Compare(other.st, tr)
	}
	return false
}

// Equal is Compare with the identity translator.
func (v *Value) Equal(other *Value) bool { return v.Compare(other, nil) }

// Annotations returns the annotations attached to the value.
func (v *Value) Annotations() []Annotation { return v.annos }

// AddAnnotation attaches a. An existing annotation of the same type is replaced.
func (v *Value) AddAnnotation(a Annotation) {
	for i := range v.annos {
		if v.annos[i].AnnotationType() == a.AnnotationType() {
			v.annos[i] = a
			return
		}
	}
	v.annos = append(v.annos, a)
}

// RemoveAnnotation detaches the annotation of the given type. Removing an
// absent annotation is a no-op that returns false.
func (v *Value) RemoveAnnotation(typeName string) bool {
	for i := range v.annos {
		if v.annos[i].AnnotationType() == typeName {
			v.annos = append(v.annos[:i], v.annos[i+1:]...)
			return true
		}
	}
	return false
}

// HasAnnotation reports whether an annotation of the given type is attached.
func (v *Value) HasAnnotation(typeName string) bool {
	return FindNamed(v.annos, typeName) != nil
}

// CopyAnnotationData overwrites the data of every annotation of v with the
// data of the same-typed annotation on src.
func (v *Value) CopyAnnotationData(src *Value) {
	for i := range v.annos {
		if a := FindNamed(src.annos, v.annos[i].AnnotationType()); a != nil {
			v.annos[i] = a.CloneAnnotation()
		}
	}
}

// FindAnnotation returns the annotation of v with the given type name, or nil.
func FindAnnotation(v *Value, typeName string) Annotation {
	return FindNamed(v.annos, typeName)
}

// QueryAnnotation returns the first annotation of type A attached to v.
func QueryAnnotation[A Annotation](v *Value) (A, bool) {
	return FindIn[A](v.annos)
}

// IsArray reports whether v is a Table value with array semantics.
func IsArray(v *Value) bool {
	return v != nil && v.kind == KindTable && v.HasAnnotation(AnnotationArraySemantic)
}

// String renders the value for logs and command descriptions.
func (v *Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(int64(v.i), 10)
	case KindInt64:
		return strconv.FormatInt(v.i64, 10)
	case KindDouble:
		return strconv.FormatFloat(v.d, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.s)
	case KindRef:
		if v.ref == nil {
			return "null"
		}
		return "ref(" + v.ref.ObjectID() + ")"
	case KindTable:
		return fmt.Sprintf("table[%d]", v.table.Size())
	case KindStruct:
		return v.st.String()
	}
	return "?"
}
