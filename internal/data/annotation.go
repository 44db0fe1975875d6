package data

import (
	"fmt"
	"strconv"
	"strings"
)

// Annotation is a small typed side-record attached to a value or an object.
// Annotations never take part in value equality.
type Annotation interface {
	AnnotationType() string
	CloneAnnotation() Annotation
}

// Parameterized annotations carry one textual parameter that survives serialization.
type Parameterized interface {
	Annotation
	Parameter() string
	SetParameter(p string) error
}

// Annotation type names.
const (
	AnnotationDisplayName          = "DisplayNameAnnotation"
	AnnotationRangeInt             = "RangeAnnotationInt"
	AnnotationRangeInt64           = "RangeAnnotationInt64"
	AnnotationRangeDouble          = "RangeAnnotationDouble"
	AnnotationHidden               = "HiddenProperty"
	AnnotationArraySemantic        = "ArraySemanticAnnotation"
	AnnotationEnumeration          = "EnumerationAnnotation"
	AnnotationURI                  = "URIAnnotation"
	AnnotationExpectEmptyReference = "ExpectEmptyReference"
	AnnotationLinkStart            = "LinkStartAnnotation"
	AnnotationLinkEnd              = "LinkEndAnnotation"
	AnnotationReadOnly             = "ReadOnlyAnnotation"
	AnnotationExternalReference    = "ExternalReferenceAnnotation"
)

// DisplayName overrides the label shown for a property.
type DisplayName struct{ Name string }

func (a *DisplayName) AnnotationType() string      { return AnnotationDisplayName }
func (a *DisplayName) CloneAnnotation() Annotation { c := *a; return &c }
func (a *DisplayName) Parameter() string           { return a.Name }
func (a *DisplayName) SetParameter(p string) error { a.Name = p; return nil }

// RangeInt bounds an Int property.
type RangeInt struct{ Min, Max int32 }

func (a *RangeInt) AnnotationType() string      { return AnnotationRangeInt }
func (a *RangeInt) CloneAnnotation() Annotation { c := *a; return &c }
func (a *RangeInt) Parameter() string           { return fmt.Sprintf("%d:%d", a.Min, a.Max) }
func (a *RangeInt) SetParameter(p string) error {
	lo, hi, err := parseRange(p, 32)
	if err != nil {
		return err
	}
	a.Min, a.Max = int32(lo), int32(hi)
	return nil
}

// RangeInt64 bounds an Int64 property.
type RangeInt64 struct{ Min, Max int64 }

func (a *RangeInt64) AnnotationType() string      { return AnnotationRangeInt64 }
func (a *RangeInt64) CloneAnnotation() Annotation { c := *a; return &c }
func (a *RangeInt64) Parameter() string           { return fmt.Sprintf("%d:%d", a.Min, a.Max) }
func (a *RangeInt64) SetParameter(p string) error {
	lo, hi, err := parseRange(p, 64)
	if err != nil {
		return err
	}
	a.Min, a.Max = lo, hi
	return nil
}

// RangeDouble bounds a Double property.
type RangeDouble struct{ Min, Max float64 }

func (a *RangeDouble) AnnotationType() string      { return AnnotationRangeDouble }
func (a *RangeDouble) CloneAnnotation() Annotation { c := *a; return &c }
func (a *RangeDouble) Parameter() string {
	return strconv.FormatFloat(a.Min, 'g', -1, 64) + ":" + strconv.FormatFloat(a.Max, 'g', -1, 64)
}
func (a *RangeDouble) SetParameter(p string) error {
	lo, hi, ok := strings.Cut(p, ":")
	if !ok {
		return fmt.Errorf("range parameter %q: missing ':'", p)
	}
	mn, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return fmt.Errorf("range parameter %q: %w", p, err)
	}
	mx, err := strconv.ParseFloat(hi, 64)
	if err != nil {
		return fmt.Errorf("range parameter %q: %w", p, err)
	}
	a.Min, a.Max = mn, mx
	return nil
}

func parseRange(p string, bits int) (int64, int64, error) {
	lo, hi, ok := strings.Cut(p, ":")
	if !ok {
		return 0, 0, fmt.Errorf("range parameter %q: missing ':'", p)
	}
	mn, err := strconv.ParseInt(lo, 10, bits)
	if err != nil {
		return 0, 0, fmt.Errorf("range parameter %q: %w", p, err)
	}
	mx, err := strconv.ParseInt(hi, 10, bits)
	if err != nil {
		return 0, 0, fmt.Errorf("range parameter %q: %w", p, err)
	}
	return mn, mx, nil
}

// Hidden marks a property that is not presented to users.
type Hidden struct{}

func (a *Hidden) AnnotationType() string      { return AnnotationHidden }
func (a *Hidden) CloneAnnotation() Annotation { return &Hidden{} }

// ArraySemantic marks a Table whose entries are positional and unnamed.
// Array tables never hold null references: the entry is removed instead.
type ArraySemantic struct{}

func (a *ArraySemantic) AnnotationType() string      { return AnnotationArraySemantic }
func (a *ArraySemantic) CloneAnnotation() Annotation { return &ArraySemantic{} }

// Enumeration tags an Int property with the enumeration it draws from.
type Enumeration struct{ Type int32 }

func (a *Enumeration) AnnotationType() string      { return AnnotationEnumeration }
func (a *Enumeration) CloneAnnotation() Annotation { c := *a; return &c }
func (a *Enumeration) Parameter() string           { return strconv.FormatInt(int64(a.Type), 10) }
func (a *Enumeration) SetParameter(p string) error {
	n, err := strconv.ParseInt(p, 10, 32)
	if err != nil {
		return fmt.Errorf("enumeration parameter %q: %w", p, err)
	}
	a.Type = int32(n)
	return nil
}

// URI marks a String property holding a file path. Filter is a file dialog
// pattern such as "*.gltf".
type URI struct{ Filter string }

func (a *URI) AnnotationType() string      { return AnnotationURI }
func (a *URI) CloneAnnotation() Annotation { c := *a; return &c }
func (a *URI) Parameter() string           { return a.Filter }
func (a *URI) SetParameter(p string) error { a.Filter = p; return nil }

// ExpectEmptyReference marks a Ref property whose null state is not an
// error. Other null Ref properties carry a warning in the error registry.
type ExpectEmptyReference struct{}

func (a *ExpectEmptyReference) AnnotationType() string { return AnnotationExpectEmptyReference }
func (a *ExpectEmptyReference) CloneAnnotation() Annotation {
	return &ExpectEmptyReference{}
}

// LinkStart marks a property that may be used as the start of a link.
type LinkStart struct{}

func (a *LinkStart) AnnotationType() string      { return AnnotationLinkStart }
func (a *LinkStart) CloneAnnotation() Annotation { return &LinkStart{} }

// LinkEnd marks a property that may be driven by a link.
type LinkEnd struct{}

func (a *LinkEnd) AnnotationType() string      { return AnnotationLinkEnd }
func (a *LinkEnd) CloneAnnotation() Annotation { return &LinkEnd{} }

// ReadOnly marks a property that the command layer refuses to edit. On a
// table it freezes the set of entries, not their values.
type ReadOnly struct{}

func (a *ReadOnly) AnnotationType() string      { return AnnotationReadOnly }
func (a *ReadOnly) CloneAnnotation() Annotation { return &ReadOnly{} }

// ExternalReference is an object-level annotation naming the project an
// object was imported from. Such objects are not duplicated and the command
// layer refuses to edit them.
type ExternalReference struct{ ProjectID string }

func (a *ExternalReference) AnnotationType() string      { return AnnotationExternalReference }
func (a *ExternalReference) CloneAnnotation() Annotation { c := *a; return &c }
func (a *ExternalReference) Parameter() string           { return a.ProjectID }
func (a *ExternalReference) SetParameter(p string) error { a.ProjectID = p; return nil }

// BuiltinAnnotations maps every annotation type name defined in this package
// to its constructor.
var BuiltinAnnotations = map[string]func() Annotation{
	AnnotationDisplayName:          func() Annotation { return &DisplayName{} },
	AnnotationRangeInt:             func() Annotation { return &RangeInt{} },
	AnnotationRangeInt64:           func() Annotation { return &RangeInt64{Min: Int64DisplayMin, Max: Int64DisplayMax} },
	AnnotationRangeDouble:          func() Annotation { return &RangeDouble{} },
	AnnotationHidden:               func() Annotation { return &Hidden{} },
	AnnotationArraySemantic:        func() Annotation { return &ArraySemantic{} },
	AnnotationEnumeration:          func() Annotation { return &Enumeration{} },
	AnnotationURI:                  func() Annotation { return &URI{} },
	AnnotationExpectEmptyReference: func() Annotation { return &ExpectEmptyReference{} },
	AnnotationLinkStart:            func() Annotation { return &LinkStart{} },
	AnnotationLinkEnd:              func() Annotation { return &LinkEnd{} },
	AnnotationReadOnly:             func() Annotation { return &ReadOnly{} },
	AnnotationExternalReference:    func() Annotation { return &ExternalReference{} },
}

// FindIn returns the first annotation of type A in list.
func FindIn[A Annotation](list []Annotation) (A, bool) {
	for _, a := range list {
		if typed, ok := a.(A); ok {
			return typed, true
		}
	}
	var zero A
	return zero, false
}

// FindNamed returns the first annotation in list whose type name is typeName.
func FindNamed(list []Annotation, typeName string) Annotation {
	for _, a := range list {
		if a.AnnotationType() == typeName {
			return a
		}
	}
	return nil
}

// CloneAnnotations deep-copies an annotation list.
func CloneAnnotations(list []Annotation) []Annotation {
	if len(list) == 0 {
		return nil
	}
	out := make([]Annotation, len(list))
	for i, a := range list {
		out[i] = a.CloneAnnotation()
	}
	return out
}
