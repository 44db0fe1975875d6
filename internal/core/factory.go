package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ajitpratap0/scenecore/internal/data"
)

// TypeDescriptor registers an object type with a Factory.
type TypeDescriptor struct {
	// Name is the registered type name.
	Name string

	// Bases lists the type names this type derives from, nearest first.
	Bases []string

	// FeatureLevel is the lowest project feature level that offers the type.
	FeatureLevel int

	// UserCreatable types may be created through the command layer.
	UserCreatable bool

	// CanBeChild types may appear in a children table.
	CanBeChild bool

	// CanHaveChildren types may own other objects.
	CanHaveChildren bool

	// Properties builds the type-specific properties of a new object. They
	// follow the four common properties.
	Properties func() []data.Property

	// Behavior receives lifecycle hooks. It may be nil.
	Behavior Behavior
}

// Factory is the registry of object, struct and annotation types. It is
// built once at startup and passed to every component that constructs
// objects or values.
type Factory struct {
	types       map[string]*TypeDescriptor
	structs     map[string]func() *data.Struct
	annotations map[string]func() data.Annotation
}

// NewFactory returns a factory that knows the built-in annotations and no
// object types.
func NewFactory() *Factory {
	f := &Factory{
		types:       make(map[string]*TypeDescriptor),
		structs:     make(map[string]func() *data.Struct),
		annotations: make(map[string]func() data.Annotation),
	}
	for name, ctor := range data.BuiltinAnnotations {
		f.annotations[name] = ctor
	}
	return f
}

// RegisterType adds an object type.
func (f *Factory) RegisterType(desc TypeDescriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("registering type: empty name")
	}
	if _, exists := f.types[desc.Name]; exists {
		return fmt.Errorf("registering type %s: already registered", desc.Name)
	}
	d := desc
	f.types[desc.Name] = &d
	return nil
}

// RegisterStruct adds a struct type constructor.
func (f *Factory) RegisterStruct(name string, ctor func() *data.Struct) error {
	if _, exists := f.structs[name]; exists {
		return fmt.Errorf("registering struct %s: already registered", name)
	}
	f.structs[name] = ctor
	return nil
}

// RegisterAnnotation adds an annotation constructor.
func (f *Factory) RegisterAnnotation(name string, ctor func() data.Annotation) error {
	if _, exists := f.annotations[name]; exists {
		return fmt.Errorf("registering annotation %s: already registered", name)
	}
	f.annotations[name] = ctor
	return nil
}

// CreateObject constructs an object of the given type. An empty id is
// replaced by a fresh one. The object is not added to any project.
func (f *Factory) CreateObject(typeName, name, id string) (*Object, error) {
	desc, ok := f.types[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: can't create object of type %q", ErrUnknownType, typeName)
	}
	return newObject(desc, name, NormalizedObjectID(id)), nil
}

// CreateValue constructs a default value. typeName is a kind name, a
// registered struct name, or "Ref<Type>" for a typed reference.
func (f *Factory) CreateValue(typeName string) (*data.Value, error) {
	if ctor, ok := f.structs[typeName]; ok {
		return data.NewStruct(ctor()), nil
	}
	if strings.HasPrefix(typeName, "Ref<") && strings.HasSuffix(typeName, ">") {
		elem := strings.TrimSuffix(strings.TrimPrefix(typeName, "Ref<"), ">")
		if _, ok := f.types[elem]; !ok {
			return nil, fmt.Errorf("%w: reference element type %q", ErrUnknownType, elem)
		}
		return data.NewRef(elem), nil
	}
	k, err := data.ParseKind(typeName)
	if err != nil || k == data.KindStruct {
		return nil, fmt.Errorf("%w: value type %q", ErrUnknownType, typeName)
	}
	return data.NewDefault(k)
}

// ValueTypeName returns the name under which CreateValue recreates the
// type of v.
func ValueTypeName(v *data.Value) string {
	if v.Kind() == data.KindRef && v.ElementType() != "" {
		return "Ref<" + v.ElementType() + ">"
	}
	return v.TypeName()
}

// CreateAnnotation constructs an annotation with default data.
func (f *Factory) CreateAnnotation(typeName string) (data.Annotation, error) {
	ctor, ok := f.annotations[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: annotation %q", ErrUnknownType, typeName)
	}
	return ctor(), nil
}

// Types returns the registered object type names, sorted.
func (f *Factory) Types() []string {
	names := make([]string, 0, len(f.types))
	for n := range f.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Structs returns the registered struct type names, sorted.
func (f *Factory) Structs() []string {
	names := make([]string, 0, len(f.structs))
	for n := range f.structs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Descriptor returns the metadata of a registered type.
func (f *Factory) Descriptor(typeName string) (*TypeDescriptor, bool) {
	d, ok := f.types[typeName]
	return d, ok
}

// IsUserCreatable reports whether users may create typeName in a project
// at the given feature level.
func (f *Factory) IsUserCreatable(typeName string, featureLevel int) bool {
	d, ok := f.types[typeName]
	return ok && d.UserCreatable && d.FeatureLevel <= featureLevel
}
