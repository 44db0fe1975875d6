package data

import "fmt"

// Kind is the primitive type of a Value. It is fixed when the Value is constructed.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindInt64
	KindDouble
	KindString
	KindRef
	KindTable
	KindStruct
)

// ValidKinds is the set of all value kinds, in declaration order.
var ValidKinds = []Kind{
	KindBool,
	KindInt,
	KindInt64,
	KindDouble,
	KindString,
	KindRef,
	KindTable,
	KindStruct,
}

var kindNames = map[Kind]string{
	KindBool:   "Bool",
	KindInt:    "Int",
	KindInt64:  "Int64",
	KindDouble: "Double",
	KindString: "String",
	KindRef:    "Ref",
	KindTable:  "Table",
	KindStruct: "Struct",
}

// Int64 values are stored with full 64-bit precision, but ranges derived for
// display and for JSON round trips are clamped to the exactly representable
// integer range of a float64.
const (
	Int64DisplayMax = int64(1) << 53
	Int64DisplayMin = -Int64DisplayMax
)

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	_, ok := kindNames[k]
	return ok
}

// HasSubstructure reports whether values of this kind expose a Reflection.
func (k Kind) HasSubstructure() bool {
	return k == KindTable || k == KindStruct
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kind name produced by Kind.String back to the Kind.
func ParseKind(name string) (Kind, error) {
	for _, k := range ValidKinds {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown value type %q", ErrTypeMismatch, name)
}
