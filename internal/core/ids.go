package core

import "github.com/google/uuid"

// NewObjectID returns a fresh random object ID.
func NewObjectID() string {
	return uuid.NewString()
}

// NormalizedObjectID returns id, or a fresh ID when id is empty.
func NormalizedObjectID(id string) string {
	if id == "" {
		return NewObjectID()
	}
	return id
}

// XorObjectIDs derives a deterministic ID from two IDs by XOR-ing their
// UUID bytes. IDs that are not UUIDs are first mapped to a name-based UUID,
// so the result is stable for any input. Duplicating or instancing the same
// template under the same parent ID always yields the same child IDs.
func XorObjectIDs(a, b string) string {
	ua, ub := asUUID(a), asUUID(b)
	var out uuid.UUID
	for i := range out {
		out[i] = ua[i] ^ ub[i]
	}
	return out.String()
}

func asUUID(id string) uuid.UUID {
	if u, err := uuid.Parse(id); err == nil {
		return u
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id))
}
