// Package serialization reads and writes versioned project documents.
package serialization

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/ajitpratap0/scenecore/internal/core"
)

// ErrUnsupportedVersion is returned for documents written by a newer
// major version.
var ErrUnsupportedVersion = errors.New("unsupported file version")

// ErrInvalidDocument is returned when the input is not a project document.
var ErrInvalidDocument = errors.New("invalid project document")

// Version is a semantic file format version.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// CurrentVersion is the version written by Serialize.
var CurrentVersion = Version{Major: 1, Minor: 1, Patch: 0}

func (v Version) String() string { return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch) }

// Less reports whether v precedes other.
func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// Document is the on-disk shape of a project.
type Document struct {
	FileVersion  Version    `json:"fileVersion"`
	FeatureLevel int        `json:"featureLevel"`
	Instances    []Instance `json:"instances"`
	Links        []LinkDoc  `json:"links"`
}

// Instance is one serialized object.
type Instance struct {
	Type        string          `json:"type"`
	Properties  []PropertyDoc   `json:"properties"`
	Annotations []AnnotationDoc `json:"annotations,omitempty"`
}

// PropertyDoc is one named value. Table and struct values nest a
// []PropertyDoc in Value; references hold an object ID or null.
type PropertyDoc struct {
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Value       json.RawMessage `json:"value"`
	Annotations []AnnotationDoc `json:"annotations,omitempty"`
}

// AnnotationDoc is a serialized annotation with its optional parameter.
type AnnotationDoc struct {
	Type      string `json:"type"`
	Parameter string `json:"parameter,omitempty"`
}

// EndpointDoc names a link endpoint by object ID and dotted property path.
type EndpointDoc struct {
	Object   string `json:"object"`
	Property string `json:"property"`
}

// LinkDoc is a serialized link.
type LinkDoc struct {
	Start EndpointDoc `json:"start"`
	End   EndpointDoc `json:"end"`
	Valid bool        `json:"valid"`
	Weak  bool        `json:"weak,omitempty"`
}

// Warnings collects load problems keyed by object ID. Document-level
// problems use the empty key.
type Warnings map[string][]string

func (w Warnings) add(id, format string, args ...any) {
	w[id] = append(w[id], fmt.Sprintf(format, args...))
}

// Len returns the total number of warnings.
func (w Warnings) Len() int {
	n := 0
	for _, list := range w {
		n += len(list)
	}
	return n
}

// Flatten returns all warnings as "id: message" lines in key order.
func (w Warnings) Flatten() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []string
	for _, k := range keys {
		for _, msg := range w[k] {
			if k == "" {
				out = append(out, msg)
			} else {
				out = append(out, k+": "+msg)
			}
		}
	}
	return out
}

// Result is a loaded project.
type Result struct {
	Project      *core.Project
	Warnings     Warnings
	Version      Version
	FeatureLevel int
}
