package serialization

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Migration upgrades raw documents older than To.
type Migration struct {
	To    Version
	Apply func(doc []byte, w Warnings) ([]byte, error)
}

// migrations are applied in order to documents older than their target.
var migrations = []Migration{
	{To: Version{Major: 1, Minor: 1}, Apply: renameNodeVisibility},
}

func peekVersion(doc []byte) (Version, error) {
	if !gjson.ValidBytes(doc) {
		return Version{}, fmt.Errorf("%w: malformed JSON", ErrInvalidDocument)
	}
	fv := gjson.GetBytes(doc, "fileVersion")
	if !fv.IsObject() {
		return Version{}, fmt.Errorf("%w: missing fileVersion", ErrInvalidDocument)
	}
	return Version{
		Major: int(fv.Get("major").Int()),
		Minor: int(fv.Get("minor").Int()),
		Patch: int(fv.Get("patch").Int()),
	}, nil
}

// migrate brings doc up to CurrentVersion.
func migrate(doc []byte, from Version, w Warnings) ([]byte, error) {
	if from.Major > CurrentVersion.Major {
		return nil, fmt.Errorf("%w: %s is newer than %s", ErrUnsupportedVersion, from, CurrentVersion)
	}
	if !from.Less(CurrentVersion) {
		return doc, nil
	}
	var err error
	for _, m := range migrations {
		if !from.Less(m.To) {
			continue
		}
		if doc, err = m.Apply(doc, w); err != nil {
			return nil, fmt.Errorf("migrating to %s: %w", m.To, err)
		}
	}
	v, err := json.Marshal(CurrentVersion)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(doc, "fileVersion", v)
}

// renameNodeVisibility renames the 1.0 "visible" property of nodes.
func renameNodeVisibility(doc []byte, w Warnings) ([]byte, error) {
	var err error
	for i, inst := range gjson.GetBytes(doc, "instances").Array() {
		switch inst.Get("type").String() {
		case "Node", "MeshNode":
		default:
			continue
		}
		id := objectIDOf(inst)
		for j, prop := range inst.Get("properties").Array() {
			if prop.Get("name").String() != "visible" {
				continue
			}
			path := fmt.Sprintf("instances.%d.properties.%d.name", i, j)
			if doc, err = sjson.SetBytes(doc, path, "visibility"); err != nil {
				return nil, err
			}
			w.add(id, "property 'visible' renamed to 'visibility'")
		}
	}
	return doc, nil
}

func objectIDOf(inst gjson.Result) string {
	for _, prop := range inst.Get("properties").Array() {
		if prop.Get("name").String() == "objectID" {
			return prop.Get("value").String()
		}
	}
	return ""
}
