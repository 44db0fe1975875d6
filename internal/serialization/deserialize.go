package serialization

import (
	"encoding/json"
	"fmt"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

// Deserialize loads a project document. Older documents are migrated
// first. Problems that do not prevent loading are reported as warnings:
// unknown types and properties are dropped, and dangling references are
// cleared, or removed when they are entries of an array.
func Deserialize(raw []byte, factory *core.Factory) (*Result, error) {
	version, err := peekVersion(raw)
	if err != nil {
		return nil, err
	}
	w := Warnings{}
	raw, err = migrate(raw, version, w)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	l := loader{factory: factory, project: core.NewProject(), w: w, byID: map[string]*core.Object{}}
	if err := l.load(&doc); err != nil {
		return nil, err
	}
	return &Result{Project: l.project, Warnings: w, Version: version, FeatureLevel: doc.FeatureLevel}, nil
}

type loader struct {
	factory *core.Factory
	project *core.Project
	w       Warnings
	byID    map[string]*core.Object
}

func (l *loader) load(doc *Document) error {
	type pending struct {
		obj  *core.Object
		inst *Instance
	}
	var objs []pending
	for i := range doc.Instances {
		inst := &doc.Instances[i]
		id, name := stringProperty(inst, core.PropObjectID), stringProperty(inst, core.PropObjectName)
		if id == "" {
			l.w.add("", "instance %d of type %s has no object ID and was dropped", i, inst.Type)
			continue
		}
		if l.byID[id] != nil {
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, id)
		}
		obj, err := l.factory.CreateObject(inst.Type, name, id)
		if err != nil {
			l.w.add(id, "dropped: %v", err)
			continue
		}
		l.byID[id] = obj
		objs = append(objs, pending{obj: obj, inst: inst})
	}

	for _, p := range objs {
		l.loadObject(p.obj, p.inst)
		if err := l.project.AddInstance(p.obj); err != nil {
			return err
		}
	}
	for _, p := range objs {
		p.obj.OnAfterDeserialization()
	}
	l.loadLinks(doc.Links)
	return nil
}

func stringProperty(inst *Instance, name string) string {
	for _, p := range inst.Properties {
		if p.Name == name {
			var s string
			if json.Unmarshal(p.Value, &s) == nil {
				return s
			}
		}
	}
	return ""
}

func (l *loader) loadObject(obj *core.Object, inst *Instance) {
	id := obj.ObjectID()
	for _, ad := range inst.Annotations {
		if a, ok := l.annotation(id, ad); ok {
			obj.AddAnnotation(a)
		}
	}
	for _, pd := range inst.Properties {
		if pd.Name == core.PropObjectID {
			continue
		}
		dest := obj.Lookup(pd.Name)
		if dest == nil {
			l.w.add(id, "unknown property '%s' dropped", pd.Name)
			continue
		}
		if got := core.ValueTypeName(dest); got != pd.Type {
			l.w.add(id, "property '%s' has type %s, expected %s; dropped", pd.Name, pd.Type, got)
			continue
		}
		l.decode(id, pd.Name, dest, pd)
	}
}

func (l *loader) annotation(id string, ad AnnotationDoc) (data.Annotation, bool) {
	a, err := l.factory.CreateAnnotation(ad.Type)
	if err != nil {
		l.w.add(id, "unknown annotation %s dropped", ad.Type)
		return nil, false
	}
	if p, ok := a.(data.Parameterized); ok && ad.Parameter != "" {
		if err := p.SetParameter(ad.Parameter); err != nil {
			l.w.add(id, "annotation %s: %v", ad.Type, err)
		}
	}
	return a, true
}

// decode fills dest from pd. It reports false when the value could not be
// read; dest keeps its default then.
func (l *loader) decode(id, path string, dest *data.Value, pd PropertyDoc) bool {
	var err error
	switch dest.Kind() {
	case data.KindBool:
		var b bool
		if err = json.Unmarshal(pd.Value, &b); err == nil {
			_, err = dest.SetBool(b)
		}
	case data.KindInt:
		var n int32
		if err = json.Unmarshal(pd.Value, &n); err == nil {
			_, err = dest.SetInt(n)
		}
	case data.KindInt64:
		var n int64
		if err = json.Unmarshal(pd.Value, &n); err == nil {
			_, err = dest.SetInt64(n)
		}
	case data.KindDouble:
		var d float64
		if err = json.Unmarshal(pd.Value, &d); err == nil {
			_, err = dest.SetDouble(d)
		}
	case data.KindString:
		var s string
		if err = json.Unmarshal(pd.Value, &s); err == nil {
			_, err = dest.SetString(s)
		}
	case data.KindRef:
		return l.decodeRef(id, path, dest, pd)
	case data.KindStruct:
		l.decodeStruct(id, path, dest, pd)
		return true
	case data.KindTable:
		l.decodeTable(id, path, dest, pd)
		return true
	}
	if err != nil {
		l.w.add(id, "property '%s': %v", path, err)
		return false
	}
	return true
}

func (l *loader) decodeRef(id, path string, dest *data.Value, pd PropertyDoc) bool {
	var target *string
	if err := json.Unmarshal(pd.Value, &target); err != nil {
		l.w.add(id, "property '%s': %v", path, err)
		return false
	}
	if target == nil || *target == "" {
		return true
	}
	obj := l.byID[*target]
	if obj == nil {
		l.w.add(id, "property '%s' references missing object %s; cleared", path, *target)
		return false
	}
	if _, err := dest.SetRef(obj); err != nil {
		l.w.add(id, "property '%s': %v; cleared", path, err)
		return false
	}
	return true
}

func (l *loader) decodeStruct(id, path string, dest *data.Value, pd PropertyDoc) {
	var members []PropertyDoc
	if err := json.Unmarshal(pd.Value, &members); err != nil {
		l.w.add(id, "property '%s': %v", path, err)
		return
	}
	s, _ := dest.AsStruct()
	for _, m := range members {
		mv := s.Lookup(m.Name)
		if mv == nil || core.ValueTypeName(mv) != m.Type {
			l.w.add(id, "member '%s.%s' dropped", path, m.Name)
			continue
		}
		l.decode(id, path+"."+m.Name, mv, m)
	}
}

// decodeTable rebuilds the table from the document. Entries are created
// from their serialized type and annotations.
func (l *loader) decodeTable(id, path string, dest *data.Value, pd PropertyDoc) {
	var entries []PropertyDoc
	if err := json.Unmarshal(pd.Value, &entries); err != nil {
		l.w.add(id, "property '%s': %v", path, err)
		return
	}
	t, _ := dest.AsTable()
	array := data.IsArray(dest)
	t.Clear()
	for i, e := range entries {
		entryPath := fmt.Sprintf("%s.%d", path, i)
		if e.Name != "" {
			entryPath = path + "." + e.Name
		}
		v, err := l.factory.CreateValue(e.Type)
		if err != nil {
			l.w.add(id, "entry '%s': %v; dropped", entryPath, err)
			continue
		}
		for _, ad := range e.Annotations {
			if a, ok := l.annotation(id, ad); ok {
				v.AddAnnotation(a)
			}
		}
		ok := l.decode(id, entryPath, v, e)
		if array && v.Kind() == data.KindRef && (!ok || core.ReferencedObject(v) == nil) {
			l.w.add(id, "entry '%s' of array dropped", entryPath)
			continue
		}
		if _, err := t.AddProperty(e.Name, v, -1); err != nil {
			l.w.add(id, "entry '%s': %v; dropped", entryPath, err)
		}
	}
}

func (l *loader) loadLinks(links []LinkDoc) {
	for _, ld := range links {
		start, end := l.byID[ld.Start.Object], l.byID[ld.End.Object]
		if start == nil || end == nil {
			l.w.add(ld.End.Object, "link %s.%s -> %s.%s has a missing endpoint; dropped",
				ld.Start.Object, ld.Start.Property, ld.End.Object, ld.End.Property)
			continue
		}
		lk := &core.Link{
			Start: core.Describe(start, ld.Start.Property),
			End:   core.Describe(end, ld.End.Property),
			Valid: ld.Valid,
			Weak:  ld.Weak,
		}
		if l.project.LinkEndingAt(lk.End) != nil {
			l.w.add(end.ObjectID(), "second link ending at %s dropped", lk.End)
			continue
		}
		l.project.AddLink(lk)
	}
}
