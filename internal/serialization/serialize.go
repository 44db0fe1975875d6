package serialization

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

// Serialize encodes p as an indented JSON document of CurrentVersion.
func Serialize(p *core.Project, featureLevel int) ([]byte, error) {
	doc, err := NewDocument(p, featureLevel)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// NewDocument converts p into its document form.
func NewDocument(p *core.Project, featureLevel int) (*Document, error) {
	doc := &Document{
		FileVersion:  CurrentVersion,
		FeatureLevel: featureLevel,
		Instances:    make([]Instance, 0, p.Len()),
		Links:        make([]LinkDoc, 0, len(p.Links())),
	}
	for _, o := range p.Instances() {
		inst := Instance{Type: o.TypeName(), Annotations: encodeAnnotations(o.Annotations())}
		for i := 0; i < o.Size(); i++ {
			pd, err := encodeProperty(o.NameAt(i), o.At(i), false)
			if err != nil {
				return nil, fmt.Errorf("encoding %s.%s: %w", o.Name(), o.NameAt(i), err)
			}
			inst.Properties = append(inst.Properties, pd)
		}
		doc.Instances = append(doc.Instances, inst)
	}
	for _, l := range p.Links() {
		doc.Links = append(doc.Links, LinkDoc{
			Start: EndpointDoc{Object: l.Start.Object.ObjectID(), Property: l.Start.Path()},
			End:   EndpointDoc{Object: l.End.Object.ObjectID(), Property: l.End.Path()},
			Valid: l.Valid,
			Weak:  l.Weak,
		})
	}
	return doc, nil
}

func encodeAnnotations(list []data.Annotation) []AnnotationDoc {
	var out []AnnotationDoc
	for _, a := range list {
		ad := AnnotationDoc{Type: a.AnnotationType()}
		if p, ok := a.(data.Parameterized); ok {
			ad.Parameter = p.Parameter()
		}
		out = append(out, ad)
	}
	return out
}

// encodeProperty encodes v. Entries of tables carry their annotations
// because nothing else can recreate them on load.
func encodeProperty(name string, v *data.Value, withAnnotations bool) (PropertyDoc, error) {
	pd := PropertyDoc{Name: name, Type: core.ValueTypeName(v)}
	if withAnnotations {
		pd.Annotations = encodeAnnotations(v.Annotations())
	}
	var raw any
	switch v.Kind() {
	case data.KindBool:
		raw, _ = v.AsBool()
	case data.KindInt:
		raw, _ = v.AsInt()
	case data.KindInt64:
		raw, _ = v.AsInt64()
	case data.KindDouble:
		d, _ := v.AsDouble()
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return pd, fmt.Errorf("%w: %v is not representable", data.ErrTypeMismatch, d)
		}
		raw = d
	case data.KindString:
		raw, _ = v.AsString()
	case data.KindRef:
		if o := core.ReferencedObject(v); o != nil {
			raw = o.ObjectID()
		}
	case data.KindStruct:
		s, _ := v.AsStruct()
		members := make([]PropertyDoc, 0, s.Size())
		for i := 0; i < s.Size(); i++ {
			m, err := encodeProperty(s.NameAt(i), s.At(i), false)
			if err != nil {
				return pd, err
			}
			members = append(members, m)
		}
		raw = members
	case data.KindTable:
		t, _ := v.AsTable()
		entries := make([]PropertyDoc, 0, t.Size())
		for i := 0; i < t.Size(); i++ {
			e, err := encodeProperty(t.NameAt(i), t.At(i), true)
			if err != nil {
				return pd, err
			}
			entries = append(entries, e)
		}
		raw = entries
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return pd, err
	}
	pd.Value = b
	return pd, nil
}
