package usertypes

import (
	"fmt"
	"strings"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

func scriptProperties() []data.Property {
	return []data.Property{
		{Name: "uri", Value: data.NewString("", &data.URI{Filter: "*.lua"}, &data.DisplayName{Name: "URI"})},
		{Name: "interface", Value: data.NewString("", &data.DisplayName{Name: "Interface"})},
		{Name: "inputs", Value: data.NewTable(&data.DisplayName{Name: "Inputs"}, &data.ReadOnly{})},
		{Name: "outputs", Value: data.NewTable(&data.DisplayName{Name: "Outputs"}, &data.ReadOnly{})},
	}
}

// Port is one declared script input or output.
type Port struct {
	Output   bool
	Name     string
	TypeName string
}

// ParseInterface reads port declarations of the form
//
//	in speed Double; out result Vec3f
//
// Declarations are separated by semicolons or newlines. Duplicate names
// within one direction are rejected.
func ParseInterface(text string) ([]Port, error) {
	var ports []Port
	seen := map[string]bool{}
	for _, decl := range strings.FieldsFunc(text, func(r rune) bool { return r == ';' || r == '\n' }) {
		fields := strings.Fields(decl)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed port declaration %q", strings.TrimSpace(decl))
		}
		var p Port
		switch fields[0] {
		case "in":
		case "out":
			p.Output = true
		default:
			return nil, fmt.Errorf("unknown port direction %q", fields[0])
		}
		p.Name, p.TypeName = fields[1], fields[2]
		key := fields[0] + " " + p.Name
		if seen[key] {
			return nil, fmt.Errorf("duplicate port %q", key)
		}
		seen[key] = true
		ports = append(ports, p)
	}
	return ports, nil
}

type scriptBehavior struct {
	core.NopBehavior
}

// parseInterface parses the interface text of obj and keeps the parse error
// item of the interface property in step with the result.
func parseInterface(ctx *core.Context, obj *core.Object) ([]Port, error) {
	h := core.PropertyHandle(obj, "interface")
	text, err := h.Value().AsString()
	if err != nil {
		return nil, err
	}
	ports, err := ParseInterface(text)
	if err != nil {
		ctx.Errors().Add(core.CategoryParse, core.LevelError, h, err.Error())
		return nil, err
	}
	ctx.Errors().RemoveCategory(h, core.CategoryParse)
	return ports, nil
}

// OnAfterContextActivated only refreshes the parse error; the ports were
// restored or loaded together with the interface text.
func (scriptBehavior) OnAfterContextActivated(ctx *core.Context, obj *core.Object) {
	_, _ = parseInterface(ctx, obj)
}

func (scriptBehavior) OnAfterValueChanged(ctx *core.Context, h core.Handle) {
	names := h.Names()
	if len(names) != 1 || names[0] != "interface" {
		return
	}
	obj := h.Object()
	ports, err := parseInterface(ctx, obj)
	if err != nil {
		return
	}
	var in, out []Port
	for _, p := range ports {
		if p.Output {
			out = append(out, p)
		} else {
			in = append(in, p)
		}
	}
	if err := syncPorts(ctx, core.PropertyHandle(obj, "inputs"), in, &data.LinkEnd{}); err != nil {
		ctx.Logger().Error("syncing script inputs", "object", obj.Name(), "error", err)
	}
	if err := syncPorts(ctx, core.PropertyHandle(obj, "outputs"), out, &data.LinkStart{}, &data.ReadOnly{}); err != nil {
		ctx.Logger().Error("syncing script outputs", "object", obj.Name(), "error", err)
	}
}

// syncPorts makes the table at h hold exactly ports. Entries whose name and
// type already match are kept so links on them survive; new entries are
// inserted at their declared position and carry annos.
func syncPorts(ctx *core.Context, h core.Handle, ports []Port, annos ...data.Annotation) error {
	want := make(map[string]string, len(ports))
	for _, p := range ports {
		want[p.Name] = p.TypeName
	}
	r := h.Reflection()
	for i := r.Size() - 1; i >= 0; i-- {
		if t, ok := want[r.NameAt(i)]; !ok || t != core.ValueTypeName(r.At(i)) {
			if err := ctx.RemoveProperty(h, i); err != nil {
				return err
			}
		}
	}
	for i, p := range ports {
		if r.IndexOf(p.Name) >= 0 {
			continue
		}
		v, err := ctx.Factory().CreateValue(p.TypeName)
		if err != nil {
			return fmt.Errorf("port %s: %w", p.Name, err)
		}
		for _, a := range annos {
			v.AddAnnotation(a.CloneAnnotation())
		}
		before := i
		if before > r.Size() {
			before = -1
		}
		if _, err := ctx.AddProperty(h, p.Name, v, before); err != nil {
			return err
		}
	}
	return nil
}
