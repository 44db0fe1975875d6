package usertypes

import (
	"errors"
	"fmt"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

// ErrPrefabLoop is returned when a prefab would contain an instance of
// itself, directly or through nested instances.
var ErrPrefabLoop = errors.New("prefab instantiates itself")

func prefabInstanceProperties() []data.Property {
	return append(nodeProperties(),
		data.Property{Name: "template", Value: data.NewRef(TypePrefab, &data.DisplayName{Name: "Template"})},
	)
}

// prefabInstanceBehavior rebuilds the instance whenever its template
// reference changes.
type prefabInstanceBehavior struct {
	core.NopBehavior
}

func (prefabInstanceBehavior) OnAfterValueChanged(ctx *core.Context, h core.Handle) {
	names := h.Names()
	if len(names) != 1 || names[0] != "template" {
		return
	}
	inst := h.Object()
	if err := UpdatePrefabInstance(ctx, inst); err != nil {
		ctx.Errors().Add(core.CategoryGeneral, core.LevelError, core.ObjectHandle(inst), err.Error())
		return
	}
	ctx.Errors().RemoveCategory(core.ObjectHandle(inst), core.CategoryGeneral)
}

// Template returns the prefab inst is an instance of, or nil.
func Template(inst *core.Object) *core.Object {
	v := inst.Lookup("template")
	if v == nil {
		return nil
	}
	return core.ReferencedObject(v)
}

// UpdatePrefabInstance makes the subtree below inst a copy of the subtree
// below its template. The copy of a template object T gets the ID
// XorObjectIDs(inst, T), so copies left by an earlier update are found and
// updated in place: running the update twice changes nothing the second
// time. Objects below inst that have no counterpart in the template are
// deleted, and an instance without a template ends up with no children.
//
// Links ending inside the template are repeated on the copies. Their start
// is translated when it lies inside the template too. Nested prefab
// instances are copied as instances and then updated from their own template.
func UpdatePrefabInstance(ctx *core.Context, inst *core.Object) error {
	if !inst.IsA(TypePrefabInstance) {
		return fmt.Errorf("updating %s: %w: %s is not a %s", inst.Name(), data.ErrTypeMismatch, inst.TypeName(), TypePrefabInstance)
	}
	template := Template(inst)
	var originals []*core.Object
	if template != nil {
		if instantiates(template, template, map[*core.Object]bool{}) {
			return fmt.Errorf("updating %s: %w: %s", inst.Name(), ErrPrefabLoop, template.Name())
		}
		originals = prefabTreeWalk(template)[1:]
	}

	copies := make(map[*core.Object]*core.Object, len(originals))
	wanted := make(map[*core.Object]bool, len(originals))
	for _, o := range originals {
		id := core.XorObjectIDs(inst.ObjectID(), o.ObjectID())
		cp := ctx.Project().Object(id)
		if cp != nil && cp.TypeName() != o.TypeName() {
			return fmt.Errorf("updating %s: %w: %s is a %s", inst.Name(), core.ErrDuplicateID, id, cp.TypeName())
		}
		if cp == nil {
			var err error
			if cp, err = ctx.CreateObject(o.TypeName(), o.Name(), id); err != nil {
				return fmt.Errorf("updating %s: %w", inst.Name(), err)
			}
		}
		copies[o] = cp
		wanted[cp] = true
	}

	// Pre-order walk: a parent and every earlier sibling are in place
	// before a child is placed.
	for _, o := range originals {
		cp := copies[o]
		parent := inst
		if o.Parent() != template {
			parent = copies[o.Parent()]
		}
		before := 0
		if i := o.Parent().ChildIndex(o); i > 0 {
			before = parent.ChildIndex(copies[o.Parent().Children()[i-1]]) + 1
		}
		if err := ctx.MoveScenegraphChild(cp, parent, before); err != nil {
			return fmt.Errorf("updating %s: %w", inst.Name(), err)
		}
	}

	var stale []*core.Object
	for _, o := range prefabTreeWalk(inst)[1:] {
		if !wanted[o] {
			stale = append(stale, o)
		}
	}
	if len(stale) > 0 {
		if _, err := ctx.DeleteObjects(stale, true); err != nil {
			return fmt.Errorf("updating %s: %w", inst.Name(), err)
		}
	}

	tr := data.Translator(func(r data.Referent) data.Referent {
		if o, ok := r.(*core.Object); ok {
			if cp := copies[o]; cp != nil {
				return cp
			}
		}
		return r
	})
	for _, o := range originals {
		if err := copyValues(ctx, o, copies[o], tr); err != nil {
			return fmt.Errorf("updating %s: %w", inst.Name(), err)
		}
	}

	if err := copyLinks(ctx, originals, copies); err != nil {
		return fmt.Errorf("updating %s: %w", inst.Name(), err)
	}

	for _, o := range originals {
		if cp := copies[o]; cp.IsA(TypePrefabInstance) {
			if err := UpdatePrefabInstance(ctx, cp); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyValues assigns every property of src except identity and structure
// to dst.
func copyValues(ctx *core.Context, src, dst *core.Object, tr data.Translator) error {
	for i := 0; i < src.Size(); i++ {
		name := src.NameAt(i)
		if name == core.PropObjectID || name == core.PropChildren {
			continue
		}
		if err := ctx.SetValue(core.NewHandle(dst, i), src.At(i).Clone(tr)); err != nil {
			return fmt.Errorf("%s.%s: %w", dst.Name(), name, err)
		}
	}
	return nil
}

// copyLinks mirrors the links ending at template objects onto their copies
// and removes links ending at a copy that the template does not have.
func copyLinks(ctx *core.Context, originals []*core.Object, copies map[*core.Object]*core.Object) error {
	p := ctx.Project()
	for _, o := range originals {
		cp := copies[o]
		for _, l := range p.LinksConnectedTo(o, false, true) {
			start := l.Start.Object
			if c := copies[start]; c != nil {
				start = c
			}
			want := core.Link{
				Start: core.PropertyDescriptor{Object: start, Names: l.Start.Names},
				End:   core.PropertyDescriptor{Object: cp, Names: l.End.Names},
				Weak:  l.Weak,
			}
			if have := p.LinkEndingAt(want.End); have != nil && have.SameEndpoints(want) && have.Weak == want.Weak {
				continue
			}
			if _, err := ctx.AddLink(want.Start, want.End, want.Weak); err != nil {
				return err
			}
		}
		for _, l := range p.LinksConnectedTo(cp, false, true) {
			if p.LinkEndingAt(core.PropertyDescriptor{Object: o, Names: l.End.Names}) != nil {
				continue
			}
			if _, err := ctx.RemoveLink(l.End); err != nil {
				return err
			}
		}
	}
	return nil
}

// prefabTreeWalk lists root and its descendants in pre-order without
// entering nested prefab instances, whose children belong to their own
// template.
func prefabTreeWalk(root *core.Object) []*core.Object {
	out := []*core.Object{root}
	for _, ch := range root.Children() {
		if ch.IsA(TypePrefabInstance) {
			out = append(out, ch)
			continue
		}
		out = append(out, prefabTreeWalk(ch)...)
	}
	return out
}

// instantiates reports whether prefab holds an instance of target, directly
// or through the templates of nested instances.
func instantiates(prefab, target *core.Object, seen map[*core.Object]bool) bool {
	if seen[prefab] {
		return false
	}
	seen[prefab] = true
	for _, o := range core.TreeWalk(prefab)[1:] {
		if !o.IsA(TypePrefabInstance) {
			continue
		}
		t := Template(o)
		if t == nil {
			continue
		}
		if t == target || instantiates(t, target, seen) {
			return true
		}
	}
	return false
}
