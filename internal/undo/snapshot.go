package undo

import (
	"fmt"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

// SaveProjectState builds a snapshot of live. Objects recorded as changed in
// changes, and objects missing from ref, are copied; all other objects are
// shared with ref. A nil ref copies every object. Links are always copied.
// The returned project is not frozen yet.
func SaveProjectState(live, ref *core.Project, changes *core.ChangeRecorder, factory *core.Factory) (*core.Project, error) {
	dest := core.NewProject()

	dirty := make(map[*core.Object]bool)
	if ref != nil && changes != nil {
		for _, o := range changes.AllChangedObjects(false, false, false) {
			dirty[o] = true
		}
	}

	var copied []*core.Object
	for _, src := range live.Instances() {
		shared := ref != nil && !dirty[src]
		if shared {
			if prev := ref.Object(src.ObjectID()); prev != nil {
				if err := dest.AddInstance(prev); err != nil {
					return nil, err
				}
				continue
			}
		}
		cp, err := factory.CreateObject(src.TypeName(), src.Name(), src.ObjectID())
		if err != nil {
			return nil, fmt.Errorf("snapshot of %s: %w", src.Name(), err)
		}
		if err := dest.AddInstance(cp); err != nil {
			return nil, err
		}
		copied = append(copied, src)
	}

	u := updater{tr: translatorInto(dest)}
	for _, src := range copied {
		if err := u.updateObject(src, dest.Object(src.ObjectID())); err != nil {
			return nil, fmt.Errorf("snapshot of %s: %w", src.Name(), err)
		}
	}

	for _, l := range live.Links() {
		if cl, ok := core.CloneLinkWithTranslation(*l, objectsInto(dest)); ok {
			dest.AddLink(&cl)
		}
	}
	return dest, nil
}

// RestoreProjectState reconciles the live project of ctx with snapshot.
// Every difference is applied in place and recorded. The recorded changes
// are merged into the UI recorder and the model recorder is reset even when
// restoration fails part way.
func RestoreProjectState(snapshot *core.Project, ctx *core.Context) error {
	changes := core.NewChangeRecorder()
	rerr := reconcile(snapshot, ctx, changes)

	for _, o := range changes.AllChangedObjects(false, false, false) {
		o.OnAfterDeserialization()
	}
	ctx.UIChanges().Merge(changes)
	ctx.ModelChanges().Reset()
	if rerr != nil {
		return rerr
	}

	ctx.PerformExternalFileReload(changes.AllChangedObjects(false, false, true))
	if u := ctx.ExternalReferenceUpdater(); u != nil {
		if err := u.UpdateExternalReferences(ctx); err != nil {
			return fmt.Errorf("updating external references: %w", err)
		}
	}
	return nil
}

func reconcile(src *core.Project, ctx *core.Context, changes *core.ChangeRecorder) error {
	dest := ctx.Project()

	for _, l := range dest.Links() {
		if src.FindLinkByObjectID(*l) == nil {
			changes.RecordRemoveLink(*l)
			dest.RemoveLink(*l)
		}
	}

	var doomed []*core.Object
	for _, o := range dest.Instances() {
		if src.Object(o.ObjectID()) == nil {
			doomed = append(doomed, o)
			changes.RecordDeleteObject(o)
		}
	}
	ctx.DeleteWithVolatileSideEffects(doomed)

	for _, s := range src.Instances() {
		if dest.Object(s.ObjectID()) != nil {
			continue
		}
		o, err := ctx.Factory().CreateObject(s.TypeName(), s.Name(), s.ObjectID())
		if err != nil {
			return fmt.Errorf("restoring %s: %w", s.Name(), err)
		}
		if err := dest.AddInstance(o); err != nil {
			return fmt.Errorf("restoring %s: %w", s.Name(), err)
		}
		changes.RecordCreateObject(o)
	}

	u := updater{
		tr:      translatorInto(dest),
		changes: changes,
		handler: true,
	}
	for _, d := range dest.Instances() {
		if err := u.updateObject(src.Object(d.ObjectID()), d); err != nil {
			return fmt.Errorf("restoring %s: %w", d.Name(), err)
		}
	}

	for _, sl := range src.Links() {
		dl := dest.FindLinkByObjectID(*sl)
		if dl == nil {
			nl, ok := core.CloneLinkWithTranslation(*sl, objectsInto(dest))
			if !ok {
				continue
			}
			dest.AddLink(&nl)
			changes.RecordAddLink(nl)
			continue
		}
		if dl.Valid != sl.Valid {
			dl.Valid = sl.Valid
			changes.RecordChangeValidityOfLink(*dl)
		}
	}
	return nil
}

func objectsInto(p *core.Project) func(*core.Object) *core.Object {
	return func(o *core.Object) *core.Object { return p.Object(o.ObjectID()) }
}

func translatorInto(p *core.Project) data.Translator {
	return func(r data.Referent) data.Referent {
		if o := p.Object(r.ObjectID()); o != nil {
			return o
		}
		return nil
	}
}

// updater copies values between objects of the same type. With handler set
// it maintains back-references of the destination and records changes.
type updater struct {
	tr      data.Translator
	changes *core.ChangeRecorder
	handler bool
}

func (u updater) record(h core.Handle) {
	if u.changes != nil && h.IsValid() {
		u.changes.RecordValueChanged(h)
	}
}

func (u updater) updateObject(src, dest *core.Object) error {
	for _, a := range dest.Annotations() {
		if data.FindNamed(src.Annotations(), a.AnnotationType()) == nil {
			dest.RemoveAnnotation(a.AnnotationType())
		}
	}
	for _, a := range src.Annotations() {
		dest.AddAnnotation(a.CloneAnnotation())
	}

	for i := 0; i < src.Size(); i++ {
		name := src.NameAt(i)
		di := dest.IndexOf(name)
		if di < 0 {
			return fmt.Errorf("%w: %s has no property %q", data.ErrTypeMismatch, dest.TypeName(), name)
		}
		if err := u.updateValue(src.At(i), dest.At(di), core.NewHandle(dest, di)); err != nil {
			return fmt.Errorf("property %s: %w", name, err)
		}
	}
	return nil
}

func (u updater) updateValue(src, dest *data.Value, h core.Handle) error {
	if src.Kind() != dest.Kind() {
		return fmt.Errorf("%w: %s vs %s", data.ErrTypeMismatch, src.Kind(), dest.Kind())
	}
	switch src.Kind() {
	case data.KindRef:
		return u.updateRef(src, dest, h)
	case data.KindTable:
		st, _ := src.AsTable()
		dt, _ := dest.AsTable()
		if data.IsArray(src) != data.IsArray(dest) {
			return fmt.Errorf("%w: array and table", data.ErrTypeMismatch)
		}
		if data.IsArray(src) {
			u.updateArray(st, dt, h)
			return nil
		}
		return u.updateTableByName(st, dt, h)
	case data.KindStruct:
		ss, _ := src.AsStruct()
		ds, _ := dest.AsStruct()
		if ss.TypeName() != ds.TypeName() {
			return fmt.Errorf("%w: struct %s vs %s", data.ErrTypeMismatch, ss.TypeName(), ds.TypeName())
		}
		for i := 0; i < ss.Size(); i++ {
			if err := u.updateValue(ss.At(i), ds.At(i), h.At(i)); err != nil {
				return err
			}
		}
		dest.CopyAnnotationData(src)
		return nil
	}
	changed, err := dest.Assign(src, true)
	if err != nil {
		return err
	}
	if changed {
		u.record(h)
	}
	return nil
}

func (u updater) updateRef(src, dest *data.Value, h core.Handle) error {
	target, _ := src.AsRef()
	if !data.IsNilReferent(target) {
		target = u.tr(target)
	}
	old, _ := dest.AsRef()
	defer dest.CopyAnnotationData(src)
	if data.SameReferent(old, target) {
		return nil
	}
	if u.handler && h.IsValid() {
		if oldObj, ok := old.(*core.Object); ok && oldObj != nil {
			oldObj.OnBeforeRemoveReferenceToThis(h, h)
		}
	}
	if _, err := dest.SetRef(target); err != nil {
		return err
	}
	u.record(h)
	return nil
}

func (u updater) releaseEntry(h core.Handle) {
	if !u.handler || !h.IsValid() {
		return
	}
	for _, slot := range core.ReferenceSlotsUnder(h) {
		core.ReferencedObject(slot.Value()).OnBeforeRemoveReferenceToThis(slot, h)
	}
}

// updateArray replaces the whole content of an array table.
func (u updater) updateArray(src, dest *data.Table, h core.Handle) {
	if src.Compare(dest, u.tr) {
		return
	}
	for i := 0; i < dest.Size(); i++ {
		u.releaseEntry(h.At(i))
	}
	dest.Clear()
	for _, p := range src.Properties() {
		// Entries come from a consistent snapshot, so names never collide.
		_, _ = dest.AddProperty(p.Name, p.Value.Clone(u.tr), -1)
	}
	u.record(h)
}

// updateTableByName matches entries by name and type, dropping, reordering
// and adding entries as needed.
func (u updater) updateTableByName(src, dest *data.Table, h core.Handle) error {
	changed := false
	for i := 0; i < dest.Size(); {
		name := dest.NameAt(i)
		sv := src.Lookup(name)
		if sv == nil || core.ValueTypeName(sv) != core.ValueTypeName(dest.At(i)) {
			u.releaseEntry(h.At(i))
			if err := dest.RemoveProperty(i); err != nil {
				return err
			}
			changed = true
			continue
		}
		i++
	}

	for i := 0; i < src.Size(); i++ {
		name := src.NameAt(i)
		di := dest.IndexOf(name)
		if di < 0 {
			if _, err := dest.AddProperty(name, src.At(i).Clone(u.tr), i); err != nil {
				return err
			}
			changed = true
			continue
		}
		if di != i {
			if err := dest.SwapProperties(i, di); err != nil {
				return err
			}
			changed = true
		}
		if err := u.updateValue(src.At(i), dest.At(i), h.At(i)); err != nil {
			return err
		}
	}
	if changed {
		u.record(h)
	}
	return nil
}
