package core

import (
	"fmt"
	"log/slog"

	"github.com/ajitpratap0/scenecore/internal/data"
)

// Context is the single mutation path of a live project. Every write goes
// through it so that back-references, parent pointers, link validity, file
// listeners and change recorders stay consistent.
//
// A Context is not safe for concurrent use.
type Context struct {
	project *Project
	factory *Factory
	logger  *slog.Logger

	modelChanges *ChangeRecorder
	uiChanges    *ChangeRecorder
	changes      *Multiplexer
	errors       *Errors

	monitor FileMonitor
	extrefs ExternalReferenceUpdater
}

// Option configures a Context.
type Option func(*Context)

// WithFileMonitor makes the context register listeners for URI properties.
func WithFileMonitor(m FileMonitor) Option {
	return func(c *Context) { c.monitor = m }
}

// WithExternalReferenceUpdater installs the hook that runs after undo/redo.
func WithExternalReferenceUpdater(u ExternalReferenceUpdater) Option {
	return func(c *Context) { c.extrefs = u }
}

// NewContext wraps a live project and activates all of its objects.
func NewContext(project *Project, factory *Factory, logger *slog.Logger, opts ...Option) *Context {
	if project == nil {
		project = NewProject()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Context{
		project:      project,
		factory:      factory,
		logger:       logger,
		modelChanges: NewChangeRecorder(),
		uiChanges:    NewChangeRecorder(),
	}
	c.changes = NewMultiplexer(c.modelChanges, c.uiChanges)
	c.errors = newErrors(c.changes, logger)
	for _, opt := range opts {
		opt(c)
	}
	if !project.Frozen() {
		c.PerformExternalFileReload(project.Instances())
	}
	return c
}

func (c *Context) Project() *Project { return c.project }
func (c *Context) Factory() *Factory { return c.factory }
func (c *Context) Logger() *slog.Logger { return c.logger }

// ModelChanges returns the recorder consumed by the undo stack.
func (c *Context) ModelChanges() *ChangeRecorder { return c.modelChanges }

// UIChanges returns the recorder consumed by change dispatch to views.
func (c *Context) UIChanges() *ChangeRecorder { return c.uiChanges }

// Changes returns the multiplexer fed by every mutation. Extra recorders
// may be attached to it.
func (c *Context) Changes() *Multiplexer { return c.changes }

// Errors returns the error registry of the live project.
func (c *Context) Errors() *Errors { return c.errors }

// ExternalReferenceUpdater returns the installed updater, or nil.
func (c *Context) ExternalReferenceUpdater() ExternalReferenceUpdater { return c.extrefs }

func (c *Context) checkWritable(obj *Object) error {
	if obj == nil {
		return fmt.Errorf("%w: nil object", ErrInvalidHandle)
	}
	if obj.frozen {
		return fmt.Errorf("%w: %s belongs to a snapshot", ErrReadOnly, obj.Name())
	}
	if !c.project.Contains(obj) {
		return notInProject(obj)
	}
	return nil
}

func (c *Context) writable(h Handle) (*data.Value, error) {
	if h.Object() == nil || h.IsObject() || !h.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	if err := c.checkWritable(h.Object()); err != nil {
		return nil, err
	}
	if h.Depth() == 1 && h.Index() == idIndex {
		return nil, fmt.Errorf("%w: %s is immutable", ErrReadOnly, PropObjectID)
	}
	return h.Value(), nil
}

func (c *Context) setScalar(h Handle, set func(*data.Value) (bool, error)) error {
	v, err := c.writable(h)
	if err != nil {
		return err
	}
	changed, err := set(v)
	if err != nil {
		return fmt.Errorf("setting %s: %w", h, err)
	}
	if changed {
		c.afterValueChanged(h)
	}
	return nil
}

func (c *Context) SetBool(h Handle, b bool) error {
	return c.setScalar(h, func(v *data.Value) (bool, error) { return v.SetBool(b) })
}

func (c *Context) SetInt(h Handle, i int32) error {
	return c.setScalar(h, func(v *data.Value) (bool, error) { return v.SetInt(i) })
}

func (c *Context) SetInt64(h Handle, i int64) error {
	return c.setScalar(h, func(v *data.Value) (bool, error) { return v.SetInt64(i) })
}

func (c *Context) SetDouble(h Handle, d float64) error {
	return c.setScalar(h, func(v *data.Value) (bool, error) { return v.SetDouble(d) })
}

func (c *Context) SetString(h Handle, s string) error {
	return c.setScalar(h, func(v *data.Value) (bool, error) { return v.SetString(s) })
}

// SetStruct copies the members of s into the struct value at h.
func (c *Context) SetStruct(h Handle, s *data.Struct) error {
	return c.setScalar(h, func(v *data.Value) (bool, error) { return v.SetStruct(s) })
}

// SetName renames obj.
func (c *Context) SetName(obj *Object, name string) error {
	return c.SetString(NewHandle(obj, nameIndex), name)
}

// SetTags replaces the user tags of obj.
func (c *Context) SetTags(obj *Object, tags []string) error {
	tbl := &data.Table{}
	data.Set(tbl, tags)
	return c.SetTable(NewHandle(obj, tagsIndex), tbl)
}

// SetRef points the reference at h to target, which may be nil. Nulling an
// entry of an array table is rejected; remove the entry instead.
func (c *Context) SetRef(h Handle, target *Object) error {
	v, err := c.writable(h)
	if err != nil {
		return err
	}
	if v.Kind() != data.KindRef {
		_, err := v.AsRef()
		return fmt.Errorf("setting %s: %w", h, err)
	}
	if target == nil && data.IsArray(h.Parent().Value()) {
		return fmt.Errorf("%w: %s", ErrNullArrayReference, h)
	}
	if target != nil && !c.project.Contains(target) {
		return notInProject(target)
	}
	if !v.CanSetRef(referent(target)) {
		_, err := v.SetRef(referent(target))
		return fmt.Errorf("setting %s: %w", h, err)
	}
	old := refObject(v)
	if old == target {
		return nil
	}
	if old != nil {
		old.OnBeforeRemoveReferenceToThis(h, h)
	}
	if _, err := v.SetRef(referent(target)); err != nil {
		return fmt.Errorf("setting %s: %w", h, err)
	}
	if target != nil {
		target.OnAfterAddReferenceToThis(h)
	}
	c.afterValueChanged(h)
	c.updateEmptyReferenceError(h)
	return nil
}

// SetTable replaces the content of the table at h with a copy of t.
func (c *Context) SetTable(h Handle, t *data.Table) error {
	v, err := c.writable(h)
	if err != nil {
		return err
	}
	old, err := v.AsTable()
	if err != nil {
		return fmt.Errorf("setting %s: %w", h, err)
	}
	if old.Equal(t) {
		return nil
	}
	replacement := t.Clone(nil)
	if err := c.checkInsertable(data.IsArray(v), replacement.Properties()...); err != nil {
		return fmt.Errorf("setting %s: %w", h, err)
	}
	c.releaseReferences(h)
	if _, err := v.SetTable(replacement); err != nil {
		return fmt.Errorf("setting %s: %w", h, err)
	}
	c.acquireReferences(h)
	c.afterValueChanged(h)
	c.updateLinkValidityUnder(h.Descriptor())
	return nil
}

// SetValue assigns src to the value at h, dispatching on its kind.
func (c *Context) SetValue(h Handle, src *data.Value) error {
	switch src.Kind() {
	case data.KindBool:
		b, _ := src.AsBool()
		return c.SetBool(h, b)
	case data.KindInt:
		i, _ := src.AsInt()
		return c.SetInt(h, i)
	case data.KindInt64:
		i, _ := src.AsInt64()
		return c.SetInt64(h, i)
	case data.KindDouble:
		d, _ := src.AsDouble()
		return c.SetDouble(h, d)
	case data.KindString:
		s, _ := src.AsString()
		return c.SetString(h, s)
	case data.KindRef:
		return c.SetRef(h, refObject(src))
	case data.KindTable:
		t, _ := src.AsTable()
		return c.SetTable(h, t)
	case data.KindStruct:
		s, _ := src.AsStruct()
		return c.SetStruct(h, s)
	}
	return fmt.Errorf("setting %s: %w", h, data.ErrTypeMismatch)
}

// AddProperty inserts value into the table at h before indexBefore (-1
// appends) and returns the handle of the new entry.
func (c *Context) AddProperty(h Handle, name string, value *data.Value, indexBefore int) (Handle, error) {
	tv, err := c.writable(h)
	if err != nil {
		return Handle{}, err
	}
	tbl, err := tv.AsTable()
	if err != nil {
		return Handle{}, fmt.Errorf("adding %q to %s: %w", name, h, err)
	}
	if err := c.checkInsertable(data.IsArray(tv), data.Property{Name: name, Value: value}); err != nil {
		return Handle{}, fmt.Errorf("adding %q to %s: %w", name, h, err)
	}
	index := indexBefore
	if index == -1 {
		index = tbl.Size()
	}
	if _, err := tbl.AddProperty(name, value, indexBefore); err != nil {
		return Handle{}, fmt.Errorf("adding %q to %s: %w", name, h, err)
	}
	added := h.At(index)
	c.acquireReferences(added)
	c.afterValueChanged(h)
	c.updateLinkValidityUnder(added.Descriptor())
	return added, nil
}

// RemoveProperty removes the index-th entry of the table at h. Links
// touching the removed subtree become invalid.
func (c *Context) RemoveProperty(h Handle, index int) error {
	tv, err := c.writable(h)
	if err != nil {
		return err
	}
	tbl, err := tv.AsTable()
	if err != nil {
		return fmt.Errorf("removing entry %d of %s: %w", index, h, err)
	}
	if index < 0 || index >= tbl.Size() {
		return fmt.Errorf("removing entry of %s: %w: index %d, size %d", h, data.ErrOutOfRange, index, tbl.Size())
	}
	removed := h.At(index)
	desc := removed.Descriptor()
	c.releaseReferences(removed)
	if err := tbl.RemoveProperty(index); err != nil {
		return fmt.Errorf("removing entry %d of %s: %w", index, h, err)
	}
	c.afterValueChanged(h)
	for _, l := range c.project.LinksConnectedToPropertySubtree(desc, true, true) {
		c.setLinkValidity(l, false)
	}
	return nil
}

// RemoveNamedProperty removes the entry called name from the table at h.
func (c *Context) RemoveNamedProperty(h Handle, name string) error {
	r := h.Reflection()
	if r == nil {
		return fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	i := r.IndexOf(name)
	if i < 0 {
		return fmt.Errorf("removing %q from %s: %w", name, h, data.ErrOutOfRange)
	}
	return c.RemoveProperty(h, i)
}

// RemoveAllProperties empties the table at h.
func (c *Context) RemoveAllProperties(h Handle) error {
	r := h.Reflection()
	if r == nil {
		return fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	for i := r.Size() - 1; i >= 0; i-- {
		if err := c.RemoveProperty(h, i); err != nil {
			return err
		}
	}
	return nil
}

// checkInsertable validates entries about to enter a table: referenced
// objects must be live, and array tables take no null references.
func (c *Context) checkInsertable(array bool, props ...data.Property) error {
	for _, p := range props {
		if array && p.Value.Kind() == data.KindRef && refObject(p.Value) == nil {
			return ErrNullArrayReference
		}
		for _, target := range referencedObjects(p.Value) {
			if !c.project.Contains(target) {
				return notInProject(target)
			}
		}
	}
	return nil
}

func referencedObjects(v *data.Value) []*Object {
	if o := refObject(v); o != nil {
		return []*Object{o}
	}
	r := substructure(v)
	if r == nil {
		return nil
	}
	var out []*Object
	for i := 0; i < r.Size(); i++ {
		out = append(out, referencedObjects(r.At(i))...)
	}
	return out
}

func (c *Context) releaseReferences(root Handle) {
	for _, slot := range referenceSlotsUnder(root) {
		refObject(slot.Value()).OnBeforeRemoveReferenceToThis(slot, root)
	}
}

func (c *Context) acquireReferences(root Handle) {
	for _, slot := range referenceSlotsUnder(root) {
		refObject(slot.Value()).OnAfterAddReferenceToThis(slot)
	}
}

func (c *Context) afterValueChanged(h Handle) {
	obj := h.Object()
	if b := obj.desc.Behavior; b != nil {
		b.OnAfterValueChanged(c, h)
	}
	c.callReferencedObjectChangedHandlers(obj)
	c.changes.RecordValueChanged(h)
	if v := h.Value(); v != nil && v.HasAnnotation(data.AnnotationURI) {
		c.registerURIListener(obj, h)
	}
}

func (c *Context) callReferencedObjectChangedHandlers(obj *Object) {
	for _, id := range obj.ReferencingObjectIDs() {
		owner := c.project.Object(id)
		if owner == nil || owner == obj || owner.desc.Behavior == nil {
			continue
		}
		owner.desc.Behavior.OnAfterReferencedObjectChanged(c, owner, obj)
	}
}
