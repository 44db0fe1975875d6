package core

import (
	"fmt"
	"sort"

	"github.com/ajitpratap0/scenecore/internal/data"
)

// CreateObject constructs an object through the factory and adds it to the
// project as a top-level object. An empty id generates a fresh one.
func (c *Context) CreateObject(typeName, name, id string) (*Object, error) {
	obj, err := c.factory.CreateObject(typeName, name, id)
	if err != nil {
		return nil, err
	}
	if err := c.project.AddInstance(obj); err != nil {
		return nil, fmt.Errorf("creating %s %q: %w", typeName, name, err)
	}
	c.activate(obj)
	c.changes.RecordCreateObject(obj)
	c.logger.Debug("object created", "type", typeName, "name", name, "id", obj.ObjectID())
	return obj, nil
}

// DeleteObjects removes objs, and their descendants when includeChildren is
// set, from the project. Links touching a deleted object are removed.
// References held by surviving objects are nulled, or erased when they sit
// in an array table. It returns the number of deleted objects.
func (c *Context) DeleteObjects(objs []*Object, includeChildren bool) (int, error) {
	for _, o := range objs {
		if err := c.checkWritable(o); err != nil {
			return 0, err
		}
	}

	var doomed []*Object
	inDoomed := make(map[*Object]bool)
	for _, o := range objs {
		subtree := []*Object{o}
		if includeChildren {
			subtree = TreeWalk(o)
		}
		for _, d := range subtree {
			if !inDoomed[d] {
				inDoomed[d] = true
				doomed = append(doomed, d)
			}
		}
	}

	for _, o := range doomed {
		for _, l := range c.project.LinksConnectedTo(o, true, true) {
			c.removeLink(*l)
		}
	}
	if err := c.removeReferencesTo(doomed, inDoomed); err != nil {
		return 0, err
	}
	c.DeleteWithVolatileSideEffects(doomed)
	for _, o := range doomed {
		c.changes.RecordDeleteObject(o)
	}
	c.logger.Debug("objects deleted", "count", len(doomed))
	return len(doomed), nil
}

func (c *Context) removeReferencesTo(targets []*Object, skip map[*Object]bool) error {
	for _, target := range targets {
		for _, ownerID := range target.ReferencingObjectIDs() {
			owner := c.project.Object(ownerID)
			if owner == nil || skip[owner] {
				continue
			}
			var slots []Handle
			for _, slot := range owner.ReferenceSlots() {
				if refObject(slot.Value()) == target {
					slots = append(slots, slot)
				}
			}
			// Last slot first so earlier array indices stay valid.
			for i := len(slots) - 1; i >= 0; i-- {
				slot := slots[i]
				parent := slot.Parent()
				var err error
				if data.IsArray(parent.Value()) {
					err = c.RemoveProperty(parent, slot.Index())
				} else {
					err = c.SetRef(slot, nil)
				}
				if err != nil {
					return fmt.Errorf("dropping reference %s to %s: %w", slot, target.Name(), err)
				}
			}
		}
	}
	return nil
}

// DeleteWithVolatileSideEffects releases the volatile state of objs (the
// back-references they contribute, file listeners and type resources) and
// removes them from the project. Recording is left to the caller.
func (c *Context) DeleteWithVolatileSideEffects(objs []*Object) {
	for _, o := range objs {
		root := ObjectHandle(o)
		for _, slot := range o.ReferenceSlots() {
			refObject(slot.Value()).OnBeforeRemoveReferenceToThis(slot, root)
		}
		if b := o.desc.Behavior; b != nil {
			b.OnBeforeDeleteObject(c, o)
		}
		c.releaseListeners(o)
		c.errors.RemoveAll(o)
	}
	c.project.RemoveInstances(objs)
}

// MoveScenegraphChild detaches obj from its parent and inserts it into the
// children of newParent before insertBefore (-1 appends). A nil newParent
// makes obj a top-level object. Moves that leave the tree unchanged do nothing.
func (c *Context) MoveScenegraphChild(obj, newParent *Object, insertBefore int) error {
	if err := c.checkWritable(obj); err != nil {
		return err
	}
	oldParent := obj.parent
	oldIndex := -1
	if oldParent != nil {
		oldIndex = oldParent.ChildIndex(obj)
	}

	if newParent != nil {
		if err := c.checkWritable(newParent); err != nil {
			return err
		}
		if newParent == obj || newParent.IsDescendantOf(obj) {
			return fmt.Errorf("%w: %s into %s", ErrOwnershipCycle, obj.Name(), newParent.Name())
		}
		if n := childCount(newParent); insertBefore < -1 || insertBefore > n {
			return fmt.Errorf("moving %s: %w: index %d, size %d", obj.Name(), data.ErrOutOfRange, insertBefore, n)
		}
	}

	if oldParent == newParent {
		if newParent == nil {
			return nil
		}
		last := childCount(newParent) - 1
		if insertBefore == oldIndex || insertBefore == oldIndex+1 || (insertBefore == -1 && oldIndex == last) {
			return nil
		}
		if insertBefore > oldIndex {
			insertBefore--
		}
	}

	if oldParent != nil {
		if err := c.RemoveProperty(oldParent.ChildrenHandle(), oldIndex); err != nil {
			return err
		}
	}
	if newParent != nil {
		ref := data.NewRef("")
		if _, err := ref.SetRef(obj); err != nil {
			return err
		}
		if _, err := c.AddProperty(newParent.ChildrenHandle(), "", ref, insertBefore); err != nil {
			return err
		}
	}
	return nil
}

func childCount(o *Object) int {
	tbl, _ := o.props[childrenIndex].Value.AsTable()
	return tbl.Size()
}

// DuplicateTree copies root and all its descendants. The copy of root gets
// newRootID and a name that is unique among its new siblings; descendant
// IDs are derived from newRootID and the original IDs so repeated
// duplication is deterministic. References inside the subtree are rewritten
// to the copies; references leaving it are kept. Links ending inside the
// subtree are copied. Objects imported from another project, with their
// subtrees, are left out of the copy. The root copy is attached to
// newParent, or left at the top level when newParent is nil.
func (c *Context) DuplicateTree(root, newParent *Object, newRootID string) ([]*Object, error) {
	if err := c.checkWritable(root); err != nil {
		return nil, err
	}
	if IsExternalReference(root) {
		return nil, fmt.Errorf("duplicating %s: %w: imported from another project", root.Name(), ErrReadOnly)
	}
	if newParent != nil {
		if err := c.checkWritable(newParent); err != nil {
			return nil, err
		}
	}

	newRootID = NormalizedObjectID(newRootID)
	originals := localTreeWalk(root)
	ids := make(map[*Object]string, len(originals))
	for _, o := range originals {
		id := newRootID
		if o != root {
			id = XorObjectIDs(newRootID, o.ObjectID())
		}
		if c.project.Object(id) != nil {
			return nil, fmt.Errorf("duplicating %s: %w: %s", root.Name(), ErrDuplicateID, id)
		}
		ids[o] = id
	}

	siblings := c.project.RootObjects()
	if newParent != nil {
		siblings = newParent.Children()
	}
	copies := make(map[*Object]*Object, len(originals))
	out := make([]*Object, 0, len(originals))
	for _, o := range originals {
		name := o.Name()
		if o == root {
			name = FindAvailableUniqueName(siblings, name)
		}
		cp, err := c.factory.CreateObject(o.TypeName(), name, ids[o])
		if err != nil {
			return nil, err
		}
		copies[o] = cp
		out = append(out, cp)
	}

	tr := data.Translator(func(r data.Referent) data.Referent {
		if o, ok := r.(*Object); ok {
			if cp := copies[o]; cp != nil {
				return cp
			}
		}
		return r
	})
	for _, o := range originals {
		cp := copies[o]
		props := o.props.Clone(tr)
		props[idIndex] = cp.props[idIndex]
		props[nameIndex] = cp.props[nameIndex]
		cp.props = props
		cp.annos = data.CloneAnnotations(o.annos)
		dropForeignChildren(cp, copies)
	}
	for _, cp := range out {
		if err := c.project.AddInstance(cp); err != nil {
			return nil, err
		}
	}
	for _, cp := range out {
		cp.OnAfterDeserialization()
	}
	for _, cp := range out {
		c.activate(cp)
		c.changes.RecordCreateObject(cp)
	}

	for _, l := range c.project.Links() {
		if copies[l.End.Object] == nil {
			continue
		}
		nl, ok := CloneLinkWithTranslation(*l, func(o *Object) *Object {
			if cp := copies[o]; cp != nil {
				return cp
			}
			return o
		})
		if !ok {
			continue
		}
		c.project.AddLink(&nl)
		c.changes.RecordAddLink(nl)
		c.updateBrokenLinkError(nl.End.Object)
	}

	if newParent != nil {
		if err := c.MoveScenegraphChild(copies[root], newParent, -1); err != nil {
			return nil, err
		}
	}
	c.logger.Debug("tree duplicated", "root", root.Name(), "copies", len(out))
	return out, nil
}

// IsExternalReference reports whether obj was imported from another project.
func IsExternalReference(obj *Object) bool {
	_, ok := ObjectAnnotation[*data.ExternalReference](obj)
	return ok
}

// localTreeWalk is TreeWalk without imported objects and their subtrees.
func localTreeWalk(root *Object) []*Object {
	var out []*Object
	skipped := make(map[*Object]bool)
	for _, o := range TreeWalk(root) {
		if o != root && (IsExternalReference(o) || skipped[o.Parent()]) {
			skipped[o] = true
			continue
		}
		out = append(out, o)
	}
	return out
}

// dropForeignChildren removes children entries of cp that do not point to
// one of the copies.
func dropForeignChildren(cp *Object, copies map[*Object]*Object) {
	copied := make(map[*Object]bool, len(copies))
	for _, c := range copies {
		copied[c] = true
	}
	tbl, _ := cp.props[childrenIndex].Value.AsTable()
	for i := tbl.Size() - 1; i >= 0; i-- {
		if !copied[refObject(tbl.At(i))] {
			_ = tbl.RemoveProperty(i)
		}
	}
}

// PerformExternalFileReload re-activates objs: file listeners are
// registered again, type activation hooks run, and objects that reference
// them are told about the change. Broken-link warnings are recomputed for
// objs and for every object that already had one.
func (c *Context) PerformExternalFileReload(objs []*Object) {
	for _, o := range objs {
		if c.project.Contains(o) {
			c.activate(o)
		}
	}
	for _, o := range objs {
		if c.project.Contains(o) {
			c.callReferencedObjectChangedHandlers(o)
		}
	}

	stale := append([]*Object(nil), objs...)
	for _, item := range c.errors.Items() {
		if item.Category == CategoryBrokenLink {
			stale = append(stale, item.Handle.Object())
		}
	}
	for _, o := range stale {
		if c.project.Contains(o) {
			c.updateBrokenLinkError(o)
		} else {
			c.errors.RemoveAll(o)
		}
	}
}

func (c *Context) activate(obj *Object) {
	c.registerURIListeners(obj)
	for i := 0; i < obj.Size(); i++ {
		if obj.At(i).Kind() == data.KindRef {
			c.updateEmptyReferenceError(NewHandle(obj, i))
		}
	}
	if b := obj.desc.Behavior; b != nil {
		b.OnAfterContextActivated(c, obj)
	}
}

func (c *Context) registerURIListeners(obj *Object) {
	c.releaseListeners(obj)
	for i := 0; i < obj.Size(); i++ {
		if v := obj.At(i); v.Kind() == data.KindString && v.HasAnnotation(data.AnnotationURI) {
			c.registerURIListener(obj, NewHandle(obj, i))
		}
	}
}

func (c *Context) registerURIListener(obj *Object, h Handle) {
	key := h.PathKey()
	if old := obj.listeners[key]; old != nil {
		closeListener(old)
		delete(obj.listeners, key)
	}
	path, err := h.Value().AsString()
	if err != nil || path == "" {
		return
	}
	ul := &uriListener{path: path, handle: h}
	if c.monitor != nil {
		l, err := c.monitor.Register(path, func() { c.notifyFileChanged(obj, key) })
		if err != nil {
			c.logger.Warn("registering file listener", "object", obj.Name(), "path", path, "error", err)
		}
		ul.listener = l
	}
	if obj.listeners == nil {
		obj.listeners = make(map[string]*uriListener)
	}
	obj.listeners[key] = ul
}

func (c *Context) releaseListeners(obj *Object) {
	for key, ul := range obj.listeners {
		closeListener(ul)
		delete(obj.listeners, key)
	}
}

func closeListener(ul *uriListener) {
	if ul.listener != nil {
		_ = ul.listener.Close()
	}
}

func (c *Context) notifyFileChanged(obj *Object, key string) {
	if !c.project.Contains(obj) {
		return
	}
	ul := obj.listeners[key]
	if ul == nil {
		return
	}
	c.changes.RecordPreviewDirty(obj)
	if b := obj.desc.Behavior; b != nil {
		b.OnExternalFileChanged(c, obj, ul.handle)
	}
}

// DispatchFileChange delivers a change notification for path to every
// object with a URI property naming it. It returns the number of
// notified properties.
func (c *Context) DispatchFileChange(path string) int {
	n := 0
	for _, o := range c.project.Instances() {
		keys := make([]string, 0, len(o.listeners))
		for key, ul := range o.listeners {
			if ul.path == path {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
		for _, key := range keys {
			c.notifyFileChanged(o, key)
			n++
		}
	}
	return n
}
