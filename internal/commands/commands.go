// Package commands implements the user-level editing operations. Every
// successful operation is validated up front and committed as exactly one
// undo entry.
package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
	"github.com/ajitpratap0/scenecore/internal/metrics"
	"github.com/ajitpratap0/scenecore/internal/undo"
	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

var (
	// ErrFeatureLevel is returned when a type needs a higher feature level
	// than the project allows.
	ErrFeatureLevel = errors.New("type not available at feature level")

	// ErrInvalidLink is returned when a link endpoint is not linkable.
	ErrInvalidLink = errors.New("invalid link")
)

// ReadOnlyError is returned for edits of a property marked read-only or of
// an object imported from another project. It matches core.ErrReadOnly.
type ReadOnlyError struct {
	Handle core.Handle
	Reason string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("%s: %s %s", core.ErrReadOnly, e.Handle, e.Reason)
}

func (e *ReadOnlyError) Unwrap() error { return core.ErrReadOnly }

// Interface runs commands against a context and records them in an undo stack.
type Interface struct {
	ctx          *core.Context
	stack        *undo.Stack
	featureLevel int
	logger       *slog.Logger
	noMerge      bool
}

// New creates a command interface.
func New(ctx *core.Context, stack *undo.Stack, featureLevel int, logger *slog.Logger) *Interface {
	if logger == nil {
		logger = ctx.Logger()
	}
	return &Interface{
		ctx:          ctx,
		stack:        stack,
		featureLevel: featureLevel,
		logger:       logger,
	}
}

func (i *Interface) Context() *core.Context { return i.ctx }
func (i *Interface) Stack() *undo.Stack     { return i.stack }
func (i *Interface) FeatureLevel() int      { return i.featureLevel }

// SetMergeEdits controls whether consecutive numeric edits of the same
// property collapse into one undo entry. It is on by default.
func (i *Interface) SetMergeEdits(on bool) { i.noMerge = !on }

// commit pushes the pending model changes. Operations that changed nothing
// leave the stack alone.
func (i *Interface) commit(description, mergeID string) error {
	if i.ctx.ModelChanges().IsEmpty() {
		return nil
	}
	if err := i.stack.Push(description, mergeID); err != nil {
		return fmt.Errorf("committing %q: %w", description, err)
	}
	return nil
}

// abort throws away the changes of a failed operation by restoring the
// current undo entry.
func (i *Interface) abort(op string, cause error) error {
	if i.ctx.ModelChanges().IsEmpty() {
		return cause
	}
	if _, err := i.stack.SetIndex(i.stack.Index(), true); err != nil {
		i.logger.Error("rolling back failed command", "command", op, "error", err)
	}
	return cause
}

func (i *Interface) checkObject(obj *core.Object) error {
	if obj == nil || !i.ctx.Project().Contains(obj) {
		name := "<nil>"
		if obj != nil {
			name = obj.Name()
		}
		return fmt.Errorf("%w: %s", core.ErrNotInProject, name)
	}
	return nil
}

func (i *Interface) checkObjects(objs []*core.Object) error {
	for _, o := range objs {
		if err := i.checkObject(o); err != nil {
			return err
		}
	}
	return nil
}

func (i *Interface) checkHandle(h core.Handle) error {
	if err := i.checkObject(h.Object()); err != nil {
		return err
	}
	if !h.IsValid() {
		return fmt.Errorf("%w: %s", core.ErrInvalidHandle, h)
	}
	return nil
}

// checkEditable refuses writes to the value at h when it carries the
// ReadOnly annotation or its object is an external reference.
func checkEditable(h core.Handle) error {
	if ext, ok := core.ObjectAnnotation[*data.ExternalReference](h.Object()); ok {
		return &ReadOnlyError{Handle: h, Reason: fmt.Sprintf("belongs to external project %q", ext.ProjectID)}
	}
	if v := h.Value(); v != nil && v.HasAnnotation(data.AnnotationReadOnly) {
		return &ReadOnlyError{Handle: h, Reason: "is read-only"}
	}
	return nil
}

// CreateObject creates an object of typeName. With a parent that accepts
// it, the object becomes the parent's last child; otherwise it stays at the
// top level.
func (i *Interface) CreateObject(typeName, name string, parent *core.Object) (*core.Object, error) {
	desc, ok := i.ctx.Factory().Descriptor(typeName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownType, typeName)
	}
	if desc.FeatureLevel > i.featureLevel {
		return nil, fmt.Errorf("%w: %s needs %d, project has %d", ErrFeatureLevel, typeName, desc.FeatureLevel, i.featureLevel)
	}
	if parent != nil {
		if err := i.checkObject(parent); err != nil {
			return nil, err
		}
	}

	obj, err := i.ctx.CreateObject(typeName, name, "")
	if err != nil {
		return nil, i.abort("create", err)
	}
	if parent != nil && canMove(obj, parent) {
		if err := i.ctx.MoveScenegraphChild(obj, parent, -1); err != nil {
			return nil, i.abort("create", err)
		}
	}
	metrics.Inc(metrics.ObjectsCreated)
	if err := i.commit(fmt.Sprintf("Create '%s' (%s)", name, typeName), ""); err != nil {
		return nil, err
	}
	return obj, nil
}

// DeleteObjects deletes objs together with their children and returns the
// number of deleted objects.
func (i *Interface) DeleteObjects(objs []*core.Object) (int, error) {
	if len(objs) == 0 {
		return 0, nil
	}
	if err := i.checkObjects(objs); err != nil {
		return 0, err
	}
	n, err := i.ctx.DeleteObjects(objs, true)
	if err != nil {
		return 0, i.abort("delete", err)
	}
	metrics.Add(metrics.ObjectsDeleted, n)
	if err := i.commit(fmt.Sprintf("Delete %d object(s)", n), ""); err != nil {
		return 0, err
	}
	return n, nil
}

func canMove(obj, parent *core.Object) bool {
	if parent == nil {
		return true
	}
	return obj.Descriptor().CanBeChild && parent.Descriptor().CanHaveChildren
}

// MoveScenegraphChildren moves objs under newParent, or to the top level
// when newParent is nil, keeping their order. Objects that cannot live
// there are skipped, as are moves into an object's own subtree. It returns
// the number of moved objects.
func (i *Interface) MoveScenegraphChildren(objs []*core.Object, newParent *core.Object, insertBefore int) (int, error) {
	if err := i.checkObjects(objs); err != nil {
		return 0, err
	}
	if newParent != nil {
		if err := i.checkObject(newParent); err != nil {
			return 0, err
		}
		if n := len(newParent.Children()); insertBefore < -1 || insertBefore > n {
			return 0, fmt.Errorf("%w: index %d, %s has %d children", data.ErrOutOfRange, insertBefore, newParent.Name(), n)
		}
	} else if n := len(i.ctx.Project().RootObjects()); insertBefore < -1 || insertBefore > n {
		return 0, fmt.Errorf("%w: index %d, %d top-level objects", data.ErrOutOfRange, insertBefore, n)
	}

	moved := 0
	index := insertBefore
	for _, o := range objs {
		if !canMove(o, newParent) {
			continue
		}
		if newParent != nil && (newParent == o || newParent.IsDescendantOf(o)) {
			continue
		}
		if err := i.ctx.MoveScenegraphChild(o, newParent, index); err != nil {
			return 0, i.abort("move", err)
		}
		if newParent != nil && index != -1 {
			index = newParent.ChildIndex(o) + 1
		}
		moved++
	}
	if moved == 0 {
		return 0, nil
	}
	if err := i.commit(fmt.Sprintf("Move %d object(s)", moved), ""); err != nil {
		return 0, err
	}
	return moved, nil
}

// Duplicate copies every object in objs with its subtree. Objects whose
// ancestor is also in objs are copied only as part of that ancestor, and
// objects imported from another project are skipped.
func (i *Interface) Duplicate(objs []*core.Object) ([]*core.Object, error) {
	if err := i.checkObjects(objs); err != nil {
		return nil, err
	}
	selected := make(map[*core.Object]bool, len(objs))
	for _, o := range objs {
		selected[o] = true
	}
	var copies []*core.Object
	for _, o := range objs {
		if hasSelectedAncestor(o, selected) || core.IsExternalReference(o) {
			continue
		}
		tree, err := i.ctx.DuplicateTree(o, o.Parent(), core.NewObjectID())
		if err != nil {
			return nil, i.abort("duplicate", err)
		}
		copies = append(copies, tree[0])
		metrics.Add(metrics.ObjectsCreated, len(tree))
	}
	if err := i.commit(fmt.Sprintf("Duplicate %d object(s)", len(copies)), ""); err != nil {
		return nil, err
	}
	return copies, nil
}

func hasSelectedAncestor(o *core.Object, selected map[*core.Object]bool) bool {
	for p := o.Parent(); p != nil; p = p.Parent() {
		if selected[p] {
			return true
		}
	}
	return false
}

// UpdatePrefabInstances rebuilds every instance in objs from its template
// as one undo entry. Instances that are already up to date add nothing.
func (i *Interface) UpdatePrefabInstances(objs []*core.Object) error {
	if err := i.checkObjects(objs); err != nil {
		return err
	}
	for _, o := range objs {
		if !o.IsA(usertypes.TypePrefabInstance) {
			return fmt.Errorf("%w: %s is a %s", data.ErrTypeMismatch, o.Name(), o.TypeName())
		}
	}
	for _, o := range objs {
		if err := usertypes.UpdatePrefabInstance(i.ctx, o); err != nil {
			return i.abort("update-prefab", err)
		}
	}
	return i.commit(fmt.Sprintf("Update %d prefab instance(s)", len(objs)), "")
}

// AddLink connects start to end. Both endpoints must exist and carry the
// link start and link end annotations respectively.
func (i *Interface) AddLink(start, end core.PropertyDescriptor, weak bool) (*core.Link, error) {
	if err := i.checkObject(start.Object); err != nil {
		return nil, err
	}
	if err := i.checkObject(end.Object); err != nil {
		return nil, err
	}
	sh, ok := start.Resolve()
	if !ok || !sh.Value().HasAnnotation(data.AnnotationLinkStart) {
		return nil, fmt.Errorf("%w: %s is not a link start", ErrInvalidLink, start)
	}
	eh, ok := end.Resolve()
	if !ok || !eh.Value().HasAnnotation(data.AnnotationLinkEnd) {
		return nil, fmt.Errorf("%w: %s is not a link end", ErrInvalidLink, end)
	}

	l, err := i.ctx.AddLink(start, end, weak)
	if err != nil {
		if errors.Is(err, core.ErrCycle) {
			metrics.Inc(metrics.CyclesRejected)
		}
		return nil, i.abort("link", err)
	}
	metrics.Inc(metrics.LinksAdded)
	if err := i.commit(fmt.Sprintf("Link %s to %s", start, end), ""); err != nil {
		return nil, err
	}
	return l, nil
}

// RemoveLink removes the link ending at end. It reports whether a link existed.
func (i *Interface) RemoveLink(end core.PropertyDescriptor) (bool, error) {
	if err := i.checkObject(end.Object); err != nil {
		return false, err
	}
	removed, err := i.ctx.RemoveLink(end)
	if err != nil {
		return false, i.abort("unlink", err)
	}
	if !removed {
		return false, nil
	}
	if err := i.commit(fmt.Sprintf("Remove link to %s", end), ""); err != nil {
		return false, err
	}
	return true, nil
}

// Undo restores the previous undo entry.
func (i *Interface) Undo() error { return i.stack.Undo() }

// Redo restores the next undo entry.
func (i *Interface) Redo() error { return i.stack.Redo() }

func mergeID(h core.Handle) string { return "set:" + h.Key() }

func (i *Interface) set(h core.Handle, shown string, merge bool, apply func() error) error {
	if err := i.checkHandle(h); err != nil {
		return err
	}
	if err := checkEditable(h); err != nil {
		return err
	}
	if err := apply(); err != nil {
		return i.abort("set", err)
	}
	id := ""
	if merge && !i.noMerge {
		id = mergeID(h)
	}
	return i.commit(fmt.Sprintf("Set property '%s' to %s", h, shown), id)
}

func (i *Interface) SetBool(h core.Handle, b bool) error {
	return i.set(h, strconv.FormatBool(b), false, func() error { return i.ctx.SetBool(h, b) })
}

func (i *Interface) SetInt(h core.Handle, v int32) error {
	return i.set(h, strconv.FormatInt(int64(v), 10), true, func() error { return i.ctx.SetInt(h, v) })
}

func (i *Interface) SetInt64(h core.Handle, v int64) error {
	return i.set(h, strconv.FormatInt(v, 10), true, func() error { return i.ctx.SetInt64(h, v) })
}

func (i *Interface) SetDouble(h core.Handle, v float64) error {
	return i.set(h, strconv.FormatFloat(v, 'g', -1, 64), true, func() error { return i.ctx.SetDouble(h, v) })
}

func (i *Interface) SetString(h core.Handle, s string) error {
	return i.set(h, strconv.Quote(s), false, func() error { return i.ctx.SetString(h, s) })
}

func (i *Interface) SetStruct(h core.Handle, s *data.Struct) error {
	return i.set(h, s.String(), true, func() error { return i.ctx.SetStruct(h, s) })
}

// SetRef points the reference at h to target; a nil target clears it.
func (i *Interface) SetRef(h core.Handle, target *core.Object) error {
	shown := "<none>"
	if target != nil {
		if err := i.checkObject(target); err != nil {
			return err
		}
		shown = "'" + target.Name() + "'"
	}
	return i.set(h, shown, false, func() error { return i.ctx.SetRef(h, target) })
}

func (i *Interface) SetName(obj *core.Object, name string) error {
	h := core.PropertyHandle(obj, core.PropObjectName)
	return i.set(h, strconv.Quote(name), false, func() error { return i.ctx.SetName(obj, name) })
}

func (i *Interface) SetTags(obj *core.Object, tags []string) error {
	h := core.PropertyHandle(obj, core.PropUserTags)
	return i.set(h, "["+strings.Join(tags, ", ")+"]", false, func() error { return i.ctx.SetTags(obj, tags) })
}

// AddProperty appends a default value of typeName to the table at h.
func (i *Interface) AddProperty(h core.Handle, name, typeName string) (core.Handle, error) {
	if err := i.checkHandle(h); err != nil {
		return core.Handle{}, err
	}
	if err := checkEditable(h); err != nil {
		return core.Handle{}, err
	}
	v, err := i.ctx.Factory().CreateValue(typeName)
	if err != nil {
		return core.Handle{}, err
	}
	added, err := i.ctx.AddProperty(h, name, v, -1)
	if err != nil {
		return core.Handle{}, i.abort("add property", err)
	}
	if err := i.commit(fmt.Sprintf("Add property '%s' to '%s'", name, h), ""); err != nil {
		return core.Handle{}, err
	}
	return added, nil
}

// RemoveProperty removes the entry called name from the table at h.
func (i *Interface) RemoveProperty(h core.Handle, name string) error {
	if err := i.checkHandle(h); err != nil {
		return err
	}
	if err := checkEditable(h); err != nil {
		return err
	}
	if err := i.ctx.RemoveNamedProperty(h, name); err != nil {
		return i.abort("remove property", err)
	}
	return i.commit(fmt.Sprintf("Remove property '%s' from '%s'", name, h), "")
}
