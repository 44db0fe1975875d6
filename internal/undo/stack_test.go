package undo_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
	"github.com/ajitpratap0/scenecore/internal/undo"
	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

type fixture struct {
	ctx     *core.Context
	stack   *undo.Stack
	changed int
}

func newFixture(t *testing.T, opts ...core.Option) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{ctx: core.NewContext(nil, usertypes.NewFactory(), logger, opts...)}
	s, err := undo.New(f.ctx, func() { f.changed++ }, logger)
	require.NoError(t, err)
	f.stack = s
	return f
}

func (f *fixture) create(t *testing.T, typeName, name string) *core.Object {
	t.Helper()
	obj, err := f.ctx.CreateObject(typeName, name, "")
	require.NoError(t, err)
	return obj
}

func (f *fixture) push(t *testing.T, desc, mergeID string) {
	t.Helper()
	require.NoError(t, f.stack.Push(desc, mergeID))
}

func double(t *testing.T, obj *core.Object, names ...string) float64 {
	t.Helper()
	d, err := core.PropertyHandle(obj, names...).Value().AsDouble()
	require.NoError(t, err)
	return d
}

func TestStack_Initial(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, 1, f.stack.Size())
	assert.Equal(t, 0, f.stack.Index())
	assert.False(t, f.stack.CanUndo())
	assert.False(t, f.stack.CanRedo())
	desc, err := f.stack.Description(0)
	require.NoError(t, err)
	assert.Equal(t, undo.InitialDescription, desc)
	assert.True(t, f.stack.Snapshot(0).Frozen())

	require.NoError(t, f.stack.Undo())
	assert.Equal(t, 0, f.stack.Index())
}

func TestStack_UndoRedoCreateObject(t *testing.T) {
	f := newFixture(t)
	node := f.create(t, usertypes.TypeNode, "node")
	id := node.ObjectID()
	f.push(t, "create node", "")
	f.ctx.UIChanges().Reset()

	require.NoError(t, f.stack.Undo())
	assert.Nil(t, f.ctx.Project().Object(id))
	assert.Empty(t, f.ctx.ModelChanges().CreatedObjects())
	assert.Len(t, f.ctx.UIChanges().DeletedObjects(), 1)

	require.NoError(t, f.stack.Redo())
	restored := f.ctx.Project().Object(id)
	require.NotNil(t, restored)
	assert.Equal(t, "node", restored.Name())
	assert.False(t, restored.Frozen())
	assert.Equal(t, 1.0, double(t, restored, "scale", "y"))
}

func TestStack_UndoRedoValues(t *testing.T) {
	f := newFixture(t)
	node := f.create(t, usertypes.TypeNode, "node")
	f.push(t, "create", "")

	require.NoError(t, f.ctx.SetDouble(core.PropertyHandle(node, "translation", "x"), 4))
	require.NoError(t, f.ctx.SetName(node, "renamed"))
	f.push(t, "edit", "")

	require.NoError(t, f.stack.Undo())
	assert.Equal(t, 0.0, double(t, node, "translation", "x"), "live object is updated in place")
	assert.Equal(t, "node", node.Name())

	require.NoError(t, f.stack.Redo())
	assert.Equal(t, 4.0, double(t, node, "translation", "x"))
	assert.Equal(t, "renamed", node.Name())
}

func TestStack_UndoRestoresReferencesAndLinks(t *testing.T) {
	f := newFixture(t)
	mesh := f.create(t, usertypes.TypeMesh, "mesh")
	a := f.create(t, usertypes.TypeMeshNode, "a")
	b := f.create(t, usertypes.TypeNode, "b")
	require.NoError(t, f.ctx.SetRef(core.PropertyHandle(a, "mesh"), mesh))
	_, err := f.ctx.AddLink(core.Describe(a, "translation"), core.Describe(b, "translation"), false)
	require.NoError(t, err)
	f.push(t, "setup", "")

	n, err := f.ctx.DeleteObjects([]*core.Object{mesh, a}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, f.ctx.Project().Links())
	f.push(t, "delete", "")

	require.NoError(t, f.stack.Undo())

	restoredA := f.ctx.Project().Object(a.ObjectID())
	restoredMesh := f.ctx.Project().Object(mesh.ObjectID())
	require.NotNil(t, restoredA)
	require.NotNil(t, restoredMesh)
	target, err := restoredA.Lookup("mesh").AsRef()
	require.NoError(t, err)
	assert.Same(t, restoredMesh, target)
	assert.True(t, restoredMesh.IsReferencedBy(restoredA.ObjectID()))

	links := f.ctx.Project().Links()
	require.Len(t, links, 1)
	assert.Same(t, restoredA, links[0].Start.Object)
	assert.Same(t, b, links[0].End.Object)
	assert.True(t, links[0].Valid)

	require.NoError(t, f.stack.Redo())
	assert.Nil(t, f.ctx.Project().Object(a.ObjectID()))
	assert.Empty(t, f.ctx.Project().Links())
}

func TestStack_MergeCoalescesValueEdits(t *testing.T) {
	f := newFixture(t)
	node := f.create(t, usertypes.TypeNode, "node")
	f.push(t, "create", "")
	x := core.PropertyHandle(node, "translation", "x")

	for _, v := range []float64{1, 2, 3} {
		require.NoError(t, f.ctx.SetDouble(x, v))
		f.push(t, "drag", "drag-x")
	}
	assert.Equal(t, 3, f.stack.Size())

	require.NoError(t, f.stack.Undo())
	assert.Equal(t, 0.0, double(t, node, "translation", "x"))
	require.NoError(t, f.stack.Redo())
	assert.Equal(t, 3.0, double(t, node, "translation", "x"))
}

func TestStack_StructuralChangesDoNotMerge(t *testing.T) {
	f := newFixture(t)
	f.create(t, usertypes.TypeNode, "a")
	f.push(t, "create a", "same")
	f.create(t, usertypes.TypeNode, "b")
	f.push(t, "create b", "same")

	assert.Equal(t, 3, f.stack.Size())
}

func TestStack_MergedEntryLeavesEarlierSnapshotsIntact(t *testing.T) {
	f := newFixture(t)
	node := f.create(t, usertypes.TypeNode, "node")
	f.push(t, "create", "")
	first := f.stack.Snapshot(1)

	require.NoError(t, f.ctx.SetDouble(core.PropertyHandle(node, "rotation", "z"), 90))
	f.push(t, "rotate", "r")
	require.NoError(t, f.ctx.SetDouble(core.PropertyHandle(node, "rotation", "z"), 45))
	f.push(t, "rotate", "r")

	assert.Same(t, first, f.stack.Snapshot(1))
	assert.Equal(t, 0.0, double(t, first.Object(node.ObjectID()), "rotation", "z"))
	assert.Equal(t, 45.0, double(t, f.stack.Snapshot(2).Object(node.ObjectID()), "rotation", "z"))
}

func TestStack_UnchangedObjectsAreShared(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, usertypes.TypeNode, "a")
	b := f.create(t, usertypes.TypeNode, "b")
	f.push(t, "create", "")

	require.NoError(t, f.ctx.SetBool(core.PropertyHandle(a, "visibility"), false))
	f.push(t, "hide a", "")

	prev, cur := f.stack.Snapshot(1), f.stack.Snapshot(2)
	assert.Same(t, prev.Object(b.ObjectID()), cur.Object(b.ObjectID()))
	assert.NotSame(t, prev.Object(a.ObjectID()), cur.Object(a.ObjectID()))
}

func TestStack_PushTruncatesRedo(t *testing.T) {
	f := newFixture(t)
	f.create(t, usertypes.TypeNode, "a")
	f.push(t, "a", "")
	f.create(t, usertypes.TypeNode, "b")
	f.push(t, "b", "")

	require.NoError(t, f.stack.Undo())
	assert.True(t, f.stack.CanRedo())

	f.create(t, usertypes.TypeNode, "c")
	f.push(t, "c", "")

	assert.Equal(t, 3, f.stack.Size())
	assert.False(t, f.stack.CanRedo())
	desc, err := f.stack.Description(2)
	require.NoError(t, err)
	assert.Equal(t, "c", desc)
}

func TestStack_SetIndex(t *testing.T) {
	f := newFixture(t)
	f.create(t, usertypes.TypeNode, "a")
	f.push(t, "a", "")
	f.create(t, usertypes.TypeNode, "b")
	f.push(t, "b", "")

	_, err := f.stack.SetIndex(5, false)
	assert.ErrorIs(t, err, data.ErrOutOfRange)
	_, err = f.stack.Description(-1)
	assert.ErrorIs(t, err, data.ErrOutOfRange)
	assert.Nil(t, f.stack.Snapshot(3))

	index, err := f.stack.SetIndex(0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Zero(t, f.ctx.Project().Len())

	before := f.changed
	_, err = f.stack.SetIndex(0, false)
	require.NoError(t, err)
	assert.Equal(t, before, f.changed, "restoring the current entry is a no-op")
	_, err = f.stack.SetIndex(0, true)
	require.NoError(t, err)
	assert.Equal(t, before+1, f.changed)

	_, err = f.stack.SetIndex(2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.ctx.Project().Len())
}

func TestStack_Reset(t *testing.T) {
	f := newFixture(t)
	f.create(t, usertypes.TypeNode, "a")
	f.push(t, "a", "")

	require.NoError(t, f.stack.Reset())
	assert.Equal(t, 1, f.stack.Size())
	assert.Equal(t, 1, f.stack.Snapshot(0).Len())
}

type failingUpdater struct{ calls int }

func (u *failingUpdater) UpdateExternalReferences(*core.Context) error {
	u.calls++
	return errors.New("remote project unavailable")
}

func TestStack_FailedRestoreDrainsChanges(t *testing.T) {
	upd := &failingUpdater{}
	f := newFixture(t, core.WithExternalReferenceUpdater(upd))
	f.create(t, usertypes.TypeNode, "a")
	f.push(t, "a", "")
	f.ctx.UIChanges().Reset()
	before := f.changed

	err := f.stack.Undo()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "updating external references")
	assert.Equal(t, 1, upd.calls)

	assert.Equal(t, 0, f.stack.Index())
	assert.Equal(t, before+1, f.changed)
	assert.True(t, f.ctx.ModelChanges().IsEmpty())
	assert.False(t, f.ctx.UIChanges().IsEmpty())
}

func TestStack_FailedPushKeepsRedoHistory(t *testing.T) {
	f := newFixture(t)
	f.create(t, usertypes.TypeNode, "a")
	f.push(t, "a", "")
	f.create(t, usertypes.TypeNode, "b")
	f.push(t, "b", "")
	require.NoError(t, f.stack.Undo())
	require.True(t, f.stack.CanRedo())

	// An object whose type the context's factory cannot rebuild.
	foreign := core.NewFactory()
	require.NoError(t, foreign.RegisterType(core.TypeDescriptor{Name: "Foreign"}))
	stray, err := foreign.CreateObject("Foreign", "stray", "")
	require.NoError(t, err)
	require.NoError(t, f.ctx.Project().AddInstance(stray))

	err = f.stack.Push("stray", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownType)

	assert.Equal(t, 3, f.stack.Size())
	assert.Equal(t, 1, f.stack.Index())
	assert.True(t, f.stack.CanRedo())
	desc, err := f.stack.Description(2)
	require.NoError(t, err)
	assert.Equal(t, "b", desc)
}

// projectState is a detached copy of everything undo has to bring back.
type projectState struct {
	objects   map[string]*core.Object
	parents   map[string]string
	referrers map[string][]string
	links     map[string]bool
}

func captureState(p *core.Project) projectState {
	st := projectState{
		objects:   make(map[string]*core.Object),
		parents:   make(map[string]string),
		referrers: make(map[string][]string),
		links:     make(map[string]bool),
	}
	for _, o := range p.Instances() {
		id := o.ObjectID()
		st.objects[id] = o.Clone(nil)
		if o.Parent() != nil {
			st.parents[id] = o.Parent().ObjectID()
		} else {
			st.parents[id] = ""
		}
		st.referrers[id] = o.ReferencingObjectIDs()
	}
	for _, l := range p.Links() {
		st.links[l.Key()] = l.Valid
	}
	return st
}

// requireState checks p against want. References held by the saved copies
// are matched to live objects by ID, since restored objects may be new ones.
func requireState(t *testing.T, want projectState, p *core.Project, step string) {
	t.Helper()
	got := captureState(p)
	require.Equal(t, want.parents, got.parents, "%s: objects and parents", step)
	byID := data.Translator(func(r data.Referent) data.Referent {
		if o, ok := r.(*core.Object); ok {
			if live := p.Object(o.ObjectID()); live != nil {
				return live
			}
		}
		return r
	})
	for id, saved := range want.objects {
		assert.True(t, saved.Compare(p.Object(id), byID), "%s: properties of %s", step, saved.Name())
	}
	assert.Equal(t, want.links, got.links, "%s: links and validity", step)
	assert.Equal(t, want.referrers, got.referrers, "%s: back-references", step)
}

func TestStack_UndoRedoRestoresWholeProject(t *testing.T) {
	f := newFixture(t)
	p := f.ctx.Project()
	states := []projectState{captureState(p)}
	commit := func(desc string) {
		f.push(t, desc, "")
		states = append(states, captureState(p))
	}

	root := f.create(t, usertypes.TypeNode, "root")
	body := f.create(t, usertypes.TypeMeshNode, "body")
	mesh := f.create(t, usertypes.TypeMesh, "mesh")
	s1 := f.create(t, usertypes.TypeScript, "s1")
	s2 := f.create(t, usertypes.TypeScript, "s2")
	require.NoError(t, f.ctx.SetString(core.PropertyHandle(s1, "interface"), "out result Double; out pos Vec3f"))
	require.NoError(t, f.ctx.SetString(core.PropertyHandle(s2, "interface"), "in speed Double"))
	commit("setup")

	_, err := f.ctx.AddLink(core.Describe(s1, "outputs.result"), core.Describe(s2, "inputs.speed"), false)
	require.NoError(t, err)
	_, err = f.ctx.AddLink(core.Describe(s1, "outputs.pos"), core.Describe(body, "translation"), false)
	require.NoError(t, err)
	commit("link ports")

	require.NoError(t, f.ctx.MoveScenegraphChild(body, root, -1))
	require.NoError(t, f.ctx.MoveScenegraphChild(s2, root, 0))
	commit("move")

	require.NoError(t, f.ctx.SetTags(body, []string{"hero", "animated"}))
	require.NoError(t, f.ctx.SetRef(core.PropertyHandle(body, "mesh"), mesh))
	commit("tags and mesh")

	_, err = f.ctx.DuplicateTree(root, nil, core.NewObjectID())
	require.NoError(t, err)
	commit("duplicate")

	require.NoError(t, f.ctx.SetString(core.PropertyHandle(s2, "interface"), "in other Int"))
	commit("break link")

	_, err = f.ctx.DeleteObjects([]*core.Object{mesh}, false)
	require.NoError(t, err)
	commit("delete mesh")

	iface := core.PropertyHandle(s1, "interface")
	require.NoError(t, f.ctx.SetString(iface, "out result"))
	require.True(t, f.ctx.Errors().Has(iface))
	commit("bad interface")

	last := len(states) - 1
	for cycle := 1; cycle <= 3; cycle++ {
		for i := last - 1; i >= 0; i-- {
			require.NoError(t, f.stack.Undo())
			requireState(t, states[i], p, fmt.Sprintf("cycle %d undo to %d", cycle, i))
		}
		for i := 1; i <= last; i++ {
			require.NoError(t, f.stack.Redo())
			requireState(t, states[i], p, fmt.Sprintf("cycle %d redo to %d", cycle, i))
		}
	}

	live := p.Object(s1.ObjectID())
	require.NotNil(t, live)
	assert.True(t, f.ctx.Errors().Has(core.PropertyHandle(live, "interface")), "redo brings the parse error back")
	require.NoError(t, f.stack.Undo())
	assert.False(t, f.ctx.Errors().Has(core.PropertyHandle(live, "interface")), "undo clears it")
}
