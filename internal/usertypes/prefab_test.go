package usertypes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

func createUnder(t *testing.T, ctx *core.Context, typeName, name string, parent *core.Object) *core.Object {
	t.Helper()
	obj := create(t, ctx, typeName, name)
	require.NoError(t, ctx.MoveScenegraphChild(obj, parent, -1))
	return obj
}

// subtreeIDs maps the names of the objects below root to their IDs.
func subtreeIDs(root *core.Object) map[string]string {
	ids := make(map[string]string)
	for _, o := range core.TreeWalk(root)[1:] {
		ids[o.Name()] = o.ObjectID()
	}
	return ids
}

func copyOf(ctx *core.Context, inst, original *core.Object) *core.Object {
	return ctx.Project().Object(core.XorObjectIDs(inst.ObjectID(), original.ObjectID()))
}

func TestPrefabInstance_TemplateChangeCopiesTree(t *testing.T) {
	ctx := newContext(t)
	prefab := create(t, ctx, usertypes.TypePrefab, "prefab")
	a := createUnder(t, ctx, usertypes.TypeNode, "a", prefab)
	b := createUnder(t, ctx, usertypes.TypeMeshNode, "b", a)
	s := createUnder(t, ctx, usertypes.TypeScript, "s", prefab)
	require.NoError(t, ctx.SetDouble(core.PropertyHandle(a, "translation", "y"), 2))
	_, err := ctx.AddLink(core.Describe(a, "translation"), core.Describe(b, "rotation"), false)
	require.NoError(t, err)

	inst := create(t, ctx, usertypes.TypePrefabInstance, "inst")
	require.NoError(t, ctx.SetRef(core.PropertyHandle(inst, "template"), prefab))

	assert.Equal(t, []string{"a", "s"}, names(inst.Children()))
	ca, cb, cs := copyOf(ctx, inst, a), copyOf(ctx, inst, b), copyOf(ctx, inst, s)
	require.NotNil(t, ca)
	require.NotNil(t, cb)
	require.NotNil(t, cs)
	assert.Same(t, ca, cb.Parent())
	assert.Same(t, inst, cs.Parent())
	y, err := core.PropertyHandle(ca, "translation", "y").Value().AsDouble()
	require.NoError(t, err)
	assert.Equal(t, 2.0, y)

	l := ctx.Project().LinkEndingAt(core.Describe(cb, "rotation"))
	require.NotNil(t, l, "links inside the template are repeated")
	assert.Same(t, ca, l.Start.Object)
	assert.False(t, ctx.Errors().Has(core.ObjectHandle(inst)))
}

func TestPrefabInstance_UpdateIsIdempotent(t *testing.T) {
	ctx := newContext(t)
	prefab := create(t, ctx, usertypes.TypePrefab, "prefab")
	a := createUnder(t, ctx, usertypes.TypeNode, "a", prefab)
	createUnder(t, ctx, usertypes.TypeMeshNode, "b", a)
	s := createUnder(t, ctx, usertypes.TypeScript, "s", prefab)
	require.NoError(t, ctx.SetString(core.PropertyHandle(s, "interface"), "in speed Double; out result Double"))
	require.NoError(t, ctx.SetTags(a, []string{"red"}))

	inst := create(t, ctx, usertypes.TypePrefabInstance, "inst")
	require.NoError(t, ctx.SetRef(core.PropertyHandle(inst, "template"), prefab))
	first := subtreeIDs(inst)
	size := ctx.Project().Len()

	ctx.ModelChanges().Reset()
	require.NoError(t, usertypes.UpdatePrefabInstance(ctx, inst))
	require.NoError(t, usertypes.UpdatePrefabInstance(ctx, inst))

	assert.Equal(t, first, subtreeIDs(inst))
	assert.Equal(t, size, ctx.Project().Len(), "no objects were added")
	assert.True(t, ctx.ModelChanges().IsEmpty(), "an up to date instance is left alone")
	assert.Equal(t, []string{"speed"}, core.PropertyHandle(copyOf(ctx, inst, s), "inputs").Reflection().PropertyNames())
}

func TestPrefabInstance_UpdateFollowsTemplateEdits(t *testing.T) {
	ctx := newContext(t)
	prefab := create(t, ctx, usertypes.TypePrefab, "prefab")
	a := createUnder(t, ctx, usertypes.TypeNode, "a", prefab)
	b := createUnder(t, ctx, usertypes.TypeNode, "b", prefab)
	inst := create(t, ctx, usertypes.TypePrefabInstance, "inst")
	require.NoError(t, ctx.SetRef(core.PropertyHandle(inst, "template"), prefab))
	ca := copyOf(ctx, inst, a)

	require.NoError(t, ctx.SetBool(core.PropertyHandle(a, "visibility"), false))
	require.NoError(t, ctx.MoveScenegraphChild(b, prefab, 0))
	_, err := ctx.DeleteObjects([]*core.Object{a}, true)
	require.NoError(t, err)
	c := createUnder(t, ctx, usertypes.TypeNode, "c", prefab)
	require.NoError(t, ctx.SetName(b, "b2"))

	require.NoError(t, usertypes.UpdatePrefabInstance(ctx, inst))
	assert.Equal(t, []string{"b2", "c"}, names(inst.Children()))
	assert.False(t, ctx.Project().Contains(ca), "copies without an original are deleted")
	assert.Same(t, copyOf(ctx, inst, c), inst.Children()[1])

	require.NoError(t, ctx.SetRef(core.PropertyHandle(inst, "template"), nil))
	assert.Empty(t, inst.Children())
}

func TestPrefabInstance_NestedInstances(t *testing.T) {
	ctx := newContext(t)
	inner := create(t, ctx, usertypes.TypePrefab, "inner")
	leaf := createUnder(t, ctx, usertypes.TypeNode, "leaf", inner)
	outer := create(t, ctx, usertypes.TypePrefab, "outer")
	nested := createUnder(t, ctx, usertypes.TypePrefabInstance, "nested", outer)
	require.NoError(t, ctx.SetRef(core.PropertyHandle(nested, "template"), inner))

	inst := create(t, ctx, usertypes.TypePrefabInstance, "inst")
	require.NoError(t, ctx.SetRef(core.PropertyHandle(inst, "template"), outer))

	cn := copyOf(ctx, inst, nested)
	require.NotNil(t, cn)
	assert.Same(t, inner, usertypes.Template(cn))
	cl := copyOf(ctx, cn, leaf)
	require.NotNil(t, cl, "the nested copy is filled from its own template")
	assert.Same(t, cn, cl.Parent())
	first := subtreeIDs(inst)

	require.NoError(t, usertypes.UpdatePrefabInstance(ctx, inst))
	assert.Equal(t, first, subtreeIDs(inst))
	assert.Len(t, cn.Children(), 1)
}

func TestPrefabInstance_RejectsLoops(t *testing.T) {
	ctx := newContext(t)
	prefab := create(t, ctx, usertypes.TypePrefab, "prefab")
	createUnder(t, ctx, usertypes.TypeNode, "a", prefab)
	self := createUnder(t, ctx, usertypes.TypePrefabInstance, "self", prefab)

	require.NoError(t, ctx.SetRef(core.PropertyHandle(self, "template"), prefab))
	item, ok := ctx.Errors().Get(core.ObjectHandle(self))
	require.True(t, ok)
	assert.Equal(t, core.LevelError, item.Level)
	assert.Empty(t, self.Children())

	err := usertypes.UpdatePrefabInstance(ctx, self)
	assert.ErrorIs(t, err, usertypes.ErrPrefabLoop)

	node := create(t, ctx, usertypes.TypeNode, "node")
	assert.ErrorIs(t, usertypes.UpdatePrefabInstance(ctx, node), data.ErrTypeMismatch)
}

func names(objs []*core.Object) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Name())
	}
	return out
}
