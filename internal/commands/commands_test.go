package commands_test

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/scenecore/internal/commands"
	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
	"github.com/ajitpratap0/scenecore/internal/undo"
	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

func newInterface(t *testing.T, featureLevel int) *commands.Interface {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := core.NewContext(nil, usertypes.NewFactory(), logger)
	stack, err := undo.New(ctx, nil, logger)
	require.NoError(t, err)
	return commands.New(ctx, stack, featureLevel, logger)
}

func create(t *testing.T, ci *commands.Interface, typeName, name string, parent *core.Object) *core.Object {
	t.Helper()
	obj, err := ci.CreateObject(typeName, name, parent)
	require.NoError(t, err)
	return obj
}

func names(objs []*core.Object) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Name())
	}
	return out
}

func TestCreateObject(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	parent := create(t, ci, usertypes.TypeNode, "parent", nil)
	child := create(t, ci, usertypes.TypeNode, "child", parent)

	assert.Same(t, parent, child.Parent())
	assert.Equal(t, 3, ci.Stack().Size())
	desc, err := ci.Stack().Description(2)
	require.NoError(t, err)
	assert.Equal(t, "Create 'child' (Node)", desc)

	require.NoError(t, ci.Undo())
	assert.Nil(t, ci.Context().Project().Object(child.ObjectID()))
	assert.Empty(t, parent.Children())
}

func TestCreateObject_Validation(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMin)

	_, err := ci.CreateObject("Spaceship", "s", nil)
	assert.ErrorIs(t, err, core.ErrUnknownType)

	_, err = ci.CreateObject(usertypes.TypeScript, "s", nil)
	assert.ErrorIs(t, err, commands.ErrFeatureLevel)
	assert.Equal(t, 1, ci.Stack().Size())
}

func TestCreateObject_IncompatibleParentIsIgnored(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	node := create(t, ci, usertypes.TypeNode, "node", nil)

	mesh := create(t, ci, usertypes.TypeMesh, "mesh", node)

	assert.Nil(t, mesh.Parent())
	assert.Empty(t, node.Children())
}

func TestSet_NumericEditsMerge(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	node := create(t, ci, usertypes.TypeNode, "node", nil)
	x := core.PropertyHandle(node, "translation", "x")

	require.NoError(t, ci.SetDouble(x, 1))
	require.NoError(t, ci.SetDouble(x, 2))
	require.NoError(t, ci.SetDouble(x, 3))
	assert.Equal(t, 3, ci.Stack().Size())

	require.NoError(t, ci.SetString(core.PropertyHandle(node, "objectName"), "a"))
	require.NoError(t, ci.SetString(core.PropertyHandle(node, "objectName"), "b"))
	assert.Equal(t, 5, ci.Stack().Size())

	require.NoError(t, ci.SetBool(core.PropertyHandle(node, "visibility"), true))
	assert.Equal(t, 5, ci.Stack().Size(), "unchanged value pushes nothing")

	desc, err := ci.Stack().Description(2)
	require.NoError(t, err)
	assert.Equal(t, "Set property 'node.translation.x' to 3", desc)
}

func TestSet_MergeDisabled(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	ci.SetMergeEdits(false)
	node := create(t, ci, usertypes.TypeNode, "node", nil)
	x := core.PropertyHandle(node, "translation", "x")

	require.NoError(t, ci.SetDouble(x, 1))
	require.NoError(t, ci.SetDouble(x, 2))
	assert.Equal(t, 4, ci.Stack().Size())

	require.NoError(t, ci.Undo())
	restored := ci.Context().Project().Object(node.ObjectID())
	require.NotNil(t, restored)
	got, err := core.PropertyHandle(restored, "translation", "x").Value().AsDouble()
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestSet_Validation(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	node := create(t, ci, usertypes.TypeNode, "node", nil)

	err := ci.SetDouble(core.PropertyHandle(node, "missing"), 1)
	assert.ErrorIs(t, err, core.ErrInvalidHandle)

	err = ci.SetBool(core.PropertyHandle(node, "translation", "x"), true)
	assert.ErrorIs(t, err, data.ErrTypeMismatch)

	_, err = ci.DeleteObjects([]*core.Object{node})
	require.NoError(t, err)
	err = ci.SetName(node, "ghost")
	assert.ErrorIs(t, err, core.ErrNotInProject)
}

func TestSet_ReadOnlyIsRefused(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	s := create(t, ci, usertypes.TypeScript, "script", nil)
	require.NoError(t, ci.SetString(core.PropertyHandle(s, "interface"), "in speed Double; out result Double"))
	size := ci.Stack().Size()

	err := ci.SetDouble(core.PropertyHandle(s, "outputs", "result"), 1)
	require.ErrorIs(t, err, core.ErrReadOnly)
	var roErr *commands.ReadOnlyError
	require.ErrorAs(t, err, &roErr)
	assert.Equal(t, "script.outputs.result", roErr.Handle.String())

	_, err = ci.AddProperty(core.PropertyHandle(s, "inputs"), "extra", "Double")
	assert.ErrorIs(t, err, core.ErrReadOnly)
	assert.ErrorIs(t, ci.RemoveProperty(core.PropertyHandle(s, "inputs"), "speed"), core.ErrReadOnly)
	assert.Equal(t, size, ci.Stack().Size(), "refused edits push nothing")
	assert.Equal(t, []string{"speed"}, core.PropertyHandle(s, "inputs").Reflection().PropertyNames())

	require.NoError(t, ci.SetDouble(core.PropertyHandle(s, "inputs", "speed"), 2))
	assert.Equal(t, size+1, ci.Stack().Size(), "entries of a read-only table stay editable")

	mat := create(t, ci, usertypes.TypeMaterial, "mat", nil)
	_, err = ci.AddProperty(core.PropertyHandle(mat, "uniforms"), "u", "Double")
	require.NoError(t, err)
	require.NoError(t, ci.RemoveProperty(core.PropertyHandle(mat, "uniforms"), "u"))
}

func TestExternalReferenceObjectsAreNotEdited(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	ext := create(t, ci, usertypes.TypeNode, "imported", nil)
	ext.AddAnnotation(&data.ExternalReference{ProjectID: "library"})
	size := ci.Stack().Size()

	err := ci.SetDouble(core.PropertyHandle(ext, "translation", "x"), 1)
	require.ErrorIs(t, err, core.ErrReadOnly)
	assert.Contains(t, err.Error(), `"library"`)

	copies, err := ci.Duplicate([]*core.Object{ext})
	require.NoError(t, err)
	assert.Empty(t, copies)
	assert.Equal(t, size, ci.Stack().Size())
}

func TestDeleteObjects_IncludesChildren(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	parent := create(t, ci, usertypes.TypeNode, "parent", nil)
	create(t, ci, usertypes.TypeNode, "child", parent)
	create(t, ci, usertypes.TypeNode, "other", nil)

	n, err := ci.DeleteObjects([]*core.Object{parent})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, ci.Context().Project().Len())

	require.NoError(t, ci.Undo())
	assert.Equal(t, 3, ci.Context().Project().Len())
}

func TestMoveScenegraphChildren(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	parent := create(t, ci, usertypes.TypeNode, "parent", nil)
	a := create(t, ci, usertypes.TypeNode, "a", parent)
	b := create(t, ci, usertypes.TypeNode, "b", nil)
	c := create(t, ci, usertypes.TypeNode, "c", nil)
	size := ci.Stack().Size()

	moved, err := ci.MoveScenegraphChildren([]*core.Object{b, c}, parent, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)
	assert.Equal(t, []string{"b", "c", "a"}, names(parent.Children()))
	assert.Equal(t, size+1, ci.Stack().Size())

	moved, err = ci.MoveScenegraphChildren([]*core.Object{a}, nil, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)
	assert.Nil(t, a.Parent())
}

func TestMoveScenegraphChildren_SkipsIllegalMoves(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	parent := create(t, ci, usertypes.TypeNode, "parent", nil)
	child := create(t, ci, usertypes.TypeNode, "child", parent)
	mesh := create(t, ci, usertypes.TypeMesh, "mesh", nil)
	size := ci.Stack().Size()

	for _, tc := range []struct {
		name   string
		obj    *core.Object
		target *core.Object
	}{
		{"into itself", parent, parent},
		{"into a descendant", parent, child},
		{"type cannot be a child", mesh, parent},
		{"target cannot have children", child, mesh},
	} {
		t.Run(tc.name, func(t *testing.T) {
			moved, err := ci.MoveScenegraphChildren([]*core.Object{tc.obj}, tc.target, -1)
			require.NoError(t, err)
			assert.Zero(t, moved)
		})
	}
	assert.Equal(t, size, ci.Stack().Size())
	assert.Same(t, parent, child.Parent())
}

func TestMoveScenegraphChildren_Validation(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	parent := create(t, ci, usertypes.TypeNode, "parent", nil)
	node := create(t, ci, usertypes.TypeNode, "node", nil)

	_, err := ci.MoveScenegraphChildren([]*core.Object{node}, parent, 1)
	assert.ErrorIs(t, err, data.ErrOutOfRange)
	_, err = ci.MoveScenegraphChildren([]*core.Object{node}, nil, 3)
	assert.ErrorIs(t, err, data.ErrOutOfRange)

	stray, err := ci.Context().Factory().CreateObject(usertypes.TypeNode, "stray", "")
	require.NoError(t, err)
	_, err = ci.MoveScenegraphChildren([]*core.Object{stray}, parent, -1)
	assert.ErrorIs(t, err, core.ErrNotInProject)
	_, err = ci.MoveScenegraphChildren([]*core.Object{node}, stray, -1)
	assert.ErrorIs(t, err, core.ErrNotInProject)
}

func TestAddLink(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	a := create(t, ci, usertypes.TypeNode, "a", nil)
	b := create(t, ci, usertypes.TypeNode, "b", nil)

	l, err := ci.AddLink(core.Describe(a, "translation"), core.Describe(b, "rotation"), false)
	require.NoError(t, err)
	assert.True(t, l.Valid)

	_, err = ci.AddLink(core.Describe(a, "objectName"), core.Describe(b, "scale"), false)
	assert.ErrorIs(t, err, commands.ErrInvalidLink)
	_, err = ci.AddLink(core.Describe(a, "scale"), core.Describe(b, "nothing"), false)
	assert.ErrorIs(t, err, commands.ErrInvalidLink)

	size := ci.Stack().Size()
	_, err = ci.AddLink(core.Describe(b, "scale"), core.Describe(a, "scale"), false)
	assert.ErrorIs(t, err, core.ErrCycle)
	assert.Equal(t, size, ci.Stack().Size())
	assert.Len(t, ci.Context().Project().Links(), 1)

	removed, err := ci.RemoveLink(core.Describe(b, "rotation"))
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = ci.RemoveLink(core.Describe(b, "rotation"))
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, size+1, ci.Stack().Size())
}

func TestDuplicate(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	parent := create(t, ci, usertypes.TypeNode, "parent", nil)
	child := create(t, ci, usertypes.TypeNode, "child", parent)

	copies, err := ci.Duplicate([]*core.Object{parent, child})
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, "parent (1)", copies[0].Name())
	assert.Equal(t, []string{"child"}, names(copies[0].Children()))
	assert.Equal(t, 4, ci.Context().Project().Len())

	require.NoError(t, ci.Undo())
	assert.Equal(t, 2, ci.Context().Project().Len())
}

func TestUpdatePrefabInstances(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	prefab := create(t, ci, usertypes.TypePrefab, "prefab", nil)
	a := create(t, ci, usertypes.TypeNode, "a", prefab)
	inst := create(t, ci, usertypes.TypePrefabInstance, "inst", nil)
	require.NoError(t, ci.SetRef(core.PropertyHandle(inst, "template"), prefab))
	ca := ci.Context().Project().Object(core.XorObjectIDs(inst.ObjectID(), a.ObjectID()))
	require.NotNil(t, ca, "setting the template fills the instance")
	assert.Same(t, inst, ca.Parent())

	require.NoError(t, ci.SetBool(core.PropertyHandle(a, "visibility"), false))
	size := ci.Stack().Size()
	_, err := ci.Batch(strings.NewReader("update-prefab inst\nupdate-prefab inst\n"))
	require.NoError(t, err)
	assert.Equal(t, size+1, ci.Stack().Size(), "the second update changes nothing")
	visible, err := ca.Lookup("visibility").AsBool()
	require.NoError(t, err)
	assert.False(t, visible)
	assert.Equal(t, []*core.Object{ca}, inst.Children())

	err = ci.UpdatePrefabInstances([]*core.Object{a})
	assert.ErrorIs(t, err, data.ErrTypeMismatch)

	require.NoError(t, ci.Undo())
	require.NoError(t, ci.Undo())
	require.NoError(t, ci.Undo())
	assert.Nil(t, ci.Context().Project().Object(ca.ObjectID()))
	assert.Empty(t, inst.Children())
}

func TestBatch(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	script := `
# scene setup
create Node root
create MeshNode body root
create Mesh "duck mesh"
set body.mesh "duck mesh"
set body.translation 1 2.5 -3
set body.visibility false
set body.userTags hero animated
create Node target
link body.translation target.rotation
duplicate target
move "target (1)" root 0
`
	report, err := ci.Batch(strings.NewReader(script))
	require.NoError(t, err)
	assert.Equal(t, 11, report.Executed)

	p := ci.Context().Project()
	var body, root *core.Object
	for _, o := range p.Instances() {
		switch o.Name() {
		case "body":
			body = o
		case "root":
			root = o
		}
	}
	require.NotNil(t, body)
	require.NotNil(t, root)

	mesh, err := body.Lookup("mesh").AsRef()
	require.NoError(t, err)
	assert.Equal(t, "duck mesh", mesh.(*core.Object).Name())
	tr, err := body.Lookup("translation").AsStruct()
	require.NoError(t, err)
	assert.True(t, tr.Compare(usertypes.NewVec3f(1, 2.5, -3), nil))
	assert.Equal(t, []string{"hero", "animated"}, body.UserTags())
	assert.Len(t, p.Links(), 2, "duplicate copies the link ending at target")
	assert.Equal(t, []string{"target (1)", "body"}, names(root.Children()))
}

func TestBatch_UndoRedo(t *testing.T) {
	ci := newInterface(t, usertypes.FeatureLevelMax)
	_, err := ci.Batch(strings.NewReader("create Node a\ncreate Node b\nundo\nundo\nredo\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(ci.Context().Project().Instances()))
}

func TestBatch_Errors(t *testing.T) {
	for _, tc := range []struct {
		name   string
		script string
		line   string
		target error
	}{
		{"unknown command", "create Node a\nfly a", "line 2", commands.ErrSyntax},
		{"bad arity", "create Node", "line 1", commands.ErrSyntax},
		{"unterminated quote", `create Node "a`, "line 1", commands.ErrSyntax},
		{"unknown object", "delete ghost", "line 1", core.ErrNotInProject},
		{"bad value", "create Node a\nset a.visibility maybe", "line 2", data.ErrTypeMismatch},
		{"feature level", "create Prefab p", "line 1", commands.ErrFeatureLevel},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ci := newInterface(t, usertypes.FeatureLevelScripts)
			_, err := ci.Batch(strings.NewReader(tc.script))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.target)
			assert.Contains(t, err.Error(), tc.line)
		})
	}
}
