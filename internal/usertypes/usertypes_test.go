package usertypes_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

func newContext(t *testing.T) *core.Context {
	t.Helper()
	return core.NewContext(nil, usertypes.NewFactory(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func create(t *testing.T, ctx *core.Context, typeName, name string) *core.Object {
	t.Helper()
	obj, err := ctx.CreateObject(typeName, name, "")
	require.NoError(t, err)
	return obj
}

func TestRegister_Types(t *testing.T) {
	f := usertypes.NewFactory()
	assert.Equal(t, []string{"Material", "Mesh", "MeshNode", "Node", "Prefab", "PrefabInstance", "ProjectSettings", "Script"}, f.Types())
	assert.Equal(t, []string{"Vec3f"}, f.Structs())

	assert.Error(t, usertypes.Register(f), "registering twice")
}

func TestRegister_FeatureLevels(t *testing.T) {
	f := usertypes.NewFactory()

	assert.True(t, f.IsUserCreatable(usertypes.TypeNode, usertypes.FeatureLevelMin))
	assert.False(t, f.IsUserCreatable(usertypes.TypeScript, usertypes.FeatureLevelMin))
	assert.True(t, f.IsUserCreatable(usertypes.TypeScript, usertypes.FeatureLevelScripts))
	assert.False(t, f.IsUserCreatable(usertypes.TypePrefab, usertypes.FeatureLevelScripts))
	assert.True(t, f.IsUserCreatable(usertypes.TypePrefab, usertypes.FeatureLevelMax))
	assert.False(t, f.IsUserCreatable(usertypes.TypeProjectSettings, usertypes.FeatureLevelMax))
}

func TestNode_Defaults(t *testing.T) {
	ctx := newContext(t)
	n := create(t, ctx, usertypes.TypeMeshNode, "n")

	assert.True(t, n.IsA(usertypes.TypeNode))
	scale, err := n.Lookup("scale").AsStruct()
	require.NoError(t, err)
	assert.True(t, scale.Compare(usertypes.NewVec3f(1, 1, 1), nil))

	x, err := core.PropertyHandle(n, "translation", "x").Value().AsDouble()
	require.NoError(t, err)
	assert.Equal(t, 0.0, x)
	assert.True(t, n.Lookup("visibility").HasAnnotation(data.AnnotationLinkEnd))
}

func TestParseInterface(t *testing.T) {
	ports, err := usertypes.ParseInterface("in speed Double;\nout result Vec3f; ")
	require.NoError(t, err)
	assert.Equal(t, []usertypes.Port{
		{Name: "speed", TypeName: "Double"},
		{Output: true, Name: "result", TypeName: "Vec3f"},
	}, ports)

	for _, bad := range []string{"in speed", "sideways x Double", "in a Int; in a Double"} {
		_, err := usertypes.ParseInterface(bad)
		assert.Error(t, err, bad)
	}

	ports, err = usertypes.ParseInterface("in a Int; out a Int")
	require.NoError(t, err)
	assert.Len(t, ports, 2)
}

func TestScript_InterfaceSyncsPorts(t *testing.T) {
	ctx := newContext(t)
	s := create(t, ctx, usertypes.TypeScript, "s")
	iface := core.PropertyHandle(s, "interface")

	require.NoError(t, ctx.SetString(iface, "in speed Double; in offset Vec3f; out result Double"))

	inputs := core.PropertyHandle(s, "inputs").Reflection()
	assert.Equal(t, []string{"speed", "offset"}, inputs.PropertyNames())
	assert.True(t, inputs.Lookup("speed").HasAnnotation(data.AnnotationLinkEnd))
	assert.Equal(t, "Vec3f", core.ValueTypeName(inputs.Lookup("offset")))
	outputs := core.PropertyHandle(s, "outputs").Reflection()
	assert.Equal(t, []string{"result"}, outputs.PropertyNames())
	assert.True(t, outputs.Lookup("result").HasAnnotation(data.AnnotationLinkStart))

	require.NoError(t, ctx.SetDouble(core.PropertyHandle(s, "inputs", "speed"), 3))
	require.NoError(t, ctx.SetString(iface, "in speed Double; in offset Int"))

	assert.Equal(t, []string{"speed", "offset"}, inputs.PropertyNames())
	speed, err := inputs.Lookup("speed").AsDouble()
	require.NoError(t, err)
	assert.Equal(t, 3.0, speed, "matching port keeps its value")
	assert.Equal(t, "Int", core.ValueTypeName(inputs.Lookup("offset")))
	assert.Empty(t, outputs.PropertyNames())
}

func TestScript_MalformedInterfaceKeepsPorts(t *testing.T) {
	ctx := newContext(t)
	s := create(t, ctx, usertypes.TypeScript, "s")
	iface := core.PropertyHandle(s, "interface")

	require.NoError(t, ctx.SetString(iface, "in speed Double"))
	require.NoError(t, ctx.SetString(iface, "in speed"))

	assert.Equal(t, []string{"speed"}, core.PropertyHandle(s, "inputs").Reflection().PropertyNames())
	item, ok := ctx.Errors().Get(iface)
	require.True(t, ok)
	assert.Equal(t, core.CategoryParse, item.Category)
	assert.Equal(t, core.LevelError, item.Level)

	require.NoError(t, ctx.SetString(iface, "in speed Double"))
	assert.False(t, ctx.Errors().Has(iface))
}

func TestMeshNode_FileChangeMarksReferencingNodes(t *testing.T) {
	ctx := newContext(t)
	mesh := create(t, ctx, usertypes.TypeMesh, "mesh")
	node := create(t, ctx, usertypes.TypeMeshNode, "node")
	other := create(t, ctx, usertypes.TypeMeshNode, "other")

	require.NoError(t, ctx.SetString(core.PropertyHandle(mesh, "uri"), "models/duck.gltf"))
	require.NoError(t, ctx.SetRef(core.PropertyHandle(node, "mesh"), mesh))
	ctx.ModelChanges().Reset()

	assert.Equal(t, 1, ctx.DispatchFileChange("models/duck.gltf"))

	dirty := ctx.ModelChanges().PreviewDirtyObjects()
	assert.Contains(t, dirty, mesh)
	assert.Contains(t, dirty, node)
	assert.NotContains(t, dirty, other)
}
