// Package usertypes registers the concrete scene object types with a
// core.Factory.
package usertypes

import (
	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

// Feature levels gate which types a project may create.
const (
	FeatureLevelMin     = 1
	FeatureLevelScripts = 2
	FeatureLevelPrefabs = 3
	FeatureLevelMax     = FeatureLevelPrefabs
)

// Registered type names.
const (
	TypeProjectSettings = "ProjectSettings"
	TypeNode            = "Node"
	TypeMeshNode        = "MeshNode"
	TypeMesh            = "Mesh"
	TypeMaterial        = "Material"
	TypeScript          = "Script"
	TypePrefab          = "Prefab"
	TypePrefabInstance  = "PrefabInstance"

	StructVec3f = "Vec3f"
)

// NewVec3f returns a Vec3f struct.
func NewVec3f(x, y, z float64) *data.Struct {
	return data.NewStructOf(StructVec3f,
		data.Property{Name: "x", Value: data.NewDouble(x)},
		data.Property{Name: "y", Value: data.NewDouble(y)},
		data.Property{Name: "z", Value: data.NewDouble(z)},
	)
}

func linkable(v *data.Value) *data.Value {
	v.AddAnnotation(&data.LinkStart{})
	v.AddAnnotation(&data.LinkEnd{})
	return v
}

// Register adds all scene types to f.
func Register(f *core.Factory) error {
	if err := f.RegisterStruct(StructVec3f, func() *data.Struct { return NewVec3f(0, 0, 0) }); err != nil {
		return err
	}
	for _, desc := range []core.TypeDescriptor{
		{
			Name:         TypeProjectSettings,
			FeatureLevel: FeatureLevelMin,
			Properties:   projectSettingsProperties,
		},
		{
			Name:            TypeNode,
			FeatureLevel:    FeatureLevelMin,
			UserCreatable:   true,
			CanBeChild:      true,
			CanHaveChildren: true,
			Properties:      nodeProperties,
		},
		{
			Name:            TypeMeshNode,
			Bases:           []string{TypeNode},
			FeatureLevel:    FeatureLevelMin,
			UserCreatable:   true,
			CanBeChild:      true,
			CanHaveChildren: true,
			Properties:      meshNodeProperties,
			Behavior:        meshNodeBehavior{},
		},
		{
			Name:          TypeMesh,
			FeatureLevel:  FeatureLevelMin,
			UserCreatable: true,
			Properties:    meshProperties,
			Behavior:      resourceBehavior{},
		},
		{
			Name:          TypeMaterial,
			FeatureLevel:  FeatureLevelMin,
			UserCreatable: true,
			Properties:    materialProperties,
			Behavior:      resourceBehavior{},
		},
		{
			Name:          TypeScript,
			FeatureLevel:  FeatureLevelScripts,
			UserCreatable: true,
			CanBeChild:    true,
			Properties:    scriptProperties,
			Behavior:      scriptBehavior{},
		},
		{
			Name:            TypePrefab,
			FeatureLevel:    FeatureLevelPrefabs,
			UserCreatable:   true,
			CanHaveChildren: true,
		},
		{
			Name:            TypePrefabInstance,
			Bases:           []string{TypeNode},
			FeatureLevel:    FeatureLevelPrefabs,
			UserCreatable:   true,
			CanBeChild:      true,
			CanHaveChildren: true,
			Properties:      prefabInstanceProperties,
			Behavior:        prefabInstanceBehavior{},
		},
	} {
		if err := f.RegisterType(desc); err != nil {
			return err
		}
	}
	return nil
}

// NewFactory returns a factory with all scene types registered.
func NewFactory() *core.Factory {
	f := core.NewFactory()
	if err := Register(f); err != nil {
		panic(err)
	}
	return f
}

func projectSettingsProperties() []data.Property {
	return []data.Property{
		{Name: "sceneId", Value: data.NewInt(123, &data.RangeInt{Min: 1, Max: 1024}, &data.DisplayName{Name: "Scene Id"})},
		{Name: "backgroundColor", Value: data.NewStruct(NewVec3f(0, 0, 0))},
	}
}
