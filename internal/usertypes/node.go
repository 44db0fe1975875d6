package usertypes

import (
	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

func nodeProperties() []data.Property {
	return []data.Property{
		{Name: "visibility", Value: linkable(data.NewBool(true, &data.DisplayName{Name: "Visibility"}))},
		{Name: "translation", Value: linkable(data.NewStruct(NewVec3f(0, 0, 0)))},
		{Name: "rotation", Value: linkable(data.NewStruct(NewVec3f(0, 0, 0)))},
		{Name: "scale", Value: linkable(data.NewStruct(NewVec3f(1, 1, 1)))},
	}
}

func meshNodeProperties() []data.Property {
	return append(nodeProperties(),
		data.Property{Name: "mesh", Value: data.NewRef(TypeMesh, &data.DisplayName{Name: "Mesh"})},
		data.Property{Name: "material", Value: data.NewRef(TypeMaterial, &data.DisplayName{Name: "Material"}, &data.ExpectEmptyReference{})},
		data.Property{Name: "instanceCount", Value: linkable(data.NewInt(1, &data.RangeInt{Min: 1, Max: 20}))},
	)
}

// meshNodeBehavior flags the node for a preview refresh whenever its mesh or
// material changes.
type meshNodeBehavior struct {
	core.NopBehavior
}

func (meshNodeBehavior) OnAfterReferencedObjectChanged(ctx *core.Context, obj, changed *core.Object) {
	if changed.IsA(TypeMesh) || changed.IsA(TypeMaterial) {
		ctx.Changes().RecordPreviewDirty(obj)
	}
}

func (meshNodeBehavior) OnAfterValueChanged(ctx *core.Context, h core.Handle) {
	names := h.Names()
	if len(names) == 1 && (names[0] == "mesh" || names[0] == "material") {
		ctx.Changes().RecordPreviewDirty(h.Object())
	}
}
