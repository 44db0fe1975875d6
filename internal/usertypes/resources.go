package usertypes

import (
	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

func meshProperties() []data.Property {
	return []data.Property{
		{Name: "uri", Value: data.NewString("", &data.URI{Filter: "*.gltf"}, &data.DisplayName{Name: "URI"})},
		{Name: "meshIndex", Value: data.NewInt(0, &data.DisplayName{Name: "Mesh Index"})},
		{Name: "bakeMeshes", Value: data.NewBool(true, &data.DisplayName{Name: "Bake All Meshes"})},
	}
}

func materialProperties() []data.Property {
	return []data.Property{
		{Name: "uriVertex", Value: data.NewString("", &data.URI{Filter: "*.vert"}, &data.DisplayName{Name: "Vertex URI"})},
		{Name: "uriFragment", Value: data.NewString("", &data.URI{Filter: "*.frag"}, &data.DisplayName{Name: "Fragment URI"})},
		{Name: "uniforms", Value: data.NewTable(&data.DisplayName{Name: "Uniforms"})},
	}
}

// resourceBehavior reloads file-backed resources: a change on disk is
// propagated to every object that references the resource.
type resourceBehavior struct {
	core.NopBehavior
}

func (resourceBehavior) OnExternalFileChanged(ctx *core.Context, obj *core.Object, h core.Handle) {
	ctx.Logger().Debug("resource file changed", "object", obj.Name(), "property", h.String())
	ctx.PerformExternalFileReload([]*core.Object{obj})
}
