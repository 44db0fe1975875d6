package core

// Behavior lets an object type react to lifecycle events. All hooks run on
// the owner thread, inside the mutation that triggered them.
type Behavior interface {
	// OnAfterContextActivated runs after the object enters a context: on
	// creation, after undo/redo touched it, and after external reloads.
	OnAfterContextActivated(ctx *Context, obj *Object)

	// OnAfterValueChanged runs after a property of obj changed through the context.
	OnAfterValueChanged(ctx *Context, h Handle)

	// OnAfterReferencedObjectChanged runs when an object that obj references changed.
	OnAfterReferencedObjectChanged(ctx *Context, obj *Object, changed *Object)

	// OnBeforeDeleteObject runs before obj leaves the project. Volatile
	// resources are released here.
	OnBeforeDeleteObject(ctx *Context, obj *Object)

	// OnAfterDeserialization runs after the object was loaded or restored.
	OnAfterDeserialization(obj *Object)

	// OnExternalFileChanged runs when the file behind a URI property changed on disk.
	OnExternalFileChanged(ctx *Context, obj *Object, h Handle)
}

// NopBehavior implements Behavior with no-ops. Embed it to override only
// the hooks a type needs.
type NopBehavior struct{}

func (NopBehavior) OnAfterContextActivated(*Context, *Object)                {}
func (NopBehavior) OnAfterValueChanged(*Context, Handle)                     {}
func (NopBehavior) OnAfterReferencedObjectChanged(*Context, *Object, *Object) {}
func (NopBehavior) OnBeforeDeleteObject(*Context, *Object)                   {}
func (NopBehavior) OnAfterDeserialization(*Object)                           {}
func (NopBehavior) OnExternalFileChanged(*Context, *Object, Handle)          {}

// Listener is a registration with a FileMonitor.
type Listener interface {
	Close() error
}

// FileMonitor watches files referenced by URI properties. Callbacks must be
// delivered on the owner thread.
type FileMonitor interface {
	Register(path string, onChange func()) (Listener, error)
}

// ExternalReferenceUpdater refreshes objects imported from other projects.
// It runs at the end of every undo/redo restoration.
type ExternalReferenceUpdater interface {
	UpdateExternalReferences(ctx *Context) error
}
