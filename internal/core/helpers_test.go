package core_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

func nodeProperties() []data.Property {
	return []data.Property{
		{Name: "value", Value: data.NewDouble(0, &data.LinkStart{}, &data.LinkEnd{})},
		{Name: "label", Value: data.NewString("", &data.LinkStart{}, &data.LinkEnd{})},
		{Name: "target", Value: data.NewRef("Node")},
		{Name: "items", Value: data.NewArray()},
	}
}

func testFactory(t *testing.T) *core.Factory {
	t.Helper()
	f := core.NewFactory()
	require.NoError(t, f.RegisterType(core.TypeDescriptor{
		Name: "Node", UserCreatable: true, CanBeChild: true, CanHaveChildren: true,
		Properties: nodeProperties,
	}))
	require.NoError(t, f.RegisterType(core.TypeDescriptor{
		Name: "Leaf", Bases: []string{"Node"}, UserCreatable: true, CanBeChild: true,
		Properties: nodeProperties,
	}))
	require.NoError(t, f.RegisterType(core.TypeDescriptor{
		Name: "Asset", UserCreatable: true,
		Properties: func() []data.Property {
			return []data.Property{{Name: "uri", Value: data.NewString("", &data.URI{})}}
		},
	}))
	return f
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestContext(t *testing.T, opts ...core.Option) *core.Context {
	t.Helper()
	return core.NewContext(nil, testFactory(t), discardLogger(), opts...)
}

func mustCreate(t *testing.T, ctx *core.Context, typeName, name string) *core.Object {
	t.Helper()
	obj, err := ctx.CreateObject(typeName, name, "")
	require.NoError(t, err)
	return obj
}

func refTo(t *testing.T, obj *core.Object) *data.Value {
	t.Helper()
	v := data.NewRef("Node")
	_, err := v.SetRef(obj)
	require.NoError(t, err)
	return v
}

func childNames(o *core.Object) []string {
	var names []string
	for _, c := range o.Children() {
		names = append(names, c.Name())
	}
	return names
}

type fakeListener struct {
	closed *int
}

func (l fakeListener) Close() error {
	*l.closed++
	return nil
}

type fakeMonitor struct {
	registered map[string]func()
	closed     int
}

func newFakeMonitor() *fakeMonitor {
	return &fakeMonitor{registered: make(map[string]func())}
}

func (m *fakeMonitor) Register(path string, onChange func()) (core.Listener, error) {
	m.registered[path] = onChange
	return fakeListener{closed: &m.closed}, nil
}
