package loader_test

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/proxyfactory/internal/fixture/widget"
	"github.com/chazu/proxyfactory/loader"
)

const widgetProxyName = "github.com/chazu/proxyfactory/internal/fixture/widget.WidgetProxy"

func TestRegistered_GeneratedProxy(t *testing.T) {
	typ, ok := loader.Registered(widgetProxyName)
	require.True(t, ok, "generated proxy should register itself at init")

	assert.True(t, typ.Proxy)
	assert.Equal(t, reflect.TypeFor[*widget.WidgetProxy](), typ.Instance)
	require.Len(t, typ.Initializers, 3)

	names := []string{}
	for _, in := range typ.Initializers {
		names = append(names, in.Name)
		assert.True(t, in.Exported, in.Name)
	}
	assert.Equal(t, []string{"NewWidgetProxy", "NewWidgetProxyFromBool", "NewWidgetProxyFromNumber"}, names)
	assert.Contains(t, loader.RegisteredNames(), widgetProxyName)
}

func TestRegister_Duplicate(t *testing.T) {
	assert.Panics(t, func() {
		loader.Register(widgetProxyName, (*widget.WidgetProxy)(nil), widget.NewWidgetProxy)
	})
}

func TestRegister_Malformed(t *testing.T) {
	assert.Panics(t, func() {
		loader.Register("example.com/bad.Proxy", (*widget.WidgetProxy)(nil), widget.NewGauge)
	})
}

func TestNewType_Validation(t *testing.T) {
	gauge := reflect.TypeFor[*widget.Gauge]()

	typ, err := loader.NewType("gauge", false, gauge, widget.NewGauge, widget.ParseGauge)
	require.NoError(t, err)
	assert.False(t, typ.Proxy)
	assert.True(t, typ.Initializers[0].ReturnsErr)
	assert.Equal(t, "ParseGauge", typ.Initializers[1].Name)

	tests := []struct {
		name string
		ctor any
	}{
		{"not a func", 42},
		{"nil func", (func() *widget.Gauge)(nil)},
		{"no results", func() {}},
		{"second result not error", func() (*widget.Gauge, int) { return nil, 0 }},
		{"wrong type", widget.NewWidget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.NewType("gauge", false, gauge, tt.ctor)
			assert.ErrorIs(t, err, loader.ErrInvalidInitializer)
		})
	}

	_, err = loader.NewType("gauge", false, nil)
	assert.Error(t, err)
}

func TestInitializer_Exported(t *testing.T) {
	typ, err := loader.NewType("secret", false, reflect.TypeFor[*widget.Secret](), widget.SecretInitializers...)
	require.NoError(t, err)
	require.Len(t, typ.Initializers, 1)
	assert.Equal(t, "newSecret", typ.Initializers[0].Name)
	assert.False(t, typ.Initializers[0].Exported)
}

func TestInitializer_ClosureExported(t *testing.T) {
	double := func(n int) (*widget.Gauge, error) { return widget.NewGauge(2 * n) }
	typ, err := loader.NewType("gauge", false, reflect.TypeFor[*widget.Gauge](), double, widget.NewGauge)
	require.NoError(t, err)

	assert.True(t, typ.Initializers[0].Exported, "function literal %s", typ.Initializers[0].Name)
	assert.True(t, typ.Initializers[1].Exported)
}

func TestInitializer_Call(t *testing.T) {
	typ, err := loader.NewType("gauge", false, reflect.TypeFor[*widget.Gauge](), widget.NewGauge, widget.ParseGauge)
	require.NoError(t, err)

	v, err := typ.Initializers[0].Call([]reflect.Value{reflect.ValueOf(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, v.Interface().(*widget.Gauge).Limit())

	_, err = typ.Initializers[0].Call([]reflect.Value{reflect.ValueOf(-1)})
	assert.ErrorContains(t, err, "negative limit")

	// Value results come back as pointers.
	v, err = typ.Initializers[1].Call([]reflect.Value{reflect.ValueOf("7")})
	require.NoError(t, err)
	assert.Equal(t, 7, v.Interface().(*widget.Gauge).Limit())
}

func TestInitializer_CallPanics(t *testing.T) {
	boom := func() *widget.Gauge { panic("boom") }
	typ, err := loader.NewType("gauge", false, reflect.TypeFor[*widget.Gauge](), boom)
	require.NoError(t, err)

	_, err = typ.Initializers[0].Call(nil)
	assert.ErrorContains(t, err, "boom")
}

func TestInitializer_String(t *testing.T) {
	typ, err := loader.NewType("box", false, reflect.TypeFor[*widget.Box[int]](), widget.NewBox[int])
	require.NoError(t, err)
	assert.Equal(t, "NewBox(int)", typ.Initializers[0].String())
}

func TestCache_ResolveOnce(t *testing.T) {
	c := loader.NewCache()
	want := &loader.Type{Name: "x"}
	calls := 0
	compute := func() (*loader.Type, error) {
		calls++
		return want, nil
	}

	first, err := c.Resolve("x", compute)
	require.NoError(t, err)
	second, err := c.Resolve("x", compute)
	require.NoError(t, err)

	assert.Same(t, want, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)
	assert.Equal(t, loader.Stats{Hits: 1, Misses: 1, Computes: 1}, c.Stats())
	assert.Equal(t, 1, c.Len())
}

func TestCache_ResolveConcurrent(t *testing.T) {
	c := loader.NewCache()
	var (
		mu    sync.Mutex
		calls int
		start = make(chan struct{})
	)
	compute := func() (*loader.Type, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return &loader.Type{Name: "x"}, nil
	}

	const n = 32
	results := make([]*loader.Type, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			typ, err := c.Resolve("x", compute)
			assert.NoError(t, err)
			results[i] = typ
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, calls)
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestCache_ErrorNotCached(t *testing.T) {
	c := loader.NewCache()
	fail := errors.New("compute failed")

	_, err := c.Resolve("x", func() (*loader.Type, error) { return nil, fail })
	assert.ErrorIs(t, err, fail)
	_, ok := c.Lookup("x")
	assert.False(t, ok)

	typ, err := c.Resolve("x", func() (*loader.Type, error) { return &loader.Type{Name: "x"}, nil })
	require.NoError(t, err)
	cached, ok := c.Lookup("x")
	require.True(t, ok)
	assert.Same(t, typ, cached)
}

func TestCache_DistinctNames(t *testing.T) {
	c := loader.NewCache()
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("t%d", i)
		_, err := c.Resolve(name, func() (*loader.Type, error) { return &loader.Type{Name: name}, nil })
		require.NoError(t, err)
	}
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, uint64(3), c.Stats().Computes)
}

func TestPluginLoader_MissingFile(t *testing.T) {
	_, err := loader.PluginLoader{}.Open("/nonexistent/proxy.so", "x")
	assert.Error(t, err)
}
