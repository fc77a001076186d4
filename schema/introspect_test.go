package schema

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fixturePath = "github.com/chazu/proxyfactory/internal/fixture/widget"

func loadFixture(t *testing.T) *Package {
	t.Helper()
	pkg, err := Load(fixturePath)
	if err != nil {
		t.Fatalf("Load(%s): %v", fixturePath, err)
	}
	return pkg
}

func names(fns []FunctionModel) []string {
	out := make([]string, len(fns))
	for i, fn := range fns {
		out[i] = fn.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestType_Widget(t *testing.T) {
	tm, err := loadFixture(t).Type("Widget")
	if err != nil {
		t.Fatalf("Type(Widget): %v", err)
	}

	if tm.Sealed {
		t.Errorf("Widget should not be sealed: %s", tm.SealedReason)
	}
	if tm.PkgName != "widget" {
		t.Errorf("expected package name 'widget', got %q", tm.PkgName)
	}
	if tm.Module == nil || tm.Module.Path != "github.com/chazu/proxyfactory" {
		t.Errorf("expected module github.com/chazu/proxyfactory, got %+v", tm.Module)
	}

	// Declaration order; the unexported newWidgetWithLabel is excluded.
	wantInit := []string{"NewWidget", "NewWidgetFromBool", "NewWidgetFromNumber"}
	if got := names(tm.Initializers); !equalStrings(got, wantInit) {
		t.Errorf("initializers = %v, want %v", got, wantInit)
	}

	// Lock/TryLock/Unlock come from sync.Mutex, Version is final, describe
	// is unexported.
	wantMethods := []string{"Area", "ID", "Label", "Resize", "String", "Tag"}
	if got := names(tm.Methods); !equalStrings(got, wantMethods) {
		t.Errorf("methods = %v, want %v", got, wantMethods)
	}

	for _, m := range tm.Methods {
		switch m.Name {
		case "ID":
			if !m.Promoted {
				t.Error("ID should be marked promoted")
			}
		case "Resize":
			if !m.ReturnsErr {
				t.Error("Resize should return error")
			}
			if len(m.Params) != 1 || m.Params[0].TypeStr != "float64" {
				t.Errorf("Resize params = %+v", m.Params)
			}
		case "Tag":
			if !m.Variadic {
				t.Error("Tag should be variadic")
			}
			if last := m.Params[len(m.Params)-1]; last.TypeStr != "[]string" {
				t.Errorf("Tag last param type = %q, want []string", last.TypeStr)
			}
		}
	}

	number := tm.Initializers[2]
	if len(number.Params) != 1 || number.Params[0].TypeStr != "Number" {
		t.Errorf("NewWidgetFromNumber params = %+v", number.Params)
	}
	if !number.ReturnsPointer {
		t.Error("NewWidgetFromNumber returns *Widget")
	}
}

func TestType_Sealed(t *testing.T) {
	pkg := loadFixture(t)

	tests := []struct {
		name   string
		sealed bool
	}{
		{"Widget", false},
		{"Final", true},
		{"Shape", true},
		{"Secret", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tm, err := pkg.Type(tt.name)
			if err != nil {
				t.Fatalf("Type(%s): %v", tt.name, err)
			}
			if tm.Sealed != tt.sealed {
				t.Errorf("Sealed = %v (%s), want %v", tm.Sealed, tm.SealedReason, tt.sealed)
			}
		})
	}
}

func TestType_PrivateConstructorOnly(t *testing.T) {
	tm, err := loadFixture(t).Type("Secret")
	if err != nil {
		t.Fatalf("Type(Secret): %v", err)
	}
	if len(tm.Initializers) != 0 {
		t.Errorf("expected no initializers, got %v", names(tm.Initializers))
	}
	if got := names(tm.Methods); !equalStrings(got, []string{"Reveal"}) {
		t.Errorf("methods = %v", got)
	}
}

func TestType_ErrorReturningConstructors(t *testing.T) {
	tm, err := loadFixture(t).Type("Gauge")
	if err != nil {
		t.Fatalf("Type(Gauge): %v", err)
	}
	if got := names(tm.Initializers); !equalStrings(got, []string{"NewGauge", "ParseGauge"}) {
		t.Fatalf("initializers = %v", got)
	}
	if !tm.Initializers[0].ReturnsErr || !tm.Initializers[0].ReturnsPointer {
		t.Errorf("NewGauge: %+v", tm.Initializers[0])
	}
	if !tm.Initializers[1].ReturnsErr || tm.Initializers[1].ReturnsPointer {
		t.Errorf("ParseGauge: %+v", tm.Initializers[1])
	}
}

func TestType_Generic(t *testing.T) {
	pkg := loadFixture(t)

	box, err := pkg.Type("Box")
	if err != nil {
		t.Fatalf("Type(Box): %v", err)
	}
	if !box.Generic() || len(box.TypeParams) != 1 || box.TypeParams[0].Name != "T" {
		t.Fatalf("Box type params = %+v", box.TypeParams)
	}
	if got := names(box.Initializers); !equalStrings(got, []string{"NewBox"}) {
		t.Errorf("Box initializers = %v", got)
	}
	if got := names(box.Methods); !equalStrings(got, []string{"Get", "Set"}) {
		t.Errorf("Box methods = %v", got)
	}
	if get := box.Methods[0]; len(get.Results) != 1 || get.Results[0].TypeStr != "T" {
		t.Errorf("Get results = %+v", get.Results)
	}

	// NewRanked names its parameters E and S; the model speaks in K and V.
	ranked, err := pkg.Type("Ranked")
	if err != nil {
		t.Fatalf("Type(Ranked): %v", err)
	}
	if len(ranked.TypeParams) != 2 {
		t.Fatalf("Ranked type params = %+v", ranked.TypeParams)
	}
	if c := ranked.TypeParams[0].Constraint.String(); c != "cmp.Ordered" {
		t.Errorf("K constraint = %q, want cmp.Ordered", c)
	}
	if got := names(ranked.Initializers); !equalStrings(got, []string{"NewRanked"}) {
		t.Errorf("Ranked initializers = %v", got)
	}
	for _, m := range ranked.Methods {
		if m.Name != "Put" {
			continue
		}
		if m.Params[0].TypeStr != "K" || m.Params[1].TypeStr != "V" {
			t.Errorf("Put params = %+v", m.Params)
		}
	}
}

func TestType_Stdlib(t *testing.T) {
	pkg, err := Load("strings")
	if err != nil {
		t.Fatalf("Load(strings): %v", err)
	}
	tm, err := pkg.Type("Builder")
	if err != nil {
		t.Fatalf("Type(Builder): %v", err)
	}
	if len(tm.Initializers) != 0 {
		t.Errorf("Builder has no constructors, got %v", names(tm.Initializers))
	}
	found := false
	for _, m := range tm.Methods {
		if m.Name == "WriteString" {
			found = true
			if !m.ReturnsErr {
				t.Error("WriteString should return error")
			}
		}
	}
	if !found {
		t.Error("expected Builder to have WriteString")
	}
}

func TestType_Unknown(t *testing.T) {
	_, err := loadFixture(t).Type("Nope")
	if !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
}

func TestType_NotAType(t *testing.T) {
	_, err := loadFixture(t).Type("NewWidget")
	if !errors.Is(err, ErrNotNamed) {
		t.Errorf("expected ErrNotNamed, got %v", err)
	}
}

func TestLoad_BadPath(t *testing.T) {
	_, err := Load("nonexistent/package/path")
	if err == nil {
		t.Error("expected error for nonexistent package")
	}
}

func TestPackage_Types(t *testing.T) {
	got := loadFixture(t).Types()
	want := map[string]bool{"Widget": true, "Box": true, "Gauge": true}
	for _, name := range got {
		if name == "WidgetProxy" {
			t.Error("types declared in generated files should be left out")
		}
		delete(want, name)
	}
	if len(want) != 0 {
		t.Errorf("missing types %v in %v", want, got)
	}
}

func TestLoad_Dir(t *testing.T) {
	pkg := loadFixture(t)
	if !strings.HasSuffix(filepath.ToSlash(pkg.Dir), "internal/fixture/widget") {
		t.Errorf("Dir = %q", pkg.Dir)
	}
	if pkg.Module == nil || pkg.Module.Path != "github.com/chazu/proxyfactory" {
		t.Errorf("Module = %+v", pkg.Module)
	}
}

// Methods promoted from a module whose path has no dot are still
// overridable.
func TestType_DotlessModulePromotion(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"go.mod": "module myapp\n\ngo 1.21\n",
		"base/base.go": `package base

type Base struct{ id string }

func (b Base) ID() string { return b.id }
`,
		"shapes/shapes.go": `package shapes

import "myapp/base"

type Widget struct {
	base.Base
}

func NewWidget() *Widget { return &Widget{} }

func (w *Widget) Area() float64 { return 1 }
`,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	pkg, err := LoadFrom(dir, "./shapes")
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	tm, err := pkg.Type("Widget")
	if err != nil {
		t.Fatalf("Type(Widget): %v", err)
	}
	if got := names(tm.Methods); !equalStrings(got, []string{"Area", "ID"}) {
		t.Errorf("overridable methods = %v, want [Area ID]", got)
	}
}
