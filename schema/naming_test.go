package schema

import "testing"

func TestProxyName(t *testing.T) {
	tests := []struct {
		prefix, typeName string
		expected         string
	}{
		{"", "Widget", "WidgetProxy"},
		{"Traced", "Widget", "TracedWidgetProxy"},
		{"TestPrefix", "Box", "TestPrefixBoxProxy"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := ProxyName(tt.prefix, tt.typeName); got != tt.expected {
				t.Errorf("ProxyName(%q, %q) = %q, want %q", tt.prefix, tt.typeName, got, tt.expected)
			}
		})
	}
}

func TestBinaryName(t *testing.T) {
	got := BinaryName("github.com/acme/shapes", "Traced", "Widget")
	if want := "github.com/acme/shapes.TracedWidgetProxy"; got != want {
		t.Errorf("BinaryName = %q, want %q", got, want)
	}
}

func TestInitializerName(t *testing.T) {
	tests := []struct {
		ctor     string
		expected string
	}{
		{"NewWidget", "NewTracedWidgetProxy"},
		{"NewWidgetFromBool", "NewTracedWidgetProxyFromBool"},
		{"NewWidgets", "NewTracedWidgetProxyViaNewWidgets"},
		{"ParseWidget", "NewTracedWidgetProxyViaParseWidget"},
	}
	for _, tt := range tests {
		t.Run(tt.ctor, func(t *testing.T) {
			got := InitializerName("TracedWidgetProxy", "Widget", tt.ctor)
			if got != tt.expected {
				t.Errorf("InitializerName(%q) = %q, want %q", tt.ctor, got, tt.expected)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	tests := []struct {
		prefix, typeName string
		expected         string
	}{
		{"", "Widget", "widget_proxy.go"},
		{"Traced", "Widget", "traced_widget_proxy.go"},
		{"", "HTTPWidget", "http_widget_proxy.go"},
		{"", "Box2D", "box2_d_proxy.go"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := FileName(tt.prefix, tt.typeName); got != tt.expected {
				t.Errorf("FileName(%q, %q) = %q, want %q", tt.prefix, tt.typeName, got, tt.expected)
			}
		})
	}
}

func TestIsStandardImportPath(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"sync", true},
		{"encoding/json", true},
		{"github.com/chazu/proxyfactory", false},
		{"example.com/x", false},
		{"myapp", false},
		{"myapp/base", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsStandardImportPath(tt.path); got != tt.expected {
				t.Errorf("IsStandardImportPath(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}
