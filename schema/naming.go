package schema

import (
	"strings"
	"unicode"
)

const proxySuffix = "Proxy"

// ProxyName returns the name of the proxy type generated for typeName.
// e.g., prefix "Traced", type "Widget" → "TracedWidgetProxy"
func ProxyName(prefix, typeName string) string {
	return prefix + typeName + proxySuffix
}

// BinaryName returns the fully qualified name a proxy is compiled, loaded
// and cached under.
// e.g., "github.com/acme/shapes", "", "Widget" → "github.com/acme/shapes.WidgetProxy"
func BinaryName(importPath, prefix, typeName string) string {
	return importPath + "." + ProxyName(prefix, typeName)
}

// InitializerName maps a target constructor to the name of the proxy
// constructor that delegates to it.
// e.g., "WidgetProxy", "Widget", "NewWidgetFromBool" → "NewWidgetProxyFromBool"
// Constructors that don't follow the New<Type> convention keep their name
// after a "Via": "Parse" → "NewWidgetProxyViaParse".
func InitializerName(proxyName, targetName, ctorName string) string {
	if rest, ok := strings.CutPrefix(ctorName, "New"+targetName); ok {
		if rest == "" || unicode.IsUpper(rune(rest[0])) {
			return "New" + proxyName + rest
		}
	}
	return "New" + proxyName + "Via" + ctorName
}

// FileName returns the file a build-time proxy for typeName is written to.
// e.g., "HTTPWidget" → "http_widget_proxy.go"
func FileName(prefix, typeName string) string {
	return toSnake(prefix+typeName) + "_proxy.go"
}

// toSnake converts a PascalCase identifier to snake_case, keeping
// acronyms together.
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
