package source

import (
	"fmt"
	"go/types"
	"sort"
	"strings"
)

// importSet assigns a unique local name to every package a generated file
// refers to.
type importSet struct {
	self   string            // import path of the output package
	byPath map[string]string // path → local name
	names  map[string]bool   // local names in use, including reserved identifiers
}

func newImportSet(self string, reserved ...string) *importSet {
	s := &importSet{
		self:   self,
		byPath: make(map[string]string),
		names:  make(map[string]bool),
	}
	for _, name := range reserved {
		s.names[name] = true
	}
	return s
}

// add registers path under name (or a unique variant of it) and returns the
// local name.
func (s *importSet) add(path, name string) string {
	if path == s.self {
		return ""
	}
	if local, ok := s.byPath[path]; ok {
		return local
	}
	local := name
	for i := 2; s.names[local]; i++ {
		local = fmt.Sprintf("%s%d", name, i)
	}
	s.names[local] = true
	s.byPath[path] = local
	return local
}

func (s *importSet) qualifier(p *types.Package) string {
	return s.add(p.Path(), p.Name())
}

// qualify returns pkg-qualified name for an object declared in path.
func (s *importSet) qualify(path, pkgName, name string) string {
	if local := s.add(path, pkgName); local != "" {
		return local + "." + name
	}
	return name
}

func (s *importSet) typeString(t types.Type) string {
	return types.TypeString(t, s.qualifier)
}

// render writes the import block in path order.
func (s *importSet) render(b *strings.Builder) {
	if len(s.byPath) == 0 {
		return
	}
	paths := make([]string, 0, len(s.byPath))
	for p := range s.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	b.WriteString("import (\n")
	for _, p := range paths {
		local := s.byPath[p]
		if local == lastElem(p) {
			fmt.Fprintf(b, "\t%q\n", p)
		} else {
			fmt.Fprintf(b, "\t%s %q\n", local, p)
		}
	}
	b.WriteString(")\n\n")
}

func lastElem(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
