package compiler

import (
	"log/slog"
	"strings"

	"github.com/jwtly10/litdraw/internal/jsast"
)

const (
	// ElementPrimitive constructs plain elements in generated code.
	ElementPrimitive = "h"
	// RuntimeSource is the module the element primitive is imported from.
	RuntimeSource = "litdraw/runtime"
)

// ImportTable maps lowercase tag names to the capitalized identifiers the
// document's scripts import. It is the only way the classifier decides that
// a tag names a component.
//
// Any imported binding starting with an uppercase letter is a candidate, so
// a component and an unrelated capitalized import with the same lowercase
// name cannot be told apart. When two imports collide the later one wins.
type ImportTable struct {
	names map[string]string
}

// BuildImportTable scans the top-level imports of m.
func BuildImportTable(m *jsast.Module) *ImportTable {
	t := &ImportTable{names: make(map[string]string)}

	for _, decl := range m.Imports() {
		for _, local := range decl.Locals() {
			if !startsUpper(local) {
				continue
			}
			key := strings.ToLower(local)
			if prev, ok := t.names[key]; ok && prev != local {
				slog.Debug("import name collision, later import wins", "tag", key, "previous", prev, "current", local)
			}
			t.names[key] = local
		}
	}

	return t
}

// Resolve returns the imported identifier for tag, matched case-insensitively.
func (t *ImportTable) Resolve(tag string) (string, bool) {
	name, ok := t.names[strings.ToLower(tag)]
	return name, ok
}

// Len returns the number of registered names.
func (t *ImportTable) Len() int {
	return len(t.names)
}

func startsUpper(name string) bool {
	return name != "" && name[0] >= 'A' && name[0] <= 'Z'
}

// EnsureElementImport makes sure m imports the element primitive exactly
// once. An existing import from the runtime gains the specifier; otherwise a
// new import is placed at the front of the module. A namespace import from
// the runtime cannot take named specifiers, so it is left alone.
func EnsureElementImport(m *jsast.Module) {
	if decl := runtimeImport(m); decl != nil {
		if !decl.Imports(ElementPrimitive) {
			decl.Specifiers = append(decl.Specifiers, jsast.ImportSpecifier{
				Imported: ElementPrimitive,
				Local:    ElementPrimitive,
			})
		}
		return
	}

	m.Prepend(&jsast.ImportDecl{
		Source: RuntimeSource,
		Specifiers: []jsast.ImportSpecifier{
			{Imported: ElementPrimitive, Local: ElementPrimitive},
		},
	})
}

// ImportsElement reports whether m binds the element primitive to the
// runtime's own export of that name.
func ImportsElement(m *jsast.Module) bool {
	for _, d := range m.Imports() {
		if d.Source != RuntimeSource {
			continue
		}
		for _, s := range d.Specifiers {
			if s.Local == ElementPrimitive && s.Imported == ElementPrimitive {
				return true
			}
		}
	}
	return false
}

// runtimeImport returns the import from the runtime that can take named
// specifiers, or nil.
func runtimeImport(m *jsast.Module) *jsast.ImportDecl {
	for _, d := range m.Imports() {
		if d.Source == RuntimeSource && d.Namespace == "" && d.Attributes == "" {
			return d
		}
	}
	return nil
}
