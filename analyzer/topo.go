package analyzer

import (
	"sort"

	"github.com/binschema/binschema/ir"
)

// topoOrder returns a dependency-respecting emission order: a type's
// direct references are ordered ahead of it wherever the reference graph
// is acyclic. Recursive structures (trees, linked lists via ref) cannot be
// strictly ordered; such a type is simply emitted once, at the point its
// own cycle is first entered, the same way Go tolerates forward references
// between package-level declarations.
func topoOrder(s *ir.Schema) ([]string, error) {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(names))
	order := make([]string, 0, len(names))

	var visit func(name string)
	visit = func(name string) {
		if color[name] != white {
			return
		}
		color[name] = gray
		for _, dep := range directDeps(s, name) {
			visit(dep)
		}
		color[name] = black
		order = append(order, name)
	}

	for _, name := range names {
		visit(name)
	}
	return order, nil
}

func directDeps(s *ir.Schema, name string) []string {
	def, ok := s.Types[name]
	if !ok {
		return nil
	}
	var deps []string
	switch def.Kind {
	case ir.TypeComposite:
		if def.Composite != nil {
			for _, f := range def.Composite.Sequence {
				deps = append(deps, fieldTypeDeps(&f.Type)...)
			}
			for _, inst := range def.Composite.Instances {
				deps = append(deps, fieldTypeDeps(&inst.Type)...)
			}
		}
	case ir.TypeAlias:
		if def.Alias != nil {
			deps = append(deps, fieldTypeDeps(def.Alias)...)
		}
	case ir.TypeUnion:
		if def.Union != nil {
			for _, v := range def.Union.Variants {
				deps = append(deps, v.TypeName)
			}
		}
	}
	return deps
}

func fieldTypeDeps(ft *ir.FieldType) []string {
	switch ft.Kind {
	case ir.KindRef:
		return []string{ft.RefName}
	case ir.KindBitfield:
		var deps []string
		for _, sf := range ft.SubFields {
			deps = append(deps, fieldTypeDeps(&sf.Type)...)
		}
		return deps
	case ir.KindArray:
		if ft.Array != nil && ft.Array.Items != nil {
			return fieldTypeDeps(ft.Array.Items)
		}
	case ir.KindOptional:
		if ft.Optional != nil && ft.Optional.Value != nil {
			return fieldTypeDeps(ft.Optional.Value)
		}
	case ir.KindBackReference:
		if ft.BackRef != nil {
			return []string{ft.BackRef.TargetType}
		}
	case ir.KindInlineUnion:
		if ft.Union != nil {
			var deps []string
			for _, v := range ft.Union.Variants {
				deps = append(deps, v.TypeName)
			}
			return deps
		}
	}
	return nil
}
