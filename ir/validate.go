package ir

import "fmt"

// Validate resolves every type reference in the schema, walks alias chains
// to detect cycles, and checks that every computed spec is well formed (the
// target path of length_of/count_of/crc32_of/position_of must parse).
// Conditional predicates are not checked here. It does not perform the deeper classification analyzer.Analyze
// does; Validate only rejects schemas codegen could not possibly compile.
func Validate(s *Schema) error {
	for name, def := range s.Types {
		if err := validateTypeDef(s, name, def); err != nil {
			return err
		}
	}
	if err := detectAliasCycles(s); err != nil {
		return err
	}
	return nil
}

func validateTypeDef(s *Schema, name string, def *TypeDef) error {
	switch def.Kind {
	case TypeComposite:
		if def.Composite == nil {
			return newCompileError(ErrMalformedTarget, name, "composite type has no body")
		}
		for i := range def.Composite.Sequence {
			if err := validateField(s, name, &def.Composite.Sequence[i]); err != nil {
				return err
			}
		}
		for i := range def.Composite.Instances {
			if err := validateFieldType(s, name, &def.Composite.Instances[i].Type); err != nil {
				return err
			}
		}
	case TypeAlias:
		if def.Alias == nil {
			return newCompileError(ErrMalformedTarget, name, "alias type has no target")
		}
		if err := validateFieldType(s, name, def.Alias); err != nil {
			return err
		}
	case TypeUnion:
		if def.Union == nil {
			return newCompileError(ErrMalformedTarget, name, "union type has no body")
		}
		for _, v := range def.Union.Variants {
			if _, ok := s.Types[v.TypeName]; !ok {
				return newCompileError(ErrUndefinedTypeRef, name, "variant references undefined type %q", v.TypeName)
			}
		}
		if d := def.Union.Discriminator; d != nil {
			if d.Kind != DiscriminatorPeek && d.Kind != DiscriminatorField {
				return newCompileError(ErrInvalidDiscriminator, name, "unknown discriminator kind %q", d.Kind)
			}
		}
	default:
		return newCompileError(ErrMalformedTarget, name, "unknown type kind %q", def.Kind)
	}
	return nil
}

func validateField(s *Schema, typeName string, f *Field) error {
	if err := validateFieldType(s, typeName, &f.Type); err != nil {
		return err
	}
	if f.Computed != nil {
		if err := validateComputed(typeName, f.Computed); err != nil {
			return err
		}
	}
	return nil
}

func validateComputed(typeName string, c *Computed) error {
	switch c.Kind {
	case ComputedLengthOf, ComputedCountOf, ComputedCRC32Of, ComputedPositionOf:
		if c.Target == "" {
			return newCompileError(ErrInvalidComputedSpec, typeName, "%s requires a target", c.Kind)
		}
		if _, err := ParseTarget(c.Target); err != nil {
			return fmt.Errorf("type %q: computed %s: %w", typeName, c.Kind, err)
		}
	case ComputedSumOfSizes:
		if len(c.Targets) == 0 {
			return newCompileError(ErrInvalidComputedSpec, typeName, "sum_of_sizes requires at least one target")
		}
	case ComputedSumOfTypeSizes:
		if c.VariantType == "" || c.ArrayField == "" {
			return newCompileError(ErrInvalidComputedSpec, typeName, "sum_of_type_sizes requires variant_type and array_field")
		}
	default:
		return newCompileError(ErrInvalidComputedSpec, typeName, "unknown computed kind %q", c.Kind)
	}
	return nil
}

func validateFieldType(s *Schema, typeName string, ft *FieldType) error {
	switch ft.Kind {
	case KindRef:
		if _, ok := s.Types[ft.RefName]; !ok {
			return newCompileError(ErrUndefinedTypeRef, typeName, "references undefined type %q", ft.RefName)
		}
	case KindBitfield:
		for i := range ft.SubFields {
			if err := validateField(s, typeName, &ft.SubFields[i]); err != nil {
				return err
			}
		}
	case KindString:
		if ft.String == nil {
			return newCompileError(ErrMalformedTarget, typeName, "string field missing string_spec")
		}
	case KindArray:
		if ft.Array == nil || ft.Array.Items == nil {
			return newCompileError(ErrMalformedTarget, typeName, "array field missing items definition")
		}
		if err := validateFieldType(s, typeName, ft.Array.Items); err != nil {
			return err
		}
	case KindOptional:
		if ft.Optional == nil || ft.Optional.Value == nil {
			return newCompileError(ErrMalformedTarget, typeName, "optional field missing value type")
		}
		if err := validateFieldType(s, typeName, ft.Optional.Value); err != nil {
			return err
		}
	case KindBackReference:
		if ft.BackRef == nil {
			return newCompileError(ErrMalformedTarget, typeName, "back_reference field missing back_ref_spec")
		}
		if _, ok := s.Types[ft.BackRef.TargetType]; !ok {
			return newCompileError(ErrUndefinedTypeRef, typeName, "back_reference targets undefined type %q", ft.BackRef.TargetType)
		}
	case KindInlineUnion:
		if ft.Union == nil {
			return newCompileError(ErrMalformedTarget, typeName, "inline_union field missing union_spec")
		}
		for _, v := range ft.Union.Variants {
			if _, ok := s.Types[v.TypeName]; !ok {
				return newCompileError(ErrUndefinedTypeRef, typeName, "inline union variant references undefined type %q", v.TypeName)
			}
		}
	}
	return nil
}

// detectAliasCycles walks every alias chain transitively. A type that
// references itself via a non-nullable, non-array path (i.e. a direct or
// indirect alias-of-alias cycle) is a schema error.
func detectAliasCycles(s *Schema) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(s.Types))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch color[name] {
		case black:
			return nil
		case gray:
			return newCompileError(ErrAliasCycle, name, "alias cycle: %v", append(path, name))
		}
		def, ok := s.Types[name]
		if !ok {
			return nil // undefined refs already reported by validateTypeDef
		}
		if def.Kind != TypeAlias || def.Alias == nil {
			color[name] = black
			return nil
		}
		color[name] = gray
		if def.Alias.Kind == KindRef {
			if err := visit(def.Alias.RefName, append(path, name)); err != nil {
				return err
			}
		}
		color[name] = black
		return nil
	}

	for name := range s.Types {
		if err := visit(name, nil); err != nil {
			return err
		}
	}
	return nil
}
