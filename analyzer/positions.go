package analyzer

import "github.com/binschema/binschema/ir"

// collectPositionTracking scans every computed spec in the schema for a
// selector target (array[first<T>], array[last<T>], array[corresponding<T>])
// and records, on each type that owns an array field of the referenced
// name, which array+type pair its encode-time pre-pass must index.
func collectPositionTracking(a *Annotated) {
	for _, def := range a.Schema.Types {
		if def.Kind != ir.TypeComposite || def.Composite == nil {
			continue
		}
		for _, f := range def.Composite.Sequence {
			recordSelectorTarget(a, f.Computed)
		}
	}
}

func recordSelectorTarget(a *Annotated, c *ir.Computed) {
	if c == nil || c.Target == "" {
		return
	}
	tgt, err := ir.ParseTarget(c.Target)
	if err != nil || tgt.Kind != ir.TargetSelector {
		return
	}
	key := tgt.Selector.ArrayField + "__" + tgt.Selector.TypeName

	// The pre-pass runs where the array lives, so the key lands on every
	// composite declaring an array field of that name.
	for ownerName, def := range a.Schema.Types {
		if def.Kind != ir.TypeComposite || def.Composite == nil {
			continue
		}
		for _, f := range def.Composite.Sequence {
			if f.Name != tgt.Selector.ArrayField || f.Type.Kind != ir.KindArray {
				continue
			}
			info := a.Types[ownerName]
			if info == nil || containsKey(info.PositionTracked, key) {
				continue
			}
			info.PositionTracked = append(info.PositionTracked, key)
		}
	}
}

func containsKey(list []string, key string) bool {
	for _, v := range list {
		if v == key {
			return true
		}
	}
	return false
}
