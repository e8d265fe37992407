package declmerge

// FieldListDedup merges repeated field declarations: walk left-to-right; for each entry, look
// at all later entries; if any later entry shares the same "field" value,
// type-merge it into the current entry and mark that later position as
// consumed. Entries without a "field" key are never merged into anything —
// they pass through unchanged, in order.
func (m *Merger) FieldListDedup(entries []any) []any {
	consumed := make([]bool, len(entries))
	out := make([]any, 0, len(entries))
	for i, entry := range entries {
		if consumed[i] {
			continue
		}
		field, hasField := fieldKey(entry)
		cur := entry
		if hasField {
			for j := i + 1; j < len(entries); j++ {
				if consumed[j] {
					continue
				}
				otherField, ok := fieldKey(entries[j])
				if !ok || otherField != field {
					continue
				}
				cur = m.MergeTwoTypes(cur, entries[j])
				consumed[j] = true
			}
		}
		out = append(out, cur)
	}
	return out
}

func fieldKey(v any) (string, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	f, ok := m["field"]
	if !ok {
		return "", false
	}
	s, ok := f.(string)
	return s, ok
}

// MergeTwoTypes combines two type descriptors into one, unioning enums and
// sequences and recursively merging matching object/array shapes.
func (m *Merger) MergeTwoTypes(l, r any) any {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}

	lSeq, lIsSeq := l.([]any)
	rSeq, rIsSeq := r.([]any)
	lMap, lIsMap := l.(map[string]any)
	rMap, rIsMap := r.(map[string]any)

	switch {
	case lIsSeq && rIsMap:
		return m.mergeSequenceIntoMapping(lSeq, rMap)
	case lIsMap && rIsSeq:
		return m.mergeSequenceIntoMapping(rSeq, lMap)
	case lIsMap && rIsMap:
		return m.mergeMappingMapping(lMap, rMap)
	case lIsSeq && rIsSeq:
		return m.FieldListDedup(append(append([]any{}, lSeq...), rSeq...))
	default:
		m.logf("type-merge mismatch (%T, %T): keeping left side", l, r)
		return l
	}
}

// mergeSequenceIntoMapping treats the mapping as an object descriptor and
// merges the sequence into its "fields" entry, keeping the mapping's other
// keys untouched.
func (m *Merger) mergeSequenceIntoMapping(seq []any, obj map[string]any) any {
	out := copyMap(obj)
	existing, _ := out["fields"].([]any)
	out["fields"] = m.FieldListDedup(append(append([]any{}, existing...), seq...))
	return out
}

func (m *Merger) mergeMappingMapping(l, r map[string]any) any {
	lType := typeOf(l)
	rType := typeOf(r)
	if lType != rType {
		m.logf("type mismatch %q vs %q: keeping left side", lType, rType)
		return l
	}

	out := copyMap(l)
	for k, v := range r {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	out["type"] = lType
	out["description"] = joinNonEmpty(stringOf(l["description"]), stringOf(r["description"]))
	out["enum"] = unionPreserveOrder(toSliceAny(l["enum"]), toSliceAny(r["enum"]))

	switch lType {
	case "array":
		out["items"] = m.mergeTypedSubDescriptor(l["items"], r["items"], "items must be mappings")
	case "object":
		out["fields"] = m.mergeFieldSequences(l["fields"], r["fields"])
	}
	return out
}

func (m *Merger) mergeTypedSubDescriptor(l, r any, warnMsg string) any {
	lMap, lOK := asMapOrNil(l)
	rMap, rOK := asMapOrNil(r)
	if !lOK || !rOK {
		m.logf("%s: dropping items merge", warnMsg)
		if l != nil {
			return l
		}
		return r
	}
	return m.mergeMappingMapping(lMap, rMap)
}

func (m *Merger) mergeFieldSequences(l, r any) any {
	lSeq, lOK := asSliceOrNil(l)
	rSeq, rOK := asSliceOrNil(r)
	if !lOK || !rOK {
		m.logf("fields must be sequences: dropping fields merge")
		if l != nil {
			return l
		}
		return r
	}
	return m.FieldListDedup(append(append([]any{}, lSeq...), rSeq...))
}

func asMapOrNil(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func asSliceOrNil(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	s, ok := v.([]any)
	return s, ok
}

func typeOf(m map[string]any) string {
	if s, ok := m["type"].(string); ok && s != "" {
		return s
	}
	return "string"
}

func stringOf(v any) string {
	s, _ := v.(string)
	return s
}

func toSliceAny(v any) []any {
	s, _ := v.([]any)
	return s
}

func unionPreserveOrder(a, b []any) []any {
	seen := make(map[any]bool, len(a)+len(b))
	out := make([]any, 0, len(a)+len(b))
	for _, v := range append(append([]any{}, a...), b...) {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
