package fieldrules

// uniformDefinition returns a complete definition with every field set to
// status, then applies overrides.
func uniformDefinition(id RuleSetID, status FieldStatus, overrides map[Field]FieldStatus) Definition {
	entries := make([]FieldEntry, 0, FieldCount)
	for _, f := range AllFields() {
		s := status
		if o, ok := overrides[f]; ok {
			s = o
		}
		entries = append(entries, FieldEntry{Field: f.String(), Status: s.String()})
	}
	return Definition{ID: id, Name: string(id), Active: true, Entries: entries}
}

func mustRuleSet(def Definition) *RuleSet {
	rs, err := NewRuleSet(def)
	if err != nil {
		panic(err)
	}
	return rs
}
