package fieldrules

import (
	"errors"
	"fmt"
	"strings"
)

// RuleSetID identifies a rule set in the rule store.
type RuleSetID string

// FieldEntry is one stored (field name, status) row of a rule set definition.
type FieldEntry struct {
	Field  string `yaml:"field" json:"field" db:"field_name"`
	Status string `yaml:"status" json:"status" db:"status"`
}

// Definition is a rule set as read from a store, before validation.
type Definition struct {
	ID                   RuleSetID
	Name                 string
	Active               bool
	AllowNegativeAmounts bool
	Entries              []FieldEntry
}

// RuleSet assigns exactly one FieldStatus to every field.
// A RuleSet value is immutable once built; share it freely between goroutines.
type RuleSet struct {
	id                   RuleSetID
	name                 string
	active               bool
	allowNegativeAmounts bool
	statuses             [FieldCount]FieldStatus
}

// NewRuleSet validates a stored definition. It fails when a field has no entry,
// when a field appears twice, when a field name is unknown or when a status is
// not one of the four known values. All problems are reported together.
func NewRuleSet(def Definition) (*RuleSet, error) {
	if strings.TrimSpace(string(def.ID)) == "" {
		return nil, fmt.Errorf("%w: empty rule set id", ErrRuleSetNotFound)
	}

	rs := &RuleSet{
		id:                   def.ID,
		name:                 def.Name,
		active:               def.Active,
		allowNegativeAmounts: def.AllowNegativeAmounts,
	}

	var problems []error
	for _, entry := range def.Entries {
		field, err := ParseField(entry.Field)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		status, err := ParseFieldStatus(entry.Status)
		if err != nil {
			problems = append(problems, fmt.Errorf("%s: %w", field, err))
			continue
		}
		if rs.statuses[field] != statusUnset {
			problems = append(problems, fmt.Errorf("%w: %s", ErrDuplicateField, field))
			continue
		}
		rs.statuses[field] = status
	}

	var missing []string
	for f := Field(0); f < FieldCount; f++ {
		if rs.statuses[f] == statusUnset {
			missing = append(missing, f.String())
		}
	}
	if len(missing) > 0 {
		problems = append(problems, fmt.Errorf("%w: %s", ErrIncompleteRuleSet, strings.Join(missing, ", ")))
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("rule set %s: %w", def.ID, errors.Join(problems...))
	}
	return rs, nil
}

// ID returns the rule set identifier.
func (rs *RuleSet) ID() RuleSetID { return rs.id }

// Name returns the human-readable name.
func (rs *RuleSet) Name() string { return rs.name }

// Active reports whether the rule set may be applied.
func (rs *RuleSet) Active() bool { return rs.active }

// AllowNegativeAmounts reports whether lines may carry negative amounts.
func (rs *RuleSet) AllowNegativeAmounts() bool { return rs.allowNegativeAmounts }

// Status returns the status assigned to f.
func (rs *RuleSet) Status(f Field) FieldStatus {
	if !f.Valid() {
		return statusUnset
	}
	return rs.statuses[f]
}

// Statuses returns a copy of the full status record.
func (rs *RuleSet) Statuses() [FieldCount]FieldStatus {
	return rs.statuses
}

// Definition converts the rule set back to its stored form, one entry per
// field in declaration order.
func (rs *RuleSet) Definition() Definition {
	entries := make([]FieldEntry, 0, FieldCount)
	for f := Field(0); f < FieldCount; f++ {
		entries = append(entries, FieldEntry{Field: f.String(), Status: rs.statuses[f].String()})
	}
	return Definition{
		ID:                   rs.id,
		Name:                 rs.name,
		Active:               rs.active,
		AllowNegativeAmounts: rs.allowNegativeAmounts,
		Entries:              entries,
	}
}
