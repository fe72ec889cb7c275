// Package memory is a rule store held in memory and loaded from a YAML rules
// file. It serves the CLI and tests; the PostgreSQL store serves production.
package memory

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"postingcore/internal/domain/fieldrules"
)

// Document is the YAML layout of a rules file.
//
// The four assignment lists are append-only logs: when a key appears more
// than once, the last entry wins.
type Document struct {
	RuleSets              []RuleSetDoc      `yaml:"rule_sets" validate:"dive"`
	DocumentTypeOverrides []DocumentTypeDoc `yaml:"document_type_overrides" validate:"dive"`
	AccountOverrides      []AccountRuleDoc  `yaml:"account_overrides" validate:"dive"`
	Accounts              []AccountDoc      `yaml:"accounts" validate:"dive"`
	AccountGroupDefaults  []GroupDefaultDoc `yaml:"account_group_defaults" validate:"dive"`
}

// RuleSetDoc is one rule set. Every field must be listed.
type RuleSetDoc struct {
	ID                   string                  `yaml:"id" validate:"required"`
	Name                 string                  `yaml:"name"`
	Active               *bool                   `yaml:"active"`
	AllowNegativeAmounts bool                    `yaml:"allow_negative_amounts"`
	Fields               []fieldrules.FieldEntry `yaml:"fields" validate:"required,dive"`
}

type DocumentTypeDoc struct {
	DocumentType string `yaml:"document_type" validate:"required"`
	RuleSet      string `yaml:"rule_set" validate:"required"`
}

type AccountRuleDoc struct {
	Account string `yaml:"account" validate:"required"`
	RuleSet string `yaml:"rule_set" validate:"required"`
}

type AccountDoc struct {
	Account string `yaml:"account" validate:"required"`
	Group   string `yaml:"group" validate:"required"`
}

type GroupDefaultDoc struct {
	Group   string `yaml:"group" validate:"required"`
	RuleSet string `yaml:"rule_set" validate:"required"`
}

// Definition converts the document form to the domain definition.
// A rule set without an explicit active flag is active.
func (d RuleSetDoc) Definition() fieldrules.Definition {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	return fieldrules.Definition{
		ID:                   fieldrules.RuleSetID(strings.TrimSpace(d.ID)),
		Name:                 d.Name,
		Active:               active,
		AllowNegativeAmounts: d.AllowNegativeAmounts,
		Entries:              d.Fields,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseDocument decodes and checks a rules document. Unknown keys are
// rejected so a typo in a key cannot silently drop a rule.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty file decodes to io.EOF and means an empty document.
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode rules document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ReadDocument reads and parses a rules file.
func ReadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Validate checks required keys, duplicate rule set ids and that every
// assignment names a rule set defined in the document. Rule set contents are
// checked when they are loaded, like any other store.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid rules document: %w", err)
	}

	ids := make(map[string]struct{}, len(d.RuleSets))
	var problems []error
	for _, rs := range d.RuleSets {
		id := strings.TrimSpace(rs.ID)
		if _, dup := ids[id]; dup {
			problems = append(problems, fmt.Errorf("rule set %s defined twice", id))
		}
		ids[id] = struct{}{}
	}

	ref := func(kind, key, id string) {
		if _, ok := ids[strings.TrimSpace(id)]; !ok {
			problems = append(problems, fmt.Errorf("%s %q refers to undefined rule set %s", kind, key, id))
		}
	}
	for _, o := range d.DocumentTypeOverrides {
		ref("document type override", o.DocumentType, o.RuleSet)
	}
	for _, o := range d.AccountOverrides {
		ref("account override", o.Account, o.RuleSet)
	}
	for _, o := range d.AccountGroupDefaults {
		ref("account group default", o.Group, o.RuleSet)
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid rules document: %w", errors.Join(problems...))
	}
	return nil
}
