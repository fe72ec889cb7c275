package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"postingcore/internal/domain/fieldrules"
)

type index struct {
	documentTypes map[string]fieldrules.RuleSetID
	accounts      map[string]fieldrules.RuleSetID
	accountGroups map[string]string
	groupDefaults map[string]fieldrules.RuleSetID
	definitions   map[fieldrules.RuleSetID]fieldrules.Definition
	ruleSetOrder  []fieldrules.RuleSetID
	groups        []string
}

func buildIndex(doc *Document) *index {
	idx := &index{
		documentTypes: make(map[string]fieldrules.RuleSetID),
		accounts:      make(map[string]fieldrules.RuleSetID),
		accountGroups: make(map[string]string),
		groupDefaults: make(map[string]fieldrules.RuleSetID),
		definitions:   make(map[fieldrules.RuleSetID]fieldrules.Definition),
	}

	for _, rs := range doc.RuleSets {
		def := rs.Definition()
		idx.definitions[def.ID] = def
		idx.ruleSetOrder = append(idx.ruleSetOrder, def.ID)
	}
	// Later entries overwrite earlier ones.
	for _, o := range doc.DocumentTypeOverrides {
		idx.documentTypes[key(o.DocumentType)] = fieldrules.RuleSetID(key(o.RuleSet))
	}
	for _, o := range doc.AccountOverrides {
		idx.accounts[key(o.Account)] = fieldrules.RuleSetID(key(o.RuleSet))
	}
	for _, a := range doc.Accounts {
		idx.accountGroups[key(a.Account)] = key(a.Group)
	}
	for _, g := range doc.AccountGroupDefaults {
		idx.groupDefaults[key(g.Group)] = fieldrules.RuleSetID(key(g.RuleSet))
	}

	seen := make(map[string]struct{})
	for _, group := range idx.accountGroups {
		if _, ok := seen[group]; !ok {
			seen[group] = struct{}{}
			idx.groups = append(idx.groups, group)
		}
	}
	slices.Sort(idx.groups)
	return idx
}

func key(s string) string { return strings.TrimSpace(s) }

// Store is a fieldrules.Store over a rules document. Replace swaps the whole
// configuration atomically; readers never see a half-applied document.
type Store struct {
	current atomic.Pointer[index]
}

var (
	_ fieldrules.Store              = (*Store)(nil)
	_ fieldrules.RuleSetLister      = (*Store)(nil)
	_ fieldrules.AccountGroupLister = (*Store)(nil)
)

// New creates a store from doc. A nil doc gives an empty store.
func New(doc *Document) (*Store, error) {
	s := &Store{}
	if doc == nil {
		doc = &Document{}
	}
	if err := s.Replace(doc); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadFile creates a store from a YAML rules file.
func LoadFile(path string) (*Store, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// Replace validates doc and makes it the current configuration. On error
// the previous configuration stays in place.
func (s *Store) Replace(doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	s.current.Store(buildIndex(doc))
	return nil
}

// ReloadFile re-reads path and replaces the configuration.
func (s *Store) ReloadFile(path string) error {
	doc, err := ReadDocument(path)
	if err != nil {
		return err
	}
	return s.Replace(doc)
}

func (s *Store) LookupDocumentTypeOverride(ctx context.Context, documentType string) (fieldrules.RuleSetID, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	id, ok := s.current.Load().documentTypes[key(documentType)]
	return id, ok, nil
}

func (s *Store) LookupAccountOverride(ctx context.Context, accountID string) (fieldrules.RuleSetID, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	id, ok := s.current.Load().accounts[key(accountID)]
	return id, ok, nil
}

func (s *Store) LookupAccountGroup(ctx context.Context, accountID string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	group, ok := s.current.Load().accountGroups[key(accountID)]
	return group, ok, nil
}

func (s *Store) LookupAccountGroupDefault(ctx context.Context, accountGroup string) (fieldrules.RuleSetID, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	id, ok := s.current.Load().groupDefaults[key(accountGroup)]
	return id, ok, nil
}

// LoadRuleSet builds the rule set from its definition. Malformed
// definitions fail here, not at document load.
func (s *Store) LoadRuleSet(ctx context.Context, id fieldrules.RuleSetID) (*fieldrules.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	def, ok := s.current.Load().definitions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fieldrules.ErrRuleSetNotFound, id)
	}
	return fieldrules.NewRuleSet(def)
}

// ListRuleSetIDs returns rule set ids in document order.
func (s *Store) ListRuleSetIDs(ctx context.Context) ([]fieldrules.RuleSetID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.current.Load().ruleSetOrder), nil
}

// ListAccountGroups returns every group some account belongs to, sorted.
func (s *Store) ListAccountGroups(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.current.Load().groups), nil
}
