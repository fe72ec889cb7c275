package fieldrules

import (
	"context"
	"strings"
)

// Context is the lookup key for resolution. Either part may be empty,
// but not both.
type Context struct {
	DocumentType string `yaml:"document_type" json:"documentType,omitempty"`
	AccountID    string `yaml:"account" json:"account,omitempty"`
}

// Normalize trims surrounding whitespace from both keys.
func (c Context) Normalize() Context {
	return Context{
		DocumentType: strings.TrimSpace(c.DocumentType),
		AccountID:    strings.TrimSpace(c.AccountID),
	}
}

// Validate rejects a context that carries neither key.
func (c Context) Validate() error {
	n := c.Normalize()
	if n.DocumentType == "" && n.AccountID == "" {
		return ErrInvalidContext
	}
	return nil
}

// Store is the read-only rule store the core consumes.
//
// Lookups return ok=false when no assignment exists; err is reserved for
// failures. LoadRuleSet returns ErrRuleSetNotFound for unknown ids and the
// NewRuleSet errors for malformed definitions. Any other error is treated as
// a transport failure and propagated unchanged.
type Store interface {
	LookupDocumentTypeOverride(ctx context.Context, documentType string) (RuleSetID, bool, error)
	LookupAccountOverride(ctx context.Context, accountID string) (RuleSetID, bool, error)
	LookupAccountGroup(ctx context.Context, accountID string) (string, bool, error)
	LookupAccountGroupDefault(ctx context.Context, accountGroup string) (RuleSetID, bool, error)
	LoadRuleSet(ctx context.Context, id RuleSetID) (*RuleSet, error)
}

// RuleSetLister is implemented by stores that can enumerate their rule sets.
type RuleSetLister interface {
	ListRuleSetIDs(ctx context.Context) ([]RuleSetID, error)
}

// AccountGroupLister is implemented by stores that can enumerate active
// account groups.
type AccountGroupLister interface {
	ListAccountGroups(ctx context.Context) ([]string, error)
}

// Cache memoizes loaded rule sets by id.
type Cache interface {
	// GetOrLoad returns the cached rule set for id, calling load on a miss.
	GetOrLoad(ctx context.Context, id RuleSetID, load func(ctx context.Context) (*RuleSet, error)) (*RuleSet, error)

	// Invalidate drops every cached rule set.
	Invalidate()
}
