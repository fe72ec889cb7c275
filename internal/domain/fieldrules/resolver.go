package fieldrules

import (
	"context"
	"fmt"
)

// Level is the hierarchy level that produced a resolution.
type Level int

const (
	LevelDocumentType Level = iota + 1
	LevelAccount
	LevelAccountGroup
)

func (l Level) String() string {
	switch l {
	case LevelDocumentType:
		return "document_type"
	case LevelAccount:
		return "account"
	case LevelAccountGroup:
		return "account_group"
	default:
		return "none"
	}
}

// Resolution is the effective rule set for a context and where it came from.
type Resolution struct {
	RuleSet *RuleSet
	Level   Level

	// Key is the lookup key that matched: the document type, the account
	// or the account group.
	Key string
}

// Resolver determines the effective rule set for a posting context.
type Resolver struct {
	store Store
	cache Cache
}

// NewResolver creates a resolver. cache may be nil, in which case every
// resolution loads the rule set from the store.
func NewResolver(store Store, cache Cache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve tries, in order, the document-type override, the account override
// and the account group default. The first hit wins; levels are never merged.
//
// It returns ErrInvalidContext for a context without keys, ErrNoRuleSet when
// no level matches and ErrRuleSetInactive when the matching rule set is
// switched off. The Resolution is still filled in for an inactive rule set.
func (r *Resolver) Resolve(ctx context.Context, pc Context) (Resolution, error) {
	pc = pc.Normalize()
	if err := pc.Validate(); err != nil {
		return Resolution{}, err
	}

	id, level, key, err := r.lookup(ctx, pc)
	if err != nil {
		return Resolution{}, err
	}

	rs, err := r.load(ctx, id)
	if err != nil {
		return Resolution{}, fmt.Errorf("load rule set %s (%s %q): %w", id, level, key, err)
	}

	res := Resolution{RuleSet: rs, Level: level, Key: key}
	if !rs.Active() {
		return res, fmt.Errorf("%w: %s (%s %q)", ErrRuleSetInactive, id, level, key)
	}
	return res, nil
}

// lookup walks the three assignment levels.
func (r *Resolver) lookup(ctx context.Context, pc Context) (RuleSetID, Level, string, error) {
	// 1. Document type override
	if pc.DocumentType != "" {
		id, ok, err := r.store.LookupDocumentTypeOverride(ctx, pc.DocumentType)
		if err != nil {
			return "", 0, "", fmt.Errorf("lookup document type override %q: %w", pc.DocumentType, err)
		}
		if ok {
			return id, LevelDocumentType, pc.DocumentType, nil
		}
	}

	if pc.AccountID == "" {
		return "", 0, "", fmt.Errorf("%w: document type %q has no override and no account given", ErrNoRuleSet, pc.DocumentType)
	}

	// 2. Account override
	id, ok, err := r.store.LookupAccountOverride(ctx, pc.AccountID)
	if err != nil {
		return "", 0, "", fmt.Errorf("lookup account override %q: %w", pc.AccountID, err)
	}
	if ok {
		return id, LevelAccount, pc.AccountID, nil
	}

	// 3. Account group default
	group, ok, err := r.store.LookupAccountGroup(ctx, pc.AccountID)
	if err != nil {
		return "", 0, "", fmt.Errorf("lookup account group of %q: %w", pc.AccountID, err)
	}
	if !ok {
		return "", 0, "", fmt.Errorf("%w: account %q has no account group", ErrNoRuleSet, pc.AccountID)
	}

	id, ok, err = r.store.LookupAccountGroupDefault(ctx, group)
	if err != nil {
		return "", 0, "", fmt.Errorf("lookup default of account group %q: %w", group, err)
	}
	if !ok {
		return "", 0, "", fmt.Errorf("%w: account group %q has no default", ErrNoRuleSet, group)
	}
	return id, LevelAccountGroup, group, nil
}

func (r *Resolver) load(ctx context.Context, id RuleSetID) (*RuleSet, error) {
	if r.cache == nil {
		return r.store.LoadRuleSet(ctx, id)
	}
	return r.cache.GetOrLoad(ctx, id, func(ctx context.Context) (*RuleSet, error) {
		return r.store.LoadRuleSet(ctx, id)
	})
}

// InvalidateCache drops every cached rule set. Call it when the rule
// configuration changes.
func (r *Resolver) InvalidateCache() {
	if r.cache != nil {
		r.cache.Invalidate()
	}
}
