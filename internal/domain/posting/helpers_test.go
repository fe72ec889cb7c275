package posting

import (
	"context"
	"time"

	"postingcore/internal/core/types"
	"postingcore/internal/domain/fieldrules"
)

func ruleSet(id string, base fieldrules.FieldStatus, overrides map[fieldrules.Field]fieldrules.FieldStatus) *fieldrules.RuleSet {
	entries := make([]fieldrules.FieldEntry, 0, fieldrules.FieldCount)
	for _, f := range fieldrules.AllFields() {
		s := base
		if o, ok := overrides[f]; ok {
			s = o
		}
		entries = append(entries, fieldrules.FieldEntry{Field: f.String(), Status: s.String()})
	}
	rs, err := fieldrules.NewRuleSet(fieldrules.Definition{
		ID:      fieldrules.RuleSetID(id),
		Name:    id,
		Active:  true,
		Entries: entries,
	})
	if err != nil {
		panic(err)
	}
	return rs
}

var (
	cash01 = ruleSet("CASH01", fieldrules.Optional, map[fieldrules.Field]fieldrules.FieldStatus{
		fieldrules.BusinessUnit: fieldrules.Suppressed,
	})
	rev01 = ruleSet("REV01", fieldrules.Optional, map[fieldrules.Field]fieldrules.FieldStatus{
		fieldrules.BusinessUnit: fieldrules.Required,
		fieldrules.TaxCode:      fieldrules.Required,
		fieldrules.BusinessArea: fieldrules.Required,
	})
	allOptional = ruleSet("OPT01", fieldrules.Optional, nil)
)

// stubResolver answers by account id.
type stubResolver struct {
	byAccount map[string]*fieldrules.RuleSet
	errs      map[string]error
	calls     int
}

func (s *stubResolver) Resolve(_ context.Context, pc fieldrules.Context) (fieldrules.Resolution, error) {
	s.calls++
	pc = pc.Normalize()
	if err, ok := s.errs[pc.AccountID]; ok {
		return fieldrules.Resolution{}, err
	}
	if rs, ok := s.byAccount[pc.AccountID]; ok {
		return fieldrules.Resolution{RuleSet: rs, Level: fieldrules.LevelAccountGroup, Key: pc.AccountID}, nil
	}
	return fieldrules.Resolution{}, fieldrules.ErrNoRuleSet
}

func debitLine(account, amount string) Line {
	return Line{
		Context: fieldrules.Context{AccountID: account},
		Debit:   types.MustMoney(amount),
	}
}

func creditLine(account, amount string) Line {
	return Line{
		Context: fieldrules.Context{AccountID: account},
		Credit:  types.MustMoney(amount),
	}
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}
