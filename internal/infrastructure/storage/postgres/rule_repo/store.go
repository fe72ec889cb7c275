// Package rule_repo implements the rule store on PostgreSQL.
package rule_repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"postingcore/internal/domain/fieldrules"
	"postingcore/internal/infrastructure/storage/postgres"
)

var tracer = otel.Tracer("postingcore/rule_repo")

// Store reads rule sets and their assignments.
type Store struct {
	txm *postgres.TxManager
}

var (
	_ fieldrules.Store              = (*Store)(nil)
	_ fieldrules.RuleSetLister      = (*Store)(nil)
	_ fieldrules.AccountGroupLister = (*Store)(nil)
)

// NewStore creates a rule store over txm.
func NewStore(txm *postgres.TxManager) *Store {
	return &Store{txm: txm}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// latestAssignment selects the newest value of column for one key.
func latestAssignment(table, keyColumn, valueColumn, key string) squirrel.SelectBuilder {
	return Builder().
		Select(valueColumn).
		From(table).
		Where(squirrel.Eq{keyColumn: key}).
		OrderBy(latestFirst...).
		Limit(1)
}

func documentTypeQuery(documentType string) squirrel.SelectBuilder {
	return latestAssignment(documentTypeTable, "document_type", "rule_set_id", documentType)
}

func accountQuery(accountID string) squirrel.SelectBuilder {
	return latestAssignment(accountRuleTable, "account_id", "rule_set_id", accountID)
}

func accountGroupQuery(accountID string) squirrel.SelectBuilder {
	return latestAssignment(accountGroupTable, "account_id", "account_group", accountID)
}

func groupDefaultQuery(group string) squirrel.SelectBuilder {
	return latestAssignment(groupDefaultTable, "account_group", "rule_set_id", group)
}

func ruleSetHeaderQuery(id fieldrules.RuleSetID) squirrel.SelectBuilder {
	return Builder().
		Select("id", "name", "is_active", "allow_negative_amounts").
		From(ruleSetTable).
		Where(squirrel.Eq{"id": string(id)})
}

func ruleSetFieldsQuery(id fieldrules.RuleSetID) squirrel.SelectBuilder {
	return Builder().
		Select("field_name", "status").
		From(ruleSetFieldTable).
		Where(squirrel.Eq{"rule_set_id": string(id)}).
		OrderBy("field_name")
}

// currentGroupsQuery lists the groups accounts currently belong to.
func currentGroupsQuery() squirrel.SelectBuilder {
	current := Builder().
		Select("DISTINCT ON (account_id) account_group").
		From(accountGroupTable).
		OrderBy(append([]string{"account_id"}, latestFirst...)...)
	return Builder().
		Select("DISTINCT account_group").
		FromSelect(current, "current").
		OrderBy("account_group")
}

func (s *Store) LookupDocumentTypeOverride(ctx context.Context, documentType string) (fieldrules.RuleSetID, bool, error) {
	v, ok, err := s.lookup(ctx, "lookup_document_type", documentTypeQuery(strings.TrimSpace(documentType)))
	return fieldrules.RuleSetID(v), ok, err
}

func (s *Store) LookupAccountOverride(ctx context.Context, accountID string) (fieldrules.RuleSetID, bool, error) {
	v, ok, err := s.lookup(ctx, "lookup_account", accountQuery(strings.TrimSpace(accountID)))
	return fieldrules.RuleSetID(v), ok, err
}

func (s *Store) LookupAccountGroup(ctx context.Context, accountID string) (string, bool, error) {
	return s.lookup(ctx, "lookup_account_group", accountGroupQuery(strings.TrimSpace(accountID)))
}

func (s *Store) LookupAccountGroupDefault(ctx context.Context, accountGroup string) (fieldrules.RuleSetID, bool, error) {
	v, ok, err := s.lookup(ctx, "lookup_group_default", groupDefaultQuery(strings.TrimSpace(accountGroup)))
	return fieldrules.RuleSetID(v), ok, err
}

// lookup runs a single-value query. No row means no assignment.
func (s *Store) lookup(ctx context.Context, op string, q squirrel.SelectBuilder) (string, bool, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build query: %w", err)
	}

	ctx, span := tracer.Start(ctx, "rule_repo."+op, trace.WithAttributes(
		attribute.String("db.statement", sql),
	))
	defer span.End()

	var value string
	err = s.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetAttributes(attribute.Bool("rule_repo.found", false))
			return "", false, nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, op)
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	span.SetAttributes(attribute.Bool("rule_repo.found", true))
	return value, true, nil
}

type ruleSetRow struct {
	ID                   string `db:"id"`
	Name                 string `db:"name"`
	IsActive             bool   `db:"is_active"`
	AllowNegativeAmounts bool   `db:"allow_negative_amounts"`
}

// LoadRuleSet reads the header and field rows in one read-only transaction
// and validates them with fieldrules.NewRuleSet.
func (s *Store) LoadRuleSet(ctx context.Context, id fieldrules.RuleSetID) (*fieldrules.RuleSet, error) {
	ctx, span := tracer.Start(ctx, "rule_repo.load_rule_set", trace.WithAttributes(
		attribute.String("rule_set.id", string(id)),
	))
	defer span.End()

	var def fieldrules.Definition
	err := s.txm.ReadOnly(ctx, func(ctx context.Context) error {
		querier := s.txm.GetQuerier(ctx)

		sql, args, err := ruleSetHeaderQuery(id).ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		var row ruleSetRow
		if err := pgxscan.Get(ctx, querier, &row, sql, args...); err != nil {
			if pgxscan.NotFound(err) {
				return fmt.Errorf("%w: %s", fieldrules.ErrRuleSetNotFound, id)
			}
			return fmt.Errorf("load rule set header: %w", err)
		}

		sql, args, err = ruleSetFieldsQuery(id).ToSql()
		if err != nil {
			return fmt.Errorf("build query: %w", err)
		}
		var entries []fieldrules.FieldEntry
		if err := pgxscan.Select(ctx, querier, &entries, sql, args...); err != nil {
			return fmt.Errorf("load rule set fields: %w", err)
		}

		def = fieldrules.Definition{
			ID:                   fieldrules.RuleSetID(row.ID),
			Name:                 row.Name,
			Active:               row.IsActive,
			AllowNegativeAmounts: row.AllowNegativeAmounts,
			Entries:              entries,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_rule_set")
		return nil, err
	}

	span.SetAttributes(attribute.Int("rule_set.fields", len(def.Entries)))
	return fieldrules.NewRuleSet(def)
}

// ListRuleSetIDs returns every rule set id, sorted.
func (s *Store) ListRuleSetIDs(ctx context.Context) ([]fieldrules.RuleSetID, error) {
	sql, args, err := Builder().Select("id").From(ruleSetTable).OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var ids []string
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &ids, sql, args...); err != nil {
		return nil, fmt.Errorf("list rule sets: %w", err)
	}
	out := make([]fieldrules.RuleSetID, len(ids))
	for i, id := range ids {
		out[i] = fieldrules.RuleSetID(id)
	}
	return out, nil
}

// ListAccountGroups returns the groups accounts currently belong to, sorted.
func (s *Store) ListAccountGroups(ctx context.Context) ([]string, error) {
	sql, args, err := currentGroupsQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var groups []string
	if err := pgxscan.Select(ctx, s.txm.GetQuerier(ctx), &groups, sql, args...); err != nil {
		return nil, fmt.Errorf("list account groups: %w", err)
	}
	return groups, nil
}
