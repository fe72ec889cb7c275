package rule_repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postingcore/internal/domain/fieldrules"
	"postingcore/internal/infrastructure/storage/postgres"
)

func TestQueries(t *testing.T) {
	tests := []struct {
		name     string
		build    func() (string, []any, error)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "document type",
			build:    documentTypeQuery("CJ").ToSql,
			wantSQL:  "SELECT rule_set_id FROM posting_rule_document_types WHERE document_type = $1 ORDER BY assigned_at DESC, seq DESC LIMIT 1",
			wantArgs: []any{"CJ"},
		},
		{
			name:     "account",
			build:    accountQuery("400000").ToSql,
			wantSQL:  "SELECT rule_set_id FROM posting_rule_accounts WHERE account_id = $1 ORDER BY assigned_at DESC, seq DESC LIMIT 1",
			wantArgs: []any{"400000"},
		},
		{
			name:     "account group",
			build:    accountGroupQuery("400000").ToSql,
			wantSQL:  "SELECT account_group FROM posting_account_groups WHERE account_id = $1 ORDER BY assigned_at DESC, seq DESC LIMIT 1",
			wantArgs: []any{"400000"},
		},
		{
			name:     "group default",
			build:    groupDefaultQuery("REV").ToSql,
			wantSQL:  "SELECT rule_set_id FROM posting_rule_group_defaults WHERE account_group = $1 ORDER BY assigned_at DESC, seq DESC LIMIT 1",
			wantArgs: []any{"REV"},
		},
		{
			name:     "rule set header",
			build:    ruleSetHeaderQuery("REV01").ToSql,
			wantSQL:  "SELECT id, name, is_active, allow_negative_amounts FROM posting_rule_sets WHERE id = $1",
			wantArgs: []any{"REV01"},
		},
		{
			name:     "rule set fields",
			build:    ruleSetFieldsQuery("REV01").ToSql,
			wantSQL:  "SELECT field_name, status FROM posting_rule_set_fields WHERE rule_set_id = $1 ORDER BY field_name",
			wantArgs: []any{"REV01"},
		},
		{
			name:    "current groups",
			build:   currentGroupsQuery().ToSql,
			wantSQL: "SELECT DISTINCT account_group FROM (SELECT DISTINCT ON (account_id) account_group FROM posting_account_groups ORDER BY account_id, assigned_at DESC, seq DESC) AS current ORDER BY account_group",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.build()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, len(tt.wantArgs), len(args))
			for i := range tt.wantArgs {
				assert.Equal(t, tt.wantArgs[i], args[i])
			}
		})
	}
}

// --- fake database ---

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.value
	return nil
}

// fakeDB answers QueryRow by table and first argument.
type fakeDB struct {
	rows map[string]fakeRow
	err  error
}

func (db *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not supported")
}

func (db *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	if db.err != nil {
		return fakeRow{err: db.err}
	}
	table := strings.Fields(sql)[3]
	if row, ok := db.rows[table+"/"+args[0].(string)]; ok {
		return row
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (db *fakeDB) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return nil, errors.New("not supported")
}

func newFakeStore(db *fakeDB) *Store {
	return NewStore(postgres.NewTxManagerFrom(db, postgres.DefaultTxOptions()))
}

func TestStore_Lookups(t *testing.T) {
	s := newFakeStore(&fakeDB{rows: map[string]fakeRow{
		documentTypeTable + "/CJ":     {value: "CASH01"},
		accountRuleTable + "/400900":  {value: "EXP01"},
		accountGroupTable + "/400000": {value: "REV"},
		groupDefaultTable + "/REV":    {value: "REV01"},
	}})
	ctx := context.Background()

	id, ok, err := s.LookupDocumentTypeOverride(ctx, " CJ ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fieldrules.RuleSetID("CASH01"), id)

	id, ok, err = s.LookupAccountOverride(ctx, "400900")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fieldrules.RuleSetID("EXP01"), id)

	group, ok, err := s.LookupAccountGroup(ctx, "400000")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "REV", group)

	id, ok, err = s.LookupAccountGroupDefault(ctx, "REV")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, fieldrules.RuleSetID("REV01"), id)

	_, ok, err = s.LookupAccountOverride(ctx, "400000")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_TransportErrorIsNotConfiguration(t *testing.T) {
	refused := errors.New("connection refused")
	s := newFakeStore(&fakeDB{err: refused})

	_, _, err := s.LookupAccountOverride(context.Background(), "400000")
	require.Error(t, err)
	assert.ErrorIs(t, err, refused)
	assert.False(t, fieldrules.IsConfigurationError(err))
}

func TestStore_LoadRuleSetBeginFails(t *testing.T) {
	s := newFakeStore(&fakeDB{})

	_, err := s.LoadRuleSet(context.Background(), "REV01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin transaction")
	assert.False(t, fieldrules.IsConfigurationError(err))
}
