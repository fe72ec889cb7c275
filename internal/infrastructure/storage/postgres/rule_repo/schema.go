package rule_repo

// Table names.
const (
	ruleSetTable      = "posting_rule_sets"
	ruleSetFieldTable = "posting_rule_set_fields"
	documentTypeTable = "posting_rule_document_types"
	accountRuleTable  = "posting_rule_accounts"
	accountGroupTable = "posting_account_groups"
	groupDefaultTable = "posting_rule_group_defaults"
)

// latestFirst orders append-only assignment rows newest first.
var latestFirst = []string{"assigned_at DESC", "seq DESC"}

// Schema is the DDL the store reads from. Assignment tables are append-only;
// the newest row per key is the effective one. Every change notifies
// posting_rules_changed so running validators drop their caches.
const Schema = `
CREATE TABLE IF NOT EXISTS posting_rule_sets (
    id                     TEXT PRIMARY KEY,
    name                   TEXT NOT NULL DEFAULT '',
    is_active              BOOLEAN NOT NULL DEFAULT TRUE,
    allow_negative_amounts BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS posting_rule_set_fields (
    rule_set_id TEXT NOT NULL REFERENCES posting_rule_sets(id),
    field_name  TEXT NOT NULL,
    status      TEXT NOT NULL,
    PRIMARY KEY (rule_set_id, field_name)
);

CREATE TABLE IF NOT EXISTS posting_rule_document_types (
    seq           BIGSERIAL PRIMARY KEY,
    document_type TEXT NOT NULL,
    rule_set_id   TEXT NOT NULL REFERENCES posting_rule_sets(id),
    assigned_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS posting_rule_accounts (
    seq         BIGSERIAL PRIMARY KEY,
    account_id  TEXT NOT NULL,
    rule_set_id TEXT NOT NULL REFERENCES posting_rule_sets(id),
    assigned_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS posting_account_groups (
    seq           BIGSERIAL PRIMARY KEY,
    account_id    TEXT NOT NULL,
    account_group TEXT NOT NULL,
    assigned_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS posting_rule_group_defaults (
    seq           BIGSERIAL PRIMARY KEY,
    account_group TEXT NOT NULL,
    rule_set_id   TEXT NOT NULL REFERENCES posting_rule_sets(id),
    assigned_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS posting_rule_document_types_key ON posting_rule_document_types (document_type, assigned_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS posting_rule_accounts_key ON posting_rule_accounts (account_id, assigned_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS posting_account_groups_key ON posting_account_groups (account_id, assigned_at DESC, seq DESC);
CREATE INDEX IF NOT EXISTS posting_rule_group_defaults_key ON posting_rule_group_defaults (account_group, assigned_at DESC, seq DESC);

CREATE OR REPLACE FUNCTION posting_rules_notify() RETURNS trigger AS $$
BEGIN
    PERFORM pg_notify('posting_rules_changed', TG_TABLE_NAME);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DO $$
DECLARE t TEXT;
BEGIN
    FOREACH t IN ARRAY ARRAY[
        'posting_rule_sets', 'posting_rule_set_fields', 'posting_rule_document_types',
        'posting_rule_accounts', 'posting_account_groups', 'posting_rule_group_defaults'
    ] LOOP
        EXECUTE format('DROP TRIGGER IF EXISTS %I_notify ON %I', t, t);
        EXECUTE format('CREATE TRIGGER %I_notify AFTER INSERT OR UPDATE OR DELETE OR TRUNCATE ON %I
                        FOR EACH STATEMENT EXECUTE FUNCTION posting_rules_notify()', t, t);
    END LOOP;
END;
$$;
`
