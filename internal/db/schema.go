package db

import "strings"

// Schema Drift Protection
//
// The migrations below are the SINGLE SOURCE OF TRUTH for the database
// schema. GetSchemaSQL concatenates them, so tests that load the schema
// through GetSchemaSQL always run against exactly what Migrate applies.
// Add columns and tables by appending a migration; never edit an applied one.

// Migration is one versioned schema change, written once per dialect.
type Migration struct {
	Version  int
	Name     string
	SQLite   []string
	Postgres []string
}

func (m Migration) statements(d Dialect) []string {
	if d == DialectPostgres {
		return m.Postgres
	}
	return m.SQLite
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_documents_and_transition_events",
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				doc_type TEXT NOT NULL,
				state TEXT NOT NULL,
				visibility_scope TEXT NOT NULL CHECK(visibility_scope IN ('STANDARD', 'EXTENDED')),
				version INTEGER NOT NULL CHECK(version > 0),
				title TEXT NOT NULL DEFAULT '',
				amount INTEGER NOT NULL DEFAULT 0,
				urgency TEXT NOT NULL DEFAULT '',
				entity_key TEXT NOT NULL DEFAULT '',
				links_json TEXT NOT NULL DEFAULT '{}',
				entity_refs_json TEXT NOT NULL DEFAULT '{}',
				lines_json TEXT NOT NULL DEFAULT '[]',
				attributes_json TEXT NOT NULL DEFAULT '{}',
				effective_date DATETIME NOT NULL,
				confirmed_at DATETIME,
				created_by TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_tenant_type_state ON documents(tenant_id, doc_type, state)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_entity ON documents(tenant_id, doc_type, entity_key, created_at)`,
			`CREATE TABLE IF NOT EXISTS transition_events (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				doc_type TEXT NOT NULL,
				document_id TEXT NOT NULL,
				seq INTEGER NOT NULL CHECK(seq > 0),
				from_state TEXT NOT NULL,
				to_state TEXT NOT NULL,
				edge TEXT NOT NULL,
				actor_id TEXT NOT NULL,
				occurred_at DATETIME NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				metadata_json TEXT NOT NULL DEFAULT '{}',
				UNIQUE (tenant_id, document_id, seq),
				FOREIGN KEY (document_id) REFERENCES documents(id)
			)`,
		},
		Postgres: []string{
			`CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				doc_type TEXT NOT NULL,
				state TEXT NOT NULL,
				visibility_scope TEXT NOT NULL CHECK(visibility_scope IN ('STANDARD', 'EXTENDED')),
				version BIGINT NOT NULL CHECK(version > 0),
				title TEXT NOT NULL DEFAULT '',
				amount BIGINT NOT NULL DEFAULT 0,
				urgency TEXT NOT NULL DEFAULT '',
				entity_key TEXT NOT NULL DEFAULT '',
				links_json TEXT NOT NULL DEFAULT '{}',
				entity_refs_json TEXT NOT NULL DEFAULT '{}',
				lines_json TEXT NOT NULL DEFAULT '[]',
				attributes_json TEXT NOT NULL DEFAULT '{}',
				effective_date TIMESTAMPTZ NOT NULL,
				confirmed_at TIMESTAMPTZ,
				created_by TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_tenant_type_state ON documents(tenant_id, doc_type, state)`,
			`CREATE INDEX IF NOT EXISTS idx_documents_entity ON documents(tenant_id, doc_type, entity_key, created_at)`,
			`CREATE TABLE IF NOT EXISTS transition_events (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				doc_type TEXT NOT NULL,
				document_id TEXT NOT NULL REFERENCES documents(id),
				seq BIGINT NOT NULL CHECK(seq > 0),
				from_state TEXT NOT NULL,
				to_state TEXT NOT NULL,
				edge TEXT NOT NULL,
				actor_id TEXT NOT NULL,
				occurred_at TIMESTAMPTZ NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				metadata_json TEXT NOT NULL DEFAULT '{}',
				UNIQUE (tenant_id, document_id, seq)
			)`,
		},
	},
	{
		Version: 2,
		Name:    "make_transition_events_append_only",
		SQLite: []string{
			`CREATE TRIGGER IF NOT EXISTS transition_events_no_update
			BEFORE UPDATE ON transition_events
			BEGIN
				SELECT RAISE(ABORT, 'transition_events is append-only');
			END`,
			`CREATE TRIGGER IF NOT EXISTS transition_events_no_delete
			BEFORE DELETE ON transition_events
			BEGIN
				SELECT RAISE(ABORT, 'transition_events is append-only');
			END`,
		},
		Postgres: []string{
			`CREATE OR REPLACE FUNCTION transition_events_append_only() RETURNS trigger AS $$
			BEGIN
				RAISE EXCEPTION 'transition_events is append-only';
			END;
			$$ LANGUAGE plpgsql`,
			`DROP TRIGGER IF EXISTS transition_events_no_mutation ON transition_events`,
			`CREATE TRIGGER transition_events_no_mutation
			BEFORE UPDATE OR DELETE ON transition_events
			FOR EACH ROW EXECUTE FUNCTION transition_events_append_only()`,
		},
	},
	{
		Version: 3,
		Name:    "create_guard_configuration_tables",
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS approval_rules (
				tenant_id TEXT NOT NULL,
				doc_type TEXT NOT NULL,
				threshold_amount INTEGER NOT NULL DEFAULT 0,
				urgency_triggers_json TEXT NOT NULL DEFAULT '[]',
				require_catalog_reference INTEGER NOT NULL DEFAULT 0,
				updated_by TEXT NOT NULL DEFAULT '',
				updated_at DATETIME NOT NULL,
				PRIMARY KEY (tenant_id, doc_type)
			)`,
			`CREATE TABLE IF NOT EXISTS duplicate_policies (
				tenant_id TEXT NOT NULL,
				doc_type TEXT NOT NULL,
				window_seconds INTEGER NOT NULL CHECK(window_seconds > 0),
				cutoff REAL NOT NULL CHECK(cutoff > 0 AND cutoff <= 1),
				PRIMARY KEY (tenant_id, doc_type)
			)`,
			`CREATE TABLE IF NOT EXISTS period_locks (
				tenant_id TEXT NOT NULL,
				period_key TEXT NOT NULL,
				closed INTEGER NOT NULL DEFAULT 0,
				closed_by TEXT NOT NULL DEFAULT '',
				closed_at DATETIME,
				updated_at DATETIME NOT NULL,
				PRIMARY KEY (tenant_id, period_key)
			)`,
		},
		Postgres: []string{
			`CREATE TABLE IF NOT EXISTS approval_rules (
				tenant_id TEXT NOT NULL,
				doc_type TEXT NOT NULL,
				threshold_amount BIGINT NOT NULL DEFAULT 0,
				urgency_triggers_json TEXT NOT NULL DEFAULT '[]',
				require_catalog_reference BOOLEAN NOT NULL DEFAULT FALSE,
				updated_by TEXT NOT NULL DEFAULT '',
				updated_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (tenant_id, doc_type)
			)`,
			`CREATE TABLE IF NOT EXISTS duplicate_policies (
				tenant_id TEXT NOT NULL,
				doc_type TEXT NOT NULL,
				window_seconds BIGINT NOT NULL CHECK(window_seconds > 0),
				cutoff DOUBLE PRECISION NOT NULL CHECK(cutoff > 0 AND cutoff <= 1),
				PRIMARY KEY (tenant_id, doc_type)
			)`,
			`CREATE TABLE IF NOT EXISTS period_locks (
				tenant_id TEXT NOT NULL,
				period_key TEXT NOT NULL,
				closed BOOLEAN NOT NULL DEFAULT FALSE,
				closed_by TEXT NOT NULL DEFAULT '',
				closed_at TIMESTAMPTZ,
				updated_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (tenant_id, period_key)
			)`,
		},
	},
	{
		Version: 4,
		Name:    "create_side_effect_targets",
		SQLite: []string{
			`CREATE TABLE IF NOT EXISTS inventory_levels (
				tenant_id TEXT NOT NULL,
				item_id TEXT NOT NULL,
				quantity INTEGER NOT NULL DEFAULT 0,
				updated_at DATETIME NOT NULL,
				PRIMARY KEY (tenant_id, item_id)
			)`,
			`CREATE TABLE IF NOT EXISTS inventory_movements (
				tenant_id TEXT NOT NULL,
				document_id TEXT NOT NULL,
				item_id TEXT NOT NULL,
				delta INTEGER NOT NULL,
				created_at DATETIME NOT NULL,
				PRIMARY KEY (tenant_id, document_id, item_id)
			)`,
			`CREATE TABLE IF NOT EXISTS derived_records (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				document_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				data_json TEXT NOT NULL DEFAULT '{}',
				created_at DATETIME NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_derived_records_document ON derived_records(tenant_id, document_id)`,
		},
		Postgres: []string{
			`CREATE TABLE IF NOT EXISTS inventory_levels (
				tenant_id TEXT NOT NULL,
				item_id TEXT NOT NULL,
				quantity BIGINT NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (tenant_id, item_id)
			)`,
			`CREATE TABLE IF NOT EXISTS inventory_movements (
				tenant_id TEXT NOT NULL,
				document_id TEXT NOT NULL,
				item_id TEXT NOT NULL,
				delta BIGINT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL,
				PRIMARY KEY (tenant_id, document_id, item_id)
			)`,
			`CREATE TABLE IF NOT EXISTS derived_records (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				document_id TEXT NOT NULL,
				kind TEXT NOT NULL,
				data_json TEXT NOT NULL DEFAULT '{}',
				created_at TIMESTAMPTZ NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_derived_records_document ON derived_records(tenant_id, document_id)`,
		},
	},
}

// LatestVersion returns the version of the newest migration.
func LatestVersion() int {
	return migrations[len(migrations)-1].Version
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL(d Dialect) string {
	var b strings.Builder
	for _, m := range migrations {
		for _, stmt := range m.statements(d) {
			b.WriteString(stmt)
			b.WriteString(";\n")
		}
	}
	return b.String()
}
