package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB opens a shared in-memory sqlite database and applies the schema
// statements the caller needs for its tables.
func OpenDB(t *testing.T, schema ...string) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// SchemaTiers is the sqlite shape of the affiliate_tiers table.
const SchemaTiers = `
CREATE TABLE IF NOT EXISTS affiliate_tiers (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	level INTEGER NOT NULL UNIQUE,
	commission_multiplier NUMERIC NOT NULL DEFAULT 1,
	requirements TEXT NOT NULL DEFAULT '{}',
	benefits TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SchemaPrograms is the sqlite shape of the programs table.
const SchemaPrograms = `
CREATE TABLE IF NOT EXISTS programs (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'draft',
	commission_type TEXT NOT NULL,
	commission_config TEXT NOT NULL DEFAULT '{}',
	cookie_window_days INTEGER NOT NULL DEFAULT 30,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SchemaAffiliates is the sqlite shape of the affiliates table.
const SchemaAffiliates = `
CREATE TABLE IF NOT EXISTS affiliates (
	id INTEGER PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'pending',
	tier_id INTEGER,
	payout_method TEXT NOT NULL DEFAULT '',
	payout_details TEXT NOT NULL DEFAULT '{}',
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SchemaReferralLinks is the sqlite shape of the referral_links table.
const SchemaReferralLinks = `
CREATE TABLE IF NOT EXISTS referral_links (
	id INTEGER PRIMARY KEY,
	affiliate_id INTEGER NOT NULL,
	program_id INTEGER NOT NULL,
	code TEXT NOT NULL UNIQUE,
	destination_url TEXT NOT NULL,
	active INTEGER NOT NULL DEFAULT 1,
	expires_at DATETIME,
	click_count INTEGER NOT NULL DEFAULT 0,
	conversion_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SchemaConversions is the sqlite shape of the conversions table.
const SchemaConversions = `
CREATE TABLE IF NOT EXISTS conversions (
	id INTEGER PRIMARY KEY,
	link_id INTEGER NOT NULL,
	affiliate_id INTEGER NOT NULL,
	program_id INTEGER NOT NULL,
	session_id TEXT NOT NULL DEFAULT '',
	customer_id TEXT,
	conversion_type TEXT NOT NULL,
	conversion_value NUMERIC NOT NULL DEFAULT 0,
	currency TEXT NOT NULL DEFAULT 'USD',
	status TEXT NOT NULL DEFAULT 'pending',
	idempotency_key TEXT UNIQUE,
	metadata TEXT NOT NULL DEFAULT '{}',
	validated_at DATETIME,
	rejected_at DATETIME,
	reviewed_by TEXT,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SchemaCommissions is the sqlite shape of the commissions table.
const SchemaCommissions = `
CREATE TABLE IF NOT EXISTS commissions (
	id INTEGER PRIMARY KEY,
	conversion_id INTEGER NOT NULL UNIQUE,
	affiliate_id INTEGER NOT NULL,
	program_id INTEGER NOT NULL,
	tier_id INTEGER,
	base_amount NUMERIC NOT NULL,
	tier_multiplier NUMERIC NOT NULL DEFAULT 1,
	final_amount NUMERIC NOT NULL,
	currency TEXT NOT NULL DEFAULT 'USD',
	status TEXT NOT NULL DEFAULT 'pending',
	payout_id INTEGER,
	commission_config TEXT NOT NULL DEFAULT '{}',
	approved_by TEXT,
	approved_at DATETIME,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SchemaPayouts is the sqlite shape of the payouts table.
const SchemaPayouts = `
CREATE TABLE IF NOT EXISTS payouts (
	id INTEGER PRIMARY KEY,
	affiliate_id INTEGER NOT NULL,
	amount NUMERIC NOT NULL,
	currency TEXT NOT NULL DEFAULT 'USD',
	status TEXT NOT NULL DEFAULT 'pending',
	period_start DATETIME NOT NULL,
	period_end DATETIME NOT NULL,
	commission_count INTEGER NOT NULL DEFAULT 0,
	payment_reference TEXT NOT NULL DEFAULT '',
	paid_at DATETIME,
	version INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
)`

// SchemaOutbox is the sqlite shape of the outbox_events table.
const SchemaOutbox = `
CREATE TABLE IF NOT EXISTS outbox_events (
	id INTEGER PRIMARY KEY,
	event_type TEXT NOT NULL,
	aggregate_type TEXT NOT NULL,
	aggregate_id TEXT NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	dedupe_key TEXT UNIQUE,
	dispatched INTEGER NOT NULL DEFAULT 0,
	dispatched_at DATETIME,
	created_at DATETIME NOT NULL
)`

// SchemaAuditLogs is the sqlite shape of the audit_logs table.
const SchemaAuditLogs = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id INTEGER PRIMARY KEY,
	actor TEXT NOT NULL DEFAULT '',
	action TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL
)`
