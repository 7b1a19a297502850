package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harlowmarket/payouts-backend/pkg/migrate"
)

func TestMigrationDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migration dir should validate: %v", err)
	}
}

func TestPayoutRecordsMigrationGuardsDuplicateDay(t *testing.T) {
	content := readMigration(t, "*_create_payout_records.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS payout_records",
		"idx_payout_records_seller_day",
		"WHERE state <> 'failed'",
		"DROP TABLE IF EXISTS payout_records",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestBalancePeriodsMigrationHasBucketConstraint(t *testing.T) {
	content := readMigration(t, "*_create_balance_periods.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS balance_periods",
		"UNIQUE (seller_id, period_date, holder)",
		"fk_transactions_balance_period",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
