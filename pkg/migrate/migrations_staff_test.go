package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minimartapp/minimart-backend/pkg/migrate"
)

func TestStaffMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_staff.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no staff migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS staff",
		"FOREIGN KEY (store_id) REFERENCES stores(id) ON DELETE CASCADE",
		"CHECK (role IN ('store_owner', 'store_admin', 'sales_person'))",
		"CHECK (status IN ('active', 'removed'))",
		"idx_staff_active_email",
		"DROP TABLE IF EXISTS staff",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestInvitationMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_store_invitations.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no invitation migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS store_invitations",
		"CHECK (method IN ('email', 'link'))",
		"CHECK (status IN ('pending', 'accepted'))",
		"idx_store_invitations_token",
		"DROP TABLE IF EXISTS store_invitations",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}
