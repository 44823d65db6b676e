package db

import (
	"strings"
	"testing"
)

func TestEmbeddedVersionsSorted(t *testing.T) {
	versions, err := embeddedVersions()
	if err != nil {
		t.Fatalf("embeddedVersions: %v", err)
	}
	if len(versions) < 3 {
		t.Fatalf("expected at least 3 migrations, got %v", versions)
	}
	for i := 1; i < len(versions); i++ {
		if versions[i-1] >= versions[i] {
			t.Fatalf("migrations out of order: %v", versions)
		}
	}
	body, err := readMigration(versions[len(versions)-1])
	if err != nil {
		t.Fatalf("readMigration: %v", err)
	}
	if !strings.Contains(body, "VARCHAR(200)") {
		t.Fatalf("expected last migration to resize test_table.name, got %q", body)
	}
}

func TestPendingVersions(t *testing.T) {
	applied := map[string]struct{}{"0001_a.sql": {}}
	got := pendingVersions([]string{"0001_a.sql", "0002_b.sql", "0003_c.sql"}, applied)
	if strings.Join(got, ",") != "0002_b.sql,0003_c.sql" {
		t.Fatalf("unexpected pending list %v", got)
	}
	if len(pendingVersions([]string{"0001_a.sql"}, applied)) != 0 {
		t.Fatalf("expected nothing pending")
	}
}
