//go:build !odbc

package probe

import (
	"context"
	"strings"
	"testing"
	"time"

	"dbcheck/internal/profile"
)

func TestODBCWithoutDriverIsImportMissing(t *testing.T) {
	a := NewODBC("disable")
	if a.Available() {
		t.Fatalf("odbc should not be registered without the odbc build tag")
	}
	p := profile.Profile{Host: "db.test", Port: 1433, Database: "master", Username: "u", Password: "secret", Timeout: time.Second}
	out := a.Probe(context.Background(), p, "SELECT 1")
	if out.Succeeded {
		t.Fatalf("expected failure")
	}
	if out.Failure.Category != ImportMissing {
		t.Fatalf("expected import_missing, got %q", out.Failure.Category)
	}
	if !strings.Contains(out.Failure.Message, "odbc") {
		t.Fatalf("message should name the driver: %s", out.Failure.Message)
	}
}
