package probe

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"dbcheck/internal/profile"
)

// DefaultODBCDrivers is the order in which installed ODBC drivers are tried
// when the profile carries no driver hint.
var DefaultODBCDrivers = []string{
	"ODBC Driver 18 for SQL Server",
	"ODBC Driver 17 for SQL Server",
	"FreeTDS",
}

// ODBC connects through the host's ODBC driver manager. The database/sql
// driver is only linked into binaries built with the odbc tag; without it
// every probe reports ImportMissing.
type ODBC struct {
	drivers []string
	encrypt string
}

func NewODBC(encrypt string, drivers ...string) *ODBC {
	if len(drivers) == 0 {
		drivers = DefaultODBCDrivers
	}
	return &ODBC{drivers: drivers, encrypt: encrypt}
}

func (a *ODBC) Name() string { return "odbc" }

func (a *ODBC) Available() bool { return driverRegistered("odbc") }

func (a *ODBC) Probe(ctx context.Context, p profile.Profile, query string) Outcome {
	if !a.Available() {
		return failedAs(a.Name(), p, ImportMissing, missingDriver("odbc"))
	}
	candidates := a.drivers
	if p.DriverHint != "" {
		candidates = []string{p.DriverHint}
	}

	var last Outcome
	for _, name := range candidates {
		out := a.probeWith(ctx, p, name, query)
		if out.Succeeded || !out.Failure.Category.Retryable() {
			return out
		}
		last = out
		if ctx.Err() != nil {
			break
		}
	}
	return last
}

func (a *ODBC) probeWith(ctx context.Context, p profile.Profile, driverName, query string) Outcome {
	db, err := sql.Open("odbc", odbcConnString(p, driverName, a.encrypt))
	if err != nil {
		return failed(a.Name(), p, fmt.Errorf("driver %q: %w", driverName, err))
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	detail, err := scanFirst(ctx, db, query)
	if err != nil {
		return failed(a.Name(), p, fmt.Errorf("driver %q: %w", driverName, err))
	}
	return succeeded(detail)
}

// odbcConnString builds a keyword=value connection string. FreeTDS takes the
// port as its own keyword, the Microsoft drivers expect SERVER=host,port.
func odbcConnString(p profile.Profile, driverName, encrypt string) string {
	parts := []string{"DRIVER=" + odbcValue(driverName)}
	if strings.EqualFold(driverName, "FreeTDS") {
		parts = append(parts,
			"SERVER="+odbcValue(p.Host),
			"PORT="+strconv.Itoa(p.Port),
			"TDS_Version=7.4",
		)
	} else {
		parts = append(parts,
			"SERVER="+odbcValue(p.Host+","+strconv.Itoa(p.Port)),
			"Encrypt="+odbcBool(encrypt),
			"TrustServerCertificate=yes",
			"Connection Timeout="+strconv.Itoa(timeoutSeconds(p.Timeout)),
		)
	}
	parts = append(parts,
		"DATABASE="+odbcValue(p.Database),
		"UID="+odbcValue(p.Username),
		"PWD="+odbcValue(p.Password),
	)
	return strings.Join(parts, ";")
}

func odbcBool(encrypt string) string {
	if encrypt == "true" {
		return "yes"
	}
	return "no"
}

// odbcValue braces values containing separators; a closing brace inside is
// doubled.
func odbcValue(v string) string {
	if !strings.ContainsAny(v, ";{}= ") {
		return v
	}
	return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
}
