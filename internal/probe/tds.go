package probe

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"

	"dbcheck/internal/profile"
)

// TDS speaks the native SQL Server protocol through go-mssqldb.
type TDS struct {
	encrypt string
}

// NewTDS builds the native adapter. encrypt is passed through to the driver
// ("disable", "false" or "true").
func NewTDS(encrypt string) *TDS {
	return &TDS{encrypt: encrypt}
}

func (a *TDS) Name() string { return "tds" }

func (a *TDS) Available() bool { return true }

func (a *TDS) Probe(ctx context.Context, p profile.Profile, query string) Outcome {
	connector, err := mssql.NewConnector(sqlserverURL(p, a.encrypt).String())
	if err != nil {
		return failedAs(a.Name(), p, Interface, err)
	}
	db := sql.OpenDB(connector)
	defer db.Close()
	db.SetMaxOpenConns(1)

	detail, err := scanFirst(ctx, db, query)
	if err != nil {
		return failed(a.Name(), p, err)
	}
	return succeeded(detail)
}

// sqlserverURL renders the go-mssqldb URL form of the profile. Connect and
// dial timeouts follow the profile so the driver gives up on its own even
// without a context deadline.
func sqlserverURL(p profile.Profile, encrypt string) *url.URL {
	secs := strconv.Itoa(timeoutSeconds(p.Timeout))
	q := url.Values{}
	q.Set("database", p.Database)
	q.Set("connection timeout", secs)
	q.Set("dial timeout", secs)
	q.Set("app name", "dbcheck")
	if encrypt != "" {
		q.Set("encrypt", encrypt)
	}
	if encrypt == "true" {
		q.Set("TrustServerCertificate", "true")
	}
	return &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(p.Username, p.Password),
		Host:     p.Addr(),
		RawQuery: q.Encode(),
	}
}

func timeoutSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
