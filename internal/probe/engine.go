package probe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"dbcheck/internal/profile"
)

// Dialect tells the engine which database/sql driver to use and how to turn a
// profile into that driver's DSN.
type Dialect struct {
	Name   string
	Driver string
	DSN    func(p profile.Profile, encrypt string) (string, error)
}

var dialects = map[string]Dialect{
	"sqlserver": {Name: "sqlserver", Driver: "sqlserver", DSN: func(p profile.Profile, encrypt string) (string, error) {
		return sqlserverURL(p, encrypt).String(), nil
	}},
	"postgres": {Name: "postgres", Driver: "pgx", DSN: postgresDSN},
	"mysql":    {Name: "mysql", Driver: "mysql", DSN: mysqlDSN},
	"sqlite":   {Name: "sqlite", Driver: "sqlite", DSN: sqliteDSN},
}

// Dialects lists the dialect names the engine understands.
func Dialects() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Engine probes through database/sql with a dialect chosen at construction.
// Its pool holds at most one connection and keeps nothing idle, so every
// probe dials fresh and nothing outlives the call.
type Engine struct {
	name    string
	dialect Dialect
	encrypt string
}

func NewEngine(name, dialect, encrypt string) (*Engine, error) {
	d, ok := dialects[dialect]
	if !ok {
		return nil, fmt.Errorf("unknown dialect %q (known: %v)", dialect, Dialects())
	}
	if name == "" {
		name = "engine-" + d.Name
	}
	return &Engine{name: name, dialect: d, encrypt: encrypt}, nil
}

func (a *Engine) Name() string { return a.name }

func (a *Engine) Dialect() string { return a.dialect.Name }

func (a *Engine) Available() bool { return driverRegistered(a.dialect.Driver) }

func (a *Engine) Probe(ctx context.Context, p profile.Profile, query string) Outcome {
	if !a.Available() {
		return failedAs(a.name, p, ImportMissing, missingDriver(a.dialect.Driver))
	}
	dsn, err := a.dialect.DSN(p, a.encrypt)
	if err != nil {
		return failedAs(a.name, p, Interface, err)
	}
	db, err := sql.Open(a.dialect.Driver, dsn)
	if err != nil {
		return failedAs(a.name, p, Interface, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(0)

	detail, err := scanFirst(ctx, db, query)
	if err != nil {
		return failed(a.name, p, err)
	}
	return succeeded(detail)
}

func postgresDSN(p profile.Profile, _ string) (string, error) {
	q := url.Values{}
	q.Set("connect_timeout", strconv.Itoa(timeoutSeconds(p.Timeout)))
	q.Set("sslmode", "prefer")
	q.Set("application_name", "dbcheck")
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.Username, p.Password),
		Host:     p.Addr(),
		Path:     "/" + p.Database,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}

func mysqlDSN(p profile.Profile, _ string) (string, error) {
	cfg := mysql.NewConfig()
	cfg.User = p.Username
	cfg.Passwd = p.Password
	cfg.Net = "tcp"
	cfg.Addr = p.Addr()
	cfg.DBName = p.Database
	cfg.Timeout = p.Timeout
	cfg.ReadTimeout = p.Timeout
	cfg.WriteTimeout = p.Timeout
	return cfg.FormatDSN(), nil
}

var errNoSQLitePath = errors.New("sqlite dialect needs a database path")

func sqliteDSN(p profile.Profile, _ string) (string, error) {
	if p.Database == "" {
		return "", errNoSQLitePath
	}
	return p.Database, nil
}
