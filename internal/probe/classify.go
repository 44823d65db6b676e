package probe

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
)

// odbcState extracts the SQLSTATE of an ODBC error. It is replaced when the
// odbc driver is compiled in.
var odbcState = func(error) (string, bool) { return "", false }

// Classify maps a driver error onto a Category. Server side errors are
// checked before transport errors because several drivers wrap the server
// reply inside their connect error.
func Classify(err error) Category {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrDriverMissing) {
		return ImportMissing
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return Database
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return Database
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return Database
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return Database
	}
	if state, ok := odbcState(err); ok {
		return classifySQLState(state)
	}

	var parseErr *pgconn.ParseConfigError
	if errors.As(err, &parseErr) {
		return Interface
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return Operational
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Operational
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return Operational
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Operational
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Operational
	}

	return classifyMessage(err.Error())
}

// classifySQLState maps ODBC SQLSTATE classes.
func classifySQLState(state string) Category {
	switch {
	case state == "IM002" || state == "IM003" || state == "IM004":
		return ImportMissing
	case strings.HasPrefix(state, "08"), state == "HYT00", state == "HYT01":
		return Operational
	case strings.HasPrefix(state, "28"), strings.HasPrefix(state, "42"), strings.HasPrefix(state, "3D"):
		return Database
	case strings.HasPrefix(state, "HY"), strings.HasPrefix(state, "IM"), state == "01S00":
		return Interface
	}
	return Unknown
}

// Some drivers only format the underlying error into the message, so the
// type information is gone by the time it reaches us.
var messageCategories = []struct {
	needle   string
	category Category
}{
	{"login error", Database},
	{"login failed", Database},
	{"cannot open database", Database},
	{"password authentication failed", Database},
	{"unable to open tcp connection", Operational},
	{"connection refused", Operational},
	{"no such host", Operational},
	{"i/o timeout", Operational},
	{"network is unreachable", Operational},
	{"connection reset", Operational},
	{"invalid dsn", Interface},
	{"invalid connection string", Interface},
	{"unknown driver", ImportMissing},
}

func classifyMessage(msg string) Category {
	lower := strings.ToLower(msg)
	for _, mc := range messageCategories {
		if strings.Contains(lower, mc.needle) {
			return mc.category
		}
	}
	return Unknown
}
