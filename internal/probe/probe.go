// Package probe holds the driver adapters used to test database
// connectivity. Each adapter opens a connection with one client library, runs
// a probe query and closes the connection again, reporting failures as a
// driver independent *Error.
package probe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"dbcheck/internal/profile"
)

// Category classifies why a probe failed.
type Category string

const (
	// ImportMissing means the client library or native driver is not
	// available in this build or on this host.
	ImportMissing Category = "import_missing"
	// Operational means no session could be established: unreachable host,
	// refused connection, timeout.
	Operational Category = "operational"
	// Interface means the connection parameters themselves were invalid.
	Interface Category = "interface"
	// Database means the server answered and rejected the login or query.
	Database Category = "database"
	Unknown  Category = "unknown"
)

// Retryable reports whether another adapter may succeed where this one
// failed.
func (c Category) Retryable() bool {
	return c == ImportMissing || c == Operational
}

// Error is the normalized failure of one adapter attempt. Message never
// carries the profile password.
type Error struct {
	Category Category
	Adapter  string
	Message  string
}

func (e *Error) Error() string {
	if e.Adapter == "" {
		return e.Message
	}
	return e.Adapter + ": " + e.Message
}

// Outcome is the result of one probe.
type Outcome struct {
	Succeeded bool
	Detail    string
	Failure   *Error
}

// Adapter is one way of talking to a database. Implementations are stateless
// and safe for concurrent use.
type Adapter interface {
	Name() string
	Probe(ctx context.Context, p profile.Profile, query string) Outcome
}

// Availability is implemented by adapters whose driver may be absent from the
// build.
type Availability interface {
	Available() bool
}

// ErrDriverMissing marks failures caused by a driver that is not registered
// with database/sql.
var ErrDriverMissing = errors.New("driver not available")

func succeeded(detail string) Outcome {
	return Outcome{Succeeded: true, Detail: detail}
}

func failed(adapter string, p profile.Profile, err error) Outcome {
	return failedAs(adapter, p, Classify(err), err)
}

func failedAs(adapter string, p profile.Profile, category Category, err error) Outcome {
	return Outcome{Failure: &Error{
		Category: category,
		Adapter:  adapter,
		Message:  redact(err.Error(), p.Password),
	}}
}

func driverRegistered(name string) bool {
	return slices.Contains(sql.Drivers(), name)
}

func missingDriver(name string) error {
	return fmt.Errorf("%w: %q is not compiled into this binary", ErrDriverMissing, name)
}

// minRedactLen keeps one or two character passwords from blanking out
// ordinary letters of driver messages.
const minRedactLen = 4

// redact removes the secret, in raw and URL escaped forms, from msg.
func redact(msg, secret string) string {
	if len(secret) < minRedactLen {
		return msg
	}
	userinfo := strings.TrimPrefix(url.UserPassword("", secret).String(), ":")
	for _, form := range []string{secret, userinfo, url.QueryEscape(secret), url.PathEscape(secret)} {
		msg = strings.ReplaceAll(msg, form, "***")
	}
	return msg
}

// scanFirst checks out a single connection, runs query and returns the first
// column of the first row. The connection goes back to db before returning.
func scanFirst(ctx context.Context, db *sql.DB, query string) (string, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	var v sql.NullString
	if err := conn.QueryRowContext(ctx, query).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return v.String, nil
}
