// Package profile resolves the connection profile a check runs against,
// either from the process environment or from a caller supplied payload.
package profile

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"
)

const (
	DefaultPort     = 1433
	DefaultDatabase = "master"
	DefaultTimeout  = 5 * time.Second

	MinTimeout = 1 * time.Second
	MaxTimeout = 30 * time.Second
)

// Profile is the resolved connection target. It is built per request and
// never stored. Password must not reach logs or response messages; String and
// LogValue leave it out.
type Profile struct {
	Host       string
	Port       int
	Database   string
	Username   string
	Password   string
	Timeout    time.Duration
	DriverHint string
}

// Addr returns host:port.
func (p Profile) Addr() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

func (p Profile) String() string {
	return fmt.Sprintf("%s@%s/%s", p.Username, p.Addr(), p.Database)
}

func (p Profile) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("host", p.Host),
		slog.Int("port", p.Port),
		slog.String("database", p.Database),
		slog.String("user", p.Username),
		slog.Duration("timeout", p.Timeout),
	}
	if p.DriverHint != "" {
		attrs = append(attrs, slog.String("driver", p.DriverHint))
	}
	return slog.GroupValue(attrs...)
}

// WithHost returns a copy of p pointed at another host.
func (p Profile) WithHost(host string) Profile {
	p.Host = host
	return p
}

func validPort(port int) bool { return port >= 1 && port <= 65535 }

func validTimeout(d time.Duration) bool { return d >= MinTimeout && d <= MaxTimeout }
