package profile

import (
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"dbcheck/internal/config"
)

// Request is the JSON body accepted by the caller supplied check.
type Request struct {
	Server   string `json:"server"`
	Port     *int   `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	Password string `json:"password"`
	Timeout  *int   `json:"timeout"`
	Driver   string `json:"driver,omitempty"`
}

// Validate returns field errors in the same shape the HTTP layer reports.
func (r Request) Validate() map[string]string {
	errs := map[string]string{}
	if strings.TrimSpace(r.Server) == "" {
		errs["server"] = "cannot be blank"
	}
	if strings.TrimSpace(r.Username) == "" {
		errs["username"] = "cannot be blank"
	}
	if r.Password == "" {
		errs["password"] = "is required"
	}
	if r.Port != nil && !validPort(*r.Port) {
		errs["port"] = "must be between 1 and 65535"
	}
	if r.Timeout != nil && !validTimeout(time.Duration(*r.Timeout)*time.Second) {
		errs["timeout"] = "must be between 1 and 30 seconds"
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// FromRequest builds a profile from caller input, applying defaults for the
// optional fields.
func FromRequest(r Request) (Profile, error) {
	if errs := r.Validate(); errs != nil {
		return Profile{}, &ValidationError{Fields: errs}
	}
	p := Profile{
		Host:       strings.TrimSpace(r.Server),
		Port:       DefaultPort,
		Database:   strings.TrimSpace(r.Database),
		Username:   strings.TrimSpace(r.Username),
		Password:   r.Password,
		Timeout:    DefaultTimeout,
		DriverHint: strings.TrimSpace(r.Driver),
	}
	if r.Port != nil {
		p.Port = *r.Port
	}
	if r.Timeout != nil {
		p.Timeout = time.Duration(*r.Timeout) * time.Second
	}
	if p.Database == "" {
		p.Database = DefaultDatabase
	}
	return p, nil
}

// FromEnvironment builds the profile of the secondary database from process
// configuration.
func FromEnvironment(cfg config.MSSQLConfig) (Profile, error) {
	missing := map[string]string{}
	if strings.TrimSpace(cfg.Host) == "" {
		missing["MSSQL_HOST"] = "is not set"
	}
	if strings.TrimSpace(cfg.User) == "" {
		missing["MSSQL_USER"] = "is not set"
	}
	p := Profile{
		Host:     strings.TrimSpace(cfg.Host),
		Port:     cfg.Port,
		Database: strings.TrimSpace(cfg.Database),
		Username: strings.TrimSpace(cfg.User),
		Password: cfg.Password,
		Timeout:  time.Duration(cfg.Timeout) * time.Second,
	}
	if p.Port == 0 {
		p.Port = DefaultPort
	}
	if p.Database == "" {
		p.Database = DefaultDatabase
	}
	if cfg.Timeout == 0 {
		p.Timeout = DefaultTimeout
	}
	if !validPort(p.Port) {
		missing["MSSQL_PORT"] = "must be between 1 and 65535"
	}
	if !validTimeout(p.Timeout) {
		missing["MSSQL_TIMEOUT"] = "must be between 1 and 30"
	}
	if len(missing) > 0 {
		return Profile{}, &ConfigurationError{Keys: missing}
	}
	return p, nil
}

// FromPostgresDSN describes the primary store the service is configured with.
// The timeout bounds every probe against it.
func FromPostgresDSN(dsn string, timeout time.Duration) (Profile, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return Profile{}, &ConfigurationError{Keys: map[string]string{"PG_DSN": "cannot be parsed"}}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return Profile{
		Host:     cfg.Host,
		Port:     int(cfg.Port),
		Database: cfg.Database,
		Username: cfg.User,
		Password: cfg.Password,
		Timeout:  timeout,
	}, nil
}
