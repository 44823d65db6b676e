package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"dbcheck/internal/config"
	"dbcheck/internal/logging"
	"dbcheck/internal/probe"
	"dbcheck/internal/profile"
)

var version = "dev"

var getenv = os.Getenv

// targetFlags hold the connection settings shared by every subcommand. Unset
// flags fall back to the MSSQL_* environment.
type targetFlags struct {
	host        string
	port        int
	database    string
	user        string
	passwordEnv string
	timeout     int
	driver      string
	adapters    []string
	encrypt     string
	jsonOutput  bool
	verbose     bool
}

func main() {
	flags := &targetFlags{}

	rootCmd := &cobra.Command{
		Use:   "dbcheck",
		Short: "Database connectivity checks from the command line",
		Long: `dbcheck runs the same connectivity checks as the API without the HTTP layer.

Connection settings come from MSSQL_* environment variables and can be
overridden with flags. The password is only ever read from the environment
variable named by --password-env.

  dbcheck probe                  Try adapters in fallback order
  dbcheck compare                Try every adapter independently
  dbcheck sweep HOST...          Find the first host that answers
  dbcheck adapters               List adapters compiled into this binary`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.host, "host", "", "server host (default $MSSQL_HOST)")
	pf.IntVar(&flags.port, "port", 0, "server port (default $MSSQL_PORT or 1433)")
	pf.StringVar(&flags.database, "database", "", "database name (default $MSSQL_DATABASE or master)")
	pf.StringVar(&flags.user, "user", "", "login name (default $MSSQL_USER)")
	pf.StringVar(&flags.passwordEnv, "password-env", "MSSQL_PASSWORD", "environment variable holding the password")
	pf.IntVar(&flags.timeout, "timeout", 0, "per adapter timeout in seconds, 1-30 (default $MSSQL_TIMEOUT or 5)")
	pf.StringVar(&flags.driver, "driver", "", "ODBC driver name to use instead of the built-in list")
	pf.StringSliceVar(&flags.adapters, "adapters", nil, "adapter order (default $MSSQL_ADAPTERS)")
	pf.StringVar(&flags.encrypt, "encrypt", "", "TLS mode passed to the drivers: disable, false or true")
	pf.BoolVar(&flags.jsonOutput, "json", false, "print results as JSON")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log every adapter attempt")

	rootCmd.AddCommand(
		newProbeCmd(flags),
		newCompareCmd(flags),
		newSweepCmd(flags),
		newAdaptersCmd(flags),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failFormat("error:"), err)
		stop()
		os.Exit(1)
	}
}

// newLogger writes attempts to stderr so stdout stays parseable.
func newLogger(verbose bool) *logging.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return logging.NewWithHandler(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
}

// resolveProfile merges flags over the environment and validates the result
// the same way the API validates request bodies.
func resolveProfile(flags *targetFlags, cfg config.MSSQLConfig, getenv func(string) string) (profile.Profile, error) {
	req := profile.Request{
		Server:   firstNonEmpty(flags.host, cfg.Host),
		Database: firstNonEmpty(flags.database, cfg.Database),
		Username: firstNonEmpty(flags.user, cfg.User),
		Password: getenv(flags.passwordEnv),
		Driver:   flags.driver,
	}
	if port := firstNonZero(flags.port, cfg.Port); port != 0 {
		req.Port = &port
	}
	if timeout := firstNonZero(flags.timeout, cfg.Timeout); timeout != 0 {
		req.Timeout = &timeout
	}
	return profile.FromRequest(req)
}

// selectAdapters resolves --adapters, then MSSQL_ADAPTERS, against the
// default registry.
func selectAdapters(flags *targetFlags, cfg config.MSSQLConfig) (*probe.Registry, []probe.Adapter, error) {
	encrypt := firstNonEmpty(flags.encrypt, cfg.Encrypt)
	reg, err := probe.DefaultRegistry(encrypt)
	if err != nil {
		return nil, nil, err
	}
	names := flags.adapters
	if len(names) == 0 {
		names = cfg.Adapters
	}
	adapters, err := reg.Order(names...)
	if err != nil {
		return nil, nil, err
	}
	return reg, adapters, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
