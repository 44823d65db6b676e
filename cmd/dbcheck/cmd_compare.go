package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dbcheck/internal/check"
	"dbcheck/internal/config"
	"dbcheck/internal/probe"
	"dbcheck/internal/profile"
)

func newCompareCmd(flags *targetFlags) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Try every adapter on its own and summarize which ones connect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			p, err := resolveProfile(flags, cfg.MSSQL, getenv)
			if err != nil {
				return err
			}
			reg, adapters, err := selectAdapters(flags, cfg.MSSQL)
			if err != nil {
				return err
			}
			if len(flags.adapters) == 0 {
				// compare defaults to everything that can reach SQL Server
				adapters, err = reg.Order(sqlServerAdapters(reg)...)
				if err != nil {
					return err
				}
			}

			orch := check.New(newLogger(flags.verbose))
			ok := compare(cmd.Context(), cmd.OutOrStdout(), flags.jsonOutput, orch, p, query, adapters)
			if !flags.jsonOutput {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%d/%d adapters connected\n", ok, len(adapters))
			}
			if ok == 0 {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "SELECT @@VERSION", "probe query")
	return cmd
}

// compare runs each adapter as a single adapter check and returns how many
// succeeded.
func compare(ctx context.Context, w io.Writer, jsonOutput bool, orch *check.Orchestrator, p profile.Profile, query string, adapters []probe.Adapter) int {
	ok := 0
	for _, a := range adapters {
		res, _ := orch.Check(ctx, p, check.Policy{
			Name:       "cli-compare",
			Label:      "MSSQL",
			ProbeQuery: query,
			ShowDetail: true,
			Adapters:   []probe.Adapter{a},
		})
		if res.Success {
			ok++
		}
		printLine(w, jsonOutput, line{Target: p.String(), Adapter: a.Name(), Result: res})
	}
	return ok
}

// sqlServerAdapters lists registered adapters that speak to SQL Server,
// skipping engines bound to other dialects.
func sqlServerAdapters(reg *probe.Registry) []string {
	var names []string
	for _, name := range reg.Names() {
		a, _ := reg.Get(name)
		if e, isEngine := a.(*probe.Engine); isEngine && e.Dialect() != "sqlserver" {
			continue
		}
		if name == "pgx" {
			continue
		}
		names = append(names, name)
	}
	return names
}
