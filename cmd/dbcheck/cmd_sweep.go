package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"dbcheck/internal/check"
	"dbcheck/internal/config"
	"dbcheck/internal/probe"
	"dbcheck/internal/profile"
)

func newSweepCmd(flags *targetFlags) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "sweep HOST...",
		Short: "Check a list of hosts in order and report the first that answers",
		Long: `sweep runs the probe against each host with the same port, database and
login. It stops at the first host that connects unless --all is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// hosts come from args; the profile only needs a placeholder to validate
			if flags.host == "" && cfg.MSSQL.Host == "" {
				flags.host = args[0]
			}
			p, err := resolveProfile(flags, cfg.MSSQL, getenv)
			if err != nil {
				return err
			}
			_, adapters, err := selectAdapters(flags, cfg.MSSQL)
			if err != nil {
				return err
			}

			orch := check.New(newLogger(flags.verbose))
			if _, found := sweep(cmd.Context(), cmd.OutOrStdout(), flags.jsonOutput, orch, p, adapters, args, all); !found {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "check every host instead of stopping at the first success")
	return cmd
}

// sweep returns the first host that connected.
func sweep(ctx context.Context, w io.Writer, jsonOutput bool, orch *check.Orchestrator, base profile.Profile, adapters []probe.Adapter, hosts []string, all bool) (string, bool) {
	var first string
	found := false
	for _, host := range hosts {
		if ctx.Err() != nil {
			break
		}
		p := base.WithHost(host)
		res, _ := orch.Check(ctx, p, check.Policy{
			Name:       "cli-sweep",
			Label:      "MSSQL",
			ProbeQuery: "SELECT 1",
			Adapters:   adapters,
		})
		printLine(w, jsonOutput, line{Target: p.String(), Result: res})
		if res.Success && !found {
			first, found = host, true
			if !all {
				break
			}
		}
	}
	return first, found
}
