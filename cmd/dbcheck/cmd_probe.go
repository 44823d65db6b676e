package main

import (
	"errors"

	"github.com/spf13/cobra"

	"dbcheck/internal/check"
	"dbcheck/internal/config"
)

var errCheckFailed = errors.New("check failed")

func newProbeCmd(flags *targetFlags) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run one check, falling back through the adapter order",
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
			_, adapters, err := selectAdapters(flags, cfg.MSSQL)
			if err != nil {
				return err
			}

			orch := check.New(newLogger(flags.verbose))
			res, err := orch.Check(cmd.Context(), p, check.Policy{
				Name:       "cli-probe",
				Label:      "MSSQL",
				ProbeQuery: query,
				ShowDetail: true,
				Adapters:   adapters,
			})
			printLine(cmd.OutOrStdout(), flags.jsonOutput, line{Target: p.String(), Result: res})
			if err != nil {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "SELECT @@VERSION", "probe query")
	return cmd
}
