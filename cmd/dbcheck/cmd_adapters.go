package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dbcheck/internal/config"
	"dbcheck/internal/probe"
)

type adapterInfo struct {
	Name      string `json:"name"`
	Dialect   string `json:"dialect,omitempty"`
	Available bool   `json:"available"`
}

func newAdaptersCmd(flags *targetFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List adapters and whether their driver is compiled in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			reg, err := probe.DefaultRegistry(firstNonEmpty(flags.encrypt, cfg.MSSQL.Encrypt))
			if err != nil {
				return err
			}
			printAdapters(cmd.OutOrStdout(), flags.jsonOutput, describeAdapters(reg))
			return nil
		},
	}
}

func describeAdapters(reg *probe.Registry) []adapterInfo {
	var out []adapterInfo
	for _, name := range reg.Names() {
		a, _ := reg.Get(name)
		info := adapterInfo{Name: name, Available: true}
		if av, ok := a.(probe.Availability); ok {
			info.Available = av.Available()
		}
		if e, ok := a.(*probe.Engine); ok {
			info.Dialect = e.Dialect()
		}
		out = append(out, info)
	}
	return out
}

func printAdapters(w io.Writer, jsonOutput bool, infos []adapterInfo) {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(infos)
		return
	}
	for _, info := range infos {
		status := okFormat("available")
		if !info.Available {
			status = failFormat("missing")
		}
		name := info.Name
		if info.Dialect != "" {
			name += mutedFormat(" (" + info.Dialect + ")")
		}
		fmt.Fprintf(w, "%-32s %s\n", name, status)
	}
}
