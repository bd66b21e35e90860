package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"probekit/internal/core"
)

func newListCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the probes and summaries a config defines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			probes, summaries, err := cfg.Registries(core.RealClock{})
			if err != nil {
				return usageError("%v", err)
			}

			t := table.NewWriter()
			t.SetOutputMirror(stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Kind", "Name", "Scope", "Description"})
			for _, def := range probes.Definitions() {
				t.AppendRow(table.Row{"probe", def.Name, scopeLabel(def.Scope), def.Description})
			}
			for _, def := range summaries.Definitions() {
				t.AppendRow(table.Row{"summary", def.Name, scopeLabel(def.Scope), def.Description})
			}
			if t.Length() == 0 {
				fmt.Fprintln(stdout, "No probes or summaries defined")
				return nil
			}
			t.Render()
			return nil
		},
	}
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "(all)"
	}
	return scope
}
