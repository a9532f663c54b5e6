package cmd

import (
	"fmt"
	"io"

	"mcpe2e/internal/definition"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var definitionsDir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List server definitions and whether they will be tested",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("definitions") {
				cfg.DefinitionsDir = definitionsDir
			}

			entries, err := definition.LoadDir(cfg.DefinitionsDir)
			if err != nil {
				return err
			}
			renderDefinitions(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&definitionsDir, "definitions", "", "Directory holding one subdirectory per server definition")
	return cmd
}

func renderDefinitions(out io.Writer, entries []definition.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, text.FgYellow.Sprint("No server definitions found"))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("NAME"),
		text.FgHiCyan.Sprint("VERSION"),
		text.FgHiCyan.Sprint("SOURCE"),
		text.FgHiCyan.Sprint("TESTS"),
		text.FgHiCyan.Sprint("RUN"),
	})

	for _, e := range entries {
		source := "-"
		switch {
		case e.Server.Package != nil:
			source = fmt.Sprintf("%s:%s", e.Server.Package.Registry, e.Server.Package.Identifier)
		case e.Server.Remote != nil:
			source = e.Server.Remote.URL
		}

		run := text.FgGreen.Sprint("yes")
		switch {
		case e.Fixture.Skip:
			reason := e.Fixture.SkipReason
			if reason == "" {
				reason = "skipped"
			}
			run = text.FgYellow.Sprint("no: " + reason)
		case !e.Server.Active():
			run = text.FgYellow.Sprintf("no: %s", e.Server.Status)
		}

		t.AppendRow(table.Row{e.Server.Name, e.Server.Version, source, len(e.Fixture.Tests), run})
	}

	t.Render()
}
