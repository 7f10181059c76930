package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rlis-backend/internal/report"
)

func newReport() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report <machine-id>",
		Short: "Render the inspection document for one machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			m, err := a.registry.Get(args[0])
			if err != nil {
				return err
			}
			p := report.NewBuilder(cfg.Inventory.Inspector, cfg.Report.DateLayout).Build(m)
			renderer := &report.Renderer{Dir: cfg.Report.TemplateDir}
			doc, err := renderer.Render(m.InspectionType, p)
			if err != nil {
				return err
			}

			if out == "" {
				out = report.Filename(p, m.InspectionType)
			}
			if err := os.WriteFile(out, doc, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (default <registration>_<category>.docx)")
	return cmd
}
