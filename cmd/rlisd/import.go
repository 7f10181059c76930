package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rlis-backend/internal/inventory"
	"rlis-backend/internal/sheet"
)

func newImport() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a licensing spreadsheet (xlsx or csv)",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	records, err := sheet.Read(f, sheet.Options{Marker: cfg.Import.HeaderMarker, Window: cfg.Import.ScanRows})
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	rows := make([]inventory.Row, len(records))
	for i, rec := range records {
		rows[i] = inventory.RowFromRecord(rec)
	}

	a, err := openApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	// close waits for every write to land before the process exits.
	defer a.close()

	result, err := a.registry.Import(rows)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d machines for facilities %v\n", len(result.Machines), result.Facilities)
	return nil
}
