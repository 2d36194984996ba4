package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/config"
	"github.com/sells-group/disclosure-cli/internal/store"
)

var (
	exportOut   string
	exportSheet string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy every stored row into a local XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeExport); err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return eris.Wrap(err, "open store")
		}
		defer st.Close() //nolint:errcheck

		rows, err := st.ReadAllRows(ctx)
		if err != nil {
			return eris.Wrap(err, "read rows")
		}

		sheet := exportSheet
		if sheet == "" {
			sheet = cfg.Store.Sheets.SheetName
		}
		if err := store.ExportXLSX(exportOut, sheet, rows); err != nil {
			return err
		}

		zap.L().Info("export complete", zap.String("path", exportOut), zap.Int("rows", len(rows)))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "disclosures-export.xlsx", "output workbook path")
	exportCmd.Flags().StringVar(&exportSheet, "sheet", "", "worksheet name (default store.sheets.sheet_name)")
	rootCmd.AddCommand(exportCmd)
}
