package cli

import (
	"github.com/spf13/cobra"

	"calendar-cache/internal/app"
)

var (
	exportFrom     string
	exportTo       string
	exportPNGPath  string
	exportCSVPath  string
	exportOriginal bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export events as CSV and/or a PNG chart of events per day",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(exportFrom, exportTo)
		if err != nil {
			return err
		}
		return getApp().Export(cmd.Context(), app.ExportOptions{
			RangeOptions: app.RangeOptions{From: from, To: to, Original: exportOriginal},
			PNGPath:      exportPNGPath,
			CSVPath:      exportCSVPath,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "First day (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "Last day, inclusive (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().BoolVar(&exportOriginal, "original", false, "Export original instead of derived text")
}
