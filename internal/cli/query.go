package cli

import (
	"github.com/spf13/cobra"

	"calendar-cache/internal/app"
)

var (
	queryFrom     string
	queryTo       string
	queryOriginal bool
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the events of a date range, fetching missing days",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(queryFrom, queryTo)
		if err != nil {
			return err
		}
		return getApp().Query(cmd.Context(), app.QueryOptions{
			RangeOptions: app.RangeOptions{From: from, To: to, Original: queryOriginal},
			JSON:         queryJSON,
		})
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryFrom, "from", "", "First day (YYYY-MM-DD, default today)")
	queryCmd.Flags().StringVar(&queryTo, "to", "", "Last day, inclusive (YYYY-MM-DD, default --from)")
	queryCmd.Flags().BoolVar(&queryOriginal, "original", false, "Return original instead of derived text")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the full result as JSON")
}
