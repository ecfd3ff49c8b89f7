package cli

import (
	"github.com/spf13/cobra"

	"calendar-cache/internal/app"
	"calendar-cache/internal/calendar"
)

var (
	warmFrom string
	warmTo   string
	warmRepr string
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Fill the cache for a date range of any length",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(warmFrom, warmTo)
		if err != nil {
			return err
		}
		repr, err := calendar.ParseRepresentation(warmRepr)
		if err != nil {
			return err
		}
		return getApp().Warm(cmd.Context(), app.WarmOptions{From: from, To: to, Representation: repr})
	},
}

func init() {
	warmCmd.Flags().StringVar(&warmFrom, "from", "", "First day (YYYY-MM-DD, default today)")
	warmCmd.Flags().StringVar(&warmTo, "to", "", "Last day, inclusive (YYYY-MM-DD)")
	warmCmd.Flags().StringVar(&warmRepr, "representation", "original", "Representation to warm (original|derived)")
}
