package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	deleteFrom string
	deleteTo   string
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete cached days (both representations) in a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		if deleteFrom == "" {
			return errors.New("--from is required")
		}
		from, to, err := parseRange(deleteFrom, deleteTo)
		if err != nil {
			return err
		}
		return getApp().Delete(cmd.Context(), from, to)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Stats(cmd.Context())
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteFrom, "from", "", "First day (YYYY-MM-DD)")
	deleteCmd.Flags().StringVar(&deleteTo, "to", "", "Last day, inclusive (YYYY-MM-DD, default --from)")
}
