package cli

import (
	"github.com/spf13/cobra"

	"calendar-cache/internal/app"
)

var (
	digestFrom      string
	digestTo        string
	digestMinImpact string
	digestOriginal  bool
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Send a digest of notable events (Telegram, or stdout when disabled)",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to, err := parseRange(digestFrom, digestTo)
		if err != nil {
			return err
		}
		return getApp().Digest(cmd.Context(), app.DigestOptions{
			RangeOptions: app.RangeOptions{From: from, To: to, Original: digestOriginal},
			MinImpact:    digestMinImpact,
		})
	},
}

func init() {
	digestCmd.Flags().StringVar(&digestFrom, "from", "", "First day (YYYY-MM-DD, default today)")
	digestCmd.Flags().StringVar(&digestTo, "to", "", "Last day, inclusive (YYYY-MM-DD)")
	digestCmd.Flags().StringVar(&digestMinImpact, "min-impact", "", "Lowest impact to include (defaults to alerting.min_impact)")
	digestCmd.Flags().BoolVar(&digestOriginal, "original", false, "Use original instead of derived text")
}
