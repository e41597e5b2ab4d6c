package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/modules/sale/tier"
	"github.com/spf13/cobra"
)

func NewTierCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "tier [score]",
		Short:   "Show the purchase tier table, or the tier of a game score",
		Args:    cobra.MaximumNArgs(1),
		Example: `batchsale tier 640`,
		RunE:    tierHandler,
	}
}

func tierHandler(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIER\tMIN SCORE\tMAX BATCHES")
		for _, t := range tier.All() {
			fmt.Fprintf(w, "%s\t%d\t%d\n", t.Name, t.MinScore, t.MaxBatches)
		}
		return errors.WithStack(w.Flush())
	}

	score, err := strconv.Atoi(args[0])
	if err != nil {
		return errors.Wrap(err, "score must be an integer")
	}
	t, err := tier.Resolve(score)
	if err != nil {
		return errors.WithStack(err)
	}
	if !t.IsGated() {
		fmt.Fprintf(out, "score %d is below the %s tier (%d), no purchase allowed\n", score, tier.Bronze.Name, tier.Bronze.MinScore)
		return nil
	}
	fmt.Fprintf(out, "score %d: %s tier, up to %d batches\n", score, t.Name, t.MaxBatches)
	return nil
}
