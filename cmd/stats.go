package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show attendance statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	b, err := openBackends(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	st, err := b.ledger.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Total records:     %d\n", st.Total)
	fmt.Printf("Unique identities: %d\n", st.UniqueIdentities)
	fmt.Printf("Present:           %d\n", st.PresentCount)
	fmt.Printf("Absent:            %d\n", st.AbsentCount)
	return nil
}
