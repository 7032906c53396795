package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/spf13/cobra"
)

var attendCmd = &cobra.Command{
	Use:   "attend <image>...",
	Short: "Mark attendance from one or more captures",
	Long: `Identify the face in each capture and mark the person present for
today. A person is marked at most once per day; a capture identical to the
previous one is skipped.`,
	Example: `  face-attendance attend capture.jpg
  face-attendance attend frame-001.png frame-002.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAttend,
}

func init() {
	rootCmd.AddCommand(attendCmd)
}

func runAttend(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	b, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	attendance := workflow.NewAttendance(b.identities, b.ledger, cfg.Storage.Location())
	session := workflow.NewSession()
	ctx := context.Background()

	failed := 0
	for _, path := range args {
		image, err := readImageFile(path)
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			failed++
			continue
		}
		res := attendance.Attempt(ctx, session, image, time.Now())
		if res.State == workflow.StateAttendanceFailed {
			failed++
		}
		fmt.Printf("%s: %s\n", path, res.Message())
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d captures failed", failed, len(args))
	}
	return nil
}
