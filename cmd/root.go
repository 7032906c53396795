package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "Face-recognition attendance register",
	Long: `Face Attendance keeps a register of people, each enrolled with one
reference photo, and marks them present at most once per day when a capture
of their face is recognized. The attendance log is a CSV file (or a
PostgreSQL table) that can be filtered, summarized and exported.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
