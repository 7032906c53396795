package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <dir>",
	Short: "Register every photo in a directory",
	Long: `Bulk-register identities from a directory of photos. Each image file
becomes one identity named after the file without its extension, so
"Jane Doe.jpg" registers "Jane Doe". Rejected photos are reported at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
	enrollCmd.Flags().Bool("plain", false, "Print one line per photo instead of a progress bar")
}

type enrollFailure struct {
	file    string
	message string
}

func runEnroll(cmd *cobra.Command, args []string) error {
	dir := args[0]
	plain := mustGetBool(cmd, "plain")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && face.IsImageExtension(filepath.Ext(e.Name())) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		fmt.Println("No images found")
		return nil
	}

	b, err := openBackends(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	registrar := workflow.NewRegistrar(b.identities)
	ctx := context.Background()

	var bar *progressbar.ProgressBar
	if !plain {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Enrolling"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("photos"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	var (
		registered int
		failures   []enrollFailure
	)
	for _, file := range files {
		name := strings.TrimSuffix(file, filepath.Ext(file))
		image, err := os.ReadFile(filepath.Join(dir, file))
		var res workflow.RegistrationResult
		if err != nil {
			res = workflow.RegistrationResult{State: workflow.StateRegistrationFailed, Err: err}
		} else {
			res = registrar.Register(ctx, name, image)
		}

		if res.State == workflow.StateRegistered {
			registered++
		} else {
			failures = append(failures, enrollFailure{file: file, message: res.Message()})
		}

		if bar != nil {
			bar.Add(1)
		} else {
			fmt.Printf("%s: %s\n", file, res.State)
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	fmt.Printf("Registered %d of %d photos\n", registered, len(files))
	for _, f := range failures {
		fmt.Printf("  %s: %s\n", f.file, f.message)
	}
	return nil
}
