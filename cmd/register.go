package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register <name> <image>",
	Short: "Register a person with a reference photo",
	Long: `Register a new identity. The name must be unique (case-insensitive),
the photo must contain a face, and the face must not match anyone already
registered. Use "-" as image to read from stdin.`,
	Example: `  face-attendance register "John Doe" john.jpg`,
	Args:    cobra.ExactArgs(2),
	RunE:    runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	image, err := readImageFile(path)
	if err != nil {
		return err
	}

	b, err := openBackends(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	res := workflow.NewRegistrar(b.identities).Register(context.Background(), name, image)
	if res.State != workflow.StateRegistered {
		return errors.New(res.Message())
	}
	fmt.Println(res.Message())
	return nil
}
