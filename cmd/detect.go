package cmd

import (
	"context"
	"fmt"

	"github.com/google/renameio"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/face"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Detect faces in a photo",
	Long: `Run the configured face detector on a photo and print the bounding
box of every face. With --out, a PNG copy with green boxes drawn around the
faces is written.`,
	Example: `  face-attendance detect group.jpg --out group-faces.png
  FACE_DETECTOR=pigo face-attendance detect capture.png`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().String("out", "", "Write an annotated PNG to this path")
}

func runDetect(cmd *cobra.Command, args []string) error {
	out := mustGetString(cmd, "out")

	image, err := readImageFile(args[0])
	if err != nil {
		return err
	}

	cfg := config.Load()
	detector, err := newDetector(cfg, face.NewEmbeddingClient(cfg.Embedding.URL, cfg.Verify.Threshold))
	if err != nil {
		return err
	}
	if c, ok := detector.(interface{ Close() error }); ok {
		defer c.Close()
	}

	boxes, err := detector.Detect(context.Background(), image)
	if err != nil {
		return err
	}

	fmt.Printf("Faces detected: %d\n", len(boxes))
	for i, b := range boxes {
		fmt.Printf("  #%d  x=%d y=%d w=%d h=%d\n", i+1, b.X, b.Y, b.Width, b.Height)
	}

	if out == "" {
		return nil
	}
	annotated, err := face.Annotate(image, boxes)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(out, annotated, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Printf("Annotated image written to %s\n", out)
	return nil
}
