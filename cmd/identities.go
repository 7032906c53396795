package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:     "identities",
	Aliases: []string{"ls"},
	Short:   "List registered people",
	Args:    cobra.NoArgs,
	RunE:    runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
	identitiesCmd.Flags().Bool("paths", false, "Show reference image paths")
}

func runIdentities(cmd *cobra.Command, args []string) error {
	showPaths := mustGetBool(cmd, "paths")
	cfg := config.Load()

	// Listing needs neither a detector nor a verifier.
	ids, err := identity.NewStore(cfg.Storage.FacesDir, nil, nil).List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No identities registered")
		return nil
	}

	for _, id := range ids {
		if showPaths {
			fmt.Printf("%s\t%s\n", id.Name, id.Path)
		} else {
			fmt.Println(id.Name)
		}
	}
	fmt.Printf("\nTotal: %d\n", len(ids))
	return nil
}
