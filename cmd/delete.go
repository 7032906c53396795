package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/workflow"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a person and all of their attendance records",
	Long: `Delete a registered identity together with every attendance record
under that name. Asks for confirmation unless --yes is given. If the records
cannot be purged, the identity is restored.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	assumeYes := mustGetBool(cmd, "yes")

	b, err := openBackends(config.Load())
	if err != nil {
		return err
	}
	defer b.Close()

	deletion := workflow.NewDeletion(b.identities, b.ledger)
	session := workflow.NewSession()

	pending, err := deletion.Request(session, args[0])
	if err != nil {
		return err
	}

	if !assumeYes && !confirm(fmt.Sprintf("Delete %s and all attendance records?", pending.Name)) {
		if err := deletion.Cancel(session, pending.Token); err != nil {
			return err
		}
		fmt.Println("Canceled")
		return nil
	}

	res, err := deletion.Confirm(context.Background(), session, pending.Token)
	if err != nil {
		return err
	}
	fmt.Printf("Deleted %s, purged %d attendance records\n", res.Name, res.RecordsPurged)
	return nil
}

// confirm asks a y/N question on stdin.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
