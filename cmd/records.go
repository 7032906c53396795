package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/renameio"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Show or export attendance records",
	Long: `Show attendance records, optionally filtered by name, date and status.
Filters combine with AND. With --export the filtered records are written as
CSV in the ledger's column layout.`,
	Example: `  face-attendance records --date 2024-01-01
  face-attendance records --name alice --name bob --newest
  face-attendance records --status present --export .
  face-attendance records --export -`,
	Args: cobra.NoArgs,
	RunE: runRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.Flags().StringSlice("name", nil, "Only records of these names (repeatable, case-insensitive)")
	recordsCmd.Flags().String("date", "", "Only records of this date (YYYY-MM-DD)")
	recordsCmd.Flags().String("status", "", "Only records with this status (Present or Absent)")
	recordsCmd.Flags().Bool("newest", false, "Sort by date and time, newest first")
	recordsCmd.Flags().String("export", "", "Write CSV to this directory (as attendance_log_<YYYYMMDD>.csv), file, or - for stdout")
}

func recordsFilter(cmd *cobra.Command) (ledger.Filter, error) {
	f := ledger.Filter{Names: mustGetStringSlice(cmd, "name")}
	if date := mustGetString(cmd, "date"); date != "" {
		if _, err := time.Parse(constants.DateLayout, date); err != nil {
			return f, fmt.Errorf("invalid --date %q, expected YYYY-MM-DD", date)
		}
		f.Date = date
	}
	if status := mustGetString(cmd, "status"); status != "" {
		s, ok := ledger.ParseStatus(status)
		if !ok {
			return f, fmt.Errorf("invalid --status %q, expected Present or Absent", status)
		}
		f.Status = s
	}
	return f, nil
}

func runRecords(cmd *cobra.Command, args []string) error {
	f, err := recordsFilter(cmd)
	if err != nil {
		return err
	}

	cfg := config.Load()
	b, err := openBackends(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	records, err := b.ledger.Filter(context.Background(), f)
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "newest") {
		ledger.SortNewestFirst(records)
	}

	if dest := mustGetString(cmd, "export"); dest != "" {
		return exportRecords(records, dest, time.Now().In(cfg.Storage.Location()))
	}

	if len(records) == 0 {
		fmt.Println("No records found")
		return nil
	}
	printRecords(os.Stdout, records)
	fmt.Printf("\nTotal: %d\n", len(records))
	return nil
}

func printRecords(w io.Writer, records []ledger.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDATE\tTIME\tSTATUS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Date, r.Time, r.Status)
	}
	tw.Flush()
}

// exportRecords writes CSV to stdout ("-"), into a directory under the
// dated export name, or to an explicit file path.
func exportRecords(records []ledger.Record, dest string, now time.Time) error {
	if dest == "-" {
		return ledger.WriteCSV(os.Stdout, records)
	}

	path := dest
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		path = dest + string(os.PathSeparator) + ledger.ExportFileName(now)
	}

	t, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer t.Cleanup()

	if err := ledger.WriteCSV(t, records); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to save export: %w", err)
	}
	fmt.Printf("Exported %d records to %s\n", len(records), path)
	return nil
}
