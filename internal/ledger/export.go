package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
)

// WriteCSV writes records with the canonical Name,Date,Time,Status header.
// The layout is identical to the persisted ledger file.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(constants.LedgerColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write([]string{r.Name, r.Date, r.Time, string(r.Status)}); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFileName returns attendance_log_<YYYYMMDD>.csv for the given day.
func ExportFileName(day time.Time) string {
	return constants.ExportFilePrefix + day.Format(constants.ExportDateLayout) + ".csv"
}
