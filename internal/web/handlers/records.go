package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/ledger"
)

// RecordsHandler handles ledger queries, export and statistics.
type RecordsHandler struct {
	ledger ledger.Store
	loc    *time.Location
	now    func() time.Time
}

// NewRecordsHandler creates a new records handler. Export file names use
// the date in loc.
func NewRecordsHandler(store ledger.Store, loc *time.Location) *RecordsHandler {
	if loc == nil {
		loc = time.Local
	}
	return &RecordsHandler{ledger: store, loc: loc, now: time.Now}
}

// parseFilter reads name (repeatable or comma-separated), date and status.
func parseFilter(r *http.Request) (ledger.Filter, string) {
	q := r.URL.Query()
	var f ledger.Filter

	for _, v := range q["name"] {
		for n := range strings.SplitSeq(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				f.Names = append(f.Names, n)
			}
		}
	}

	if date := q.Get("date"); date != "" {
		if _, err := time.Parse(constants.DateLayout, date); err != nil {
			return f, "invalid date, expected YYYY-MM-DD"
		}
		f.Date = date
	}

	if status := q.Get("status"); status != "" {
		s, ok := ledger.ParseStatus(status)
		if !ok {
			return f, "invalid status, expected Present or Absent"
		}
		f.Status = s
	}
	return f, ""
}

func (h *RecordsHandler) filtered(w http.ResponseWriter, r *http.Request) ([]ledger.Record, bool) {
	f, msg := parseFilter(r)
	if msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return nil, false
	}
	records, err := h.ledger.Filter(r.Context(), f)
	if err != nil {
		respondErr(w, err)
		return nil, false
	}
	if r.URL.Query().Get("sort") == "newest" {
		ledger.SortNewestFirst(records)
	}
	return records, true
}

// List returns the filtered records.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, ok := h.filtered(w, r)
	if !ok {
		return
	}
	if records == nil {
		records = []ledger.Record{}
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"count":   len(records),
	})
}

// Export downloads the filtered records as attendance_log_<YYYYMMDD>.csv.
func (h *RecordsHandler) Export(w http.ResponseWriter, r *http.Request) {
	records, ok := h.filtered(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := ledger.WriteCSV(&buf, records); err != nil {
		respondErr(w, err)
		return
	}

	name := ledger.ExportFileName(h.now().In(h.loc))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Stats returns aggregates over the whole ledger.
func (h *RecordsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.ledger.Stats(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, st)
}
