package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *CSVStore {
	t.Helper()
	return NewCSVStore(filepath.Join(t.TempDir(), "attendance.csv"))
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		t.Fatalf("bad test time %q: %v", s, err)
	}
	return ts
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestCSVStore_MarkPresent_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec, err := store.MarkPresent(ctx, "Alice", at(t, "2024-01-01 09:00:00"))
	if err != nil {
		t.Fatalf("first MarkPresent failed: %v", err)
	}
	if rec.Date != "2024-01-01" || rec.Time != "09:00:00" || rec.Status != StatusPresent {
		t.Errorf("unexpected record: %+v", rec)
	}

	existing, err := store.MarkPresent(ctx, "Alice", at(t, "2024-01-01 17:30:00"))
	if !errors.Is(err, ErrAlreadyMarked) {
		t.Fatalf("expected ErrAlreadyMarked, got %v", err)
	}
	if existing.Time != "09:00:00" {
		t.Errorf("expected existing record time 09:00:00, got %s", existing.Time)
	}

	records, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected exactly 1 record, got %d", len(records))
	}
}

func TestCSVStore_MarkPresent_CaseInsensitive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.MarkPresent(ctx, "John Doe", at(t, "2024-03-05 08:00:00")); err != nil {
		t.Fatalf("MarkPresent failed: %v", err)
	}

	for _, variant := range []string{"JOHN DOE", "john doe", "  John doe "} {
		t.Run(variant, func(t *testing.T) {
			_, err := store.MarkPresent(ctx, variant, at(t, "2024-03-05 10:00:00"))
			if !errors.Is(err, ErrAlreadyMarked) {
				t.Errorf("expected ErrAlreadyMarked for %q, got %v", variant, err)
			}
		})
	}

	ok, err := store.HasPresentToday(ctx, "jOhN dOe", at(t, "2024-03-05 23:59:59"))
	if err != nil {
		t.Fatalf("HasPresentToday failed: %v", err)
	}
	if !ok {
		t.Error("expected HasPresentToday to match case-insensitively")
	}
}

func TestCSVStore_MarkPresent_NewDay(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.MarkPresent(ctx, "Alice", at(t, "2024-01-01 09:00:00"))
	if _, err := store.MarkPresent(ctx, "Alice", at(t, "2024-01-02 09:00:00")); err != nil {
		t.Fatalf("expected next-day mark to succeed, got %v", err)
	}

	ok, _ := store.HasPresentToday(ctx, "Alice", at(t, "2024-01-03 09:00:00"))
	if ok {
		t.Error("did not expect a mark on 2024-01-03")
	}
}

func TestCSVStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var want []Record
	for i, name := range []string{"Alice", "Bob", "Carol, Jr.", `Dan "The Man"`} {
		rec, err := store.MarkPresent(ctx, name, at(t, fmt.Sprintf("2024-02-0%d 0%d:15:00", i+1, i+1)))
		if err != nil {
			t.Fatalf("MarkPresent(%s) failed: %v", name, err)
		}
		want = append(want, rec)
	}

	reloaded := NewCSVStore(store.Path())
	got, err := reloaded.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCSVStore_FileFormat(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.MarkPresent(ctx, "Alice", at(t, "2024-01-01 09:05:07"))

	want := "Name,Date,Time,Status\nAlice,2024-01-01,09:05:07,Present\n"
	if got := readFile(t, store.Path()); got != want {
		t.Errorf("unexpected file content:\n%q\nwant:\n%q", got, want)
	}
}

func TestCSVStore_Load_SelfHealing(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{"missing file", nil},
		{"empty file", ptr("")},
		{"whitespace only", ptr("\n\n")},
		{"missing Status column", ptr("Name,Date,Time\nAlice,2024-01-01,09:00:00\n")},
		{"ragged rows", ptr("Name,Date,Time,Status\nAlice,2024-01-01\n")},
		{"unterminated quote", ptr("Name,Date,Time,Status\n\"Alice,2024-01-01,09:00:00,Present\n")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore(t)
			if tc.content != nil {
				writeFile(t, store.Path(), *tc.content)
			}

			records, err := store.Load(context.Background())
			if err != nil {
				t.Fatalf("Load should recover, got %v", err)
			}
			if len(records) != 0 {
				t.Errorf("expected empty ledger, got %d records", len(records))
			}
			if got := readFile(t, store.Path()); got != "Name,Date,Time,Status\n" {
				t.Errorf("expected canonical empty file, got %q", got)
			}
		})
	}
}

func ptr(s string) *string { return &s }

func TestCSVStore_Load_ColumnOrderAndExtras(t *testing.T) {
	store := newTestStore(t)
	writeFile(t, store.Path(), "\xef\xbb\xbfStatus,Time,Note,Date,Name\nPresent,09:00:00,late bus,2024-01-01,Alice\n")

	records, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Record{Name: "Alice", Date: "2024-01-01", Time: "09:00:00", Status: StatusPresent}
	if len(records) != 1 || records[0] != want {
		t.Errorf("expected %+v, got %+v", want, records)
	}
}

func TestCSVStore_DeleteIdentityRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.MarkPresent(ctx, "John Doe", at(t, "2024-01-01 09:00:00"))
	store.MarkPresent(ctx, "Alice", at(t, "2024-01-01 09:01:00"))
	store.MarkPresent(ctx, "John Doe", at(t, "2024-01-02 09:00:00"))

	removed, err := store.DeleteIdentityRecords(ctx, "JOHN DOE")
	if err != nil {
		t.Fatalf("DeleteIdentityRecords failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}

	remaining, _ := store.Filter(ctx, Filter{Names: []string{"John Doe"}})
	if len(remaining) != 0 {
		t.Errorf("expected no John Doe records, got %d", len(remaining))
	}
	all, _ := store.Load(ctx)
	if len(all) != 1 || all[0].Name != "Alice" {
		t.Errorf("expected only Alice to remain, got %+v", all)
	}

	removed, err = store.DeleteIdentityRecords(ctx, "Nobody")
	if err != nil || removed != 0 {
		t.Errorf("expected 0 removed for unknown name, got %d (%v)", removed, err)
	}
}

func TestCSVStore_FilterAndStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	writeFile(t, store.Path(), `Name,Date,Time,Status
Alice,2024-01-01,09:00:00,Present
Bob,2024-01-01,09:10:00,Present
Alice,2024-01-02,08:55:00,Present
Carol,2024-01-02,00:00:00,Absent
`)

	tests := []struct {
		name     string
		filter   Filter
		expected []string // name@date
	}{
		{"no criteria", Filter{}, []string{"Alice@2024-01-01", "Bob@2024-01-01", "Alice@2024-01-02", "Carol@2024-01-02"}},
		{"by name", Filter{Names: []string{"alice"}}, []string{"Alice@2024-01-01", "Alice@2024-01-02"}},
		{"by names", Filter{Names: []string{"Bob", "CAROL"}}, []string{"Bob@2024-01-01", "Carol@2024-01-02"}},
		{"by date", Filter{Date: "2024-01-02"}, []string{"Alice@2024-01-02", "Carol@2024-01-02"}},
		{"by status", Filter{Status: StatusAbsent}, []string{"Carol@2024-01-02"}},
		{"combined", Filter{Names: []string{"Alice", "Carol"}, Date: "2024-01-02", Status: StatusPresent}, []string{"Alice@2024-01-02"}},
		{"no match", Filter{Date: "2030-01-01"}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := store.Filter(ctx, tc.filter)
			if err != nil {
				t.Fatalf("Filter failed: %v", err)
			}
			if len(got) != len(tc.expected) {
				t.Fatalf("expected %d records, got %d: %+v", len(tc.expected), len(got), got)
			}
			for i, r := range got {
				if key := r.Name + "@" + r.Date; key != tc.expected[i] {
					t.Errorf("record %d = %s; want %s", i, key, tc.expected[i])
				}
			}
		})
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	want := Stats{Total: 4, UniqueIdentities: 3, PresentCount: 3, AbsentCount: 1}
	if stats != want {
		t.Errorf("Stats = %+v; want %+v", stats, want)
	}
}

func TestCSVStore_ConcurrentMarks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	day := at(t, "2024-05-01 09:00:00")

	var wg sync.WaitGroup
	var mu sync.Mutex
	marked := 0
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Half the goroutines race on the same identity.
			name := fmt.Sprintf("person-%d", i)
			if i%2 == 0 {
				name = "Shared"
			}
			_, err := store.MarkPresent(ctx, name, day)
			if err == nil && name == "Shared" {
				mu.Lock()
				marked++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if marked != 1 {
		t.Errorf("expected exactly one successful Shared mark, got %d", marked)
	}
	records, _ := store.Load(ctx)
	if len(records) != 11 {
		t.Errorf("expected 11 records (10 distinct + 1 shared), got %d", len(records))
	}
}

func TestCSVStore_CanceledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.MarkPresent(ctx, "Alice", time.Now()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSortNewestFirst(t *testing.T) {
	records := []Record{
		{Name: "a", Date: "2024-01-01", Time: "09:00:00"},
		{Name: "b", Date: "2024-01-02", Time: "08:00:00"},
		{Name: "c", Date: "2024-01-02", Time: "10:00:00"},
		{Name: "d", Date: "2024-01-01", Time: "09:00:00"},
	}

	SortNewestFirst(records)

	order := ""
	for _, r := range records {
		order += r.Name
	}
	if order != "cbad" {
		t.Errorf("expected order cbad, got %s", order)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input string
		want  Status
		ok    bool
	}{
		{"Present", StatusPresent, true},
		{"absent", StatusAbsent, true},
		{"PRESENT", StatusPresent, true},
		{"late", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ParseStatus(tc.input)
			if got != tc.want || ok != tc.ok {
				t.Errorf("ParseStatus(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestWriteCSVAndExportFileName(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, []Record{{Name: "Smith, Anna", Date: "2024-01-01", Time: "09:00:00", Status: StatusPresent}})
	if err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	want := "Name,Date,Time,Status\n\"Smith, Anna\",2024-01-01,09:00:00,Present\n"
	if buf.String() != want {
		t.Errorf("WriteCSV = %q; want %q", buf.String(), want)
	}

	if got := ExportFileName(at(t, "2024-07-09 12:00:00")); got != "attendance_log_20240709.csv" {
		t.Errorf("ExportFileName = %s", got)
	}
}
