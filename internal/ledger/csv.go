package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio"
	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/names"
)

// CSVStore persists the ledger as a CSV file with the header Name,Date,Time,Status.
//
// Every mutation is a read-modify-write of the whole file performed under an
// in-process mutex and an exclusive lock on <path>.lock, so concurrent writers
// in other processes cannot lose updates. The file is replaced atomically, so
// readers never observe a partial write and need no lock.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

// NewCSVStore creates a store for the CSV file at path. The file is created on first use.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the ledger file path.
func (s *CSVStore) Path() string {
	return s.path
}

// Load implements Store. A missing, empty or malformed file is reset to an
// empty ledger with the canonical header.
func (s *CSVStore) Load(ctx context.Context) ([]Record, error) {
	records, err := s.read()
	if err == nil {
		return records, nil
	}
	if !errors.Is(err, ErrPersistenceCorrupt) {
		return nil, err
	}

	var out []Record
	err = s.mutate(ctx, func(current []Record) ([]Record, bool, error) {
		// Another writer may have repaired the file in the meantime.
		out = current
		return current, false, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// HasPresentToday implements Store.
func (s *CSVStore) HasPresentToday(ctx context.Context, name string, day time.Time) (bool, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return false, err
	}
	_, ok := hasPresent(records, names.Key(name), day.Format(constants.DateLayout))
	return ok, nil
}

// MarkPresent implements Store.
func (s *CSVStore) MarkPresent(ctx context.Context, name string, at time.Time) (Record, error) {
	rec := NewPresentRecord(name, at)
	var existing Record
	var marked bool

	err := s.mutate(ctx, func(records []Record) ([]Record, bool, error) {
		if r, ok := hasPresent(records, names.Key(name), rec.Date); ok {
			existing, marked = r, true
			return records, false, nil
		}
		return append(records, rec), true, nil
	})
	if err != nil {
		return Record{}, err
	}
	if marked {
		return existing, ErrAlreadyMarked
	}
	return rec, nil
}

// DeleteIdentityRecords implements Store.
func (s *CSVStore) DeleteIdentityRecords(ctx context.Context, name string) (int, error) {
	key := names.Key(name)
	removed := 0

	err := s.mutate(ctx, func(records []Record) ([]Record, bool, error) {
		kept := make([]Record, 0, len(records))
		for _, r := range records {
			if names.Key(r.Name) == key {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		return kept, removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Filter implements Store.
func (s *CSVStore) Filter(ctx context.Context, f Filter) ([]Record, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(records), nil
}

// Stats implements Store.
func (s *CSVStore) Stats(ctx context.Context) (Stats, error) {
	records, err := s.Load(ctx)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(records), nil
}

// mutate runs fn over the current records while holding both locks and writes
// the result back when fn reports a change. A corrupt file is always rewritten.
func (s *CSVStore) mutate(ctx context.Context, fn func([]Record) ([]Record, bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	unlock, err := lockFile(s.path + ".lock")
	if err != nil {
		return fmt.Errorf("lock ledger: %w", err)
	}
	defer unlock()

	records, err := s.read()
	reset := false
	if errors.Is(err, ErrPersistenceCorrupt) {
		log.Printf("Resetting attendance ledger %s: %v", s.path, err)
		records, reset = nil, true
	} else if err != nil {
		return err
	}

	updated, changed, err := fn(records)
	if err != nil {
		return err
	}
	if !changed && !reset {
		return nil
	}
	return s.write(updated)
}

// read parses the ledger file. Missing or empty files and files without the
// canonical columns are reported as ErrPersistenceCorrupt.
func (s *CSVStore) read() ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: file does not exist", ErrPersistenceCorrupt)
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return parseCSV(data)
}

func (s *CSVStore) write(records []Record) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return err
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// parseCSV maps columns by header name, so column order may vary and extra
// columns are ignored.
func parseCSV(data []byte) ([]Record, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrPersistenceCorrupt)
	}

	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range constants.LedgerColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrPersistenceCorrupt, col)
		}
	}

	var records []Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistenceCorrupt, err)
		}
		records = append(records, Record{
			Name:   row[idx[constants.ColumnName]],
			Date:   row[idx[constants.ColumnDate]],
			Time:   row[idx[constants.ColumnTime]],
			Status: Status(row[idx[constants.ColumnStatus]]),
		})
	}
	return records, nil
}
