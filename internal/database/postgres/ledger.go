package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/names"
	"github.com/lib/pq"
)

const recordColumns = `name, to_char(att_date, 'YYYY-MM-DD'), att_time, status`

// LedgerRepository provides PostgreSQL-backed attendance storage.
// The partial unique index on (name_key, att_date) for Present rows keeps
// at most one Present record per identity per day across processes.
type LedgerRepository struct {
	pool *Pool
}

var _ ledger.Store = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Load returns every record in insertion order.
func (r *LedgerRepository) Load(ctx context.Context) ([]ledger.Record, error) {
	return r.query(ctx, `SELECT `+recordColumns+` FROM attendance_records ORDER BY id`)
}

// HasPresentToday reports whether name has a Present record on day's date.
func (r *LedgerRepository) HasPresentToday(ctx context.Context, name string, day time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM attendance_records
			WHERE name_key = $1 AND att_date = $2::date AND status = 'Present'
		)`, names.Key(name), day.Format(constants.DateLayout)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check attendance: %w", err)
	}
	return exists, nil
}

// MarkPresent inserts a Present record. When one already exists for the
// identity and date, it is returned with ledger.ErrAlreadyMarked.
func (r *LedgerRepository) MarkPresent(ctx context.Context, name string, at time.Time) (ledger.Record, error) {
	rec := ledger.NewPresentRecord(name, at)
	key := names.Key(name)

	var inserted ledger.Record
	err := r.pool.QueryRow(ctx, `
		INSERT INTO attendance_records (name, name_key, att_date, att_time, status)
		VALUES ($1, $2, $3::date, $4, 'Present')
		ON CONFLICT (name_key, att_date) WHERE status = 'Present' DO NOTHING
		RETURNING `+recordColumns,
		rec.Name, key, rec.Date, rec.Time,
	).Scan(&inserted.Name, &inserted.Date, &inserted.Time, &inserted.Status)
	if err == nil {
		return inserted, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return ledger.Record{}, fmt.Errorf("insert attendance: %w", err)
	}

	var existing ledger.Record
	err = r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE name_key = $1 AND att_date = $2::date AND status = 'Present'
		ORDER BY id LIMIT 1`, key, rec.Date,
	).Scan(&existing.Name, &existing.Date, &existing.Time, &existing.Status)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("load existing attendance: %w", err)
	}
	return existing, ledger.ErrAlreadyMarked
}

// DeleteIdentityRecords removes every record of name and returns the count.
func (r *LedgerRepository) DeleteIdentityRecords(ctx context.Context, name string) (int, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM attendance_records WHERE name_key = $1`, names.Key(name))
	if err != nil {
		return 0, fmt.Errorf("delete attendance of %s: %w", name, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted attendance: %w", err)
	}
	return int(n), nil
}

// Filter returns the records matching f in insertion order.
func (r *LedgerRepository) Filter(ctx context.Context, f ledger.Filter) ([]ledger.Record, error) {
	var (
		where []string
		args  []any
	)
	if len(f.Names) > 0 {
		keys := make([]string, 0, len(f.Names))
		for _, n := range f.Names {
			if k := names.Key(n); k != "" {
				keys = append(keys, k)
			}
		}
		if len(keys) > 0 {
			args = append(args, pq.Array(keys))
			where = append(where, fmt.Sprintf("name_key = ANY($%d)", len(args)))
		}
	}
	if f.Date != "" {
		if _, err := time.Parse(constants.DateLayout, f.Date); err != nil {
			// Matches nothing, like the in-memory filter.
			return []ledger.Record{}, nil
		}
		args = append(args, f.Date)
		where = append(where, fmt.Sprintf("att_date = $%d::date", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`
	return r.query(ctx, query, args...)
}

// Stats aggregates the whole ledger.
func (r *LedgerRepository) Stats(ctx context.Context) (ledger.Stats, error) {
	var st ledger.Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(DISTINCT name_key),
			COUNT(*) FILTER (WHERE status = 'Present'),
			COUNT(*) FILTER (WHERE status = 'Absent')
		FROM attendance_records`,
	).Scan(&st.Total, &st.UniqueIdentities, &st.PresentCount, &st.AbsentCount)
	if err != nil {
		return ledger.Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	return st, nil
}

func (r *LedgerRepository) query(ctx context.Context, query string, args ...any) ([]ledger.Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendance: %w", err)
	}
	defer rows.Close()

	records := []ledger.Record{}
	for rows.Next() {
		var rec ledger.Record
		if err := rows.Scan(&rec.Name, &rec.Date, &rec.Time, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return records, nil
}
