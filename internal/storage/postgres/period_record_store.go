package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hypervisor-analytics/internal/domain"
	"hypervisor-analytics/internal/idhash"
	"hypervisor-analytics/internal/storage"
)

// PeriodRecordStore implements storage.PeriodRecordStore using PostgreSQL.
// Records are stored as JSONB in their upstream key/value shape.
type PeriodRecordStore struct {
	pool *Pool
}

// NewPeriodRecordStore creates a new PeriodRecordStore.
func NewPeriodRecordStore(pool *Pool) *PeriodRecordStore {
	return &PeriodRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PeriodRecordStore = (*PeriodRecordStore)(nil)

const insertPeriodRecord = `
	INSERT INTO period_records (
		period_id, chain, address, ini_block, end_block, ini_timestamp, end_timestamp, payload
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

func periodArgs(chain domain.Chain, rec *domain.PeriodRecord) ([]any, error) {
	payload, err := json.Marshal(rec.ToMap())
	if err != nil {
		return nil, fmt.Errorf("marshal period record: %w", err)
	}
	tf := rec.Timeframe
	return []any{
		idhash.ComputePeriodID(string(chain), rec.Address, tf.Ini.Block, tf.End.Block),
		string(chain),
		rec.Address,
		tf.Ini.Block,
		tf.End.Block,
		tf.Ini.Timestamp,
		tf.End.Timestamp,
		string(payload),
	}, nil
}

// Insert adds a record. Returns ErrDuplicateKey if exists.
func (s *PeriodRecordStore) Insert(ctx context.Context, chain domain.Chain, rec *domain.PeriodRecord) error {
	args, err := periodArgs(chain, rec)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, insertPeriodRecord, args...); err != nil {
		return writeError("insert period record", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate.
func (s *PeriodRecordStore) InsertBulk(ctx context.Context, chain domain.Chain, recs []*domain.PeriodRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range recs {
		args, err := periodArgs(chain, rec)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertPeriodRecord, args...); err != nil {
			return writeError("insert period record in bulk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByHypervisor retrieves all records of a hypervisor, ordered by ini_block, end_block ASC.
func (s *PeriodRecordStore) GetByHypervisor(ctx context.Context, chain domain.Chain, address string) ([]*domain.PeriodRecord, error) {
	query := `
		SELECT payload FROM period_records
		WHERE chain = $1 AND address = $2
		ORDER BY ini_block ASC, end_block ASC
	`

	rows, err := s.pool.Query(ctx, query, string(chain), address)
	if err != nil {
		return nil, fmt.Errorf("get period records: %w", err)
	}
	defer rows.Close()

	return scanPeriodRecords(rows)
}

// GetByBlockRange retrieves records with ini_block >= start and end_block <= end.
func (s *PeriodRecordStore) GetByBlockRange(ctx context.Context, chain domain.Chain, address string, start, end int64) ([]*domain.PeriodRecord, error) {
	query := `
		SELECT payload FROM period_records
		WHERE chain = $1 AND address = $2 AND ini_block >= $3 AND end_block <= $4
		ORDER BY ini_block ASC, end_block ASC
	`

	rows, err := s.pool.Query(ctx, query, string(chain), address, start, end)
	if err != nil {
		return nil, fmt.Errorf("get period records by block range: %w", err)
	}
	defer rows.Close()

	return scanPeriodRecords(rows)
}

// GetByTimeRange retrieves records with ini_timestamp >= start and end_timestamp <= end.
func (s *PeriodRecordStore) GetByTimeRange(ctx context.Context, chain domain.Chain, address string, start, end int64) ([]*domain.PeriodRecord, error) {
	query := `
		SELECT payload FROM period_records
		WHERE chain = $1 AND address = $2 AND ini_timestamp >= $3 AND end_timestamp <= $4
		ORDER BY ini_block ASC, end_block ASC
	`

	rows, err := s.pool.Query(ctx, query, string(chain), address, start, end)
	if err != nil {
		return nil, fmt.Errorf("get period records by time range: %w", err)
	}
	defer rows.Close()

	return scanPeriodRecords(rows)
}

// scanPeriodRecords decodes JSONB payloads through the value model parser.
func scanPeriodRecords(rows pgx.Rows) ([]*domain.PeriodRecord, error) {
	var result []*domain.PeriodRecord

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan period record: %w", err)
		}

		dec := json.NewDecoder(bytes.NewReader(payload))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil {
			return nil, fmt.Errorf("decode period record: %w", err)
		}

		rec, err := domain.PeriodRecordFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("parse period record: %w", err)
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period records: %w", err)
	}

	return result, nil
}
