package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/khoa21023/salebot-telegram/services/api/internal/rowstore"
)

// ErrSchemaMissing is returned when the rows table does not exist yet.
var ErrSchemaMissing = errors.New("row store schema missing, run migrations")

// RowRepository stores sheet-like tables as JSONB rows. Like a spreadsheet
// it offers no conditional writes; callers serialise mutations themselves.
type RowRepository struct {
	pool *pgxpool.Pool
}

func NewRowRepository(pool *pgxpool.Pool) *RowRepository {
	return &RowRepository{pool: pool}
}

var _ rowstore.Store = (*RowRepository)(nil)

func (r *RowRepository) ListRows(ctx context.Context, table string, match rowstore.Match) ([]rowstore.Row, error) {
	const query = `
SELECT row_id, fields
FROM sheet_rows
WHERE table_name = $1 AND fields @> $2::jsonb
ORDER BY position`

	filter, err := encodeFields(map[string]string(match))
	if err != nil {
		return nil, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx, query, table, filter)
	if err != nil {
		return nil, wrapErr("list rows", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (rowstore.Row, error) {
		var (
			id     string
			fields rowstore.Fields
		)
		if err := row.Scan(&id, &fields); err != nil {
			return rowstore.Row{}, err
		}
		if fields == nil {
			fields = rowstore.Fields{}
		}
		return rowstore.Row{ID: id, Fields: fields}, nil
	})
	if err != nil {
		return nil, wrapErr("list rows", err)
	}
	return out, nil
}

func (r *RowRepository) UpdateRow(ctx context.Context, table, rowID string, patch rowstore.Fields) error {
	const stmt = `
UPDATE sheet_rows
SET fields = fields || $3::jsonb, updated_at = NOW()
WHERE table_name = $1 AND row_id = $2`

	body, err := encodeFields(patch)
	if err != nil {
		return err
	}
	tag, err := conn(ctx, r.pool).Exec(ctx, stmt, table, rowID, body)
	if err != nil {
		return wrapErr("update row", err)
	}
	if tag.RowsAffected() == 0 {
		return rowstore.ErrRowNotFound
	}
	return nil
}

// AppendRows inserts all records in one transaction so a failed append
// leaves no partial batch behind.
func (r *RowRepository) AppendRows(ctx context.Context, table string, records []rowstore.Fields) error {
	if len(records) == 0 {
		return nil
	}
	const stmt = `INSERT INTO sheet_rows (table_name, row_id, fields) VALUES ($1, $2, $3::jsonb)`

	batch := &pgx.Batch{}
	for _, rec := range records {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate row id: %w", err)
		}
		body, err := encodeFields(rec)
		if err != nil {
			return err
		}
		batch.Queue(stmt, table, id.String(), body)
	}

	return withTx(ctx, r.pool, func(ctx context.Context) error {
		if err := conn(ctx, r.pool).SendBatch(ctx, batch).Close(); err != nil {
			return wrapErr("append rows", err)
		}
		return nil
	})
}

func encodeFields(f map[string]string) (string, error) {
	if len(f) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(b), nil
}

func wrapErr(op string, err error) error {
	if isUndefinedTable(err) {
		return fmt.Errorf("%s: %w", op, ErrSchemaMissing)
	}
	return fmt.Errorf("%s: %w", op, err)
}
