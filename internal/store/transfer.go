package store

import (
	"context"
	"fmt"
	"time"

	"transfertrack/internal/utils"
	"transfertrack/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transferTableName = "transfertrack.transfers"

var transferColumns = utils.StructTagValues(types.Transfer{})

// TransferFilter narrows a list query. An empty UserID means no participant
// restriction (admin view); a nil Archived means no archive predicate.
type TransferFilter struct {
	UserID   string
	Archived *bool
}

type TransferRepository struct {
	pool *pgxpool.Pool
}

func NewTransferRepository(pool *pgxpool.Pool) *TransferRepository {
	return &TransferRepository{pool: pool}
}

// joinedColumns aliases the transfer columns through t and both user joins so
// pgxscan can populate the nested from_user/to_user structs.
func joinedColumns() []string {
	cols := make([]string, 0, len(transferColumns)+6)
	for _, c := range transferColumns {
		cols = append(cols, fmt.Sprintf("t.%s", c))
	}

	cols = append(cols,
		`fu.id AS "from_user.id"`,
		`fu.username AS "from_user.username"`,
		`fu.location AS "from_user.location"`,
		`tu.id AS "to_user.id"`,
		`tu.username AS "to_user.username"`,
		`tu.location AS "to_user.location"`,
	)

	return cols
}

func joinedQuery() sq.SelectBuilder {
	return psql().
		Select(joinedColumns()...).
		From(transferTableName + " t").
		Join(userTableName + " fu ON fu.id = t.from_user_id").
		Join(userTableName + " tu ON tu.id = t.to_user_id")
}

func (r *TransferRepository) Create(ctx context.Context, transfer *types.Transfer) error {
	query, args, err := psql().
		Insert(transferTableName).
		SetMap(utils.StructToMap(transfer)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate create transfer query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to create transfer: %w", err)
	}

	return nil
}

// Transfer returns a single transfer joined with both endpoint users.
func (r *TransferRepository) Transfer(ctx context.Context, transferID string) (*types.TransferRow, error) {
	query, args, err := joinedQuery().
		Where(sq.Eq{"t.id": transferID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transfer query: %w", err)
	}

	var row types.TransferRow
	err = pgxscan.Get(ctx, r.pool, &row, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrTransferNotFound
		}
		return nil, fmt.Errorf("failed to fetch transfer: %w", err)
	}

	return &row, nil
}

// TransferByPath looks a transfer up by its stored object key. Used by the
// upload-serving handler to gate blob access on transfer participation.
func (r *TransferRepository) TransferByPath(ctx context.Context, pdfPath string) (*types.TransferRow, error) {
	query, args, err := joinedQuery().
		Where(sq.Eq{"t.pdf_path": pdfPath}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transfer-by-path query: %w", err)
	}

	var row types.TransferRow
	err = pgxscan.Get(ctx, r.pool, &row, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrTransferNotFound
		}
		return nil, fmt.Errorf("failed to fetch transfer by path: %w", err)
	}

	return &row, nil
}

func (r *TransferRepository) List(ctx context.Context, filter TransferFilter) ([]types.TransferRow, error) {
	builder := joinedQuery().OrderBy("t.created_at desc")

	if filter.UserID != "" {
		builder = builder.Where(sq.Or{
			sq.Eq{"t.from_user_id": filter.UserID},
			sq.Eq{"t.to_user_id": filter.UserID},
		})
	}

	if filter.Archived != nil {
		builder = builder.Where(sq.Eq{"t.archived": *filter.Archived})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate list transfers query: %w", err)
	}

	var rows = make([]types.TransferRow, 0)
	err = pgxscan.Select(ctx, r.pool, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}

	return rows, nil
}

// Update persists the full transfer row in a single statement, so a
// read-modify-write cycle touches the database exactly once on write.
func (r *TransferRepository) Update(ctx context.Context, transfer *types.Transfer) error {
	query, args, err := psql().
		Update(transferTableName).
		SetMap(utils.StructToMap(transfer)).
		Where(sq.Eq{"id": transfer.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update transfer query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	return nil
}

// MarkViewed flips the viewed flag without rewriting the rest of the row.
func (r *TransferRepository) MarkViewed(ctx context.Context, transferID string, at time.Time) error {
	query, args, err := psql().
		Update(transferTableName).
		Set("viewed_by_recipient", true).
		Set("viewed_by_recipient_at", at).
		Where(sq.Eq{"id": transferID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate mark-viewed query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark transfer viewed: %w", err)
	}

	return nil
}

func (r *TransferRepository) Delete(ctx context.Context, transferID string) error {
	query, args, err := psql().
		Delete(transferTableName).
		Where(sq.Eq{"id": transferID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete transfer query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}

	return nil
}
