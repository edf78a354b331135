package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edujoy/auth-service/internal/core/domain"
	"github.com/edujoy/auth-service/internal/core/port"
)

var ledgerColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"user_agent",
	"ip",
	"created_at",
	"expires_at",
}

// RefreshTokenLedger implements port.RefreshTokenLedger on the
// refresh_tokens table.
type RefreshTokenLedger struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRefreshTokenLedger constructs a ledger backed by any executor that
// satisfies pgExecutor.
func NewRefreshTokenLedger(exec pgExecutor) *RefreshTokenLedger {
	repo := &RefreshTokenLedger{
		exec:    exec,
		builder: newBuilder(),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a ledger instance operating within the supplied transaction.
func (r *RefreshTokenLedger) WithTx(tx pgx.Tx) *RefreshTokenLedger {
	if tx == nil {
		return r
	}
	return &RefreshTokenLedger{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Append inserts a new ledger entry.
func (r *RefreshTokenLedger) Append(ctx context.Context, entry domain.RefreshTokenEntry) error {
	stmt, args, err := r.builder.Insert("refresh_tokens").
		Columns(ledgerColumns...).
		Values(
			entry.ID,
			entry.UserID,
			entry.TokenHash,
			entry.UserAgent,
			entry.IP,
			entry.CreatedAt,
			entry.ExpiresAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// ListByUser returns the user's ledger entries ordered oldest first, which is
// the eviction order.
func (r *RefreshTokenLedger) ListByUser(ctx context.Context, userID string) ([]domain.RefreshTokenEntry, error) {
	stmt, args, err := r.builder.
		Select(ledgerColumns...).
		From("refresh_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list refresh tokens sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list refresh tokens: %w", err)
	}
	defer rows.Close()

	var entries []domain.RefreshTokenEntry
	for rows.Next() {
		var entry domain.RefreshTokenEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.TokenHash,
			&entry.UserAgent,
			&entry.IP,
			&entry.CreatedAt,
			&entry.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("scan refresh token: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate refresh tokens: %w", err)
	}

	return entries, nil
}

// Contains reports whether the hash is currently present in the user's ledger.
func (r *RefreshTokenLedger) Contains(ctx context.Context, userID, tokenHash string) (bool, error) {
	stmt, args, err := r.builder.
		Select("1").
		From("refresh_tokens").
		Where(squirrel.Eq{"user_id": userID, "token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build contains refresh token sql: %w", err)
	}

	var one int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("contains refresh token: %w", err)
	}

	return true, nil
}

// Remove deletes a single entry by hash. Removing an absent hash is not an
// error; logout is idempotent.
func (r *RefreshTokenLedger) Remove(ctx context.Context, userID, tokenHash string) error {
	stmt, args, err := r.builder.Delete("refresh_tokens").
		Where(squirrel.Eq{"user_id": userID, "token_hash": tokenHash}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove refresh token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("remove refresh token: %w", err)
	}

	return nil
}

// RemoveAll clears the user's entire ledger and reports how many entries fell.
func (r *RefreshTokenLedger) RemoveAll(ctx context.Context, userID string) (int, error) {
	stmt, args, err := r.builder.Delete("refresh_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build remove all refresh tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("remove all refresh tokens: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// RemoveByIDs deletes the given entries. Used by cap eviction.
func (r *RefreshTokenLedger) RemoveByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	stmt, args, err := r.builder.Delete("refresh_tokens").
		Where(squirrel.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build remove refresh tokens by id sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("remove refresh tokens by id: %w", err)
	}

	return nil
}

// DeleteExpired sweeps entries whose expiry predates the cutoff.
func (r *RefreshTokenLedger) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	stmt, args, err := r.builder.Delete("refresh_tokens").
		Where(squirrel.LtOrEq{"expires_at": before}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete expired refresh tokens sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

var _ port.RefreshTokenLedger = (*RefreshTokenLedger)(nil)
