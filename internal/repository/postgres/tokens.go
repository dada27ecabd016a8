package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/repository"
)

// RefreshTokenRepository implements port.RefreshTokenRepository backed by PostgreSQL.
type RefreshTokenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRefreshTokenRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewRefreshTokenRepository(exec pgExecutor) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *RefreshTokenRepository) WithTx(tx pgx.Tx) *RefreshTokenRepository {
	if tx == nil {
		return r
	}
	return &RefreshTokenRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Rotate deactivates every active token of the account and inserts the
// supplied token as the new active one, in a single transaction. This keeps
// the at-most-one-active-token invariant under concurrent issuance.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, token domain.RefreshToken) error {
	tx, err := beginTx(ctx, r.exec)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	scoped := r.WithTx(tx)

	deactivate, deactivateArgs, err := scoped.builder.Update("tempo.refresh_tokens").
		Set("is_active", false).
		Where(squirrel.Eq{"account_id": token.AccountID}).
		Where(squirrel.Eq{"is_active": true}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate tokens sql: %w", err)
	}
	if _, err := scoped.exec.Exec(ctx, deactivate, deactivateArgs...); err != nil {
		return fmt.Errorf("deactivate tokens: %w", err)
	}

	insert, insertArgs, err := scoped.builder.Insert("tempo.refresh_tokens").
		Columns("id", "account_id", "value", "expiration_date", "is_active").
		Values(token.ID, token.AccountID, token.Value, token.ExpirationDate, true).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}
	if _, err := scoped.exec.Exec(ctx, insert, insertArgs...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit rotate token: %w", err)
	}

	return nil
}

// GetByValue retrieves a token by its opaque value.
func (r *RefreshTokenRepository) GetByValue(ctx context.Context, value string) (*domain.RefreshToken, error) {
	stmt, args, err := r.builder.Select("id", "account_id", "value", "expiration_date", "is_active").
		From("tempo.refresh_tokens").
		Where(squirrel.Eq{"value": value}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select token sql: %w", err)
	}

	var token domain.RefreshToken
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&token.ID,
		&token.AccountID,
		&token.Value,
		&token.ExpirationDate,
		&token.IsActive,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan token: %w", err)
	}

	return &token, nil
}

// Deactivate marks a token inactive. Deactivating an already-inactive or
// missing token is not an error.
func (r *RefreshTokenRepository) Deactivate(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("tempo.refresh_tokens").
		Set("is_active", false).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("deactivate token: %w", err)
	}

	return nil
}

var _ port.RefreshTokenRepository = (*RefreshTokenRepository)(nil)
