package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
	"github.com/AurelieVidal/TempoAPI/internal/core/port"
	"github.com/AurelieVidal/TempoAPI/internal/repository"
)

// banThreshold is the number of consecutive failed validations preceding the
// current one that escalates to an account ban.
const banThreshold = 3

// ConnectionRepository implements port.ConnectionRepository backed by PostgreSQL.
type ConnectionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewConnectionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewConnectionRepository(exec pgExecutor) *ConnectionRepository {
	return &ConnectionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *ConnectionRepository) WithTx(tx pgx.Tx) *ConnectionRepository {
	if tx == nil {
		return r
	}
	return &ConnectionRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Append inserts a new ledger event and returns it with its id set.
func (r *ConnectionRepository) Append(ctx context.Context, event domain.ConnectionEvent) (*domain.ConnectionEvent, error) {
	output, err := marshalPayload(event.Output)
	if err != nil {
		return nil, fmt.Errorf("prepare challenge payload: %w", err)
	}

	stmt, args, err := r.builder.Insert("tempo.connections").
		Columns("account_id", "date", "device", "ip_address", "status", "output").
		Values(event.AccountID, event.Date, event.Device, event.IPAddress, string(event.Status), output).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert connection sql: %w", err)
	}

	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&event.ID); err != nil {
		return nil, fmt.Errorf("insert connection: %w", err)
	}

	return &event, nil
}

// ListRecent returns up to limit events for the account ordered by date descending.
func (r *ConnectionRepository) ListRecent(ctx context.Context, accountID string, limit int) ([]domain.ConnectionEvent, error) {
	if limit <= 0 {
		limit = 5
	}

	stmt, args, err := r.builder.Select("id", "account_id", "date", "device", "ip_address", "status", "output").
		From("tempo.connections").
		Where(squirrel.Eq{"account_id": accountID}).
		OrderBy("date DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list connections sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query connections: %w", err)
	}
	defer rows.Close()

	var events []domain.ConnectionEvent
	for rows.Next() {
		event, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}

	return events, nil
}

// GetChallenge loads an event restricted to the pending challenge statuses.
func (r *ConnectionRepository) GetChallenge(ctx context.Context, id int64) (*domain.ConnectionEvent, error) {
	stmt, args, err := r.builder.Select("id", "account_id", "date", "device", "ip_address", "status", "output").
		From("tempo.connections").
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": []string{
			string(domain.ConnectionSuspicious),
			string(domain.ConnectionAskForgottenPassword),
		}}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select challenge sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	event, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return event, nil
}

// Resolve updates a pending event's status in place. Terminal events are
// never touched; resolving one reports ErrNotFound.
func (r *ConnectionRepository) Resolve(ctx context.Context, id int64, status domain.ConnectionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid connection status %q", status)
	}

	stmt, args, err := r.builder.Update("tempo.connections").
		Set("status", string(status)).
		Where(squirrel.Eq{"id": id}).
		Where(squirrel.Eq{"status": []string{
			string(domain.ConnectionSuspicious),
			string(domain.ConnectionAskForgottenPassword),
		}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build resolve connection sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("resolve connection: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RecordFailedValidation appends a VALIDATION_FAILED event and escalates to a
// ban when the three events preceding it are all VALIDATION_FAILED. The
// account row is locked first so two concurrent failures cannot both read a
// pre-escalation count and neither ban.
func (r *ConnectionRepository) RecordFailedValidation(ctx context.Context, accountID string, event domain.ConnectionEvent) (bool, error) {
	tx, err := beginTx(ctx, r.exec)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	scoped := r.WithTx(tx)

	lockStmt, lockArgs, err := scoped.builder.Select("id").
		From("tempo.accounts").
		Where(squirrel.Eq{"id": accountID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build lock account sql: %w", err)
	}
	var lockedID string
	if err := scoped.exec.QueryRow(ctx, lockStmt, lockArgs...).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return false, repository.ErrNotFound
		}
		return false, fmt.Errorf("lock account: %w", err)
	}

	inserted, err := scoped.Append(ctx, event)
	if err != nil {
		return false, err
	}

	priorStmt, priorArgs, err := scoped.builder.Select("status").
		From("tempo.connections").
		Where(squirrel.Eq{"account_id": accountID}).
		Where(squirrel.NotEq{"id": inserted.ID}).
		OrderBy("date DESC", "id DESC").
		Limit(banThreshold).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build prior failures sql: %w", err)
	}

	rows, err := scoped.exec.Query(ctx, priorStmt, priorArgs...)
	if err != nil {
		return false, fmt.Errorf("query prior failures: %w", err)
	}

	failures := 0
	total := 0
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			rows.Close()
			return false, fmt.Errorf("scan prior failure: %w", err)
		}
		total++
		if domain.ConnectionStatus(status) == domain.ConnectionValidationFailed {
			failures++
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate prior failures: %w", err)
	}

	banned := total == banThreshold && failures == banThreshold
	if banned {
		banStmt, banArgs, err := scoped.builder.Update("tempo.accounts").
			Set("status", string(domain.AccountStatusBanned)).
			Where(squirrel.Eq{"id": accountID}).
			ToSql()
		if err != nil {
			return false, fmt.Errorf("build ban account sql: %w", err)
		}
		if _, err := scoped.exec.Exec(ctx, banStmt, banArgs...); err != nil {
			return false, fmt.Errorf("ban account: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit failed validation: %w", err)
	}

	return banned, nil
}

func scanConnection(row pgx.Row) (*domain.ConnectionEvent, error) {
	var (
		event  domain.ConnectionEvent
		status string
		output []byte
	)
	if err := row.Scan(
		&event.ID,
		&event.AccountID,
		&event.Date,
		&event.Device,
		&event.IPAddress,
		&status,
		&output,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan connection: %w", err)
	}

	event.Status = domain.ConnectionStatus(status)
	if len(output) > 0 {
		var payload domain.ChallengePayload
		if err := json.Unmarshal(output, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal challenge payload: %w", err)
		}
		event.Output = &payload
	}

	return &event, nil
}

func marshalPayload(payload *domain.ChallengePayload) ([]byte, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

var _ port.ConnectionRepository = (*ConnectionRepository)(nil)
