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

// AccountRepository implements port.AccountRepository backed by PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance executing within the provided transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{
		exec:    tx,
		builder: r.builder,
	}
}

// Create persists a new account together with its security-question pairs in
// a single transaction. The question set is non-empty by construction.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	if len(account.Questions) == 0 {
		return domain.ErrEmptyQuestionSet
	}

	devices, err := marshalStrings(account.Devices)
	if err != nil {
		return fmt.Errorf("prepare devices: %w", err)
	}
	roles, err := marshalStrings(account.Roles)
	if err != nil {
		return fmt.Errorf("prepare roles: %w", err)
	}

	tx, err := beginTx(ctx, r.exec)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	scoped := r.WithTx(tx)

	stmt, args, err := scoped.builder.Insert("tempo.accounts").
		Columns("id", "username", "email", "phone", "password_digest", "salt", "devices", "status", "roles").
		Values(account.ID, account.Username, account.Email, account.Phone,
			account.PasswordDigest, account.Salt, devices, string(account.Status), roles).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}
	if _, err := scoped.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	for _, pair := range account.Questions {
		if err := scoped.AddQuestion(ctx, account.ID, pair.QuestionID, pair.AnswerDigest); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create account: %w", err)
	}

	return nil
}

// GetByID loads an account and its question set.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByUsername loads an account and its question set.
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, squirrel.Eq{"username": username})
}

func (r *AccountRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Account, error) {
	stmt, args, err := r.builder.Select(
		"id", "username", "email", "phone", "password_digest", "salt", "devices", "status", "roles",
	).
		From("tempo.accounts").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		account domain.Account
		phone   sql.NullString
		devices []byte
		status  string
		roles   []byte
	)

	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&phone,
		&account.PasswordDigest,
		&account.Salt,
		&devices,
		&status,
		&roles,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	if phone.Valid {
		account.Phone = phone.String
	}
	account.Status = domain.AccountStatus(status)
	if account.Devices, err = unmarshalStrings(devices); err != nil {
		return nil, fmt.Errorf("unmarshal devices: %w", err)
	}
	if account.Roles, err = unmarshalStrings(roles); err != nil {
		return nil, fmt.Errorf("unmarshal roles: %w", err)
	}

	questions, err := r.questionsFor(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Questions = questions

	return &account, nil
}

func (r *AccountRepository) questionsFor(ctx context.Context, accountID string) (domain.QuestionSet, error) {
	stmt, args, err := r.builder.Select("aq.question_id", "q.question", "aq.answer_digest").
		From("tempo.account_questions aq").
		Join("tempo.questions q ON q.id = aq.question_id").
		Where(squirrel.Eq{"aq.account_id": accountID}).
		OrderBy("aq.question_id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account questions sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query account questions: %w", err)
	}
	defer rows.Close()

	var pairs domain.QuestionSet
	for rows.Next() {
		var pair domain.AccountQuestion
		if err := rows.Scan(&pair.QuestionID, &pair.Question, &pair.AnswerDigest); err != nil {
			return nil, fmt.Errorf("scan account question: %w", err)
		}
		pairs = append(pairs, pair)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account questions: %w", err)
	}

	return pairs, nil
}

// UpdateStatus moves the account to a new lifecycle status.
func (r *AccountRepository) UpdateStatus(ctx context.Context, id string, status domain.AccountStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid account status %q", status)
	}

	stmt, args, err := r.builder.Update("tempo.accounts").
		Set("status", string(status)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update account status sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdateDevices overwrites the known-device list.
func (r *AccountRepository) UpdateDevices(ctx context.Context, id string, devices []string) error {
	payload, err := marshalStrings(devices)
	if err != nil {
		return fmt.Errorf("prepare devices: %w", err)
	}

	stmt, args, err := r.builder.Update("tempo.accounts").
		Set("devices", payload).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update devices sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update devices: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// UpdatePassword stores a fresh digest and salt pair.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordDigest, salt string) error {
	stmt, args, err := r.builder.Update("tempo.accounts").
		Set("password_digest", passwordDigest).
		Set("salt", salt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// AddQuestion registers one security-question answer digest for the account.
func (r *AccountRepository) AddQuestion(ctx context.Context, accountID string, questionID int64, answerDigest string) error {
	stmt, args, err := r.builder.Insert("tempo.account_questions").
		Columns("account_id", "question_id", "answer_digest").
		Values(accountID, questionID, answerDigest).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account question sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account question: %w", err)
	}

	return nil
}

// List returns every account without question sets loaded.
func (r *AccountRepository) List(ctx context.Context) ([]domain.Account, error) {
	stmt, args, err := r.builder.Select(
		"id", "username", "email", "phone", "password_digest", "salt", "devices", "status", "roles",
	).
		From("tempo.accounts").
		OrderBy("username ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		var (
			account domain.Account
			phone   sql.NullString
			devices []byte
			status  string
			roles   []byte
		)
		if err := rows.Scan(
			&account.ID,
			&account.Username,
			&account.Email,
			&phone,
			&account.PasswordDigest,
			&account.Salt,
			&devices,
			&status,
			&roles,
		); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		if phone.Valid {
			account.Phone = phone.String
		}
		account.Status = domain.AccountStatus(status)
		if account.Devices, err = unmarshalStrings(devices); err != nil {
			return nil, fmt.Errorf("unmarshal devices: %w", err)
		}
		if account.Roles, err = unmarshalStrings(roles); err != nil {
			return nil, fmt.Errorf("unmarshal roles: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func marshalStrings(values []string) ([]byte, error) {
	if values == nil {
		values = []string{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func unmarshalStrings(payload []byte) ([]string, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(payload, &values); err != nil {
		return nil, err
	}
	return values, nil
}

var _ port.AccountRepository = (*AccountRepository)(nil)
