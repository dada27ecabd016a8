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

// QuestionRepository reads the security-question catalog from PostgreSQL.
type QuestionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewQuestionRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewQuestionRepository(exec pgExecutor) *QuestionRepository {
	return &QuestionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetByID returns a single catalog question.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*domain.SecurityQuestion, error) {
	stmt, args, err := r.builder.Select("id", "question").
		From("tempo.questions").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select question sql: %w", err)
	}

	var question domain.SecurityQuestion
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&question.ID, &question.Question); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan question: %w", err)
	}

	return &question, nil
}

// List returns the whole catalog ordered by id.
func (r *QuestionRepository) List(ctx context.Context) ([]domain.SecurityQuestion, error) {
	stmt, args, err := r.builder.Select("id", "question").
		From("tempo.questions").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list questions sql: %w", err)
	}

	return r.queryQuestions(ctx, stmt, args)
}

// Random returns n catalog questions in random order, for registration forms.
func (r *QuestionRepository) Random(ctx context.Context, n int) ([]domain.SecurityQuestion, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive")
	}

	stmt, args, err := r.builder.Select("id", "question").
		From("tempo.questions").
		OrderBy("random()").
		Limit(uint64(n)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build random questions sql: %w", err)
	}

	return r.queryQuestions(ctx, stmt, args)
}

func (r *QuestionRepository) queryQuestions(ctx context.Context, stmt string, args []any) ([]domain.SecurityQuestion, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.SecurityQuestion
	for rows.Next() {
		var question domain.SecurityQuestion
		if err := rows.Scan(&question.ID, &question.Question); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return questions, nil
}

var _ port.QuestionRepository = (*QuestionRepository)(nil)
