package port

import (
	"context"

	"github.com/AurelieVidal/TempoAPI/internal/core/domain"
)

// QuestionRepository reads the security-question catalog.
type QuestionRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.SecurityQuestion, error)
	List(ctx context.Context) ([]domain.SecurityQuestion, error)
	Random(ctx context.Context, n int) ([]domain.SecurityQuestion, error)
}
