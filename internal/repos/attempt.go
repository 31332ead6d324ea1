package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pulseprep/backend/internal/logger"
	"github.com/pulseprep/backend/internal/types"
)

type AttemptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Attempt) ([]*types.Attempt, error)
	// GetByUserID returns attempts most recent first. limit <= 0 means all.
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Attempt, error)
	// CountByQuestion returns per-question exposure counts for one user.
	CountByQuestion(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[uuid.UUID]int, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	repoLog := baseLog.With("repo", "AttemptRepo")
	return &attemptRepo{db: db, log: repoLog}
}

func (r *attemptRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Attempt) ([]*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Attempt{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attemptRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Attempt, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Attempt
	if userID == uuid.Nil {
		return results, nil
	}

	query := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("answered_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *attemptRepo) CountByQuestion(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[uuid.UUID]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	counts := map[uuid.UUID]int{}
	if userID == uuid.Nil {
		return counts, nil
	}

	var rows []struct {
		QuestionID uuid.UUID
		N          int
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Attempt{}).
		Select("question_id, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("question_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.QuestionID] = row.N
	}
	return counts, nil
}
