package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pulseprep/backend/internal/logger"
	"github.com/pulseprep/backend/internal/types"
)

type ReviewScheduleRepo interface {
	// GetByUserAndQuestion returns nil, nil when no row exists yet.
	GetByUserAndQuestion(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (*types.ReviewSchedule, error)
	// GetDueByUser returns rows with next_due_at <= asOf, earliest first.
	GetDueByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time) ([]*types.ReviewSchedule, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ReviewSchedule, error)
	// Create inserts a fresh row; a lost creation race surfaces as
	// ErrDuplicateSchedule.
	Create(ctx context.Context, tx *gorm.DB, row *types.ReviewSchedule) error
	// UpdateVersioned persists the row only if its stored version still
	// matches row.Version, then bumps it; ErrVersionConflict otherwise.
	UpdateVersioned(ctx context.Context, tx *gorm.DB, row *types.ReviewSchedule) error
	// DueQuestionIDs lists question ids already owed to the review path.
	DueQuestionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time) ([]uuid.UUID, error)
	// MasteredQuestionIDs lists question ids still inside the mastered
	// retention window as of asOf.
	MasteredQuestionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]uuid.UUID, error)
	CountDueBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) (int64, error)
	GetStageCounts(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int, error)
	GetSourceCounts(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int, error)
}

type reviewScheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ReviewScheduleRepo {
	repoLog := baseLog.With("repo", "ReviewScheduleRepo")
	return &reviewScheduleRepo{db: db, log: repoLog}
}

func (r *reviewScheduleRepo) GetByUserAndQuestion(ctx context.Context, tx *gorm.DB, userID, questionID uuid.UUID) (*types.ReviewSchedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ReviewSchedule
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Limit(1).
		Find(&results).Error; err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func (r *reviewScheduleRepo) GetDueByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time) ([]*types.ReviewSchedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ReviewSchedule
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND next_due_at <= ?", userID, asOf).
		Order("next_due_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reviewScheduleRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.ReviewSchedule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.ReviewSchedule
	if userID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *reviewScheduleRepo) Create(ctx context.Context, tx *gorm.DB, row *types.ReviewSchedule) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if row == nil {
		return nil
	}

	if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSchedule
		}
		return err
	}
	return nil
}

func (r *reviewScheduleRepo) UpdateVersioned(ctx context.Context, tx *gorm.DB, row *types.ReviewSchedule) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	expected := row.Version
	result := transaction.WithContext(ctx).
		Model(&types.ReviewSchedule{}).
		Where("id = ? AND version = ?", row.ID, expected).
		Updates(map[string]interface{}{
			"stage":            row.Stage,
			"interval_tier":    row.IntervalTier,
			"times_reviewed":   row.TimesReviewed,
			"correct_streak":   row.CorrectStreak,
			"next_due_at":      row.NextDueAt,
			"last_reviewed_at": row.LastReviewedAt,
			"metadata":         row.Metadata,
			"version":          expected + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	row.Version = expected + 1
	return nil
}

func (r *reviewScheduleRepo) DueQuestionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, asOf time.Time) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewSchedule{}).
		Where("user_id = ? AND next_due_at <= ?", userID, asOf).
		Pluck("question_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *reviewScheduleRepo) MasteredQuestionIDs(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var ids []uuid.UUID
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewSchedule{}).
		Where("user_id = ? AND stage = ? AND last_reviewed_at >= ?", userID, "mastered", since).
		Pluck("question_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *reviewScheduleRepo) CountDueBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewSchedule{}).
		Where("user_id = ? AND next_due_at >= ? AND next_due_at < ?", userID, from, to).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *reviewScheduleRepo) GetStageCounts(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []struct {
		Stage string
		N     int
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewSchedule{}).
		Select("stage, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("stage").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, row := range rows {
		counts[row.Stage] = row.N
	}
	return counts, nil
}

func (r *reviewScheduleRepo) GetSourceCounts(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var rows []struct {
		Source string
		N      int
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ReviewSchedule{}).
		Select("question.source AS source, COUNT(*) AS n").
		Joins("JOIN question ON question.id = review_schedule.question_id").
		Where("review_schedule.user_id = ?", userID).
		Group("question.source").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, row := range rows {
		counts[row.Source] = row.N
	}
	return counts, nil
}
