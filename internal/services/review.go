package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pulseprep/backend/internal/learning"
	"github.com/pulseprep/backend/internal/logger"
	"github.com/pulseprep/backend/internal/repos"
	"github.com/pulseprep/backend/internal/types"
)

// Outcome is what the submission layer hands the scheduler after grading
// one attempt.
type Outcome struct {
	QuestionID       uuid.UUID
	ChosenKey        string
	IsCorrect        bool
	AnsweredAt       time.Time
	TimeSpentSeconds int
	Confidence       *int
}

// DueReview pairs a due schedule row with its question content.
type DueReview struct {
	Schedule *types.ReviewSchedule `json:"schedule"`
	Question *types.Question       `json:"question"`
}

// ReviewStats is the aggregate view over one user's schedule rows.
type ReviewStats struct {
	Total    int            `json:"total"`
	DueToday int            `json:"due_today"`
	ByStage  map[string]int `json:"by_stage"`
	BySource map[string]int `json:"by_source"`
}

// ReviewService is the spaced-repetition state machine over ReviewSchedule
// rows.
type ReviewService interface {
	// RecordOutcome applies one graded attempt. Each call is a distinct
	// review event; callers guarantee exactly-once invocation per attempt.
	RecordOutcome(ctx context.Context, userID uuid.UUID, outcome Outcome) (*types.ReviewSchedule, error)
	GetDueReviews(ctx context.Context, userID uuid.UUID, asOf time.Time) ([]*DueReview, error)
	GetReviewStats(ctx context.Context, userID uuid.UUID) (*ReviewStats, error)
}

type reviewService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          learning.SchedulerConfig
	attemptRepo  repos.AttemptRepo
	questionRepo repos.QuestionRepo
	scheduleRepo repos.ReviewScheduleRepo
	weakness     WeaknessService
}

func NewReviewService(db *gorm.DB, log *logger.Logger, cfg learning.SchedulerConfig, attemptRepo repos.AttemptRepo, questionRepo repos.QuestionRepo, scheduleRepo repos.ReviewScheduleRepo, weakness WeaknessService) ReviewService {
	serviceLog := log.With("service", "ReviewService")
	return &reviewService{
		db:           db,
		log:          serviceLog,
		cfg:          cfg,
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
		scheduleRepo: scheduleRepo,
		weakness:     weakness,
	}
}

func (s *reviewService) RecordOutcome(ctx context.Context, userID uuid.UUID, outcome Outcome) (*types.ReviewSchedule, error) {
	if userID == uuid.Nil {
		return nil, ErrUnknownUser
	}
	if outcome.QuestionID == uuid.Nil {
		return nil, fmt.Errorf("question id required")
	}
	answeredAt := outcome.AnsweredAt
	if answeredAt.IsZero() {
		answeredAt = time.Now().UTC()
	}

	var out *types.ReviewSchedule
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		attempt := &types.Attempt{
			UserID:           userID,
			QuestionID:       outcome.QuestionID,
			ChosenKey:        outcome.ChosenKey,
			IsCorrect:        outcome.IsCorrect,
			AnsweredAt:       answeredAt,
			TimeSpentSeconds: outcome.TimeSpentSeconds,
			Confidence:       outcome.Confidence,
		}
		if _, err := s.attemptRepo.Create(ctx, tx, []*types.Attempt{attempt}); err != nil {
			return fmt.Errorf("append attempt: %w", err)
		}

		row, err := s.scheduleRepo.GetByUserAndQuestion(ctx, tx, userID, outcome.QuestionID)
		if err != nil {
			return fmt.Errorf("load schedule: %w", err)
		}

		state := learning.ReviewState{
			Stage:        learning.StageNew,
			IntervalTier: s.cfg.FirstTier(),
		}
		if row != nil {
			state = learning.ReviewState{
				Stage:         learning.ParseStage(row.Stage),
				IntervalTier:  row.IntervalTier,
				CorrectStreak: row.CorrectStreak,
			}
		}
		result := learning.Transition(s.cfg, state, outcome.IsCorrect)
		metadata := transitionMetadata(state, result, outcome.IsCorrect, answeredAt)

		if row == nil {
			// First attempt on this question: the New-state entry path.
			row = &types.ReviewSchedule{
				UserID:         userID,
				QuestionID:     outcome.QuestionID,
				Stage:          string(result.Stage),
				IntervalTier:   result.IntervalTier,
				TimesReviewed:  1,
				CorrectStreak:  result.CorrectStreak,
				NextDueAt:      answeredAt.Add(result.DueIn),
				LastReviewedAt: &answeredAt,
				Metadata:       metadata,
			}
			if err := s.scheduleRepo.Create(ctx, tx, row); err != nil {
				if errors.Is(err, repos.ErrDuplicateSchedule) {
					return ErrScheduleConflict
				}
				return fmt.Errorf("create schedule: %w", err)
			}
			out = row
			return nil
		}

		row.Stage = string(result.Stage)
		row.IntervalTier = result.IntervalTier
		row.TimesReviewed++
		row.CorrectStreak = result.CorrectStreak
		row.NextDueAt = answeredAt.Add(result.DueIn)
		row.LastReviewedAt = &answeredAt
		row.Metadata = metadata
		if err := s.scheduleRepo.UpdateVersioned(ctx, tx, row); err != nil {
			if errors.Is(err, repos.ErrVersionConflict) {
				return ErrScheduleConflict
			}
			return fmt.Errorf("update schedule: %w", err)
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The profile is advisory, so invalidation stays outside the
	// transaction and failures only log.
	s.weakness.Invalidate(ctx, userID)

	s.log.Debug("Recorded review outcome",
		"user_id", userID,
		"question_id", outcome.QuestionID,
		"correct", outcome.IsCorrect,
		"stage", out.Stage,
		"interval_tier", out.IntervalTier,
		"next_due_at", out.NextDueAt,
	)
	return out, nil
}

func (s *reviewService) GetDueReviews(ctx context.Context, userID uuid.UUID, asOf time.Time) ([]*DueReview, error) {
	if userID == uuid.Nil {
		return nil, ErrUnknownUser
	}
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}

	rows, err := s.scheduleRepo.GetDueByUser(ctx, nil, userID, asOf)
	if err != nil {
		return nil, fmt.Errorf("load due reviews: %w", err)
	}
	if len(rows) == 0 {
		return []*DueReview{}, nil
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.QuestionID)
	}
	questionRows, err := s.questionRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("load due questions: %w", err)
	}
	byID := make(map[uuid.UUID]*types.Question, len(questionRows))
	for _, q := range questionRows {
		byID[q.ID] = q
	}

	// Preserve the repo's next_due_at ordering.
	out := make([]*DueReview, 0, len(rows))
	for _, row := range rows {
		out = append(out, &DueReview{Schedule: row, Question: byID[row.QuestionID]})
	}
	return out, nil
}

func (s *reviewService) GetReviewStats(ctx context.Context, userID uuid.UUID) (*ReviewStats, error) {
	if userID == uuid.Nil {
		return nil, ErrUnknownUser
	}

	byStage, err := s.scheduleRepo.GetStageCounts(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("stage counts: %w", err)
	}
	bySource, err := s.scheduleRepo.GetSourceCounts(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("source counts: %w", err)
	}

	now := time.Now().UTC()
	endOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
	dueToday, err := s.scheduleRepo.CountDueBetween(ctx, nil, userID, time.Time{}, endOfDay)
	if err != nil {
		return nil, fmt.Errorf("due count: %w", err)
	}

	total := 0
	for _, n := range byStage {
		total += n
	}
	return &ReviewStats{
		Total:    total,
		DueToday: int(dueToday),
		ByStage:  byStage,
		BySource: bySource,
	}, nil
}

func transitionMetadata(from learning.ReviewState, to learning.TransitionResult, correct bool, at time.Time) datatypes.JSON {
	raw, err := json.Marshal(map[string]interface{}{
		"last_transition": map[string]interface{}{
			"from_stage": string(from.Stage),
			"to_stage":   string(to.Stage),
			"from_tier":  from.IntervalTier,
			"to_tier":    to.IntervalTier,
			"correct":    correct,
			"at":         at.Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
