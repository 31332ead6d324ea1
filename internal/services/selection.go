package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pulseprep/backend/internal/learning"
	"github.com/pulseprep/backend/internal/logger"
	"github.com/pulseprep/backend/internal/repos"
	"github.com/pulseprep/backend/internal/types"
)

// SelectionService decides which question a user sees next: a due review
// when one exists, otherwise the adaptive scorer's pick.
type SelectionService interface {
	SelectNextQuestion(ctx context.Context, userID uuid.UUID, excludedQuestionIDs []uuid.UUID) (*types.Question, error)
}

type selectionService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          learning.EngineConfig
	questionRepo repos.QuestionRepo
	attemptRepo  repos.AttemptRepo
	scheduleRepo repos.ReviewScheduleRepo
	weakness     WeaknessService

	// rng is injected so selection distributions are testable with a fixed
	// seed. rand.Rand is not goroutine safe, hence the mutex.
	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewSelectionService(db *gorm.DB, log *logger.Logger, cfg learning.EngineConfig, questionRepo repos.QuestionRepo, attemptRepo repos.AttemptRepo, scheduleRepo repos.ReviewScheduleRepo, weakness WeaknessService, rng *rand.Rand) SelectionService {
	serviceLog := log.With("service", "SelectionService")
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &selectionService{
		db:           db,
		log:          serviceLog,
		cfg:          cfg,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		scheduleRepo: scheduleRepo,
		weakness:     weakness,
		rng:          rng,
	}
}

func (s *selectionService) SelectNextQuestion(ctx context.Context, userID uuid.UUID, excludedQuestionIDs []uuid.UUID) (*types.Question, error) {
	if userID == uuid.Nil {
		return nil, ErrUnknownUser
	}
	now := time.Now().UTC()
	excluded := map[uuid.UUID]struct{}{}
	for _, id := range excludedQuestionIDs {
		excluded[id] = struct{}{}
	}

	// Review path first: the most overdue scheduled question wins outright.
	due, err := s.scheduleRepo.GetDueByUser(ctx, nil, userID, now)
	if err != nil {
		return nil, fmt.Errorf("load due reviews: %w", err)
	}
	for _, row := range due {
		if _, skip := excluded[row.QuestionID]; skip {
			continue
		}
		found, err := s.questionRepo.GetByIDs(ctx, nil, []uuid.UUID{row.QuestionID})
		if err != nil {
			return nil, fmt.Errorf("load due question: %w", err)
		}
		if len(found) == 0 {
			// Content row purged after scheduling; move to the next due.
			s.log.Warn("Due schedule points at missing question", "question_id", row.QuestionID)
			continue
		}
		s.log.Debug("Serving due review", "user_id", userID, "question_id", row.QuestionID, "next_due_at", row.NextDueAt)
		return found[0], nil
	}

	return s.selectAdaptive(ctx, userID, excluded, now)
}

// selectAdaptive is the scorer path of the engine: build the eligible pool,
// score it against the weakness profile, sample a winner.
func (s *selectionService) selectAdaptive(ctx context.Context, userID uuid.UUID, excluded map[uuid.UUID]struct{}, now time.Time) (*types.Question, error) {
	profile, err := s.weakness.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Due questions belong to the review path; excluding them here keeps
	// the two paths from double-serving.
	dueIDs, err := s.scheduleRepo.DueQuestionIDs(ctx, nil, userID, now)
	if err != nil {
		return nil, fmt.Errorf("load due ids: %w", err)
	}
	retentionStart := now.Add(-s.cfg.Scheduler.MasteredRetention())
	masteredIDs, err := s.scheduleRepo.MasteredQuestionIDs(ctx, nil, userID, retentionStart)
	if err != nil {
		return nil, fmt.Errorf("load mastered ids: %w", err)
	}

	excludeList := make([]uuid.UUID, 0, len(excluded)+len(dueIDs)+len(masteredIDs))
	for id := range excluded {
		excludeList = append(excludeList, id)
	}
	for _, id := range dueIDs {
		if _, seen := excluded[id]; !seen {
			excluded[id] = struct{}{}
			excludeList = append(excludeList, id)
		}
	}
	for _, id := range masteredIDs {
		if _, seen := excluded[id]; !seen {
			excluded[id] = struct{}{}
			excludeList = append(excludeList, id)
		}
	}

	pool, err := s.questionRepo.GetEligible(ctx, nil, repos.QuestionFilters{ExcludeIDs: excludeList})
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, ErrNoEligibleQuestions
	}

	exposures, err := s.attemptRepo.CountByQuestion(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load exposure counts: %w", err)
	}

	candidates := make([]learning.Candidate, 0, len(pool))
	for _, q := range pool {
		candidates = append(candidates, learning.Candidate{
			Question:  q,
			Exposures: exposures[q.ID],
		})
	}

	s.rngMu.Lock()
	question, relaxLevel, err := learning.PickCandidate(s.cfg.Selection, s.rng, profile, candidates)
	s.rngMu.Unlock()
	if err != nil {
		if errors.Is(err, learning.ErrNoCandidates) {
			return nil, ErrNoEligibleQuestions
		}
		return nil, err
	}
	if relaxLevel > learning.RelaxNone {
		s.log.Debug("Selection relaxed filters", "user_id", userID, "relax_level", relaxLevel)
	}
	s.log.Debug("Serving adaptive pick", "user_id", userID, "question_id", question.ID, "pool_size", len(pool))
	return question, nil
}
