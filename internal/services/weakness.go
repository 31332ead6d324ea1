package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	redisclient "github.com/pulseprep/backend/internal/clients/redis"
	"github.com/pulseprep/backend/internal/learning"
	"github.com/pulseprep/backend/internal/logger"
	"github.com/pulseprep/backend/internal/repos"
	"github.com/pulseprep/backend/internal/types"
)

// WeaknessService owns the derived weakness profile: compute from history,
// cache, invalidate when a new attempt lands.
type WeaknessService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*learning.WeaknessProfile, error)
	Invalidate(ctx context.Context, userID uuid.UUID)
}

type weaknessService struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          learning.ProfileConfig
	attemptRepo  repos.AttemptRepo
	questionRepo repos.QuestionRepo
	cache        redisclient.ProfileCache
	group        singleflight.Group
}

func NewWeaknessService(db *gorm.DB, log *logger.Logger, cfg learning.ProfileConfig, attemptRepo repos.AttemptRepo, questionRepo repos.QuestionRepo, cache redisclient.ProfileCache) WeaknessService {
	serviceLog := log.With("service", "WeaknessService")
	return &weaknessService{
		db:           db,
		log:          serviceLog,
		cfg:          cfg,
		attemptRepo:  attemptRepo,
		questionRepo: questionRepo,
		cache:        cache,
	}
}

func (s *weaknessService) GetProfile(ctx context.Context, userID uuid.UUID) (*learning.WeaknessProfile, error) {
	if userID == uuid.Nil {
		return nil, ErrUnknownUser
	}

	if cached, ok, err := s.cache.Get(ctx, userID); err != nil {
		s.log.Warn("Profile cache read failed, recomputing", "user_id", userID, "error", err)
	} else if ok {
		return cached, nil
	}

	// Concurrent requests for one user share a single recompute.
	result, err, _ := s.group.Do(userID.String(), func() (interface{}, error) {
		return s.compute(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*learning.WeaknessProfile), nil
}

func (s *weaknessService) compute(ctx context.Context, userID uuid.UUID) (*learning.WeaknessProfile, error) {
	attempts, err := s.attemptRepo.GetByUserID(ctx, nil, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}

	idSet := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(attempts))
	for _, a := range attempts {
		if _, seen := idSet[a.QuestionID]; seen {
			continue
		}
		idSet[a.QuestionID] = struct{}{}
		ids = append(ids, a.QuestionID)
	}
	questionRows, err := s.questionRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	questions := make(map[uuid.UUID]*types.Question, len(questionRows))
	for _, q := range questionRows {
		questions[q.ID] = q
	}

	profile := learning.ComputeProfile(s.cfg, userID, attempts, questions, time.Now().UTC())

	if err := s.cache.Set(ctx, userID, profile); err != nil {
		s.log.Warn("Profile cache write failed", "user_id", userID, "error", err)
	}
	return profile, nil
}

func (s *weaknessService) Invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("Profile cache invalidation failed", "user_id", userID, "error", err)
	}
}
