package services

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pulseprep/backend/internal/learning"
	"github.com/pulseprep/backend/internal/logger"
	"github.com/pulseprep/backend/internal/repos"
	"github.com/pulseprep/backend/internal/types"
)

// testEnv wires the full service stack over an in-memory sqlite database.
type testEnv struct {
	db           *gorm.DB
	log          *logger.Logger
	cfg          learning.EngineConfig
	questionRepo repos.QuestionRepo
	attemptRepo  repos.AttemptRepo
	scheduleRepo repos.ReviewScheduleRepo
	weakness     WeaknessService
	review       ReviewService
	selection    SelectionService
}

func newTestEnv(t *testing.T, seed int64) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A second pooled connection would see its own empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&types.User{}, &types.Question{}, &types.Attempt{}, &types.ReviewSchedule{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	cfg := learning.DefaultEngineConfig()
	questionRepo := repos.NewQuestionRepo(db, log)
	attemptRepo := repos.NewAttemptRepo(db, log)
	scheduleRepo := repos.NewReviewScheduleRepo(db, log)

	weakness := NewWeaknessService(db, log, cfg.Profile, attemptRepo, questionRepo, NewMemoryProfileCache(time.Minute))
	review := NewReviewService(db, log, cfg.Scheduler, attemptRepo, questionRepo, scheduleRepo, weakness)
	selection := NewSelectionService(db, log, cfg, questionRepo, attemptRepo, scheduleRepo, weakness, rand.New(rand.NewSource(seed)))

	return &testEnv{
		db:           db,
		log:          log,
		cfg:          cfg,
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		scheduleRepo: scheduleRepo,
		weakness:     weakness,
		review:       review,
		selection:    selection,
	}
}

func (e *testEnv) seedUser(t *testing.T) uuid.UUID {
	t.Helper()
	user := &types.User{Email: uuid.New().String() + "@example.test", FirstName: "Test", LastName: "User"}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func (e *testEnv) seedQuestion(t *testing.T, specialty, source string, difficulty float64, recency float64) *types.Question {
	t.Helper()
	d := difficulty
	q := &types.Question{
		Prompt:        "A 54-year-old presents with...",
		Choices:       []byte(`[{"key":"a","text":"Option A"},{"key":"b","text":"Option B"}]`),
		CorrectKey:    "a",
		Specialty:     specialty,
		Source:        source,
		RecencyWeight: recency,
		Difficulty:    &d,
	}
	rows, err := e.questionRepo.Create(context.Background(), nil, []*types.Question{q})
	if err != nil {
		t.Fatalf("seed question: %v", err)
	}
	return rows[0]
}

// seedAttempt writes raw history without touching the scheduler.
func (e *testEnv) seedAttempt(t *testing.T, userID, questionID uuid.UUID, correct bool, at time.Time) {
	t.Helper()
	key := "b"
	if correct {
		key = "a"
	}
	_, err := e.attemptRepo.Create(context.Background(), nil, []*types.Attempt{{
		UserID:     userID,
		QuestionID: questionID,
		ChosenKey:  key,
		IsCorrect:  correct,
		AnsweredAt: at,
	}})
	if err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
}
