package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulseprep/backend/internal/types"
)

func TestSelectNextQuestionColdStart(t *testing.T) {
	env := newTestEnv(t, 11)
	ctx := context.Background()
	userID := env.seedUser(t)

	pool := make(map[uuid.UUID]bool, 10)
	for i := 0; i < 10; i++ {
		q := env.seedQuestion(t, "Cardiology", "usmle_2024", 0.5, 0.5)
		pool[q.ID] = true
	}

	q, err := env.selection.SelectNextQuestion(ctx, userID, nil)
	if err != nil {
		t.Fatalf("cold start selection: %v", err)
	}
	if !pool[q.ID] {
		t.Fatalf("selected question not from the seeded pool: %s", q.ID)
	}
}

func TestSelectNextQuestionUnknownUser(t *testing.T) {
	env := newTestEnv(t, 11)
	if _, err := env.selection.SelectNextQuestion(context.Background(), uuid.Nil, nil); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("want ErrUnknownUser got=%v", err)
	}
}

func TestSelectNextQuestionEmptyPool(t *testing.T) {
	env := newTestEnv(t, 11)
	userID := env.seedUser(t)
	if _, err := env.selection.SelectNextQuestion(context.Background(), userID, nil); !errors.Is(err, ErrNoEligibleQuestions) {
		t.Fatalf("want ErrNoEligibleQuestions got=%v", err)
	}
}

func TestSelectNextQuestionHonorsExclusions(t *testing.T) {
	env := newTestEnv(t, 11)
	ctx := context.Background()
	userID := env.seedUser(t)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, env.seedQuestion(t, "Cardiology", "usmle_2024", 0.5, 0.5).ID)
	}
	keep := ids[2]
	excluded := append(append([]uuid.UUID{}, ids[:2]...), ids[3:]...)

	for i := 0; i < 10; i++ {
		q, err := env.selection.SelectNextQuestion(ctx, userID, excluded)
		if err != nil {
			t.Fatalf("selection: %v", err)
		}
		if q.ID != keep {
			t.Fatalf("excluded question served: got=%s want=%s", q.ID, keep)
		}
	}

	// Excluding the whole pool exhausts it.
	if _, err := env.selection.SelectNextQuestion(ctx, userID, ids); !errors.Is(err, ErrNoEligibleQuestions) {
		t.Fatalf("want ErrNoEligibleQuestions got=%v", err)
	}
}

func TestSelectNextQuestionServesDueReviewFirst(t *testing.T) {
	env := newTestEnv(t, 11)
	ctx := context.Background()
	userID := env.seedUser(t)
	now := time.Now().UTC()

	fresh := env.seedQuestion(t, "Cardiology", "usmle_2024", 0.5, 0.5)
	overdue := env.seedQuestion(t, "Neurology", "usmle_2023", 0.5, 0.5)
	moreOverdue := env.seedQuestion(t, "Dermatology", "usmle_2023", 0.5, 0.5)

	for q, due := range map[*types.Question]time.Time{
		overdue:     now.Add(-time.Hour),
		moreOverdue: now.Add(-48 * time.Hour),
	} {
		err := env.scheduleRepo.Create(ctx, nil, &types.ReviewSchedule{
			UserID:       userID,
			QuestionID:   q.ID,
			Stage:        "learning",
			IntervalTier: "1d",
			NextDueAt:    due,
		})
		if err != nil {
			t.Fatalf("seed schedule: %v", err)
		}
	}

	q, err := env.selection.SelectNextQuestion(ctx, userID, nil)
	if err != nil {
		t.Fatalf("selection: %v", err)
	}
	if q.ID != moreOverdue.ID {
		t.Fatalf("most overdue review must win: got=%s want=%s", q.ID, moreOverdue.ID)
	}

	// With both due questions excluded the engine falls through to the
	// adaptive path instead of failing.
	q, err = env.selection.SelectNextQuestion(ctx, userID, []uuid.UUID{overdue.ID, moreOverdue.ID})
	if err != nil {
		t.Fatalf("selection with exclusions: %v", err)
	}
	if q.ID != fresh.ID {
		t.Fatalf("adaptive fallback: got=%s want=%s", q.ID, fresh.ID)
	}
}

func TestSelectNextQuestionSkipsRecentlyMastered(t *testing.T) {
	env := newTestEnv(t, 11)
	ctx := context.Background()
	userID := env.seedUser(t)
	now := time.Now().UTC()

	mastered := env.seedQuestion(t, "Cardiology", "usmle_2024", 0.5, 0.5)
	lastReviewed := now.Add(-24 * time.Hour)
	err := env.scheduleRepo.Create(ctx, nil, &types.ReviewSchedule{
		UserID:         userID,
		QuestionID:     mastered.ID,
		Stage:          "mastered",
		IntervalTier:   "60d",
		NextDueAt:      now.Add(89 * 24 * time.Hour),
		LastReviewedAt: &lastReviewed,
	})
	if err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	// The mastered question is the only content: inside its retention
	// window nothing is eligible.
	if _, err := env.selection.SelectNextQuestion(ctx, userID, nil); !errors.Is(err, ErrNoEligibleQuestions) {
		t.Fatalf("want ErrNoEligibleQuestions got=%v", err)
	}

	// Fresh content is still served alongside it.
	fresh := env.seedQuestion(t, "Neurology", "usmle_2024", 0.5, 0.5)
	q, err := env.selection.SelectNextQuestion(ctx, userID, nil)
	if err != nil {
		t.Fatalf("selection: %v", err)
	}
	if q.ID != fresh.ID {
		t.Fatalf("got=%s want=%s", q.ID, fresh.ID)
	}
}

// A user who keeps missing one specialty should be steered toward it: with a
// weak list present and in-band candidates available, the strict filter level
// only surfaces weak-specialty material.
func TestSelectNextQuestionTargetsWeakSpecialty(t *testing.T) {
	env := newTestEnv(t, 42)
	ctx := context.Background()
	userID := env.seedUser(t)
	now := time.Now().UTC()

	neuroSeen := env.seedQuestion(t, "Neurology", "usmle_2023", 0.5, 0.5)
	cardioSeen := env.seedQuestion(t, "Cardiology", "usmle_2024", 0.5, 0.5)

	// Six misses in Neurology, six hits in Cardiology. Rolling accuracy 0.5
	// puts the difficulty target mid-range, so 0.5-difficulty material stays
	// in band.
	for i := 0; i < 6; i++ {
		env.seedAttempt(t, userID, neuroSeen.ID, false, now.Add(-time.Duration(i+1)*time.Minute))
		env.seedAttempt(t, userID, cardioSeen.ID, true, now.Add(-time.Duration(i+1)*time.Minute))
	}

	var neuroPool, cardioPool []uuid.UUID
	for i := 0; i < 5; i++ {
		neuroPool = append(neuroPool, env.seedQuestion(t, "Neurology", "usmle_2024", 0.5, 0.5).ID)
		cardioPool = append(cardioPool, env.seedQuestion(t, "Cardiology", "usmle_2024", 0.5, 0.5).ID)
	}
	isNeuro := map[uuid.UUID]bool{neuroSeen.ID: true}
	for _, id := range neuroPool {
		isNeuro[id] = true
	}

	for i := 0; i < 25; i++ {
		q, err := env.selection.SelectNextQuestion(ctx, userID, nil)
		if err != nil {
			t.Fatalf("selection #%d: %v", i, err)
		}
		if !isNeuro[q.ID] {
			t.Fatalf("selection #%d served strong specialty %q", i, q.Specialty)
		}
	}
}
