package learning

import (
	"testing"
	"time"
)

func schedulerConfig() SchedulerConfig {
	return DefaultEngineConfig().Scheduler
}

func TestTransitionFirstCorrectEntersLadderAtShortestTier(t *testing.T) {
	cfg := schedulerConfig()
	got := Transition(cfg, ReviewState{Stage: StageNew, IntervalTier: cfg.FirstTier()}, true)

	if got.Stage != StageLearning {
		t.Fatalf("stage: want=%q got=%q", StageLearning, got.Stage)
	}
	if got.IntervalTier != "1d" {
		t.Fatalf("tier: want=%q got=%q", "1d", got.IntervalTier)
	}
	if got.CorrectStreak != 1 {
		t.Fatalf("streak: want=1 got=%d", got.CorrectStreak)
	}
	if got.DueIn != 24*time.Hour {
		t.Fatalf("due in: want=%v got=%v", 24*time.Hour, got.DueIn)
	}
}

func TestTransitionIncorrectResetsFromEveryStage(t *testing.T) {
	cfg := schedulerConfig()
	starts := []ReviewState{
		{Stage: StageNew, IntervalTier: "1d", CorrectStreak: 0},
		{Stage: StageLearning, IntervalTier: "7d", CorrectStreak: 3},
		{Stage: StageReview, IntervalTier: "14d", CorrectStreak: 5},
		{Stage: StageMastered, IntervalTier: "60d", CorrectStreak: 9},
	}
	for _, start := range starts {
		got := Transition(cfg, start, false)
		if got.Stage != StageLearning {
			t.Fatalf("from %q stage: want=%q got=%q", start.Stage, StageLearning, got.Stage)
		}
		if got.IntervalTier != "1d" {
			t.Fatalf("from %q tier: want=%q got=%q", start.Stage, "1d", got.IntervalTier)
		}
		if got.CorrectStreak != 0 {
			t.Fatalf("from %q streak: want=0 got=%d", start.Stage, got.CorrectStreak)
		}
		if got.DueIn != 24*time.Hour {
			t.Fatalf("from %q due in: want=%v got=%v", start.Stage, 24*time.Hour, got.DueIn)
		}
	}
}

func TestTransitionPromotesLearningToReviewAtMinStreak(t *testing.T) {
	cfg := schedulerConfig()

	state := ReviewState{Stage: StageLearning, IntervalTier: "1d", CorrectStreak: 0}
	got := Transition(cfg, state, true)
	if got.Stage != StageLearning {
		t.Fatalf("streak below minimum should stay Learning, got %q", got.Stage)
	}
	if got.IntervalTier != "3d" {
		t.Fatalf("tier should advance one rung: want=%q got=%q", "3d", got.IntervalTier)
	}

	state = ReviewState{Stage: StageLearning, IntervalTier: "3d", CorrectStreak: 1}
	got = Transition(cfg, state, true)
	if got.Stage != StageReview {
		t.Fatalf("streak at minimum should promote to Review, got %q", got.Stage)
	}
	if got.IntervalTier != "7d" {
		t.Fatalf("tier: want=%q got=%q", "7d", got.IntervalTier)
	}
}

func TestTransitionPromotesReviewToMasteredAtLastTier(t *testing.T) {
	cfg := schedulerConfig()

	// Not yet at the longest tier: advance, no promotion.
	got := Transition(cfg, ReviewState{Stage: StageReview, IntervalTier: "30d", CorrectStreak: 6}, true)
	if got.Stage != StageReview {
		t.Fatalf("stage: want=%q got=%q", StageReview, got.Stage)
	}
	if got.IntervalTier != "60d" {
		t.Fatalf("tier: want=%q got=%q", "60d", got.IntervalTier)
	}

	// Longest tier with enough streak: promote with the long interval.
	got = Transition(cfg, ReviewState{Stage: StageReview, IntervalTier: "60d", CorrectStreak: 7}, true)
	if got.Stage != StageMastered {
		t.Fatalf("stage: want=%q got=%q", StageMastered, got.Stage)
	}
	if got.DueIn != 90*24*time.Hour {
		t.Fatalf("due in: want=%v got=%v", 90*24*time.Hour, got.DueIn)
	}
}

func TestTransitionMasteredStaysMasteredOnCorrect(t *testing.T) {
	cfg := schedulerConfig()
	got := Transition(cfg, ReviewState{Stage: StageMastered, IntervalTier: "60d", CorrectStreak: 9}, true)
	if got.Stage != StageMastered {
		t.Fatalf("stage: want=%q got=%q", StageMastered, got.Stage)
	}
	if got.DueIn != cfg.MasteredInterval() {
		t.Fatalf("due in: want=%v got=%v", cfg.MasteredInterval(), got.DueIn)
	}
}

func TestTransitionMonotoneUnderConsecutiveCorrects(t *testing.T) {
	cfg := schedulerConfig()
	state := ReviewState{Stage: StageNew, IntervalTier: cfg.FirstTier()}

	prevStageRank := state.Stage.Rank()
	prevTierIdx := cfg.TierIndex(state.IntervalTier)
	for i := 0; i < 12; i++ {
		got := Transition(cfg, state, true)
		if got.Stage.Rank() < prevStageRank {
			t.Fatalf("step %d: stage regressed from rank %d to %d", i, prevStageRank, got.Stage.Rank())
		}
		if cfg.TierIndex(got.IntervalTier) < prevTierIdx {
			t.Fatalf("step %d: tier regressed from %d to %d", i, prevTierIdx, cfg.TierIndex(got.IntervalTier))
		}
		prevStageRank = got.Stage.Rank()
		prevTierIdx = cfg.TierIndex(got.IntervalTier)
		state = ReviewState{Stage: got.Stage, IntervalTier: got.IntervalTier, CorrectStreak: got.CorrectStreak}
	}
	if state.Stage != StageMastered {
		t.Fatalf("twelve consecutive corrects should master the pair, got %q", state.Stage)
	}
}

func TestParseStageDefaultsToNew(t *testing.T) {
	if got := ParseStage("garbage"); got != StageNew {
		t.Fatalf("want=%q got=%q", StageNew, got)
	}
	if got := ParseStage("review"); got != StageReview {
		t.Fatalf("want=%q got=%q", StageReview, got)
	}
}
