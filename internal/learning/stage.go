package learning

import "time"

// Stage is the coarse mastery classification for one (user, question) pair.
type Stage string

const (
	StageNew      Stage = "new"
	StageLearning Stage = "learning"
	StageReview   Stage = "review"
	StageMastered Stage = "mastered"
)

var stageOrder = map[Stage]int{
	StageNew:      0,
	StageLearning: 1,
	StageReview:   2,
	StageMastered: 3,
}

// Rank returns the stage's position in the New -> Mastered progression.
func (s Stage) Rank() int { return stageOrder[s] }

func ParseStage(raw string) Stage {
	switch Stage(raw) {
	case StageLearning, StageReview, StageMastered:
		return Stage(raw)
	default:
		return StageNew
	}
}

// ReviewState is the scheduler-relevant slice of a ReviewSchedule row.
type ReviewState struct {
	Stage         Stage
	IntervalTier  string
	CorrectStreak int
}

// TransitionResult is the state after one review plus the delay until the
// pair is due again.
type TransitionResult struct {
	Stage         Stage
	IntervalTier  string
	CorrectStreak int
	DueIn         time.Duration
}

// Transition applies one review outcome to the state machine.
//
// Any incorrect answer, from any stage, regresses to Learning at the
// shortest tier with the streak cleared. A correct answer advances the
// interval one tier and promotes the stage once its streak requirement is
// met; Mastered pairs are pushed out by the long mastered interval instead
// of a ladder tier.
func Transition(cfg SchedulerConfig, state ReviewState, correct bool) TransitionResult {
	if !correct {
		return TransitionResult{
			Stage:         StageLearning,
			IntervalTier:  cfg.FirstTier(),
			CorrectStreak: 0,
			DueIn:         cfg.TierDuration(cfg.FirstTier()),
		}
	}

	streak := state.CorrectStreak + 1

	switch state.Stage {
	case StageNew:
		// First ever correct review enters the ladder at the shortest tier.
		return TransitionResult{
			Stage:         StageLearning,
			IntervalTier:  cfg.FirstTier(),
			CorrectStreak: streak,
			DueIn:         cfg.TierDuration(cfg.FirstTier()),
		}
	case StageLearning:
		tier := cfg.NextTier(state.IntervalTier)
		next := StageLearning
		if streak >= cfg.MinStreakToReview {
			next = StageReview
		}
		return TransitionResult{
			Stage:         next,
			IntervalTier:  tier,
			CorrectStreak: streak,
			DueIn:         cfg.TierDuration(tier),
		}
	case StageReview:
		tier := cfg.NextTier(state.IntervalTier)
		if state.IntervalTier == cfg.LastTier() && streak >= cfg.MinStreakToMaster {
			return TransitionResult{
				Stage:         StageMastered,
				IntervalTier:  cfg.LastTier(),
				CorrectStreak: streak,
				DueIn:         cfg.MasteredInterval(),
			}
		}
		return TransitionResult{
			Stage:         StageReview,
			IntervalTier:  tier,
			CorrectStreak: streak,
			DueIn:         cfg.TierDuration(tier),
		}
	case StageMastered:
		return TransitionResult{
			Stage:         StageMastered,
			IntervalTier:  state.IntervalTier,
			CorrectStreak: streak,
			DueIn:         cfg.MasteredInterval(),
		}
	default:
		return Transition(cfg, ReviewState{Stage: StageNew}, correct)
	}
}
