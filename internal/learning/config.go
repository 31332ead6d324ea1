package learning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig collects every tuning constant the engine uses. Defaults are
// the documented production values; a YAML file can override any subset.
type EngineConfig struct {
	Selection SelectionConfig `yaml:"selection"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Profile   ProfileConfig   `yaml:"profile"`
}

// SelectionConfig drives the candidate scorer.
type SelectionConfig struct {
	// Signal weights. They are applied to independently normalized [0,1]
	// signals and do not need to sum to 1.
	WeightWeakness   float64 `yaml:"weight_weakness"`
	WeightDifficulty float64 `yaml:"weight_difficulty"`
	WeightRecency    float64 `yaml:"weight_recency"`
	WeightNovelty    float64 `yaml:"weight_novelty"`

	// WeaknessBaseline is the weakness-match signal for candidates outside
	// the weak-specialty list, so strong areas are de-prioritized but never
	// starved.
	WeaknessBaseline float64 `yaml:"weakness_baseline"`

	// NoveltyDecay multiplies the novelty signal once per prior exposure.
	NoveltyDecay float64 `yaml:"novelty_decay"`

	// TopK bounds the weighted-random draw to the K best-scored candidates.
	TopK int `yaml:"top_k"`

	// DifficultyBand is the half-width of the strict difficulty filter
	// around the user's target difficulty.
	DifficultyBand float64 `yaml:"difficulty_band"`

	// DefaultDifficulty stands in for questions without a calibrated value.
	DefaultDifficulty float64 `yaml:"default_difficulty"`
}

// SchedulerConfig drives the spaced-repetition state machine.
type SchedulerConfig struct {
	// Tiers is the ordered escalation ladder, shortest first.
	Tiers []TierSpec `yaml:"tiers"`

	// MinStreakToReview promotes Learning -> Review once this many
	// consecutive correct reviews are reached.
	MinStreakToReview int `yaml:"min_streak_to_review"`

	// MinStreakToMaster promotes Review -> Mastered once the longest tier
	// is reached with at least this streak.
	MinStreakToMaster int `yaml:"min_streak_to_master"`

	// MasteredIntervalDays is how far out Mastered material is pushed.
	MasteredIntervalDays int `yaml:"mastered_interval_days"`

	// MasteredRetentionDays is how long a mastered question stays out of
	// the scorer's candidate pool.
	MasteredRetentionDays int `yaml:"mastered_retention_days"`
}

// TierSpec is one rung of the interval ladder.
type TierSpec struct {
	Code string `yaml:"code"`
	Days int    `yaml:"days"`
}

// ProfileConfig drives weakness-profile aggregation.
type ProfileConfig struct {
	// WeakAccuracyThreshold marks a specialty weak when its accuracy falls
	// below it.
	WeakAccuracyThreshold float64 `yaml:"weak_accuracy_threshold"`

	// MinSampleSize is the attempt count a specialty needs before it can be
	// flagged weak.
	MinSampleSize int `yaml:"min_sample_size"`

	// RecentWindow is the number of latest attempts used for the rolling
	// accuracy that sets target difficulty.
	RecentWindow int `yaml:"recent_window"`

	MinTargetDifficulty float64 `yaml:"min_target_difficulty"`
	MaxTargetDifficulty float64 `yaml:"max_target_difficulty"`

	// DefaultRecencyWeight stands in for attempts whose question is no
	// longer resolvable.
	DefaultRecencyWeight float64 `yaml:"default_recency_weight"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Selection: SelectionConfig{
			WeightWeakness:    0.35,
			WeightDifficulty:  0.25,
			WeightRecency:     0.20,
			WeightNovelty:     0.20,
			WeaknessBaseline:  0.3,
			NoveltyDecay:      0.5,
			TopK:              5,
			DifficultyBand:    0.25,
			DefaultDifficulty: 0.5,
		},
		Scheduler: SchedulerConfig{
			Tiers: []TierSpec{
				{Code: "1d", Days: 1},
				{Code: "3d", Days: 3},
				{Code: "7d", Days: 7},
				{Code: "14d", Days: 14},
				{Code: "30d", Days: 30},
				{Code: "60d", Days: 60},
			},
			MinStreakToReview:     2,
			MinStreakToMaster:     2,
			MasteredIntervalDays:  90,
			MasteredRetentionDays: 90,
		},
		Profile: ProfileConfig{
			WeakAccuracyThreshold: 0.6,
			MinSampleSize:         5,
			RecentWindow:          20,
			MinTargetDifficulty:   0.2,
			MaxTargetDifficulty:   0.9,
			DefaultRecencyWeight:  0.5,
		},
	}
}

// LoadEngineConfig reads a YAML override file on top of the defaults. An
// empty path returns the defaults untouched.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read engine config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse engine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c EngineConfig) Validate() error {
	if len(c.Scheduler.Tiers) == 0 {
		return fmt.Errorf("scheduler needs at least one interval tier")
	}
	for i, t := range c.Scheduler.Tiers {
		if t.Code == "" || t.Days <= 0 {
			return fmt.Errorf("invalid interval tier at index %d", i)
		}
	}
	if c.Selection.TopK <= 0 {
		return fmt.Errorf("selection top_k must be positive")
	}
	if c.Selection.NoveltyDecay <= 0 || c.Selection.NoveltyDecay > 1 {
		return fmt.Errorf("selection novelty_decay must be in (0,1]")
	}
	if c.Profile.MinTargetDifficulty >= c.Profile.MaxTargetDifficulty {
		return fmt.Errorf("profile target difficulty bounds inverted")
	}
	return nil
}

// TierDuration resolves a tier code to its duration. Unknown codes fall back
// to the shortest tier.
func (c SchedulerConfig) TierDuration(code string) time.Duration {
	for _, t := range c.Tiers {
		if t.Code == code {
			return time.Duration(t.Days) * 24 * time.Hour
		}
	}
	return time.Duration(c.Tiers[0].Days) * 24 * time.Hour
}

// TierIndex returns the ladder position of a code, or 0 when unknown.
func (c SchedulerConfig) TierIndex(code string) int {
	for i, t := range c.Tiers {
		if t.Code == code {
			return i
		}
	}
	return 0
}

// NextTier advances one rung, saturating at the longest tier.
func (c SchedulerConfig) NextTier(code string) string {
	i := c.TierIndex(code)
	if i+1 < len(c.Tiers) {
		return c.Tiers[i+1].Code
	}
	return c.Tiers[len(c.Tiers)-1].Code
}

func (c SchedulerConfig) FirstTier() string { return c.Tiers[0].Code }

func (c SchedulerConfig) LastTier() string { return c.Tiers[len(c.Tiers)-1].Code }

func (c SchedulerConfig) MasteredInterval() time.Duration {
	return time.Duration(c.MasteredIntervalDays) * 24 * time.Hour
}

func (c SchedulerConfig) MasteredRetention() time.Duration {
	return time.Duration(c.MasteredRetentionDays) * 24 * time.Hour
}
