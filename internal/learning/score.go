package learning

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"github.com/pulseprep/backend/internal/types"
)

// ErrNoCandidates means the pool was empty even at the loosest relaxation
// level.
var ErrNoCandidates = errors.New("no candidates after relaxation")

// Candidate pairs a question with the user's prior exposure count.
type Candidate struct {
	Question  *types.Question
	Exposures int
}

// Relaxation levels for the eligibility filters, tried strictest first.
const (
	RelaxNone       = 0 // weak-specialty filter + difficulty band
	RelaxWeakness   = 1 // difficulty band only
	RelaxDifficulty = 2 // no filters
)

// ScoredCandidate carries the composite priority and its component signals,
// kept so selections stay explainable in logs.
type ScoredCandidate struct {
	Candidate
	Score         float64
	WeaknessMatch float64
	DifficultyFit float64
	Recency       float64
	Novelty       float64
}

// Score computes the composite priority of one candidate against a profile.
// Every signal is normalized to [0,1] before weighting. A nil or empty
// profile degrades to novelty + recency dominated scoring: the weakness
// signal flattens to its baseline and difficulty fit centers on the default
// target.
func Score(cfg SelectionConfig, profile *WeaknessProfile, c Candidate) ScoredCandidate {
	out := ScoredCandidate{Candidate: c}

	out.WeaknessMatch = cfg.WeaknessBaseline
	if profile.IsWeak(c.Question.Specialty) {
		out.WeaknessMatch = 1.0
	}

	target := targetDifficulty(cfg, profile)
	out.DifficultyFit = 1 - math.Abs(difficultyOf(cfg, c.Question)-target)
	if out.DifficultyFit < 0 {
		out.DifficultyFit = 0
	}

	out.Recency = clamp01(c.Question.RecencyWeight)

	out.Novelty = math.Pow(cfg.NoveltyDecay, float64(c.Exposures))

	out.Score = cfg.WeightWeakness*out.WeaknessMatch +
		cfg.WeightDifficulty*out.DifficultyFit +
		cfg.WeightRecency*out.Recency +
		cfg.WeightNovelty*out.Novelty
	return out
}

// PickCandidate filters, scores and samples one question from the pool.
//
// Filtering starts strict (weak specialties only, difficulty within the band
// around target) and relaxes deterministically: drop the weakness
// requirement first, the difficulty band second. The returned level tells
// the caller which rung actually produced candidates, for diagnostics.
//
// Sampling is weighted-random over the top-K scores rather than argmax, so
// back-to-back sessions do not replay one deterministic ordering. The rand
// source is injected to keep distributional behavior testable.
func PickCandidate(cfg SelectionConfig, rng *rand.Rand, profile *WeaknessProfile, pool []Candidate) (*types.Question, int, error) {
	if len(pool) == 0 {
		return nil, RelaxDifficulty, ErrNoCandidates
	}

	startLevel := RelaxNone
	if profile == nil || len(profile.WeakSpecialties) == 0 {
		// No weak list means the strict level filters everything; skip it
		// so degradation stays deterministic.
		startLevel = RelaxWeakness
	}

	for level := startLevel; level <= RelaxDifficulty; level++ {
		filtered := filterPool(cfg, profile, pool, level)
		if len(filtered) == 0 {
			continue
		}
		scored := make([]ScoredCandidate, 0, len(filtered))
		for _, c := range filtered {
			scored = append(scored, Score(cfg, profile, c))
		}
		return sampleTopK(cfg, rng, scored), level, nil
	}
	return nil, RelaxDifficulty, ErrNoCandidates
}

func filterPool(cfg SelectionConfig, profile *WeaknessProfile, pool []Candidate, level int) []Candidate {
	if level >= RelaxDifficulty {
		return pool
	}
	target := targetDifficulty(cfg, profile)
	var out []Candidate
	for _, c := range pool {
		if level == RelaxNone && !profile.IsWeak(c.Question.Specialty) {
			continue
		}
		if math.Abs(difficultyOf(cfg, c.Question)-target) > cfg.DifficultyBand {
			continue
		}
		out = append(out, c)
	}
	return out
}

// sampleTopK draws proportionally to score among the K best candidates.
// Ordering ties break on question id so the top-K cut is stable.
func sampleTopK(cfg SelectionConfig, rng *rand.Rand, scored []ScoredCandidate) *types.Question {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Question.ID.String() < scored[j].Question.ID.String()
	})
	if len(scored) > cfg.TopK {
		scored = scored[:cfg.TopK]
	}

	var total float64
	for _, s := range scored {
		total += s.Score
	}
	if total <= 0 {
		return scored[rng.Intn(len(scored))].Question
	}

	roll := rng.Float64() * total
	for _, s := range scored {
		roll -= s.Score
		if roll <= 0 {
			return s.Question
		}
	}
	return scored[len(scored)-1].Question
}

func targetDifficulty(cfg SelectionConfig, profile *WeaknessProfile) float64 {
	if profile == nil {
		return cfg.DefaultDifficulty
	}
	return profile.TargetDifficulty
}

func difficultyOf(cfg SelectionConfig, q *types.Question) float64 {
	if q.Difficulty == nil {
		return cfg.DefaultDifficulty
	}
	return clamp01(*q.Difficulty)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
