package learning

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pulseprep/backend/internal/types"
)

// GroupStats aggregates attempts for one specialty or source.
type GroupStats struct {
	Attempts int     `json:"attempts"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// WeaknessProfile is the derived per-user aggregate the scorer consumes. It
// is a cache entry, never a source of truth: recomputable at any time from
// Attempt + Question.
type WeaknessProfile struct {
	UserID           uuid.UUID              `json:"user_id"`
	TotalAttempts    int                    `json:"total_attempts"`
	OverallAccuracy  float64                `json:"overall_accuracy"`
	RecentAccuracy   float64                `json:"recent_accuracy"`
	TargetDifficulty float64                `json:"target_difficulty"`
	BySpecialty      map[string]*GroupStats `json:"by_specialty"`
	BySource         map[string]*GroupStats `json:"by_source"`
	WeakSpecialties  []string               `json:"weak_specialties"`
	ComputedAt       time.Time              `json:"computed_at"`
}

// IsWeak reports whether the specialty made the ranked weak list.
func (p *WeaknessProfile) IsWeak(specialty string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.WeakSpecialties {
		if s == specialty {
			return true
		}
	}
	return false
}

// ComputeProfile builds a WeaknessProfile from raw history. Attempts must be
// ordered most recent first; questions maps attempt question ids to their
// content rows (missing entries degrade to defaults, they never fail the
// computation).
//
// Overall accuracy weights each attempt by its question's recency weight, so
// performance on current-exam material dominates the advisory signal. Target
// difficulty tracks the rolling accuracy over the recent window: the better
// the user does, the harder the material the scorer aims for, within bounds.
func ComputeProfile(cfg ProfileConfig, userID uuid.UUID, attempts []*types.Attempt, questions map[uuid.UUID]*types.Question, now time.Time) *WeaknessProfile {
	profile := &WeaknessProfile{
		UserID:      userID,
		BySpecialty: map[string]*GroupStats{},
		BySource:    map[string]*GroupStats{},
		ComputedAt:  now,
	}

	var weightedCorrect, weightSum float64
	recentSeen, recentCorrect := 0, 0

	for _, a := range attempts {
		profile.TotalAttempts++

		w := cfg.DefaultRecencyWeight
		specialty, source := "", ""
		if q := questions[a.QuestionID]; q != nil {
			w = q.RecencyWeight
			specialty = q.Specialty
			source = q.Source
		}
		weightSum += w
		if a.IsCorrect {
			weightedCorrect += w
		}

		if recentSeen < cfg.RecentWindow {
			recentSeen++
			if a.IsCorrect {
				recentCorrect++
			}
		}

		if specialty != "" {
			bump(profile.BySpecialty, specialty, a.IsCorrect)
		}
		if source != "" {
			bump(profile.BySource, source, a.IsCorrect)
		}
	}

	for _, g := range profile.BySpecialty {
		g.Accuracy = float64(g.Correct) / float64(g.Attempts)
	}
	for _, g := range profile.BySource {
		g.Accuracy = float64(g.Correct) / float64(g.Attempts)
	}

	if weightSum > 0 {
		profile.OverallAccuracy = weightedCorrect / weightSum
	}

	// Cold start defaults to the middle of the difficulty range.
	profile.RecentAccuracy = 0.5
	if recentSeen > 0 {
		profile.RecentAccuracy = float64(recentCorrect) / float64(recentSeen)
	}
	span := cfg.MaxTargetDifficulty - cfg.MinTargetDifficulty
	profile.TargetDifficulty = cfg.MinTargetDifficulty + profile.RecentAccuracy*span

	profile.WeakSpecialties = rankWeak(profile.BySpecialty, cfg)
	return profile
}

func bump(groups map[string]*GroupStats, key string, correct bool) {
	g := groups[key]
	if g == nil {
		g = &GroupStats{}
		groups[key] = g
	}
	g.Attempts++
	if correct {
		g.Correct++
	}
}

// rankWeak returns specialties below the accuracy threshold with enough
// samples, worst first. Ties break on name so the ranking is stable.
func rankWeak(groups map[string]*GroupStats, cfg ProfileConfig) []string {
	var weak []string
	for name, g := range groups {
		if g.Attempts >= cfg.MinSampleSize && g.Accuracy < cfg.WeakAccuracyThreshold {
			weak = append(weak, name)
		}
	}
	sort.Slice(weak, func(i, j int) bool {
		gi, gj := groups[weak[i]], groups[weak[j]]
		if gi.Accuracy != gj.Accuracy {
			return gi.Accuracy < gj.Accuracy
		}
		return weak[i] < weak[j]
	})
	return weak
}
