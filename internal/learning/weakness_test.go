package learning

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pulseprep/backend/internal/types"
)

func profileConfig() ProfileConfig {
	return DefaultEngineConfig().Profile
}

func makeQuestion(specialty, source string, recency float64) *types.Question {
	return &types.Question{
		ID:            uuid.New(),
		Prompt:        "prompt",
		CorrectKey:    "a",
		Specialty:     specialty,
		Source:        source,
		RecencyWeight: recency,
	}
}

// history builds attempts most-recent-first against a single question.
func history(q *types.Question, outcomes []bool, start time.Time) []*types.Attempt {
	attempts := make([]*types.Attempt, 0, len(outcomes))
	for i, ok := range outcomes {
		attempts = append(attempts, &types.Attempt{
			ID:         uuid.New(),
			UserID:     uuid.New(),
			QuestionID: q.ID,
			ChosenKey:  "a",
			IsCorrect:  ok,
			AnsweredAt: start.Add(-time.Duration(i) * time.Minute),
		})
	}
	return attempts
}

func TestComputeProfileColdStart(t *testing.T) {
	cfg := profileConfig()
	now := time.Now().UTC()
	p := ComputeProfile(cfg, uuid.New(), nil, nil, now)

	if p.TotalAttempts != 0 {
		t.Fatalf("total attempts: want=0 got=%d", p.TotalAttempts)
	}
	if p.RecentAccuracy != 0.5 {
		t.Fatalf("recent accuracy cold start: want=0.5 got=%v", p.RecentAccuracy)
	}
	want := cfg.MinTargetDifficulty + 0.5*(cfg.MaxTargetDifficulty-cfg.MinTargetDifficulty)
	if math.Abs(p.TargetDifficulty-want) > 1e-9 {
		t.Fatalf("target difficulty: want=%v got=%v", want, p.TargetDifficulty)
	}
	if len(p.WeakSpecialties) != 0 {
		t.Fatalf("weak specialties on cold start: want none got=%v", p.WeakSpecialties)
	}
}

func TestComputeProfileWeakListNeedsSampleAndThreshold(t *testing.T) {
	cfg := profileConfig()
	now := time.Now().UTC()

	neuro := makeQuestion("Neurology", "usmle_2023", 0.5)
	cardio := makeQuestion("Cardiology", "usmle_2023", 0.5)
	derm := makeQuestion("Dermatology", "usmle_2023", 0.5)
	questions := map[uuid.UUID]*types.Question{neuro.ID: neuro, cardio.ID: cardio, derm.ID: derm}

	var attempts []*types.Attempt
	// Neurology: 6 attempts, 1 correct -> weak.
	attempts = append(attempts, history(neuro, []bool{true, false, false, false, false, false}, now)...)
	// Cardiology: 6 attempts, all correct -> not weak.
	attempts = append(attempts, history(cardio, []bool{true, true, true, true, true, true}, now)...)
	// Dermatology: 3 attempts, all wrong -> below the sample floor, not weak.
	attempts = append(attempts, history(derm, []bool{false, false, false}, now)...)

	p := ComputeProfile(cfg, uuid.New(), attempts, questions, now)

	if len(p.WeakSpecialties) != 1 || p.WeakSpecialties[0] != "Neurology" {
		t.Fatalf("weak specialties: want=[Neurology] got=%v", p.WeakSpecialties)
	}
	if !p.IsWeak("Neurology") {
		t.Fatalf("IsWeak(Neurology) should be true")
	}
	if p.IsWeak("Dermatology") {
		t.Fatalf("Dermatology lacks samples and must not be flagged weak")
	}
	if got := p.BySpecialty["Cardiology"].Accuracy; got != 1.0 {
		t.Fatalf("cardiology accuracy: want=1.0 got=%v", got)
	}
	if got := p.BySource["usmle_2023"].Attempts; got != 15 {
		t.Fatalf("source attempts: want=15 got=%d", got)
	}
}

func TestComputeProfileRanksWorstFirst(t *testing.T) {
	cfg := profileConfig()
	now := time.Now().UTC()

	qa := makeQuestion("Anatomy", "s", 0.5)
	qb := makeQuestion("Biochemistry", "s", 0.5)
	questions := map[uuid.UUID]*types.Question{qa.ID: qa, qb.ID: qb}

	var attempts []*types.Attempt
	// Anatomy 2/6 correct (0.33), Biochemistry 3/6 correct (0.5).
	attempts = append(attempts, history(qa, []bool{true, true, false, false, false, false}, now)...)
	attempts = append(attempts, history(qb, []bool{true, true, true, false, false, false}, now)...)

	p := ComputeProfile(cfg, uuid.New(), attempts, questions, now)
	want := []string{"Anatomy", "Biochemistry"}
	if len(p.WeakSpecialties) != 2 || p.WeakSpecialties[0] != want[0] || p.WeakSpecialties[1] != want[1] {
		t.Fatalf("weak ranking: want=%v got=%v", want, p.WeakSpecialties)
	}
}

func TestComputeProfileRecencyWeightedOverallAccuracy(t *testing.T) {
	cfg := profileConfig()
	now := time.Now().UTC()

	current := makeQuestion("Cardiology", "usmle_2024", 1.0)
	stale := makeQuestion("Cardiology", "usmle_2015", 0.1)
	questions := map[uuid.UUID]*types.Question{current.ID: current, stale.ID: stale}

	// One wrong answer on current material, one right answer on stale
	// material. Unweighted accuracy would be 0.5; the weighted figure must
	// sit near the miss on the heavy question.
	attempts := []*types.Attempt{
		{ID: uuid.New(), QuestionID: current.ID, IsCorrect: false, AnsweredAt: now},
		{ID: uuid.New(), QuestionID: stale.ID, IsCorrect: true, AnsweredAt: now.Add(-time.Hour)},
	}

	p := ComputeProfile(cfg, uuid.New(), attempts, questions, now)
	want := 0.1 / 1.1
	if math.Abs(p.OverallAccuracy-want) > 1e-9 {
		t.Fatalf("overall accuracy: want=%v got=%v", want, p.OverallAccuracy)
	}
}

func TestComputeProfileRecentWindowDrivesTarget(t *testing.T) {
	cfg := profileConfig()
	cfg.RecentWindow = 4
	now := time.Now().UTC()

	q := makeQuestion("Cardiology", "s", 0.5)
	questions := map[uuid.UUID]*types.Question{q.ID: q}

	// Latest four attempts all correct, older ones all wrong. Only the
	// window should feed the rolling accuracy.
	outcomes := []bool{true, true, true, true, false, false, false, false}
	p := ComputeProfile(cfg, uuid.New(), history(q, outcomes, now), questions, now)

	if p.RecentAccuracy != 1.0 {
		t.Fatalf("recent accuracy: want=1.0 got=%v", p.RecentAccuracy)
	}
	if math.Abs(p.TargetDifficulty-cfg.MaxTargetDifficulty) > 1e-9 {
		t.Fatalf("target difficulty: want=%v got=%v", cfg.MaxTargetDifficulty, p.TargetDifficulty)
	}
}

func TestComputeProfileUnresolvableQuestionUsesDefaults(t *testing.T) {
	cfg := profileConfig()
	now := time.Now().UTC()

	attempts := []*types.Attempt{
		{ID: uuid.New(), QuestionID: uuid.New(), IsCorrect: true, AnsweredAt: now},
	}
	p := ComputeProfile(cfg, uuid.New(), attempts, map[uuid.UUID]*types.Question{}, now)

	if p.TotalAttempts != 1 {
		t.Fatalf("total attempts: want=1 got=%d", p.TotalAttempts)
	}
	if p.OverallAccuracy != 1.0 {
		t.Fatalf("overall accuracy: want=1.0 got=%v", p.OverallAccuracy)
	}
	if len(p.BySpecialty) != 0 {
		t.Fatalf("unresolvable question must not create specialty buckets, got=%v", p.BySpecialty)
	}
}
