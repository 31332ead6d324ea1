package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulseprep/backend/internal/logger"
	"github.com/pulseprep/backend/internal/requestdata"
	"github.com/pulseprep/backend/internal/services"
)

// LearningHandler exposes the adaptive engine to the request layer.
type LearningHandler struct {
	log       *logger.Logger
	selection services.SelectionService
	review    services.ReviewService
	weakness  services.WeaknessService
}

func NewLearningHandler(log *logger.Logger, selection services.SelectionService, review services.ReviewService, weakness services.WeaknessService) *LearningHandler {
	return &LearningHandler{
		log:       log.With("handler", "LearningHandler"),
		selection: selection,
		review:    review,
		weakness:  weakness,
	}
}

// GET /api/next-question?exclude=id1,id2
func (h *LearningHandler) GetNextQuestion(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	var excluded []uuid.UUID
	if raw := c.Query("exclude"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				RespondError(c, http.StatusBadRequest, "bad_exclude", fmt.Errorf("invalid exclude id %q", part))
				return
			}
			excluded = append(excluded, id)
		}
	}

	question, err := h.selection.SelectNextQuestion(c.Request.Context(), rd.UserID, excluded)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	RespondOK(c, gin.H{"question": question})
}

type recordOutcomeRequest struct {
	QuestionID       string `json:"question_id" binding:"required"`
	ChosenKey        string `json:"chosen_key"`
	IsCorrect        bool   `json:"is_correct"`
	AnsweredAt       string `json:"answered_at"`
	TimeSpentSeconds int    `json:"time_spent_seconds"`
	Confidence       *int   `json:"confidence"`
}

// POST /api/record-outcome
// Called exactly once per graded attempt by the submission layer.
func (h *LearningHandler) RecordOutcome(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	var req recordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_question_id", err)
		return
	}
	var answeredAt time.Time
	if req.AnsweredAt != "" {
		answeredAt, err = time.Parse(time.RFC3339, req.AnsweredAt)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_answered_at", err)
			return
		}
	}

	schedule, err := h.review.RecordOutcome(c.Request.Context(), rd.UserID, services.Outcome{
		QuestionID:       questionID,
		ChosenKey:        req.ChosenKey,
		IsCorrect:        req.IsCorrect,
		AnsweredAt:       answeredAt,
		TimeSpentSeconds: req.TimeSpentSeconds,
		Confidence:       req.Confidence,
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	RespondOK(c, gin.H{"schedule": schedule})
}

// GET /api/due-reviews?as_of=RFC3339
func (h *LearningHandler) GetDueReviews(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	var asOf time.Time
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_as_of", err)
			return
		}
		asOf = parsed
	}

	reviews, err := h.review.GetDueReviews(c.Request.Context(), rd.UserID, asOf)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	RespondOK(c, gin.H{"due_reviews": reviews})
}

// GET /api/review-stats
func (h *LearningHandler) GetReviewStats(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	stats, err := h.review.GetReviewStats(c.Request.Context(), rd.UserID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	RespondOK(c, gin.H{"stats": stats})
}

// GET /api/weakness-profile
func (h *LearningHandler) GetWeaknessProfile(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("no request data"))
		return
	}

	profile, err := h.weakness.GetProfile(c.Request.Context(), rd.UserID)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	RespondOK(c, gin.H{"profile": profile})
}

// respondEngineError maps the engine taxonomy onto HTTP statuses. Pool
// exhaustion is an explicit empty state for the UI, not a generic failure.
func respondEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNoEligibleQuestions):
		RespondError(c, http.StatusNotFound, "no_eligible_questions", err)
	case errors.Is(err, services.ErrUnknownUser):
		RespondError(c, http.StatusBadRequest, "unknown_user", err)
	case errors.Is(err, services.ErrScheduleConflict):
		RespondError(c, http.StatusConflict, "schedule_conflict", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
