package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulseprep/backend/internal/repos"
)

// QuestionHandler is a read-only facade over the content pool. Authoring
// lives in the content-management system.
type QuestionHandler struct {
	questionRepo repos.QuestionRepo
}

func NewQuestionHandler(questionRepo repos.QuestionRepo) *QuestionHandler {
	return &QuestionHandler{questionRepo: questionRepo}
}

// GET /api/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_question_id", err)
		return
	}

	found, err := h.questionRepo.GetByIDs(c.Request.Context(), nil, []uuid.UUID{id})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	if len(found) == 0 {
		RespondError(c, http.StatusNotFound, "question_not_found", errors.New("question does not exist"))
		return
	}
	RespondOK(c, gin.H{"question": found[0]})
}
