package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pulseprep/backend/internal/handlers"
	"github.com/pulseprep/backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware  *middleware.AuthMiddleware
	LearningHandler *handlers.LearningHandler
	QuestionHandler *handlers.QuestionHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	api.GET("/next-question", cfg.LearningHandler.GetNextQuestion)
	api.GET("/due-reviews", cfg.LearningHandler.GetDueReviews)
	api.POST("/record-outcome", cfg.LearningHandler.RecordOutcome)
	api.GET("/review-stats", cfg.LearningHandler.GetReviewStats)
	api.GET("/weakness-profile", cfg.LearningHandler.GetWeaknessProfile)
	api.GET("/questions/:id", cfg.QuestionHandler.GetQuestion)

	return router
}
