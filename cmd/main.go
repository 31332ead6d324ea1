package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pulseprep/backend/internal/clients/redis"
	"github.com/pulseprep/backend/internal/db"
	"github.com/pulseprep/backend/internal/handlers"
	"github.com/pulseprep/backend/internal/learning"
	"github.com/pulseprep/backend/internal/logger"
	"github.com/pulseprep/backend/internal/middleware"
	"github.com/pulseprep/backend/internal/repos"
	"github.com/pulseprep/backend/internal/server"
	"github.com/pulseprep/backend/internal/services"
	"github.com/pulseprep/backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	engineConfigPath := utils.GetEnv("ENGINE_CONFIG_PATH", "", log)
	profileCacheTTL := utils.GetEnvAsInt("PROFILE_CACHE_TTL_SECONDS", 900, log)

	// Engine config
	engineCfg, err := learning.LoadEngineConfig(engineConfigPath)
	if err != nil {
		log.Error("Could not load engine config", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	questionRepo := repos.NewQuestionRepo(thePG, log)
	attemptRepo := repos.NewAttemptRepo(thePG, log)
	scheduleRepo := repos.NewReviewScheduleRepo(thePG, log)

	// Weakness profile cache: Redis when configured, in-process otherwise.
	cacheTTL := time.Duration(profileCacheTTL) * time.Second
	var profileCache redis.ProfileCache
	if os.Getenv("REDIS_ADDR") != "" {
		profileCache, err = redis.NewProfileCache(log, cacheTTL)
		if err != nil {
			log.Error("Could not init Redis profile cache", "error", err)
			os.Exit(1)
		}
		defer profileCache.Close()
	} else {
		log.Info("REDIS_ADDR not set, using in-memory profile cache")
		profileCache = services.NewMemoryProfileCache(cacheTTL)
	}

	// Services
	log.Info("Setting up Services from main...")
	weaknessService := services.NewWeaknessService(thePG, log, engineCfg.Profile, attemptRepo, questionRepo, profileCache)
	selectionService := services.NewSelectionService(
		thePG,
		log,
		engineCfg,
		questionRepo,
		attemptRepo,
		scheduleRepo,
		weaknessService,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)
	reviewService := services.NewReviewService(thePG, log, engineCfg.Scheduler, attemptRepo, questionRepo, scheduleRepo, weaknessService)

	// Handlers
	log.Info("Setting up handlers from main...")
	learningHandler := handlers.NewLearningHandler(log, selectionService, reviewService, weaknessService)
	questionHandler := handlers.NewQuestionHandler(questionRepo)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:  authMiddleware,
		LearningHandler: learningHandler,
		QuestionHandler: questionHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
