package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gorm.io/datatypes"

	"github.com/pulseprep/backend/internal/db"
	"github.com/pulseprep/backend/internal/logger"
	"github.com/pulseprep/backend/internal/repos"
	"github.com/pulseprep/backend/internal/types"
	"github.com/pulseprep/backend/internal/utils"
)

// seedQuestion is the on-disk import format for one bank entry.
type seedQuestion struct {
	Prompt        string         `json:"prompt"`
	Choices       []types.Choice `json:"choices"`
	CorrectKey    string         `json:"correct_key"`
	Specialty     string         `json:"specialty"`
	Source        string         `json:"source"`
	RecencyWeight float64        `json:"recency_weight"`
	Difficulty    *float64       `json:"difficulty"`
}

func main() {
	var file string
	var dryRun bool
	var limit int
	flag.StringVar(&file, "file", "", "path to a JSON array of questions")
	flag.BoolVar(&dryRun, "dry-run", false, "validate and print counts without writing")
	flag.IntVar(&limit, "limit", 0, "limit number of questions imported")
	flag.Parse()

	if file == "" {
		fmt.Println("usage: seed_questions -file bank.json [-dry-run] [-limit n]")
		os.Exit(1)
	}

	log, err := logger.New(utils.GetEnv("LOG_MODE", "dev", nil))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	raw, err := os.ReadFile(file)
	if err != nil {
		log.Fatal("Failed to read question bank", "file", file, "error", err)
	}
	var entries []seedQuestion
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.Fatal("Failed to parse question bank", "file", file, "error", err)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	rows := make([]*types.Question, 0, len(entries))
	for i, e := range entries {
		if e.Prompt == "" || e.CorrectKey == "" || e.Specialty == "" || e.Source == "" || len(e.Choices) < 2 {
			log.Fatal("Invalid question entry", "index", i)
		}
		keyFound := false
		for _, c := range e.Choices {
			if c.Key == e.CorrectKey {
				keyFound = true
				break
			}
		}
		if !keyFound {
			log.Fatal("correct_key not among choices", "index", i, "correct_key", e.CorrectKey)
		}
		choices, err := json.Marshal(e.Choices)
		if err != nil {
			log.Fatal("Failed to encode choices", "index", i, "error", err)
		}
		recency := e.RecencyWeight
		if recency <= 0 {
			recency = 0.5
		}
		rows = append(rows, &types.Question{
			Prompt:        e.Prompt,
			Choices:       datatypes.JSON(choices),
			CorrectKey:    e.CorrectKey,
			Specialty:     e.Specialty,
			Source:        e.Source,
			RecencyWeight: recency,
			Difficulty:    e.Difficulty,
		})
	}

	if dryRun {
		log.Info("Dry run complete", "questions", len(rows))
		return
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", "error", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Fatal("Failed to migrate", "error", err)
	}

	questionRepo := repos.NewQuestionRepo(pg.DB(), log)
	created, err := questionRepo.Create(context.Background(), nil, rows)
	if err != nil {
		log.Fatal("Failed to insert questions", "error", err)
	}
	log.Info("Question bank imported", "questions", len(created), "file", file)
}
