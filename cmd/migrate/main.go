package main

import (
	"fmt"
	"log"

	"design-analysis-be/internal/config"
	"design-analysis-be/internal/model"
	"design-analysis-be/pkg/database"
)

func main() {
	// 1. Load Environment Variables
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}
	dims := cfg.Ai.EmbeddingDimensions
	if dims <= 0 {
		log.Fatal("Error: EMBEDDING_DIMENSIONS must be positive")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions
	log.Println("Step 1: Setting up Extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Failed to execute setup SQL: %v", err)
		}
	}

	// 4. AutoMigrate
	log.Println("Step 2: Running AutoMigrate...")
	models := []interface{}{
		&model.KnowledgeEntry{},
		&model.AnalysisSession{},
		&model.StageResult{},
		&model.SynthesisResult{},
		&model.MaturityScore{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 5. Post-Migration: vector width and indexes
	log.Printf("Step 3: Pinning embedding width to %d and creating indexes...", dims)
	postMigrationSQL := []string{
		fmt.Sprintf(`ALTER TABLE knowledge_entries ALTER COLUMN embedding TYPE vector(%d);`, dims),
		`CREATE INDEX IF NOT EXISTS idx_knowledge_entries_embedding_hnsw
		 ON knowledge_entries USING hnsw (embedding vector_cosine_ops);`,
		`CREATE INDEX IF NOT EXISTS idx_stage_results_session_sequence
		 ON stage_results (session_id, sequence);`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_sessions_processing_heartbeat
		 ON analysis_sessions (updated_at) WHERE status = 'processing';`,
	}
	for _, sql := range postMigrationSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatalf("Error: Post-migration SQL failed: %v", err)
		}
	}

	log.Println("✅ Migration completed")
}
