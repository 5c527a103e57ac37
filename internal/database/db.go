package database

import (
	"context"
	"fmt"
	"log"

	"internhub/internal/model"
	"internhub/internal/repository"
	"internhub/internal/workflowdef"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Placement{},
		&model.LogEntry{},
		&model.ApprovalToken{},
		&model.WorkflowStepDefinition{},
		&model.StudentWorkflowStep{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// SeedWorkflowDefinitions upserts the authored step definitions from the
// YAML file so the tracker always runs against the current authored set.
func SeedWorkflowDefinitions(db *gorm.DB, path string) error {
	file, err := workflowdef.Load(path)
	if err != nil {
		return err
	}

	defs, err := file.Definitions()
	if err != nil {
		return err
	}

	repo := repository.NewWorkflowRepository(db)
	for i := range defs {
		if err := repo.UpsertDefinition(context.Background(), &defs[i]); err != nil {
			return fmt.Errorf("failed to seed step %s/%s: %w", defs[i].ProcessType, defs[i].StepKey, err)
		}
	}

	log.Printf("Seeded %d workflow step definitions", len(defs))
	return nil
}
