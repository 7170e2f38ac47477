package state

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunStatus represents the lifecycle state of a recorded pipeline run.
type RunStatus string

const (
	StatusDeploying RunStatus = "DEPLOYING"
	StatusDeployed  RunStatus = "DEPLOYED"
	StatusFailed    RunStatus = "FAILED"
	StatusDestroyed RunStatus = "DESTROYED"
)

// Run records one deploy or destroy pipeline run.
type Run struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	Operation   string    `gorm:"not null"` // deploy, destroy
	RepoURL     string    `gorm:"not null"`
	ServiceName string
	Revision    string
	ImageTag    string
	Region      string
	ServiceURL  string
	Status      RunStatus `gorm:"not null"`
	FailedStage string
	Error       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AutoMigrate runs database migrations for the state models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Run{})
}
