package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// The six poses captured during face enrollment, in capture order.
const (
	PoseNeutral = "neutral"
	PoseLeft    = "left"
	PoseRight   = "right"
	PoseUp      = "up"
	PoseDown    = "down"
	PoseGlasses = "glasses"
)

// EnrollmentPoses is the capture order the enrollment loop drives.
var EnrollmentPoses = []string{PoseNeutral, PoseLeft, PoseRight, PoseUp, PoseDown, PoseGlasses}

// FaceModel is the registration row: the comma-joined list of artifact paths
// for an employee's six pose pairs.
type FaceModel struct {
	ID            uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	EmployeeID    string    `gorm:"uniqueIndex;not null"`
	TemplatePaths string    `gorm:"not null"` // CSV of npy/jpg paths

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FaceModel) TableName() string {
	return "face_models"
}

// Paths splits the registered CSV list.
func (m *FaceModel) Paths() []string {
	if m.TemplatePaths == "" {
		return nil
	}
	return strings.Split(m.TemplatePaths, ",")
}

// JoinPaths builds the CSV list stored in TemplatePaths.
func JoinPaths(paths []string) string {
	return strings.Join(paths, ",")
}

// FaceArtifact is one pose pair: the embedding vector (512 dimensions from
// the face analysis model) plus the paths of the persisted npy/jpg pair.
// The vector column is what the 1:N recognition search runs against.
type FaceArtifact struct {
	ID         uuid.UUID `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	EmployeeID string    `gorm:"not null;index;uniqueIndex:idx_face_artifacts_employee_pose"`
	Pose       string    `gorm:"not null;uniqueIndex:idx_face_artifacts_employee_pose"`

	Embedding     pgvector.Vector `gorm:"type:vector(512);not null"`
	EmbeddingPath string          `gorm:"not null"`
	ImagePath     string          `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (FaceArtifact) TableName() string {
	return "face_artifacts"
}
