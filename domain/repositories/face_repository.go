package repositories

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"eals-backend/domain/models"
)

// FaceSearchResult is one candidate from the 1:N embedding search. The
// database similarity only ranks retrieval; the stored embedding comes back
// so the engine can rescore the candidate exactly in process.
type FaceSearchResult struct {
	EmployeeID string
	Pose       string
	ImagePath  string
	Similarity float64 // index-side cosine similarity, higher is more similar
	Embedding  pgvector.Vector
}

type FaceRepository interface {
	CreateArtifacts(ctx context.Context, artifacts []*models.FaceArtifact) error

	// ReplaceArtifacts swaps all of an employee's pose rows in one
	// transaction, for the re-enrollment commit.
	ReplaceArtifacts(ctx context.Context, employeeID string, artifacts []*models.FaceArtifact) error

	GetArtifactsByEmployee(ctx context.Context, employeeID string) ([]models.FaceArtifact, error)
	DeleteByEmployee(ctx context.Context, employeeID string) error

	// SearchSimilar runs the pgvector cosine search over all stored pose
	// embeddings and returns the best-scoring candidates.
	SearchSimilar(ctx context.Context, embedding pgvector.Vector, limit int, threshold float64) ([]FaceSearchResult, error)

	SaveModel(ctx context.Context, model *models.FaceModel) error
	GetModel(ctx context.Context, employeeID string) (*models.FaceModel, error)
	DeleteModel(ctx context.Context, employeeID string) error
}
