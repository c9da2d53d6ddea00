package postgres

import (
	"context"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"eals-backend/domain/models"
	"eals-backend/domain/repositories"
)

type FaceRepositoryImpl struct {
	db *gorm.DB
}

func NewFaceRepository(db *gorm.DB) repositories.FaceRepository {
	return &FaceRepositoryImpl{db: db}
}

func (r *FaceRepositoryImpl) CreateArtifacts(ctx context.Context, artifacts []*models.FaceArtifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(artifacts, 10).Error
}

func (r *FaceRepositoryImpl) ReplaceArtifacts(ctx context.Context, employeeID string, artifacts []*models.FaceArtifact) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employeeID).Delete(&models.FaceArtifact{}).Error; err != nil {
			return err
		}
		if len(artifacts) == 0 {
			return nil
		}
		return tx.CreateInBatches(artifacts, 10).Error
	})
}

func (r *FaceRepositoryImpl) GetArtifactsByEmployee(ctx context.Context, employeeID string) ([]models.FaceArtifact, error) {
	var artifacts []models.FaceArtifact
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Find(&artifacts).Error
	return artifacts, err
}

func (r *FaceRepositoryImpl) DeleteByEmployee(ctx context.Context, employeeID string) error {
	return r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Delete(&models.FaceArtifact{}).Error
}

// SearchSimilar finds stored pose embeddings similar to the probe using
// cosine distance. pgvector's <=> operator is cosine distance, so
// similarity = 1 - distance.
func (r *FaceRepositoryImpl) SearchSimilar(ctx context.Context, embedding pgvector.Vector, limit int, threshold float64) ([]repositories.FaceSearchResult, error) {
	var results []repositories.FaceSearchResult

	rows, err := r.db.WithContext(ctx).Raw(`
		SELECT
			employee_id, pose, image_path,
			1 - (embedding <=> ?) as similarity,
			embedding
		FROM face_artifacts
		WHERE 1 - (embedding <=> ?) >= ?
		ORDER BY embedding <=> ?
		LIMIT ?
	`, embedding, embedding, threshold, embedding, limit).Rows()

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var result repositories.FaceSearchResult
		if err := rows.Scan(&result.EmployeeID, &result.Pose, &result.ImagePath, &result.Similarity, &result.Embedding); err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

func (r *FaceRepositoryImpl) SaveModel(ctx context.Context, model *models.FaceModel) error {
	var existing models.FaceModel
	err := r.db.WithContext(ctx).Where("employee_id = ?", model.EmployeeID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return r.db.WithContext(ctx).Create(model).Error
	}
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&existing).Update("template_paths", model.TemplatePaths).Error
}

func (r *FaceRepositoryImpl) GetModel(ctx context.Context, employeeID string) (*models.FaceModel, error) {
	var model models.FaceModel
	err := r.db.WithContext(ctx).Where("employee_id = ?", employeeID).First(&model).Error
	if err != nil {
		return nil, err
	}
	return &model, nil
}

func (r *FaceRepositoryImpl) DeleteModel(ctx context.Context, employeeID string) error {
	return r.db.WithContext(ctx).Where("employee_id = ?", employeeID).Delete(&models.FaceModel{}).Error
}
