package persistence

import (
	"context"
	"errors"

	"github.com/erp/mason/internal/domain/project"
	"github.com/erp/mason/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProjectRepository serves the project queries that fall outside plain CRUD
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// CompanyStats returns project counts per company, ordered by company name
func (r *GormProjectRepository) CompanyStats(ctx context.Context) ([]project.CompanyStat, error) {
	stats := make([]project.CompanyStat, 0)
	err := r.db.WithContext(ctx).
		Table("companies AS c").
		Select(`c.id AS company_id, c.name AS name,
			COUNT(p.id) AS project_count,
			COALESCE(SUM(CASE WHEN p.id IS NOT NULL AND NOT p.archived THEN 1 ELSE 0 END), 0) AS active_count`).
		Joins("LEFT JOIN projects AS p ON p.company_id = c.id").
		Group("c.id, c.name").
		Order("c.name ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// CompanyExists reports whether a company with the given id exists
func (r *GormProjectRepository) CompanyExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&project.Company{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Archive loads the project, applies the archive transition and saves it
func (r *GormProjectRepository) Archive(ctx context.Context, id uint64) (*project.Project, error) {
	var p project.Project
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.WrapDomainError(shared.ErrNotFound.Code, "Project not found", err)
			}
			return err
		}
		if err := p.Archive(); err != nil {
			return err
		}
		return tx.Model(&p).Update("archived", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
