package handler

import (
	"github.com/erp/mason/internal/domain/project"
	"github.com/erp/mason/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProjectStore is what the example viewsets need beyond plain CRUD.
type ProjectStore interface {
	project.StatsReader
	project.CompanyChecker
	project.Archiver
}

// Deps carries what the resource viewsets are built from.
type Deps struct {
	DB         *gorm.DB
	Projects   ProjectStore
	Pagination config.PaginationConfig
	Logger     *zap.Logger
}
