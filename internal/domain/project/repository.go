package project

import (
	"context"

	"github.com/google/uuid"
)

// StatsReader reads aggregated project figures
type StatsReader interface {
	CompanyStats(ctx context.Context) ([]CompanyStat, error)
}

// CompanyChecker verifies that a company exists
type CompanyChecker interface {
	CompanyExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Archiver applies the archive transition to a stored project
type Archiver interface {
	Archive(ctx context.Context, id uint64) (*Project, error)
}
