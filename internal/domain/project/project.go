package project

import (
	"time"

	"github.com/erp/mason/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Project is a unit of work that belongs to a company
type Project struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CompanyID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"company_id"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Budget      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"budget"`
	Archived    bool            `gorm:"not null;default:false" json:"archived"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null" json:"updated_at"`
}

// TableName returns the table name for GORM
func (Project) TableName() string {
	return "projects"
}

// Validate checks invariants that do not depend on other rows
func (p *Project) Validate() error {
	if p.CompanyID == uuid.Nil {
		return shared.ErrInvalidInput.WithMessage("company_id is required")
	}
	if p.Budget.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("budget cannot be negative")
	}
	return nil
}

// Archive marks the project archived. Archiving twice is an invalid state transition.
func (p *Project) Archive() error {
	if p.Archived {
		return shared.ErrInvalidState.WithMessage("project is already archived")
	}
	p.Archived = true
	return nil
}
