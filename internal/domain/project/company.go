// Package project holds the example resources served by the mason demo service.
package project

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Company owns projects
type Company struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex" json:"name"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName returns the table name for GORM
func (Company) TableName() string {
	return "companies"
}

// BeforeCreate assigns a UUID when none was set
func (c *Company) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// CompanyStat aggregates the projects of a single company
type CompanyStat struct {
	CompanyID    uuid.UUID `json:"company_id"`
	Name         string    `json:"name"`
	ProjectCount int64     `json:"project_count"`
	ActiveCount  int64     `json:"active_count"`
}
