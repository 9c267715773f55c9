package handler

import (
	"time"

	"github.com/erp/mason/internal/domain/project"
	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/permission"
	"github.com/erp/mason/pkg/viewset"
	"github.com/erp/mason/pkg/wrapper"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CompanyRead is the public representation of a company
type CompanyRead struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CompanyCreate is the body accepted by POST /companies
type CompanyCreate struct {
	Name     string `json:"name" binding:"required,min=1,max=100" doc:"Short unique name"`
	FullName string `json:"full_name" binding:"max=255"`
}

// CompanyUpdate is the body accepted by PUT/PATCH /companies/:item_id
type CompanyUpdate struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	FullName *string `json:"full_name" binding:"omitempty,max=255"`
}

// CompanyStatsResponse is returned by GET /companies/stats
type CompanyStatsResponse struct {
	Data []project.CompanyStat `json:"data"`
}

// NewCompanyViewSet serves /companies with page-number pagination. Anyone may
// read; writes need an authenticated user.
func NewCompanyViewSet(deps Deps) *viewset.GenericViewSet[project.Company] {
	vs := viewset.NewModelViewSet(viewset.Config[project.Company]{
		Name:            "companies",
		Prefix:          "/companies",
		DB:              deps.DB,
		ReadSchema:      CompanyRead{},
		CreateSchema:    CompanyCreate{},
		UpdateSchema:    CompanyUpdate{},
		Pagination:      pagination.NewPageNumber(deps.Pagination.DefaultSize, deps.Pagination.MaxSize),
		Permissions:     []permission.Permission{permission.IsAuthenticatedOrReadOnly{}},
		ListWrapper:     wrapper.PaginatedData{},
		SingleWrapper:   wrapper.Data{},
		OrderingFields:  []string{"name", "created_at"},
		DefaultOrdering: "name",
		MapError:        MapError,
		RenderError:     RenderError,
		Logger:          deps.Logger,
	})

	vs.Action(viewset.Action{
		Name:           "stats",
		Summary:        "Project counts per company",
		ResponseSchema: CompanyStatsResponse{},
		Handler: func(c *gin.Context) (any, error) {
			stats, err := deps.Projects.CompanyStats(c.Request.Context())
			if err != nil {
				return nil, err
			}
			if stats == nil {
				stats = []project.CompanyStat{}
			}
			return CompanyStatsResponse{Data: stats}, nil
		},
	})
	return vs
}
