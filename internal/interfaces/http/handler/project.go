package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/erp/mason/internal/domain/project"
	"github.com/erp/mason/internal/domain/shared"
	"github.com/erp/mason/pkg/pagination"
	"github.com/erp/mason/pkg/permission"
	"github.com/erp/mason/pkg/schema"
	"github.com/erp/mason/pkg/viewset"
	"github.com/erp/mason/pkg/wrapper"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProjectRead is the public representation of a project
type ProjectRead struct {
	ID          uint64          `json:"id"`
	CompanyID   uuid.UUID       `json:"company_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Budget      decimal.Decimal `json:"budget"`
	Archived    bool            `json:"archived"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProjectSummary is the compact form used in list responses
type ProjectSummary struct {
	ID        uint64    `json:"id"`
	CompanyID uuid.UUID `json:"company_id"`
	Name      string    `json:"name"`
	Archived  bool      `json:"archived"`
}

// ProjectCreate is the body accepted by POST /projects
type ProjectCreate struct {
	CompanyID   uuid.UUID       `json:"company_id" binding:"required"`
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"max=5000"`
	Budget      decimal.Decimal `json:"budget" doc:"Non-negative amount with two decimals"`
}

// ProjectUpdate is the body accepted by PUT/PATCH /projects/:item_id.
// The owning company cannot be changed.
type ProjectUpdate struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Budget      *decimal.Decimal `json:"budget"`
}

// filterProjects applies ?company_id= and ?archived= to the queryset.
func filterProjects(c *gin.Context, db *gorm.DB) *gorm.DB {
	if raw := c.Query("company_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			_ = db.AddError(invalidFilter("company_id", "Must be a valid UUID"))
			return db
		}
		db = db.Where("company_id = ?", id)
	}
	if raw := c.Query("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			_ = db.AddError(invalidFilter("archived", "Must be true or false"))
			return db
		}
		db = db.Where("archived = ?", archived)
	}
	return db
}

func invalidFilter(field, message string) *viewset.Error {
	e := viewset.NewError(http.StatusBadRequest, viewset.CodeInvalidQuery, "Invalid query parameters")
	e.Details = []viewset.FieldError{{Field: field, Message: message}}
	return e
}

// createProject rejects projects of unknown companies before inserting.
func createProject(deps Deps) func(c *gin.Context, p *project.Project) error {
	return func(c *gin.Context, p *project.Project) error {
		ok, err := deps.Projects.CompanyExists(c.Request.Context(), p.CompanyID)
		if err != nil {
			return err
		}
		if !ok {
			return shared.ErrInvalidInput.WithMessage("company does not exist")
		}
		return deps.DB.WithContext(c.Request.Context()).Create(p).Error
	}
}

// NewProjectViewSet serves /projects with limit/offset pagination and the
// success envelope. Every action needs the matching project:<action> grant.
func NewProjectViewSet(deps Deps) *viewset.GenericViewSet[project.Project] {
	vs := viewset.NewModelViewSet(viewset.Config[project.Project]{
		Name:           "projects",
		Prefix:         "/projects",
		DB:             deps.DB,
		ReadSchema:     ProjectRead{},
		ManyReadSchema: ProjectSummary{},
		CreateSchema:   ProjectCreate{},
		UpdateSchema:   ProjectUpdate{},
		Pagination:     pagination.NewLimitOffset(deps.Pagination.DefaultSize, deps.Pagination.MaxSize),
		Permissions:    []permission.Permission{permission.ResourcePermission{Resource: "project"}},
		ListWrapper:    wrapper.Envelope{},
		SingleWrapper:  wrapper.Envelope{},
		OrderingFields: []string{"id", "name", "budget", "created_at"},
		GetQueryset:    filterProjects,
		PerformCreate:  createProject(deps),
		MapError:       MapError,
		RenderError:    RenderError,
		Logger:         deps.Logger,
	})

	vs.Action(viewset.Action{
		Name:           "archive",
		Methods:        []string{http.MethodPost},
		Detail:         true,
		Summary:        "Archive a project",
		ResponseSchema: ProjectRead{},
		Permissions:    []permission.Permission{permission.HasPermissions{All: []string{"project:update"}}},
		Handler: func(c *gin.Context) (any, error) {
			obj, err := vs.GetObject(c)
			if err != nil {
				return nil, err
			}
			archived, err := deps.Projects.Archive(c.Request.Context(), obj.ID)
			if err != nil {
				return nil, err
			}
			body, err := schema.Serialize(ProjectRead{}, archived)
			if err != nil {
				return nil, err
			}
			return wrapper.Envelope{}.WrapSingle(body), nil
		},
	})
	return vs
}

// NewProjectFeedViewSet is a read-only, cursor-paginated view over projects
// for clients that page through the whole table.
func NewProjectFeedViewSet(deps Deps) *viewset.GenericViewSet[project.Project] {
	return viewset.NewReadOnlyViewSet(viewset.Config[project.Project]{
		Name:          "projects-feed",
		Prefix:        "/projects-feed",
		DB:            deps.DB,
		ReadSchema:    ProjectRead{},
		Pagination:    pagination.NewCursor("id", deps.Pagination.DefaultSize, deps.Pagination.MaxSize),
		Permissions:   []permission.Permission{permission.ResourcePermission{Resource: "project"}},
		ListWrapper:   wrapper.Envelope{},
		SingleWrapper: wrapper.Envelope{},
		GetQueryset:   filterProjects,
		MapError:      MapError,
		RenderError:   RenderError,
		Logger:        deps.Logger,
	})
}
