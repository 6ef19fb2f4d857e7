package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/service"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPeople",
		Method:      http.MethodGet,
		Path:        "/api/v1/people",
		Summary:     "List people",
		Description: "Returns everyone who has recommended something to the caller",
		Tags:        []string{"People"},
	}, s.handleListPeople)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCategories",
		Method:      http.MethodGet,
		Path:        "/api/v1/categories",
		Summary:     "List custom categories",
		Tags:        []string{"Categories"},
	}, s.handleListCategories)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCategory",
		Method:        http.MethodPost,
		Path:          "/api/v1/categories",
		Summary:       "Add custom category",
		Description:   "Adds a category. Its slug is derived from the label and must be unique.",
		Tags:          []string{"Categories"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateCategory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getVisitorStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/visitor/status",
		Summary:     "Visitor status",
		Description: "Reports how many recommendations a visitor has added against the suggested limit",
		Tags:        []string{"Visitor"},
	}, s.handleVisitorStatus)
}

// ListPeopleOutput wraps the people list for Huma.
type ListPeopleOutput struct {
	Body struct {
		People []*domain.Person `json:"people"`
	}
}

// ListCategoriesOutput wraps the category list for Huma.
type ListCategoriesOutput struct {
	Body struct {
		Categories []*domain.CustomCategory `json:"categories"`
	}
}

// CreateCategoryRequest is the request body for a new category.
type CreateCategoryRequest struct {
	Label string `json:"label" doc:"Display label"`
	Color string `json:"color,omitempty" doc:"Hex colour such as #aa3366"`
	Icon  string `json:"icon,omitempty" doc:"Icon name"`
}

// CreateCategoryInput wraps the create request for Huma.
type CreateCategoryInput struct {
	Body CreateCategoryRequest
}

// CategoryOutput wraps a single category for Huma.
type CategoryOutput struct {
	Body *domain.CustomCategory
}

// VisitorStatusOutput wraps the visitor status for Huma.
type VisitorStatusOutput struct {
	Body *service.VisitorStatus
}

func (s *Server) handleListPeople(ctx context.Context, _ *struct{}) (*ListPeopleOutput, error) {
	people, err := s.services.Recommendations.ListPeople(ctx)
	if err != nil {
		return nil, err
	}
	out := &ListPeopleOutput{}
	out.Body.People = people
	return out, nil
}

func (s *Server) handleListCategories(ctx context.Context, _ *struct{}) (*ListCategoriesOutput, error) {
	cats, err := s.services.Recommendations.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := &ListCategoriesOutput{}
	out.Body.Categories = cats
	return out, nil
}

func (s *Server) handleCreateCategory(ctx context.Context, input *CreateCategoryInput) (*CategoryOutput, error) {
	cat, err := s.services.Recommendations.CreateCategory(ctx, service.CategoryRequest{
		Label: input.Body.Label,
		Color: input.Body.Color,
		Icon:  input.Body.Icon,
	})
	if err != nil {
		return nil, err
	}
	return &CategoryOutput{Body: cat}, nil
}

func (s *Server) handleVisitorStatus(ctx context.Context, _ *struct{}) (*VisitorStatusOutput, error) {
	status, err := s.services.Recommendations.VisitorStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &VisitorStatusOutput{Body: status}, nil
}
