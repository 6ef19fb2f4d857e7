package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recshelf/recshelf-server/internal/domain"
	"github.com/recshelf/recshelf-server/internal/service"
)

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listRecommendations",
		Method:      http.MethodGet,
		Path:        "/api/v1/recommendations",
		Summary:     "List recommendations",
		Description: "Returns the caller's recommendations, newest first, optionally filtered by type",
		Tags:        []string{"Recommendations"},
	}, s.handleListRecommendations)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createRecommendation",
		Method:        http.MethodPost,
		Path:          "/api/v1/recommendations",
		Summary:       "Add recommendation",
		Description:   "Adds a recommendation. The recommender is matched by ID or by name, and created when the name is new.",
		Tags:          []string{"Recommendations"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateRecommendation)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecommendation",
		Method:      http.MethodGet,
		Path:        "/api/v1/recommendations/{id}",
		Summary:     "Get recommendation",
		Tags:        []string{"Recommendations"},
	}, s.handleGetRecommendation)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateRecommendation",
		Method:      http.MethodPut,
		Path:        "/api/v1/recommendations/{id}",
		Summary:     "Update recommendation",
		Tags:        []string{"Recommendations"},
	}, s.handleUpdateRecommendation)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteRecommendation",
		Method:        http.MethodDelete,
		Path:          "/api/v1/recommendations/{id}",
		Summary:       "Delete recommendation",
		Tags:          []string{"Recommendations"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteRecommendation)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleRecommendationComplete",
		Method:      http.MethodPost,
		Path:        "/api/v1/recommendations/{id}/complete",
		Summary:     "Toggle completion",
		Description: "Flips the completed flag of a recommendation",
		Tags:        []string{"Recommendations"},
	}, s.handleToggleComplete)
}

// === DTOs ===

// ListRecommendationsInput filters the list.
type ListRecommendationsInput struct {
	Type string `query:"type" doc:"Only return recommendations of this type"`
}

// ListRecommendationsResponse contains the caller's recommendations.
type ListRecommendationsResponse struct {
	Recommendations []*domain.Recommendation `json:"recommendations" doc:"Recommendations, newest date first"`
}

// ListRecommendationsOutput wraps the list response for Huma.
type ListRecommendationsOutput struct {
	Body ListRecommendationsResponse
}

// RecommendationIDInput identifies one recommendation.
type RecommendationIDInput struct {
	ID string `path:"id" doc:"Recommendation ID"`
}

// RecommendationBody is the create and update payload.
type RecommendationBody struct {
	Title           string `json:"title" doc:"What was recommended"`
	Type            string `json:"type" doc:"book, movie, tv, recipe, restaurant, podcast or other"`
	RecommenderID   string `json:"recommender_id,omitempty" doc:"ID of a known person"`
	RecommenderName string `json:"recommender_name,omitempty" doc:"Name of the person, used when no ID is given"`
	Reason          string `json:"reason,omitempty" doc:"Why they recommended it"`
	Source          string `json:"source,omitempty" doc:"Link or where to find it"`
	Date            string `json:"date,omitempty" doc:"Date recommended (YYYY-MM-DD), defaults to today"`
	IsCompleted     bool   `json:"is_completed,omitempty" doc:"Whether it has been watched, read or tried"`
	CustomCategory  string `json:"custom_category,omitempty" doc:"Slug of a custom category, for type other"`
}

func (b RecommendationBody) toRequest() service.RecommendationRequest {
	return service.RecommendationRequest{
		Title:           b.Title,
		Type:            domain.RecommendationType(b.Type),
		RecommenderID:   b.RecommenderID,
		RecommenderName: b.RecommenderName,
		Reason:          b.Reason,
		Source:          b.Source,
		Date:            b.Date,
		IsCompleted:     b.IsCompleted,
		CustomCategory:  b.CustomCategory,
	}
}

// CreateRecommendationInput wraps the create request for Huma.
type CreateRecommendationInput struct {
	Body RecommendationBody
}

// UpdateRecommendationInput wraps the update request for Huma.
type UpdateRecommendationInput struct {
	ID   string `path:"id" doc:"Recommendation ID"`
	Body RecommendationBody
}

// RecommendationOutput wraps a single recommendation for Huma.
type RecommendationOutput struct {
	Body *domain.Recommendation
}

// === Handlers ===

func (s *Server) handleListRecommendations(ctx context.Context, input *ListRecommendationsInput) (*ListRecommendationsOutput, error) {
	recs, err := s.services.Recommendations.List(ctx, domain.RecommendationType(input.Type))
	if err != nil {
		return nil, err
	}
	return &ListRecommendationsOutput{Body: ListRecommendationsResponse{Recommendations: recs}}, nil
}

func (s *Server) handleCreateRecommendation(ctx context.Context, input *CreateRecommendationInput) (*RecommendationOutput, error) {
	rec, err := s.services.Recommendations.Create(ctx, input.Body.toRequest())
	if err != nil {
		return nil, err
	}
	return &RecommendationOutput{Body: rec}, nil
}

func (s *Server) handleGetRecommendation(ctx context.Context, input *RecommendationIDInput) (*RecommendationOutput, error) {
	rec, err := s.services.Recommendations.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &RecommendationOutput{Body: rec}, nil
}

func (s *Server) handleUpdateRecommendation(ctx context.Context, input *UpdateRecommendationInput) (*RecommendationOutput, error) {
	rec, err := s.services.Recommendations.Update(ctx, input.ID, input.Body.toRequest())
	if err != nil {
		return nil, err
	}
	return &RecommendationOutput{Body: rec}, nil
}

func (s *Server) handleDeleteRecommendation(ctx context.Context, input *RecommendationIDInput) (*struct{}, error) {
	if err := s.services.Recommendations.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleToggleComplete(ctx context.Context, input *RecommendationIDInput) (*RecommendationOutput, error) {
	rec, err := s.services.Recommendations.ToggleComplete(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &RecommendationOutput{Body: rec}, nil
}
