package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/service"
)

func (s *Server) registerValueRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listValues",
		Method:      http.MethodGet,
		Path:        "/api/v1/values",
		Summary:     "List values",
		Description: "Lists the user's values, optionally filtered by kind and active state",
		Tags:        []string{"Values"},
		Security:    bearerAuth,
	}, s.handleListValues)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createValue",
		Method:        http.MethodPost,
		Path:          "/api/v1/values",
		Summary:       "Create value",
		Description:   "Creates a value (or vice) with an importance rating from 1 to 5",
		Tags:          []string{"Values"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateValue)

	huma.Register(s.api, huma.Operation{
		OperationID: "getValue",
		Method:      http.MethodGet,
		Path:        "/api/v1/values/{id}",
		Summary:     "Get value",
		Tags:        []string{"Values"},
		Security:    bearerAuth,
	}, s.handleGetValue)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateValue",
		Method:      http.MethodPatch,
		Path:        "/api/v1/values/{id}",
		Summary:     "Update value",
		Description: "Applies a partial update; omitted fields are unchanged",
		Tags:        []string{"Values"},
		Security:    bearerAuth,
	}, s.handleUpdateValue)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteValue",
		Method:        http.MethodDelete,
		Path:          "/api/v1/values/{id}",
		Summary:       "Delete value",
		Description:   "Deletes a value and the activities logged against it",
		Tags:          []string{"Values"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteValue)
}

// === DTOs ===

// ListValuesInput filters the value listing.
type ListValuesInput struct {
	Kind   string `query:"kind" doc:"value or vice; empty lists both"`
	Active bool   `query:"active" doc:"Only return active values"`
}

// ValuesResponse is a list of values.
type ValuesResponse struct {
	Values []domain.Value `json:"values"`
}

// ValuesOutput wraps the value list for Huma.
type ValuesOutput struct {
	Body ValuesResponse
}

// CreateValueRequest is the request body for a new value.
type CreateValueRequest struct {
	Name        string `json:"name" minLength:"1" maxLength:"50" doc:"Value name, unique per user"`
	Importance  int    `json:"importance" minimum:"1" maximum:"5" doc:"Stated importance"`
	Color       string `json:"color,omitempty" doc:"#RRGGBB; a default color is used when empty"`
	Description string `json:"description,omitempty" maxLength:"500"`
	Kind        string `json:"kind,omitempty" enum:"value,vice" doc:"Defaults to value"`
}

// CreateValueInput wraps the create request for Huma.
type CreateValueInput struct {
	Body CreateValueRequest
}

// ValueIDInput addresses one value.
type ValueIDInput struct {
	ID string `path:"id" doc:"Value ID"`
}

// UpdateValueRequest is a partial update.
type UpdateValueRequest struct {
	Name        *string `json:"name,omitempty" maxLength:"50"`
	Importance  *int    `json:"importance,omitempty" minimum:"1" maximum:"5"`
	Color       *string `json:"color,omitempty"`
	Description *string `json:"description,omitempty" maxLength:"500"`
	Active      *bool   `json:"active,omitempty"`
}

// UpdateValueInput wraps the update request for Huma.
type UpdateValueInput struct {
	ID   string `path:"id" doc:"Value ID"`
	Body UpdateValueRequest
}

// ValueOutput wraps a single value for Huma.
type ValueOutput struct {
	Body *domain.Value
}

// === Handlers ===

func (s *Server) handleListValues(ctx context.Context, input *ListValuesInput) (*ValuesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	values, err := s.services.Values.ListValues(ctx, userID, domain.ValueKind(input.Kind), input.Active)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []domain.Value{}
	}
	return &ValuesOutput{Body: ValuesResponse{Values: values}}, nil
}

func (s *Server) handleCreateValue(ctx context.Context, input *CreateValueInput) (*ValueOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	v, err := s.services.Values.CreateValue(ctx, userID, service.CreateValueRequest{
		Name:        input.Body.Name,
		Importance:  input.Body.Importance,
		Color:       input.Body.Color,
		Description: input.Body.Description,
		Kind:        domain.ValueKind(input.Body.Kind),
	})
	if err != nil {
		return nil, err
	}
	return &ValueOutput{Body: v}, nil
}

func (s *Server) handleGetValue(ctx context.Context, input *ValueIDInput) (*ValueOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	v, err := s.services.Values.GetValue(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ValueOutput{Body: v}, nil
}

func (s *Server) handleUpdateValue(ctx context.Context, input *UpdateValueInput) (*ValueOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	v, err := s.services.Values.UpdateValue(ctx, userID, input.ID, service.UpdateValueRequest{
		Name:        input.Body.Name,
		Importance:  input.Body.Importance,
		Color:       input.Body.Color,
		Description: input.Body.Description,
		Active:      input.Body.Active,
	})
	if err != nil {
		return nil, err
	}
	return &ValueOutput{Body: v}, nil
}

func (s *Server) handleDeleteValue(ctx context.Context, input *ValueIDInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Values.DeleteValue(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
