package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/service"
	"github.com/tugapp/tug/internal/store"
)

func (s *Server) registerActivityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listActivities",
		Method:      http.MethodGet,
		Path:        "/api/v1/activities",
		Summary:     "List activities",
		Description: "Lists the user's activities in a window, newest first, with cursor pagination",
		Tags:        []string{"Activities"},
		Security:    bearerAuth,
	}, s.handleListActivities)

	huma.Register(s.api, huma.Operation{
		OperationID:   "logActivity",
		Method:        http.MethodPost,
		Path:          "/api/v1/activities",
		Summary:       "Log activity",
		Description:   "Records minutes spent on one of the user's values",
		Tags:          []string{"Activities"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusCreated,
	}, s.handleLogActivity)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteActivity",
		Method:        http.MethodDelete,
		Path:          "/api/v1/activities/{id}",
		Summary:       "Delete activity",
		Tags:          []string{"Activities"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteActivity)

	huma.Register(s.api, huma.Operation{
		OperationID: "activityStatistics",
		Method:      http.MethodGet,
		Path:        "/api/v1/activities/statistics",
		Summary:     "Activity statistics",
		Description: "Counts and totals for a window. Always computed fresh.",
		Tags:        []string{"Activities"},
		Security:    bearerAuth,
	}, s.handleActivityStatistics)

	huma.Register(s.api, huma.Operation{
		OperationID: "activitySummary",
		Method:      http.MethodGet,
		Path:        "/api/v1/activities/summary",
		Summary:     "Activity summary",
		Description: "Minutes per value name with the community average for the same window",
		Tags:        []string{"Activities"},
		Security:    bearerAuth,
	}, s.handleActivitySummary)
}

// === DTOs ===

// ListActivitiesInput selects a window and page.
type ListActivitiesInput struct {
	WindowParams
	Cursor string `query:"cursor" doc:"Opaque cursor from the previous page"`
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" doc:"Page size, default 100"`
}

// ActivitiesOutput wraps an activity page for Huma.
type ActivitiesOutput struct {
	Body store.Page[domain.ActivityRecord]
}

// LogActivityRequest is the request body for a manual activity.
type LogActivityRequest struct {
	ValueID string    `json:"value_id" minLength:"1" doc:"Value the time counts towards"`
	Name    string    `json:"name,omitempty" maxLength:"100"`
	Minutes int       `json:"duration" minimum:"1" maximum:"1440" doc:"Duration in minutes"`
	Date    time.Time `json:"date,omitempty" required:"false" doc:"When it happened; defaults to now"`
	Notes   string    `json:"notes,omitempty" maxLength:"1000"`
}

// LogActivityInput wraps the log request for Huma.
type LogActivityInput struct {
	Body LogActivityRequest
}

// ActivityOutput wraps a single activity for Huma.
type ActivityOutput struct {
	Body *domain.ActivityRecord
}

// ActivityIDInput addresses one activity.
type ActivityIDInput struct {
	ID string `path:"id" doc:"Activity ID"`
}

// StatisticsInput selects the statistics window.
type StatisticsInput struct {
	WindowParams
}

// StatisticsOutput wraps the counters for Huma.
type StatisticsOutput struct {
	Body domain.ActivityStatistics
}

// SummaryInput selects the summary window.
type SummaryInput struct {
	WindowParams
	Refresh bool `query:"refresh" doc:"Recompute community averages instead of using the cache"`
}

// SummaryOutput wraps the summary for Huma.
type SummaryOutput struct {
	Body domain.ActivitySummary
}

// === Handlers ===

func (s *Server) handleListActivities(ctx context.Context, input *ListActivitiesInput) (*ActivitiesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := input.Window()
	if err != nil {
		return nil, err
	}

	page, err := s.services.Activities.ListActivitiesPage(ctx, userID, start, end, store.PaginationParams{
		Limit:  input.Limit,
		Cursor: input.Cursor,
	})
	if err != nil {
		return nil, err
	}
	return &ActivitiesOutput{Body: page}, nil
}

func (s *Server) handleLogActivity(ctx context.Context, input *LogActivityInput) (*ActivityOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	a, err := s.services.Activities.LogActivity(ctx, userID, service.LogActivityRequest{
		ValueID:    input.Body.ValueID,
		Name:       input.Body.Name,
		Minutes:    input.Body.Minutes,
		OccurredAt: input.Body.Date,
		Notes:      input.Body.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &ActivityOutput{Body: a}, nil
}

func (s *Server) handleDeleteActivity(ctx context.Context, input *ActivityIDInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Activities.DeleteActivity(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleActivityStatistics(ctx context.Context, input *StatisticsInput) (*StatisticsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := input.Window()
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Activities.GetActivityStatistics(ctx, userID, start, end, false)
	if err != nil {
		return nil, err
	}
	return &StatisticsOutput{Body: stats}, nil
}

func (s *Server) handleActivitySummary(ctx context.Context, input *SummaryInput) (*SummaryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	start, end, err := input.Window()
	if err != nil {
		return nil, err
	}

	summary, err := s.services.Activities.GetActivitySummary(ctx, userID, start, end, input.Refresh)
	if err != nil {
		return nil, err
	}
	return &SummaryOutput{Body: summary}, nil
}
