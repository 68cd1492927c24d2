package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/service"
)

func (s *Server) registerProgressRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProgress",
		Method:      http.MethodGet,
		Path:        "/api/v1/progress",
		Summary:     "Progress dashboard",
		Description: "Runs the dashboard pipeline for a timeframe: per-value minutes against the community, overall alignment and an insight",
		Tags:        []string{"Progress"},
		Security:    bearerAuth,
	}, s.handleGetProgress)
}

// ProgressInput selects the dashboard view.
type ProgressInput struct {
	Timeframe string `query:"timeframe" enum:"daily,weekly,monthly" default:"weekly"`
	Kind      string `query:"kind" enum:"value,vice" default:"value" doc:"Whether the dashboard shows values or vices"`
	Refresh   bool   `query:"refresh" doc:"Drop cached aggregates and fetch fresh data"`
}

// ProgressOutput wraps the report for Huma.
type ProgressOutput struct {
	Body *service.ProgressReport
}

func (s *Server) handleGetProgress(ctx context.Context, input *ProgressInput) (*ProgressOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	tf, err := domain.ParseTimeframe(input.Timeframe)
	if err != nil {
		return nil, domainerrors.Validation(err.Error())
	}

	report, err := s.services.Progress.Progress(ctx, userID, tf, domain.ValueKind(input.Kind), input.Refresh)
	if err != nil {
		return nil, err
	}
	return &ProgressOutput{Body: report}, nil
}
