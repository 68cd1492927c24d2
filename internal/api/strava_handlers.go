package api

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/flow"
	"github.com/tugapp/tug/internal/service"
)

func (s *Server) registerStravaRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "stravaStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/strava/status",
		Summary:     "Strava link status",
		Tags:        []string{"Strava"},
		Security:    bearerAuth,
	}, s.handleStravaStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "stravaAuthorize",
		Method:      http.MethodGet,
		Path:        "/api/v1/strava/authorize",
		Summary:     "Strava authorization URL",
		Description: "Returns the consent URL to open in a browser. A loopback redirect_uri sends the redirect to a local listener instead of this server.",
		Tags:        []string{"Strava"},
		Security:    bearerAuth,
	}, s.handleStravaAuthorize)

	huma.Register(s.api, huma.Operation{
		OperationID: "stravaCallback",
		Method:      http.MethodGet,
		Path:        "/api/v1/strava/callback",
		Summary:     "Strava redirect target",
		Description: "Completes the browser redirect from Strava and renders a page the user can close.",
		Tags:        []string{"Strava"},
	}, s.handleStravaCallback)

	huma.Register(s.api, huma.Operation{
		OperationID: "stravaConnect",
		Method:      http.MethodPost,
		Path:        "/api/v1/strava/connect",
		Summary:     "Connect Strava with a code",
		Description: "Exchanges an authorization code captured by the client. A state, when sent, must be the one issued to the caller.",
		Tags:        []string{"Strava"},
		Security:    bearerAuth,
	}, s.handleStravaConnect)

	huma.Register(s.api, huma.Operation{
		OperationID:   "stravaDisconnect",
		Method:        http.MethodPost,
		Path:          "/api/v1/strava/disconnect",
		Summary:       "Disconnect Strava",
		Tags:          []string{"Strava"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusNoContent,
	}, s.handleStravaDisconnect)

	huma.Register(s.api, huma.Operation{
		OperationID: "stravaActivities",
		Method:      http.MethodGet,
		Path:        "/api/v1/strava/activities",
		Summary:     "Recent Strava activities",
		Tags:        []string{"Strava"},
		Security:    bearerAuth,
	}, s.handleStravaActivities)

	huma.Register(s.api, huma.Operation{
		OperationID: "stravaImport",
		Method:      http.MethodPost,
		Path:        "/api/v1/strava/import",
		Summary:     "Import Strava activities",
		Description: "Imports recent Strava activities against a value, skipping ones already imported",
		Tags:        []string{"Strava"},
		Security:    bearerAuth,
	}, s.handleStravaImport)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStravaDefaultValue",
		Method:      http.MethodGet,
		Path:        "/api/v1/strava/default-value",
		Summary:     "Default import value",
		Tags:        []string{"Strava"},
		Security:    bearerAuth,
	}, s.handleGetStravaDefaultValue)

	huma.Register(s.api, huma.Operation{
		OperationID: "setStravaDefaultValue",
		Method:      http.MethodPut,
		Path:        "/api/v1/strava/default-value",
		Summary:     "Set default import value",
		Tags:        []string{"Strava"},
		Security:    bearerAuth,
	}, s.handleSetStravaDefaultValue)
}

// === DTOs ===

// StravaStatusOutput wraps the link status for Huma.
type StravaStatusOutput struct {
	Body *service.StravaStatus
}

// StravaAuthorizeInput optionally names a loopback redirect.
type StravaAuthorizeInput struct {
	RedirectURI string `query:"redirect_uri" doc:"Loopback URL such as http://127.0.0.1:8765/callback"`
}

// StravaAuthorizeResponse carries the consent URL.
type StravaAuthorizeResponse struct {
	URL string `json:"url"`
}

// StravaAuthorizeOutput wraps the consent URL for Huma.
type StravaAuthorizeOutput struct {
	Body StravaAuthorizeResponse
}

// StravaCallbackInput is the query Strava appends to the redirect.
type StravaCallbackInput struct {
	Code  string `query:"code"`
	State string `query:"state"`
	Scope string `query:"scope"`
	Error string `query:"error"`
}

// StravaCallbackOutput is an HTML page.
type StravaCallbackOutput struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// StravaConnectRequest carries a captured authorization code.
type StravaConnectRequest struct {
	Code  string `json:"code" minLength:"1"`
	State string `json:"state,omitempty"`
}

// StravaConnectInput wraps the connect request for Huma.
type StravaConnectInput struct {
	Body StravaConnectRequest
}

// StravaActivitiesInput limits the listing.
type StravaActivitiesInput struct {
	Limit int `query:"limit" minimum:"0" maximum:"200" doc:"Defaults to 30"`
}

// StravaActivitiesResponse is a list of Strava activities.
type StravaActivitiesResponse struct {
	Activities []domain.StravaActivity `json:"activities"`
}

// StravaActivitiesOutput wraps the listing for Huma.
type StravaActivitiesOutput struct {
	Body StravaActivitiesResponse
}

// StravaImportRequest selects what to import.
type StravaImportRequest struct {
	ValueID string `json:"value_id,omitempty" doc:"Value to log against; defaults to the saved default"`
	Limit   int    `json:"limit,omitempty" minimum:"0" maximum:"200"`
}

// StravaImportInput wraps the import request for Huma.
type StravaImportInput struct {
	Body StravaImportRequest
}

// StravaImportResponse reports how many activities were new.
type StravaImportResponse struct {
	Imported int `json:"imported"`
}

// StravaImportOutput wraps the import result for Huma.
type StravaImportOutput struct {
	Body StravaImportResponse
}

// DefaultValueBody names the default import value.
type DefaultValueBody struct {
	ValueID string `json:"value_id"`
}

// DefaultValueInput wraps the default value for Huma.
type DefaultValueInput struct {
	Body DefaultValueBody
}

// DefaultValueOutput wraps the default value for Huma.
type DefaultValueOutput struct {
	Body DefaultValueBody
}

// === Handlers ===

func (s *Server) handleStravaStatus(ctx context.Context, _ *struct{}) (*StravaStatusOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	status, err := s.services.Strava.Status(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StravaStatusOutput{Body: status}, nil
}

func (s *Server) handleStravaAuthorize(ctx context.Context, input *StravaAuthorizeInput) (*StravaAuthorizeOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	u, err := s.services.Strava.AuthorizationURL(ctx, userID, input.RedirectURI)
	if err != nil {
		return nil, err
	}
	return &StravaAuthorizeOutput{Body: StravaAuthorizeResponse{URL: u}}, nil
}

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Tug · Strava</title></head>
<body style="font-family: system-ui, sans-serif; max-width: 32rem; margin: 4rem auto;">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .Home}}<p><a href="{{.Home}}">Back to Tug</a></p>{{end}}
</body>
</html>
`))

type callbackView struct {
	Title   string
	Message string
	Home    string
}

func (s *Server) handleStravaCallback(ctx context.Context, input *StravaCallbackInput) (*StravaCallbackOutput, error) {
	q := url.Values{}
	for k, v := range map[string]string{"code": input.Code, "state": input.State, "scope": input.Scope, "error": input.Error} {
		if v != "" {
			q.Set(k, v)
		}
	}

	view := callbackView{
		Title:   "Strava connected",
		Message: "You can close this window and return to Tug.",
		Home:    s.opts.PublicURL,
	}
	status := http.StatusOK

	userID, err := s.services.Strava.HandleCallback(ctx, q)
	if err != nil {
		s.logger.Warn("strava callback failed", "error", err)
		view.Title = "Strava connection failed"
		view.Message = "Something went wrong while linking Strava. Please try again."
		status = http.StatusBadGateway
		var domainErr *domainerrors.Error
		if errors.As(err, &domainErr) {
			view.Message = domainErr.Message
			status = domainErr.HTTPStatus()
		}
		if flow.IsRedirectError(err) {
			view.Message = "Strava did not authorize Tug. Start the connection again from the app."
		}
	} else {
		s.logger.Info("strava connected via callback", "user_id", userID)
	}

	var buf bytes.Buffer
	if err := callbackPage.Execute(&buf, view); err != nil {
		return nil, err
	}
	return &StravaCallbackOutput{
		Status:      status,
		ContentType: "text/html; charset=utf-8",
		Body:        buf.Bytes(),
	}, nil
}

func (s *Server) handleStravaConnect(ctx context.Context, input *StravaConnectInput) (*StravaStatusOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	status, err := s.services.Strava.ConnectWithState(ctx, userID, input.Body.Code, input.Body.State)
	if err != nil {
		return nil, err
	}
	return &StravaStatusOutput{Body: status}, nil
}

func (s *Server) handleStravaDisconnect(ctx context.Context, _ *struct{}) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Strava.Disconnect(ctx, userID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleStravaActivities(ctx context.Context, input *StravaActivitiesInput) (*StravaActivitiesOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	activities, err := s.services.Strava.GetActivities(ctx, userID, input.Limit)
	if err != nil {
		return nil, err
	}
	if activities == nil {
		activities = []domain.StravaActivity{}
	}
	return &StravaActivitiesOutput{Body: StravaActivitiesResponse{Activities: activities}}, nil
}

func (s *Server) handleStravaImport(ctx context.Context, input *StravaImportInput) (*StravaImportOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.services.Strava.SyncRecent(ctx, userID, input.Body.ValueID, input.Body.Limit)
	if err != nil {
		return nil, err
	}
	return &StravaImportOutput{Body: StravaImportResponse{Imported: n}}, nil
}

func (s *Server) handleGetStravaDefaultValue(ctx context.Context, _ *struct{}) (*DefaultValueOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	valueID, err := s.services.Strava.GetDefaultValueID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &DefaultValueOutput{Body: DefaultValueBody{ValueID: valueID}}, nil
}

func (s *Server) handleSetStravaDefaultValue(ctx context.Context, input *DefaultValueInput) (*DefaultValueOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Strava.SetDefaultValueID(ctx, userID, input.Body.ValueID); err != nil {
		return nil, err
	}
	return &DefaultValueOutput{Body: DefaultValueBody{ValueID: input.Body.ValueID}}, nil
}
