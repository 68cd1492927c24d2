package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/http/response"
	"github.com/tugapp/tug/internal/store"
)

// APIError is a custom error type that implements huma.StatusError.
// It maps domain errors to HTTP responses with consistent structure.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler configures huma to use domain errors.
// Call this after creating the huma.API but before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		var details []string
		for _, err := range errs {
			var domainErr *domainerrors.Error
			if errors.As(err, &domainErr) {
				return &APIError{
					status:  domainErr.HTTPStatus(),
					Code:    string(domainErr.Code),
					Message: domainErr.Message,
					Details: domainErr.Details,
				}
			}

			var storeErr *store.Error
			if errors.As(err, &storeErr) {
				return &APIError{
					status:  storeErr.HTTPCode(),
					Code:    string(domainerrors.CodeFromStatus(storeErr.HTTPCode())),
					Message: storeErr.Message,
				}
			}

			// Request validation failures from huma itself.
			var detailer huma.ErrorDetailer
			if errors.As(err, &detailer) {
				if d := detailer.ErrorDetail(); d != nil {
					details = append(details, d.Error())
				}
			}
		}

		apiErr := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		if len(details) > 0 {
			apiErr.Details = details
		}
		if status >= http.StatusInternalServerError && apiErr.Code == string(domainerrors.CodeInternal) {
			// Never leak wrapped driver or filesystem errors.
			apiErr.Message = "internal server error"
		}
		return apiErr
	}
}

// statusToCode maps HTTP status codes to our domain error codes.
func statusToCode(status int) string {
	return string(domainerrors.CodeFromStatus(status))
}

// EnvelopeTransformer wraps every JSON response body in the shared
// envelope. Raw byte bodies (images, the OAuth landing page) pass through.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case []byte:
		return v, nil
	case response.Envelope, *response.Envelope:
		return v, nil
	case *APIError:
		return response.Fail(domainerrors.Code(body.Code), body.Message, body.Details), nil
	case *huma.ErrorModel:
		return response.Fail(domainerrors.CodeFromStatus(body.Status), body.Detail, nil), nil
	}
	return response.Ok(v), nil
}
