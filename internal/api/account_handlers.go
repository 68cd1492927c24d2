package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tugapp/tug/internal/domain"
)

func (s *Server) registerAccountRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteAccount",
		Method:        http.MethodDelete,
		Path:          "/api/v1/account",
		Summary:       "Delete account",
		Description:   "Re-authenticates with the given credentials, then removes the account and all of its data. WRONG_PASSWORD, USER_MISMATCH and USER_NOT_FOUND report why re-authentication failed.",
		Tags:          []string{"Account"},
		Security:      bearerAuth,
		DefaultStatus: http.StatusNoContent,
		Middlewares:   huma.Middlewares{s.rateLimitByIP(s.authRateLimiter)},
	}, s.handleDeleteAccount)
}

// DeleteAccountRequest carries the re-authentication credential.
type DeleteAccountRequest struct {
	Email    string `json:"email" maxLength:"254"`
	Password string `json:"password" maxLength:"1024"`
}

// DeleteAccountInput wraps the credential for Huma.
type DeleteAccountInput struct {
	Body DeleteAccountRequest
}

func (s *Server) handleDeleteAccount(ctx context.Context, input *DeleteAccountInput) (*struct{}, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	cred := domain.Credential{Email: input.Body.Email, Password: input.Body.Password}
	if err := s.services.Users.DeleteAccount(ctx, userID, cred); err != nil {
		return nil, err
	}
	return nil, nil
}
