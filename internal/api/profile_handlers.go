package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/tugapp/tug/internal/domain"
	"github.com/tugapp/tug/internal/service"
)

func (s *Server) registerProfileRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/profile",
		Summary:     "Get profile",
		Tags:        []string{"Profile"},
		Security:    bearerAuth,
	}, s.handleGetProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateProfile",
		Method:      http.MethodPatch,
		Path:        "/api/v1/profile",
		Summary:     "Update profile",
		Tags:        []string{"Profile"},
		Security:    bearerAuth,
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "uploadProfilePicture",
		Method:      http.MethodPut,
		Path:        "/api/v1/profile/picture",
		Summary:     "Upload profile picture",
		Description: "Stores a base64 image (raw or data URL) as the avatar. JPEG, PNG, GIF and WebP are accepted.",
		Tags:        []string{"Profile"},
		Security:    bearerAuth,
	}, s.handleUploadProfilePicture)

	huma.Register(s.api, huma.Operation{
		OperationID: "getProfilePicture",
		Method:      http.MethodGet,
		Path:        "/api/v1/profile/picture",
		Summary:     "Get profile picture",
		Tags:        []string{"Profile"},
		Security:    bearerAuth,
	}, s.handleGetProfilePicture)
}

// === DTOs ===

// ProfileOutput wraps a profile for Huma.
type ProfileOutput struct {
	Body *domain.UserProfile
}

// UpdateProfileRequest is the request body for profile edits.
type UpdateProfileRequest struct {
	DisplayName string  `json:"display_name" minLength:"1" maxLength:"50"`
	Bio         *string `json:"bio,omitempty" maxLength:"280"`
}

// UpdateProfileInput wraps the profile edit for Huma.
type UpdateProfileInput struct {
	Body UpdateProfileRequest
}

// UploadPictureRequest carries the encoded image.
type UploadPictureRequest struct {
	Image string `json:"image" minLength:"1" doc:"Base64 image or data URL"`
}

// UploadPictureInput wraps the upload for Huma.
type UploadPictureInput struct {
	Body UploadPictureRequest
}

// PictureOutput streams the stored image.
type PictureOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// === Handlers ===

func (s *Server) handleGetProfile(ctx context.Context, _ *struct{}) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Users.GetCurrentUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: profile}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *UpdateProfileInput) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Users.UpdateUserProfile(ctx, userID, service.UpdateProfileRequest{
		DisplayName: input.Body.DisplayName,
		Bio:         input.Body.Bio,
	})
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: profile}, nil
}

func (s *Server) handleUploadProfilePicture(ctx context.Context, input *UploadPictureInput) (*ProfileOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.services.Users.UploadProfilePicture(ctx, userID, input.Body.Image)
	if err != nil {
		return nil, err
	}
	return &ProfileOutput{Body: profile}, nil
}

func (s *Server) handleGetProfilePicture(ctx context.Context, _ *struct{}) (*PictureOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	data, contentType, err := s.services.Users.GetProfilePicture(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &PictureOutput{
		ContentType:  contentType,
		CacheControl: "private, max-age=300",
		Body:         data,
	}, nil
}
