package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tugapp/tug/internal/color"
	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/id"
	"github.com/tugapp/tug/internal/store"
)

// ValueService manages a user's values and vices.
type ValueService struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewValueService creates a new value service.
func NewValueService(store store.Store, logger *slog.Logger) *ValueService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ValueService{store: store, logger: logger, now: time.Now}
}

// CreateValueRequest holds the fields of a new value.
type CreateValueRequest struct {
	Name        string           `json:"name" validate:"required,notblank,maxrunes=50"`
	Importance  int              `json:"importance" validate:"gte=1,lte=5"`
	Color       string           `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Description string           `json:"description,omitempty" validate:"maxrunes=500"`
	Kind        domain.ValueKind `json:"kind,omitempty" validate:"omitempty,valuekind"`
}

// UpdateValueRequest holds a partial update. Nil fields are left unchanged.
type UpdateValueRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,notblank,maxrunes=50"`
	Importance  *int    `json:"importance,omitempty" validate:"omitempty,gte=1,lte=5"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	Description *string `json:"description,omitempty" validate:"omitempty,maxrunes=500"`
	Active      *bool   `json:"active,omitempty"`
}

// ListValues returns the user's values of kind, or of every kind when kind
// is empty.
func (s *ValueService) ListValues(ctx context.Context, userID string, kind domain.ValueKind, activeOnly bool) ([]domain.Value, error) {
	if kind != "" && !kind.Valid() {
		return nil, domainerrors.Validationf("unknown kind %q", kind)
	}
	values, err := s.store.ListValues(ctx, userID, kind, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list values: %w", err)
	}
	return values, nil
}

// GetValue returns one of the user's values.
func (s *ValueService) GetValue(ctx context.Context, userID, valueID string) (*domain.Value, error) {
	v, err := s.store.GetValue(ctx, userID, valueID)
	if err != nil {
		return nil, notFound(err, "value not found")
	}
	return v, nil
}

// CreateValue adds a value. Kind defaults to "value".
func (s *ValueService) CreateValue(ctx context.Context, userID string, req CreateValueRequest) (*domain.Value, error) {
	req.Name = normalizeName(req.Name)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	valueID, err := id.Generate(id.PrefixValue)
	if err != nil {
		return nil, fmt.Errorf("generate value ID: %w", err)
	}

	now := s.now()
	v := &domain.Value{
		ID:          valueID,
		UserID:      userID,
		Name:        req.Name,
		Importance:  req.Importance,
		Color:       req.Color,
		Description: req.Description,
		Kind:        req.Kind,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if v.Color == "" {
		v.Color = color.ForName(v.Name)
	}
	if v.Kind == "" {
		v.Kind = domain.KindValue
	}

	if err := s.store.CreateValue(ctx, v); err != nil {
		return nil, fmt.Errorf("create value: %w", err)
	}

	s.logger.Info("value created", "user_id", userID, "value_id", v.ID, "kind", v.Kind)
	return v, nil
}

// UpdateValue applies a partial update to one of the user's values.
func (s *ValueService) UpdateValue(ctx context.Context, userID, valueID string, req UpdateValueRequest) (*domain.Value, error) {
	if req.Name != nil {
		name := normalizeName(*req.Name)
		req.Name = &name
	}
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	v, err := s.store.GetValue(ctx, userID, valueID)
	if err != nil {
		return nil, notFound(err, "value not found")
	}

	if req.Name != nil {
		v.Name = *req.Name
	}
	if req.Importance != nil {
		v.Importance = *req.Importance
	}
	if req.Color != nil {
		v.Color = *req.Color
	}
	if req.Description != nil {
		v.Description = *req.Description
	}
	if req.Active != nil {
		v.Active = *req.Active
	}
	v.UpdatedAt = s.now()

	if err := s.store.UpdateValue(ctx, v); err != nil {
		return nil, notFound(err, "value not found")
	}
	return v, nil
}

// DeleteValue removes a value together with the activities logged against it.
func (s *ValueService) DeleteValue(ctx context.Context, userID, valueID string) error {
	if err := s.store.DeleteValue(ctx, userID, valueID); err != nil {
		return notFound(err, "value not found")
	}
	s.logger.Info("value deleted", "user_id", userID, "value_id", valueID)
	return nil
}
