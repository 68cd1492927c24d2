// Package store defines the persistence interface for the Tug server.
package store

import (
	"context"
	"time"

	"github.com/tugapp/tug/internal/domain"
)

// CommunityStat is the community total for one value name within a window.
type CommunityStat struct {
	TotalMinutes int
	Users        int // distinct users who logged time against the name
}

// Average returns the mean minutes per participating user, rounded down.
func (c CommunityStat) Average() int {
	if c.Users == 0 {
		return 0
	}
	return c.TotalMinutes / c.Users
}

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	// User Profiles
	GetUserProfile(ctx context.Context, userID string) (*domain.UserProfile, error)
	SaveUserProfile(ctx context.Context, profile *domain.UserProfile) error

	// Values
	CreateValue(ctx context.Context, value *domain.Value) error
	GetValue(ctx context.Context, userID, id string) (*domain.Value, error)
	ListValues(ctx context.Context, userID string, kind domain.ValueKind, activeOnly bool) ([]domain.Value, error)
	UpdateValue(ctx context.Context, value *domain.Value) error
	DeleteValue(ctx context.Context, userID, id string) error

	// Activities
	CreateActivity(ctx context.Context, activity *domain.ActivityRecord) error
	ListActivities(ctx context.Context, userID string, start, end time.Time) ([]domain.ActivityRecord, error)
	DeleteActivity(ctx context.Context, userID, id string) error
	ActivityExistsByExternalID(ctx context.Context, userID string, source domain.ActivitySource, externalID string) (bool, error)
	ActivityStatistics(ctx context.Context, userID string, start, end time.Time) (domain.ActivityStatistics, error)
	SumMinutesByValue(ctx context.Context, userID string, start, end time.Time) (map[string]int, error)
	CommunityMinutesByValueName(ctx context.Context, start, end time.Time) (map[string]CommunityStat, error)

	// Strava
	GetStravaConnection(ctx context.Context, userID string) (*domain.StravaConnection, error)
	SaveStravaConnection(ctx context.Context, conn *domain.StravaConnection) error
	DeleteStravaConnection(ctx context.Context, userID string) error

	// Account removal
	DeleteUserData(ctx context.Context, userID string) error
}
