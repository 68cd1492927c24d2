package domain

import "time"

// StravaConnection is a user's linked Strava account.
type StravaConnection struct {
	UserID         string    `json:"user_id"`
	AthleteID      int64     `json:"athlete_id"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	TokenType      string    `json:"-"`
	Expiry         time.Time `json:"-"`
	Scope          string    `json:"scope,omitempty"`
	DefaultValueID string    `json:"default_value_id,omitempty"`
	ConnectedAt    time.Time `json:"connected_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// StravaActivity is an activity as listed by Strava.
type StravaActivity struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	SportType   string    `json:"sport_type"`
	StartDate   time.Time `json:"start_date"`
	MovingTime  int       `json:"moving_time"`  // seconds
	ElapsedTime int       `json:"elapsed_time"` // seconds
	Distance    float64   `json:"distance"`     // meters
}

// Minutes returns the moving time rounded to the nearest minute, at least one.
func (a StravaActivity) Minutes() int {
	secs := a.MovingTime
	if secs <= 0 {
		secs = a.ElapsedTime
	}
	m := (secs + 30) / 60
	if m < 1 {
		m = 1
	}
	return m
}
