// Package main seeds a Tug database with demo users, values and activities.
//
// Every demo user shares the same value names, so community averages on the
// dashboard have data to compare against.
//
// Usage:
//
//	DATA_PATH=~/Tug/data go run ./cmd/seed
//	DATA_PATH=~/Tug/data go run ./cmd/seed --users 5 --days 30
package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"log"
	mrand "math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/tugapp/tug/internal/auth"
	"github.com/tugapp/tug/internal/domain"
	domainerrors "github.com/tugapp/tug/internal/errors"
	"github.com/tugapp/tug/internal/id"
	"github.com/tugapp/tug/internal/logger"
	"github.com/tugapp/tug/internal/service"
	"github.com/tugapp/tug/internal/store/sqlite"
)

const seedPassword = "tug-demo-password"

var (
	numUsers = flag.Int("users", 3, "Number of demo users to create")
	numDays  = flag.Int("days", 14, "Days of activity history to generate")
)

type seedValue struct {
	name       string
	importance int
	kind       domain.ValueKind
	activities []string
}

var seedValues = []seedValue{
	{"Health", 5, domain.KindValue, []string{"Run", "Yoga", "Gym", "Walk"}},
	{"Family", 5, domain.KindValue, []string{"Dinner together", "Park", "Board games"}},
	{"Learning", 4, domain.KindValue, []string{"Reading", "Course", "Practice"}},
	{"Creativity", 3, domain.KindValue, []string{"Sketching", "Guitar", "Writing"}},
	{"Social media", 2, domain.KindVice, []string{"Scrolling"}},
}

func main() {
	flag.Parse()

	dataPath := os.Getenv("DATA_PATH")
	if dataPath == "" {
		dataPath = os.ExpandEnv("$HOME/Tug/data")
	}
	if err := os.MkdirAll(dataPath, 0o750); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dbPath := filepath.Join(dataPath, "tug.db")
	fmt.Printf("Opening database at: %s\n", dbPath)

	slogger := logger.Discard().Logger
	s, err := sqlite.Open(dbPath, slogger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer s.Close()

	// Seed tokens are thrown away; a throwaway key is enough.
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("Failed to generate key: %v", err)
	}
	tokens, err := auth.NewTokenService(key, time.Hour)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	authService := service.NewAuthService(s, tokens, slogger)
	defer authService.Close()
	values := service.NewValueService(s, slogger)

	ctx := context.Background()
	rng := mrand.New(mrand.NewPCG(uint64(time.Now().UnixNano()), 0x7e9))

	for n := 1; n <= *numUsers; n++ {
		email := fmt.Sprintf("demo%d@tug.local", n)
		userID, err := ensureUser(ctx, authService, email, fmt.Sprintf("Demo %d", n))
		if err != nil {
			log.Printf("Failed to create user %s: %v", email, err)
			continue
		}
		fmt.Printf("\nSeeding data for user: %s (%s)\n", email, userID)

		created, err := ensureValues(ctx, values, userID)
		if err != nil {
			log.Printf("Failed to create values for %s: %v", email, err)
			continue
		}

		count, minutes := 0, 0
		now := time.Now()
		for day := *numDays - 1; day >= 0; day-- {
			// Skip roughly one day in five so histories differ.
			if day > 0 && rng.Float32() > 0.8 {
				continue
			}
			for range 1 + rng.IntN(3) {
				sv := seedValues[rng.IntN(len(seedValues))]
				v, ok := created[sv.name]
				if !ok {
					continue
				}
				start := time.Date(now.Year(), now.Month(), now.Day()-day, 6+rng.IntN(16), rng.IntN(60), 0, 0, time.Local)
				if start.After(now) {
					start = now.Add(-time.Duration(1+rng.IntN(60)) * time.Minute)
				}
				record := &domain.ActivityRecord{
					ID:         id.MustGenerate(id.PrefixActivity),
					UserID:     userID,
					ValueID:    v.ID,
					Name:       sv.activities[rng.IntN(len(sv.activities))],
					Minutes:    10 + rng.IntN(80),
					OccurredAt: start,
					Source:     domain.SourceManual,
					CreatedAt:  now,
				}
				if err := s.CreateActivity(ctx, record); err != nil {
					log.Printf("Failed to create activity: %v", err)
					continue
				}
				count++
				minutes += record.Minutes
			}
		}
		fmt.Printf("  Created %d activities (%d minutes) across %d values\n", count, minutes, len(created))
	}

	fmt.Printf("\nDone. Demo users sign in with password %q\n", seedPassword)
}

// ensureUser registers email, or returns the existing account's ID.
func ensureUser(ctx context.Context, authService *service.AuthService, email, name string) (string, error) {
	resp, err := authService.Register(ctx, service.RegisterRequest{
		Email:       email,
		Password:    seedPassword,
		DisplayName: name,
	})
	if errors.Is(err, domainerrors.ErrAlreadyExists) {
		resp, err = authService.Login(ctx, service.LoginRequest{Email: email, Password: seedPassword})
	}
	if err != nil {
		return "", err
	}
	return resp.User.ID, nil
}

// ensureValues creates any missing seed values and returns all of them by name.
func ensureValues(ctx context.Context, values *service.ValueService, userID string) (map[string]*domain.Value, error) {
	existing, err := values.ListValues(ctx, userID, "", false)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.Value, len(seedValues))
	for i := range existing {
		out[existing[i].Name] = &existing[i]
	}

	for _, sv := range seedValues {
		if _, ok := out[sv.name]; ok {
			continue
		}
		v, err := values.CreateValue(ctx, userID, service.CreateValueRequest{
			Name:       sv.name,
			Importance: sv.importance,
			Kind:       sv.kind,
		})
		if err != nil {
			return nil, fmt.Errorf("create value %q: %w", sv.name, err)
		}
		out[v.Name] = v
	}
	return out, nil
}
