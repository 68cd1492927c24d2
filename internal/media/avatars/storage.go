// Package avatars stores profile pictures and computes their BlurHash
// placeholders.
package avatars

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
)

// MaxSize caps an uploaded avatar.
const MaxSize = 5 << 20

var (
	// ErrUnsupportedType is returned for uploads that are not JPEG, PNG, GIF or WebP.
	ErrUnsupportedType = errors.New("unsupported image type")
	// ErrTooLarge is returned for uploads above MaxSize.
	ErrTooLarge = errors.New("image too large")
	// ErrEmpty is returned for zero-length uploads.
	ErrEmpty = errors.New("image data cannot be empty")
)

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Storage keeps one avatar file per user under {dataPath}/avatars.
// Safe for concurrent use.
type Storage struct {
	dir string
	mu  sync.RWMutex
}

// NewStorage creates the avatars directory under dataPath.
func NewStorage(dataPath string) (*Storage, error) {
	if dataPath == "" {
		return nil, errors.New("data path cannot be empty")
	}

	dir := filepath.Join(dataPath, "avatars")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create avatars directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Sniff returns the MIME type of data, or ErrUnsupportedType.
func Sniff(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmpty
	}
	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	return contentType, nil
}

// Save replaces userID's avatar with data and returns the stored path.
func (s *Storage) Save(userID string, data []byte) (string, error) {
	if userID == "" {
		return "", errors.New("user ID cannot be empty")
	}
	if len(data) > MaxSize {
		return "", ErrTooLarge
	}
	contentType, err := Sniff(data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A user switching formats would otherwise leave the old file behind.
	if err := s.removeLocked(userID); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, userID+extensions[contentType])
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write avatar: %w", err)
	}
	return path, nil
}

// Get returns userID's avatar bytes and MIME type.
func (s *Storage) Get(userID string) ([]byte, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, ok := s.findLocked(userID)
	if !ok {
		return nil, "", fmt.Errorf("avatar for %s: %w", userID, os.ErrNotExist)
	}
	//#nosec G304 -- path built from the avatars directory and a known extension
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read avatar: %w", err)
	}
	return data, http.DetectContentType(data), nil
}

// Exists reports whether userID has an avatar on disk.
func (s *Storage) Exists(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.findLocked(userID)
	return ok
}

// Delete removes userID's avatar. Deleting a missing avatar is not an error.
func (s *Storage) Delete(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(userID)
}

func (s *Storage) findLocked(userID string) (string, bool) {
	if userID == "" {
		return "", false
	}
	for _, ext := range extensions {
		path := filepath.Join(s.dir, userID+ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func (s *Storage) removeLocked(userID string) error {
	for _, ext := range extensions {
		err := os.Remove(filepath.Join(s.dir, userID+ext))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete avatar: %w", err)
		}
	}
	return nil
}
