package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tugapp/tug/internal/domain"
)

// DefaultServer is used when neither the profile nor --server names one.
const DefaultServer = "http://localhost:8080"

// Profile is the CLI's saved session: which server to talk to and the
// token it issued.
type Profile struct {
	Server    string           `yaml:"server"`
	Email     string           `yaml:"email,omitempty"`
	Token     string           `yaml:"token,omitempty"`
	Timeframe domain.Timeframe `yaml:"timeframe,omitempty"`
}

// DefaultProfilePath returns ~/.config/tug/cli.yaml, or the platform's
// equivalent config directory.
func DefaultProfilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config directory: %w", err)
	}
	return filepath.Join(dir, "tug", "cli.yaml"), nil
}

// LoadProfile reads the profile at path. A missing file yields the default
// profile.
func LoadProfile(path string) (*Profile, error) {
	p := &Profile{Server: DefaultServer}

	raw, err := os.ReadFile(path) //#nosec G304 -- profile path is chosen by the user
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if p.Server == "" {
		p.Server = DefaultServer
	}
	if p.Timeframe != "" && !p.Timeframe.Valid() {
		return nil, fmt.Errorf("profile %s: invalid timeframe %q", path, p.Timeframe)
	}
	return p, nil
}

// Save writes the profile with owner-only permissions; it holds a token.
func (p *Profile) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}
	raw, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// SignedIn reports whether the profile holds a token.
func (p *Profile) SignedIn() bool {
	return p.Token != ""
}
