package cli

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Config holds CLI configuration
type Config struct {
	ServerURL  string
	CookieFile string
	CookieName string
	Output     string

	// session is the stored session token, if any
	session string
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		ServerURL:  getEnvOrDefault("DORMOCTL_SERVER", "http://localhost:8080"),
		CookieFile: getEnvOrDefault("DORMOCTL_COOKIE_FILE", defaultCookieFile()),
		CookieName: getEnvOrDefault("DORMOCTL_COOKIE_NAME", ".Dormo.Session"),
		Output:     "text",
	}
}

// LoadSession loads the session token from the cookie file
func (c *Config) LoadSession() error {
	data, err := os.ReadFile(c.CookieFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // No cookie file is fine
		}
		return err
	}

	c.session = strings.TrimSpace(string(data))
	return nil
}

// SaveSession writes the session token to the cookie file
func (c *Config) SaveSession(token string) error {
	c.session = token

	dir := filepath.Dir(c.CookieFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.CookieFile, []byte(token), 0600)
}

// ClearSession removes the cookie file
func (c *Config) ClearSession() error {
	c.session = ""
	if err := os.Remove(c.CookieFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Session returns the stored session token
func (c *Config) Session() string {
	return c.session
}

func defaultCookieFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dormo/session"
	}
	return filepath.Join(home, ".dormo", "session")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
