package feed

import (
	"fmt"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/errors"
)

// Credentials authenticate a script application against the Reddit API.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	Username     string
	Password     string
}

// LoadCredentials reads a file of exactly five lines: client id, client
// secret, user agent, username, password.
func LoadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: reading credentials: %v", apperrors.ErrConfiguration, err)
	}
	lines := strings.Split(strings.TrimSuffix(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n"), "\n")
	if len(lines) != 5 {
		return Credentials{}, fmt.Errorf("%w: credentials file %s has %d lines, want 5", apperrors.ErrConfiguration, path, len(lines))
	}
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
		if lines[i] == "" {
			return Credentials{}, fmt.Errorf("%w: credentials file %s: line %d is empty", apperrors.ErrConfiguration, path, i+1)
		}
	}
	return Credentials{
		ClientID:     lines[0],
		ClientSecret: lines[1],
		UserAgent:    lines[2],
		Username:     lines[3],
		Password:     lines[4],
	}, nil
}
