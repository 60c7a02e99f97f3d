package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves environment variables and a leading ~ in a
// user-supplied path, such as the configured database file or attachment
// directory. A ~ anywhere but the start is left alone.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(path)

	if expanded == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, expanded[2:]), nil
	}
	return expanded, nil
}
