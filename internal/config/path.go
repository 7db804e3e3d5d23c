// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ and $VAR style environment variables in a
// file path. Book and entity map paths from the config file go through this
// before use.
func ExpandPath(path string) string {
	switch {
	case path == "":
		return path
	case path == "~":
		if home, err := os.UserHomeDir(); err == nil {
			path = home
		}
	case strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// DefaultMapPath returns the conventional entity map location next to the
// book file: <book-dir>/entity_map.yaml.
func DefaultMapPath(bookPath string) string {
	return filepath.Join(filepath.Dir(bookPath), "entity_map.yaml")
}
