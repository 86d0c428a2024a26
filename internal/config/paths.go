package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".hoststat", "config.yaml"),
		"/etc/hoststat/config.yaml",
	}
}
