package config

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"

	"github.com/joho/godotenv"

	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

// envFiles are loaded in order; the first file to set a variable wins and the
// process environment always takes precedence.
var envFiles = []string{".env.local", ".env"}

func loadEnvFiles(dir string) error {
	for _, name := range envFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return serrors.FileSystemError("stat", path, err)
		}
		if err := godotenv.Load(path); err != nil {
			return serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityError, "load "+name)
		}
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references. Bare $name is left alone so regex
// backreferences and template variables survive.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(ref[2 : len(ref)-1])
	})
}
