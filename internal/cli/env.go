package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// EnvFileVar points at an env file that wins over the --env flag.
const EnvFileVar = "PAGETRANS_ENV_FILE"

// EnvLoader loads .env files with a predictable override order.
type EnvLoader struct {
	value       *string
	defaultPath string
	logger      zerolog.Logger
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(fs *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if fs == nil {
		fs = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	value := fs.String("env", defaultPath, description)
	return &EnvLoader{
		value:       value,
		defaultPath: defaultPath,
		logger:      zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

// Load resolves and loads environment variables using the configured flag
// value. A missing file is not an error when the flag was left at its default;
// every setting has a built-in default.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	if custom := strings.TrimSpace(os.Getenv(EnvFileVar)); custom != "" {
		if err := godotenv.Overload(custom); err == nil {
			l.logger.Debug().Str("path", custom).Str("via", EnvFileVar).Msg("loaded environment")
			return custom, nil
		}
		l.logger.Warn().Str("path", custom).Str("via", EnvFileVar).Msg("failed to load environment file")
	}

	requested := strings.TrimSpace(derefString(l.value))
	if requested == "" {
		requested = l.defaultPath
	}

	if err := godotenv.Overload(requested); err == nil {
		l.logger.Debug().Str("path", requested).Msg("loaded environment")
		return requested, nil
	}

	base := filepath.Base(requested)
	if base != "" && base != requested {
		if err := godotenv.Overload(base); err == nil {
			l.logger.Debug().Str("path", base).Msg("loaded environment from basename fallback")
			return base, nil
		}
	}

	if requested != l.defaultPath {
		return "", fmt.Errorf("failed to load env file from %s", requested)
	}
	return "", nil
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
