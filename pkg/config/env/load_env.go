package env

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads environment variables from a .env file. ENV_PATH
// overrides the default location. A missing file is fatal only in local
// mode; deployed environments carry their variables directly.
func LoadDotEnv(env string, defaultPath string) error {
	envPath := os.Getenv("ENV_PATH")
	if envPath == "" {
		slog.Info("ENV_PATH is not set, using default path", "defaultPath", defaultPath)
		envPath = defaultPath
	}

	if err := godotenv.Load(envPath); err != nil {
		if env == "local" || env == "" {
			slog.Error("Failed to load .env file in local mode", "path", envPath, "error", err)
			return err
		}
		slog.Debug("No .env file, relying on process environment", "path", envPath)
	}

	return nil
}
