package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFile loads a .env file from the working directory when present.
// Values already set in the environment win over file values.
func loadEnvFile() {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		return
	}
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file could not be loaded", "error", err)
	}
}

// TokenFromEnv returns the GitHub token used for pages pushes and
// workflow dispatch. An empty string means deployment cannot proceed.
func TokenFromEnv() string {
	return os.Getenv("GITHUB_TOKEN")
}

// VersionFromEnv returns the release version injected by the CI environment.
func VersionFromEnv() string {
	return os.Getenv("VERSION")
}
