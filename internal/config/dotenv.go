package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv seeds the process environment from dotenv files before Load
// applies its overrides (PORT, REDIS_HOST, INGEST_API_KEY, TRACKING_*).
// Precedence, highest first: real environment, .env.local, .env.
// godotenv.Load never overwrites a variable that is already set, so a
// collector deployed with explicit env vars ignores both files.
// Returns the files that were found and loaded.
func LoadDotEnv() []string {
	var found []string
	for _, f := range []string{".env.local", ".env"} {
		if _, err := os.Stat(f); err == nil {
			found = append(found, f)
		}
	}
	if len(found) == 0 {
		return nil
	}
	_ = godotenv.Load(found...)
	return found
}
