package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	DBDriver string
	DBDSN    string

	// Telegram transport.
	BotToken       string
	AdminIDs       []int64
	PollTimeoutSec int

	// Admin HTTP API token. Empty disables the check (dev only).
	AdminToken string

	// Where accepted import documents are archived.
	ArchiveDir string

	CORSOrigins []string
}

func FromEnv() Config {
	return Config{
		HTTPAddr:       envOr("HTTP_ADDR", ":8080"),
		DBDriver:       envOr("DB_DRIVER", "sqlite"),
		DBDSN:          os.Getenv("DB_DSN"),
		BotToken:       os.Getenv("BOT_TOKEN"),
		AdminIDs:       csvInt64("ADMIN_IDS"),
		PollTimeoutSec: envInt("POLL_TIMEOUT_SEC", 10),
		AdminToken:     os.Getenv("ADMIN_TOKEN"),
		ArchiveDir:     envOr("ARCHIVE_DIR", "./data/imports"),
		CORSOrigins:    csvOr("CORS_ORIGINS", "http://localhost:3000"),
	}
}

// IsAdmin reports whether userID is on the admin allow-list.
func (c Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return v
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func csvInt64(k string) []int64 {
	var out []int64
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}
