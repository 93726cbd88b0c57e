package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string
	DBDSN    string

	BlobBasePath string // uploaded spreadsheets are archived here

	// StandardsPath is a JSON scoring table; empty runs on the clamp fallback.
	StandardsPath  string
	Workers        int
	MaxUploadBytes int64
	SchoolCode     string

	LogLevel string
	Dev      bool // human-readable logs

	CORSOriginsOnline  []string
	CORSOriginsOffline []string
}

// Load reads an optional .env file and then the environment. Variables
// already set in the environment win over the file.
func Load(files ...string) Config {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		BlobBasePath:       envOr("BLOB_BASE_PATH", "./data"),
		StandardsPath:      os.Getenv("STANDARDS_PATH"),
		Workers:            envInt("IMPORT_WORKERS", 0),
		MaxUploadBytes:     int64(envInt("MAX_UPLOAD_BYTES", 10<<20)),
		SchoolCode:         os.Getenv("SCHOOL_CODE"),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		Dev:                envBool("DEV", mode == ModeOffline),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://fitness.example.edu"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),
	}
}

// CORSOrigins picks the origin list for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
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
