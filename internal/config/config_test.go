package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/mind-engage/fitness-records/internal/config"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "DB_DRIVER", "IMPORT_WORKERS", "MAX_UPLOAD_BYTES", "DEV", "CORS_ORIGINS_OFFLINE"} {
		t.Setenv(k, "")
	}
	c := config.FromEnv()
	if c.Mode != config.ModeOffline || c.HTTPAddr != ":8080" || c.DBDriver != "sqlite" {
		t.Fatalf("defaults: %+v", c)
	}
	if c.Workers != 0 || c.MaxUploadBytes != 10<<20 || !c.Dev {
		t.Fatalf("defaults: %+v", c)
	}
	if want := []string{"http://localhost:3000", "http://localhost:5173"}; !reflect.DeepEqual(c.CORSOrigins(), want) {
		t.Fatalf("origins = %v", c.CORSOrigins())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("IMPORT_WORKERS", "8")
	t.Setenv("DEV", "no")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")
	c := config.FromEnv()
	if c.Workers != 8 || c.Dev {
		t.Fatalf("overrides: %+v", c)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(c.CORSOrigins(), want) {
		t.Fatalf("origins = %v", c.CORSOrigins())
	}
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("SCHOOL_CODE", "")
	t.Setenv("STANDARDS_PATH", "/from/env.json")
	os.Unsetenv("SCHOOL_CODE")
	f := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(f, []byte("SCHOOL_CODE=S042\nSTANDARDS_PATH=/from/file.json\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c := config.Load(f)
	if c.SchoolCode != "S042" {
		t.Fatalf("school code = %q", c.SchoolCode)
	}
	if c.StandardsPath != "/from/env.json" {
		t.Fatalf("environment must win over .env, got %q", c.StandardsPath)
	}
}
