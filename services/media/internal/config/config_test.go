package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithMemoryDriver(t *testing.T) {
	path := writeConfig(t, "storeDriver: memory\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "4000" {
		t.Fatalf("expected default port 4000, got %q", cfg.Port)
	}
	if cfg.MaxUploadBytes != 2<<30 {
		t.Fatalf("expected 2GiB upload limit, got %d", cfg.MaxUploadBytes)
	}
	if len(cfg.CORSOrigins) != 4 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected default cors origins: %v", cfg.CORSOrigins)
	}
	if cfg.BlobDriver != "file" || cfg.UploadDir != "uploads" {
		t.Fatalf("unexpected blob defaults: %s %s", cfg.BlobDriver, cfg.UploadDir)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "port: \"5000\"\nstoreDriver: memory\n")
	t.Setenv("PORT", "6000")
	t.Setenv("CORS_ORIGIN", "https://a.example, https://b.example,")
	t.Setenv("FILE_BASE_URL", "https://cdn.example")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "6000" {
		t.Fatalf("expected env port, got %q", cfg.Port)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.CORSOrigins)
	}
	if cfg.FileBaseURL != "https://cdn.example" {
		t.Fatalf("unexpected file base url: %q", cfg.FileBaseURL)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreDriver != "mongo" || cfg.MongoURI == "" {
		t.Fatalf("expected mongo driver from env, got %+v", cfg)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "mongo without uri", body: "storeDriver: mongo\n"},
		{name: "postgres without dsn", body: "storeDriver: postgres\n"},
		{name: "unknown store", body: "storeDriver: sqlite\n"},
		{name: "minio without bucket", body: "storeDriver: memory\nblobDriver: minio\nminioEndpoint: localhost:9000\n"},
		{name: "unknown blob", body: "storeDriver: memory\nblobDriver: ftp\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("MONGO_URI", "")
			t.Setenv("DATABASE_URL", "")
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
