package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testDatabaseID = "0123456789abcdef0123456789abcdef"

var envKeys = []string{
	"NOTION_TOKEN", "NOTION_DATABASE_ID", "NOTION_API_URL", "NOTION_RATE_LIMIT",
	"DB_TYPE", "DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD", "DB_SSLMODE",
	"DB_QUERY", "DB_TABLE", "SQLITE_DB_PATH", "MONGO_CONNECTION_STRING", "DB_COLLECTION",
	"DB_MARK_SYNCED", "REDIS_URL", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_TOKEN", "secret_abc")
	t.Setenv("NOTION_DATABASE_ID", testDatabaseID)
	t.Setenv("DB_TYPE", "MySQL")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "scraper")
	t.Setenv("DB_USER", "sync")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_QUERY", "SELECT uid, name FROM leads")
	t.Setenv("DB_MARK_SYNCED", "yes")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Notion.Token != "secret_abc" {
		t.Fatalf("expected notion token override")
	}
	if cfg.Notion.DatabaseID != "01234567-89ab-cdef-0123-456789abcdef" {
		t.Fatalf("expected normalized database id, got %s", cfg.Notion.DatabaseID)
	}
	if cfg.Database.Type != DBMySQL {
		t.Fatalf("expected mysql, got %s", cfg.Database.Type)
	}
	if cfg.Database.Port != 3306 {
		t.Fatalf("expected mysql default port, got %d", cfg.Database.Port)
	}
	if cfg.Database.Host != "db.internal" || cfg.Database.Name != "scraper" || cfg.Database.User != "sync" || cfg.Database.Password != "pw" {
		t.Fatalf("expected database connection overrides")
	}
	if cfg.Database.Query != "SELECT uid, name FROM leads" {
		t.Fatalf("expected query override")
	}
	if !cfg.Database.MarkSynced {
		t.Fatalf("expected mark synced")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected log level override")
	}
	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("expected redis url override")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_TOKEN", "secret_abc")
	t.Setenv("NOTION_DATABASE_ID", testDatabaseID)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Type != DBPostgres || cfg.Database.Port != 5432 {
		t.Fatalf("expected postgresql on 5432, got %s:%d", cfg.Database.Type, cfg.Database.Port)
	}
	if cfg.Database.Query != DefaultQuery {
		t.Fatalf("expected default query")
	}
	if cfg.Mapping.KeyProperty() != "UID" {
		t.Fatalf("expected default key property")
	}
	if cfg.Notion.RateLimit != 3 {
		t.Fatalf("expected default rate limit")
	}
}

func TestLoadRequiresNotionCredentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_TOKEN", "")
	t.Setenv("NOTION_DATABASE_ID", "")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error without notion credentials")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "database type", env: map[string]string{"DB_TYPE": "oracle"}},
		{name: "port", env: map[string]string{"DB_PORT": "abc"}},
		{name: "database id", env: map[string]string{"NOTION_DATABASE_ID": "not-an-id"}},
		{name: "rate limit", env: map[string]string{"NOTION_RATE_LIMIT": "fast"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("NOTION_TOKEN", "secret_abc")
			t.Setenv("NOTION_DATABASE_ID", testDatabaseID)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "notionsync.yaml")
	data := []byte(`
notion:
  token: from-file
  database_id: ` + testDatabaseID + `
  timeout: 5s
database:
  type: sqlite
  sqlite_path: /var/lib/scraper.db
mapping:
  properties:
    - {name: Title, field: name, type: title}
    - {name: Record ID, field: uid, type: rich_text}
    - {name: Stage, field: status, type: select}
  update_fields: [status]
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("NOTION_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Notion.Token != "from-env" {
		t.Fatalf("expected env to win over file, got %s", cfg.Notion.Token)
	}
	if cfg.Notion.Timeout.Seconds() != 5 {
		t.Fatalf("expected timeout from file, got %s", cfg.Notion.Timeout)
	}
	if cfg.Database.Type != DBSQLite || cfg.Database.SQLitePath != "/var/lib/scraper.db" {
		t.Fatalf("expected sqlite settings from file")
	}
	if len(cfg.Mapping.Properties) != 3 || cfg.Mapping.KeyProperty() != "Record ID" {
		t.Fatalf("expected mapping from file, got %+v", cfg.Mapping)
	}
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_TOKEN", "secret_abc")
	t.Setenv("NOTION_DATABASE_ID", testDatabaseID)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("expected missing file to be ignored: %v", err)
	}
}
