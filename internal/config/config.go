package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"notionsync/internal/mapping"
)

const (
	DBPostgres = "postgresql"
	DBMySQL    = "mysql"
	DBSQLite   = "sqlite"
	DBMongo    = "mongodb"
)

const DefaultQuery = `SELECT
	uid, name, status, reviewer_name,
	review_date, next_follow_up, date_added,
	platform, socials
FROM fud_outreach_tracker
WHERE sync_status IS NULL OR sync_status != 'synced'
ORDER BY date_added DESC`

type Config struct {
	Notion struct {
		Token      string        `yaml:"token"`
		DatabaseID string        `yaml:"database_id"`
		APIURL     string        `yaml:"api_url"`
		Version    string        `yaml:"version"`
		RateLimit  float64       `yaml:"rate_limit"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"notion"`
	Database struct {
		Type       string `yaml:"type"`
		Host       string `yaml:"host"`
		Port       int    `yaml:"port"`
		Name       string `yaml:"name"`
		User       string `yaml:"user"`
		Password   string `yaml:"password"`
		SSLMode    string `yaml:"sslmode"`
		Query      string `yaml:"query"`
		Table      string `yaml:"table"`
		SQLitePath string `yaml:"sqlite_path"`
		MongoURI   string `yaml:"mongo_uri"`
		Collection string `yaml:"collection"`
		MarkSynced bool   `yaml:"mark_synced"`
	} `yaml:"database"`
	Mapping mapping.Mapping `yaml:"mapping"`
	Redis   struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func Default() Config {
	var cfg Config
	cfg.Notion.APIURL = "https://api.notion.com/v1"
	cfg.Notion.Version = "2022-06-28"
	cfg.Notion.RateLimit = 3
	cfg.Notion.Timeout = 30 * time.Second
	cfg.Database.Type = DBPostgres
	cfg.Database.Query = DefaultQuery
	cfg.Database.Table = "fud_outreach_tracker"
	cfg.Database.SQLitePath = "database.db"
	cfg.Database.Collection = "fud_outreach_tracker"
	cfg.Mapping = mapping.Default()
	cfg.Log.Level = "info"
	return cfg
}

// Load reads the optional YAML file at path, applies environment overrides
// and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Notion.Token == "" || c.Notion.DatabaseID == "" {
		return errors.New("NOTION_TOKEN and NOTION_DATABASE_ID must be provided in the config file or environment")
	}
	id, err := uuid.Parse(c.Notion.DatabaseID)
	if err != nil {
		return fmt.Errorf("invalid notion database id %q: %w", c.Notion.DatabaseID, err)
	}
	c.Notion.DatabaseID = id.String()

	c.Database.Type = strings.ToLower(strings.TrimSpace(c.Database.Type))
	switch c.Database.Type {
	case "postgres":
		c.Database.Type = DBPostgres
	case "mongo":
		c.Database.Type = DBMongo
	case "sqlite3":
		c.Database.Type = DBSQLite
	}
	switch c.Database.Type {
	case DBPostgres, DBMySQL, DBSQLite, DBMongo:
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if c.Database.Port == 0 {
		c.Database.Port = defaultPort(c.Database.Type)
	}
	if c.Database.Type == DBMongo && c.Database.Name == "" {
		return errors.New("mongodb requires DB_NAME")
	}
	if strings.TrimSpace(c.Database.Query) == "" {
		c.Database.Query = DefaultQuery
	}
	if c.Notion.RateLimit < 0 {
		return fmt.Errorf("invalid notion rate limit: %v", c.Notion.RateLimit)
	}
	if err := c.Mapping.Validate(); err != nil {
		return err
	}
	return nil
}

func defaultPort(dbType string) int {
	switch dbType {
	case DBPostgres:
		return 5432
	case DBMySQL:
		return 3306
	case DBMongo:
		return 27017
	}
	return 0
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("NOTION_TOKEN"); v != "" {
		cfg.Notion.Token = v
	}
	if v := os.Getenv("NOTION_DATABASE_ID"); v != "" {
		cfg.Notion.DatabaseID = v
	}
	if v := os.Getenv("NOTION_API_URL"); v != "" {
		cfg.Notion.APIURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("NOTION_RATE_LIMIT"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid value for NOTION_RATE_LIMIT: expected a number, got '%s'", v)
		}
		cfg.Notion.RateLimit = rps
	}
	if v := os.Getenv("DB_TYPE"); v != "" {
		cfg.Database.Type = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid value for DB_PORT: expected an integer, got '%s'", v)
		}
		cfg.Database.Port = p
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("DB_QUERY"); v != "" {
		cfg.Database.Query = v
	}
	if v := os.Getenv("DB_TABLE"); v != "" {
		cfg.Database.Table = v
	}
	if v := os.Getenv("SQLITE_DB_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("MONGO_CONNECTION_STRING"); v != "" {
		cfg.Database.MongoURI = v
	}
	if v := os.Getenv("DB_COLLECTION"); v != "" {
		cfg.Database.Collection = v
	}
	if v := os.Getenv("DB_MARK_SYNCED"); v != "" {
		cfg.Database.MarkSynced = parseBool(v, cfg.Database.MarkSynced)
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

func parseBool(input string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return fallback
	}
}
