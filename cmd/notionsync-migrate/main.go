package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"notionsync/internal/config"
	"notionsync/internal/source"
)

// notionsync-migrate creates the tracker table in a development database.
// The sync itself never changes the source schema.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf(".env error: %v", err)
	}
	cfg, err := config.Load(os.Getenv("NOTIONSYNC_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if cfg.Database.Type == config.DBMongo {
		log.Fatalf("migrations apply to SQL databases only, not %s", cfg.Database.Type)
	}

	ctx := context.Background()
	src, err := source.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("source error: %v", err)
	}
	defer src.Close()

	sqlSrc, ok := src.(*source.SQLSource)
	if !ok {
		log.Fatalf("unexpected source type %T", src)
	}
	if err := source.Migrate(ctx, sqlSrc.DB(), sqlSrc.Dialect()); err != nil {
		log.Fatalf("migration error: %v", err)
	}
	log.Printf("migrations applied to %s database", cfg.Database.Type)
}
