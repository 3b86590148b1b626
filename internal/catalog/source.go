package catalog

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

// Config selects where candidate datasets are read from.
type Config struct {
	// SQLitePath is an imported catalog. Tried first when the file exists.
	SQLitePath string
	// LawyersPath and ResourcesPath are JSON exports, used when no SQLite
	// catalog is available.
	LawyersPath   string
	ResourcesPath string
	// Metrics records load outcomes. Nil disables them.
	Metrics *Metrics
	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// Source reports where a loaded catalog came from.
type Source string

const (
	SourceSQLite   Source = "sqlite"
	SourceJSON     Source = "json"
	SourceFallback Source = "fallback"
)

// Load returns the configured catalog, trying SQLite then JSON. When neither
// produces records it logs a warning and returns the curated Fallback set,
// so the result is never empty and the error is always nil unless ctx is done.
func Load(ctx context.Context, cfg *Config) (*Catalog, Source, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	var causes []error

	if cfg.SQLitePath != "" {
		if _, err := os.Stat(cfg.SQLitePath); err == nil {
			c, err := loadSQLite(ctx, cfg.SQLitePath)
			if err == nil {
				return done(cfg, log, c, SourceSQLite), SourceSQLite, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, "", ctxErr
			}
			causes = append(causes, err)
		} else {
			causes = append(causes, err)
		}
	}

	if cfg.LawyersPath != "" || cfg.ResourcesPath != "" {
		c, err := LoadJSON(cfg.LawyersPath, cfg.ResourcesPath, log)
		if err == nil {
			return done(cfg, log, c, SourceJSON), SourceJSON, nil
		}
		causes = append(causes, err)
	}

	cfg.Metrics.fellBack()
	log.Warn("catalog: configured datasets unavailable, using curated fallback",
		slog.Any("cause", errors.Join(causes...)),
	)
	return done(cfg, log, Fallback(), SourceFallback), SourceFallback, nil
}

func loadSQLite(ctx context.Context, path string) (*Catalog, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.Load(ctx)
}

func done(cfg *Config, log *slog.Logger, c *Catalog, src Source) *Catalog {
	cfg.Metrics.loaded(c)
	log.Info("catalog: loaded",
		slog.String("source", string(src)),
		slog.Int("lawyers", len(c.Lawyers)),
		slog.Int("resources", len(c.Resources)),
	)
	return c
}
