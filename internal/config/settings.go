package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/54b3r/bclegal-go/internal/rag"
)

// RAGSettings is the retrieval configuration resolved from the environment
// after Load has applied the YAML file.
type RAGSettings struct {
	Sources          []rag.Source
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	FetchWorkers     int
	FetchRate        float64
	MaxContextTokens int
}

// RAGFromEnv reads RAG_* variables. Unset values are zero so the
// orchestrator and chunker apply their own defaults.
func RAGFromEnv() RAGSettings {
	return RAGSettings{
		Sources:          ParseSources(os.Getenv("RAG_SOURCES")),
		ChunkSize:        GetEnvInt("RAG_CHUNK_SIZE", 0),
		ChunkOverlap:     GetEnvInt("RAG_CHUNK_OVERLAP", 0),
		TopK:             GetEnvInt("RAG_TOP_K", rag.DefaultTopK),
		FetchWorkers:     GetEnvInt("RAG_FETCH_WORKERS", 2),
		FetchRate:        GetEnvFloat("RAG_FETCH_RATE", 0),
		MaxContextTokens: GetEnvInt("RAG_MAX_CONTEXT_TOKENS", 0),
	}
}

// CatalogSettings locates the candidate datasets.
type CatalogSettings struct {
	// DBPath is the SQLite catalog, "" when disabled.
	DBPath        string
	LawyersPath   string
	ResourcesPath string
}

// CatalogFromEnv reads CATALOG_* variables. defaultDB is used when
// CATALOG_DB is unset; CATALOG_DB=disabled turns the SQLite catalog off.
func CatalogFromEnv(defaultDB string) CatalogSettings {
	db := GetEnvOrDefault("CATALOG_DB", defaultDB)
	if db == "disabled" {
		db = ""
	}
	return CatalogSettings{
		DBPath:        db,
		LawyersPath:   GetEnvOrDefault("CATALOG_LAWYERS", "data/lawyers.json"),
		ResourcesPath: GetEnvOrDefault("CATALOG_RESOURCES", "data/resources.json"),
	}
}

// ServerSettings holds the HTTP listener settings.
type ServerSettings struct {
	Host      string
	Port      int
	RateLimit float64
	RateBurst int
}

// ServerFromEnv reads BCLEGAL_HOST, BCLEGAL_PORT and the rate limit pair.
func ServerFromEnv() ServerSettings {
	return ServerSettings{
		Host:      GetEnvOrDefault("BCLEGAL_HOST", "127.0.0.1"),
		Port:      GetEnvInt("BCLEGAL_PORT", 8080),
		RateLimit: GetEnvFloat("BCLEGAL_RATE_LIMIT", 0),
		RateBurst: GetEnvInt("BCLEGAL_RATE_BURST", 0),
	}
}

// ParseSources parses a comma-separated list of "Title=URL" or bare URL
// entries. Blank entries are skipped; nil means use the defaults.
func ParseSources(s string) []rag.Source {
	var out []rag.Source
	for entry := range strings.SplitSeq(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		title, url, ok := strings.Cut(entry, "=")
		if !ok || strings.Contains(title, "://") {
			out = append(out, rag.Source{URL: entry})
			continue
		}
		out = append(out, rag.Source{Title: strings.TrimSpace(title), URL: strings.TrimSpace(url)})
	}
	return out
}

// GetEnvOrDefault returns the value of key, or fallback if unset or empty.
func GetEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt returns the integer value of key, or fallback if unset or not
// parseable.
func GetEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// GetEnvFloat returns the float value of key, or fallback if unset or not
// parseable.
func GetEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
