// Package catalog loads the lawyer and resource datasets the recommender
// ranks. Datasets come from JSON exports or from a SQLite catalog imported
// from them; when neither yields records a small curated set is used.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/54b3r/bclegal-go/internal/recommend"
)

// ErrEmpty is returned when a dataset contains no usable records.
var ErrEmpty = errors.New("catalog: no records")

// Catalog is an immutable snapshot of both datasets.
type Catalog struct {
	Lawyers   []*recommend.Lawyer
	Resources []*recommend.Resource
}

// Empty reports whether the catalog has neither lawyers nor resources.
func (c *Catalog) Empty() bool {
	return c == nil || (len(c.Lawyers) == 0 && len(c.Resources) == 0)
}

// LoadJSON reads the lawyer and resource exports. Either path may be empty.
// Records missing required fields are skipped with a warning.
func LoadJSON(lawyersPath, resourcesPath string, log *slog.Logger) (*Catalog, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &Catalog{}

	if lawyersPath != "" {
		ids, recs, err := readRecords[recommend.Lawyer](lawyersPath)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			l := &recs[i]
			if l.ID == "" {
				l.ID = ids[i]
			}
			if l.Name == "" {
				log.Warn("catalog: skipping lawyer without a name", slog.String("id", l.ID), slog.String("path", lawyersPath))
				continue
			}
			c.Lawyers = append(c.Lawyers, l)
		}
	}

	if resourcesPath != "" {
		ids, recs, err := readRecords[recommend.Resource](resourcesPath)
		if err != nil {
			return nil, err
		}
		for i := range recs {
			r := &recs[i]
			if r.ID == "" {
				r.ID = ids[i]
			}
			if r.Text == "" {
				log.Warn("catalog: skipping resource without text", slog.String("id", r.ID), slog.String("path", resourcesPath))
				continue
			}
			c.Resources = append(c.Resources, r)
		}
	}

	if c.Empty() {
		return nil, ErrEmpty
	}
	return c, nil
}

// readRecords decodes path as either a JSON array of records or an object
// mapping ID to record. Object entries are returned in sorted key order.
// For arrays the returned IDs are the decimal positions.
func readRecords[T any](path string) ([]string, []T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	ids, recs, err := decodeRecords[T](data)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return ids, recs, nil
}

func decodeRecords[T any](data []byte) ([]string, []T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil, ErrEmpty
	}

	switch trimmed[0] {
	case '[':
		var recs []T
		if err := json.Unmarshal(trimmed, &recs); err != nil {
			return nil, nil, fmt.Errorf("decode array: %w", err)
		}
		ids := make([]string, len(recs))
		for i := range recs {
			ids[i] = fmt.Sprint(i)
		}
		return ids, recs, nil

	case '{':
		var byID map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &byID); err != nil {
			return nil, nil, fmt.Errorf("decode object: %w", err)
		}
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		slices.Sort(ids)

		recs := make([]T, len(ids))
		for i, id := range ids {
			if err := json.Unmarshal(byID[id], &recs[i]); err != nil {
				return nil, nil, fmt.Errorf("decode record %q: %w", id, err)
			}
		}
		return ids, recs, nil

	default:
		return nil, nil, fmt.Errorf("expected a JSON array or object, got %q", trimmed[0])
	}
}
