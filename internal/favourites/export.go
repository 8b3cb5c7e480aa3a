package favourites

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/movieshelf/movieshelf/internal/movie"
)

// Export formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

// Export renders the collection as a JSON or YAML document. The JSON form
// is the same array that is persisted.
func (s *Store) Export(format string) ([]byte, error) {
	c := s.List()

	switch format {
	case "", FormatJSON:
		return json.MarshalIndent(c, "", "  ")
	case FormatYAML, "yml":
		return yaml.Marshal([]movie.Detail(c))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ImportResult summarises an Import.
type ImportResult struct {
	Added      int        `json:"added"`
	Replaced   int        `json:"replaced"`
	Skipped    int        `json:"skipped"`
	Favourites Collection `json:"favourites"`
}

// Import merges a JSON or YAML array of entries using Add semantics.
// Entries without an identifier are skipped. The first storage failure is
// returned alongside the result.
func (s *Store) Import(ctx context.Context, data []byte) (*ImportResult, error) {
	var entries []movie.Detail
	if err := json.Unmarshal(data, &entries); err != nil {
		if yerr := yaml.Unmarshal(data, &entries); yerr != nil {
			return nil, fmt.Errorf("failed to parse import document: %w", err)
		}
	}

	result := &ImportResult{}
	var firstErr error
	for _, e := range entries {
		if e.ImdbID == "" {
			result.Skipped++
			continue
		}
		if s.IsFavourite(e.ImdbID) {
			result.Replaced++
		} else {
			result.Added++
		}
		if _, err := s.Add(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	result.Favourites = s.List()
	return result, firstErr
}
