// Command fetchmockdata fetches real records from OMDb to regenerate the
// catalog served in mock mode.
//
// Usage:
//
//	go run ./cmd/fetchmockdata [-out internal/metadata/mock/catalog.yaml] [imdbID...]
//
// Without IDs it refreshes every title already in the embedded catalog.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/movieshelf/movieshelf/internal/config"
	"github.com/movieshelf/movieshelf/internal/metadata/mock"
	"github.com/movieshelf/movieshelf/internal/metadata/omdb"
	"github.com/movieshelf/movieshelf/internal/movie"
)

const header = "# Offline catalog served in mock mode.\n# Regenerate from the live provider with: go run ./cmd/fetchmockdata\n"

func main() {
	out := flag.String("out", "", "Write the catalog to this file instead of stdout")
	flag.Parse()

	// Use a no-op logger to suppress debug output when running the script
	logger := zerolog.Nop()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	client := omdb.NewClient(cfg.OMDB, logger)
	if !client.IsConfigured() {
		fmt.Fprintln(os.Stderr, "OMDb not configured! Set API_KEY or omdb.api_key.")
		os.Exit(1)
	}

	ids := flag.Args()
	if len(ids) == 0 {
		for _, d := range mock.NewOMDBClient(cfg.OMDB.DefaultQuery).Catalog() {
			ids = append(ids, d.ImdbID)
		}
	}

	catalog := fetchDetails(context.Background(), client, ids)

	data, err := encodeCatalog(catalog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode catalog: %v\n", err)
		os.Exit(1)
	}

	if *out == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "Wrote %d titles to %s\n", len(catalog), *out)
}

func fetchDetails(ctx context.Context, client *omdb.Client, ids []string) []movie.Detail {
	catalog := make([]movie.Detail, 0, len(ids))
	for _, id := range ids {
		d, err := client.GetDetail(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR fetching %s: %v\n", id, err)
			continue
		}
		catalog = append(catalog, *d)

		time.Sleep(250 * time.Millisecond) // Rate limiting
	}
	return catalog
}

func encodeCatalog(catalog []movie.Detail) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(catalog); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
