package config

// Values injected at build time via ldflags.
//
// Build with:
//   go build -ldflags "-X 'github.com/movieshelf/movieshelf/internal/config.Version=1.2.0' \
//                      -X 'github.com/movieshelf/movieshelf/internal/config.EmbeddedOMDBKey=xxx'"
var (
	Version         = "dev"
	EmbeddedOMDBKey string
)
