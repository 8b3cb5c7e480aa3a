package favourites

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieshelf/movieshelf/internal/storage"
)

func TestStore_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewStore(storage.NewMemory(), zerolog.Nop())
	_, _ = src.Add(ctx, batman)
	_, _ = src.Add(ctx, matrix)

	for _, format := range []string{FormatJSON, FormatYAML} {
		t.Run(format, func(t *testing.T) {
			data, err := src.Export(format)
			require.NoError(t, err)

			dst := NewStore(storage.NewMemory(), zerolog.Nop())
			_, _ = dst.Add(ctx, heat)

			res, err := dst.Import(ctx, data)
			require.NoError(t, err)
			assert.Equal(t, 2, res.Added)
			assert.Equal(t, []string{heat.ImdbID, batman.ImdbID, matrix.ImdbID}, res.Favourites.IDs())
			assert.Equal(t, "Tim Burton", res.Favourites[1].Director)
		})
	}
}

func TestStore_ExportYAMLUsesWireNames(t *testing.T) {
	s := NewStore(storage.NewMemory(), zerolog.Nop())
	_, _ = s.Add(context.Background(), batman)

	data, err := s.Export(FormatYAML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "imdbID: tt0096895")
	assert.Contains(t, string(data), "Title: Batman")
}

func TestStore_ExportUnsupported(t *testing.T) {
	s := NewStore(storage.NewMemory(), zerolog.Nop())
	_, err := s.Export("xml")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestStore_ImportSkipsAndReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), zerolog.Nop())
	_, _ = s.Add(ctx, batman)

	res, err := s.Import(ctx, []byte(`[{"imdbID":"tt0096895","Title":"Batman","Plot":"new"},{"Title":"no id"}]`))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Added)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "new", res.Favourites[0].Plot)
}

func TestStore_ImportGarbage(t *testing.T) {
	s := NewStore(storage.NewMemory(), zerolog.Nop())
	res, err := s.Import(context.Background(), []byte(`{"not":"an array"}`))
	assert.Error(t, err)
	assert.Nil(t, res)
}
