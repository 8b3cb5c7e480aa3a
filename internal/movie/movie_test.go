package movie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPoster(t *testing.T) {
	assert.False(t, HasPoster(""))
	assert.False(t, HasPoster(NoImage))
	assert.True(t, HasPoster("http://x/p.jpg"))
}

func TestDetail_Summary(t *testing.T) {
	d := Detail{
		ImdbID:   "tt0096895",
		Title:    "Batman",
		Year:     "1989",
		Type:     "movie",
		Poster:   "http://x/p.jpg",
		Director: "Tim Burton",
	}

	s := d.Summary()
	assert.Equal(t, SearchResult{
		ImdbID: "tt0096895",
		Title:  "Batman",
		Year:   "1989",
		Type:   "movie",
		Poster: "http://x/p.jpg",
	}, s)
	assert.True(t, s.HasPoster())
}
