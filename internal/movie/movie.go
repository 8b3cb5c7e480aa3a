// Package movie holds the title records shared by the search client,
// the favourites store and the view state.
package movie

// NoImage is the poster value the provider uses when it has no artwork.
const NoImage = "N/A"

// SearchResult is one row of a title search. JSON names follow the
// provider's wire format.
type SearchResult struct {
	ImdbID string `json:"imdbID" yaml:"imdbID"`
	Title  string `json:"Title" yaml:"Title"`
	Year   string `json:"Year" yaml:"Year"`
	Type   string `json:"Type" yaml:"Type"`
	Poster string `json:"Poster" yaml:"Poster"`
}

// HasPoster reports whether the result carries a usable poster URL.
func (r SearchResult) HasPoster() bool {
	return HasPoster(r.Poster)
}

// Detail is the full record for one title. Favourites are stored as
// Details, so the JSON shape is also the persisted shape.
type Detail struct {
	ImdbID     string `json:"imdbID" yaml:"imdbID"`
	Title      string `json:"Title" yaml:"Title"`
	Year       string `json:"Year" yaml:"Year"`
	Type       string `json:"Type" yaml:"Type"`
	Poster     string `json:"Poster" yaml:"Poster"`
	Director   string `json:"Director" yaml:"Director"`
	Plot       string `json:"Plot" yaml:"Plot"`
	Runtime    string `json:"Runtime" yaml:"Runtime"`
	Released   string `json:"Released" yaml:"Released"`
	Genre      string `json:"Genre" yaml:"Genre"`
	ImdbRating string `json:"imdbRating" yaml:"imdbRating"`

	Rated     string `json:"Rated,omitempty" yaml:"Rated,omitempty"`
	Writer    string `json:"Writer,omitempty" yaml:"Writer,omitempty"`
	Actors    string `json:"Actors,omitempty" yaml:"Actors,omitempty"`
	Awards    string `json:"Awards,omitempty" yaml:"Awards,omitempty"`
	Language  string `json:"Language,omitempty" yaml:"Language,omitempty"`
	Country   string `json:"Country,omitempty" yaml:"Country,omitempty"`
	Metascore string `json:"Metascore,omitempty" yaml:"Metascore,omitempty"`
	ImdbVotes string `json:"imdbVotes,omitempty" yaml:"imdbVotes,omitempty"`
}

// HasPoster reports whether the detail carries a usable poster URL.
func (d Detail) HasPoster() bool {
	return HasPoster(d.Poster)
}

// Summary returns the search-row view of the detail.
func (d Detail) Summary() SearchResult {
	return SearchResult{
		ImdbID: d.ImdbID,
		Title:  d.Title,
		Year:   d.Year,
		Type:   d.Type,
		Poster: d.Poster,
	}
}

// HasPoster reports whether poster is neither empty nor NoImage.
func HasPoster(poster string) bool {
	return poster != "" && poster != NoImage
}
