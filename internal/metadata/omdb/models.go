package omdb

import "github.com/movieshelf/movieshelf/internal/movie"

// SearchResponse is the body of a `?s=` request. Search is absent when the
// provider found nothing or rejected the request.
type SearchResponse struct {
	Search       []SearchItem `json:"Search"`
	TotalResults string       `json:"totalResults"`
	Response     string       `json:"Response"`
	Error        string       `json:"Error,omitempty"`
}

// SearchItem is one row of SearchResponse.
type SearchItem struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	ImdbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// Response represents the body of an `?i=` request.
type Response struct {
	Title      string   `json:"Title"`
	Year       string   `json:"Year"`
	Rated      string   `json:"Rated"`
	Released   string   `json:"Released"`
	Runtime    string   `json:"Runtime"`
	Genre      string   `json:"Genre"`
	Director   string   `json:"Director"`
	Writer     string   `json:"Writer"`
	Actors     string   `json:"Actors"`
	Plot       string   `json:"Plot"`
	Language   string   `json:"Language"`
	Country    string   `json:"Country"`
	Awards     string   `json:"Awards"`
	Poster     string   `json:"Poster"`
	Ratings    []Rating `json:"Ratings"`
	Metascore  string   `json:"Metascore"`
	ImdbRating string   `json:"imdbRating"`
	ImdbVotes  string   `json:"imdbVotes"`
	ImdbID     string   `json:"imdbID"`
	Type       string   `json:"Type"`
	Response   string   `json:"Response"`
	Error      string   `json:"Error,omitempty"`
}

// Rating represents a single rating from a source.
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

func (i SearchItem) toResult() movie.SearchResult {
	return movie.SearchResult{
		ImdbID: i.ImdbID,
		Title:  i.Title,
		Year:   i.Year,
		Type:   i.Type,
		Poster: i.Poster,
	}
}

func (r Response) toDetail() *movie.Detail {
	return &movie.Detail{
		ImdbID:     r.ImdbID,
		Title:      r.Title,
		Year:       r.Year,
		Type:       r.Type,
		Poster:     r.Poster,
		Director:   r.Director,
		Plot:       r.Plot,
		Runtime:    r.Runtime,
		Released:   r.Released,
		Genre:      r.Genre,
		ImdbRating: r.ImdbRating,
		Rated:      r.Rated,
		Writer:     r.Writer,
		Actors:     r.Actors,
		Awards:     r.Awards,
		Language:   r.Language,
		Country:    r.Country,
		Metascore:  r.Metascore,
		ImdbVotes:  r.ImdbVotes,
	}
}
