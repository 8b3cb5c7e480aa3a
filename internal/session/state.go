// Package session holds the per-client view state: the current query and
// results, the favourites strip, the selected title and any pending alert.
package session

import (
	"encoding/json"
	"time"

	"github.com/movieshelf/movieshelf/internal/movie"
)

// View is which of the two mutually exclusive screens is shown.
type View string

const (
	ViewLists  View = "lists"
	ViewDetail View = "detail"
)

// AlertTitle is the title used for every detail fetch failure.
const AlertTitle = "Error"

// Alert is a dismissable, user-facing error message.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// State is the complete view state of one session. Update methods return a
// modified copy and never touch the receiver.
type State struct {
	Query      string               `json:"query"`
	Results    []movie.SearchResult `json:"results"`
	Favourites []movie.Detail       `json:"favourites"`
	Selected   *movie.Detail        `json:"selected,omitempty"`
	Generation uint64               `json:"generation"`
	Alert      *Alert               `json:"alert,omitempty"`
	Warning    string               `json:"warning,omitempty"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// NewState returns the initial state: empty lists and nothing selected.
func NewState() State {
	return State{
		Results:    []movie.SearchResult{},
		Favourites: []movie.Detail{},
	}
}

// View reports the detail view exactly when a title is selected.
func (s State) View() View {
	if s.Selected != nil {
		return ViewDetail
	}
	return ViewLists
}

// MarshalJSON adds the derived view to the encoded state.
func (s State) MarshalJSON() ([]byte, error) {
	type plain State
	return json.Marshal(struct {
		plain
		View View `json:"view"`
	}{plain(s), s.View()})
}

// WithQuery records a new query and starts a new search generation.
func (s State) WithQuery(q string) State {
	s.Query = q
	s.Generation++
	return s
}

// WithResults applies the results of the search started at gen. Results of
// any older generation are ignored and ok is false. Applying results closes
// the detail view.
func (s State) WithResults(gen uint64, results []movie.SearchResult) (next State, ok bool) {
	if gen != s.Generation {
		return s, false
	}
	if results == nil {
		results = []movie.SearchResult{}
	}
	s.Results = results
	s.Selected = nil
	return s, true
}

// WithSelected opens the detail view for d.
func (s State) WithSelected(d *movie.Detail) State {
	if d != nil {
		cp := *d
		d = &cp
	}
	s.Selected = d
	return s
}

// Back closes the detail view.
func (s State) Back() State {
	s.Selected = nil
	return s
}

// WithAlert sets or, with nil, clears the alert.
func (s State) WithAlert(a *Alert) State {
	s.Alert = a
	return s
}

// WithFavourites replaces the favourites strip.
func (s State) WithFavourites(c []movie.Detail) State {
	if c == nil {
		c = []movie.Detail{}
	}
	s.Favourites = c
	return s
}

// WithWarning sets the non-blocking storage warning.
func (s State) WithWarning(w string) State {
	s.Warning = w
	return s
}

// IsFavourite reports whether imdbID is on the favourites strip.
func (s State) IsFavourite(imdbID string) bool {
	for _, f := range s.Favourites {
		if f.ImdbID == imdbID {
			return true
		}
	}
	return false
}
