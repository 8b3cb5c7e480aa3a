package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/favourites"
	"github.com/movieshelf/movieshelf/internal/metadata/omdb"
	"github.com/movieshelf/movieshelf/internal/movie"
)

// MessageState is broadcast with a StateMessage after every state change.
const MessageState = "session:state"

var (
	// ErrStale is returned when a newer request superseded this one before
	// it completed. Its result was discarded.
	ErrStale = errors.New("superseded by a newer request")
	// ErrNoSelection is returned by favourite operations in the list view.
	ErrNoSelection = errors.New("no title selected")
)

// Provider searches titles and fetches details.
type Provider interface {
	Search(ctx context.Context, query string) ([]movie.SearchResult, error)
	GetDetail(ctx context.Context, imdbID string) (*movie.Detail, error)
}

// FavouriteStore is the shared favourites collection.
type FavouriteStore interface {
	Add(ctx context.Context, entry movie.Detail) (favourites.Collection, error)
	Remove(ctx context.Context, imdbID string) (favourites.Collection, error)
	IsFavourite(imdbID string) bool
	List() favourites.Collection
}

// Broadcaster publishes state changes.
type Broadcaster interface {
	Broadcast(msgType string, payload any)
}

// StateMessage is the payload of MessageState.
type StateMessage struct {
	SessionID string `json:"sessionId"`
	State     State  `json:"state"`
}

// Scope limits delivery to clients following this session.
func (m StateMessage) Scope() string {
	return m.SessionID
}

// Session drives the view state of one client. All methods are safe for
// concurrent use; the provider is never called with the lock held.
type Session struct {
	id          string
	provider    Provider
	store       FavouriteStore
	broadcaster Broadcaster
	logger      zerolog.Logger
	now         func() time.Time

	mu           sync.Mutex
	state        State
	cancelSearch context.CancelFunc
	selectSeq    uint64
	lastActive   time.Time
	closed       bool
}

func newSession(id string, provider Provider, store FavouriteStore, broadcaster Broadcaster, logger zerolog.Logger, now func() time.Time) *Session {
	s := &Session{
		id:          id,
		provider:    provider,
		store:       store,
		broadcaster: broadcaster,
		logger:      logger.With().Str("session", id).Logger(),
		now:         now,
		state:       NewState(),
	}
	s.lastActive = now()
	s.state.UpdatedAt = s.lastActive
	if store != nil {
		s.state = s.state.WithFavourites(store.List())
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// LastActive returns when the session was last used.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// SetQuery runs a search for q. Only the most recent query's results are
// applied; an earlier query still in flight is cancelled, and if it
// completes anyway its results are dropped with ErrStale. On failure the
// previous results are kept and the error is returned.
func (s *Session) SetQuery(ctx context.Context, q string) (State, error) {
	s.mu.Lock()
	s.state = s.state.WithQuery(q)
	gen := s.state.Generation
	if s.cancelSearch != nil {
		s.cancelSearch()
	}
	searchCtx, cancel := context.WithCancel(ctx)
	s.cancelSearch = cancel
	s.changed()
	s.mu.Unlock()

	results, err := s.provider.Search(searchCtx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()

	if gen != s.state.Generation {
		s.logger.Debug().Str("query", q).Uint64("generation", gen).Msg("Dropped stale search")
		return s.snapshot(), ErrStale
	}
	s.cancelSearch = nil

	if err != nil {
		s.logger.Warn().Err(err).Str("query", q).Msg("Search failed, keeping previous results")
		return s.snapshot(), err
	}

	s.selectSeq++
	s.state, _ = s.state.WithResults(gen, results)
	s.changed()
	return s.snapshot(), nil
}

// Select fetches the full record for imdbID and opens the detail view.
// A provider failure raises an alert carrying the provider's message, or
// the generic message for network failures, and leaves the view unchanged.
func (s *Session) Select(ctx context.Context, imdbID string) (State, error) {
	s.mu.Lock()
	s.selectSeq++
	seq := s.selectSeq
	s.touch()
	s.mu.Unlock()

	d, err := s.provider.GetDetail(ctx, imdbID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.selectSeq {
		return s.snapshot(), ErrStale
	}

	if err != nil {
		msg := omdb.FallbackMessage
		var perr *omdb.ProviderError
		if errors.As(err, &perr) {
			msg = perr.Message
		}
		s.logger.Warn().Err(err).Str("imdbId", imdbID).Msg("Failed to load title details")
		s.state = s.state.WithAlert(&Alert{Title: AlertTitle, Message: msg})
		s.changed()
		return s.snapshot(), err
	}

	s.state = s.state.WithSelected(d)
	s.changed()
	return s.snapshot(), nil
}

// Back closes the detail view.
func (s *Session) Back() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectSeq++
	s.state = s.state.Back()
	s.changed()
	return s.snapshot()
}

// DismissAlert clears the alert.
func (s *Session) DismissAlert() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.WithAlert(nil)
	s.changed()
	return s.snapshot()
}

// AddFavourite adds the selected title to favourites and returns to the
// list view.
func (s *Session) AddFavourite(ctx context.Context) (State, error) {
	return s.mutateFavourite(ctx, func(d movie.Detail) (favourites.Collection, error) {
		return s.store.Add(ctx, d)
	})
}

// RemoveFavourite removes the selected title from favourites and returns to
// the list view.
func (s *Session) RemoveFavourite(ctx context.Context) (State, error) {
	return s.mutateFavourite(ctx, func(d movie.Detail) (favourites.Collection, error) {
		return s.store.Remove(ctx, d.ImdbID)
	})
}

// ToggleFavourite adds or removes the selected title depending on whether it
// is already a favourite.
func (s *Session) ToggleFavourite(ctx context.Context) (State, error) {
	return s.mutateFavourite(ctx, func(d movie.Detail) (favourites.Collection, error) {
		if s.store.IsFavourite(d.ImdbID) {
			return s.store.Remove(ctx, d.ImdbID)
		}
		return s.store.Add(ctx, d)
	})
}

// mutateFavourite applies op to the selected title. Storage failures become
// a warning on the state rather than an error, because the in-memory
// collection was still updated.
func (s *Session) mutateFavourite(ctx context.Context, op func(movie.Detail) (favourites.Collection, error)) (State, error) {
	s.mu.Lock()
	if s.state.Selected == nil {
		s.mu.Unlock()
		return s.Snapshot(), ErrNoSelection
	}
	selected := *s.state.Selected
	s.touch()
	s.mu.Unlock()

	coll, err := op(selected)

	s.mu.Lock()
	defer s.mu.Unlock()

	warning := ""
	if err != nil {
		if !errors.Is(err, favourites.ErrStorage) {
			return s.snapshot(), err
		}
		warning = err.Error()
	}

	s.selectSeq++
	s.state = s.state.WithFavourites(coll).WithWarning(warning).Back()
	s.changed()
	return s.snapshot(), nil
}

// SyncFavourites replaces the favourites strip after a change made
// elsewhere.
func (s *Session) SyncFavourites(c favourites.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.state.Favourites = slices.Clone([]movie.Detail(c))
	if s.state.Favourites == nil {
		s.state.Favourites = []movie.Detail{}
	}
	s.state.UpdatedAt = s.now()
	s.publish()
}

// close cancels any in-flight search.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	s.closed = true
}

// changed stamps and publishes the state. Caller holds the lock.
func (s *Session) changed() {
	s.touch()
	s.state.UpdatedAt = s.lastActive
	s.publish()
}

func (s *Session) touch() {
	s.lastActive = s.now()
}

func (s *Session) publish() {
	if s.broadcaster == nil || s.closed {
		return
	}
	s.broadcaster.Broadcast(MessageState, StateMessage{SessionID: s.id, State: s.snapshot()})
}

func (s *Session) snapshot() State {
	st := s.state
	st.Results = slices.Clone(st.Results)
	st.Favourites = slices.Clone(st.Favourites)
	if st.Selected != nil {
		d := *st.Selected
		st.Selected = &d
	}
	if st.Alert != nil {
		a := *st.Alert
		st.Alert = &a
	}
	return st
}
