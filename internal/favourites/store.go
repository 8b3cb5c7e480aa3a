// Package favourites keeps the ordered, durable list of favourite titles.
package favourites

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/movie"
	"github.com/movieshelf/movieshelf/internal/storage"
)

// StorageKey is the blob key the collection is persisted under.
const StorageKey = "react-movie-app-favourites"

// MessageChanged is broadcast with the new collection after each change.
const MessageChanged = "favourites:changed"

// Collection is an ordered list of favourites in insertion order. Values
// returned by the store are copies and never alias its internal state.
type Collection []movie.Detail

// IDs returns the identifiers in collection order.
func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, d := range c {
		ids[i] = d.ImdbID
	}
	return ids
}

func (c Collection) index(imdbID string) int {
	return slices.IndexFunc(c, func(d movie.Detail) bool { return d.ImdbID == imdbID })
}

func (c Collection) clone() Collection {
	out := make(Collection, len(c))
	copy(out, c)
	return out
}

// Recorder receives an audit event for each added or removed title.
type Recorder interface {
	LogAdded(ctx context.Context, imdbID, title string) error
	LogRemoved(ctx context.Context, imdbID, title string) error
}

// Reporter receives storage failures for out-of-band reporting.
type Reporter interface {
	CaptureError(err error, tags map[string]string)
}

// Recoverer is implemented by reporters that track failure state. ClearError
// is called after every successful write.
type Recoverer interface {
	ClearError(tags map[string]string)
}

// Broadcaster pushes change notifications to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload any)
}

// Store is the favourites collection backed by a storage.Blob.
// It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	blob       storage.Blob
	collection Collection
	logger     zerolog.Logger

	recorder    Recorder
	reporter    Reporter
	broadcaster Broadcaster
}

// NewStore creates an empty store. Call Load to read the persisted state.
func NewStore(blob storage.Blob, logger zerolog.Logger) *Store {
	return &Store{
		blob:       blob,
		collection: Collection{},
		logger:     logger.With().Str("component", "favourites").Logger(),
	}
}

// SetRecorder sets the audit recorder.
func (s *Store) SetRecorder(r Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = r
}

// SetReporter sets the storage failure reporter.
func (s *Store) SetReporter(r Reporter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reporter = r
}

// SetBroadcaster sets the change broadcaster.
func (s *Store) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcaster = b
}

// Load reads the persisted collection and replaces the in-memory one.
// An absent key yields an empty collection. Unreadable or corrupt data
// yields an empty collection together with a *StorageError.
func (s *Store) Load(ctx context.Context) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.blob.Get(ctx, StorageKey)
	if err != nil {
		s.collection = Collection{}
		return Collection{}, s.storageFailure("load", err)
	}
	if !ok {
		s.collection = Collection{}
		return Collection{}, nil
	}

	var loaded Collection
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.collection = Collection{}
		return Collection{}, s.storageFailure("decode", err)
	}

	s.collection = dedupe(loaded)
	s.logger.Debug().Int("count", len(s.collection)).Msg("Loaded favourites")
	return s.collection.clone(), nil
}

// Add appends entry, or replaces the entry with the same identifier in
// place. The new collection is returned even when persisting it fails.
func (s *Store) Add(ctx context.Context, entry movie.Detail) (Collection, error) {
	if entry.ImdbID == "" {
		return s.List(), ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.collection.clone()
	existed := false
	if i := next.index(entry.ImdbID); i >= 0 {
		next[i] = entry
		existed = true
	} else {
		next = append(next, entry)
	}
	s.collection = next

	err := s.persist(ctx)
	if !existed && err == nil {
		s.record(ctx, entry, true)
	}
	s.notify()

	s.logger.Info().Str("imdbId", entry.ImdbID).Str("title", entry.Title).Bool("replaced", existed).Msg("Favourite added")
	return next.clone(), err
}

// Remove drops the entry with imdbID. Removing an absent identifier leaves
// the collection unchanged but still writes it.
func (s *Store) Remove(ctx context.Context, imdbID string) (Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed *movie.Detail
	next := make(Collection, 0, len(s.collection))
	for i := range s.collection {
		if s.collection[i].ImdbID == imdbID {
			d := s.collection[i]
			removed = &d
			continue
		}
		next = append(next, s.collection[i])
	}
	s.collection = next

	err := s.persist(ctx)
	if removed != nil {
		if err == nil {
			s.record(ctx, *removed, false)
		}
		s.logger.Info().Str("imdbId", imdbID).Str("title", removed.Title).Msg("Favourite removed")
	}
	s.notify()

	return next.clone(), err
}

// IsFavourite reports whether imdbID is in the collection.
func (s *Store) IsFavourite(imdbID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.index(imdbID) >= 0
}

// Get returns the stored entry for imdbID.
func (s *Store) Get(imdbID string) (movie.Detail, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.collection.index(imdbID); i >= 0 {
		return s.collection[i], true
	}
	return movie.Detail{}, false
}

// List returns a copy of the collection.
func (s *Store) List() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.clone()
}

// Count returns the number of favourites.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collection)
}

// persist writes the current collection. Caller holds the write lock.
func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.collection)
	if err != nil {
		return s.storageFailure("encode", err)
	}
	if err := s.blob.Set(ctx, StorageKey, data); err != nil {
		return s.storageFailure("save", err)
	}
	if r, ok := s.reporter.(Recoverer); ok {
		r.ClearError(map[string]string{"component": "favourites", "op": "save"})
	}
	return nil
}

func (s *Store) storageFailure(op string, err error) error {
	serr := &StorageError{Op: op, Err: err}
	s.logger.Error().Err(err).Str("op", op).Msg("Favourites storage failure")
	if s.reporter != nil {
		s.reporter.CaptureError(serr, map[string]string{"component": "favourites", "op": op})
	}
	return serr
}

func (s *Store) record(ctx context.Context, d movie.Detail, added bool) {
	if s.recorder == nil {
		return
	}
	var err error
	if added {
		err = s.recorder.LogAdded(ctx, d.ImdbID, d.Title)
	} else {
		err = s.recorder.LogRemoved(ctx, d.ImdbID, d.Title)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn().Err(err).Str("imdbId", d.ImdbID).Msg("Failed to record favourites history")
	}
}

func (s *Store) notify() {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(MessageChanged, s.collection.clone())
	}
}

// dedupe keeps the first occurrence of each identifier and drops entries
// without one.
func dedupe(in Collection) Collection {
	seen := make(map[string]struct{}, len(in))
	out := make(Collection, 0, len(in))
	for _, d := range in {
		if d.ImdbID == "" {
			continue
		}
		if _, ok := seen[d.ImdbID]; ok {
			continue
		}
		seen[d.ImdbID] = struct{}{}
		out = append(out, d)
	}
	return out
}

