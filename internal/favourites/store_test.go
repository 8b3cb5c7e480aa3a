package favourites

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movieshelf/movieshelf/internal/history"
	"github.com/movieshelf/movieshelf/internal/movie"
	"github.com/movieshelf/movieshelf/internal/storage"
	"github.com/movieshelf/movieshelf/internal/testutil"
)

var (
	batman = movie.Detail{ImdbID: "tt0096895", Title: "Batman", Year: "1989", Type: "movie", Director: "Tim Burton"}
	matrix = movie.Detail{ImdbID: "tt0133093", Title: "The Matrix", Year: "1999", Type: "movie"}
	heat   = movie.Detail{ImdbID: "tt0113277", Title: "Heat", Year: "1995", Type: "movie"}
)

// failingBlob fails writes while failSet is true and reads while failGet is true.
type failingBlob struct {
	*storage.Memory
	mu      sync.Mutex
	failSet bool
	failGet bool
	sets    int
}

func (b *failingBlob) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b.mu.Lock()
	fail := b.failGet
	b.mu.Unlock()
	if fail {
		return nil, false, errors.New("disk unavailable")
	}
	return b.Memory.Get(ctx, key)
}

func (b *failingBlob) Set(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	b.sets++
	fail := b.failSet
	b.mu.Unlock()
	if fail {
		return errors.New("quota exceeded")
	}
	return b.Memory.Set(ctx, key, value)
}

func (b *failingBlob) setFailSet(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failSet = fail
}

type recordingReporter struct {
	errs    []error
	cleared int
}

func (r *recordingReporter) CaptureError(err error, _ map[string]string) {
	r.errs = append(r.errs, err)
}

// recoveringReporter also tracks successful writes.
type recoveringReporter struct {
	recordingReporter
}

func (r *recoveringReporter) ClearError(tags map[string]string) {
	if tags["component"] == "favourites" {
		r.cleared++
	}
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	msgs []string
	last any
}

func (r *recordingBroadcaster) Broadcast(msgType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msgType)
	r.last = payload
}

func TestStore_LoadAbsentIsEmpty(t *testing.T) {
	s := NewStore(storage.NewMemory(), zerolog.Nop())

	c, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Empty(t, c)
}

func TestStore_AddRemoveSurviveRestart(t *testing.T) {
	ctx := context.Background()
	blob := storage.NewMemory()

	s := NewStore(blob, zerolog.Nop())
	_, err := s.Load(ctx)
	require.NoError(t, err)
	_, err = s.Add(ctx, batman)
	require.NoError(t, err)
	_, err = s.Add(ctx, matrix)
	require.NoError(t, err)

	restarted := NewStore(blob, zerolog.Nop())
	c, err := restarted.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Collection{batman, matrix}, c)

	_, err = restarted.Remove(ctx, batman.ImdbID)
	require.NoError(t, err)

	again := NewStore(blob, zerolog.Nop())
	c, err = again.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{matrix.ImdbID}, c.IDs())
}

func TestStore_SurvivesRestartWithFileBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "favourites.json")

	blob, err := storage.NewFile(path)
	require.NoError(t, err)
	s := NewStore(blob, zerolog.Nop())
	_, err = s.Add(ctx, heat)
	require.NoError(t, err)

	blob2, err := storage.NewFile(path)
	require.NoError(t, err)
	c, err := NewStore(blob2, zerolog.Nop()).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Collection{heat}, c)
}

func TestStore_PersistedShape(t *testing.T) {
	ctx := context.Background()
	blob := storage.NewMemory()
	s := NewStore(blob, zerolog.Nop())

	_, err := s.Add(ctx, matrix)
	require.NoError(t, err)

	raw, ok, err := blob.Get(ctx, StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"imdbID":"tt0133093","Title":"The Matrix","Year":"1999","Type":"movie",
		"Poster":"","Director":"","Plot":"","Runtime":"","Released":"","Genre":"","imdbRating":""}]`, string(raw))

	_, err = s.Remove(ctx, matrix.ImdbID)
	require.NoError(t, err)
	raw, _, _ = blob.Get(ctx, StorageKey)
	assert.Equal(t, "[]", string(raw))
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	blob := &failingBlob{Memory: storage.NewMemory()}
	s := NewStore(blob, zerolog.Nop())

	_, err := s.Add(ctx, batman)
	require.NoError(t, err)

	first, err := s.Remove(ctx, batman.ImdbID)
	require.NoError(t, err)
	second, err := s.Remove(ctx, batman.ImdbID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	absent, err := s.Remove(ctx, "tt9999999")
	require.NoError(t, err)
	assert.Empty(t, absent)
	// Every remove writes, even when nothing changed.
	assert.Equal(t, 4, blob.sets)
}

func TestStore_DuplicateAddKeepsPosition(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), zerolog.Nop())

	_, _ = s.Add(ctx, batman)
	_, _ = s.Add(ctx, matrix)

	updated := batman
	updated.Plot = "Refreshed plot"
	c, err := s.Add(ctx, updated)
	require.NoError(t, err)

	assert.Equal(t, []string{batman.ImdbID, matrix.ImdbID}, c.IDs())
	assert.Equal(t, "Refreshed plot", c[0].Plot)
	assert.Equal(t, 2, s.Count())
}

func TestStore_AddRejectsEmptyID(t *testing.T) {
	s := NewStore(storage.NewMemory(), zerolog.Nop())

	c, err := s.Add(context.Background(), movie.Detail{Title: "No ID"})
	assert.ErrorIs(t, err, ErrInvalidEntry)
	assert.Empty(t, c)
	assert.Equal(t, 0, s.Count())
}

func TestStore_WriteFailureReturnsCollectionAndError(t *testing.T) {
	ctx := context.Background()
	blob := &failingBlob{Memory: storage.NewMemory(), failSet: true}
	reporter := &recordingReporter{}
	s := NewStore(blob, zerolog.Nop())
	s.SetReporter(reporter)

	c, err := s.Add(ctx, batman)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorage)

	var serr *StorageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "save", serr.Op)

	assert.Equal(t, Collection{batman}, c)
	assert.True(t, s.IsFavourite(batman.ImdbID))
	assert.Len(t, reporter.errs, 1)

	// Nothing reached the backend.
	_, ok, _ := blob.Memory.Get(ctx, StorageKey)
	assert.False(t, ok)
}

func TestStore_SuccessfulWriteClearsError(t *testing.T) {
	ctx := context.Background()
	blob := &failingBlob{Memory: storage.NewMemory(), failSet: true}
	reporter := &recoveringReporter{}
	s := NewStore(blob, zerolog.Nop())
	s.SetReporter(reporter)

	_, err := s.Add(ctx, batman)
	require.Error(t, err)
	assert.Len(t, reporter.errs, 1)
	assert.Equal(t, 0, reporter.cleared)

	blob.setFailSet(false)
	_, err = s.Add(ctx, matrix)
	require.NoError(t, err)
	assert.Len(t, reporter.errs, 1)
	assert.Equal(t, 1, reporter.cleared)
}

func TestStore_FailedWriteRecordsNoHistory(t *testing.T) {
	ctx := context.Background()
	tdb := testutil.NewTestDB(t)
	hist := history.NewService(tdb.Conn, storage.NewSQLite(tdb.Conn), tdb.Logger)

	blob := &failingBlob{Memory: storage.NewMemory(), failSet: true}
	s := NewStore(blob, tdb.Logger)
	s.SetRecorder(hist)

	_, err := s.Add(ctx, batman)
	require.ErrorIs(t, err, ErrStorage)

	res, err := hist.List(ctx, history.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	blob.setFailSet(false)
	_, err = s.Add(ctx, matrix)
	require.NoError(t, err)

	// A failed remove is not recorded either.
	blob.setFailSet(true)
	_, err = s.Remove(ctx, batman.ImdbID)
	require.ErrorIs(t, err, ErrStorage)

	res, err = hist.List(ctx, history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, history.ActionAdded, res.Items[0].Action)
	assert.Equal(t, matrix.ImdbID, res.Items[0].ImdbID)
}

func TestStore_LoadFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("read error", func(t *testing.T) {
		blob := &failingBlob{Memory: storage.NewMemory(), failGet: true}
		c, err := NewStore(blob, zerolog.Nop()).Load(ctx)
		assert.ErrorIs(t, err, ErrStorage)
		assert.Empty(t, c)
	})

	t.Run("corrupt blob", func(t *testing.T) {
		blob := storage.NewMemory()
		require.NoError(t, blob.Set(ctx, StorageKey, []byte("{not json")))

		s := NewStore(blob, zerolog.Nop())
		c, err := s.Load(ctx)
		var serr *StorageError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "decode", serr.Op)
		assert.Empty(t, c)
		assert.Equal(t, 0, s.Count())
	})

	t.Run("duplicates deduplicated", func(t *testing.T) {
		blob := storage.NewMemory()
		raw := `[{"imdbID":"tt0096895","Title":"Batman"},{"imdbID":"tt0133093","Title":"The Matrix"},{"imdbID":"tt0096895","Title":"Batman (dup)"}]`
		require.NoError(t, blob.Set(ctx, StorageKey, []byte(raw)))

		c, err := NewStore(blob, zerolog.Nop()).Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"tt0096895", "tt0133093"}, c.IDs())
		assert.Equal(t, "Batman", c[0].Title)
	})
}

func TestStore_ReturnedCollectionsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory(), zerolog.Nop())

	c, _ := s.Add(ctx, batman)
	c[0].Title = "mutated"

	got, ok := s.Get(batman.ImdbID)
	require.True(t, ok)
	assert.Equal(t, "Batman", got.Title)
}

func TestStore_Broadcasts(t *testing.T) {
	ctx := context.Background()
	b := &recordingBroadcaster{}
	s := NewStore(storage.NewMemory(), zerolog.Nop())
	s.SetBroadcaster(b)

	_, _ = s.Add(ctx, batman)
	_, _ = s.Remove(ctx, batman.ImdbID)

	assert.Equal(t, []string{MessageChanged, MessageChanged}, b.msgs)
	assert.Equal(t, Collection{}, b.last)
}

func TestStore_RecordsHistory(t *testing.T) {
	ctx := context.Background()
	tdb := testutil.NewTestDB(t)
	hist := history.NewService(tdb.Conn, storage.NewSQLite(tdb.Conn), tdb.Logger)

	s := NewStore(storage.NewSQLite(tdb.Conn), tdb.Logger)
	s.SetRecorder(hist)

	_, err := s.Add(ctx, batman)
	require.NoError(t, err)
	_, err = s.Add(ctx, batman) // replace, not a new event
	require.NoError(t, err)
	_, err = s.Remove(ctx, batman.ImdbID)
	require.NoError(t, err)
	_, err = s.Remove(ctx, batman.ImdbID) // absent, not an event
	require.NoError(t, err)

	res, err := hist.List(ctx, history.ListOptions{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, history.ActionRemoved, res.Items[0].Action)
	assert.Equal(t, history.ActionAdded, res.Items[1].Action)
	assert.Equal(t, "Batman", res.Items[1].Title)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	blob := storage.NewMemory()
	s := NewStore(blob, zerolog.Nop())

	var wg sync.WaitGroup
	for _, d := range []movie.Detail{batman, matrix, heat} {
		wg.Add(1)
		go func(d movie.Detail) {
			defer wg.Done()
			_, _ = s.Add(ctx, d)
		}(d)
	}
	wg.Wait()

	c, err := NewStore(blob, zerolog.Nop()).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, c, 3)
	assert.ElementsMatch(t, s.List().IDs(), c.IDs())
}
