package logger

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHub struct {
	mu       sync.Mutex
	messages []string
	payloads []any
}

func (h *recordingHub) Broadcast(msgType string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msgType)
	h.payloads = append(h.payloads, payload)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLogBroadcaster_ParsesAndStreams(t *testing.T) {
	hub := &recordingHub{}
	b := NewLogBroadcaster(hub, 10)
	log := zerolog.New(b).With().Str("component", "omdb").Logger()

	log.Warn().Str("query", "batman").Msg("search failed")

	entries := b.GetRecentLogs()
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0].Level)
	assert.Equal(t, "omdb", entries[0].Component)
	assert.Equal(t, "search failed", entries[0].Message)
	assert.Equal(t, "batman", entries[0].Fields["query"])

	require.Len(t, hub.messages, 1)
	assert.Equal(t, MessageLogEntry, hub.messages[0])
}

func TestLogBroadcaster_IgnoresMalformed(t *testing.T) {
	b := NewLogBroadcaster(nil, 10)

	n, err := b.Write([]byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Empty(t, b.GetRecentLogs())
}

func TestRingBuffer_Overwrite(t *testing.T) {
	r := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}

	assert.Equal(t, []int{3, 4, 5}, r.GetAll())
	assert.Equal(t, []int{4, 5}, r.Last(2))
	assert.Equal(t, []int{3, 4, 5}, r.Last(10))
	assert.Equal(t, 3, r.Len())

	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.Last(1))
}

func TestLogger_RecentLogsWithoutStreaming(t *testing.T) {
	l := New(Config{Level: "info", Format: "json"})
	assert.Empty(t, l.GetRecentLogs())
	assert.Equal(t, "", l.GetLogFilePath())
}

func TestLogger_FileOutput(t *testing.T) {
	dir := t.TempDir()
	l := New(Config{Level: "info", Format: "json", Path: dir, BufferSize: 5})
	defer l.Close()

	l.Info().Msg("hello")

	assert.Contains(t, l.GetLogFilePath(), logFileName)
	require.Len(t, l.GetRecentLogs(), 1)
	assert.Equal(t, "hello", l.GetRecentLogs()[0].Message)
}
