package health

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []HealthItem
}

func (r *recordingBroadcaster) Broadcast(msgType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msgType == MessageUpdated {
		r.messages = append(r.messages, payload.(HealthItem))
	}
}

func TestService_StatusTransitions(t *testing.T) {
	s := NewService(zerolog.Nop())
	b := &recordingBroadcaster{}
	s.SetBroadcaster(b)

	s.RegisterItem(CategoryMetadata, "provider", "omdb")
	assert.True(t, s.IsHealthy(CategoryMetadata, "provider"))

	s.SetError(CategoryMetadata, "provider", "unreachable")
	item := s.GetItem(CategoryMetadata, "provider")
	require.NotNil(t, item)
	assert.Equal(t, StatusError, item.Status)
	assert.Equal(t, "unreachable", item.Message)
	assert.NotNil(t, item.Timestamp)

	// Same status and message: no update.
	s.SetError(CategoryMetadata, "provider", "unreachable")

	s.ClearStatus(CategoryMetadata, "provider")
	assert.True(t, s.IsHealthy(CategoryMetadata, "provider"))
	assert.Nil(t, s.GetItem(CategoryMetadata, "provider").Timestamp)

	require.Len(t, b.messages, 3)
	assert.Equal(t, StatusOK, b.messages[0].Status)
	assert.Equal(t, StatusError, b.messages[1].Status)
	assert.Equal(t, StatusOK, b.messages[2].Status)
}

func TestService_UnregisteredItemIgnored(t *testing.T) {
	s := NewService(zerolog.Nop())
	s.SetError(CategoryStorage, "missing", "boom")
	assert.Nil(t, s.GetItem(CategoryStorage, "missing"))
	assert.False(t, s.IsHealthy(CategoryStorage, "missing"))
}

func TestService_Summary(t *testing.T) {
	s := NewService(zerolog.Nop())
	s.RegisterItem(CategoryMetadata, "provider", "omdb")
	s.RegisterItem(CategoryStorage, "favourites", "Favourites")

	assert.False(t, s.GetSummary().HasIssues)

	s.SetWarning(CategoryMetadata, "provider", "no key")
	summary := s.GetSummary()
	assert.True(t, summary.HasIssues)
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, CategorySummary{Category: CategoryMetadata, Warning: 1}, summary.Categories[0])
	assert.Equal(t, CategorySummary{Category: CategoryStorage, OK: 1}, summary.Categories[1])
}

func TestHealthItem_MarshalOmitsMessageWhenOK(t *testing.T) {
	item := HealthItem{ID: "a", Category: CategoryStorage, Name: "A", Status: StatusOK, Message: "stale"}
	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")

	item.Status = StatusError
	data, err = json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(data), "stale")
}
