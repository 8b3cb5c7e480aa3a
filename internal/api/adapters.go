package api

import (
	"github.com/movieshelf/movieshelf/internal/favourites"
	"github.com/movieshelf/movieshelf/internal/session"
	"github.com/movieshelf/movieshelf/internal/websocket"
)

// favouritesBroadcaster fans favourites changes out to WebSocket clients
// and to every open session, so a change made through one session or the
// REST API shows up everywhere.
type favouritesBroadcaster struct {
	hub      *websocket.Hub
	sessions *session.Manager
}

func newFavouritesBroadcaster(hub *websocket.Hub, sessions *session.Manager) *favouritesBroadcaster {
	return &favouritesBroadcaster{hub: hub, sessions: sessions}
}

func (b *favouritesBroadcaster) Broadcast(msgType string, payload any) {
	if b.hub != nil {
		b.hub.Broadcast(msgType, payload)
	}
	if msgType != favourites.MessageChanged {
		return
	}
	if coll, ok := payload.(favourites.Collection); ok {
		b.sessions.SyncFavourites(coll)
	}
}

// multiReporter sends storage failures to every reporter.
type multiReporter []favourites.Reporter

func (m multiReporter) CaptureError(err error, tags map[string]string) {
	for _, r := range m {
		r.CaptureError(err, tags)
	}
}

func (m multiReporter) ClearError(tags map[string]string) {
	for _, r := range m {
		if rec, ok := r.(favourites.Recoverer); ok {
			rec.ClearError(tags)
		}
	}
}
