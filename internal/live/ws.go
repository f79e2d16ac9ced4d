package live

import (
	"context"
	"net/http"
	"time"

	"bear-kitchen/internal/database"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // the feed only listens on the device itself
	},
}

type wsMessage struct {
	Collection database.Collection `json:"collection"`
	Seq        uint64              `json:"seq"`
	Data       any                 `json:"data,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// Handler streams the snapshots of query to a websocket client, one JSON
// message per snapshot. The subscription ends when the client goes away.
func Handler[T any](hub *Hub, collection database.Collection, query Query[T], logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer ws.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Incoming messages are ignored; a read error means the client left.
		go func() {
			defer cancel()
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		sub := Subscribe(ctx, hub, collection, query)
		defer sub.Unsubscribe()

		logger.Debug().Str("collection", string(collection)).Msg("live client connected")
		for snap := range sub.C {
			msg := wsMessage{Collection: collection, Seq: snap.Seq, Data: snap.Value}
			if snap.Err != nil {
				msg.Data = nil
				msg.Error = snap.Err.Error()
			}

			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Str("collection", string(collection)).Msg("live client write failed")
				return
			}
		}
		logger.Debug().Str("collection", string(collection)).Msg("live client disconnected")
	}
}
