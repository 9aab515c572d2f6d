package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

const wsWriteTimeout = 10 * time.Second

// Handler streams the bus's domain events to a websocket client: the
// current backlog first, then live events until the connection closes.
func (b *Bus) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "stream closed")

		if err := b.stream(r.Context(), conn); err != nil {
			if status := websocket.CloseStatus(err); status == -1 {
				_ = conn.Close(websocket.StatusInternalError, "stream error")
			}
		}
	}
}

func (b *Bus) stream(ctx context.Context, conn *websocket.Conn) error {
	updates, cancel, backlog := b.Subscribe()
	defer cancel()

	for _, ev := range backlog {
		if err := writeEvent(ctx, conn, ev); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
