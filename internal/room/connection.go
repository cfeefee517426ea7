package room

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/client"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attach adds c to the room and sends it the current state.
func (r *Room) Attach(ctx context.Context, c *client.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.clients[c.ID] = c
	r.touchLocked()
	slog.InfoContext(ctx, "client attached", "room.id", r.ID, "client.id", c.ID, "clients", len(r.clients))
	r.sendLocked(ctx, c, &proto.ServerToClientMessage{Type: proto.TypeUpdate, Game: r.viewLocked()})
}

// Detach removes c from the room and closes its connection.
func (r *Room) Detach(ctx context.Context, c *client.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c.ID]; !ok {
		return
	}
	delete(r.clients, c.ID)
	c.Conn.Close()
	r.touchLocked()
	slog.InfoContext(ctx, "client detached", "room.id", r.ID, "client.id", c.ID, "clients", len(r.clients))
}

// ReadPump feeds messages from c into the room until the connection fails.
// Rejected messages are answered with an error message to c alone.
func (r *Room) ReadPump(ctx context.Context, c *client.Client) {
	ctx, span := tracer.Start(ctx, "room.ReadPump", trace.WithAttributes(
		attribute.String("client.id", c.ID),
		attribute.String("room.id", r.ID),
	))
	defer span.End()

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.WarnContext(ctx, "client connection error", "client.id", c.ID, "room.id", r.ID, "error", err)
				span.RecordError(err)
				span.SetStatus(codes.Error, "Client connection error")
			}
			return
		}
		if err := r.HandleMessage(ctx, msg); err != nil {
			r.mu.Lock()
			r.sendLocked(ctx, c, &proto.ServerToClientMessage{Type: proto.TypeError, Reason: err.Error()})
			r.mu.Unlock()
		}
	}
}

// Broadcast sends the current state to every attached client.
func (r *Room) Broadcast(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(ctx)
}

// Ping sends a websocket ping to every attached client.
func (r *Room) Ping(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.clients {
		if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
			slog.WarnContext(ctx, "Failed to send ping to client, assuming disconnect", "client.id", c.ID, "room.id", r.ID, "error", err)
		}
	}
}

func (r *Room) broadcastLocked(ctx context.Context) {
	if len(r.clients) == 0 {
		return
	}
	_, span := tracer.Start(ctx, "room.Broadcast", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.Int("clients.count", len(r.clients)),
	))
	defer span.End()

	message := &proto.ServerToClientMessage{Type: proto.TypeUpdate, Game: r.viewLocked()}
	for _, c := range r.clients {
		r.sendLocked(ctx, c, message)
	}
}

func (r *Room) sendLocked(ctx context.Context, c *client.Client, message *proto.ServerToClientMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling message", "room.id", r.ID, "error", err)
		return
	}
	if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.ErrorContext(ctx, "error writing message to client", "client.id", c.ID, "room.id", r.ID, "error", err)
		trace.SpanFromContext(ctx).RecordError(err)
	}
}
