package hub

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/client"
	"ctchen222/minimax-tic-tac-toe/internal/room"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RegistrationRequest asks the hub to attach a client to a game.
type RegistrationRequest struct {
	Client *client.Client
	GameID string
	Ctx    context.Context
}

type departure struct {
	room   *room.Room
	client *client.Client
}

func (h *Hub) handleRegistration(ctx context.Context, req *RegistrationRequest) {
	reqCtx := req.Ctx
	if reqCtx == nil {
		reqCtx = ctx
	}
	_, span := tracer.Start(reqCtx, "hub.handleRegistration", trace.WithAttributes(
		attribute.String("client.id", req.Client.ID),
		attribute.String("room.id", req.GameID),
	))
	defer span.End()

	r, err := h.Room(ctx, req.GameID)
	if err != nil {
		slog.WarnContext(ctx, "Rejecting client for unknown room", "client.id", req.Client.ID, "room.id", req.GameID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Room lookup failed")
		data, _ := json.Marshal(&proto.ServerToClientMessage{Type: proto.TypeError, Reason: err.Error()})
		if err := req.Client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.WarnContext(ctx, "Error sending rejection to client", "client.id", req.Client.ID, "error", err)
		}
		req.Client.Conn.Close()
		return
	}

	r.Attach(ctx, req.Client)
	go func() {
		r.ReadPump(ctx, req.Client)
		select {
		case h.unregister <- departure{room: r, client: req.Client}:
		case <-ctx.Done():
		}
	}()
}
