package server

import (
	"ctchen222/minimax-tic-tac-toe/internal/api/controller"
	"ctchen222/minimax-tic-tac-toe/internal/api/response"
	"ctchen222/minimax-tic-tac-toe/internal/api/service"
	"ctchen222/minimax-tic-tac-toe/internal/client"
	"ctchen222/minimax-tic-tac-toe/internal/hub"
	"ctchen222/minimax-tic-tac-toe/internal/validator"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

type Server struct {
	hub            *hub.Hub
	tokens         *service.TokenIssuer
	gameController *controller.GameController
	upgrader       websocket.Upgrader
	staticDir      string
}

func NewServer(h *hub.Hub, tokens *service.TokenIssuer, gameController *controller.GameController, staticDir string) *Server {
	if v, ok := binding.Validator.Engine().(*playground.Validate); ok {
		if err := validator.Register(v); err != nil {
			slog.Error("failed to register binding validations", "error", err)
		}
	}
	return &Server{
		hub:            h,
		tokens:         tokens,
		gameController: gameController,
		staticDir:      staticDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Engine builds the gin router.
func (s *Server) Engine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		response.SuccessResponse(c, gin.H{"status": "ok", "rooms": s.hub.RoomCount()})
	})

	api := engine.Group("/api/games")
	api.POST("", s.gameController.Create)

	game := api.Group("/:id", s.requireGameToken)
	game.GET("", s.gameController.Get)
	game.POST("/moves", s.gameController.Move)
	game.POST("/reset", s.gameController.Reset)
	game.PUT("/config", s.gameController.Configure)

	engine.GET("/ws", s.handleWebSocket)

	if s.staticDir != "" {
		engine.Static("/play", s.staticDir)
	}
	return engine
}

// requireGameToken lets a request through only with a bearer token issued
// for the game named in the path.
func (s *Server) requireGameToken(c *gin.Context) {
	raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
	if !ok || raw == "" {
		response.ErrorResponse(c, http.StatusUnauthorized, "missing bearer token")
		return
	}
	gameID, err := s.tokens.Verify(raw)
	if err != nil {
		response.ErrorResponse(c, http.StatusUnauthorized, err.Error())
		return
	}
	if gameID != c.Param("id") {
		response.ErrorResponse(c, http.StatusForbidden, "token does not grant access to this game")
		return
	}
	c.Next()
}

// handleWebSocket checks the game token, upgrades the connection and passes
// the client to the hub.
func (s *Server) handleWebSocket(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "server.handleWebSocket", trace.WithAttributes(
		attribute.String("http.url", c.Request.URL.String()),
		attribute.String("http.method", c.Request.Method),
	))
	defer span.End()

	gameID := c.Query("gameId")
	tokenGameID, err := s.tokens.Verify(c.Query("token"))
	if err != nil || tokenGameID != gameID {
		span.SetStatus(codes.Error, "Unauthorized websocket request")
		response.ErrorResponse(c, http.StatusUnauthorized, "invalid game token")
		return
	}
	span.SetAttributes(attribute.String("room.id", gameID))

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "Failed to upgrade connection", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	cl := client.New(uuid.NewString(), conn)
	span.SetAttributes(attribute.String("client.id", cl.ID))
	s.hub.RegisterClient(ctx, gameID, cl)
}
