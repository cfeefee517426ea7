package service

import (
	"context"
	"ctchen222/minimax-tic-tac-toe/internal/api/models"
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"ctchen222/minimax-tic-tac-toe/internal/hub"
	"ctchen222/minimax-tic-tac-toe/pkg/proto"
)

// GameService defines the game operations exposed over HTTP.
type GameService interface {
	Create(ctx context.Context, req *models.CreateGameRequest) (*models.CreateGameResponse, error)
	Get(ctx context.Context, id string) (*proto.GameView, error)
	Move(ctx context.Context, id string, cell int) (*proto.GameView, error)
	Reset(ctx context.Context, id string) (*proto.GameView, error)
	Configure(ctx context.Context, id string, req *models.ConfigureRequest) (*proto.GameView, error)
}

type gameService struct {
	hub    *hub.Hub
	tokens *TokenIssuer
}

// NewGameService creates a new GameService.
func NewGameService(h *hub.Hub, tokens *TokenIssuer) GameService {
	return &gameService{hub: h, tokens: tokens}
}

// Create starts a game and issues its token.
func (s *gameService) Create(ctx context.Context, req *models.CreateGameRequest) (*models.CreateGameResponse, error) {
	mode, err := game.ParseMode(req.Mode)
	if err != nil {
		return nil, err
	}
	difficulty := bot.Easy
	if req.Difficulty != "" {
		if difficulty, err = bot.ParseDifficulty(req.Difficulty); err != nil {
			return nil, err
		}
	}

	r, err := s.hub.CreateRoom(ctx, mode, difficulty)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(r.ID)
	if err != nil {
		return nil, err
	}
	return &models.CreateGameResponse{ID: r.ID, Token: token, State: r.State()}, nil
}

func (s *gameService) Get(ctx context.Context, id string) (*proto.GameView, error) {
	r, err := s.hub.Room(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.State(), nil
}

func (s *gameService) Move(ctx context.Context, id string, cell int) (*proto.GameView, error) {
	r, err := s.hub.Room(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Move(ctx, cell)
}

func (s *gameService) Reset(ctx context.Context, id string) (*proto.GameView, error) {
	r, err := s.hub.Room(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Reset(ctx)
}

func (s *gameService) Configure(ctx context.Context, id string, req *models.ConfigureRequest) (*proto.GameView, error) {
	r, err := s.hub.Room(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Configure(ctx, game.Mode(req.Mode), bot.Difficulty(req.Difficulty))
}
