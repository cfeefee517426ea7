package validator

import (
	"ctchen222/minimax-tic-tac-toe/internal/bot"
	"ctchen222/minimax-tic-tac-toe/internal/game"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	// Initialize validation
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := Register(validate); err != nil {
		panic(err)
	}
}

func GetValidator() *validator.Validate {
	return validate
}

// Register adds the game specific tags ("mode" and "difficulty") to v, so the
// same rules apply to websocket messages and to gin request bindings.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("mode", validMode); err != nil {
		return fmt.Errorf("register mode validation: %w", err)
	}
	if err := v.RegisterValidation("difficulty", validDifficulty); err != nil {
		return fmt.Errorf("register difficulty validation: %w", err)
	}
	return nil
}

func validMode(fl validator.FieldLevel) bool {
	_, err := game.ParseMode(fl.Field().String())
	return err == nil
}

func validDifficulty(fl validator.FieldLevel) bool {
	_, err := bot.ParseDifficulty(fl.Field().String())
	return err == nil
}
