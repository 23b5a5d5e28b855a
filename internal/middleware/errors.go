package middleware

import (
	"errors"

	"github.com/MrSnakeDoc/cellar/internal/errs"
	"github.com/MrSnakeDoc/cellar/internal/logger"
)

// ErrLogged is returned once the user-facing message has been printed.
var ErrLogged = errors.New("already logged")

// FlagComboError prints the coded usage message and returns ErrLogged.
func FlagComboError(code errs.Code, a ...any) error {
	logger.LogError("%s", errs.Msg(code, a...))
	return ErrLogged
}

// Logged reports whether err was already shown to the user.
func Logged(err error) bool {
	return errors.Is(err, ErrLogged)
}
